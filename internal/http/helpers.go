package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"studio/internal/forms"
	"studio/internal/log"
	"studio/internal/record"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

func pathID(r *http.Request) string {
	return sanitizeInput(chi.URLParam(r, "id"))
}

// writeError maps a service error onto the response: field errors become
// 422, missing records 404, anything else is logged and answered with 500.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errs, ok := forms.AsValidation(err); ok {
		ValidationErrorResponse(errs).Write(w)
		return
	}
	if errors.Is(err, forms.ErrNotFound) {
		NotFoundError("Elemento non trovato").Write(w)
		return
	}
	log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
		log.FieldOperation, op, log.FieldError, err)
	InternalServerError("Errore interno").Write(w)
}

// entity describes one collection exposed under /api.
type entity[T record.Entity] struct {
	name  string
	store *record.Store[T]
}

// list returns the whole collection in stored order.
func (e entity[T]) list(w http.ResponseWriter, r *http.Request) {
	items, err := e.store.All(r.Context())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	NewResponse().JSON(items).Write(w)
}

func (e entity[T]) get(w http.ResponseWriter, r *http.Request) {
	item, ok, err := e.store.Get(r.Context(), pathID(r))
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	if !ok {
		NotFoundError("Elemento non trovato").Write(w)
		return
	}
	NewResponse().JSON(item).Write(w)
}

func (e entity[T]) remove(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	ok, err := e.store.Delete(r.Context(), id)
	if err != nil {
		writeError(w, r, log.OpDelete, err)
		return
	}
	if !ok {
		NotFoundError("Elemento non trovato").Write(w)
		return
	}
	NewResponse().Status(http.StatusNoContent).TriggerDeleted(e.name, id).Write(w)
}

// saver decodes a form and hands it to save: POST creates (empty id),
// PUT updates the record named in the path.
func saver[F any, T record.Entity](name string, save func(ctx context.Context, id string, f F) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var form F
		if err := decodeJSON(w, r, &form); err != nil {
			BadRequestError("Formato richiesta non valido").Write(w)
			return
		}

		id := ""
		op := log.OpCreate
		status := http.StatusCreated
		if r.Method != http.MethodPost {
			id = pathID(r)
			op = log.OpUpdate
			status = http.StatusOK
		}

		saved, err := save(r.Context(), id, form)
		if err != nil {
			writeError(w, r, op, err)
			return
		}
		log.FromContext(r.Context()).InfoContext(r.Context(), "Record saved",
			log.FieldOperation, op, log.FieldCollection, name, log.FieldEntityID, saved.EntityID())
		NewResponse().Status(status).TriggerChanged(name, saved.EntityID()).JSON(saved).Write(w)
	}
}

// crud mounts the list/get/create/update/delete routes of one collection.
func crud[F any, T record.Entity](r chi.Router, e entity[T], list http.HandlerFunc, save func(ctx context.Context, id string, f F) (T, error)) {
	if list == nil {
		list = e.list
	}
	r.Get("/", list)
	r.Post("/", saver(e.name, save))
	r.Get("/{id}", e.get)
	r.Put("/{id}", saver(e.name, save))
	r.Delete("/{id}", e.remove)
}
