package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/csrf"

	"studio/internal/auth"
	"studio/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	}).Write(w)
}

// handleReady checks that the storage backend answers
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]string{"storage": "ok"}

	if err := s.repo.Ping(ctx); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
		checks["storage"] = "failed: " + err.Error()
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	NewResponse().Status(httpStatus).JSON(map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

type sessionResponse struct {
	Authenticated bool       `json:"authenticated"`
	User          *auth.User `json:"user,omitempty"`
}

// handleLogin accepts email and password as JSON or form data
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Formato richiesta non valido").Write(w)
		return
	}

	user, err := s.auth.Login(w, r, p.Get("email"), p.Get("password"))
	if errors.Is(err, auth.ErrInvalidCredentials) {
		ErrorResponse(http.StatusUnauthorized, "Credenziali non valide").Write(w)
		return
	}
	if err != nil {
		writeError(w, r, "login", err)
		return
	}

	NewResponse().
		Trigger("session:changed", struct{}{}).
		JSON(sessionResponse{Authenticated: true, User: &user}).
		Write(w)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(w, r); err != nil {
		writeError(w, r, "logout", err)
		return
	}
	NewResponse().Status(http.StatusNoContent).Trigger("session:changed", struct{}{}).Write(w)
}

// handleSession restores the logged-in user. With CSRF protection enabled it
// also hands out the token clients must echo on writes.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	resp := NewResponse()
	if s.csrf {
		resp.Header("X-CSRF-Token", csrf.Token(r))
	}
	if user, ok := s.auth.Current(r); ok {
		resp.JSON(sessionResponse{Authenticated: true, User: &user})
	} else {
		resp.JSON(sessionResponse{})
	}
	resp.Write(w)
}
