// Package forms validates entity forms and saves them through the record
// stores. Errors are keyed by the JSON field name and carry the Italian
// messages shown next to each input.
package forms

import (
	"errors"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"studio/internal/core"
)

// Errors maps a field name to its message
type Errors map[string]string

// Clear drops the error of field, as happens on that field's next edit
func (e Errors) Clear(field string) {
	delete(e, field)
}

func (e Errors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// Fields returns the failing field names in order
func (e Errors) Fields() []string {
	out := make([]string, 0, len(e))
	for k := range e {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ValidationError is returned by the Save functions when a form is rejected
type ValidationError struct {
	Fields Errors
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields.Fields(), ", ")
}

// AsValidation extracts the field errors from err, if any
func AsValidation(err error) (Errors, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields, true
	}
	return nil, false
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// itemsField collects every line-item problem under one key
const itemsField = "items"

var messages = map[string]string{
	"name.notblank":          "Il nome è obbligatorio",
	"phone.notblank":         "Il telefono è obbligatorio",
	"email.notblank":         "L'email è obbligatoria",
	"email.loose_email":      "Email non valida",
	"patientId.required":     "Seleziona un paziente",
	"date.required":          "La data è obbligatoria",
	"date.isodate":           "Data non valida",
	"time.required":          "L'ora è obbligatoria",
	"time.clock":             "Ora non valida",
	"validUntil.required":    "La data di validità è obbligatoria",
	"validUntil.isodate":     "Data non valida",
	"items.min":              "Aggiungi almeno un trattamento",
	"items.dive":             "Completa tutti i trattamenti con nome, quantità e prezzo validi",
	"amount.gt":              "L'importo deve essere maggiore di 0",
	"defaultPrice.gt":        "Il prezzo deve essere maggiore di 0",
	"duration.gte":           "La durata non può essere negativa",
	"status.oneof":           "Stato non valido",
	"method.oneof":           "Metodo di pagamento non valido",
	"fileName.notblank":      "Il nome del file è obbligatorio",
	"fileType.oneof":         "Tipo di file non valido",
	"treatmentName.notblank": "Il nome del trattamento è obbligatorio",
	"cost.gte":               "Il costo non può essere negativo",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Money is validated as its cent count, so gt=0 and gte=0 apply.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if m, ok := field.Interface().(core.Money); ok {
			return m.Cents
		}
		return nil
	}, core.Money{})

	must := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(err)
		}
	}
	must("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	must("loose_email", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	must("isodate", func(fl validator.FieldLevel) bool {
		_, err := core.ParseDate(fl.Field().String())
		return err == nil
	})
	must("clock", func(fl validator.FieldLevel) bool {
		return core.ValidTime(fl.Field().String())
	})
	return v
}

// Validate runs the struct rules of form and returns the field errors.
// An empty result means the form may be submitted.
func Validate(form any) Errors {
	errs := Errors{}
	err := validate.Struct(form)
	if err == nil {
		return errs
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs["form"] = err.Error()
		return errs
	}
	for _, fe := range verrs {
		field, key := fe.Field(), fe.Field()+"."+fe.Tag()
		if strings.Contains(fe.Namespace(), itemsField+"[") {
			field, key = itemsField, itemsField+".dive"
		}
		if errs.Has(field) {
			continue
		}
		msg, ok := messages[key]
		if !ok {
			msg = "Valore non valido"
		}
		errs[field] = msg
	}
	return errs
}
