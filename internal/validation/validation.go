// Package validation wraps go-playground/validator and turns its errors into
// field-level messages suitable for API responses.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/isdelr/taskflow-api/internal/models"
)

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is returned when input fails validation. It always carries at least
// one field error.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// New builds an Error for a single field.
func New(field, message string) *Error {
	return &Error{Fields: []FieldError{{Field: field, Message: message}}}
}

// Merge combines several validation errors, skipping nils. It returns nil if
// there is nothing to report.
func Merge(errs ...*Error) error {
	var out Error
	for _, e := range errs {
		if e != nil {
			out.Fields = append(out.Fields, e.Fields...)
		}
	}
	if len(out.Fields) == 0 {
		return nil
	}
	return &out
}

var (
	once     sync.Once
	instance *validator.Validate
)

func validate() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("calendardate", func(fl validator.FieldLevel) bool {
			_, err := models.ParseDate(fl.Field().String())
			return err == nil
		})
		instance = v
	})
	return instance
}

// Struct validates s using its `validate` tags.
func Struct(s any) error {
	err := validate().Struct(s)
	if err == nil {
		return nil
	}
	return translate(err, "")
}

// Var validates a single value against tag, reporting problems under field.
func Var(field string, value any, tag string) *Error {
	err := validate().Var(value, tag)
	if err == nil {
		return nil
	}
	var out *Error
	if errors.As(translate(err, field), &out) {
		return out
	}
	return New(field, Label(field)+" is invalid")
}

func translate(err error, field string) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// InvalidValidationError means a programming error, not bad input.
		return err
	}
	out := &Error{}
	for _, fe := range verrs {
		name := field
		if name == "" {
			name = fe.Field()
		}
		out.Fields = append(out.Fields, FieldError{Field: name, Message: message(name, fe)})
	}
	return out
}

// labels are the user-facing names of request fields.
var labels = map[string]string{
	"name":            "Name",
	"email":           "Email",
	"password":        "Password",
	"currentPassword": "Current password",
	"newPassword":     "New password",
	"avatar":          "Avatar",
	"title":           "Title",
	"description":     "Description",
	"status":          "Status",
	"priority":        "Priority",
	"dueDate":         "Due date",
}

// messages override the generic wording for specific field and tag pairs.
var messages = map[string]string{
	"title.max":       "Title too long",
	"description.max": "Description too long",
	"status.oneof":    "Invalid status",
	"priority.oneof":  "Invalid priority",
	"name.max":        "Name must be between 2 and 50 characters",
	"email.required":  "Please provide a valid email",
}

// Label returns the user-facing name of a request field.
func Label(field string) string {
	if l, ok := labels[field]; ok {
		return l
	}
	return field
}

func message(field string, fe validator.FieldError) string {
	if m, ok := messages[field+"."+fe.Tag()]; ok {
		return m
	}
	label := Label(field)
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "email":
		return "Please provide a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "calendardate":
		return label + " must be a date in YYYY-MM-DD format"
	default:
		return label + " is invalid"
	}
}
