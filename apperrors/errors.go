// Package apperrors defines the error taxonomy shared by every handler and
// its mapping onto HTTP status codes.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindUnavailable
)

type Error struct {
	Kind    Kind
	Message string
	// Field names the offending input for conflicts.
	Field string
	// Fields carries per-field messages for validation failures.
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func Validation(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// Invalid is a validation failure on a single field.
func Invalid(field, message string) *Error {
	return &Error{Kind: KindValidation, Message: field + " " + message, Fields: map[string]string{field: message}}
}

// Conflict reports a uniqueness violation on field.
func Conflict(field, message string) *Error {
	return &Error{Kind: KindConflict, Message: message, Field: field}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// MalformedID is surfaced to clients as a 404, like a missing record.
func MalformedID(resource string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s not found: malformed id", resource)}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func Unavailable(message string) *Error {
	return &Error{Kind: KindUnavailable, Message: message}
}

func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// From classifies any error returned by a handler.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return fromValidator(verrs)
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &Error{Kind: KindNotFound, Message: "resource not found", Err: err}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &Error{Kind: KindConflict, Message: "duplicate value", Err: err}
	}
	return Internal("internal server error", err)
}

// Binding converts a gin binding failure into a validation error.
func Binding(err error) *Error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return fromValidator(verrs)
	}
	return &Error{Kind: KindValidation, Message: "invalid request body", Err: err}
}

func fromValidator(verrs validator.ValidationErrors) *Error {
	fields := make(map[string]string, len(verrs))
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := fieldName(fe)
		fields[name] = describe(fe)
		names = append(names, name)
	}
	return Validation("invalid fields: "+strings.Join(names, ", "), fields)
}

func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "uuid", "uuid4":
		return "must be a valid id"
	default:
		return "is invalid"
	}
}
