package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rgehrsitz/rptax/internal/domain"
)

// AppError is the error shape returned by every endpoint.
type AppError struct {
	Code       string
	Message    string
	StatusCode int
	Err        error
	Details    map[string]any
}

func (e AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches by code.
func (e AppError) Is(target error) bool {
	if t, ok := target.(AppError); ok {
		return t.Code == e.Code
	}
	return false
}

func (e AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a single detail to the error
func (e AppError) WithDetail(key string, value any) AppError {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	e.Details = details
	return e
}

// NewBadRequestError reports a body that could not be decoded.
func NewBadRequestError(message string, err error) AppError {
	return AppError{
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Err:        err,
	}
}

// NewInternalError reports a failure that is not the caller's fault.
func NewInternalError(err error) AppError {
	return AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// FromError maps engine errors onto HTTP statuses: invalid input and unknown
// account types are 400, an unknown tax year is 404, and a constraint
// violation is 422.
func FromError(err error) AppError {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var derr *domain.Error
	if !errors.As(err, &derr) {
		return NewInternalError(err)
	}

	e := AppError{Message: err.Error(), Err: err}
	switch derr.Kind {
	case domain.KindInvalidInput:
		e.Code, e.StatusCode = "INVALID_INPUT", http.StatusBadRequest
	case domain.KindUnknownAccountType:
		e.Code, e.StatusCode = "UNKNOWN_ACCOUNT_TYPE", http.StatusBadRequest
	case domain.KindUnknownStatutoryYear:
		e.Code, e.StatusCode = "UNKNOWN_TAX_YEAR", http.StatusNotFound
	case domain.KindConstraintViolation:
		e.Code, e.StatusCode = "CONSTRAINT_VIOLATION", http.StatusUnprocessableEntity
	default:
		return NewInternalError(err)
	}
	if derr.Field != "" {
		e = e.WithDetail("field", derr.Field)
		e = e.WithDetail("value", fmt.Sprint(derr.Value))
	}
	if derr.Op != "" {
		e = e.WithDetail("operation", derr.Op)
	}
	return e
}
