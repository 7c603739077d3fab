package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies engine failures. None of them are transient.
type ErrorKind string

const (
	KindInvalidInput         ErrorKind = "invalid_input"
	KindUnknownStatutoryYear ErrorKind = "unknown_statutory_year"
	KindUnknownAccountType   ErrorKind = "unknown_account_type"
	KindConstraintViolation  ErrorKind = "constraint_violation"
)

// Error is the typed failure returned by every engine operation.
// Field and Value name the offending input when there is one.
type Error struct {
	Kind    ErrorKind
	Op      string
	Field   string
	Value   any
	Message string
}

// Sentinels for errors.Is comparisons; matching is by Kind only.
var (
	ErrInvalidInput         = &Error{Kind: KindInvalidInput}
	ErrUnknownStatutoryYear = &Error{Kind: KindUnknownStatutoryYear}
	ErrUnknownAccountType   = &Error{Kind: KindUnknownAccountType}
	ErrConstraintViolation  = &Error{Kind: KindConstraintViolation}
)

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(strings.ReplaceAll(string(e.Kind), "_", " "))
	if e.Field != "" {
		fmt.Fprintf(&b, " [%s=%v]", e.Field, e.Value)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// WithOp returns a copy of the error tagged with the operation name,
// keeping an existing op as a prefix.
func (e *Error) WithOp(op string) *Error {
	c := *e
	if c.Op == "" {
		c.Op = op
	} else {
		c.Op = op + "." + c.Op
	}
	return &c
}

// InvalidInput builds a KindInvalidInput error.
func InvalidInput(field string, value any, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Field: field, Value: value, Message: fmt.Sprintf(format, args...)}
}

// UnknownStatutoryYear builds a KindUnknownStatutoryYear error.
func UnknownStatutoryYear(field string, value any, format string, args ...any) *Error {
	return &Error{Kind: KindUnknownStatutoryYear, Field: field, Value: value, Message: fmt.Sprintf(format, args...)}
}

// UnknownAccountType builds a KindUnknownAccountType error.
func UnknownAccountType(accountType AccountType, taxYear int) *Error {
	return &Error{
		Kind:    KindUnknownAccountType,
		Field:   "account_type",
		Value:   accountType,
		Message: fmt.Sprintf("no statutory contribution limit for %s in %d", accountType, taxYear),
	}
}

// ConstraintViolation builds a KindConstraintViolation error.
func ConstraintViolation(field string, value any, format string, args ...any) *Error {
	return &Error{Kind: KindConstraintViolation, Field: field, Value: value, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind of an engine error, or "" for foreign errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
