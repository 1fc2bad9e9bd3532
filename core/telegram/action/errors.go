package action

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidField is returned when a value names a field the schema does not declare.
	ErrInvalidField = errors.New("action: invalid field")
	// ErrMissingField is returned when an action is built without a value for a declared field.
	ErrMissingField = errors.New("action: missing field")
	// ErrTypeMismatch is returned when a value of the wrong kind is passed to a field.
	ErrTypeMismatch = errors.New("action: type mismatch")
	// ErrDecode is returned when a token segment cannot be parsed by its field.
	ErrDecode = errors.New("action: decode error")
	// ErrArityMismatch is returned when a token has the wrong number of segments.
	ErrArityMismatch = errors.New("action: arity mismatch")
	// ErrSeparatorInValue is returned when a string value contains the schema separator.
	ErrSeparatorInValue = errors.New("action: separator in value")
	// ErrSchema is returned for invalid schema definitions.
	ErrSchema = errors.New("action: invalid schema")
)

// Error carries schema and field context around one of the sentinel errors.
type Error struct {
	Schema string
	Field  string
	Err    error
	Detail string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Err.Error())
	if e.Schema != "" {
		b.WriteString(" (schema=")
		b.WriteString(e.Schema)
		if e.Field != "" {
			b.WriteString(", field=")
			b.WriteString(e.Field)
		}
		b.WriteByte(')')
	} else if e.Field != "" {
		fmt.Fprintf(&b, " (field=%s)", e.Field)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Code returns a stable identifier used as err_code in handler logs.
func (e *Error) Code() string {
	switch {
	case errors.Is(e.Err, ErrInvalidField):
		return "INVALID_FIELD"
	case errors.Is(e.Err, ErrMissingField):
		return "MISSING_FIELD"
	case errors.Is(e.Err, ErrTypeMismatch):
		return "TYPE_MISMATCH"
	case errors.Is(e.Err, ErrDecode):
		return "DECODE_ERROR"
	case errors.Is(e.Err, ErrArityMismatch):
		return "ARITY_MISMATCH"
	case errors.Is(e.Err, ErrSeparatorInValue):
		return "SEPARATOR_IN_VALUE"
	case errors.Is(e.Err, ErrSchema):
		return "INVALID_SCHEMA"
	}
	return "ACTION_ERROR"
}

func fieldErr(field string, err error, format string, args ...any) *Error {
	return &Error{Field: field, Err: err, Detail: fmt.Sprintf(format, args...)}
}

// withSchema attaches the schema name to err when it is an *Error without one.
func withSchema(schema string, err error) error {
	var ae *Error
	if errors.As(err, &ae) && ae.Schema == "" {
		clone := *ae
		clone.Schema = schema
		return &clone
	}
	return err
}

var errNilSchema = &Error{Err: ErrSchema, Detail: "nil schema"}
