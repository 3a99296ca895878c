package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownFieldShape is returned when a field spec matches no known shape.
	ErrUnknownFieldShape = errors.New("unknown field shape")

	// ErrUnknownType is returned when a type name is not in the registry.
	ErrUnknownType = errors.New("unknown type")

	// ErrPointerChain is returned when a cast/validate reference points at
	// another reference instead of a function.
	ErrPointerChain = errors.New("reference points to another reference")

	// ErrCast marks cast failures.
	ErrCast = errors.New("cast failed")

	// ErrRequired marks missing required values.
	ErrRequired = errors.New("value is required")

	// ErrValidation marks validation failures. Validators may return it bare
	// to signal failure without a message.
	ErrValidation = errors.New("validation failed")
)

// CastError wraps a failure to cast a raw string.
type CastError struct {
	Type string
	Err  error
}

func (e *CastError) Error() string {
	return fmt.Sprintf("cannot cast to %s: %v", e.Type, e.Err)
}

func (e *CastError) Unwrap() []error {
	return []error{ErrCast, e.Err}
}

// RequiredError reports a required field left empty after defaulting.
type RequiredError struct{}

func (e *RequiredError) Error() string {
	return ErrRequired.Error()
}

func (e *RequiredError) Unwrap() error {
	return ErrRequired
}

// ValidationError wraps a validator failure.
type ValidationError struct {
	Type string
	Err  error
}

func (e *ValidationError) Error() string {
	if e.Err == nil || e.Err == ErrValidation {
		return fmt.Sprintf("%s: %v", e.Type, ErrValidation)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrValidation}
	}
	return []error{ErrValidation, e.Err}
}

// FieldError attaches a field name to any per-field failure.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("Env '%s': %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Kind classifies err for metrics and CLI output.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnknownFieldShape):
		return "shape"
	case errors.Is(err, ErrUnknownType), errors.Is(err, ErrPointerChain):
		return "type"
	case errors.Is(err, ErrCast):
		return "cast"
	case errors.Is(err, ErrRequired):
		return "required"
	case errors.Is(err, ErrValidation):
		return "validation"
	default:
		return "other"
	}
}

// ErrUnknownField is returned when applying a name the schema does not define.
var ErrUnknownField = errors.New("field not defined in schema")
