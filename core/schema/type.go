package schema

import (
	"fmt"
	"maps"
	"sort"
	"strings"
)

// CastFunc converts a raw string into a typed value.
type CastFunc func(raw string, d *Descriptor) (any, error)

// ValidateFunc checks a typed value. A nil error means the value passes.
// Returning ErrValidation reports a failure without a specific message.
type ValidateFunc func(value any, d *Descriptor) error

// UncastFunc renders a typed value back into its canonical string form.
type UncastFunc func(value any, d *Descriptor) (string, error)

// DescribeFunc returns a short human description of a field's type.
type DescribeFunc func(d *Descriptor) string

// Predicate adapts a boolean check into a ValidateFunc. A false result is an
// unnamed validation failure.
func Predicate(fn func(value any, d *Descriptor) bool) ValidateFunc {
	return func(value any, d *Descriptor) error {
		if fn(value, d) {
			return nil
		}
		return ErrValidation
	}
}

// Cast is either an inline function or a reference to another registry
// type's cast. The zero value means "no cast".
type Cast struct {
	Fn  CastFunc
	Ref string
}

// CastWith wraps an inline cast function.
func CastWith(fn CastFunc) Cast { return Cast{Fn: fn} }

// CastRef points at the cast of the named registry type.
func CastRef(name string) Cast { return Cast{Ref: strings.ToLower(name)} }

// IsZero reports whether no cast is set.
func (c Cast) IsZero() bool { return c.Fn == nil && c.Ref == "" }

// Validate is either an inline function or a reference to another registry
// type's validator. The zero value means "no validation".
type Validate struct {
	Fn  ValidateFunc
	Ref string
}

// ValidateWith wraps an inline validator.
func ValidateWith(fn ValidateFunc) Validate { return Validate{Fn: fn} }

// ValidateRef points at the validator of the named registry type.
func ValidateRef(name string) Validate { return Validate{Ref: strings.ToLower(name)} }

// IsZero reports whether no validator is set.
func (v Validate) IsZero() bool { return v.Fn == nil && v.Ref == "" }

// Type is a registry entry: a named, reusable cast/validate/uncast bundle.
type Type struct {
	// Name is the unique lowercase registry key.
	Name string

	Cast     Cast
	Validate Validate
	Uncast   UncastFunc
	Describe DescribeFunc

	// Defaults are merged underneath the options of every field using this
	// type. They are never mutated.
	Defaults map[string]any
}

// defaults returns a copy of the type's default options.
func (t *Type) defaults() map[string]any {
	return maps.Clone(t.Defaults)
}

// describeDefault builds a fallback description from the type name and options.
func describeDefault(d *Descriptor) string {
	if len(d.Options) == 0 {
		return d.Type
	}
	keys := make([]string, 0, len(d.Options))
	for k := range d.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, d.Options[k]))
	}
	return fmt.Sprintf("%s (%s)", d.Type, strings.Join(parts, ", "))
}
