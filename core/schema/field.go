package schema

import (
	"fmt"
	"maps"

	"github.com/artpar/envguard/core/destruct"
)

// Field is the object form of a field spec, before normalization.
type Field struct {
	// Type is a registry name (string), an Alias, a reflect.Type, an inline
	// *Type, or nil for untyped fields.
	Type any

	// Required defaults to true for typed fields and false for untyped ones.
	Required *bool

	// Default is used when the raw value is missing or empty. It may be a
	// value, a func() any, or a func(*Descriptor) any. String results are
	// cast and validated like raw input; other values are used as-is.
	Default any

	// DefaultRaw is returned verbatim, skipping every other step.
	DefaultRaw any

	Cast     Cast
	Validate Validate
	Uncast   UncastFunc
	Describe DescribeFunc

	// Destruct makes the value self-destruct: a duration string ("100ms"),
	// a time.Duration, a time.Time, or destruct.Options.
	Destruct any

	// Help is shown as an inline comment on export.
	Help string

	// Options carries type-specific tuning (min, max, enum, delimiter, ...).
	Options map[string]any
}

// Bool returns a pointer to b, for Field.Required.
func Bool(b bool) *bool {
	return &b
}

// Descriptor is a fully-resolved field bound to a registry type.
type Descriptor struct {
	Name       string
	Required   bool
	Type       string
	Default    any
	DefaultRaw any
	Cast       Cast
	Validate   Validate
	Uncast     UncastFunc
	Describe   DescribeFunc
	Destruct   *destruct.Options
	Help       string
	Options    map[string]any

	registry *Registry
}

// Option returns a type-specific option.
func (d *Descriptor) Option(key string) (any, bool) {
	v, ok := d.Options[key]
	return v, ok && v != nil
}

// HasDefault reports whether a default or raw default is configured.
func (d *Descriptor) HasDefault() bool {
	return d.Default != nil || d.DefaultRaw != nil
}

// Description returns the type's describe string for this field.
func (d *Descriptor) Description() string {
	if d.Describe != nil {
		return d.Describe(d)
	}
	return describeDefault(d)
}

// UncastValue renders v in its canonical string form.
func (d *Descriptor) UncastValue(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	if d.Uncast != nil {
		return d.Uncast(v, d)
	}
	return fmt.Sprint(v), nil
}

// EvalDefault evaluates Default, calling it if it is a function.
func (d *Descriptor) EvalDefault() any {
	return evalWith(d.Default, d)
}

// clone returns a copy safe to mutate.
func (d *Descriptor) clone() *Descriptor {
	c := *d
	c.Options = maps.Clone(d.Options)
	if d.Destruct != nil {
		opts := *d.Destruct
		c.Destruct = &opts
	}
	return &c
}

// registryOrDefault returns the registry the descriptor was normalized with.
func (d *Descriptor) registryOrDefault() *Registry {
	if d.registry != nil {
		return d.registry
	}
	return DefaultRegistry
}
