package schema

import (
	"fmt"
	"maps"
	"reflect"
	"strings"
	"time"

	"github.com/artpar/envguard/core/destruct"
	"github.com/artpar/envguard/core/duration"
)

// Normalize resolves a field spec against the default registry.
func Normalize(name string, spec any) (*Descriptor, error) {
	return DefaultRegistry.Normalize(name, spec)
}

// Normalize turns a field spec into a Descriptor. Accepted shapes, in order:
//
//	"number"                        bare type name, required
//	Field{Type: "number", ...}      object with a type name
//	schema.Number / reflect.Type    bare alias, required
//	Field{Type: schema.Number}      object with an alias
//	Field{Type: &Type{...}}         object with an inline type
//	Field{Default: "x"}             untyped object, optional, type any
//
// map[string]any (as decoded from YAML) is accepted wherever Field is.
// The type's default options sit underneath the field's own options.
func (r *Registry) Normalize(name string, spec any) (*Descriptor, error) {
	d, err := r.normalize(name, spec)
	if err != nil {
		return nil, err
	}
	d.registry = r
	return d, nil
}

func (r *Registry) normalize(name string, spec any) (*Descriptor, error) {
	switch s := spec.(type) {
	case string:
		return r.bind(&Descriptor{Name: name, Required: true, Type: strings.ToLower(s)}, nil)

	case Field:
		return r.normalizeField(name, s)

	case *Field:
		if s == nil {
			break
		}
		return r.normalizeField(name, *s)

	case map[string]any:
		f, err := decodeField(s)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		return r.normalizeField(name, f)
	}

	if isAlias(spec) {
		typeName, ok := aliasName(spec)
		if !ok {
			return nil, fmt.Errorf("%w: no registry type for %v", ErrUnknownType, spec)
		}
		return r.bind(&Descriptor{Name: name, Required: true, Type: typeName}, nil)
	}

	return nil, fmt.Errorf("field %q: %w: %T", name, ErrUnknownFieldShape, spec)
}

func (r *Registry) normalizeField(name string, f Field) (*Descriptor, error) {
	d := &Descriptor{
		Name:       name,
		Required:   true,
		Default:    f.Default,
		DefaultRaw: f.DefaultRaw,
		Cast:       f.Cast,
		Validate:   f.Validate,
		Uncast:     f.Uncast,
		Describe:   f.Describe,
		Help:       f.Help,
		Options:    maps.Clone(f.Options),
	}

	destructOpts, err := normalizeDestruct(f.Destruct)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", name, err)
	}
	d.Destruct = destructOpts

	var inline *Type
	switch t := f.Type.(type) {
	case nil:
		d.Required = false
		d.Type = "any"
	case string:
		d.Type = strings.ToLower(t)
	case *Type:
		if t == nil {
			return nil, fmt.Errorf("field %q: %w: nil inline type", name, ErrUnknownFieldShape)
		}
		inline = t
		d.Type = strings.ToLower(t.Name)
	default:
		if !isAlias(t) {
			return nil, fmt.Errorf("field %q: %w: type %T", name, ErrUnknownFieldShape, t)
		}
		typeName, ok := aliasName(t)
		if !ok {
			return nil, fmt.Errorf("field %q: %w: no registry type for %v", name, ErrUnknownType, t)
		}
		d.Type = typeName
	}

	if f.Required != nil {
		d.Required = *f.Required
	}

	return r.bind(d, inline)
}

// bind merges the registry (or inline) type underneath d.
func (r *Registry) bind(d *Descriptor, inline *Type) (*Descriptor, error) {
	t := inline
	if t == nil {
		var err error
		t, err = r.Resolve(d.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", d.Name, err)
		}
	}

	options := t.defaults()
	if options == nil {
		options = make(map[string]any, len(d.Options))
	}
	for k, v := range d.Options {
		options[k] = v
	}
	d.Options = options

	if d.Cast.IsZero() {
		d.Cast = t.Cast
	}
	if d.Validate.IsZero() {
		d.Validate = t.Validate
	}
	if d.Uncast == nil {
		d.Uncast = t.Uncast
	}
	if d.Describe == nil {
		d.Describe = t.Describe
	}

	return d, nil
}

// fieldKeys are the map keys decoded into Field rather than Options.
var fieldKeys = map[string]bool{
	"type": true, "required": true, "default": true, "defaultraw": true,
	"default_raw": true, "cast": true, "validate": true, "destruct": true,
	"help": true, "description": true,
}

// decodeField converts a generic map (YAML, JSON) into a Field.
func decodeField(m map[string]any) (Field, error) {
	var f Field

	for key, value := range m {
		switch strings.ToLower(key) {
		case "type":
			f.Type = value
		case "required":
			b, ok := value.(bool)
			if !ok {
				return Field{}, fmt.Errorf("%w: required must be a boolean, got %T", ErrUnknownFieldShape, value)
			}
			f.Required = Bool(b)
		case "default":
			f.Default = value
		case "defaultraw", "default_raw":
			f.DefaultRaw = value
		case "cast":
			switch c := value.(type) {
			case string:
				f.Cast = CastRef(c)
			case Cast:
				f.Cast = c
			case CastFunc:
				f.Cast = CastWith(c)
			case func(string, *Descriptor) (any, error):
				f.Cast = CastWith(c)
			default:
				return Field{}, fmt.Errorf("%w: cast must be a type name or function, got %T", ErrUnknownFieldShape, value)
			}
		case "validate":
			switch v := value.(type) {
			case string:
				f.Validate = ValidateRef(v)
			case Validate:
				f.Validate = v
			case ValidateFunc:
				f.Validate = ValidateWith(v)
			case func(any, *Descriptor) error:
				f.Validate = ValidateWith(v)
			default:
				return Field{}, fmt.Errorf("%w: validate must be a type name or function, got %T", ErrUnknownFieldShape, value)
			}
		case "destruct":
			f.Destruct = value
		case "help", "description":
			f.Help = fmt.Sprint(value)
		}

		if !fieldKeys[strings.ToLower(key)] {
			if f.Options == nil {
				f.Options = make(map[string]any)
			}
			f.Options[key] = value
		}
	}

	return f, nil
}

// normalizeDestruct converts the accepted destruct spellings into Options.
func normalizeDestruct(v any) (*destruct.Options, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case bool:
		if !x {
			return nil, nil
		}
		return nil, fmt.Errorf("destruct: a deadline is required")
	case string:
		if _, err := duration.Parse(x, time.Millisecond); err != nil {
			return nil, fmt.Errorf("destruct: %w", err)
		}
		return &destruct.Options{In: x}, nil
	case time.Duration:
		return &destruct.Options{After: x}, nil
	case time.Time:
		return &destruct.Options{At: x}, nil
	case destruct.Options:
		return &x, nil
	case *destruct.Options:
		if x == nil {
			return nil, nil
		}
		opts := *x
		return &opts, nil
	case int, int64, float64:
		n, _ := toFloat64(x)
		return &destruct.Options{After: time.Duration(n * float64(time.Millisecond))}, nil
	case map[string]any:
		return decodeDestruct(x)
	default:
		return nil, fmt.Errorf("destruct: unsupported value %T", v)
	}
}

func decodeDestruct(m map[string]any) (*destruct.Options, error) {
	opts := &destruct.Options{}
	for key, value := range m {
		switch strings.ToLower(key) {
		case "in", "after":
			inner, err := normalizeDestruct(value)
			if err != nil {
				return nil, err
			}
			if inner == nil {
				continue
			}
			opts.In, opts.After = inner.In, inner.After
		case "at":
			switch at := value.(type) {
			case time.Time:
				opts.At = at
			case string:
				t, err := parseDate(at)
				if err != nil {
					return nil, fmt.Errorf("destruct at: %w", err)
				}
				opts.At = t
			default:
				return nil, fmt.Errorf("destruct at: unsupported value %T", value)
			}
		case "interval":
			d, err := durationValue(value)
			if err != nil {
				return nil, fmt.Errorf("destruct interval: %w", err)
			}
			opts.Interval = d
		case "background":
			b, ok := value.(bool)
			if !ok {
				return nil, fmt.Errorf("destruct background: expected boolean, got %T", value)
			}
			opts.Background = b
		case "replacement":
			opts.Replacement = value
		default:
			return nil, fmt.Errorf("destruct: unknown option %q", key)
		}
	}
	if opts.At.IsZero() && opts.After == 0 && opts.In == "" {
		return nil, fmt.Errorf("destruct: a deadline is required")
	}
	return opts, nil
}

// durationValue accepts a time.Duration, a duration string, or milliseconds.
func durationValue(v any) (time.Duration, error) {
	switch x := v.(type) {
	case time.Duration:
		return x, nil
	case string:
		return duration.Parse(x, time.Millisecond)
	default:
		n, err := toFloat64(v)
		if err != nil {
			return 0, err
		}
		return time.Duration(n * float64(time.Millisecond)), nil
	}
}

// typeOf is used in error messages for unexpected values.
func typeOf(v any) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}
