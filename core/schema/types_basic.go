package schema

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

func anyType() *Type {
	return &Type{
		Name:     "any",
		Describe: func(*Descriptor) string { return "any value" },
	}
}

func stringType() *Type {
	return &Type{
		Name:     "string",
		Cast:     CastWith(castString),
		Validate: ValidateWith(validateString),
		Describe: describeString,
	}
}

func castString(raw string, _ *Descriptor) (any, error) {
	return raw, nil
}

func validateString(v any, d *Descriptor) error {
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("expected a string, got %s", typeOf(v))
	}

	n := float64(utf8.RuneCountInString(s))
	if min, ok := d.floatOption("min"); ok && n < min {
		return fmt.Errorf("shorter than minimum length %s", formatFloat(min))
	}
	if max, ok := d.floatOption("max"); ok && n > max {
		return fmt.Errorf("longer than maximum length %s", formatFloat(max))
	}

	if enum := d.stringsOption("enum"); len(enum) > 0 {
		found := false
		for _, allowed := range enum {
			if s == allowed {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("must be one of: %s", strings.Join(enum, ", "))
		}
	}

	if pattern, ok := d.Option("match"); ok {
		re, err := matchPattern(pattern)
		if err != nil {
			return err
		}
		if !re.MatchString(s) {
			return fmt.Errorf("does not match pattern %s", re.String())
		}
	}

	return nil
}

func matchPattern(v any) (*regexp.Regexp, error) {
	switch p := v.(type) {
	case *regexp.Regexp:
		return p, nil
	case string:
		re, err := compileRegexp(p, true)
		if err != nil {
			return nil, fmt.Errorf("invalid match option: %w", err)
		}
		return re, nil
	default:
		return nil, fmt.Errorf("invalid match option %s", typeOf(v))
	}
}

func describeString(d *Descriptor) string {
	var parts []string
	if enum := d.stringsOption("enum"); len(enum) > 0 {
		parts = append(parts, "one of "+strings.Join(enum, "|"))
	}
	if min, ok := d.floatOption("min"); ok {
		parts = append(parts, "min length "+formatFloat(min))
	}
	if max, ok := d.floatOption("max"); ok {
		parts = append(parts, "max length "+formatFloat(max))
	}
	if len(parts) == 0 {
		return "string"
	}
	return "string (" + strings.Join(parts, ", ") + ")"
}

var (
	defaultTruthy = []string{"true", "yes", "on", "1", "y", "t"}
	defaultFalsy  = []string{"false", "no", "off", "0", "n", "f"}
)

// errNotBoolean is the cast failure for unrecognized boolean literals.
var errNotBoolean = errors.New("not a valid true/false response")

func booleanType() *Type {
	return &Type{
		Name:     "boolean",
		Cast:     CastWith(castBoolean),
		Validate: ValidateWith(validateBoolean),
		Uncast:   uncastBoolean,
		Describe: func(d *Descriptor) string {
			return fmt.Sprintf("boolean (%s / %s)",
				strings.Join(d.stringsOption("truthy"), "|"),
				strings.Join(d.stringsOption("falsy"), "|"))
		},
		Defaults: map[string]any{
			"truthy": defaultTruthy,
			"falsy":  defaultFalsy,
		},
	}
}

func castBoolean(raw string, d *Descriptor) (any, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	for _, t := range d.stringsOption("truthy") {
		if s == strings.ToLower(t) {
			return true, nil
		}
	}
	for _, f := range d.stringsOption("falsy") {
		if s == strings.ToLower(f) {
			return false, nil
		}
	}
	return nil, fmt.Errorf("%q is %w", raw, errNotBoolean)
}

func validateBoolean(v any, _ *Descriptor) error {
	if _, ok := v.(bool); !ok {
		return fmt.Errorf("expected a boolean, got %s", typeOf(v))
	}
	return nil
}

func uncastBoolean(v any, d *Descriptor) (string, error) {
	b, ok := v.(bool)
	if !ok {
		return "", fmt.Errorf("expected a boolean, got %s", typeOf(v))
	}
	literals := d.stringsOption("falsy")
	fallback := "false"
	if b {
		literals = d.stringsOption("truthy")
		fallback = "true"
	}
	if len(literals) == 0 {
		return fallback, nil
	}
	return literals[0], nil
}
