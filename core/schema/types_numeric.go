package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

func numberType() *Type {
	return &Type{
		Name:     "number",
		Cast:     CastWith(castNumber),
		Validate: ValidateWith(validateNumber),
		Uncast:   uncastNumber,
		Describe: describeRange("number", formatFloat),
	}
}

func floatType() *Type {
	return &Type{
		Name:     "float",
		Cast:     CastRef("number"),
		Validate: ValidateRef("number"),
		Uncast:   uncastNumber,
		Describe: describeRange("float", formatFloat),
	}
}

func percentType() *Type {
	return &Type{
		Name:     "percent",
		Cast:     CastWith(castPercent),
		Validate: ValidateRef("number"),
		Uncast:   uncastPercent,
		Describe: describeRange("percent", func(n float64) string {
			return formatPercent(n)
		}),
		Defaults: map[string]any{
			"min": 0.0,
			"max": 1.0,
		},
	}
}

func castNumber(raw string, _ *Descriptor) (any, error) {
	s := strings.TrimSpace(raw)
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%q is not a number", raw)
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, fmt.Errorf("%q is not a finite number", raw)
	}
	return n, nil
}

func validateNumber(v any, d *Descriptor) error {
	n, err := toFloat64(v)
	if err != nil {
		return fmt.Errorf("expected a number, got %s", typeOf(v))
	}
	if min, ok := d.floatOption("min"); ok && n < min {
		return fmt.Errorf("below minimum value %s", formatFloat(min))
	}
	if max, ok := d.floatOption("max"); ok && n > max {
		return fmt.Errorf("above maximum value %s", formatFloat(max))
	}
	if d.boolOption("integer", false) && n != math.Trunc(n) {
		return fmt.Errorf("%s is not an integer", formatFloat(n))
	}
	return nil
}

func uncastNumber(v any, _ *Descriptor) (string, error) {
	n, err := toFloat64(v)
	if err != nil {
		return "", fmt.Errorf("expected a number, got %s", typeOf(v))
	}
	return formatFloat(n), nil
}

func castPercent(raw string, _ *Descriptor) (any, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, fmt.Errorf("%q is not a percentage", raw)
	}
	return n / 100, nil
}

func uncastPercent(v any, _ *Descriptor) (string, error) {
	n, err := toFloat64(v)
	if err != nil {
		return "", fmt.Errorf("expected a number, got %s", typeOf(v))
	}
	return formatPercent(n), nil
}

// formatPercent renders a fraction as "N%", hiding float noise.
func formatPercent(n float64) string {
	return formatFloat(math.Round(n*100*1e9)/1e9) + "%"
}

func describeRange(name string, format func(float64) string) DescribeFunc {
	return func(d *Descriptor) string {
		min, hasMin := d.floatOption("min")
		max, hasMax := d.floatOption("max")
		switch {
		case hasMin && hasMax:
			return fmt.Sprintf("%s between %s and %s", name, format(min), format(max))
		case hasMin:
			return fmt.Sprintf("%s >= %s", name, format(min))
		case hasMax:
			return fmt.Sprintf("%s <= %s", name, format(max))
		default:
			return name
		}
	}
}
