package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/artpar/envguard/core/duration"
)

// floatOption reads a numeric option.
func (d *Descriptor) floatOption(key string) (float64, bool) {
	v, ok := d.Option(key)
	if !ok {
		return 0, false
	}
	n, err := toFloat64(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// stringOption reads a string option, falling back to def.
func (d *Descriptor) stringOption(key, def string) string {
	v, ok := d.Option(key)
	if !ok {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// boolOption reads a boolean option, falling back to def.
func (d *Descriptor) boolOption(key string, def bool) bool {
	v, ok := d.Option(key)
	if !ok {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return def
		}
		return parsed
	default:
		return def
	}
}

// stringsOption reads a list option. A plain string is split on commas.
func (d *Descriptor) stringsOption(key string) []string {
	v, ok := d.Option(key)
	if !ok {
		return nil
	}
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(list, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	default:
		return []string{fmt.Sprint(v)}
	}
}

// durationOption reads a duration option. Numbers are in the field's unit.
func (d *Descriptor) durationOption(key string, unit time.Duration) (time.Duration, bool) {
	v, ok := d.Option(key)
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case time.Duration:
		return x, true
	case string:
		parsed, err := duration.Parse(x, unit)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		n, err := toFloat64(v)
		if err != nil {
			return 0, false
		}
		return time.Duration(n * float64(unit)), true
	}
}

// timeOption reads a date option.
func (d *Descriptor) timeOption(key string) (time.Time, bool) {
	v, ok := d.Option(key)
	if !ok {
		return time.Time{}, false
	}
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		t, err := parseDate(x)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	default:
		return time.Time{}, false
	}
}

// toFloat64 converts various numeric types to float64.
func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", v)
	}
}

// formatFloat renders n without exponent or trailing zeros.
func formatFloat(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
