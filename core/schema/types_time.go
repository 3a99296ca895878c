package schema

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/artpar/envguard/core/duration"
)

// dateLayouts are tried in order when casting dates.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

func parseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if isDigits(s) {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("%q is not a valid date", raw)
		}
		// 13+ digits are milliseconds since the epoch.
		if len(s) >= 13 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a valid date", raw)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func dateType() *Type {
	return &Type{
		Name: "date",
		Cast: CastWith(func(raw string, _ *Descriptor) (any, error) {
			return parseDate(raw)
		}),
		Validate: ValidateWith(validateDate),
		Uncast: func(v any, _ *Descriptor) (string, error) {
			t, ok := v.(time.Time)
			if !ok {
				return "", fmt.Errorf("expected a date, got %s", typeOf(v))
			}
			return t.Format(time.RFC3339Nano), nil
		},
		Describe: func(d *Descriptor) string {
			desc := "date (RFC3339, YYYY-MM-DD or unix time)"
			if min, ok := d.timeOption("min"); ok {
				desc += ", not before " + min.Format(time.RFC3339)
			}
			if max, ok := d.timeOption("max"); ok {
				desc += ", not after " + max.Format(time.RFC3339)
			}
			return desc
		},
	}
}

func validateDate(v any, d *Descriptor) error {
	t, ok := v.(time.Time)
	if !ok {
		return fmt.Errorf("expected a date, got %s", typeOf(v))
	}
	if min, ok := d.timeOption("min"); ok && t.Before(min) {
		return fmt.Errorf("before minimum date %s", min.Format(time.RFC3339))
	}
	if max, ok := d.timeOption("max"); ok && t.After(max) {
		return fmt.Errorf("after maximum date %s", max.Format(time.RFC3339))
	}
	return nil
}

func durationType() *Type {
	return &Type{
		Name:     "duration",
		Cast:     CastWith(castDuration),
		Validate: ValidateWith(validateDuration),
		Uncast: func(v any, _ *Descriptor) (string, error) {
			d, ok := v.(time.Duration)
			if !ok {
				return "", fmt.Errorf("expected a duration, got %s", typeOf(v))
			}
			return d.String(), nil
		},
		Describe: func(d *Descriptor) string {
			return fmt.Sprintf("duration (e.g. 1h30m, 2d; bare numbers in %s)", d.stringOption("unit", "ms"))
		},
		Defaults: map[string]any{"unit": "ms"},
	}
}

// unit returns the field's unit for bare numbers.
func (d *Descriptor) unit() (time.Duration, error) {
	return duration.Unit(d.stringOption("unit", "ms"))
}

func castDuration(raw string, d *Descriptor) (any, error) {
	unit, err := d.unit()
	if err != nil {
		return nil, err
	}
	return duration.Parse(raw, unit)
}

func validateDuration(v any, d *Descriptor) error {
	dur, ok := v.(time.Duration)
	if !ok {
		return fmt.Errorf("expected a duration, got %s", typeOf(v))
	}
	unit, err := d.unit()
	if err != nil {
		return err
	}
	if min, ok := d.durationOption("min", unit); ok && dur < min {
		return fmt.Errorf("shorter than minimum duration %s", min)
	}
	if max, ok := d.durationOption("max", unit); ok && dur > max {
		return fmt.Errorf("longer than maximum duration %s", max)
	}
	return nil
}
