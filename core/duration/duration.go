// Package duration parses human-written durations.
//
// It accepts everything time.ParseDuration does, plus day ("d") and week ("w")
// units, and bare numbers interpreted in a caller-chosen unit.
package duration

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Extra units on top of the ones time.ParseDuration knows.
const (
	Day  = 24 * time.Hour
	Week = 7 * Day
)

var units = map[string]time.Duration{
	"ns": time.Nanosecond,
	"us": time.Microsecond,
	"µs": time.Microsecond,
	"ms": time.Millisecond,
	"s":  time.Second,
	"m":  time.Minute,
	"h":  time.Hour,
	"d":  Day,
	"w":  Week,
}

var segmentRegex = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(ns|us|µs|ms|s|m|h|d|w)`)

// Unit returns the duration of a named unit ("ms", "s", "d", ...).
func Unit(name string) (time.Duration, error) {
	u, ok := units[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown duration unit %q", name)
	}
	return u, nil
}

// Parse parses s as a duration. A bare number is scaled by unit.
func Parse(s string, unit time.Duration) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	if n, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n * float64(unit)), nil
	}

	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	neg := false
	body := s
	if strings.HasPrefix(body, "-") {
		neg = true
		body = body[1:]
	}

	matches := segmentRegex.FindAllStringSubmatchIndex(body, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}

	var total float64
	pos := 0
	for _, m := range matches {
		if strings.TrimSpace(body[pos:m[0]]) != "" {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		n, err := strconv.ParseFloat(body[m[2]:m[3]], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		total += n * float64(units[body[m[4]:m[5]]])
		pos = m[1]
	}
	if strings.TrimSpace(body[pos:]) != "" {
		return 0, fmt.Errorf("invalid duration %q", s)
	}

	if total > math.MaxInt64 {
		return 0, fmt.Errorf("duration %q overflows", s)
	}
	d := time.Duration(total)
	if neg {
		d = -d
	}
	return d, nil
}
