package schema_test

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/artpar/envguard/core/schema"
)

// applyAndUncast casts raw through spec and renders the result back.
func applyAndUncast(t *testing.T, spec any, raw string) (any, string) {
	t.Helper()

	d, err := schema.Normalize("FIELD", spec)
	if err != nil {
		t.Fatalf("Normalize(%v) error = %v", spec, err)
	}
	v, err := schema.ApplyField("FIELD", raw, spec)
	if err != nil {
		t.Fatalf("ApplyField(%q) error = %v", raw, err)
	}
	s, err := d.UncastValue(v)
	if err != nil {
		t.Fatalf("UncastValue(%v) error = %v", v, err)
	}
	return v, s
}

func TestTypes_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		spec   any
		raw    string
		want   any
		uncast string
	}{
		{"string", "string", "Foo!", "Foo!", "Foo!"},
		{"number", "number", "1.50", 1.5, "1.5"},
		{"number integer", "number", "123", float64(123), "123"},
		{"float", "float", "-2.25", -2.25, "-2.25"},
		{"percent", "percent", "25%", 0.25, "25%"},
		{"percent without sign", "percent", "50", 0.5, "50%"},
		{"boolean yes", "boolean", "yes", true, "true"},
		{"boolean OFF", "boolean", "OFF", false, "false"},
		{"boolean custom literals", schema.Field{
			Type:    "boolean",
			Options: map[string]any{"truthy": []string{"si", "oui"}, "falsy": []string{"non"}},
		}, "OUI", true, "si"},
		{"array", "array", "a, b,,c", []any{"a", "b", "c"}, "a,b,c"},
		{"array delimiter", schema.Field{
			Type:    "array",
			Options: map[string]any{"delimiter": ";"},
		}, "x;y", []any{"x", "y"}, "x;y"},
		{"array of numbers", schema.Field{
			Type:    "array",
			Options: map[string]any{"items": "number"},
		}, "1,2.5", []any{float64(1), 2.5}, "1,2.5"},
		{"set", "set", "a,b,a", []any{"a", "b"}, "a,b"},
		{"duration", "duration", "1h30m", 90 * time.Minute, "1h30m0s"},
		{"duration bare ms", "duration", "1500", 1500 * time.Millisecond, "1.5s"},
		{"duration days", "duration", "2d", 48 * time.Hour, "48h0m0s"},
		{"duration unit", schema.Field{
			Type:    "duration",
			Options: map[string]any{"unit": "s"},
		}, "30", 30 * time.Second, "30s"},
		{"email", "email", " Foo@Example.COM ", "foo@example.com", "foo@example.com"},
		{"emails", "emails", "a@x.io, B@y.io", []any{"a@x.io", "b@y.io"}, "a@x.io,b@y.io"},
		{"keyvals", "keyvals", "b=2, a=1", map[string]any{"a": "1", "b": "2"}, "a=1,b=2"},
		{"object literal", "object", "{a: 1, b: two}", map[string]any{"a": 1, "b": "two"}, "a=1,b=two"},
		{"style", "style", "Bold.Red", []any{"bold", "red"}, "bold.red"},
		{"mongouri", "mongouri", "mongodb+srv://db.example.com/app", "mongodb+srv://db.example.com/app", "mongodb+srv://db.example.com/app"},
		{"any", schema.Field{}, "whatever", "whatever", "whatever"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, s := applyAndUncast(t, tt.spec, tt.raw)
			if !reflect.DeepEqual(v, tt.want) {
				t.Errorf("value = %#v, want %#v", v, tt.want)
			}
			if s != tt.uncast {
				t.Errorf("uncast = %q, want %q", s, tt.uncast)
			}
		})
	}
}

func TestDate(t *testing.T) {
	want := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	inputs := []string{
		"2024-01-02T03:04:05Z",
		"2024-01-02 03:04:05",
		"1704164645",
		"1704164645000",
	}
	for _, raw := range inputs {
		v, s := applyAndUncast(t, "date", raw)
		got, ok := v.(time.Time)
		if !ok {
			t.Fatalf("date(%q) = %T, want time.Time", raw, v)
		}
		if !got.Equal(want) {
			t.Errorf("date(%q) = %v, want %v", raw, got, want)
		}
		if s != "2024-01-02T03:04:05Z" {
			t.Errorf("uncast date(%q) = %q, want %q", raw, s, "2024-01-02T03:04:05Z")
		}
	}

	if _, err := schema.ApplyField("D", "yesterday", "date"); !errors.Is(err, schema.ErrCast) {
		t.Errorf("date(yesterday) error = %v, want ErrCast", err)
	}

	bounded := schema.Field{Type: "date", Options: map[string]any{"min": "2024-01-01", "max": "2024-12-31"}}
	if _, err := schema.ApplyField("D", "2023-06-01", bounded); !errors.Is(err, schema.ErrValidation) {
		t.Errorf("date before min error = %v, want ErrValidation", err)
	}
	if _, err := schema.ApplyField("D", "2024-06-01", bounded); err != nil {
		t.Errorf("date within range error = %v", err)
	}
}

func TestNumber_Bounds(t *testing.T) {
	spec := schema.Field{Type: "number", Options: map[string]any{"min": 10, "max": 100}}

	tests := []struct {
		raw     string
		wantErr string
	}{
		{"9", "below minimum value 10"},
		{"10", ""},
		{"11", ""},
		{"100", ""},
		{"101", "above maximum value 100"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			_, err := schema.ApplyField("PORT", tt.raw, spec)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("ApplyField(%q) error = %v", tt.raw, err)
				}
				return
			}
			if !errors.Is(err, schema.ErrValidation) {
				t.Fatalf("ApplyField(%q) error = %v, want ErrValidation", tt.raw, err)
			}
			want := "Env 'PORT': " + tt.wantErr
			if err.Error() != want {
				t.Errorf("error = %q, want %q", err.Error(), want)
			}
		})
	}
}

func TestNumber_Invalid(t *testing.T) {
	for _, raw := range []string{"abc", "NaN", "Inf", "1,5"} {
		_, err := schema.ApplyField("N", raw, "number")
		if !errors.Is(err, schema.ErrCast) {
			t.Errorf("number(%q) error = %v, want ErrCast", raw, err)
		}
	}

	integer := schema.Field{Type: "number", Options: map[string]any{"integer": true}}
	if _, err := schema.ApplyField("N", "1.5", integer); !errors.Is(err, schema.ErrValidation) {
		t.Errorf("integer(1.5) error = %v, want ErrValidation", err)
	}
}

func TestPercent_Bounds(t *testing.T) {
	if _, err := schema.ApplyField("P", "100%", "percent"); err != nil {
		t.Errorf("percent(100%%) error = %v", err)
	}
	if _, err := schema.ApplyField("P", "150%", "percent"); !errors.Is(err, schema.ErrValidation) {
		t.Errorf("percent(150%%) error = %v, want ErrValidation", err)
	}
}

func TestBoolean_Invalid(t *testing.T) {
	_, err := schema.ApplyField("FLAG", "maybe", "boolean")
	if !errors.Is(err, schema.ErrCast) {
		t.Fatalf("error = %v, want ErrCast", err)
	}
	if !strings.Contains(err.Error(), "not a valid true/false response") {
		t.Errorf("error = %q, want it to mention the true/false response", err)
	}
}

func TestString_Options(t *testing.T) {
	tests := []struct {
		name    string
		options map[string]any
		raw     string
		wantErr bool
	}{
		{"min ok", map[string]any{"min": 3}, "abc", false},
		{"min short", map[string]any{"min": 3}, "ab", true},
		{"max ok", map[string]any{"max": 3}, "abc", false},
		{"max long", map[string]any{"max": 3}, "abcd", true},
		{"max counts runes", map[string]any{"max": 2}, "é!", false},
		{"enum ok", map[string]any{"enum": []any{"debug", "info"}}, "info", false},
		{"enum miss", map[string]any{"enum": "debug,info"}, "warn", true},
		{"match ok", map[string]any{"match": "/^v[0-9]+$/"}, "v12", false},
		{"match miss", map[string]any{"match": "/^v[0-9]+$/"}, "12", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := schema.ApplyField("S", tt.raw, schema.Field{Type: "string", Options: tt.options})
			if (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestArray_Bounds(t *testing.T) {
	spec := schema.Field{Type: "array", Options: map[string]any{"min": 2, "max": 3}}

	for raw, wantErr := range map[string]bool{
		"a":       true,
		"a,b":     false,
		"a,b,c":   false,
		"a,b,c,d": true,
	} {
		_, err := schema.ApplyField("L", raw, spec)
		if (err != nil) != wantErr {
			t.Errorf("array(%q) error = %v, wantErr %v", raw, err, wantErr)
		}
	}

	_, err := schema.ApplyField("L", "1,x", schema.Field{Type: "array", Options: map[string]any{"items": "number"}})
	if !errors.Is(err, schema.ErrCast) {
		t.Errorf("array of numbers error = %v, want ErrCast", err)
	}
}

func TestEmails_InvalidItem(t *testing.T) {
	_, err := schema.ApplyField("ADMINS", "a@x.io,not-an-email", "emails")
	if err == nil {
		t.Fatal("expected error for invalid email item")
	}
	if !strings.Contains(err.Error(), "not-an-email") {
		t.Errorf("error = %q, want it to name the bad item", err)
	}
}

func TestKeyvals_Keys(t *testing.T) {
	spec := schema.Field{Type: "keyvals", Options: map[string]any{"keys": []any{"host", "port"}}}

	if _, err := schema.ApplyField("KV", "host=a,port=1", spec); err != nil {
		t.Errorf("keyvals error = %v", err)
	}
	if _, err := schema.ApplyField("KV", "host=a", spec); !errors.Is(err, schema.ErrValidation) {
		t.Errorf("keyvals missing key error = %v, want ErrValidation", err)
	}
	if _, err := schema.ApplyField("KV", "novalue", "keyvals"); !errors.Is(err, schema.ErrCast) {
		t.Errorf("keyvals without separator error = %v, want ErrCast", err)
	}
}

func TestRegexp(t *testing.T) {
	v, s := applyAndUncast(t, "regexp", "/ab+c/i")
	re, ok := v.(*regexp.Regexp)
	if !ok {
		t.Fatalf("regexp = %T, want *regexp.Regexp", v)
	}
	if !re.MatchString("xABBCx") {
		t.Error("expected case-insensitive match")
	}
	if s != "/(?i)ab+c/" {
		t.Errorf("uncast = %q, want %q", s, "/(?i)ab+c/")
	}

	if _, err := schema.ApplyField("R", "a.b", "regexp"); !errors.Is(err, schema.ErrCast) {
		t.Errorf("undelimited regexp error = %v, want ErrCast", err)
	}
	if _, err := schema.ApplyField("R", "/a/z", "regexp"); !errors.Is(err, schema.ErrCast) {
		t.Errorf("unknown flag error = %v, want ErrCast", err)
	}

	literal := schema.Field{Type: "regexp", Options: map[string]any{"literal": true}}
	v, err := schema.ApplyField("R", "a.b", literal)
	if err != nil {
		t.Fatalf("literal regexp error = %v", err)
	}
	re = v.(*regexp.Regexp)
	if re.MatchString("axb") {
		t.Error("literal regexp should not treat . as a wildcard")
	}
	if !re.MatchString("a.b") {
		t.Error("literal regexp should match its own text")
	}
}

func TestURI(t *testing.T) {
	v, s := applyAndUncast(t, "uri", "https://example.com/path?q=1")
	if _, ok := v.(*url.URL); !ok {
		t.Fatalf("uri = %T, want *url.URL", v)
	}
	if s != "https://example.com/path?q=1" {
		t.Errorf("uncast = %q", s)
	}

	for _, raw := range []string{"not a uri", "/relative/path", "https://"} {
		if _, err := schema.ApplyField("U", raw, "uri"); err == nil {
			t.Errorf("uri(%q) expected error", raw)
		}
	}

	restricted := schema.Field{Type: "uri", Options: map[string]any{"protocols": []any{"https"}}}
	if _, err := schema.ApplyField("U", "http://example.com", restricted); !errors.Is(err, schema.ErrValidation) {
		t.Errorf("disallowed protocol error = %v, want ErrValidation", err)
	}
	if _, err := schema.ApplyField("U", "https://example.com", restricted); err != nil {
		t.Errorf("allowed protocol error = %v", err)
	}
}

func TestMongoURI_Invalid(t *testing.T) {
	for _, raw := range []string{"http://db.example.com", "mongodb://", "localhost:27017"} {
		if _, err := schema.ApplyField("M", raw, "mongouri"); !errors.Is(err, schema.ErrValidation) {
			t.Errorf("mongouri(%q) error = %v, want ErrValidation", raw, err)
		}
	}
}

func TestStyle_Unknown(t *testing.T) {
	if _, err := schema.ApplyField("S", "bold.sparkly", "style"); !errors.Is(err, schema.ErrValidation) {
		t.Errorf("style error = %v, want ErrValidation", err)
	}
}

func TestFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "key.pem")
	if err := os.WriteFile(path, []byte("secret"), 0o600); err != nil {
		t.Fatal(err)
	}

	if v, err := schema.ApplyField("F", path, "file"); err != nil || v != path {
		t.Errorf("file(existing) = %v, %v; want %q", v, err, path)
	}
	if _, err := schema.ApplyField("F", filepath.Join(dir, "missing"), "file"); !errors.Is(err, schema.ErrValidation) {
		t.Errorf("file(missing) error = %v, want ErrValidation", err)
	}
	if _, err := schema.ApplyField("F", dir, "file"); !errors.Is(err, schema.ErrValidation) {
		t.Errorf("file(dir) error = %v, want ErrValidation", err)
	}

	loose := schema.Field{Type: "file", Options: map[string]any{"exists": false}}
	if _, err := schema.ApplyField("F", filepath.Join(dir, "later"), loose); err != nil {
		t.Errorf("file(exists=false) error = %v", err)
	}
}

func TestDescriptions(t *testing.T) {
	tests := []struct {
		spec any
		want string
	}{
		{schema.Field{Type: "number", Options: map[string]any{"min": 1, "max": 10}}, "number between 1 and 10"},
		{"percent", "percent between 0% and 100%"},
		{"string", "string"},
		{schema.Field{Type: "string", Options: map[string]any{"enum": "a,b"}}, "string (one of a|b)"},
	}

	for _, tt := range tests {
		d, err := schema.Normalize("X", tt.spec)
		if err != nil {
			t.Fatalf("Normalize(%v) error = %v", tt.spec, err)
		}
		if got := d.Description(); got != tt.want {
			t.Errorf("Description() = %q, want %q", got, tt.want)
		}
	}
}
