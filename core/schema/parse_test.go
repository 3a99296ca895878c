package schema_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/artpar/envguard/core/schema"
)

func TestParse(t *testing.T) {
	yaml := `
PORT:    { type: number, default: 3000, min: 1, max: 65535 }
HOST:    string
DEBUG:   { type: boolean, required: false }
TIMEOUT: { type: duration, default: 30s, help: request timeout }
TOKEN:   { type: string, destruct: { in: 10m, background: true } }
NOTES:
`

	s, err := schema.Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	want := []string{"PORT", "HOST", "DEBUG", "TIMEOUT", "TOKEN", "NOTES"}
	if got := s.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}

	timeout, _ := s.Field("TIMEOUT")
	if timeout.Help != "request timeout" {
		t.Errorf("TIMEOUT help = %q", timeout.Help)
	}

	token, _ := s.Field("TOKEN")
	if token.Destruct == nil || token.Destruct.In != "10m" || !token.Destruct.Background {
		t.Errorf("TOKEN destruct = %+v", token.Destruct)
	}

	notes, _ := s.Field("NOTES")
	if notes.Type != "any" || notes.Required {
		t.Errorf("NOTES = %s required=%v, want optional any", notes.Type, notes.Required)
	}

	got, err := s.Apply(map[string]string{"HOST": "localhost", "TOKEN": "t0k3n"})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	defer func() {
		if c, ok := got["TOKEN"].(interface{ Close() }); ok {
			c.Close()
		}
	}()

	// Scalar defaults are cast like raw input.
	if got["PORT"] != float64(3000) {
		t.Errorf("PORT = %#v, want float64(3000)", got["PORT"])
	}
	if got["TIMEOUT"] != 30*time.Second {
		t.Errorf("TIMEOUT = %#v, want 30s", got["TIMEOUT"])
	}
}

func TestParse_RequiredTokenMissing(t *testing.T) {
	s, err := schema.Parse([]byte("TOKEN: { type: string, destruct: 1h }\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, err := s.Apply(nil); !errors.Is(err, schema.ErrRequired) {
		t.Errorf("Apply() error = %v, want ErrRequired", err)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{"not a mapping", "- PORT\n- HOST\n", nil},
		{"invalid yaml", "PORT: [number\n", nil},
		{"unknown type", "PORT: nope\n", schema.ErrUnknownType},
		{"sequence spec", "PORT: [number]\n", schema.ErrUnknownFieldShape},
		{"duplicate", "PORT: number\nPORT: string\n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := schema.Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParse_Empty(t *testing.T) {
	s, err := schema.Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil) error = %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.schema.yaml")
	if err := os.WriteFile(path, []byte("PORT: number\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := schema.ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if !s.Has("PORT") {
		t.Error("expected PORT field")
	}

	if _, err := schema.ParseFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
