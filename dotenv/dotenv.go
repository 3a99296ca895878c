// Package dotenv loads environment-style key/value configuration and exposes
// it through a schema-typed view.
//
// Reads go through DotEnv.Get, which resolves self-destructing values: a
// field whose deadline has passed returns its replacement (by default an
// ErrDestroyed error). Keys never disappear because of destruction.
package dotenv

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/artpar/envguard/core/convention"
	"github.com/artpar/envguard/core/destruct"
	"github.com/artpar/envguard/core/formatter"
	"github.com/artpar/envguard/core/schema"
	"github.com/artpar/envguard/ports"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned when reading a key that is not present.
var ErrNotFound = errors.New("key not found")

// Parser parses dotenv text with godotenv.
type Parser struct{}

// Parse implements ports.Parser.
func (Parser) Parse(src []byte) (map[string]string, error) {
	return Parse(src)
}

var _ ports.Parser = Parser{}

// Parse parses dotenv text into a flat map.
func Parse(src []byte) (map[string]string, error) {
	m, err := godotenv.Unmarshal(string(src))
	if err != nil {
		return nil, fmt.Errorf("parse dotenv: %w", err)
	}
	return m, nil
}

// Load reads and parses a dotenv file.
func Load(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// FromEnviron converts os.Environ-style "KEY=value" entries into a map.
// Entries without "=" are skipped; later entries win.
func FromEnviron(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		m[key] = value
	}
	return m
}

// Merge combines sources left to right; later sources win.
func Merge(sources ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, src := range sources {
		for k, v := range src {
			out[k] = v
		}
	}
	return out
}

// Option configures a DotEnv.
type Option func(*DotEnv)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *DotEnv) { e.logger = l }
}

// DotEnv is a typed view over one raw configuration. It is not safe for
// concurrent mutation.
type DotEnv struct {
	schema *schema.Schema
	raw    map[string]string
	values map[string]any
	logger zerolog.Logger
}

// New applies s to raw. A nil schema keeps every value as a string.
func New(raw map[string]string, s *schema.Schema, opts ...Option) (*DotEnv, error) {
	e := &DotEnv{
		raw:    make(map[string]string, len(raw)),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	for k, v := range raw {
		e.raw[k] = v
	}

	if s == nil {
		var err error
		if s, err = schema.New(nil); err != nil {
			return nil, err
		}
	}
	if err := e.Apply(s); err != nil {
		return nil, err
	}
	return e, nil
}

// Open loads a dotenv file and applies s.
func Open(path string, s *schema.Schema, opts ...Option) (*DotEnv, error) {
	raw, err := Load(path)
	if err != nil {
		return nil, err
	}
	return New(raw, s, opts...)
}

// Apply replaces the schema and recomputes every value from the raw
// configuration. On error the previous values are kept.
func (e *DotEnv) Apply(s *schema.Schema) error {
	values, err := s.Apply(e.raw)
	if err != nil {
		return err
	}

	if e.values != nil {
		e.Close()
	}
	e.schema = s
	e.values = values

	e.logger.Debug().
		Int("keys", len(values)).
		Int("fields", s.Len()).
		Msg("env applied")
	return nil
}

// Schema returns the applied schema.
func (e *DotEnv) Schema() *schema.Schema {
	return e.schema
}

// Field returns the normalized descriptor of a schema field.
func (e *DotEnv) Field(name string) (*schema.Descriptor, bool) {
	return e.schema.Field(name)
}

// Get returns the value of key, reading through destruct cells.
func (e *DotEnv) Get(key string) (any, error) {
	v, ok := e.values[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	if c, ok := v.(*destruct.Cell); ok {
		return c.Read()
	}
	return v, nil
}

// Value is Get without the error; missing and unreadable keys are nil.
func (e *DotEnv) Value(key string) any {
	v, err := e.Get(key)
	if err != nil {
		return nil
	}
	return v
}

// GetString returns key in its canonical string form.
func (e *DotEnv) GetString(key string) (string, error) {
	v, err := e.Get(key)
	if err != nil {
		return "", err
	}
	return e.uncast(key, v)
}

// Has reports whether key is present.
func (e *DotEnv) Has(key string) bool {
	_, ok := e.values[key]
	return ok
}

// Len returns the number of keys.
func (e *DotEnv) Len() int {
	return len(e.values)
}

// Keys returns schema fields in declaration order, then the remaining keys
// sorted.
func (e *DotEnv) Keys() []string {
	keys := make([]string, 0, len(e.values))
	seen := make(map[string]bool, len(e.values))
	for _, name := range e.schema.Names() {
		if _, ok := e.values[name]; ok {
			keys = append(keys, name)
			seen[name] = true
		}
	}

	var rest []string
	for k := range e.values {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// Set stores value under key. Keys holding a destruct cell update the
// cell, which fails once it has been destroyed.
func (e *DotEnv) Set(key string, value any) error {
	if c, ok := e.values[key].(*destruct.Cell); ok {
		if _, replacing := value.(*destruct.Cell); !replacing {
			return c.SetValue(value)
		}
		c.Close()
	}
	e.values[key] = value
	return nil
}

// Map replaces every value with fn(key, value), in Keys order. Values are
// resolved before fn sees them. The first error stops the walk.
func (e *DotEnv) Map(fn func(key string, value any) (any, error)) error {
	for _, key := range e.Keys() {
		v, err := e.resolved(key)
		if err != nil {
			return err
		}
		out, err := fn(key, v)
		if err != nil {
			return fmt.Errorf("map %s: %w", key, err)
		}
		if err := e.Set(key, out); err != nil {
			return err
		}
	}
	return nil
}

// Raw returns a copy of the original string values.
func (e *DotEnv) Raw() map[string]string {
	out := make(map[string]string, len(e.raw))
	for k, v := range e.raw {
		out[k] = v
	}
	return out
}

// Resolved returns a copy of every value with destruct cells read.
// Destroyed values whose replacement fails are nil.
func (e *DotEnv) Resolved() (map[string]any, error) {
	out := make(map[string]any, len(e.values))
	for k := range e.values {
		v, err := e.resolved(k)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// Filter returns the keys matching pattern (a glob or *regexp.Regexp), in
// Keys order.
func (e *DotEnv) Filter(pattern any) ([]string, error) {
	return convention.Filter(e.Keys(), pattern)
}

// Glob applies spec to every key matching pattern, adding the matches to
// the schema. Either every match is applied or nothing changes.
func (e *DotEnv) Glob(pattern any, spec any) ([]string, error) {
	return e.schema.Glob(pattern, spec, e.raw, e.values)
}

// ToTree nests resolved values by splitting keys on sep. rename is applied
// to each path segment when non-nil.
func (e *DotEnv) ToTree(sep string, rename func(string) string) (map[string]any, error) {
	flat, err := e.Resolved()
	if err != nil {
		return nil, err
	}
	return convention.Tree(flat, sep, rename)
}

// Entries returns the export entries in Keys order.
func (e *DotEnv) Entries() ([]formatter.Entry, error) {
	keys := e.Keys()
	entries := make([]formatter.Entry, 0, len(keys))
	for _, key := range keys {
		v, err := e.resolved(key)
		if err != nil {
			return nil, err
		}
		s, err := e.uncast(key, v)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", key, err)
		}

		entry := formatter.Entry{Key: key, Value: s, Typed: v}
		if d, ok := e.schema.Field(key); ok {
			entry.Type = d.Type
			entry.Description = d.Description()
			entry.Help = d.Help
			entry.Sensitive = d.Destruct != nil
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Export writes every key with the named formatter ("env", "yaml", "json",
// "table").
func (e *DotEnv) Export(w io.Writer, format string, opts formatter.FormatOptions) error {
	entries, err := e.Entries()
	if err != nil {
		return err
	}
	return formatter.Write(w, format, entries, opts)
}

// Close stops the background timers of every destruct cell. Values are
// left intact.
func (e *DotEnv) Close() {
	for _, v := range e.values {
		if c, ok := v.(*destruct.Cell); ok {
			c.Close()
		}
	}
}

// resolved reads key, treating destroyed values as nil.
func (e *DotEnv) resolved(key string) (any, error) {
	v, err := e.Get(key)
	if errors.Is(err, destruct.ErrDestroyed) {
		return nil, nil
	}
	return v, err
}

func (e *DotEnv) uncast(key string, v any) (string, error) {
	if d, ok := e.schema.Field(key); ok {
		return d.UncastValue(v)
	}
	if v == nil {
		return "", nil
	}
	return fmt.Sprint(v), nil
}
