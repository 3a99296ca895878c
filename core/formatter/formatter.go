// Package formatter provides a pluggable output formatting system.
// Formatters render resolved environment entries as dotenv text, YAML,
// JSON or an aligned table.
package formatter

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"sync"

	"github.com/artpar/envguard/core/convention"
)

// Entry is one variable ready for output.
type Entry struct {
	// Key is the variable name.
	Key string

	// Value is the canonical string form, as produced by the type's uncast.
	Value string

	// Typed is the resolved typed value, used by structured formats.
	Typed any

	// Type is the registry type name ("" for undeclared keys).
	Type string

	// Description is the type's describe string.
	Description string

	// Help is the field's help text.
	Help string

	// Sensitive marks values that self-destruct.
	Sensitive bool
}

// FormatOptions configures formatting behavior.
type FormatOptions struct {
	// HeaderPattern captures the group header from each key (env format).
	// Nil uses DefaultHeaderPattern.
	HeaderPattern *regexp.Regexp

	// NoHeader disables group headers and table header rows.
	NoHeader bool

	// NoHelp drops inline help comments.
	NoHelp bool

	// Redact replaces sensitive values with RedactedValue.
	Redact bool

	// TreeSeparator nests keys on this separator for structured formats
	// ("DB__HOST" becomes db.host with "__"). Empty keeps keys flat.
	TreeSeparator string

	// KeyCase renames tree segments, e.g. convention.CamelCase.
	KeyCase func(string) string

	// Compact minimizes whitespace (for json).
	Compact bool

	// MaxWidth truncates long table values (0 = no limit).
	MaxWidth int
}

// DefaultHeaderPattern groups keys by their first underscore-separated word.
var DefaultHeaderPattern = regexp.MustCompile(`^([A-Z0-9]+)_`)

// RedactedValue is shown in place of sensitive values when redacting.
const RedactedValue = "********"

// Formatter converts entries to a specific output format.
type Formatter interface {
	// Name returns the formatter name (e.g., "env", "json", "yaml").
	Name() string

	// Description returns a human-readable description.
	Description() string

	// Format writes entries in order.
	Format(w io.Writer, entries []Entry, opts FormatOptions) error
}

// Registry manages registered formatters.
type Registry struct {
	mu         sync.RWMutex
	formatters map[string]Formatter
	defaultFmt string
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		formatters: make(map[string]Formatter),
		defaultFmt: "env",
	}
}

// Register adds a formatter to the registry.
func (r *Registry) Register(f Formatter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[f.Name()]; exists {
		return fmt.Errorf("formatter %q already registered", f.Name())
	}

	r.formatters[f.Name()] = f
	return nil
}

// Get returns a formatter by name.
func (r *Registry) Get(name string) (Formatter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.formatters[name]
	return f, ok
}

// Default returns the default formatter.
func (r *Registry) Default() Formatter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.formatters[r.defaultFmt]
}

// SetDefault sets the default formatter.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[name]; !exists {
		return fmt.Errorf("formatter %q not registered", name)
	}

	r.defaultFmt = name
	return nil
}

// List returns all registered formatter names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter to the default registry.
func Register(f Formatter) error {
	return DefaultRegistry.Register(f)
}

// Get returns a formatter from the default registry.
func Get(name string) (Formatter, bool) {
	return DefaultRegistry.Get(name)
}

// Default returns the default formatter from the default registry.
func Default() Formatter {
	return DefaultRegistry.Default()
}

// List returns all formatter names from the default registry.
func List() []string {
	return DefaultRegistry.List()
}

// Write formats entries with the named formatter from the default registry.
func Write(w io.Writer, name string, entries []Entry, opts FormatOptions) error {
	f, ok := Get(name)
	if !ok {
		return fmt.Errorf("unknown format %q (available: %v)", name, List())
	}
	return f.Format(w, entries, opts)
}

// display returns the string shown for e under opts.
func display(e Entry, opts FormatOptions) string {
	if opts.Redact && e.Sensitive && e.Value != "" {
		return RedactedValue
	}
	return e.Value
}

// structured converts entries into a map for the YAML and JSON formats,
// nesting keys when a tree separator is set.
func structured(entries []Entry, opts FormatOptions) (map[string]any, error) {
	flat := make(map[string]any, len(entries))
	for _, e := range entries {
		if opts.Redact && e.Sensitive && e.Value != "" {
			flat[e.Key] = RedactedValue
			continue
		}
		flat[e.Key] = plain(e.Typed, e.Value)
	}

	if opts.TreeSeparator == "" {
		return flat, nil
	}
	return convention.Tree(flat, opts.TreeSeparator, opts.KeyCase)
}

// plain keeps values that encode naturally and falls back to the canonical
// string for everything else (durations, URLs, regexps, dates).
func plain(v any, canonical string) any {
	switch x := v.(type) {
	case nil:
		if canonical != "" {
			return canonical
		}
		return nil
	case string, bool, float64, int, int64:
		return x
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = plain(item, fmt.Sprint(item))
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = plain(item, fmt.Sprint(item))
		}
		return out
	default:
		return canonical
	}
}
