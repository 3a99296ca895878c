package schema

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/artpar/envguard/core/convention"
	"github.com/artpar/envguard/core/destruct"
	"github.com/artpar/envguard/ports"
	"github.com/rs/zerolog"
)

// Entry is one named field spec, in declaration order.
type Entry struct {
	Name string
	Spec any
}

// F is shorthand for an Entry.
func F(name string, spec any) Entry {
	return Entry{Name: name, Spec: spec}
}

// Observer is notified of per-field apply outcomes.
type Observer interface {
	FieldApplied(d *Descriptor)
	FieldFailed(name string, err error)
}

// Option configures a Schema.
type Option func(*Schema)

// WithRegistry resolves types against r instead of DefaultRegistry.
func WithRegistry(r *Registry) Option {
	return func(s *Schema) { s.registry = r }
}

// WithLogger sets the logger used for apply and destruct events.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Schema) { s.logger = l }
}

// WithClock sets the clock handed to destruct cells.
func WithClock(c ports.Clock) Option {
	return func(s *Schema) { s.clock = c }
}

// WithIDGenerator sets the generator for destruct cell IDs.
func WithIDGenerator(g ports.IDGenerator) Option {
	return func(s *Schema) { s.ids = g }
}

// WithObserver registers an apply observer.
func WithObserver(o Observer) Option {
	return func(s *Schema) { s.observer = o }
}

// WithDestroyHook is called whenever a cell created by this schema is destroyed.
func WithDestroyHook(fn func(*destruct.Cell, destruct.Trigger)) Option {
	return func(s *Schema) { s.onDestroy = fn }
}

// WithPollInterval enables background destruction at interval for every
// destruct field that does not set its own interval.
func WithPollInterval(interval time.Duration) Option {
	return func(s *Schema) { s.interval = interval }
}

// Schema is an ordered set of normalized fields.
type Schema struct {
	registry *Registry
	fields   map[string]*Descriptor
	order    []string

	logger    zerolog.Logger
	clock     ports.Clock
	ids       ports.IDGenerator
	interval  time.Duration
	observer  Observer
	onDestroy func(*destruct.Cell, destruct.Trigger)
}

// New normalizes entries into a schema. Duplicate names are an error.
func New(entries []Entry, opts ...Option) (*Schema, error) {
	s := &Schema{
		registry: DefaultRegistry,
		fields:   make(map[string]*Descriptor, len(entries)),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, e := range entries {
		if _, exists := s.fields[e.Name]; exists {
			return nil, fmt.Errorf("field %q declared twice", e.Name)
		}
		if err := s.Add(e.Name, e.Spec); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// FromMap builds a schema from an unordered map; fields are sorted by name.
func FromMap(m map[string]any, opts ...Option) (*Schema, error) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		entries = append(entries, F(name, m[name]))
	}
	return New(entries, opts...)
}

// Add normalizes spec and adds or replaces the field. Replaced fields keep
// their position.
func (s *Schema) Add(name string, spec any) error {
	d, err := s.registry.Normalize(name, spec)
	if err != nil {
		return err
	}
	s.put(d)
	return nil
}

func (s *Schema) put(d *Descriptor) {
	if _, exists := s.fields[d.Name]; !exists {
		s.order = append(s.order, d.Name)
	}
	s.fields[d.Name] = d
}

// Names returns field names in declaration order.
func (s *Schema) Names() []string {
	return append([]string(nil), s.order...)
}

// Len returns the number of fields.
func (s *Schema) Len() int {
	return len(s.order)
}

// Has reports whether name is a schema field.
func (s *Schema) Has(name string) bool {
	_, ok := s.fields[name]
	return ok
}

// Field returns a copy of the named field's descriptor.
func (s *Schema) Field(name string) (*Descriptor, bool) {
	d, ok := s.fields[name]
	if !ok {
		return nil, false
	}
	return d.clone(), true
}

// Registry returns the registry the schema resolves types against.
func (s *Schema) Registry() *Registry {
	return s.registry
}

// ApplyField applies the named field to a raw value that is present, even
// if empty. Use ApplyFrom when the key may be missing.
func (s *Schema) ApplyField(name, raw string) (any, error) {
	d, ok := s.fields[name]
	if !ok {
		return nil, &FieldError{Field: name, Err: ErrUnknownField}
	}
	return s.apply(d, raw, true)
}

// ApplyFrom applies the named field to its entry in raw. A missing key is
// absent; an empty one is present.
func (s *Schema) ApplyFrom(name string, raw map[string]string) (any, error) {
	d, ok := s.fields[name]
	if !ok {
		return nil, &FieldError{Field: name, Err: ErrUnknownField}
	}
	v, present := raw[name]
	return s.apply(d, v, present)
}

// Apply runs every field against raw in declaration order. The first
// failing field aborts the call and no partial result is returned. Keys in
// raw that the schema does not declare are carried through as strings.
func (s *Schema) Apply(raw map[string]string) (map[string]any, error) {
	out := make(map[string]any, len(raw)+len(s.order))

	for _, name := range s.order {
		rv, present := raw[name]
		v, err := s.apply(s.fields[name], rv, present)
		if err != nil {
			closeCells(out)
			return nil, err
		}
		out[name] = v
	}

	for k, v := range raw {
		if _, declared := s.fields[k]; !declared {
			out[k] = v
		}
	}

	s.logger.Debug().Int("fields", len(s.order)).Int("keys", len(out)).Msg("schema applied")
	return out, nil
}

// Glob applies spec to every key of raw or state matching pattern (a glob
// string or *regexp.Regexp). Matching fields are added to the schema and
// their values written into state. Either every match is applied or
// nothing changes. It returns the matched keys, sorted.
func (s *Schema) Glob(pattern any, spec any, raw map[string]string, state map[string]any) ([]string, error) {
	if state == nil {
		return nil, errors.New("glob: nil state")
	}
	m, err := convention.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob: %w", err)
	}

	seen := make(map[string]bool, len(raw)+len(state))
	var matched []string
	for _, keys := range [][]string{mapKeys(raw), mapKeys(state)} {
		for _, k := range keys {
			if !seen[k] && m.Match(k) {
				seen[k] = true
				matched = append(matched, k)
			}
		}
	}
	sort.Strings(matched)

	descs := make([]*Descriptor, 0, len(matched))
	values := make(map[string]any, len(matched))
	for _, k := range matched {
		d, err := s.registry.Normalize(k, spec)
		if err != nil {
			closeCells(values)
			return nil, err
		}

		rv, present := raw[k]
		if !present {
			rv, present, err = s.stateText(k, state[k])
			if err != nil {
				closeCells(values)
				return nil, &FieldError{Field: k, Err: err}
			}
		}
		v, err := s.apply(d, rv, present)
		if err != nil {
			closeCells(values)
			return nil, err
		}
		descs = append(descs, d)
		values[k] = v
	}

	for _, d := range descs {
		if old, ok := state[d.Name].(*destruct.Cell); ok && old != values[d.Name] {
			old.Close()
		}
		state[d.Name] = values[d.Name]
		s.put(d)
	}
	return matched, nil
}

// stateText renders a value already held in state back to raw text so it
// can be cast again. Destroyed cells and nil count as absent.
func (s *Schema) stateText(key string, v any) (string, bool, error) {
	if c, ok := v.(*destruct.Cell); ok {
		var err error
		v, err = c.Read()
		if errors.Is(err, destruct.ErrDestroyed) {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
	}
	if v == nil {
		return "", false, nil
	}
	if d, ok := s.fields[key]; ok {
		text, err := d.UncastValue(v)
		return text, true, err
	}
	if text, ok := v.(string); ok {
		return text, true, nil
	}
	return fmt.Sprint(v), true, nil
}

// apply runs one field through default, required, cast, validate and
// destruct, in that order. present is false when the key is missing from
// the source. Errors come back as *FieldError.
func (s *Schema) apply(d *Descriptor, raw string, present bool) (any, error) {
	v, err := s.applyValue(d, raw, present)
	if err != nil {
		err = &FieldError{Field: d.Name, Err: err}
		s.logger.Debug().Str("field", d.Name).Str("type", d.Type).Str("kind", Kind(err)).Msg("field failed")
		if s.observer != nil {
			s.observer.FieldFailed(d.Name, err)
		}
		return nil, err
	}
	s.logger.Debug().Str("field", d.Name).Str("type", d.Type).Msg("field applied")
	if s.observer != nil {
		s.observer.FieldApplied(d)
	}
	return v, nil
}

func (s *Schema) applyValue(d *Descriptor, raw string, present bool) (any, error) {
	if d.DefaultRaw != nil {
		return evalWith(d.DefaultRaw, d), nil
	}

	value := raw
	if value == "" && d.Default != nil {
		def := d.EvalDefault()
		str, isString := def.(string)
		if !isString {
			if def == nil {
				return nil, nil
			}
			// Pre-typed defaults skip cast and validate.
			return s.wrap(d, def)
		}
		value, present = str, true
	}

	if value == "" {
		if !d.Required {
			return nil, nil
		}
		if !present {
			return nil, &RequiredError{}
		}
	}

	reg := d.registryOrDefault()

	var typed any = value
	cast, err := reg.ResolveCast(d.Cast)
	if err != nil {
		return nil, err
	}
	if cast != nil {
		typed, err = cast(value, d)
		if err != nil {
			return nil, &CastError{Type: d.Type, Err: err}
		}
	}

	if typed == nil && d.Required {
		return nil, &RequiredError{}
	}

	validate, err := reg.ResolveValidate(d.Validate)
	if err != nil {
		return nil, err
	}
	if validate != nil {
		if err := validate(typed, d); err != nil {
			return nil, &ValidationError{Type: d.Type, Err: err}
		}
	}

	return s.wrap(d, typed)
}

// wrap returns v, or a destruct cell holding v when the field self-destructs.
func (s *Schema) wrap(d *Descriptor, v any) (any, error) {
	if d.Destruct == nil {
		return v, nil
	}

	opts := *d.Destruct
	opts.Name = d.Name
	if opts.Clock == nil {
		opts.Clock = s.clock
	}
	if opts.IDs == nil {
		opts.IDs = s.ids
	}
	if opts.Interval == 0 && s.interval > 0 {
		opts.Interval = s.interval
	}
	opts.Logger = s.logger
	if opts.OnDestroy == nil {
		opts.OnDestroy = s.onDestroy
	}

	cell, err := destruct.New(v, opts)
	if err != nil {
		return nil, fmt.Errorf("destruct: %w", err)
	}
	return cell, nil
}

// ApplyField normalizes spec against r and applies it to raw.
func (r *Registry) ApplyField(name, raw string, spec any) (any, error) {
	d, err := r.Normalize(name, spec)
	if err != nil {
		return nil, &FieldError{Field: name, Err: err}
	}
	s := &Schema{registry: r, logger: zerolog.Nop()}
	return s.apply(d, raw, true)
}

// ApplyField applies a single field spec using DefaultRegistry.
func ApplyField(name, raw string, spec any) (any, error) {
	return DefaultRegistry.ApplyField(name, raw, spec)
}

// evalWith calls v if it is a supported function, passing d.
func evalWith(v any, d *Descriptor) any {
	switch fn := v.(type) {
	case func(*Descriptor) any:
		return fn(d)
	case func() any:
		return fn()
	default:
		return v
	}
}

func closeCells(m map[string]any) {
	for _, v := range m {
		if c, ok := v.(*destruct.Cell); ok {
			c.Close()
		}
	}
}

func mapKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
