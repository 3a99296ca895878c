package schema

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry is a catalog of named types.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*Type
}

// NewRegistry creates a registry preloaded with the builtin types.
func NewRegistry() *Registry {
	r := &Registry{types: make(map[string]*Type)}
	for _, t := range builtinTypes() {
		if err := r.Register(t); err != nil {
			panic(fmt.Sprintf("schema: builtin type %q: %v", t.Name, err))
		}
	}
	return r
}

// DefaultRegistry is the shared registry used when none is supplied.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry()
}

// Default returns DefaultRegistry.
func Default() *Registry {
	return DefaultRegistry
}

// Register adds a type. Names are case-insensitive and must be unique.
// References in Cast/Validate must point at a registered type whose own
// function is inline.
func (r *Registry) Register(t *Type) error {
	if t == nil || strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("type name is required")
	}
	name := strings.ToLower(t.Name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[name]; exists {
		return fmt.Errorf("type %q already registered", name)
	}

	if t.Cast.Ref != "" {
		if _, err := r.castLocked(t.Cast.Ref); err != nil {
			return fmt.Errorf("type %q cast: %w", name, err)
		}
	}
	if t.Validate.Ref != "" {
		if _, err := r.validateLocked(t.Validate.Ref); err != nil {
			return fmt.Errorf("type %q validate: %w", name, err)
		}
	}

	if t.Name != name {
		c := *t
		c.Name = name
		t = &c
	}
	r.types[name] = t
	return nil
}

// Resolve returns the type registered under name.
func (r *Registry) Resolve(name string) (*Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.types[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	return t, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, err := r.Resolve(name)
	return err == nil
}

// Names returns all registered type names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveCast returns the function behind c, following a reference one hop.
func (r *Registry) ResolveCast(c Cast) (CastFunc, error) {
	if c.Fn != nil {
		return c.Fn, nil
	}
	if c.Ref == "" {
		return nil, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.castLocked(c.Ref)
}

// ResolveValidate returns the function behind v, following a reference one hop.
func (r *Registry) ResolveValidate(v Validate) (ValidateFunc, error) {
	if v.Fn != nil {
		return v.Fn, nil
	}
	if v.Ref == "" {
		return nil, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.validateLocked(v.Ref)
}

func (r *Registry) castLocked(ref string) (CastFunc, error) {
	target, ok := r.types[strings.ToLower(ref)]
	if !ok {
		return nil, fmt.Errorf("cast %w: %q", ErrUnknownType, ref)
	}
	if target.Cast.Ref != "" {
		return nil, fmt.Errorf("cast %q -> %q: %w", ref, target.Cast.Ref, ErrPointerChain)
	}
	if target.Cast.Fn == nil {
		return nil, fmt.Errorf("type %q has no cast", ref)
	}
	return target.Cast.Fn, nil
}

func (r *Registry) validateLocked(ref string) (ValidateFunc, error) {
	target, ok := r.types[strings.ToLower(ref)]
	if !ok {
		return nil, fmt.Errorf("validate %w: %q", ErrUnknownType, ref)
	}
	if target.Validate.Ref != "" {
		return nil, fmt.Errorf("validate %q -> %q: %w", ref, target.Validate.Ref, ErrPointerChain)
	}
	if target.Validate.Fn == nil {
		return nil, fmt.Errorf("type %q has no validator", ref)
	}
	return target.Validate.Fn, nil
}

// builtinTypes lists the builtin types in registration order. Types that
// reference others come after their targets.
func builtinTypes() []*Type {
	return []*Type{
		anyType(),
		stringType(),
		numberType(),
		floatType(),
		percentType(),
		booleanType(),
		arrayType(),
		setType(),
		dateType(),
		durationType(),
		emailType(),
		emailsType(),
		keyvalsType(),
		objectType(),
		mongoURIType(),
		regexpType(),
		styleType(),
		uriType(),
		fileType(),
	}
}
