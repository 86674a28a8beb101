// Package registry implements the shared "construct component from
// {ready-made instance | recognized name + settings}" resolver used for
// calculators, optimizers and convergence criteria. Keeping one generic
// registry keeps the set of valid names and the error handling in one place.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/siegfriedkaidisch/ROMIS/internal/errors"
)

// Settings is a free-form settings mapping for a named component, typically
// decoded from the YAML job file.
type Settings map[string]interface{}

// Float reads a float setting, accepting YAML's int and float decodings.
// Returns def when the key is absent.
func (s Settings) Float(key string, def float64) (float64, error) {
	v, ok := s[key]
	if !ok {
		return def, nil
	}
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	default:
		return 0, errors.Configuration("setting %q: expected number, got %T", key, v)
	}
}

// Int reads an integer setting. Returns def when the key is absent.
func (s Settings) Int(key string, def int) (int, error) {
	v, ok := s[key]
	if !ok {
		return def, nil
	}
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x == float64(int(x)) {
			return int(x), nil
		}
		return 0, errors.Configuration("setting %q: expected integer, got %v", key, v)
	default:
		return 0, errors.Configuration("setting %q: expected integer, got %T", key, v)
	}
}

// String reads a string setting. Returns def when the key is absent.
func (s Settings) String(key string, def string) (string, error) {
	v, ok := s[key]
	if !ok {
		return def, nil
	}
	x, ok := v.(string)
	if !ok {
		return "", errors.Configuration("setting %q: expected string, got %T", key, v)
	}
	return x, nil
}

// Bool reads a boolean setting. Returns def when the key is absent.
func (s Settings) Bool(key string, def bool) (bool, error) {
	v, ok := s[key]
	if !ok {
		return def, nil
	}
	x, ok := v.(bool)
	if !ok {
		return def, errors.Configuration("setting %q: expected bool, got %T", key, v)
	}
	return x, nil
}

// Factory builds a component from a settings mapping.
type Factory[T any] func(settings Settings) (T, error)

// Registry maps recognized component names to their factories. Names are
// matched case-insensitively. The zero value is not usable; construct with
// New.
type Registry[T any] struct {
	kind      string
	factories map[string]Factory[T]
}

// New creates a registry for one kind of component. The kind appears in
// error messages ("calculator", "optimizer", "convergence criterion").
func New[T any](kind string) *Registry[T] {
	return &Registry[T]{
		kind:      kind,
		factories: make(map[string]Factory[T]),
	}
}

// Register adds a factory under a recognized name. Registering a duplicate
// name panics; registration happens once at package init time.
func (r *Registry[T]) Register(name string, factory Factory[T]) {
	key := strings.ToLower(name)
	if _, dup := r.factories[key]; dup {
		panic(fmt.Sprintf("registry: duplicate %s name %q", r.kind, name))
	}
	r.factories[key] = factory
}

// Resolve constructs the component registered under name with the given
// settings. An unrecognized name yields a configuration error before any
// expensive work happens.
func (r *Registry[T]) Resolve(name string, settings Settings) (T, error) {
	factory, ok := r.factories[strings.ToLower(name)]
	if !ok {
		var zero T
		return zero, errors.Configuration("unknown %s %q, recognized names: %s",
			r.kind, name, strings.Join(r.Names(), ", "))
	}
	return factory(settings)
}

// Names returns the recognized names in sorted order.
func (r *Registry[T]) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
