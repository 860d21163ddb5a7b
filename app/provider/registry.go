package provider

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound marks an unresolvable provider name.
var ErrNotFound = errors.New("provider not found")

// Registry maps symbolic provider names to delivery implementations.
// Names are normalized to lower case since they originate from free-form
// event fields. Register everything at startup; the registry is read-only
// afterwards and safe for concurrent Resolve calls.
type Registry[T any] struct {
	providers map[string]T
}

// NewRegistry builds an empty provider registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{providers: make(map[string]T)}
}

// Register adds a named provider. Later registrations under the same name
// replace earlier ones.
func (r *Registry[T]) Register(name string, p T) {
	r.providers[normalize(name)] = p
}

// Resolve looks a provider up by name.
func (r *Registry[T]) Resolve(name string) (T, error) {
	p, ok := r.providers[normalize(name)]
	if !ok {
		var zero T
		return zero, fmt.Errorf("no implementation for provider %q: %w", name, ErrNotFound)
	}
	return p, nil
}

// Names lists the registered provider names, sorted.
func (r *Registry[T]) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
