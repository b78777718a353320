// Package notify fans engine events out to registered notification sinks.
package notify

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"facewatch/internal/core"
)

var (
	ErrSinkNotFound      = errors.New("sink not found")
	ErrSinkAlreadyExists = errors.New("sink already registered")
)

// Sink delivers events to one destination
type Sink interface {
	Name() string
	Notify(ctx context.Context, event core.Event) error
}

// Registry manages all registered sinks and implements core.Notifier by fanning out
type Registry struct {
	mu    sync.RWMutex
	sinks map[string]Sink
	kinds map[core.EventKind]bool // nil forwards every kind
}

// NewRegistry creates a new sink registry. With kinds given, only those event kinds
// are forwarded.
func NewRegistry(kinds ...core.EventKind) *Registry {
	r := &Registry{
		sinks: make(map[string]Sink),
	}
	if len(kinds) > 0 {
		r.kinds = make(map[core.EventKind]bool, len(kinds))
		for _, k := range kinds {
			r.kinds[k] = true
		}
	}
	return r
}

// Register adds a sink to the registry
func (r *Registry) Register(sink Sink) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := sink.Name()
	if _, exists := r.sinks[name]; exists {
		return fmt.Errorf("%w: %s", ErrSinkAlreadyExists, name)
	}

	r.sinks[name] = sink
	return nil
}

// Get retrieves a sink by name
func (r *Registry) Get(name string) (Sink, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sink, exists := r.sinks[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSinkNotFound, name)
	}

	return sink, nil
}

// List returns all registered sink names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.sinks))
	for name := range r.sinks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Unregister removes a sink from the registry
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sinks[name]; !exists {
		return fmt.Errorf("%w: %s", ErrSinkNotFound, name)
	}

	delete(r.sinks, name)
	return nil
}

// Notify delivers event to every sink. One failing sink does not stop the others.
func (r *Registry) Notify(ctx context.Context, event core.Event) error {
	if r.kinds != nil && !r.kinds[event.Kind] {
		return nil
	}

	r.mu.RLock()
	sinks := make([]Sink, 0, len(r.sinks))
	for _, s := range r.sinks {
		sinks = append(sinks, s)
	}
	r.mu.RUnlock()

	var errs []error
	for _, s := range sinks {
		if err := s.Notify(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

var _ core.Notifier = (*Registry)(nil)
