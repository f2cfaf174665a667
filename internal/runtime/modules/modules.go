// Package modules defines the unit-of-work contract between the router and
// user code: a stateless function or a stateful module with an explicit
// initialization step.
package modules

import (
	"context"
	"fmt"
	"sync"

	"github.com/funcstream/funcstream/internal/runtime/fscontext"
)

// Function is the stateless variant: one invocation per inbound message,
// data in, result out. It may block internally but returns a completed
// result or an error.
type Function func(ctx context.Context, fc *fscontext.Context, data map[string]any) (map[string]any, error)

// Module is the stateful variant. Init runs exactly once before any message
// is processed; a failure there is fatal and the router never starts
// consuming. Process is invoked once per inbound message and is never
// called concurrently for a single instance.
type Module interface {
	Init(fc *fscontext.Context) error
	Process(ctx context.Context, fc *fscontext.Context, data map[string]any) (map[string]any, error)
}

// AsModule adapts a stateless function to the Module interface.
func AsModule(fn Function) Module {
	return &funcModule{fn: fn}
}

type funcModule struct {
	fn Function
}

func (m *funcModule) Init(*fscontext.Context) error { return nil }

func (m *funcModule) Process(ctx context.Context, fc *fscontext.Context, data map[string]any) (map[string]any, error) {
	return m.fn(ctx, fc, data)
}

// Serialize wraps a module so at most one Process call is in flight at a
// time. Concurrent deliveries queue on the lock in arrival order. The
// router applies this to every module instead of trusting the author.
func Serialize(m Module) Module {
	if _, ok := m.(*serializedModule); ok {
		return m
	}
	return &serializedModule{inner: m}
}

type serializedModule struct {
	mu    sync.Mutex
	inner Module
}

func (s *serializedModule) Init(fc *fscontext.Context) error {
	return s.inner.Init(fc)
}

func (s *serializedModule) Process(ctx context.Context, fc *fscontext.Context, data map[string]any) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Process(ctx, fc, data)
}

// Factory produces a fresh module instance.
type Factory func() Module

// Registry maps module names to factories. The router resolves exactly one
// module from it at startup; an unknown name is fatal.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty module registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a module factory under the given name, replacing any
// previous registration.
func (r *Registry) Register(name string, factory Factory) {
	if name == "" {
		panic("funcstream: module name cannot be empty")
	}
	if factory == nil {
		panic("funcstream: module factory cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// RegisterFunction adds a stateless function under the given name.
func (r *Registry) RegisterFunction(name string, fn Function) {
	if fn == nil {
		panic("funcstream: function cannot be nil")
	}
	r.Register(name, func() Module { return AsModule(fn) })
}

// New instantiates the named module.
func (r *Registry) New(name string) (Module, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown module %q (registered: %v)", name, r.Names())
	}
	return factory(), nil
}

// Names returns the registered module names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}

// Has reports whether a module is registered under the given name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// DefaultRegistry is the process-wide module registry used by the root
// package helpers.
var DefaultRegistry = NewRegistry()
