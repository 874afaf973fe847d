// Package registry implements the process-wide Registry component: a
// two-level mapping from backend to kernel name to factory, populated
// once at process start and read-mostly thereafter.
package registry

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/datatalking/mldb"
)

// Factory materializes a fresh KernelSpec for a device context, binding
// it to that context's compiled entry point. The ctx parameter is
// intentionally typed as `any`: the core does not know, or need to know,
// what a back-end's device context looks like.
type Factory func(ctx any) (*mldb.KernelSpec, error)

// Registry is a process-wide, two-level (backend -> kernel name ->
// Factory) table, guarded by a readers-writer lock: concurrent lookup
// under read locks, insertion under an exclusive lock.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]map[string]Factory
	logger   zerolog.Logger
}

// New returns an empty Registry. Most callers should use the package-level
// Default registry instead, populated once at process start, unless they
// specifically need an isolated table (for example, in tests).
func New() *Registry {
	return &Registry{
		backends: make(map[string]map[string]Factory),
		logger:   zerolog.Nop(),
	}
}

// WithLogger attaches a logger used for Debug/Warn diagnostics on
// register/lookup. It returns the receiver for chaining.
func (r *Registry) WithLogger(logger zerolog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register inserts factory under (backend, name). Duplicate (backend,
// name) pairs fail with AlreadyRegistered and leave the existing mapping
// intact.
func (r *Registry) Register(backend, name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kernels, ok := r.backends[backend]
	if !ok {
		kernels = make(map[string]Factory)
		r.backends[backend] = kernels
	}
	if _, exists := kernels[name]; exists {
		r.logger.Warn().Str("backend", backend).Str("kernel", name).Msg("duplicate kernel registration rejected")
		return &mldb.AlreadyRegistered{Backend: backend, Name: name}
	}
	kernels[name] = factory
	r.logger.Debug().Str("backend", backend).Str("kernel", name).Msg("kernel registered")
	return nil
}

// Lookup returns the factory registered for (backend, name).
func (r *Registry) Lookup(backend, name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kernels, ok := r.backends[backend]
	if !ok {
		return nil, false
	}
	factory, ok := kernels[name]
	r.logger.Debug().Str("backend", backend).Str("kernel", name).Bool("found", ok).Msg("kernel lookup")
	return factory, ok
}

// Backends lists every backend with at least one registered kernel.
func (r *Registry) Backends() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	return names
}

// Kernels lists the kernel names registered for backend.
func (r *Registry) Kernels(backend string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kernels, ok := r.backends[backend]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(kernels))
	for name := range kernels {
		names = append(names, name)
	}
	return names
}

// Default is the process-wide Registry back-ends register themselves
// into from an init() function, a static, initialized-before-use global
// table.
var Default = New()
