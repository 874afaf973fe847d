// Package host implements the reference host back-end: a synchronous,
// in-process back-end whose marshalling machinery defines the semantics
// every other back-end must preserve. Submit executes the kernel body
// before returning, so the Event it hands back is already terminal —
// ordering is degenerate for this back-end.
package host

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/datatalking/mldb"
	"github.com/datatalking/mldb/registry"
)

// BackendName is the stable string the host back-end advertises itself
// as in the Registry and in BackendMismatch errors.
const BackendName = "host"

// Options configures a Context, built with a functional-option-list
// convention: a list of With* values applied in order.
type Options struct {
	workers   int
	profiling bool
	logger    zerolog.Logger
	registry  *registry.Registry
}

// Option configures a Context at construction time.
type Option func(*Options)

// WithWorkers bounds how many grid work items a Queue's Submit may execute
// concurrently. The default is 1, a single-threaded, cooperative host
// back-end; raising it lets independent work items of a
// kernel body run in parallel while Submit still blocks until they all
// finish, so the caller-visible contract (already-resolved Event by the
// time Submit returns) is unchanged.
func WithWorkers(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithProfiling enables timestamp collection on Events this Context's
// Queue produces.
func WithProfiling() Option {
	return func(o *Options) { o.profiling = true }
}

// WithLogger attaches a zerolog.Logger for lifecycle and dispatch
// diagnostics. The default is a disabled logger, so embedding
// applications opt into log output explicitly.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Options) { o.logger = logger }
}

// WithRegistry points the Context at a Registry other than
// registry.Default, for tests that want an isolated kernel table.
func WithRegistry(r *registry.Registry) Option {
	return func(o *Options) { o.registry = r }
}

// Context is the host back-end's device context: the buffer table backing
// MemoryHandles and the Registry this back-end resolves kernel factories
// against.
type Context struct {
	opts     Options
	bufferMu sync.Mutex
	buffers  map[uintptr]*buffer
	nextID   uint64
}

type buffer struct {
	data []byte
}

// NewContext returns a Context configured by opts.
func NewContext(opts ...Option) *Context {
	o := Options{
		workers:  1,
		logger:   zerolog.Nop(),
		registry: registry.Default,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Context{
		opts:    o,
		buffers: make(map[uintptr]*buffer),
	}
}

// AllocBuffer creates a fresh device-owned buffer of lengthBytes, zeroed,
// and returns its raw id for use with mldb.NewMemoryHandle.
func (c *Context) AllocBuffer(lengthBytes uint64) uintptr {
	c.bufferMu.Lock()
	defer c.bufferMu.Unlock()
	c.nextID++
	id := uintptr(c.nextID)
	c.buffers[id] = &buffer{data: make([]byte, lengthBytes)}
	return id
}

// bufferBytes returns the backing slice for id, or nil if unknown.
func (c *Context) bufferBytes(id uintptr) []byte {
	c.bufferMu.Lock()
	defer c.bufferMu.Unlock()
	b, ok := c.buffers[id]
	if !ok {
		return nil
	}
	return b.data
}

// FreeBuffer removes a buffer from the context's table. Back-ends call
// this once a MemoryHandle's reference count reaches zero.
func (c *Context) FreeBuffer(id uintptr) {
	c.bufferMu.Lock()
	defer c.bufferMu.Unlock()
	delete(c.buffers, id)
}

// BuildKernel resolves name's factory from the Context's Registry and
// materializes a fresh KernelSpec from it. The Context itself is passed
// as the factory's device-context argument; the host back-end's demo
// kernels ignore it, since building a KernelSpec here requires no
// device-specific compile step.
func (c *Context) BuildKernel(name string) (*mldb.KernelSpec, error) {
	factory, ok := c.opts.registry.Lookup(BackendName, name)
	if !ok {
		return nil, &mldb.UnknownIdentifier{Context: "host registry", Name: name}
	}
	return factory(c)
}

// Logger returns the Context's configured logger.
func (c *Context) Logger() zerolog.Logger { return c.opts.logger }

