package compute

import (
	"sync"

	"github.com/gogpu/voxview/shader"
)

// Bindings names the buffers bound to a dispatch. Input and Output are
// required; Constants is optional.
type Bindings struct {
	Input     *Buffer
	Constants *Buffer
	Output    *Buffer
}

// Backend executes compute dispatches for one target.
//
// Dispatch reports success as a bool. A failed dispatch leaves the
// output buffer's previous contents intact; the device error is logged,
// not returned, so a lost device degrades rendering without tearing
// down the registry.
type Backend interface {
	// Name returns the backend identifier used for registration.
	Name() string

	// Init acquires the backend's execution resources. Init is called
	// once before the first dispatch.
	Init() error

	// Close releases the backend's resources.
	Close()

	// Compile prepares a kernel for this backend's target, filling in
	// the target-specific fields of k.
	Compile(k *shader.Kernel) error

	// Dispatch runs the kernel over the given workgroup counts and
	// blocks until the results are observable in b.Output.
	Dispatch(k *shader.Kernel, groups [3]uint32, b Bindings) bool
}

var (
	backendsMu sync.RWMutex
	backends   = make(map[string]Backend)
)

// backendPriority orders Default's preference. GPU first, CPU fallback.
var backendPriority = []string{"wgpu", "cpu"}

// Register makes a backend available by name. Backends call Register
// from their init functions.
func Register(b Backend) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[b.Name()] = b
}

// Get returns a registered backend by name.
func Get(name string) (Backend, error) {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	b, ok := backends[name]
	if !ok {
		return nil, ErrBackendNotAvailable
	}
	return b, nil
}

// Default returns the preferred available backend: the GPU backend when
// it is registered and initializes, otherwise the CPU backend.
func Default() (Backend, error) {
	for _, name := range backendPriority {
		b, err := Get(name)
		if err != nil {
			continue
		}
		if err := b.Init(); err != nil {
			slogger().Warn("backend init failed", "backend", name, "error", err)
			continue
		}
		return b, nil
	}
	return nil, ErrBackendNotAvailable
}

// Backends returns the names of all registered backends.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	return names
}
