package shader

import "sync"

// The CPU kernel registry maps entry point names to Go implementations.
// Backends and applications register kernels from init functions; the
// compiler's CPU target resolves entry points here.

var (
	registryMu sync.RWMutex
	kernels    = make(map[string]registeredKernel)
)

type registeredKernel struct {
	fn     KernelFunc
	layout KernelLayout
}

// RegisterKernel registers a CPU implementation for an entry point.
// Registering the same entry point again replaces the previous function.
func RegisterKernel(entryPoint string, layout KernelLayout, fn KernelFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	kernels[entryPoint] = registeredKernel{fn: fn, layout: layout}
}

// UnregisterKernel removes a CPU kernel. Useful for testing.
func UnregisterKernel(entryPoint string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(kernels, entryPoint)
}

// LookupKernel returns the registered function and layout for an entry
// point.
func LookupKernel(entryPoint string) (KernelFunc, KernelLayout, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	k, ok := kernels[entryPoint]
	return k.fn, k.layout, ok
}

// RegisteredKernels returns the names of all registered entry points.
func RegisteredKernels() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(kernels))
	for name := range kernels {
		names = append(names, name)
	}
	return names
}
