// Package compute provides the memory buffer abstraction and the
// compute dispatch backends used by the editor core.
//
// A Buffer describes a contiguous block of typed elements that serves
// as a compute input or output. A Backend compiles a kernel for its
// execution target and runs synchronous dispatches against bound
// buffers. Backends register themselves in a package registry; the GPU
// backend (compute/wgpu) is preferred when available and the CPU
// backend is always present as a fallback.
package compute

import "errors"

// Package errors.
var (
	// ErrInvalidLayout is returned when a buffer's element count is zero
	// or the type size is inconsistent with the stride.
	ErrInvalidLayout = errors.New("compute: invalid buffer layout")

	// ErrNotMappable is returned when mapping a device-resident buffer
	// that has no host mirror.
	ErrNotMappable = errors.New("compute: buffer not mappable")

	// ErrAlreadyMapped is returned by a second map without an unmap.
	ErrAlreadyMapped = errors.New("compute: buffer already mapped")

	// ErrNotMapped is returned by an unmap without a prior map.
	ErrNotMapped = errors.New("compute: buffer not mapped")

	// ErrDestroyed is returned when operating on a destroyed buffer.
	ErrDestroyed = errors.New("compute: buffer destroyed")

	// ErrBackendNotAvailable is returned when a requested backend is not
	// registered.
	ErrBackendNotAvailable = errors.New("compute: backend not available")

	// ErrNotInitialized is returned when dispatching before Init.
	ErrNotInitialized = errors.New("compute: backend not initialized")
)

// ElementType describes the element type of a buffer.
type ElementType uint8

const (
	// Uint8 is an 8-bit unsigned integer element.
	Uint8 ElementType = iota

	// Int32 is a 32-bit signed integer element.
	Int32

	// Uint32 is a 32-bit unsigned integer element.
	Uint32

	// Float32 is a 32-bit floating point element.
	Float32

	// Float16 is a 16-bit floating point element, moved as raw bytes.
	Float16
)

// Size returns the element size in bytes.
func (t ElementType) Size() int {
	switch t {
	case Uint8:
		return 1
	case Float16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	default:
		return 0
	}
}

// String returns the element type name.
func (t ElementType) String() string {
	switch t {
	case Uint8:
		return "uint8"
	case Int32:
		return "int32"
	case Uint32:
		return "uint32"
	case Float32:
		return "float32"
	case Float16:
		return "float16"
	default:
		return "unknown"
	}
}
