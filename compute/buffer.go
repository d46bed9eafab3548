package compute

import (
	"encoding/binary"
	"math"
	"sync"
)

// Ownership tags who owns the bytes behind a buffer.
type Ownership uint8

const (
	// OwnershipCaller marks a view over caller-owned data. The registry
	// never frees it; the caller destroys it explicitly.
	OwnershipCaller Ownership = iota

	// OwnershipRegistry marks a copy owned by the registry, released
	// when the owning record is removed.
	OwnershipRegistry
)

// Residency tags where a buffer's authoritative bytes live.
type Residency uint8

const (
	// ResidencyHost marks host-resident data.
	ResidencyHost Residency = iota

	// ResidencyDevice marks device-resident data. A device buffer with
	// no host mirror cannot be mapped.
	ResidencyDevice
)

// Buffer describes a contiguous block of typed elements used as a
// compute input or output. Element type and count are fixed at
// creation.
//
// Map and Unmap must pair and nest correctly. They are safe to call
// from either thread, but are not reentrant on the same buffer from two
// threads at once; the caller serializes map/unmap pairs per buffer.
type Buffer struct {
	elem      ElementType
	count     int
	stride    int
	ownership Ownership
	residency Residency

	mu        sync.Mutex
	data      []byte // host mirror; nil for device-only buffers
	mapped    bool
	destroyed bool
}

// NewBuffer wraps data as a caller-owned, host-resident buffer of count
// elements. The stride is the element size. Returns ErrInvalidLayout if
// count is not positive or data does not cover count elements.
func NewBuffer(data []byte, elem ElementType, count int) (*Buffer, error) {
	stride := elem.Size()
	if count <= 0 || stride == 0 || len(data) < count*stride {
		return nil, ErrInvalidLayout
	}
	return &Buffer{
		elem:      elem,
		count:     count,
		stride:    stride,
		ownership: OwnershipCaller,
		residency: ResidencyHost,
		data:      data,
	}, nil
}

// NewDeviceBuffer describes a device-resident block with no host
// mirror. Mapping it fails with ErrNotMappable.
func NewDeviceBuffer(elem ElementType, count int) (*Buffer, error) {
	stride := elem.Size()
	if count <= 0 || stride == 0 {
		return nil, ErrInvalidLayout
	}
	return &Buffer{
		elem:      elem,
		count:     count,
		stride:    stride,
		ownership: OwnershipCaller,
		residency: ResidencyDevice,
	}, nil
}

// ElementType returns the fixed element type.
func (b *Buffer) ElementType() ElementType { return b.elem }

// Count returns the fixed element count.
func (b *Buffer) Count() int { return b.count }

// Stride returns the byte stride between elements.
func (b *Buffer) Stride() int { return b.stride }

// ByteSize returns the total payload size in bytes.
func (b *Buffer) ByteSize() int { return b.count * b.stride }

// Ownership returns the ownership tag.
func (b *Buffer) Ownership() Ownership { return b.ownership }

// Residency returns the residency tag.
func (b *Buffer) Residency() Residency { return b.residency }

// Map exposes the host view of the buffer for direct access. The view
// stays valid until Unmap. A second Map without an Unmap fails with
// ErrAlreadyMapped; a device-resident buffer without a host mirror
// fails with ErrNotMappable.
func (b *Buffer) Map() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return nil, ErrDestroyed
	}
	if b.data == nil {
		return nil, ErrNotMappable
	}
	if b.mapped {
		return nil, ErrAlreadyMapped
	}
	b.mapped = true
	return b.data[:b.count*b.stride], nil
}

// Unmap releases a prior successful Map. Unmapping a buffer that is not
// mapped fails with ErrNotMapped.
func (b *Buffer) Unmap() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		return ErrDestroyed
	}
	if !b.mapped {
		return ErrNotMapped
	}
	b.mapped = false
	return nil
}

// Bytes returns the host mirror without mapping bookkeeping. Backends
// use it for upload and readback; API callers should prefer Map/Unmap.
// Returns nil for device-only or destroyed buffers.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed || b.data == nil {
		return nil
	}
	return b.data[:b.count*b.stride]
}

// Clone returns a registry-owned, host-resident copy of the buffer's
// current contents.
func (b *Buffer) Clone() *Buffer {
	src := b.Bytes()
	data := make([]byte, len(src))
	copy(data, src)
	return &Buffer{
		elem:      b.elem,
		count:     b.count,
		stride:    b.stride,
		ownership: OwnershipRegistry,
		residency: ResidencyHost,
		data:      data,
	}
}

// Destroy releases the buffer. Only the owner calls Destroy; the
// registry never destroys caller-owned buffers. Destroy is idempotent.
func (b *Buffer) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.destroyed = true
	b.mapped = false
	b.data = nil
}

// Destroyed reports whether Destroy has been called.
func (b *Buffer) Destroyed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.destroyed
}

// Element data helpers. All element types move by raw little-endian
// byte layout; there is no implicit numeric conversion anywhere in the
// dispatch path.

// Int32Bytes encodes vals as little-endian bytes.
func Int32Bytes(vals []int32) []byte {
	b := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(b[i*4:], uint32(v))
	}
	return b
}

// BytesInt32 decodes little-endian bytes as int32 values.
func BytesInt32(b []byte) []int32 {
	vals := make([]int32, len(b)/4)
	for i := range vals {
		vals[i] = int32(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vals
}

// Float32Bytes encodes vals as little-endian bytes.
func Float32Bytes(vals []float32) []byte {
	b := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

// BytesFloat32 decodes little-endian bytes as float32 values.
func BytesFloat32(b []byte) []float32 {
	vals := make([]float32, len(b)/4)
	for i := range vals {
		vals[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vals
}
