package compute

import (
	"bytes"
	"errors"
	"testing"
)

func TestElementTypeSize(t *testing.T) {
	tests := []struct {
		elem ElementType
		want int
	}{
		{Uint8, 1},
		{Float16, 2},
		{Int32, 4},
		{Uint32, 4},
		{Float32, 4},
		{ElementType(99), 0},
	}
	for _, tt := range tests {
		if got := tt.elem.Size(); got != tt.want {
			t.Errorf("%s.Size() = %d, want %d", tt.elem, got, tt.want)
		}
	}
}

func TestNewBuffer(t *testing.T) {
	data := Int32Bytes([]int32{1, 2, 3, 4})
	buf, err := NewBuffer(data, Int32, 4)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}
	if buf.Count() != 4 || buf.Stride() != 4 || buf.ByteSize() != 16 {
		t.Errorf("layout = count %d stride %d size %d, want 4/4/16",
			buf.Count(), buf.Stride(), buf.ByteSize())
	}
	if buf.Ownership() != OwnershipCaller {
		t.Error("new buffer not caller owned")
	}
	if buf.Residency() != ResidencyHost {
		t.Error("new buffer not host resident")
	}
}

func TestNewBufferInvalidLayout(t *testing.T) {
	tests := []struct {
		name  string
		data  []byte
		elem  ElementType
		count int
	}{
		{"zero count", make([]byte, 16), Int32, 0},
		{"negative count", make([]byte, 16), Int32, -1},
		{"short data", make([]byte, 8), Int32, 4},
		{"unknown element", make([]byte, 16), ElementType(99), 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewBuffer(tt.data, tt.elem, tt.count); !errors.Is(err, ErrInvalidLayout) {
				t.Errorf("got %v, want ErrInvalidLayout", err)
			}
		})
	}
}

func TestBufferMapUnmap(t *testing.T) {
	buf, err := NewBuffer(make([]byte, 16), Float32, 4)
	if err != nil {
		t.Fatal(err)
	}

	view, err := buf.Map()
	if err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	if len(view) != 16 {
		t.Errorf("mapped %d bytes, want 16", len(view))
	}

	if _, err := buf.Map(); !errors.Is(err, ErrAlreadyMapped) {
		t.Errorf("second Map: got %v, want ErrAlreadyMapped", err)
	}

	if err := buf.Unmap(); err != nil {
		t.Fatalf("Unmap failed: %v", err)
	}
	if err := buf.Unmap(); !errors.Is(err, ErrNotMapped) {
		t.Errorf("second Unmap: got %v, want ErrNotMapped", err)
	}

	// Map again after a full cycle.
	if _, err := buf.Map(); err != nil {
		t.Errorf("remap failed: %v", err)
	}
}

func TestBufferMapWritesVisible(t *testing.T) {
	buf, err := NewBuffer(make([]byte, 16), Int32, 4)
	if err != nil {
		t.Fatal(err)
	}
	view, err := buf.Map()
	if err != nil {
		t.Fatal(err)
	}
	copy(view, Int32Bytes([]int32{10, 20, 30, 40}))
	if err := buf.Unmap(); err != nil {
		t.Fatal(err)
	}

	got := BytesInt32(buf.Bytes())
	want := []int32{10, 20, 30, 40}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("element %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestDeviceBufferNotMappable(t *testing.T) {
	buf, err := NewDeviceBuffer(Float32, 16)
	if err != nil {
		t.Fatal(err)
	}
	if buf.Residency() != ResidencyDevice {
		t.Error("device buffer not device resident")
	}
	if _, err := buf.Map(); !errors.Is(err, ErrNotMappable) {
		t.Errorf("Map on device buffer: got %v, want ErrNotMappable", err)
	}
	if buf.Bytes() != nil {
		t.Error("device buffer has host bytes")
	}
}

func TestBufferClone(t *testing.T) {
	src := Int32Bytes([]int32{1, 2, 3})
	buf, err := NewBuffer(src, Int32, 3)
	if err != nil {
		t.Fatal(err)
	}
	clone := buf.Clone()

	if clone.Ownership() != OwnershipRegistry {
		t.Error("clone not registry owned")
	}
	if !bytes.Equal(clone.Bytes(), buf.Bytes()) {
		t.Error("clone contents differ")
	}

	// Clone is independent of the source.
	src[0] = 0xFF
	if bytes.Equal(clone.Bytes(), buf.Bytes()) {
		t.Error("clone shares backing storage with source")
	}
}

func TestBufferDestroy(t *testing.T) {
	buf, err := NewBuffer(make([]byte, 8), Int32, 2)
	if err != nil {
		t.Fatal(err)
	}
	buf.Destroy()
	buf.Destroy() // idempotent

	if !buf.Destroyed() {
		t.Error("Destroyed = false after Destroy")
	}
	if _, err := buf.Map(); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Map after destroy: got %v, want ErrDestroyed", err)
	}
	if err := buf.Unmap(); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Unmap after destroy: got %v, want ErrDestroyed", err)
	}
	if buf.Bytes() != nil {
		t.Error("Bytes non-nil after destroy")
	}
}

func TestInt32RoundTrip(t *testing.T) {
	vals := []int32{0, -1, 1, 1 << 30, -(1 << 30)}
	got := BytesInt32(Int32Bytes(vals))
	for i := range vals {
		if got[i] != vals[i] {
			t.Errorf("element %d = %d, want %d", i, got[i], vals[i])
		}
	}
}

func TestFloat32RoundTrip(t *testing.T) {
	vals := []float32{0, 1.5, -2.25, 3e38}
	got := BytesFloat32(Float32Bytes(vals))
	for i := range vals {
		if got[i] != vals[i] {
			t.Errorf("element %d = %g, want %g", i, got[i], vals[i])
		}
	}
}
