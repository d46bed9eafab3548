package scene

import (
	"sync"
	"time"

	"github.com/gogpu/voxview/shader"
)

// ParamsState tracks where a parameter block is in its sync cycle.
type ParamsState uint8

const (
	// ParamsIdle: no slots allocated, or the last cycle completed.
	ParamsIdle ParamsState = iota

	// ParamsSetup: slots allocated, writer editing the front slot.
	ParamsSetup

	// ParamsDispatched: the writer published its edits with Sync; the
	// render loop has not reached a dispatch boundary yet.
	ParamsDispatched

	// ParamsSyncRequested: the render loop observed the request and is
	// applying the swap.
	ParamsSyncRequested

	// ParamsSynced: the swap was applied; a waiter may still be
	// acknowledging.
	ParamsSynced
)

// String returns the state name.
func (s ParamsState) String() string {
	switch s {
	case ParamsIdle:
		return "idle"
	case ParamsSetup:
		return "setup"
	case ParamsDispatched:
		return "dispatched"
	case ParamsSyncRequested:
		return "sync_requested"
	case ParamsSynced:
		return "synced"
	default:
		return "unknown"
	}
}

// Params is a double-buffered shader parameter block shared between the
// writer thread and the render loop.
//
// The writer edits the front slot through MapFront/UnmapFront and
// publishes with Sync. The render loop calls ApplySwap at its dispatch
// boundary, which exchanges the slots so the render side reads the new
// block while the writer gets the previous one to edit. WaitForSync
// blocks the writer until a swap lands, bounded by a timeout and
// unblocked by stop.
type Params struct {
	mu    sync.Mutex
	typ   shader.ParamsType
	slots [2][]byte
	write int // index of the writer-facing (front) slot

	mapped  bool
	state   ParamsState
	pending chan struct{} // closed by ApplySwap
	version uint64
}

// Setup allocates both slots for a parameter block of the given type.
// Calling Setup again with the same type keeps the existing contents;
// a different type reallocates both slots.
func (p *Params) Setup(typ shader.ParamsType) error {
	if !typ.Valid() || typ.Size() == 0 {
		return ErrNotSetup
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.typ.Equal(typ) && p.slots[0] != nil {
		return nil
	}
	// Reallocating invalidates an in-flight sync; release its waiters
	// rather than leaving them to run out their timeout.
	if p.state == ParamsDispatched || p.state == ParamsSyncRequested {
		close(p.pending)
	}
	p.typ = typ
	p.slots[0] = make([]byte, typ.Size())
	p.slots[1] = make([]byte, typ.Size())
	p.write = 0
	p.state = ParamsSetup
	return nil
}

// Type returns the parameter block type, or an invalid descriptor
// before Setup.
func (p *Params) Type() shader.ParamsType {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.typ
}

// State returns the current sync state.
func (p *Params) State() ParamsState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Version counts applied swaps.
func (p *Params) Version() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.version
}

// MapFront returns the writer-facing slot for direct access. The slice
// stays valid until UnmapFront or the next ApplySwap.
func (p *Params) MapFront() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.slots[0] == nil {
		return nil, ErrNotSetup
	}
	if p.mapped {
		return nil, ErrAlreadyMapped
	}
	p.mapped = true
	return p.slots[p.write], nil
}

// UnmapFront releases a prior MapFront. Unmapping when nothing is
// mapped is a no-op, so an unmap after a failed map is harmless.
func (p *Params) UnmapFront() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mapped = false
}

// ReadFront copies the current parameter values out for the caller.
// This is the read-back direction of the parameter exchange: the front
// slot always holds the latest published values, so the copy reflects
// them without disturbing an in-flight sync or a mapped slot.
func (p *Params) ReadFront() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.slots[0] == nil {
		return nil, ErrNotSetup
	}
	out := make([]byte, len(p.slots[p.write]))
	copy(out, p.slots[p.write])
	return out, nil
}

// Sync publishes the writer's edits. The swap itself happens later,
// when the render loop reaches a dispatch boundary and calls ApplySwap.
// A Sync while a previous request is still in flight joins it.
func (p *Params) Sync(typ shader.ParamsType) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.slots[0] == nil {
		return ErrNotSetup
	}
	if typ.Valid() && !p.typ.Equal(typ) {
		return ErrParamsTypeMismatch
	}
	if p.state == ParamsDispatched || p.state == ParamsSyncRequested {
		return nil
	}
	p.state = ParamsDispatched
	p.pending = make(chan struct{})
	return nil
}

// ApplySwap exchanges the slots if a sync is in flight. Called by the
// render loop at its dispatch boundary; also called directly when no
// loop is running. Reports whether a swap was applied.
func (p *Params) ApplySwap() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != ParamsDispatched {
		return false
	}
	p.state = ParamsSyncRequested
	// The writer's slot becomes render-visible; the old render slot is
	// seeded with the new contents so the writer edits current values.
	newFront := 1 - p.write
	copy(p.slots[newFront], p.slots[p.write])
	p.write = newFront
	p.version++
	p.state = ParamsSynced
	close(p.pending)
	return true
}

// Back returns the render-visible slot. The render loop reads it
// between dispatch boundaries; it is only replaced inside ApplySwap.
func (p *Params) Back() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.slots[0] == nil {
		return nil
	}
	return p.slots[1-p.write]
}

// WaitForSync blocks until the in-flight sync request is applied. A
// non-positive timeout waits indefinitely. Close of stop unblocks the
// wait with ErrStopped; expiry returns ErrSyncTimeout. When nothing is
// in flight WaitForSync returns immediately.
func (p *Params) WaitForSync(timeout time.Duration, stop <-chan struct{}) error {
	p.mu.Lock()
	if p.slots[0] == nil {
		p.mu.Unlock()
		return ErrNotSetup
	}
	if p.state != ParamsDispatched && p.state != ParamsSyncRequested && p.state != ParamsSynced {
		p.mu.Unlock()
		return nil
	}
	ch := p.pending
	p.mu.Unlock()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-ch:
		p.mu.Lock()
		if p.state == ParamsSynced {
			p.state = ParamsIdle
		}
		p.mu.Unlock()
		return nil
	case <-stop:
		return ErrStopped
	case <-expired:
		return ErrSyncTimeout
	}
}
