// Package scene holds the live object registry and the cross-thread
// parameter synchronization protocol.
//
// Objects are published under a (scene, object) token pair. Records are
// immutable after publish: replacing an object swaps the whole record
// under a short lock, so concurrent readers observe either the old or
// the new object, never a torn mix. Shader parameter blocks ride along
// with each record and move between threads through a double-buffered
// slot pair swapped at dispatch boundaries.
package scene

import "errors"

var (
	// ErrNotSetup is returned when using a parameter block before Setup.
	ErrNotSetup = errors.New("scene: params not set up")

	// ErrAlreadyMapped is returned by a second map without an unmap.
	ErrAlreadyMapped = errors.New("scene: params already mapped")

	// ErrSyncTimeout is returned when a bounded wait for a parameter
	// swap expires.
	ErrSyncTimeout = errors.New("scene: params sync timeout")

	// ErrStopped is returned when a wait is unblocked by shutdown.
	ErrStopped = errors.New("scene: stopped")

	// ErrParamsTypeMismatch is returned when a sync names a different
	// parameter type than the one the block was set up with.
	ErrParamsTypeMismatch = errors.New("scene: params type mismatch")
)

// Key identifies an object in the registry by its scene and object
// tokens.
type Key struct {
	Scene  uint64
	Object uint64
}
