package scene

import (
	"sync"

	"github.com/gogpu/voxview/compute"
)

// record is one published registry entry. The object is immutable after
// publish; the parameter block and named arrays are mutable under the
// record mutex.
type record struct {
	obj Object

	mu     sync.Mutex
	params *Params
	arrays map[string]*compute.Buffer
}

// Registry is the live scene object registry. All methods are safe for
// concurrent use; reads take snapshots and never block on writers for
// longer than the map access itself.
type Registry struct {
	mu      sync.RWMutex
	objects map[Key]*record
	scenes  map[uint64]*Scene
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		objects: make(map[Key]*record),
		scenes:  make(map[uint64]*Scene),
	}
}

// Add publishes an object under key, replacing any previous object
// atomically. A reader running concurrently observes either the old or
// the new object, never a mix. The parameter block of a replaced record
// carries over, so an in-flight sync survives an object update.
func (r *Registry) Add(key Key, obj Object) {
	rec := &record{obj: obj}

	r.mu.Lock()
	if old, ok := r.objects[key]; ok {
		old.mu.Lock()
		rec.params = old.params
		rec.arrays = old.arrays
		old.mu.Unlock()
	}
	r.objects[key] = rec
	r.mu.Unlock()

	slogger().Debug("scene: object added",
		"scene", key.Scene, "object", key.Object, "kind", obj.Kind.String())
}

// Remove detaches the object under key. Removing an absent key is a
// no-op; reports whether an object was present.
func (r *Registry) Remove(key Key) bool {
	r.mu.Lock()
	_, ok := r.objects[key]
	delete(r.objects, key)
	r.mu.Unlock()
	if ok {
		slogger().Debug("scene: object removed", "scene", key.Scene, "object", key.Object)
	}
	return ok
}

// Get returns a snapshot of the object under key. Absence is reported
// as false, not an error.
func (r *Registry) Get(key Key) (Object, bool) {
	r.mu.RLock()
	rec, ok := r.objects[key]
	r.mu.RUnlock()
	if !ok {
		return Object{}, false
	}
	return rec.obj, true
}

// List returns a snapshot of the keys registered under a scene. The
// returned slice is independent of later registry changes.
func (r *Registry) List(scene uint64) []Key {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]Key, 0)
	for k := range r.objects {
		if k.Scene == scene {
			keys = append(keys, k)
		}
	}
	return keys
}

// Len returns the total number of registered objects.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.objects)
}

// Clear removes all objects and scene state. Token identities live in
// the interner and are not affected.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.objects = make(map[Key]*record)
	r.scenes = make(map[uint64]*Scene)
	r.mu.Unlock()
	slogger().Debug("scene: registry cleared")
}

// Params returns the parameter block of the object under key, creating
// it on first use. Returns nil when the key is absent.
func (r *Registry) Params(key Key) *Params {
	r.mu.RLock()
	rec, ok := r.objects[key]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.params == nil {
		rec.params = &Params{}
	}
	return rec.params
}

// AddArray attaches a named array component to the object under key.
// Re-adding the same backing buffer under the same name is a no-op;
// a different buffer replaces the previous one. Reports false when the
// key is absent.
func (r *Registry) AddArray(key Key, name string, buf *compute.Buffer) bool {
	r.mu.RLock()
	rec, ok := r.objects[key]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.arrays == nil {
		rec.arrays = make(map[string]*compute.Buffer)
	}
	if rec.arrays[name] == buf {
		return true
	}
	rec.arrays[name] = buf
	return true
}

// Array returns the named array component of the object under key.
func (r *Registry) Array(key Key, name string) (*compute.Buffer, bool) {
	r.mu.RLock()
	rec, ok := r.objects[key]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	buf, ok := rec.arrays[name]
	return buf, ok
}

// RemoveArray detaches a named array component. Idempotent.
func (r *Registry) RemoveArray(key Key, name string) {
	r.mu.RLock()
	rec, ok := r.objects[key]
	r.mu.RUnlock()
	if !ok {
		return
	}
	rec.mu.Lock()
	delete(rec.arrays, name)
	rec.mu.Unlock()
}

// ApplySwaps applies pending parameter swaps across all records. The
// render loop calls it once per frame at the dispatch boundary. Returns
// the number of swaps applied.
func (r *Registry) ApplySwaps() int {
	r.mu.RLock()
	recs := make([]*record, 0, len(r.objects))
	for _, rec := range r.objects {
		recs = append(recs, rec)
	}
	r.mu.RUnlock()

	n := 0
	for _, rec := range recs {
		rec.mu.Lock()
		p := rec.params
		rec.mu.Unlock()
		if p != nil && p.ApplySwap() {
			n++
		}
	}
	return n
}

// Scene returns the per-scene state for a scene token, creating it
// lazily with a default camera.
func (r *Registry) Scene(scene uint64) *Scene {
	r.mu.RLock()
	s, ok := r.scenes[scene]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.scenes[scene]; ok {
		return s
	}
	s = newScene(scene)
	r.scenes[scene] = s
	return s
}
