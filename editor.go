package voxview

import (
	"errors"
	"sync"
	"time"

	"github.com/gogpu/voxview/compute"
	"github.com/gogpu/voxview/scene"
	"github.com/gogpu/voxview/shader"
	"github.com/gogpu/voxview/token"
)

var (
	// ErrInvalidToken is returned when an operation names an invalid
	// scene or object token.
	ErrInvalidToken = errors.New("voxview: invalid token")

	// ErrInvalidObject is returned when an object's payload does not
	// match its kind.
	ErrInvalidObject = errors.New("voxview: invalid object")

	// ErrNotFound is returned when a parameter operation names an
	// object that is not registered.
	ErrNotFound = errors.New("voxview: object not found")

	// ErrAlreadyRunning is returned by Start while the render loop is
	// running.
	ErrAlreadyRunning = errors.New("voxview: already running")
)

// frameInterval paces the render loop. Parameter swaps land at most
// once per interval.
const frameInterval = 16 * time.Millisecond

// Editor is the façade over the token interner, the scene registry, the
// shader compiler, and the compute dispatch backends.
//
// All methods are safe for concurrent use. Object reads return
// snapshots; absence is reported as a false bool, not an error.
type Editor struct {
	interner *token.Interner
	registry *scene.Registry
	compiler shader.Compiler

	mu      sync.Mutex
	backend compute.Backend
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// New returns an editor with an empty registry.
func New() *Editor {
	return &Editor{
		interner: token.NewInterner(),
		registry: scene.NewRegistry(),
		compiler: shader.NewCompiler(),
	}
}

// Intern returns the stable token for name. The same name always maps
// to the same token for the lifetime of the editor.
func (e *Editor) Intern(name string) token.Token {
	return e.interner.Intern(name)
}

// Token resolves a token ID back to its token.
func (e *Editor) Token(id uint64) (token.Token, bool) {
	return e.interner.Lookup(id)
}

// Registry exposes the underlying scene registry.
func (e *Editor) Registry() *scene.Registry { return e.registry }

// Compiler exposes the shader compiler service.
func (e *Editor) Compiler() shader.Compiler { return e.compiler }

// Backend returns the active dispatch backend, selecting and
// initializing the preferred one on first use.
func (e *Editor) Backend() (compute.Backend, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.backendLocked()
}

func (e *Editor) backendLocked() (compute.Backend, error) {
	if e.backend != nil {
		return e.backend, nil
	}
	b, err := compute.Default()
	if err != nil {
		return nil, err
	}
	e.backend = b
	Logger().Info("voxview: dispatch backend selected", "backend", b.Name())
	return b, nil
}

// key validates the token pair and builds the registry key.
func key(sceneTok, name token.Token) (scene.Key, error) {
	if !sceneTok.Valid() || !name.Valid() {
		return scene.Key{}, ErrInvalidToken
	}
	return scene.Key{Scene: sceneTok.ID, Object: name.ID}, nil
}

func (e *Editor) add(sceneTok, name token.Token, obj scene.Object) error {
	k, err := key(sceneTok, name)
	if err != nil {
		return err
	}
	if !obj.Valid() {
		return ErrInvalidObject
	}
	e.registry.Add(k, obj)
	return nil
}

// AddVolume publishes a sparse voxel grid, replacing any object with
// the same name atomically.
func (e *Editor) AddVolume(sceneTok, name token.Token, grid *compute.Buffer, voxelCount uint64) error {
	return e.add(sceneTok, name, scene.Object{
		Kind:   scene.KindVolume,
		Volume: &scene.VolumeGrid{Grid: grid, VoxelCount: voxelCount},
	})
}

// AddArray publishes a raw typed array.
func (e *Editor) AddArray(sceneTok, name token.Token, arr *compute.Buffer) error {
	return e.add(sceneTok, name, scene.Object{Kind: scene.KindArray, Array: arr})
}

// AddSplats publishes a Gaussian splat attribute set.
func (e *Editor) AddSplats(sceneTok, name token.Token, splats scene.SplatSet) error {
	return e.add(sceneTok, name, scene.Object{Kind: scene.KindSplats, Splats: &splats})
}

// AddImage publishes a 2D image.
func (e *Editor) AddImage(sceneTok, name token.Token, data *compute.Buffer, width, height uint32) error {
	return e.add(sceneTok, name, scene.Object{
		Kind:  scene.KindImage,
		Image: &scene.Image2D{Data: data, Width: width, Height: height},
	})
}

// Remove detaches the named object. Removing an absent object is a
// no-op; reports whether an object was present.
func (e *Editor) Remove(sceneTok, name token.Token) bool {
	k, err := key(sceneTok, name)
	if err != nil {
		return false
	}
	return e.registry.Remove(k)
}

// Object returns a snapshot of the named object.
func (e *Editor) Object(sceneTok, name token.Token) (scene.Object, bool) {
	k, err := key(sceneTok, name)
	if err != nil {
		return scene.Object{}, false
	}
	return e.registry.Get(k)
}

// Volume returns the named object when it is a volume grid.
func (e *Editor) Volume(sceneTok, name token.Token) (*scene.VolumeGrid, bool) {
	obj, ok := e.Object(sceneTok, name)
	if !ok || obj.Kind != scene.KindVolume {
		return nil, false
	}
	return obj.Volume, true
}

// Array returns the named object when it is a raw array.
func (e *Editor) Array(sceneTok, name token.Token) (*compute.Buffer, bool) {
	obj, ok := e.Object(sceneTok, name)
	if !ok || obj.Kind != scene.KindArray {
		return nil, false
	}
	return obj.Array, true
}

// Splats returns the named object when it is a splat set.
func (e *Editor) Splats(sceneTok, name token.Token) (*scene.SplatSet, bool) {
	obj, ok := e.Object(sceneTok, name)
	if !ok || obj.Kind != scene.KindSplats {
		return nil, false
	}
	return obj.Splats, true
}

// Image returns the named object when it is a 2D image.
func (e *Editor) Image(sceneTok, name token.Token) (*scene.Image2D, bool) {
	obj, ok := e.Object(sceneTok, name)
	if !ok || obj.Kind != scene.KindImage {
		return nil, false
	}
	return obj.Image, true
}

// List returns a snapshot of the keys registered under a scene.
func (e *Editor) List(sceneTok token.Token) []scene.Key {
	if !sceneTok.Valid() {
		return nil
	}
	return e.registry.List(sceneTok.ID)
}

// AddNamedArray attaches a named array component to an object. The same
// backing buffer under the same name is shared, not re-added.
func (e *Editor) AddNamedArray(sceneTok, objTok token.Token, name string, buf *compute.Buffer) error {
	k, err := key(sceneTok, objTok)
	if err != nil {
		return err
	}
	if buf == nil {
		return compute.ErrInvalidLayout
	}
	if !e.registry.AddArray(k, name, buf) {
		return ErrNotFound
	}
	return nil
}

// NamedArray returns a named array component of an object.
func (e *Editor) NamedArray(sceneTok, objTok token.Token, name string) (*compute.Buffer, bool) {
	k, err := key(sceneTok, objTok)
	if err != nil {
		return nil, false
	}
	return e.registry.Array(k, name)
}

// RemoveNamedArray detaches a named array component. Idempotent.
func (e *Editor) RemoveNamedArray(sceneTok, objTok token.Token, name string) {
	k, err := key(sceneTok, objTok)
	if err != nil {
		return
	}
	e.registry.RemoveArray(k, name)
}

// Camera returns the default camera of a scene, creating the scene
// state on first use.
func (e *Editor) Camera(sceneTok token.Token) *scene.Camera {
	if !sceneTok.Valid() {
		return nil
	}
	return e.registry.Scene(sceneTok.ID).Camera()
}

// UpdateCamera replaces the camera state of a scene.
func (e *Editor) UpdateCamera(sceneTok token.Token, state scene.CameraState) error {
	c := e.Camera(sceneTok)
	if c == nil {
		return ErrInvalidToken
	}
	c.SetState(state)
	return nil
}

// AddCameraView returns the named camera view overlay of a scene,
// creating it on first use.
func (e *Editor) AddCameraView(sceneTok token.Token, name string) *scene.Camera {
	if !sceneTok.Valid() {
		return nil
	}
	return e.registry.Scene(sceneTok.ID).View(name)
}

// params returns the parameter block of a registered object.
func (e *Editor) params(sceneTok, objTok token.Token) (*scene.Params, error) {
	k, err := key(sceneTok, objTok)
	if err != nil {
		return nil, err
	}
	p := e.registry.Params(k)
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

// SetupShaderParams allocates the double-buffered parameter block of an
// object for the type of v.
func (e *Editor) SetupShaderParams(sceneTok, objTok token.Token, v any) error {
	p, err := e.params(sceneTok, objTok)
	if err != nil {
		return err
	}
	return p.Setup(shader.TypeOf(v))
}

// MapParams returns the writer-facing parameter slot for direct access.
// The slice stays valid until UnmapParams or the next applied sync.
// Absence is reported through sentinels callers test with errors.Is:
// ErrNotFound for an unregistered object, scene.ErrNotSetup for an
// object whose parameter block has not been set up. Neither is a
// failure of the editor.
func (e *Editor) MapParams(sceneTok, objTok token.Token) ([]byte, error) {
	p, err := e.params(sceneTok, objTok)
	if err != nil {
		return nil, err
	}
	return p.MapFront()
}

// UnmapParams releases a prior MapParams. Unmapping after a failed map
// is a no-op.
func (e *Editor) UnmapParams(sceneTok, objTok token.Token) {
	p, err := e.params(sceneTok, objTok)
	if err != nil {
		return
	}
	p.UnmapFront()
}

// SyncShaderParams publishes the writer's parameter edits. A non-nil v
// asserts the parameter type set up earlier. With the render loop
// running the swap lands at the next dispatch boundary; without a loop
// it is applied immediately.
func (e *Editor) SyncShaderParams(sceneTok, objTok token.Token, v any) error {
	p, err := e.params(sceneTok, objTok)
	if err != nil {
		return err
	}
	var typ shader.ParamsType
	if v != nil {
		typ = shader.TypeOf(v)
	}
	if err := p.Sync(typ); err != nil {
		return err
	}
	if !e.Running() {
		p.ApplySwap()
	}
	return nil
}

// ReadShaderParams copies the current parameter values of an object out
// for the caller. This is the read-back counterpart of
// SyncShaderParams: where Sync publishes the writer's edits, Read
// returns a snapshot of the latest published values.
func (e *Editor) ReadShaderParams(sceneTok, objTok token.Token) ([]byte, error) {
	p, err := e.params(sceneTok, objTok)
	if err != nil {
		return nil, err
	}
	return p.ReadFront()
}

// WaitForShaderParamsSync blocks until the in-flight sync of an
// object's parameters is applied, bounded by timeout. Stop unblocks the
// wait with scene.ErrStopped.
func (e *Editor) WaitForShaderParamsSync(sceneTok, objTok token.Token, timeout time.Duration) error {
	p, err := e.params(sceneTok, objTok)
	if err != nil {
		return err
	}
	e.mu.Lock()
	stop := e.stop
	e.mu.Unlock()
	return p.WaitForSync(timeout, stop)
}

// Reset clears all scenes and objects. Token identities survive: the
// interner keeps its mappings.
func (e *Editor) Reset() {
	e.registry.Clear()
	Logger().Info("voxview: reset")
}

// Running reports whether the render loop is active.
func (e *Editor) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Start launches the render loop. The loop applies pending parameter
// swaps at each dispatch boundary until Stop.
func (e *Editor) Start(cfg Config) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return ErrAlreadyRunning
	}
	if _, err := e.backendLocked(); err != nil {
		return err
	}
	e.stop = make(chan struct{})
	e.done = make(chan struct{})
	e.running = true
	go e.run(e.stop, e.done)

	Logger().Info("voxview: started",
		"address", cfg.IPAddress, "port", cfg.Port,
		"headless", cfg.Headless, "streaming", cfg.Streaming)
	return nil
}

// Show starts the render loop and blocks until Stop.
func (e *Editor) Show(cfg Config) error {
	if err := e.Start(cfg); err != nil {
		return err
	}
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	<-done
	return nil
}

// run is the render loop body. Each tick is a dispatch boundary: all
// pending parameter swaps are applied before the frame would be built.
func (e *Editor) run(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			// Drain pending swaps so no writer is left waiting on a
			// swap that would never land.
			e.registry.ApplySwaps()
			return
		case <-ticker.C:
			e.registry.ApplySwaps()
		}
	}
}

// Stop halts the render loop and unblocks pending waits. Stop is
// idempotent and returns after the loop has exited.
func (e *Editor) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.stop)
	done := e.done
	e.mu.Unlock()

	<-done
	Logger().Info("voxview: stopped")
}

// Shutdown stops the render loop and releases the dispatch backend.
// Resource release is explicit; nothing happens at finalizer time.
func (e *Editor) Shutdown() {
	e.Stop()
	e.mu.Lock()
	b := e.backend
	e.backend = nil
	e.mu.Unlock()
	if b != nil {
		b.Close()
	}
}
