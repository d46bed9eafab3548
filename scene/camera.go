package scene

import (
	"sync"

	"github.com/chewxy/math32"
)

// Vec3 is a float32 3-vector.
type Vec3 struct {
	X, Y, Z float32
}

// Add returns v + w.
func (v Vec3) Add(w Vec3) Vec3 { return Vec3{v.X + w.X, v.Y + w.Y, v.Z + w.Z} }

// Sub returns v - w.
func (v Vec3) Sub(w Vec3) Vec3 { return Vec3{v.X - w.X, v.Y - w.Y, v.Z - w.Z} }

// Scale returns v scaled by s.
func (v Vec3) Scale(s float32) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Dot returns the dot product of v and w.
func (v Vec3) Dot(w Vec3) float32 { return v.X*w.X + v.Y*w.Y + v.Z*w.Z }

// Cross returns the cross product of v and w.
func (v Vec3) Cross(w Vec3) Vec3 {
	return Vec3{
		v.Y*w.Z - v.Z*w.Y,
		v.Z*w.X - v.X*w.Z,
		v.X*w.Y - v.Y*w.X,
	}
}

// Length returns the euclidean length of v.
func (v Vec3) Length() float32 { return math32.Sqrt(v.Dot(v)) }

// Normalized returns v scaled to unit length, or v unchanged when its
// length is zero.
func (v Vec3) Normalized() Vec3 {
	l := v.Length()
	if l == 0 {
		return v
	}
	return v.Scale(1 / l)
}

// CameraConfig holds the projection settings of a camera. It changes
// rarely; per-frame motion lives in CameraState.
type CameraConfig struct {
	// LeftHanded selects a left-handed view space.
	LeftHanded bool

	// Orthographic selects orthographic projection over perspective.
	Orthographic bool

	// ReverseZ maps the far plane to depth 0.
	ReverseZ bool

	// Near and Far are the clip plane distances.
	Near float32
	Far  float32

	// FOVY is the vertical field of view in radians. Ignored for
	// orthographic projection.
	FOVY float32

	// Aspect is the viewport width over height.
	Aspect float32
}

// DefaultCameraConfig returns a right-handed perspective configuration.
func DefaultCameraConfig() CameraConfig {
	return CameraConfig{
		Near:   0.1,
		Far:    1000,
		FOVY:   math32.Pi / 4,
		Aspect: 16.0 / 9.0,
	}
}

// CameraState holds the orbit-style view state of a camera.
type CameraState struct {
	// Position is the orbit pivot the camera looks at.
	Position Vec3

	// EyeDirection points from the eye toward the pivot, unit length.
	EyeDirection Vec3

	// EyeUp is the camera up vector, unit length.
	EyeUp Vec3

	// EyeDistance is the distance from the eye to the pivot.
	EyeDistance float32

	// OrthographicScale is the view height for orthographic projection.
	OrthographicScale float32
}

// DefaultCameraState returns a camera looking down negative Z from ten
// units out.
func DefaultCameraState() CameraState {
	return CameraState{
		EyeDirection:      Vec3{0, 0, -1},
		EyeUp:             Vec3{0, 1, 0},
		EyeDistance:       10,
		OrthographicScale: 1,
	}
}

// Eye returns the world-space eye position derived from the state.
func (s CameraState) Eye() Vec3 {
	return s.Position.Sub(s.EyeDirection.Normalized().Scale(s.EyeDistance))
}

// Camera is the mutable camera of a scene. Reads and updates are
// whole-value, so a concurrent reader never sees a half-applied state.
type Camera struct {
	mu     sync.Mutex
	config CameraConfig
	state  CameraState
}

// NewCamera returns a camera with default configuration and state.
func NewCamera() *Camera {
	return &Camera{
		config: DefaultCameraConfig(),
		state:  DefaultCameraState(),
	}
}

// Config returns a snapshot of the camera configuration.
func (c *Camera) Config() CameraConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config
}

// SetConfig replaces the camera configuration.
func (c *Camera) SetConfig(cfg CameraConfig) {
	c.mu.Lock()
	c.config = cfg
	c.mu.Unlock()
}

// State returns a snapshot of the camera state.
func (c *Camera) State() CameraState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetState replaces the camera state. Direction and up are normalized
// on the way in.
func (c *Camera) SetState(s CameraState) {
	s.EyeDirection = s.EyeDirection.Normalized()
	s.EyeUp = s.EyeUp.Normalized()
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Scene is the lazily created per-scene state: the default camera and
// named camera view overlays.
type Scene struct {
	id uint64

	mu     sync.Mutex
	camera *Camera
	views  map[string]*Camera
}

func newScene(id uint64) *Scene {
	return &Scene{
		id:     id,
		camera: NewCamera(),
		views:  make(map[string]*Camera),
	}
}

// ID returns the scene token.
func (s *Scene) ID() uint64 { return s.id }

// Camera returns the scene's default camera.
func (s *Scene) Camera() *Camera { return s.camera }

// View returns the named camera view overlay, creating it on first use.
func (s *Scene) View(name string) *Camera {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[name]
	if !ok {
		v = NewCamera()
		s.views[name] = v
	}
	return v
}

// Views returns a snapshot of the overlay names.
func (s *Scene) Views() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.views))
	for name := range s.views {
		names = append(names, name)
	}
	return names
}

// RemoveView detaches a named overlay. Idempotent.
func (s *Scene) RemoveView(name string) {
	s.mu.Lock()
	delete(s.views, name)
	s.mu.Unlock()
}
