package scene

import (
	"testing"

	"github.com/chewxy/math32"
)

func TestVec3Math(t *testing.T) {
	a := Vec3{1, 2, 3}
	b := Vec3{4, 5, 6}

	if got := a.Add(b); got != (Vec3{5, 7, 9}) {
		t.Errorf("Add = %+v", got)
	}
	if got := b.Sub(a); got != (Vec3{3, 3, 3}) {
		t.Errorf("Sub = %+v", got)
	}
	if got := a.Scale(2); got != (Vec3{2, 4, 6}) {
		t.Errorf("Scale = %+v", got)
	}
	if got := a.Dot(b); got != 32 {
		t.Errorf("Dot = %g, want 32", got)
	}
	if got := (Vec3{1, 0, 0}).Cross(Vec3{0, 1, 0}); got != (Vec3{0, 0, 1}) {
		t.Errorf("Cross = %+v, want +Z", got)
	}
}

func TestVec3Normalized(t *testing.T) {
	v := Vec3{3, 0, 4}
	n := v.Normalized()
	if math32.Abs(n.Length()-1) > 1e-6 {
		t.Errorf("normalized length = %g, want 1", n.Length())
	}

	// Zero vector stays put.
	if got := (Vec3{}).Normalized(); got != (Vec3{}) {
		t.Errorf("zero normalized = %+v", got)
	}
}

func TestCameraDefaults(t *testing.T) {
	c := NewCamera()
	cfg := c.Config()
	if cfg.Orthographic || cfg.LeftHanded || cfg.ReverseZ {
		t.Errorf("default config flags = %+v, want all unset", cfg)
	}
	if cfg.Near <= 0 || cfg.Far <= cfg.Near {
		t.Errorf("clip planes = %g..%g", cfg.Near, cfg.Far)
	}

	st := c.State()
	if st.EyeDirection != (Vec3{0, 0, -1}) {
		t.Errorf("default direction = %+v", st.EyeDirection)
	}
	if st.EyeDistance != 10 {
		t.Errorf("default distance = %g", st.EyeDistance)
	}
}

func TestCameraEye(t *testing.T) {
	s := CameraState{
		Position:     Vec3{0, 0, 0},
		EyeDirection: Vec3{0, 0, -1},
		EyeUp:        Vec3{0, 1, 0},
		EyeDistance:  5,
	}
	if got := s.Eye(); got != (Vec3{0, 0, 5}) {
		t.Errorf("Eye = %+v, want {0 0 5}", got)
	}
}

func TestCameraSetStateNormalizes(t *testing.T) {
	c := NewCamera()
	c.SetState(CameraState{
		EyeDirection: Vec3{0, 0, -10},
		EyeUp:        Vec3{0, 3, 0},
		EyeDistance:  1,
	})
	st := c.State()
	if st.EyeDirection != (Vec3{0, 0, -1}) {
		t.Errorf("direction = %+v, want normalized", st.EyeDirection)
	}
	if st.EyeUp != (Vec3{0, 1, 0}) {
		t.Errorf("up = %+v, want normalized", st.EyeUp)
	}
}

func TestSceneViews(t *testing.T) {
	s := newScene(1)

	v := s.View("side")
	if v == nil {
		t.Fatal("View returned nil")
	}
	if s.View("side") != v {
		t.Error("second View call created a new camera")
	}
	if len(s.Views()) != 1 {
		t.Errorf("Views = %v, want one entry", s.Views())
	}

	s.RemoveView("side")
	s.RemoveView("side") // idempotent
	if len(s.Views()) != 0 {
		t.Error("view present after remove")
	}
}
