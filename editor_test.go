package voxview

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/gogpu/voxview/compute"
	"github.com/gogpu/voxview/scene"
	"github.com/gogpu/voxview/token"
)

type fogParams struct {
	Density float32
	Steps   uint32
}

func int32Buffer(t *testing.T, vals []int32) *compute.Buffer {
	t.Helper()
	buf, err := compute.NewBuffer(compute.Int32Bytes(vals), compute.Int32, len(vals))
	if err != nil {
		t.Fatal(err)
	}
	return buf
}

func TestEditorIntern(t *testing.T) {
	ed := New()
	a := ed.Intern("main")
	b := ed.Intern("main")
	if a != b {
		t.Errorf("Intern twice: %+v and %+v", a, b)
	}
	got, ok := ed.Token(a.ID)
	if !ok || got != a {
		t.Errorf("Token(%d) = %+v, %v", a.ID, got, ok)
	}
}

func TestEditorAddVolume(t *testing.T) {
	ed := New()
	sc := ed.Intern("main")
	name := ed.Intern("smoke")

	if err := ed.AddVolume(sc, name, int32Buffer(t, []int32{1, 2, 3}), 3); err != nil {
		t.Fatalf("AddVolume failed: %v", err)
	}

	vol, ok := ed.Volume(sc, name)
	if !ok {
		t.Fatal("Volume not found after add")
	}
	if vol.VoxelCount != 3 {
		t.Errorf("VoxelCount = %d, want 3", vol.VoxelCount)
	}

	// Kind-mismatched lookup reports absence.
	if _, ok := ed.Array(sc, name); ok {
		t.Error("Array lookup found a volume")
	}
}

func TestEditorAddInvalid(t *testing.T) {
	ed := New()
	sc := ed.Intern("main")
	name := ed.Intern("obj")

	if err := ed.AddVolume(token.Token{}, name, int32Buffer(t, []int32{1}), 1); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("invalid scene token: got %v, want ErrInvalidToken", err)
	}
	if err := ed.AddVolume(sc, name, nil, 0); !errors.Is(err, ErrInvalidObject) {
		t.Errorf("nil grid: got %v, want ErrInvalidObject", err)
	}
}

func TestEditorObjectKinds(t *testing.T) {
	ed := New()
	sc := ed.Intern("main")

	arrTok := ed.Intern("values")
	if err := ed.AddArray(sc, arrTok, int32Buffer(t, []int32{1, 2})); err != nil {
		t.Fatal(err)
	}
	if _, ok := ed.Array(sc, arrTok); !ok {
		t.Error("Array not found")
	}

	splatTok := ed.Intern("cloud")
	err := ed.AddSplats(sc, splatTok, scene.SplatSet{
		Means:       int32Buffer(t, []int32{0, 0, 0}),
		Opacities:   int32Buffer(t, []int32{1}),
		Quaternions: int32Buffer(t, []int32{0, 0, 0, 1}),
		Scales:      int32Buffer(t, []int32{1, 1, 1}),
		SH0:         int32Buffer(t, []int32{0, 0, 0}),
		PointCount:  1,
	})
	if err != nil {
		t.Fatal(err)
	}
	splats, ok := ed.Splats(sc, splatTok)
	if !ok || splats.PointCount != 1 {
		t.Error("Splats not found or wrong count")
	}

	imgTok := ed.Intern("frame")
	if err := ed.AddImage(sc, imgTok, int32Buffer(t, []int32{0, 0, 0, 0}), 2, 2); err != nil {
		t.Fatal(err)
	}
	img, ok := ed.Image(sc, imgTok)
	if !ok || img.Width != 2 || img.Height != 2 {
		t.Error("Image not found or wrong size")
	}

	if got := len(ed.List(sc)); got != 3 {
		t.Errorf("List = %d objects, want 3", got)
	}
}

func TestEditorRemoveIdempotent(t *testing.T) {
	ed := New()
	sc := ed.Intern("main")
	name := ed.Intern("smoke")
	if err := ed.AddVolume(sc, name, int32Buffer(t, []int32{1}), 1); err != nil {
		t.Fatal(err)
	}

	if !ed.Remove(sc, name) {
		t.Error("first Remove = false")
	}
	if ed.Remove(sc, name) {
		t.Error("second Remove = true")
	}
}

func TestEditorNamedArrays(t *testing.T) {
	ed := New()
	sc := ed.Intern("main")
	name := ed.Intern("smoke")
	if err := ed.AddVolume(sc, name, int32Buffer(t, []int32{1}), 1); err != nil {
		t.Fatal(err)
	}

	buf := int32Buffer(t, []int32{9})
	if err := ed.AddNamedArray(sc, name, "temperature", buf); err != nil {
		t.Fatalf("AddNamedArray failed: %v", err)
	}
	got, ok := ed.NamedArray(sc, name, "temperature")
	if !ok || got != buf {
		t.Error("NamedArray did not return the attached buffer")
	}

	missing := ed.Intern("missing")
	if err := ed.AddNamedArray(sc, missing, "x", buf); !errors.Is(err, ErrNotFound) {
		t.Errorf("attach to absent object: got %v, want ErrNotFound", err)
	}

	ed.RemoveNamedArray(sc, name, "temperature")
	if _, ok := ed.NamedArray(sc, name, "temperature"); ok {
		t.Error("named array present after remove")
	}
}

func TestEditorCamera(t *testing.T) {
	ed := New()
	sc := ed.Intern("main")

	c := ed.Camera(sc)
	if c == nil {
		t.Fatal("Camera returned nil")
	}

	st := scene.DefaultCameraState()
	st.EyeDistance = 42
	if err := ed.UpdateCamera(sc, st); err != nil {
		t.Fatal(err)
	}
	if got := c.State().EyeDistance; got != 42 {
		t.Errorf("EyeDistance = %g, want 42", got)
	}

	v := ed.AddCameraView(sc, "top")
	if v == nil || v == c {
		t.Error("AddCameraView did not return a distinct camera")
	}

	if ed.Camera(token.Token{}) != nil {
		t.Error("Camera with invalid token returned a camera")
	}
}

func TestEditorParamsImmediateApply(t *testing.T) {
	// Without a render loop, a sync is applied immediately and the
	// wait returns without blocking.
	ed := New()
	sc := ed.Intern("main")
	name := ed.Intern("smoke")
	if err := ed.AddVolume(sc, name, int32Buffer(t, []int32{1}), 1); err != nil {
		t.Fatal(err)
	}

	if err := ed.SetupShaderParams(sc, name, fogParams{}); err != nil {
		t.Fatal(err)
	}

	slot, err := ed.MapParams(sc, name)
	if err != nil {
		t.Fatal(err)
	}
	binary.LittleEndian.PutUint32(slot[4:], 99)
	ed.UnmapParams(sc, name)

	if err := ed.SyncShaderParams(sc, name, fogParams{}); err != nil {
		t.Fatal(err)
	}
	if err := ed.WaitForShaderParamsSync(sc, name, time.Second); err != nil {
		t.Errorf("wait after immediate apply: %v", err)
	}

	p := ed.Registry().Params(scene.Key{Scene: sc.ID, Object: name.ID})
	if got := binary.LittleEndian.Uint32(p.Back()[4:]); got != 99 {
		t.Errorf("render slot = %d, want 99", got)
	}
}

func TestEditorParamsAbsentObject(t *testing.T) {
	ed := New()
	sc := ed.Intern("main")
	name := ed.Intern("ghost")

	if err := ed.SetupShaderParams(sc, name, fogParams{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
	if _, err := ed.MapParams(sc, name); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
	// Unmap of an absent object is a no-op.
	ed.UnmapParams(sc, name)
}

func TestEditorReadShaderParams(t *testing.T) {
	ed := New()
	sc := ed.Intern("main")
	name := ed.Intern("smoke")
	if err := ed.AddVolume(sc, name, int32Buffer(t, []int32{1}), 1); err != nil {
		t.Fatal(err)
	}
	if err := ed.SetupShaderParams(sc, name, fogParams{}); err != nil {
		t.Fatal(err)
	}

	slot, err := ed.MapParams(sc, name)
	if err != nil {
		t.Fatal(err)
	}
	binary.LittleEndian.PutUint32(slot[4:], 33)
	ed.UnmapParams(sc, name)

	if err := ed.SyncShaderParams(sc, name, nil); err != nil {
		t.Fatal(err)
	}

	out, err := ed.ReadShaderParams(sc, name)
	if err != nil {
		t.Fatalf("ReadShaderParams failed: %v", err)
	}
	if got := binary.LittleEndian.Uint32(out[4:]); got != 33 {
		t.Errorf("read back %d, want 33", got)
	}

	ghost := ed.Intern("ghost")
	if _, err := ed.ReadShaderParams(sc, ghost); !errors.Is(err, ErrNotFound) {
		t.Errorf("read of absent object: got %v, want ErrNotFound", err)
	}
}

func TestEditorMapParamsBeforeSetup(t *testing.T) {
	// An object without a parameter block reports absence through the
	// ErrNotSetup sentinel, not a failure.
	ed := New()
	sc := ed.Intern("main")
	name := ed.Intern("smoke")
	if err := ed.AddVolume(sc, name, int32Buffer(t, []int32{1}), 1); err != nil {
		t.Fatal(err)
	}

	if _, err := ed.MapParams(sc, name); !errors.Is(err, scene.ErrNotSetup) {
		t.Errorf("map before setup: got %v, want scene.ErrNotSetup", err)
	}
	ed.UnmapParams(sc, name)
}

func TestEditorParamsWithRenderLoop(t *testing.T) {
	ed := New()
	sc := ed.Intern("main")
	name := ed.Intern("smoke")
	if err := ed.AddVolume(sc, name, int32Buffer(t, []int32{1}), 1); err != nil {
		t.Fatal(err)
	}
	if err := ed.SetupShaderParams(sc, name, fogParams{}); err != nil {
		t.Fatal(err)
	}

	if err := ed.Start(DefaultConfig()); err != nil {
		t.Fatal(err)
	}
	defer ed.Shutdown()

	if err := ed.SyncShaderParams(sc, name, fogParams{}); err != nil {
		t.Fatal(err)
	}
	if err := ed.WaitForShaderParamsSync(sc, name, 5*time.Second); err != nil {
		t.Errorf("wait with running loop: %v", err)
	}
}

func TestEditorStartStop(t *testing.T) {
	ed := New()
	if ed.Running() {
		t.Error("Running before Start")
	}

	if err := ed.Start(DefaultConfig()); err != nil {
		t.Fatal(err)
	}
	if !ed.Running() {
		t.Error("not Running after Start")
	}
	if err := ed.Start(DefaultConfig()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start: got %v, want ErrAlreadyRunning", err)
	}

	ed.Stop()
	ed.Stop() // idempotent
	if ed.Running() {
		t.Error("Running after Stop")
	}

	// The editor restarts cleanly.
	if err := ed.Start(DefaultConfig()); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	ed.Shutdown()
}

func TestEditorStopUnblocksWait(t *testing.T) {
	ed := New()
	sc := ed.Intern("main")
	name := ed.Intern("smoke")
	if err := ed.AddVolume(sc, name, int32Buffer(t, []int32{1}), 1); err != nil {
		t.Fatal(err)
	}
	if err := ed.SetupShaderParams(sc, name, fogParams{}); err != nil {
		t.Fatal(err)
	}
	if err := ed.Start(DefaultConfig()); err != nil {
		t.Fatal(err)
	}

	if err := ed.SyncShaderParams(sc, name, nil); err != nil {
		t.Fatal(err)
	}

	errc := make(chan error, 1)
	go func() {
		errc <- ed.WaitForShaderParamsSync(sc, name, time.Minute)
	}()
	time.Sleep(5 * time.Millisecond)
	ed.Stop()

	select {
	case err := <-errc:
		// Stop either drains the swap (nil) or unblocks the waiter.
		if err != nil && !errors.Is(err, scene.ErrStopped) {
			t.Errorf("wait after Stop = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Stop did not unblock the waiter")
	}
}

func TestEditorShowBlocksUntilStop(t *testing.T) {
	ed := New()
	done := make(chan error, 1)
	go func() {
		done <- ed.Show(DefaultConfig())
	}()

	// Wait for the loop to come up, then stop it.
	deadline := time.Now().Add(time.Second)
	for !ed.Running() {
		if time.Now().After(deadline) {
			t.Fatal("Show did not start the loop")
		}
		time.Sleep(time.Millisecond)
	}
	ed.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Show = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Show did not return after Stop")
	}
}

func TestEditorReset(t *testing.T) {
	ed := New()
	sc := ed.Intern("main")
	name := ed.Intern("smoke")
	if err := ed.AddVolume(sc, name, int32Buffer(t, []int32{1}), 1); err != nil {
		t.Fatal(err)
	}

	ed.Reset()

	if _, ok := ed.Object(sc, name); ok {
		t.Error("object survived Reset")
	}
	// Token identities survive.
	if got := ed.Intern("main"); got != sc {
		t.Errorf("Intern after Reset = %+v, want %+v", got, sc)
	}
}

func TestEditorBackend(t *testing.T) {
	ed := New()
	b, err := ed.Backend()
	if err != nil {
		t.Fatalf("Backend failed: %v", err)
	}
	if b.Name() != "cpu" && b.Name() != "wgpu" {
		t.Errorf("backend = %q", b.Name())
	}
	// The selection is sticky.
	b2, err := ed.Backend()
	if err != nil || b2 != b {
		t.Error("second Backend call selected a different backend")
	}
	ed.Shutdown()
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.IPAddress != "127.0.0.1" || cfg.Port != 8080 {
		t.Errorf("DefaultConfig = %+v", cfg)
	}
	if cfg.Headless || cfg.Streaming {
		t.Errorf("default flags set: %+v", cfg)
	}
}
