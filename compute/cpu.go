package compute

import (
	"fmt"

	"github.com/gogpu/voxview/shader"
)

// CPUBackend runs kernels as registered Go functions on the calling
// goroutine. It is always available and needs no device.
//
// The CPU target marshals matrix bindings symmetrically: constants are
// transposed on the way in and declared matrix outputs are transposed
// on the way back, so a host round trip observes the same layout on
// both sides.
type CPUBackend struct{}

func init() {
	Register(&CPUBackend{})
}

// Name returns "cpu".
func (b *CPUBackend) Name() string { return "cpu" }

// Init is a no-op; the CPU backend has no resources to acquire.
func (b *CPUBackend) Init() error { return nil }

// Close is a no-op.
func (b *CPUBackend) Close() {}

// Compile resolves the kernel's entry point in the CPU kernel registry.
func (b *CPUBackend) Compile(k *shader.Kernel) error {
	if k.Target != shader.TargetCPU {
		return fmt.Errorf("compute: cpu backend cannot compile %s kernel %q", k.Target, k.Name)
	}
	if k.Func != nil {
		return nil
	}
	fn, layout, ok := shader.LookupKernel(k.EntryPoint)
	if !ok {
		return fmt.Errorf("compute: compile %q: %w", k.EntryPoint, shader.ErrUnknownEntryPoint)
	}
	k.Func = fn
	if k.Options.Layout == (shader.KernelLayout{}) {
		k.Options.Layout = layout
	}
	return nil
}

// Dispatch invokes the kernel function once with the full workgroup
// counts; the function iterates its own invocations. Output bytes are
// written back through the output marshalling step.
func (b *CPUBackend) Dispatch(k *shader.Kernel, groups [3]uint32, bind Bindings) bool {
	log := slogger()
	if k.Func == nil {
		if err := b.Compile(k); err != nil {
			log.Warn("cpu dispatch failed", "kernel", k.Name, "error", err)
			return false
		}
	}
	if bind.Output == nil {
		log.Warn("cpu dispatch failed", "kernel", k.Name, "error", "no output binding")
		return false
	}

	var constants []byte
	if bind.Constants != nil {
		constants = shader.MarshalConstants(k, bind.Constants.Bytes())
	}
	var input []byte
	if bind.Input != nil {
		input = bind.Input.Bytes()
	}

	out := make([]byte, bind.Output.ByteSize())
	state := &shader.DispatchState{
		Groups:    groups,
		Input:     input,
		Constants: constants,
		Output:    out,
	}
	if err := k.Func(state); err != nil {
		log.Warn("cpu dispatch failed", "kernel", k.Name, "error", err)
		return false
	}

	dst := bind.Output.Bytes()
	if dst == nil {
		log.Warn("cpu dispatch failed", "kernel", k.Name, "error", "output not host resident")
		return false
	}
	copy(dst, shader.MarshalOutput(k, state.Output))
	return true
}
