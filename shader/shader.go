// Package shader provides the compiler service that turns kernel source
// text into an executable kernel for a chosen target.
//
// The GPU target compiles WGSL to SPIR-V through gogpu/naga. The CPU
// target resolves the entry point against a registry of Go kernel
// functions that implement the same shader logic with matching memory
// layout semantics. Compile errors are terminal for that kernel version;
// the caller decides whether to compile a new version.
package shader

import "fmt"

// Target selects the execution path a kernel is compiled for.
type Target uint8

const (
	// TargetGPU compiles for GPU execution via SPIR-V.
	TargetGPU Target = iota

	// TargetCPU resolves a registered Go kernel function.
	TargetCPU
)

// String returns the target name.
func (t Target) String() string {
	switch t {
	case TargetGPU:
		return "gpu"
	case TargetCPU:
		return "cpu"
	default:
		return fmt.Sprintf("target(%d)", uint8(t))
	}
}

// MatrixLayout declares that a binding carries a dense 2-D matrix of
// 32-bit elements. The zero value means "not a matrix"; such bindings
// are marshalled by raw byte layout with no permutation.
type MatrixLayout struct {
	Rows, Cols int
}

// IsMatrix reports whether the binding is matrix-typed.
func (m MatrixLayout) IsMatrix() bool { return m.Rows > 0 && m.Cols > 0 }

// KernelLayout declares which of a kernel's bindings are matrix-typed.
// The dispatch backends consult it when marshalling data between host
// buffers and kernel-visible memory.
type KernelLayout struct {
	Constants MatrixLayout
	Output    MatrixLayout
}

// CompileOptions configures kernel compilation.
type CompileOptions struct {
	// RowMajor controls how matrix data is marshalled between host
	// buffers and kernel-visible memory. When true, host data is taken
	// as row-major, matching the kernel-side convention, and matrix
	// marshalling is the identity. When false, matrix bindings are
	// transposed at the marshalling boundary.
	//
	// For the GPU target the flag affects input marshalling only: a
	// matrix the kernel constructs itself is written out row-major
	// regardless. For the CPU target the flag affects read and write
	// marshalling symmetrically. The asymmetry follows the kernel
	// language's matrix convention.
	RowMajor bool

	// Layout declares the matrix-typed bindings of the kernel.
	Layout KernelLayout

	// Debug keeps debug info in the generated code.
	Debug bool
}

// DispatchState is the kernel-visible view of one CPU dispatch. The
// byte slices alias the bound buffers after input marshalling has been
// applied; the kernel reads and writes them directly.
type DispatchState struct {
	// Groups is the dispatch grid in work groups.
	Groups [3]uint32

	// Input, Constants, and Output are the bound buffer views. Any of
	// them may be nil if the kernel declares no such binding.
	Input     []byte
	Constants []byte
	Output    []byte
}

// KernelFunc is a CPU implementation of a kernel entry point.
type KernelFunc func(s *DispatchState) error

// Kernel is a compiled kernel ready for dispatch on its target.
// Exactly one of SPIRV (GPU) or Func (CPU) is populated.
type Kernel struct {
	// Name identifies the kernel, usually the source path or shader name.
	Name string

	// EntryPoint is the entry function within the source.
	EntryPoint string

	// Target is the execution target the kernel was compiled for.
	Target Target

	// Options are the options the kernel was compiled with.
	Options CompileOptions

	// SPIRV is the compiled SPIR-V word stream for the GPU target.
	SPIRV []uint32

	// Func is the resolved Go function for the CPU target.
	Func KernelFunc
}
