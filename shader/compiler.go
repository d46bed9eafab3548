package shader

import (
	"errors"
	"fmt"

	"github.com/gogpu/naga"
)

// Package errors for the compiler service.
var (
	// ErrUnknownEntryPoint is returned by the CPU target when no kernel
	// function has been registered for the requested entry point.
	ErrUnknownEntryPoint = errors.New("shader: unknown CPU entry point")

	// ErrEmptySource is returned when the GPU target is given no source.
	ErrEmptySource = errors.New("shader: empty source")
)

// Compiler turns kernel source text into an executable Kernel for a
// chosen target. Implementations must treat a compile failure as
// terminal for that kernel version and must not retry on their own.
type Compiler interface {
	Compile(source, entryPoint string, target Target, opts CompileOptions) (*Kernel, error)
}

// NagaCompiler is the default compiler service. The GPU target runs the
// WGSL source through gogpu/naga and keeps the SPIR-V word stream; the
// CPU target resolves the entry point against the kernel registry and
// ignores the source text.
type NagaCompiler struct{}

// NewCompiler returns the default compiler service.
func NewCompiler() *NagaCompiler { return &NagaCompiler{} }

// Compile implements Compiler.
func (c *NagaCompiler) Compile(source, entryPoint string, target Target, opts CompileOptions) (*Kernel, error) {
	switch target {
	case TargetGPU:
		return c.compileGPU(source, entryPoint, opts)
	case TargetCPU:
		return c.compileCPU(entryPoint, opts)
	default:
		return nil, fmt.Errorf("shader: unsupported target %s", target)
	}
}

func (c *NagaCompiler) compileGPU(source, entryPoint string, opts CompileOptions) (*Kernel, error) {
	if source == "" {
		return nil, ErrEmptySource
	}

	nopts := naga.DefaultOptions()
	nopts.Debug = opts.Debug
	spirvBytes, err := naga.CompileWithOptions(source, nopts)
	if err != nil {
		return nil, fmt.Errorf("shader: compile %q: %w", entryPoint, err)
	}

	return &Kernel{
		Name:       entryPoint,
		EntryPoint: entryPoint,
		Target:     TargetGPU,
		Options:    opts,
		SPIRV:      spirvWords(spirvBytes),
	}, nil
}

func (c *NagaCompiler) compileCPU(entryPoint string, opts CompileOptions) (*Kernel, error) {
	fn, layout, ok := LookupKernel(entryPoint)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntryPoint, entryPoint)
	}
	// A registered layout wins over an unset option layout, so callers
	// that only pass RowMajor still get correct matrix marshalling.
	if opts.Layout == (KernelLayout{}) {
		opts.Layout = layout
	}
	return &Kernel{
		Name:       entryPoint,
		EntryPoint: entryPoint,
		Target:     TargetCPU,
		Options:    opts,
		Func:       fn,
	}, nil
}

// spirvWords converts a little-endian SPIR-V byte stream to 32-bit words.
func spirvWords(b []byte) []uint32 {
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = uint32(b[i*4]) |
			uint32(b[i*4+1])<<8 |
			uint32(b[i*4+2])<<16 |
			uint32(b[i*4+3])<<24
	}
	return words
}
