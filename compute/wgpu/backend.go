// Package wgpu implements the GPU compute backend on the wgpu HAL.
//
// Kernels arrive as SPIR-V produced by the shader package's naga
// compiler. Each dispatch uploads the bound host buffers, runs one
// compute pass, and reads the output back through a staging buffer.
// The backend registers itself as "wgpu"; when no adapter is available
// Init fails and dispatch falls through to the CPU backend.
package wgpu

import (
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/voxview/compute"
	"github.com/gogpu/voxview/shader"
)

// fenceTimeout is the maximum time to wait for a dispatch to complete.
const fenceTimeout = 5 * time.Second

// Backend runs compute kernels on a HAL device.
type Backend struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	pipelines map[string]*kernelPipeline

	ready    bool
	external bool // shared device, don't destroy on Close
}

// kernelPipeline holds the compiled GPU state for one kernel.
type kernelPipeline struct {
	module   hal.ShaderModule
	bgLayout hal.BindGroupLayout
	pipeline hal.ComputePipeline
	layout   hal.PipelineLayout
}

var _ compute.Backend = (*Backend)(nil)

func init() {
	compute.Register(&Backend{})
}

// Name returns "wgpu".
func (b *Backend) Name() string { return "wgpu" }

// Init creates a standalone Vulkan device for compute-only use. It is
// safe to call Init multiple times; subsequent calls are no-ops once a
// device is open.
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ready {
		return nil
	}

	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("wgpu: vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("wgpu: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return fmt.Errorf("wgpu: no GPU adapters found")
	}

	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return fmt.Errorf("wgpu: open device: %w", err)
	}

	b.instance = instance
	b.device = openDev.Device
	b.queue = openDev.Queue
	b.pipelines = make(map[string]*kernelPipeline)
	b.ready = true

	slogger().Info("wgpu: GPU initialized", "adapter", selected.Info.Name)
	return nil
}

// InitWithDevice attaches the backend to an externally owned device and
// queue. Close does not destroy external resources.
func (b *Backend) InitWithDevice(device hal.Device, queue hal.Queue) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.device = device
	b.queue = queue
	b.pipelines = make(map[string]*kernelPipeline)
	b.ready = true
	b.external = true
}

// Close releases all GPU resources held by the backend.
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for name, p := range b.pipelines {
		b.destroyPipeline(p)
		delete(b.pipelines, name)
	}

	if !b.external {
		if b.device != nil {
			b.device.Destroy()
		}
		if b.instance != nil {
			b.instance.Destroy()
		}
	}
	b.instance = nil
	b.device = nil
	b.queue = nil
	b.ready = false
	b.external = false
}

func (b *Backend) destroyPipeline(p *kernelPipeline) {
	if p.pipeline != nil {
		b.device.DestroyComputePipeline(p.pipeline)
	}
	if p.layout != nil {
		b.device.DestroyPipelineLayout(p.layout)
	}
	if p.bgLayout != nil {
		b.device.DestroyBindGroupLayout(p.bgLayout)
	}
	if p.module != nil {
		b.device.DestroyShaderModule(p.module)
	}
}

// bindGroupLayoutEntries returns the fixed binding layout shared by all
// kernels: input at binding 0, constants at binding 1, output at
// binding 2. This matches the @group(0) @binding(N) annotations the
// kernels declare.
func bindGroupLayoutEntries() []gputypes.BindGroupLayoutEntry {
	return []gputypes.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage},
		},
		{
			Binding:    1,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		},
		{
			Binding:    2,
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage},
		},
	}
}

// Compile builds the GPU pipeline for a kernel and caches it by name.
func (b *Backend) Compile(k *shader.Kernel) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.compileLocked(k)
}

func (b *Backend) compileLocked(k *shader.Kernel) error {
	if !b.ready {
		return compute.ErrNotInitialized
	}
	if k.Target != shader.TargetGPU {
		return fmt.Errorf("wgpu: cannot compile %s kernel %q", k.Target, k.Name)
	}
	if len(k.SPIRV) == 0 {
		return fmt.Errorf("wgpu: kernel %q has no SPIR-V", k.Name)
	}
	if _, ok := b.pipelines[k.Name]; ok {
		return nil
	}

	p := &kernelPipeline{}

	module, err := b.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  k.Name,
		Source: hal.ShaderSource{SPIRV: k.SPIRV},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create shader module %q: %w", k.Name, err)
	}
	p.module = module

	bgLayout, err := b.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   k.Name + "_bgl",
		Entries: bindGroupLayoutEntries(),
	})
	if err != nil {
		b.destroyPipeline(p)
		return fmt.Errorf("wgpu: create bind group layout %q: %w", k.Name, err)
	}
	p.bgLayout = bgLayout

	layout, err := b.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            k.Name + "_pl",
		BindGroupLayouts: []hal.BindGroupLayout{bgLayout},
	})
	if err != nil {
		b.destroyPipeline(p)
		return fmt.Errorf("wgpu: create pipeline layout %q: %w", k.Name, err)
	}
	p.layout = layout

	pipeline, err := b.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  k.Name,
		Layout: layout,
		Compute: hal.ComputeState{
			Module:     module,
			EntryPoint: k.EntryPoint,
		},
	})
	if err != nil {
		b.destroyPipeline(p)
		return fmt.Errorf("wgpu: create compute pipeline %q: %w", k.Name, err)
	}
	p.pipeline = pipeline

	b.pipelines[k.Name] = p
	slogger().Debug("wgpu: pipeline created", "kernel", k.Name, "spirv_words", len(k.SPIRV))
	return nil
}

// dispatchBuffers holds per-dispatch GPU buffers for cleanup.
type dispatchBuffers struct {
	device  hal.Device
	buffers []hal.Buffer
}

func (r *dispatchBuffers) create(label string, size uint64, usage gputypes.BufferUsage) (hal.Buffer, error) {
	const minBufSize = 4
	if size < minBufSize {
		size = minBufSize
	}
	buf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return nil, err
	}
	r.buffers = append(r.buffers, buf)
	return buf, nil
}

func (r *dispatchBuffers) cleanup() {
	for _, buf := range r.buffers {
		r.device.DestroyBuffer(buf)
	}
}

// Dispatch uploads the bindings, runs one compute pass, and reads the
// output back into b.Output's host memory. Constants pass through the
// input marshalling step; the output is read back as the kernel wrote
// it, with no inverse permutation.
func (b *Backend) Dispatch(k *shader.Kernel, groups [3]uint32, bind compute.Bindings) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	log := slogger()
	if !b.ready {
		log.Warn("wgpu dispatch failed", "kernel", k.Name, "error", compute.ErrNotInitialized)
		return false
	}
	if err := b.compileLocked(k); err != nil {
		log.Warn("wgpu dispatch failed", "kernel", k.Name, "error", err)
		return false
	}
	if bind.Output == nil {
		log.Warn("wgpu dispatch failed", "kernel", k.Name, "error", "no output binding")
		return false
	}

	if err := b.runDispatch(k, groups, bind); err != nil {
		log.Warn("wgpu dispatch failed", "kernel", k.Name, "error", err)
		return false
	}
	return true
}

func (b *Backend) runDispatch(k *shader.Kernel, groups [3]uint32, bind compute.Bindings) error {
	p := b.pipelines[k.Name]
	res := &dispatchBuffers{device: b.device}
	defer res.cleanup()

	var inputData, constData []byte
	if bind.Input != nil {
		inputData = bind.Input.Bytes()
	}
	if bind.Constants != nil {
		constData = shader.MarshalConstants(k, bind.Constants.Bytes())
	}
	outSize := uint64(bind.Output.ByteSize())

	inputBuf, err := res.create(k.Name+"_in",
		uint64(len(inputData)),
		gputypes.BufferUsageStorage|gputypes.BufferUsageCopyDst)
	if err != nil {
		return fmt.Errorf("create input buffer: %w", err)
	}
	constBuf, err := res.create(k.Name+"_const",
		uint64(len(constData)),
		gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	if err != nil {
		return fmt.Errorf("create constants buffer: %w", err)
	}
	outputBuf, err := res.create(k.Name+"_out",
		outSize,
		gputypes.BufferUsageStorage|gputypes.BufferUsageCopyDst|gputypes.BufferUsageCopySrc)
	if err != nil {
		return fmt.Errorf("create output buffer: %w", err)
	}
	stagingBuf, err := res.create(k.Name+"_staging",
		outSize,
		gputypes.BufferUsageMapRead|gputypes.BufferUsageCopyDst)
	if err != nil {
		return fmt.Errorf("create staging buffer: %w", err)
	}

	if len(inputData) > 0 {
		b.queue.WriteBuffer(inputBuf, 0, inputData)
	}
	if len(constData) > 0 {
		b.queue.WriteBuffer(constBuf, 0, constData)
	}
	// Zero-fill the output so a partial kernel write is deterministic.
	b.queue.WriteBuffer(outputBuf, 0, make([]byte, outSize))

	bg, err := b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  k.Name + "_bg",
		Layout: p.bgLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: inputBuf.NativeHandle()}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: constBuf.NativeHandle()}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: outputBuf.NativeHandle()}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}
	defer b.device.DestroyBindGroup(bg)

	encoder, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: k.Name})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(k.Name); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: k.Name})
	pass.SetPipeline(p.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch(groups[0], groups[1], groups[2])
	pass.End()

	encoder.CopyBufferToBuffer(outputBuf, stagingBuf, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: outSize},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer b.device.FreeCommandBuffer(cmdBuf)

	fence, err := b.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer b.device.DestroyFence(fence)

	if err := b.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	ok, err := b.device.Wait(fence, 1, fenceTimeout)
	if err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}
	if !ok {
		return fmt.Errorf("GPU timeout after %v", fenceTimeout)
	}

	dst := bind.Output.Bytes()
	if dst == nil {
		return fmt.Errorf("output not host resident")
	}
	readback := make([]byte, outSize)
	if err := b.queue.ReadBuffer(stagingBuf, 0, readback); err != nil {
		return fmt.Errorf("readback: %w", err)
	}
	copy(dst, readback)

	slogger().Debug("wgpu: dispatched",
		"kernel", k.Name,
		"groups", fmt.Sprintf("%dx%dx%d", groups[0], groups[1], groups[2]),
		"output_bytes", outSize)
	return nil
}
