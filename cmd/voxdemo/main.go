// Command voxdemo demonstrates the voxview scene registry and compute
// dispatch path without a display: it registers a small CPU kernel, adds
// a volume to a scene, runs a dispatch through the default backend and
// synchronizes a parameter block against the running render loop.
package main

import (
	"encoding/binary"
	"flag"
	"log"
	"time"

	"github.com/gogpu/voxview"
	"github.com/gogpu/voxview/compute"
	"github.com/gogpu/voxview/shader"
)

type demoParams struct {
	Density float32
	Steps   uint32
}

func main() {
	var (
		addr = flag.String("addr", "127.0.0.1", "listen address")
		port = flag.Int("port", 8080, "listen port")
	)
	flag.Parse()

	ed := voxview.New()
	defer ed.Shutdown()

	sceneTok := ed.Intern("main")
	volTok := ed.Intern("smoke")

	voxels := []int32{0, 1, 2, 3, 4, 5, 6, 7}
	grid, err := compute.NewBuffer(compute.Int32Bytes(voxels), compute.Int32, len(voxels))
	if err != nil {
		log.Fatalf("grid buffer: %v", err)
	}
	if err := ed.AddVolume(sceneTok, volTok, grid, uint64(len(voxels))); err != nil {
		log.Fatalf("add volume: %v", err)
	}

	runDispatch(ed, len(voxels))

	cfg := voxview.DefaultConfig()
	cfg.IPAddress = *addr
	cfg.Port = *port
	cfg.Headless = true
	if err := ed.Start(cfg); err != nil {
		log.Fatalf("start: %v", err)
	}

	if err := ed.SetupShaderParams(sceneTok, volTok, demoParams{}); err != nil {
		log.Fatalf("setup params: %v", err)
	}
	slot, err := ed.MapParams(sceneTok, volTok)
	if err != nil {
		log.Fatalf("map params: %v", err)
	}
	binary.LittleEndian.PutUint32(slot, 0x3f000000) // density 0.5
	binary.LittleEndian.PutUint32(slot[4:], 64)
	ed.UnmapParams(sceneTok, volTok)

	if err := ed.SyncShaderParams(sceneTok, volTok, demoParams{}); err != nil {
		log.Fatalf("sync params: %v", err)
	}
	if err := ed.WaitForShaderParamsSync(sceneTok, volTok, time.Second); err != nil {
		log.Fatalf("wait for sync: %v", err)
	}
	log.Println("parameter block synchronized with the render loop")

	ed.Stop()
}

// runDispatch adds a constant to every voxel through the default backend.
func runDispatch(ed *voxview.Editor, n int) {
	shader.RegisterKernel("add_constant", shader.KernelLayout{}, func(s *shader.DispatchState) error {
		add := int32(binary.LittleEndian.Uint32(s.Constants))
		for i := 0; i+4 <= len(s.Input) && i+4 <= len(s.Output); i += 4 {
			v := int32(binary.LittleEndian.Uint32(s.Input[i:])) + add
			binary.LittleEndian.PutUint32(s.Output[i:], uint32(v))
		}
		return nil
	})

	backend, err := ed.Backend()
	if err != nil {
		log.Fatalf("backend: %v", err)
	}
	log.Printf("dispatching on %q backend", backend.Name())

	k, err := ed.Compiler().Compile("", "add_constant", shader.TargetCPU, shader.CompileOptions{})
	if err != nil {
		log.Fatalf("compile: %v", err)
	}

	vals := make([]int32, n)
	for i := range vals {
		vals[i] = int32(i)
	}
	input, err := compute.NewBuffer(compute.Int32Bytes(vals), compute.Int32, n)
	if err != nil {
		log.Fatalf("input buffer: %v", err)
	}
	consts, err := compute.NewBuffer(compute.Int32Bytes([]int32{4}), compute.Int32, 1)
	if err != nil {
		log.Fatalf("constants buffer: %v", err)
	}
	output, err := compute.NewBuffer(make([]byte, n*4), compute.Int32, n)
	if err != nil {
		log.Fatalf("output buffer: %v", err)
	}

	cpu, err := compute.Get("cpu")
	if err != nil {
		log.Fatalf("cpu backend: %v", err)
	}
	if ok := cpu.Dispatch(k, [3]uint32{1, 1, 1}, compute.Bindings{
		Input:     input,
		Constants: consts,
		Output:    output,
	}); !ok {
		log.Fatal("dispatch failed")
	}
	log.Printf("dispatch result: %v", compute.BytesInt32(output.Bytes()))
}
