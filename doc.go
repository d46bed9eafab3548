// Package voxview is the live object registry and cross-thread
// synchronization core of an interactive viewer for sparse volumetric
// grids and Gaussian-splat point clouds.
//
// The Editor façade interns scene and object names into stable tokens,
// publishes objects into a registry with atomic replace semantics, and
// moves shader parameter blocks between the caller's thread and the
// render loop through a double-buffered sync protocol. Compute work
// runs through pluggable dispatch backends: a GPU backend on the wgpu
// HAL and a CPU fallback executing registered Go kernels.
//
// Basic use:
//
//	ed := voxview.New()
//	sceneTok := ed.Intern("main")
//	nameTok := ed.Intern("smoke")
//	if err := ed.AddVolume(sceneTok, nameTok, grid, voxels); err != nil {
//	    // ...
//	}
//	if err := ed.Start(voxview.DefaultConfig()); err != nil {
//	    // ...
//	}
//	defer ed.Shutdown()
package voxview
