//go:build !nogpu

// Package gpu runs the develop shader on a WebGPU device through the
// gogpu/wgpu HAL (pure Go, no CGO).
//
// # Resources
//
// A [Device] owns (or borrows) one hal.Device and hal.Queue for the process.
// Every submission goes through the device mutex, so several images can
// share a device without racing on the queue.
//
// An [Image] owns everything needed to develop one sensor frame:
//
//   - an R16Uint texture holding the mosaic, uploaded once
//   - a fixed-size uniform buffer, the only thing rewritten on edits
//   - the shader module, layouts, render pipeline and bind group
//   - one colour target and staging buffer per output size
//
// # Readback
//
// Rendering draws a full-screen triangle into an RGBA8Unorm target,
// copies it into a staging buffer whose rows are padded to 256 bytes,
// waits for the submission to complete, maps the buffer and strips the
// row padding. The result is a tightly packed RGBA8 buffer.
//
// [Device.Stats] reports the textures and buffers held by live images.
package gpu
