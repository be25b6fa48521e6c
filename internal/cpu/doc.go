// Package cpu runs the develop pixel program on the CPU. It accepts the
// same packed uniform block as the GPU backend and renders row bands in
// parallel, so it serves both as the fallback when no adapter is present
// and as the reference the GPU output is compared against.
package cpu
