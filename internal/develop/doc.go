// Package develop holds the per-pixel RAW development program: the WGSL
// shader executed by the GPU backend, the byte layout of its uniform block,
// and a CPU kernel that mirrors the shader for the software backend.
//
// The stage order is fixed: debayer, white balance, colour matrix,
// exposure, highlights/shadows, contrast, levels, saturation/vibrance,
// gamma, clamp. Each stage works in a different colour space (sensor
// linear, white-balanced linear, display linear, display encoded), so
// moving a stage changes the result.
//
// The uniform block is packed by hand. [Layout] records the WGSL offset of
// every member and the package tests derive the same offsets from the
// shader source using WGSL alignment rules; a field added on one side only
// fails the tests instead of corrupting renders.
package develop
