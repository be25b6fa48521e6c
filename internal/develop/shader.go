package develop

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"
)

//go:embed shaders/develop.wgsl
var shaderSource string

// Shader entry points.
const (
	VertexEntry   = "vs_main"
	FragmentEntry = "fs_main"
)

// Bind group 0 slots.
const (
	BindingUniforms = 0
	BindingMosaic   = 1
)

// ShaderSource returns the WGSL source of the develop shader.
func ShaderSource() string {
	return shaderSource
}

// CompileSPIRV compiles the develop shader to SPIR-V words.
func CompileSPIRV() ([]uint32, error) {
	spirvBytes, err := naga.Compile(shaderSource)
	if err != nil {
		return nil, fmt.Errorf("develop: compile shader: %w", err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("develop: SPIR-V length %d is not a multiple of 4", len(spirvBytes))
	}

	// SPIR-V is a stream of little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}
