package develop

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/darkroom/colorsci"
)

// UniformSize is the size in bytes of the WGSL Uniforms struct, including
// trailing padding to its 16-byte alignment.
const UniformSize = 176

// Byte offsets of the Uniforms fields in the WGSL struct.
const (
	offWhiteBalance = 0
	offColorMatrix  = 16 // mat3x3<f32>: three columns, each padded to 16 bytes
	offViewX        = 64
	offViewY        = 80
	offExposure     = 96
	offContrast     = 100
	offHighlights   = 104
	offShadows      = 108
	offWhites       = 112
	offBlacks       = 116
	offVibrance     = 120
	offSaturation   = 124
	offTemperature  = 128
	offTint         = 132
	offWhiteScale   = 136
	offBlackLevel   = 140
	offCFA          = 144
	offInputSize    = 160
	offOutputSize   = 168
)

// Field describes one member of the uniform block as the shader sees it.
type Field struct {
	Name   string // WGSL member name
	Offset int
	Size   int
}

// Layout lists the uniform block members in declaration order.
var Layout = []Field{
	{"white_balance", offWhiteBalance, 16},
	{"color_matrix", offColorMatrix, 48},
	{"view_x", offViewX, 16},
	{"view_y", offViewY, 16},
	{"exposure", offExposure, 4},
	{"contrast", offContrast, 4},
	{"highlights", offHighlights, 4},
	{"shadows", offShadows, 4},
	{"whites", offWhites, 4},
	{"blacks", offBlacks, 4},
	{"vibrance", offVibrance, 4},
	{"saturation", offSaturation, 4},
	{"temperature", offTemperature, 4},
	{"tint", offTint, 4},
	{"white_scale", offWhiteScale, 4},
	{"black_level", offBlackLevel, 4},
	{"cfa", offCFA, 16},
	{"input_size", offInputSize, 8},
	{"output_size", offOutputSize, 8},
}

// Uniforms is the host-side copy of the shader's uniform block.
//
// ViewX and ViewY are the rows of the affine map from output uv to input
// uv. CFA holds the channel code (Red, Green, Blue, Green2) of the four
// sites of a 2x2 cell in (row, column) order: (0,0), (0,1), (1,0), (1,1).
type Uniforms struct {
	WhiteBalance [4]float32
	ColorMatrix  colorsci.Mat3
	ViewX        [3]float32
	ViewY        [3]float32

	Exposure    float32
	Contrast    float32
	Highlights  float32
	Shadows     float32
	Whites      float32
	Blacks      float32
	Vibrance    float32
	Saturation  float32
	Temperature float32
	Tint        float32

	WhiteScale float32
	BlackLevel float32

	CFA        [4]uint32
	InputSize  [2]uint32
	OutputSize [2]uint32
}

// IdentityView returns the rows of the identity uv transform.
func IdentityView() (x, y [3]float32) {
	return [3]float32{1, 0, 0}, [3]float32{0, 1, 0}
}

// Pack encodes u into dst using the WGSL layout. dst must hold at least
// UniformSize bytes; padding bytes are zeroed.
func (u Uniforms) Pack(dst []byte) {
	_ = dst[UniformSize-1]
	clear(dst[:UniformSize])

	putVec(dst[offWhiteBalance:], u.WhiteBalance[:])
	for c := 0; c < 3; c++ {
		col := [3]float32{u.ColorMatrix.At(0, c), u.ColorMatrix.At(1, c), u.ColorMatrix.At(2, c)}
		putVec(dst[offColorMatrix+16*c:], col[:])
	}
	putVec(dst[offViewX:], u.ViewX[:])
	putVec(dst[offViewY:], u.ViewY[:])

	putVec(dst[offExposure:], []float32{
		u.Exposure, u.Contrast, u.Highlights, u.Shadows, u.Whites,
		u.Blacks, u.Vibrance, u.Saturation, u.Temperature, u.Tint,
		u.WhiteScale, u.BlackLevel,
	})

	for i, v := range u.CFA {
		binary.LittleEndian.PutUint32(dst[offCFA+4*i:], v)
	}
	binary.LittleEndian.PutUint32(dst[offInputSize:], u.InputSize[0])
	binary.LittleEndian.PutUint32(dst[offInputSize+4:], u.InputSize[1])
	binary.LittleEndian.PutUint32(dst[offOutputSize:], u.OutputSize[0])
	binary.LittleEndian.PutUint32(dst[offOutputSize+4:], u.OutputSize[1])
}

// Bytes returns a freshly allocated packed copy of u.
func (u Uniforms) Bytes() []byte {
	buf := make([]byte, UniformSize)
	u.Pack(buf)
	return buf
}

// Unpack decodes a block written by Pack.
func Unpack(src []byte) Uniforms {
	_ = src[UniformSize-1]
	var u Uniforms
	getVec(src[offWhiteBalance:], u.WhiteBalance[:])
	for c := 0; c < 3; c++ {
		var col [3]float32
		getVec(src[offColorMatrix+16*c:], col[:])
		for r := 0; r < 3; r++ {
			u.ColorMatrix[r*3+c] = col[r]
		}
	}
	getVec(src[offViewX:], u.ViewX[:])
	getVec(src[offViewY:], u.ViewY[:])

	var s [12]float32
	getVec(src[offExposure:], s[:])
	u.Exposure, u.Contrast, u.Highlights, u.Shadows = s[0], s[1], s[2], s[3]
	u.Whites, u.Blacks, u.Vibrance, u.Saturation = s[4], s[5], s[6], s[7]
	u.Temperature, u.Tint, u.WhiteScale, u.BlackLevel = s[8], s[9], s[10], s[11]

	for i := range u.CFA {
		u.CFA[i] = binary.LittleEndian.Uint32(src[offCFA+4*i:])
	}
	u.InputSize[0] = binary.LittleEndian.Uint32(src[offInputSize:])
	u.InputSize[1] = binary.LittleEndian.Uint32(src[offInputSize+4:])
	u.OutputSize[0] = binary.LittleEndian.Uint32(src[offOutputSize:])
	u.OutputSize[1] = binary.LittleEndian.Uint32(src[offOutputSize+4:])
	return u
}

func putVec(dst []byte, v []float32) {
	for i, f := range v {
		binary.LittleEndian.PutUint32(dst[4*i:], math.Float32bits(f))
	}
}

func getVec(src []byte, v []float32) {
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[4*i:]))
	}
}
