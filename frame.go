package darkroom

import (
	"fmt"
	"math/bits"
	"slices"
	"strings"

	"github.com/gogpu/darkroom/internal/develop"
)

// CFAPattern is the colour filter layout of the top-left 2x2 cell of the
// mosaic, read row by row. It is a property of the camera and must be
// supplied by the decoder.
type CFAPattern uint8

const (
	RGGB CFAPattern = iota
	BGGR
	GRBG
	GBRG
)

var cfaNames = [...]string{"RGGB", "BGGR", "GRBG", "GBRG"}

// String returns the pattern name, e.g. "RGGB".
func (p CFAPattern) String() string {
	if int(p) < len(cfaNames) {
		return cfaNames[p]
	}
	return fmt.Sprintf("CFAPattern(%d)", p)
}

// ParseCFAPattern parses a pattern name case-insensitively.
func ParseCFAPattern(s string) (CFAPattern, error) {
	i := slices.Index(cfaNames[:], strings.ToUpper(strings.TrimSpace(s)))
	if i < 0 {
		return 0, fmt.Errorf("darkroom: unknown CFA pattern %q", s)
	}
	return CFAPattern(i), nil
}

// sites returns the develop channel codes of the cell in (row, column)
// order. The second green site is tagged Green2.
func (p CFAPattern) sites() [4]uint32 {
	switch p {
	case BGGR:
		return [4]uint32{develop.Blue, develop.Green, develop.Green2, develop.Red}
	case GRBG:
		return [4]uint32{develop.Green, develop.Red, develop.Blue, develop.Green2}
	case GBRG:
		return [4]uint32{develop.Green, develop.Blue, develop.Red, develop.Green2}
	default:
		return [4]uint32{develop.Red, develop.Green, develop.Green2, develop.Blue}
	}
}

// MinBitDepth is the depth assumed when a frame's samples would fit in
// fewer bits.
const MinBitDepth = 12

// SensorFrame is one decoded RAW readout.
type SensorFrame struct {
	Width  int
	Height int

	// Mosaic holds Width*Height sensor values, row-major, widened to 16 bits.
	Mosaic []uint16

	// BitDepth is the sensor's significant bits. Zero infers it from the
	// largest sample, never below MinBitDepth.
	BitDepth int

	// BlackLevel is subtracted from every sample before normalisation.
	BlackLevel uint16

	// WhiteBalance holds 3 (R, G, B) or 4 (R, G, B, G2) raw multipliers.
	WhiteBalance []float32

	// Calibration maps XYZ to camera space, row-major. All zero means the
	// decoder had no calibration.
	Calibration [9]float32

	Pattern CFAPattern
}

// Validate reports whether the frame can be developed.
func (f *SensorFrame) Validate() error {
	switch {
	case f == nil:
		return fmt.Errorf("%w: nil frame", ErrInvalidFrame)
	case f.Width <= 0 || f.Height <= 0:
		return fmt.Errorf("%w: size %dx%d", ErrInvalidFrame, f.Width, f.Height)
	case len(f.Mosaic) != f.Width*f.Height:
		return fmt.Errorf("%w: mosaic has %d samples, want %d", ErrInvalidFrame, len(f.Mosaic), f.Width*f.Height)
	case f.BitDepth < 0 || f.BitDepth > 16:
		return fmt.Errorf("%w: bit depth %d", ErrInvalidFrame, f.BitDepth)
	case int(f.Pattern) >= len(cfaNames):
		return fmt.Errorf("%w: CFA pattern %d", ErrInvalidFrame, f.Pattern)
	}
	if int(f.BlackLevel) >= 1<<f.EffectiveBitDepth() {
		return fmt.Errorf("%w: black level %d at %d bits", ErrInvalidFrame, f.BlackLevel, f.EffectiveBitDepth())
	}
	return nil
}

// EffectiveBitDepth returns BitDepth, or the inferred depth when it is 0.
func (f *SensorFrame) EffectiveBitDepth() int {
	if f.BitDepth > 0 {
		return f.BitDepth
	}
	var peak uint16
	for _, v := range f.Mosaic {
		peak = max(peak, v)
	}
	return max(MinBitDepth, bits.Len16(peak))
}

// whiteScale is the normalisation denominator 2^bits - black.
func (f *SensorFrame) whiteScale(bitDepth int) float32 {
	return float32(int(1)<<bitDepth) - float32(f.BlackLevel)
}
