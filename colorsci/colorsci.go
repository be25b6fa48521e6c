// Package colorsci derives the camera-to-display colour transform and the
// normalised white-balance multipliers a RAW develop pipeline needs.
//
// Calibration data arrives from an external RAW decoder and is frequently
// missing or malformed. Nothing in this package returns an error: every
// degenerate input falls back to the identity matrix or neutral white
// balance, and the reason is reported as a [Fallback] so callers can log it.
//
// Calibration convention (as in DNG ColorMatrix / dcraw cam_xyz): the 3x3
// calibration matrix maps device-independent XYZ to camera space. The
// display matrix is the dcraw rgb_cam construction
//
//	display = inverse(normalizeRows(calibration * inverse(XYZToLinearSRGB)))
//
// which maps white-balanced camera neutral (1,1,1) to display neutral.
package colorsci

import "math"

const (
	// IdentityEpsilon is the tolerance used to detect a calibration matrix
	// that is already (numerically) the identity.
	IdentityEpsilon = 1e-4

	// singularEpsilon is the |det| below which a matrix is not inverted.
	singularEpsilon = 1e-8
)

// XYZToLinearSRGB converts CIE XYZ (D65 white) to linear sRGB primaries.
// http://www.brucelindbloom.com/index.html?Eqn_RGB_XYZ_Matrix.html
var XYZToLinearSRGB = Mat3{
	3.2404542, -1.5371385, -0.4985314,
	-0.9692660, 1.8760108, 0.0415560,
	0.0556434, -0.2040259, 1.0572252,
}

// Fallback explains why a neutral value was substituted.
type Fallback uint8

const (
	// FallbackNone means the computed value is used as-is.
	FallbackNone Fallback = iota

	// FallbackUnavailable means the decoder supplied no calibration (all zero).
	FallbackUnavailable

	// FallbackNearIdentity means the calibration was already the identity.
	FallbackNearIdentity

	// FallbackSingular means the calibration matrix could not be inverted.
	FallbackSingular

	// FallbackNonFinite means the computation produced NaN or Inf.
	FallbackNonFinite

	// FallbackBypass means the caller requested the identity-only mode.
	FallbackBypass

	// FallbackNoGreen means the white balance had no usable green channel.
	FallbackNoGreen
)

// String returns a short name for the fallback reason.
func (f Fallback) String() string {
	switch f {
	case FallbackNone:
		return "none"
	case FallbackUnavailable:
		return "unavailable"
	case FallbackNearIdentity:
		return "near-identity"
	case FallbackSingular:
		return "singular"
	case FallbackNonFinite:
		return "non-finite"
	case FallbackBypass:
		return "bypass"
	case FallbackNoGreen:
		return "no-green"
	default:
		return "unknown"
	}
}

// MatrixMode selects how the display matrix is derived.
type MatrixMode uint8

const (
	// MatrixFull inverts the calibration and converts to display primaries.
	MatrixFull MatrixMode = iota

	// MatrixBypass always uses the identity (no colour correction).
	MatrixBypass
)

// ComputeDisplayMatrix returns the camera to linear-display matrix for the
// given calibration, or the identity if the calibration is unusable.
func ComputeDisplayMatrix(calibration [9]float32) Mat3 {
	m, _ := DisplayMatrix(calibration, MatrixFull)
	return m
}

// DisplayMatrix is ComputeDisplayMatrix with the fallback reason exposed.
func DisplayMatrix(calibration [9]float32, mode MatrixMode) (Mat3, Fallback) {
	if mode == MatrixBypass {
		return Identity3(), FallbackBypass
	}
	cal := Mat3(calibration)
	switch {
	case cal.IsZero():
		return Identity3(), FallbackUnavailable
	case !cal.IsFinite():
		return Identity3(), FallbackNonFinite
	case cal.IsNearIdentity(IdentityEpsilon):
		return Identity3(), FallbackNearIdentity
	}

	srgbToXYZ, _ := invert64(XYZToLinearSRGB.f64())
	rgbToCam, ok := normalizeRows(mul64(cal.f64(), srgbToXYZ))
	if !ok {
		return Identity3(), FallbackSingular
	}
	display, ok := invert64(rgbToCam)
	if !ok {
		return Identity3(), FallbackSingular
	}
	out := fromF64(display)
	if !out.IsFinite() {
		return Identity3(), FallbackNonFinite
	}
	return out, FallbackNone
}

// normalizeRows scales each row to sum to 1. A row summing to ~0 cannot be
// normalised and makes the whole matrix unusable.
func normalizeRows(m mat64) (mat64, bool) {
	for r := 0; r < 3; r++ {
		sum := m[r*3] + m[r*3+1] + m[r*3+2]
		if math.Abs(sum) < singularEpsilon || math.IsNaN(sum) {
			return m, false
		}
		for c := 0; c < 3; c++ {
			m[r*3+c] /= sum
		}
	}
	return m, true
}

// NeutralWhiteBalance is the multiplier set that leaves every channel as-is.
var NeutralWhiteBalance = [4]float32{1, 1, 1, 1}

// NormalizeWhiteBalance scales the raw multipliers so green is exactly 1.
// Layout of the result is (R, G, B, G2). Three-channel input gets G2 = G.
// Input without a usable green channel yields NeutralWhiteBalance.
func NormalizeWhiteBalance(coeffs []float32) [4]float32 {
	wb, _ := WhiteBalance(coeffs)
	return wb
}

// WhiteBalance is NormalizeWhiteBalance with the fallback reason exposed.
func WhiteBalance(coeffs []float32) ([4]float32, Fallback) {
	if len(coeffs) < 3 {
		return NeutralWhiteBalance, FallbackUnavailable
	}
	green := coeffs[1]
	if !usable(green) {
		return NeutralWhiteBalance, FallbackNoGreen
	}

	var raw [4]float32
	copy(raw[:], coeffs)
	if len(coeffs) == 3 || !usable(raw[3]) {
		raw[3] = green
	}

	var out [4]float32
	for i, v := range raw {
		if !usable(v) {
			out[i] = 1
			continue
		}
		out[i] = v / green
	}
	out[1] = 1
	return out, FallbackNone
}

func usable(v float32) bool {
	f := float64(v)
	return v > 0 && !math.IsNaN(f) && !math.IsInf(f, 0)
}
