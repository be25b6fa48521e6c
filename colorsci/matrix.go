package colorsci

import "math"

// Mat3 is a 3x3 matrix in row-major order:
//
//	| m[0] m[1] m[2] |
//	| m[3] m[4] m[5] |
//	| m[6] m[7] m[8] |
//
// It maps a column vector v to Mat3 * v.
type Mat3 [9]float32

// Identity3 returns the 3x3 identity matrix.
func Identity3() Mat3 {
	return Mat3{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}
}

// At returns the element at row r, column c.
func (m Mat3) At(r, c int) float32 {
	return m[r*3+c]
}

// Mul returns m * other.
func (m Mat3) Mul(other Mat3) Mat3 {
	return fromF64(mul64(m.f64(), other.f64()))
}

// MulVec returns m * v. The arithmetic is float32 and matches the order the
// develop shader uses, so CPU and GPU agree on the result.
func (m Mat3) MulVec(v [3]float32) [3]float32 {
	return [3]float32{
		m[0]*v[0] + m[1]*v[1] + m[2]*v[2],
		m[3]*v[0] + m[4]*v[1] + m[5]*v[2],
		m[6]*v[0] + m[7]*v[1] + m[8]*v[2],
	}
}

// Det returns the determinant, computed in float64.
func (m Mat3) Det() float64 {
	return det64(m.f64())
}

// Invert returns the inverse of m and whether m was invertible.
// A matrix with |det| below singularEpsilon is treated as singular and
// the identity is returned with ok == false.
func (m Mat3) Invert() (inv Mat3, ok bool) {
	r, ok := invert64(m.f64())
	if !ok {
		return Identity3(), false
	}
	return fromF64(r), true
}

// IsNearIdentity reports whether every diagonal element is within eps of 1
// and every off-diagonal element is within eps of 0.
func (m Mat3) IsNearIdentity(eps float32) bool {
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			want := float32(0)
			if r == c {
				want = 1
			}
			if abs32(m[r*3+c]-want) > eps {
				return false
			}
		}
	}
	return true
}

// IsZero reports whether every element is exactly zero.
func (m Mat3) IsZero() bool {
	return m == Mat3{}
}

// IsFinite reports whether no element is NaN or infinite.
func (m Mat3) IsFinite() bool {
	for _, v := range m {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

type mat64 [9]float64

func (m Mat3) f64() mat64 {
	var r mat64
	for i, v := range m {
		r[i] = float64(v)
	}
	return r
}

func fromF64(m mat64) Mat3 {
	var r Mat3
	for i, v := range m {
		r[i] = float32(v)
	}
	return r
}

func mul64(a, b mat64) mat64 {
	var r mat64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i*3+j] = a[i*3+0]*b[0*3+j] + a[i*3+1]*b[1*3+j] + a[i*3+2]*b[2*3+j]
		}
	}
	return r
}

func det64(m mat64) float64 {
	return m[0]*(m[4]*m[8]-m[5]*m[7]) -
		m[1]*(m[3]*m[8]-m[5]*m[6]) +
		m[2]*(m[3]*m[7]-m[4]*m[6])
}

// invert64 uses the adjugate. For the identity every cofactor is an exact
// product of zeros and ones, so the result is bit-identical to the input.
func invert64(m mat64) (mat64, bool) {
	d := det64(m)
	if math.Abs(d) < singularEpsilon || math.IsNaN(d) || math.IsInf(d, 0) {
		return mat64{}, false
	}
	inv := 1 / d
	return mat64{
		(m[4]*m[8] - m[5]*m[7]) * inv,
		(m[2]*m[7] - m[1]*m[8]) * inv,
		(m[1]*m[5] - m[2]*m[4]) * inv,
		(m[5]*m[6] - m[3]*m[8]) * inv,
		(m[0]*m[8] - m[2]*m[6]) * inv,
		(m[2]*m[3] - m[0]*m[5]) * inv,
		(m[3]*m[7] - m[4]*m[6]) * inv,
		(m[1]*m[6] - m[0]*m[7]) * inv,
		(m[0]*m[4] - m[1]*m[3]) * inv,
	}, true
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
