package darkroom

import (
	"math"
	"testing"
)

func pointNear(a, b Point, eps float64) bool {
	return math.Abs(a.X-b.X) <= eps && math.Abs(a.Y-b.Y) <= eps
}

func TestMatrixMultiplyOrder(t *testing.T) {
	// Multiply applies the right operand first.
	m := Translate(10, 20).Multiply(Scale(2, 3))
	got := m.TransformPoint(Point{1, 1})
	if want := (Point{12, 23}); got != want {
		t.Errorf("TransformPoint = %v, want %v", got, want)
	}
}

func TestMatrixInvert(t *testing.T) {
	tests := []struct {
		name string
		m    Matrix
	}{
		{"identity", Identity()},
		{"translate", Translate(-3, 7)},
		{"scale", Scale(0.25, 4)},
		{"view", DefaultView().Matrix()},
		{"zoomed view", View{Zoom: 3, CenterX: 0.2, CenterY: 0.8}.Matrix()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Point{0.3, 0.9}
			back := tt.m.Invert().TransformPoint(tt.m.TransformPoint(p))
			if !pointNear(back, p, 1e-12) {
				t.Errorf("Invert round trip = %v, want %v", back, p)
			}
		})
	}
}

func TestMatrixInvertSingular(t *testing.T) {
	if got := (Matrix{}).Invert(); !got.IsIdentity() {
		t.Errorf("Invert(zero) = %+v, want identity", got)
	}
}

func TestMatrixRows(t *testing.T) {
	x, y := Matrix{A: 1, B: 2, C: 3, D: 4, E: 5, F: 6}.rows()
	if x != [3]float32{1, 2, 3} || y != [3]float32{4, 5, 6} {
		t.Errorf("rows() = %v %v", x, y)
	}
}
