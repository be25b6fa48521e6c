package darkroom

import (
	"math"
	"testing"
)

func TestEditParametersClamp(t *testing.T) {
	nan := float32(math.NaN())
	in := EditParameters{
		Exposure:    7,
		Contrast:    -3,
		Highlights:  0.5,
		Shadows:     nan,
		Whites:      1,
		Blacks:      -1.0001,
		Vibrance:    float32(math.Inf(1)),
		Saturation:  -0.25,
		Temperature: 2,
		Tint:        -2,
	}
	want := EditParameters{
		Exposure:    5,
		Contrast:    -1,
		Highlights:  0.5,
		Shadows:     0,
		Whites:      1,
		Blacks:      -1,
		Vibrance:    1,
		Saturation:  -0.25,
		Temperature: 1,
		Tint:        -1,
	}
	if got := in.Clamp(); got != want {
		t.Errorf("Clamp() = %+v, want %+v", got, want)
	}
}

func TestEditParametersClampKeepsInRange(t *testing.T) {
	p := EditParameters{Exposure: -4.5, Contrast: 0.3, Tint: -0.7}
	if got := p.Clamp(); got != p {
		t.Errorf("Clamp() changed in-range values: %+v", got)
	}
}

func TestEditParametersIsDefault(t *testing.T) {
	if !(EditParameters{}).IsDefault() {
		t.Error("zero value is not default")
	}
	if (EditParameters{Vibrance: 0.01}).IsDefault() {
		t.Error("non-zero vibrance reported as default")
	}
}
