package darkroom

// Parameter bounds. Exposure is in stops; everything else is a signed
// unit amount.
const (
	ExposureLimit = 5
	AmountLimit   = 1
)

// EditParameters is a full snapshot of the user's adjustments. The zero
// value changes nothing. EditParameters is comparable with ==.
type EditParameters struct {
	Exposure    float32 `json:"exposure"`
	Contrast    float32 `json:"contrast"`
	Highlights  float32 `json:"highlights"`
	Shadows     float32 `json:"shadows"`
	Whites      float32 `json:"whites"`
	Blacks      float32 `json:"blacks"`
	Vibrance    float32 `json:"vibrance"`
	Saturation  float32 `json:"saturation"`
	Temperature float32 `json:"temperature"`
	Tint        float32 `json:"tint"`
}

// Clamp returns p with every value inside its bound. NaN becomes 0.
func (p EditParameters) Clamp() EditParameters {
	return EditParameters{
		Exposure:    clampParam(p.Exposure, ExposureLimit),
		Contrast:    clampParam(p.Contrast, AmountLimit),
		Highlights:  clampParam(p.Highlights, AmountLimit),
		Shadows:     clampParam(p.Shadows, AmountLimit),
		Whites:      clampParam(p.Whites, AmountLimit),
		Blacks:      clampParam(p.Blacks, AmountLimit),
		Vibrance:    clampParam(p.Vibrance, AmountLimit),
		Saturation:  clampParam(p.Saturation, AmountLimit),
		Temperature: clampParam(p.Temperature, AmountLimit),
		Tint:        clampParam(p.Tint, AmountLimit),
	}
}

// IsDefault reports whether p is the no-op snapshot.
func (p EditParameters) IsDefault() bool {
	return p == EditParameters{}
}

func clampParam(v, limit float32) float32 {
	if v != v {
		return 0
	}
	return min(max(v, -limit), limit)
}
