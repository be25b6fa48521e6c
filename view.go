package darkroom

import "math"

// MaxZoom is the largest zoom factor a clamped View allows.
const MaxZoom = 64

// View selects the part of the frame shown in the preview. Zoom 1 shows
// the whole frame; Zoom 2 shows half of it in each direction. CenterX and
// CenterY give the normalised frame position at the middle of the target.
//
// The zero View is treated as DefaultView.
type View struct {
	Zoom    float64
	CenterX float64
	CenterY float64
}

// DefaultView shows the whole frame.
func DefaultView() View {
	return View{Zoom: 1, CenterX: 0.5, CenterY: 0.5}
}

func (v View) normalized() View {
	if !(v.Zoom > 0) || math.IsInf(v.Zoom, 0) {
		return DefaultView()
	}
	return v
}

// Matrix returns the transform from target coordinates to frame
// coordinates, both normalised.
func (v View) Matrix() Matrix {
	v = v.normalized()
	s := 1 / v.Zoom
	// frame = center + (target - 0.5) / zoom
	return Translate(v.CenterX, v.CenterY).
		Multiply(Scale(s, s)).
		Multiply(Translate(-0.5, -0.5))
}

// ViewToImage maps a normalised target position to the frame.
func (v View) ViewToImage(p Point) Point {
	return v.Matrix().TransformPoint(p)
}

// ImageToView maps a normalised frame position to the target.
func (v View) ImageToView(p Point) Point {
	return v.Matrix().Invert().TransformPoint(p)
}

// Clamped limits Zoom to [1, MaxZoom] and moves the centre so the visible
// window stays inside the frame.
func (v View) Clamped() View {
	v = v.normalized()
	v.Zoom = min(max(v.Zoom, 1), MaxZoom)
	half := 0.5 / v.Zoom
	v.CenterX = clampFloat(v.CenterX, half, 1-half)
	v.CenterY = clampFloat(v.CenterY, half, 1-half)
	return v
}

// ZoomAt multiplies the zoom by factor keeping the frame point under the
// target position at stays fixed. The result is clamped.
func (v View) ZoomAt(factor float64, at Point) View {
	v = v.normalized()
	if !(factor > 0) {
		return v.Clamped()
	}
	anchor := v.ViewToImage(at)
	zoom := min(max(v.Zoom*factor, 1), MaxZoom)
	return View{
		Zoom:    zoom,
		CenterX: anchor.X - (at.X-0.5)/zoom,
		CenterY: anchor.Y - (at.Y-0.5)/zoom,
	}.Clamped()
}

// PanBy drags the frame by (dx, dy) in normalised target units: a
// positive dx moves the content right. The result is clamped.
func (v View) PanBy(dx, dy float64) View {
	v = v.normalized()
	v.CenterX -= dx / v.Zoom
	v.CenterY -= dy / v.Zoom
	return v.Clamped()
}

// PixelZoom returns the zoom at which one frame pixel covers one target
// pixel.
func PixelZoom(frameWidth, targetWidth int) float64 {
	if frameWidth <= 0 || targetWidth <= 0 {
		return 1
	}
	return max(float64(frameWidth)/float64(targetWidth), 1)
}

func clampFloat(v, lo, hi float64) float64 {
	if v != v {
		return (lo + hi) / 2
	}
	return math.Min(math.Max(v, lo), hi)
}
