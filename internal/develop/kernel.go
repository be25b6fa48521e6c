package develop

import "math"

// CFA channel codes as stored in Uniforms.CFA.
const (
	Red    uint32 = 0
	Green  uint32 = 1
	Blue   uint32 = 2
	Green2 uint32 = 3 // second green site of the cell
)

// RGB is a linear or display-referred colour triple.
type RGB [3]float32

// Mosaic is a single-channel sensor readout.
type Mosaic struct {
	Width  int
	Height int
	Pix    []uint16 // row-major, len == Width*Height
}

var luma = RGB{0.2126, 0.7152, 0.0722}

const (
	gammaExp    = float32(1.0 / 2.2)
	levelsFloor = float32(1e-5)
)

// Kernel runs the develop shader on the CPU. It follows develop.wgsl
// operation by operation so the software backend and the GPU agree to
// within float rounding.
type Kernel struct {
	u    Uniforms
	gain float32 // exp2(exposure)
}

// NewKernel prepares a kernel for the given uniform block.
func NewKernel(u Uniforms) *Kernel {
	return &Kernel{
		u:    u,
		gain: float32(math.Exp2(float64(u.Exposure))),
	}
}

// Uniforms returns the block the kernel was built from.
func (k *Kernel) Uniforms() Uniforms { return k.u }

// SourceTexel maps an output pixel to the mosaic texel it samples.
func (k *Kernel) SourceTexel(ox, oy int) (x, y int) {
	u := &k.u
	ux := (float32(ox) + 0.5) / float32(u.OutputSize[0])
	uy := (float32(oy) + 0.5) / float32(u.OutputSize[1])
	ix := u.ViewX[0]*ux + u.ViewX[1]*uy + u.ViewX[2]
	iy := u.ViewY[0]*ux + u.ViewY[1]*uy + u.ViewY[2]
	return texelIndex(ix, u.InputSize[0]), texelIndex(iy, u.InputSize[1])
}

func texelIndex(uv float32, size uint32) int {
	s := float32(size)
	v := float32(math.Floor(float64(uv * s)))
	v = min(max(v, 0), s-1)
	return int(v)
}

func channelMask(code uint32) RGB {
	var m RGB
	switch code {
	case Red:
		m[0] = 1
	case Green, Green2:
		m[1] = 1
	case Blue:
		m[2] = 1
	}
	return m
}

func (k *Kernel) siteValue(m *Mosaic, x, y int, code uint32) float32 {
	raw := float32(m.Pix[y*m.Width+x])
	v := max(raw-k.u.BlackLevel, 0) / k.u.WhiteScale
	if code == Green2 {
		return v * k.u.WhiteBalance[3] / k.u.WhiteBalance[1]
	}
	return v
}

// Debayer reconstructs linear camera RGB at texel (x, y) from the 2x2 CFA
// cell containing it. The pixel's own channel is taken as-is; the other
// channels are the mean of the cell sites of that colour. Sites beyond the
// right or bottom edge clamp to the last row or column.
func (k *Kernel) Debayer(m *Mosaic, x, y int) RGB {
	cfa := k.u.CFA
	maxX, maxY := m.Width-1, m.Height-1
	cx, cy := x-(x&1), y-(y&1)

	v0 := k.siteValue(m, cx, cy, cfa[0])
	v1 := k.siteValue(m, min(cx+1, maxX), cy, cfa[1])
	v2 := k.siteValue(m, cx, min(cy+1, maxY), cfa[2])
	v3 := k.siteValue(m, min(cx+1, maxX), min(cy+1, maxY), cfa[3])

	m0, m1, m2, m3 := channelMask(cfa[0]), channelMask(cfa[1]), channelMask(cfa[2]), channelMask(cfa[3])

	ownCode := cfa[(y&1)*2+(x&1)]
	own := k.siteValue(m, x, y, ownCode)
	t := channelMask(ownCode)

	var out RGB
	for i := range out {
		sum := v0*m0[i] + v1*m1[i] + v2*m2[i] + v3*m3[i]
		count := m0[i] + m1[i] + m2[i] + m3[i]
		avg := sum / max(count, 1)
		out[i] = avg*(1-t[i]) + own*t[i]
	}
	return out
}

// WhiteBalance applies the multipliers with the temperature and tint shifts.
func (k *Kernel) WhiteBalance(c RGB) RGB {
	u := &k.u
	t := 0.25 * u.Temperature
	return RGB{
		c[0] * u.WhiteBalance[0] * (1 + t),
		c[1] * u.WhiteBalance[1] * (1 - 0.25*u.Tint),
		c[2] * u.WhiteBalance[2] * (1 - t),
	}
}

// ColorMatrix converts camera RGB to linear display RGB.
func (k *Kernel) ColorMatrix(c RGB) RGB {
	return k.u.ColorMatrix.MulVec(c)
}

// Exposure scales by 2^exposure.
func (k *Kernel) Exposure(c RGB) RGB {
	return c.scale(k.gain)
}

// HighlightsShadows scales by a luminance-weighted factor: highlights act
// in proportion to luminance, shadows in proportion to 1 - luminance.
func (k *Kernel) HighlightsShadows(c RGB) RGB {
	l := min(max(c.dot(luma), 0), 1)
	f := max(1+0.5*k.u.Highlights*l+0.5*k.u.Shadows*(1-l), 0)
	return c.scale(f)
}

// Contrast pivots around mid grey: (c - 0.5)(1 + k) + 0.5.
func (k *Kernel) Contrast(c RGB) RGB {
	ct := k.u.Contrast
	for i := range c {
		c[i] = c[i]*(1+ct) - 0.5*ct
	}
	return c
}

// Levels remaps [black point, white point] to [0, 1].
func (k *Kernel) Levels(c RGB) RGB {
	bp := -0.1 * k.u.Blacks
	wp := 1 - 0.1*k.u.Whites
	den := max(wp-bp, levelsFloor)
	for i := range c {
		c[i] = (c[i] - bp) / den
	}
	return c
}

// Saturation interpolates between luminance and the colour. Vibrance adds
// more saturation to low-chroma colours than to already saturated ones.
func (k *Kernel) Saturation(c RGB) RGB {
	l := c.dot(luma)
	chroma := min(max(max(c[0], c[1], c[2])-min(c[0], c[1], c[2]), 0), 1)
	f := max(1+k.u.Saturation+k.u.Vibrance*(1-chroma), 0)
	for i := range c {
		c[i] = l*(1-f) + c[i]*f
	}
	return c
}

// Gamma encodes linear values for display.
func Gamma(c RGB) RGB {
	for i := range c {
		c[i] = float32(math.Pow(float64(max(c[i], 0)), float64(gammaExp)))
	}
	return c
}

// Clamp limits every channel to [0, 1].
func Clamp(c RGB) RGB {
	for i := range c {
		c[i] = min(max(c[i], 0), 1)
	}
	return c
}

// Tone runs every stage after debayering, in shader order.
func (k *Kernel) Tone(c RGB) RGB {
	c = k.WhiteBalance(c)
	c = k.ColorMatrix(c)
	c = k.Exposure(c)
	c = k.HighlightsShadows(c)
	c = k.Contrast(c)
	c = k.Levels(c)
	c = k.Saturation(c)
	return Clamp(Gamma(c))
}

// Shade computes the RGBA8 value of output pixel (ox, oy).
func (k *Kernel) Shade(m *Mosaic, ox, oy int) [4]uint8 {
	x, y := k.SourceTexel(ox, oy)
	return ToRGBA8(k.Tone(k.Debayer(m, x, y)))
}

// ShadeRows writes output rows [y0, y1) into dst, a tightly packed RGBA8
// buffer of OutputSize.
func (k *Kernel) ShadeRows(m *Mosaic, dst []byte, y0, y1 int) {
	w := int(k.u.OutputSize[0])
	for y := y0; y < y1; y++ {
		row := dst[y*w*4 : (y+1)*w*4]
		for x := 0; x < w; x++ {
			px := k.Shade(m, x, y)
			copy(row[x*4:x*4+4], px[:])
		}
	}
}

// ToRGBA8 quantises a [0,1] colour the way a unorm8 render target does.
func ToRGBA8(c RGB) [4]uint8 {
	return [4]uint8{unorm8(c[0]), unorm8(c[1]), unorm8(c[2]), 255}
}

func unorm8(v float32) uint8 {
	return uint8(min(max(v, 0), 1)*255 + 0.5)
}

func (c RGB) dot(o RGB) float32 {
	return c[0]*o[0] + c[1]*o[1] + c[2]*o[2]
}

func (c RGB) scale(f float32) RGB {
	return RGB{c[0] * f, c[1] * f, c[2] * f}
}
