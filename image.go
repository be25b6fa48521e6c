package darkroom

import "image"

// Image is a rendered frame: tightly packed RGBA8 rows with no padding.
// Alpha is always 255.
type Image struct {
	Width  int
	Height int
	Pix    []byte // len == Width*Height*4
}

// Stride returns the row length in bytes.
func (img *Image) Stride() int { return img.Width * 4 }

// RGBA wraps the pixels as an *image.RGBA without copying, for use with
// the image encoders.
func (img *Image) RGBA() *image.RGBA {
	return &image.RGBA{
		Pix:    img.Pix,
		Stride: img.Stride(),
		Rect:   image.Rect(0, 0, img.Width, img.Height),
	}
}

// Histogram counts the image's pixels per channel value.
func (img *Image) Histogram() Histogram {
	return ComputeHistogram(img.Pix)
}
