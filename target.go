package darkroom

import "fmt"

// TargetKind distinguishes the two render targets of a pipeline.
type TargetKind uint8

const (
	// TargetPreview is the bounded interactive target.
	TargetPreview TargetKind = iota

	// TargetFull is the native sensor resolution.
	TargetFull
)

// String returns "preview" or "full".
func (k TargetKind) String() string {
	if k == TargetFull {
		return "full"
	}
	return "preview"
}

// RenderTarget describes an output framebuffer.
type RenderTarget struct {
	Kind   TargetKind
	Width  int
	Height int
}

func (t RenderTarget) String() string {
	return fmt.Sprintf("%s %dx%d", t.Kind, t.Width, t.Height)
}

// PreviewTarget returns the preview target for a width x height frame:
// at most maxWidth columns, aspect preserved, never larger than the frame.
func PreviewTarget(width, height, maxWidth int) RenderTarget {
	if maxWidth <= 0 || width <= maxWidth {
		return RenderTarget{Kind: TargetPreview, Width: width, Height: height}
	}
	h := (height*maxWidth + width/2) / width
	return RenderTarget{Kind: TargetPreview, Width: maxWidth, Height: max(h, 1)}
}

// FullTarget returns the native-resolution target.
func FullTarget(width, height int) RenderTarget {
	return RenderTarget{Kind: TargetFull, Width: width, Height: height}
}
