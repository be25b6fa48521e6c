//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// renderTarget is an RGBA8 colour target plus the staging buffer it is
// copied into for readback.
type renderTarget struct {
	tex     hal.Texture
	view    hal.TextureView
	staging hal.Buffer
	width   uint32
	height  uint32
	pitch   uint32 // staging row pitch, aligned to copyPitchAlignment
}

func (t *renderTarget) stagingSize() uint64 {
	return uint64(t.pitch) * uint64(t.height)
}

func (t *renderTarget) textureSize() uint64 {
	return uint64(t.width) * uint64(t.height) * 4
}

// newRenderTarget creates the colour texture, its view and the staging
// buffer for a w x h output.
func newRenderTarget(device hal.Device, w, h uint32, label string) (*renderTarget, error) {
	t := &renderTarget{width: w, height: h, pitch: alignedBytesPerRow(w)}

	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         label + "_color",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s color texture: %w", label, err)
	}
	t.tex = tex

	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_color_view",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		t.destroy(device)
		return nil, fmt.Errorf("create %s color view: %w", label, err)
	}
	t.view = view

	staging, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: label + "_staging",
		Size:  t.stagingSize(),
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		t.destroy(device)
		return nil, fmt.Errorf("create %s staging buffer: %w", label, err)
	}
	t.staging = staging
	return t, nil
}

func (t *renderTarget) destroy(device hal.Device) {
	if t.staging != nil {
		device.DestroyBuffer(t.staging)
		t.staging = nil
	}
	if t.view != nil {
		device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.tex != nil {
		device.DestroyTexture(t.tex)
		t.tex = nil
	}
}
