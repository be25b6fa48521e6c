//go:build !nogpu

package gpu

import (
	"fmt"
	"unsafe"
)

// copyPitchAlignment is the WebGPU (and DX12) row alignment for
// texture-to-buffer copies.
const copyPitchAlignment = 256

// alignedBytesPerRow returns the padded row pitch of an RGBA8 readback.
func alignedBytesPerRow(width uint32) uint32 {
	bytesPerRow := width * 4
	return (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
}

// stripRowPadding copies rows of rowBytes from src, whose rows are pitch
// bytes apart, into the tightly packed dst.
func stripRowPadding(dst, src []byte, rowBytes, pitch, rows int) {
	if rowBytes == pitch {
		copy(dst[:rowBytes*rows], src)
		return
	}
	for y := 0; y < rows; y++ {
		copy(dst[y*rowBytes:(y+1)*rowBytes], src[y*pitch:y*pitch+rowBytes])
	}
}

// readStaging maps the staging buffer of t and returns its pixels without
// row padding. The caller holds the device lock and the copy has completed.
func (d *Device) readStaging(t *renderTarget) ([]byte, error) {
	size := t.stagingSize()
	mapping, err := d.device.MapBuffer(t.staging, 0, size)
	if err != nil {
		return nil, wrapHAL(ErrReadback, "map staging buffer", err)
	}
	if mapping.Ptr == nil {
		_ = d.device.UnmapBuffer(t.staging)
		return nil, fmt.Errorf("%w: staging buffer mapped to nil", ErrReadback)
	}
	src := unsafe.Slice((*byte)(mapping.Ptr), size)

	rowBytes := int(t.width) * 4
	out := make([]byte, rowBytes*int(t.height))
	stripRowPadding(out, src, rowBytes, int(t.pitch), int(t.height))

	if err := d.device.UnmapBuffer(t.staging); err != nil {
		return nil, wrapHAL(ErrReadback, "unmap staging buffer", err)
	}
	return out, nil
}
