// Package darkroom develops RAW sensor data into display-ready images on
// the GPU.
//
// # Overview
//
// A [SensorFrame] produced by an external RAW decoder is uploaded once to a
// [Device] as a 16-bit mosaic texture. A [Pipeline] then renders it through
// a fixed develop program (debayer, white balance, colour matrix, tone
// adjustments, gamma) into RGBA8 buffers. Edits only rewrite a small
// uniform block, so interactive responsiveness does not depend on sensor
// resolution.
//
// # Quick Start
//
//	dev, err := darkroom.OpenDevice(ctx)
//	if err != nil {
//	    return err
//	}
//	defer dev.Close()
//
//	p, err := darkroom.NewPipelineFromFrame(ctx, dev, frame, darkroom.EditParameters{})
//	if err != nil {
//	    return err
//	}
//	defer p.Close()
//
//	p.UpdateParameters(darkroom.EditParameters{Exposure: 0.7, Contrast: 0.2})
//	preview, err := p.RenderPreview()
//
// # Render targets
//
// Every pipeline has two targets: a preview bounded to
// [DefaultMaxPreviewWidth] columns and the full sensor resolution. Both
// share the same texture and shader; only the framebuffer size differs.
// [Pipeline.RenderFull] blocks until the GPU copy completes and belongs on
// a worker goroutine; [Pipeline.RenderFullAsync] does that for you.
//
// # Backends
//
// [OpenDevice] uses a Vulkan adapter through gogpu/wgpu (pure Go, no CGO)
// and falls back to the software renderer unless that is disabled. Builds
// with the nogpu tag contain only the software renderer. Both backends run
// the same program and agree to within rounding.
//
// # Editor
//
// [Editor] owns the single authoritative pipeline of the image currently
// being edited and moves through the [NoSelection], [Loading], [Ready] and
// [Failed] states as images are selected.
package darkroom

// Version is the library version.
const Version = "0.1.0"
