//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/darkroom/internal/develop"
)

// maxTargets bounds the render targets cached per image. One preview and
// one full-resolution target cover the normal editing loop.
const maxTargets = 2

// Image holds the GPU resources of one loaded RAW frame: the mosaic
// texture, the uniform buffer and the develop pipeline bound to both.
//
// Image methods are safe for concurrent use; every GPU operation is
// serialised on the owning Device.
type Image struct {
	dev *Device

	width, height uint32

	mosaic     hal.Texture
	mosaicView hal.TextureView
	uniforms   hal.Buffer

	shader         hal.ShaderModule
	bindLayout     hal.BindGroupLayout
	pipelineLayout hal.PipelineLayout
	pipeline       hal.RenderPipeline
	bindGroup      hal.BindGroup

	targets map[[2]uint32]*renderTarget
	order   [][2]uint32 // target insertion order, oldest first

	destroyed bool
}

// NewImage uploads a width x height mosaic of 16-bit sensor values and
// builds the develop pipeline for it. uniforms is the initial packed
// uniform block.
func NewImage(d *Device, width, height int, pix []uint16, uniforms []byte) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("gpu: invalid mosaic size %dx%d", width, height)
	}
	if len(pix) != width*height {
		return nil, fmt.Errorf("gpu: mosaic has %d samples, want %d", len(pix), width*height)
	}
	if len(uniforms) != develop.UniformSize {
		return nil, fmt.Errorf("gpu: uniform block is %d bytes, want %d", len(uniforms), develop.UniformSize)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed {
		return nil, ErrDestroyed
	}
	if uint32(width) > d.maxTexture || uint32(height) > d.maxTexture {
		return nil, fmt.Errorf("%w: mosaic %dx%d exceeds %d", ErrTextureTooLarge, width, height, d.maxTexture)
	}

	img := &Image{
		dev:     d,
		width:   uint32(width),
		height:  uint32(height),
		targets: make(map[[2]uint32]*renderTarget, maxTargets),
	}
	if err := img.createMosaic(pix); err != nil {
		img.release()
		return nil, err
	}
	if err := img.createPipeline(uniforms); err != nil {
		img.release()
		return nil, err
	}
	d.mem.Images++
	slogger().Debug("image uploaded", "width", width, "height", height, "memory", d.mem)
	return img, nil
}

func (img *Image) createMosaic(pix []uint16) error {
	device := img.dev.device

	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label:         "mosaic",
		Size:          hal.Extent3D{Width: img.width, Height: img.height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatR16Uint,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return wrapHAL(ErrDeviceCreation, "create mosaic texture", err)
	}
	img.mosaic = tex
	img.dev.mem.addTexture(img.mosaicSize())

	view, err := device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "mosaic_view",
		Format:        gputypes.TextureFormatR16Uint,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		return wrapHAL(ErrDeviceCreation, "create mosaic view", err)
	}
	img.mosaicView = view

	data := make([]byte, len(pix)*2)
	for i, v := range pix {
		binary.LittleEndian.PutUint16(data[i*2:], v)
	}
	err = img.dev.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: tex, Aspect: gputypes.TextureAspectAll},
		data,
		&hal.ImageDataLayout{BytesPerRow: img.width * 2, RowsPerImage: img.height},
		&hal.Extent3D{Width: img.width, Height: img.height, DepthOrArrayLayers: 1},
	)
	if err != nil {
		return wrapHAL(ErrDeviceCreation, "upload mosaic", err)
	}
	return nil
}

func (img *Image) createPipeline(uniforms []byte) error {
	device := img.dev.device

	buf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "develop_uniforms",
		Size:  develop.UniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return wrapHAL(ErrDeviceCreation, "create uniform buffer", err)
	}
	img.uniforms = buf
	img.dev.mem.addBuffer(develop.UniformSize)
	if err := img.dev.queue.WriteBuffer(buf, 0, uniforms); err != nil {
		return wrapHAL(ErrDeviceCreation, "write uniforms", err)
	}

	shader, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "develop_shader",
		Source: hal.ShaderSource{WGSL: develop.ShaderSource()},
	})
	if err != nil {
		return wrapHAL(ErrDeviceCreation, "compile develop shader", err)
	}
	img.shader = shader

	bgl, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "develop_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    develop.BindingUniforms,
				Visibility: gputypes.ShaderStageFragment,
				Buffer: &gputypes.BufferBindingLayout{
					Type:           gputypes.BufferBindingTypeUniform,
					MinBindingSize: develop.UniformSize,
				},
			},
			{
				Binding:    develop.BindingMosaic,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeUint,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
		},
	})
	if err != nil {
		return wrapHAL(ErrDeviceCreation, "create bind group layout", err)
	}
	img.bindLayout = bgl

	pl, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "develop_pipeline_layout",
		BindGroupLayouts: []hal.BindGroupLayout{bgl},
	})
	if err != nil {
		return wrapHAL(ErrDeviceCreation, "create pipeline layout", err)
	}
	img.pipelineLayout = pl

	pipeline, err := device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "develop_pipeline",
		Layout: pl,
		Vertex: hal.VertexState{
			Module:     shader,
			EntryPoint: develop.VertexEntry,
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		Fragment: &hal.FragmentState{
			Module:     shader,
			EntryPoint: develop.FragmentEntry,
			Targets: []gputypes.ColorTargetState{{
				Format:    gputypes.TextureFormatRGBA8Unorm,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
	})
	if err != nil {
		return wrapHAL(ErrDeviceCreation, "create develop pipeline", err)
	}
	img.pipeline = pipeline

	bg, err := device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "develop_bind_group",
		Layout: bgl,
		Entries: []gputypes.BindGroupEntry{
			{
				Binding: develop.BindingUniforms,
				Resource: gputypes.BufferBinding{
					Buffer: buf.NativeHandle(),
					Size:   develop.UniformSize,
				},
			},
			{
				Binding:  develop.BindingMosaic,
				Resource: gputypes.TextureViewBinding{TextureView: img.mosaicView.NativeHandle()},
			},
		},
	})
	if err != nil {
		return wrapHAL(ErrDeviceCreation, "create bind group", err)
	}
	img.bindGroup = bg
	return nil
}

// Size returns the mosaic dimensions.
func (img *Image) Size() (width, height int) {
	return int(img.width), int(img.height)
}

// WriteUniforms replaces the uniform block used by subsequent renders.
func (img *Image) WriteUniforms(b []byte) error {
	if len(b) != develop.UniformSize {
		return fmt.Errorf("gpu: uniform block is %d bytes, want %d", len(b), develop.UniformSize)
	}
	d := img.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := img.usable(); err != nil {
		return err
	}
	if err := d.queue.WriteBuffer(img.uniforms, 0, b); err != nil {
		return wrapHAL(ErrDeviceLost, "write uniforms", err)
	}
	return nil
}

// Render runs the develop pipeline into a width x height RGBA8 target and
// returns its tightly packed pixels.
func (img *Image) Render(width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("gpu: invalid output size %dx%d", width, height)
	}
	d := img.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := img.usable(); err != nil {
		return nil, err
	}
	if uint32(width) > d.maxTexture || uint32(height) > d.maxTexture {
		return nil, fmt.Errorf("%w: output %dx%d exceeds %d", ErrTextureTooLarge, width, height, d.maxTexture)
	}

	target, err := img.target(uint32(width), uint32(height))
	if err != nil {
		return nil, err
	}
	if err := img.encodeSubmit(target); err != nil {
		return nil, err
	}
	return d.readStaging(target)
}

// target returns the cached render target for w x h, creating it and
// evicting the oldest one when the cache is full.
func (img *Image) target(w, h uint32) (*renderTarget, error) {
	key := [2]uint32{w, h}
	if t, ok := img.targets[key]; ok {
		return t, nil
	}
	if len(img.order) >= maxTargets {
		oldest := img.order[0]
		img.order = img.order[1:]
		img.destroyTarget(img.targets[oldest])
		delete(img.targets, oldest)
	}
	t, err := newRenderTarget(img.dev.device, w, h, fmt.Sprintf("develop_%dx%d", w, h))
	if err != nil {
		return nil, wrapHAL(ErrDeviceCreation, "create render target", err)
	}
	img.targets[key] = t
	img.order = append(img.order, key)
	img.dev.mem.addTexture(t.textureSize())
	img.dev.mem.addBuffer(t.stagingSize())
	return t, nil
}

func (img *Image) destroyTarget(t *renderTarget) {
	img.dev.mem.removeTexture(t.textureSize())
	img.dev.mem.removeBuffer(t.stagingSize())
	t.destroy(img.dev.device)
}

func (img *Image) mosaicSize() uint64 {
	return uint64(img.width) * uint64(img.height) * 2
}

// encodeSubmit records the develop pass and the staging copy, submits
// them and waits for completion.
func (img *Image) encodeSubmit(t *renderTarget) error {
	device := img.dev.device

	encoder, err := device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "develop_encoder"})
	if err != nil {
		return wrapHAL(ErrDeviceLost, "create command encoder", err)
	}
	defer encoder.Destroy()
	if err := encoder.BeginEncoding("develop_frame"); err != nil {
		return wrapHAL(ErrDeviceLost, "begin encoding", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "develop_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       t.view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})
	rp.SetPipeline(img.pipeline)
	rp.SetBindGroup(0, img.bindGroup, nil)
	rp.Draw(3, 1, 0, 0)
	rp.End()

	// The colour target is left in attachment layout by the pass.
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(t.tex, t.staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{
			BytesPerRow:  t.pitch,
			RowsPerImage: t.height,
		},
		TextureBase: hal.ImageCopyTexture{
			Texture: t.tex,
			Aspect:  gputypes.TextureAspectAll,
		},
		Size: hal.Extent3D{Width: t.width, Height: t.height, DepthOrArrayLayers: 1},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return wrapHAL(ErrDeviceLost, "end encoding", err)
	}
	defer device.FreeCommandBuffer(cmdBuf)

	return img.dev.submit(cmdBuf)
}

func (img *Image) usable() error {
	if img.destroyed {
		return ErrDestroyed
	}
	if img.dev.destroyed {
		return ErrDeviceLost
	}
	return nil
}

// Destroy releases every GPU resource of the image. It is safe to call
// more than once and after the device is gone.
func (img *Image) Destroy() {
	d := img.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	if img.destroyed {
		return
	}
	img.destroyed = true
	if d.destroyed {
		return
	}
	img.release()
	d.mem.Images--
}

// release destroys whatever resources exist. The caller holds the device
// lock.
func (img *Image) release() {
	device := img.dev.device
	for _, key := range img.order {
		img.destroyTarget(img.targets[key])
	}
	img.targets, img.order = nil, nil
	if img.bindGroup != nil {
		device.DestroyBindGroup(img.bindGroup)
		img.bindGroup = nil
	}
	if img.pipeline != nil {
		device.DestroyRenderPipeline(img.pipeline)
		img.pipeline = nil
	}
	if img.pipelineLayout != nil {
		device.DestroyPipelineLayout(img.pipelineLayout)
		img.pipelineLayout = nil
	}
	if img.bindLayout != nil {
		device.DestroyBindGroupLayout(img.bindLayout)
		img.bindLayout = nil
	}
	if img.shader != nil {
		device.DestroyShaderModule(img.shader)
		img.shader = nil
	}
	if img.uniforms != nil {
		img.dev.mem.removeBuffer(develop.UniformSize)
		device.DestroyBuffer(img.uniforms)
		img.uniforms = nil
	}
	if img.mosaicView != nil {
		device.DestroyTextureView(img.mosaicView)
		img.mosaicView = nil
	}
	if img.mosaic != nil {
		img.dev.mem.removeTexture(img.mosaicSize())
		device.DestroyTexture(img.mosaic)
		img.mosaic = nil
	}
}
