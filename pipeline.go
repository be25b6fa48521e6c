package darkroom

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/darkroom/colorsci"
	"github.com/gogpu/darkroom/internal/cpu"
	"github.com/gogpu/darkroom/internal/develop"
	"github.com/gogpu/darkroom/internal/gpu"
)

// Pipeline renders one uploaded SensorFrame. It owns the frame's backend
// resources exclusively; Close releases them.
//
// All methods are safe for concurrent use, but renders and updates are
// serialised: a render sees either the parameters before or after a
// concurrent UpdateParameters, never a mix.
type Pipeline struct {
	mu  sync.Mutex
	dev *Device
	img backendImage

	u      develop.Uniforms
	params EditParameters
	view   View

	preview RenderTarget
	full    RenderTarget

	packed [develop.UniformSize]byte // block last written to img
	closed bool
}

// NewPipeline uploads frame to dev and prepares both render targets.
// wb must be normalised multipliers (see colorsci.NormalizeWhiteBalance)
// and matrix the camera-to-display transform. The frame's mosaic is not
// referenced after NewPipeline returns.
func NewPipeline(
	ctx context.Context,
	dev *Device,
	frame *SensorFrame,
	params EditParameters,
	wb [4]float32,
	matrix colorsci.Mat3,
	opts ...PipelineOption,
) (*Pipeline, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if dev == nil {
		return nil, errors.New("darkroom: nil device")
	}
	if err := frame.Validate(); err != nil {
		return nil, err
	}
	o := defaultPipelineOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if !matrix.IsFinite() {
		Logger().Warn("colour matrix is not finite, using identity")
		matrix = colorsci.Identity3()
	}

	bitDepth := frame.EffectiveBitDepth()
	p := &Pipeline{
		dev:     dev,
		params:  params.Clamp(),
		view:    DefaultView(),
		preview: PreviewTarget(frame.Width, frame.Height, o.maxPreviewWidth),
		full:    FullTarget(frame.Width, frame.Height),
	}
	p.u = develop.Uniforms{
		WhiteBalance: colorsci.NormalizeWhiteBalance(wb[:]),
		ColorMatrix:  matrix,
		WhiteScale:   frame.whiteScale(bitDepth),
		BlackLevel:   float32(frame.BlackLevel),
		CFA:          frame.Pattern.sites(),
		InputSize:    [2]uint32{uint32(frame.Width), uint32(frame.Height)},
	}
	p.applyParams()
	p.applyTarget(p.preview)
	p.u.Pack(p.packed[:])

	start := time.Now()
	img, err := dev.newImage(frame.Width, frame.Height, frame.Mosaic, p.packed[:])
	if err != nil {
		return nil, fmt.Errorf("darkroom: upload %dx%d frame: %w", frame.Width, frame.Height, err)
	}
	p.img = img

	Logger().Info("pipeline created",
		"frame", fmt.Sprintf("%dx%d", frame.Width, frame.Height),
		"pattern", frame.Pattern,
		"bits", bitDepth,
		"preview", p.preview,
		"upload", time.Since(start))
	return p, nil
}

// NewPipelineFromFrame derives the white balance and colour matrix from
// the frame's metadata and calls NewPipeline. Unusable metadata falls back
// to neutral values and is logged, never returned as an error.
func NewPipelineFromFrame(
	ctx context.Context,
	dev *Device,
	frame *SensorFrame,
	params EditParameters,
	opts ...PipelineOption,
) (*Pipeline, error) {
	if err := frame.Validate(); err != nil {
		return nil, err
	}
	o := defaultPipelineOptions()
	for _, opt := range opts {
		opt(&o)
	}

	wb, fb := colorsci.WhiteBalance(frame.WhiteBalance)
	if fb != colorsci.FallbackNone {
		Logger().Warn("white balance unusable, using neutral", "reason", fb, "coeffs", frame.WhiteBalance)
	}
	matrix, fb := colorsci.DisplayMatrix(frame.Calibration, o.matrixMode)
	switch fb {
	case colorsci.FallbackNone:
	case colorsci.FallbackBypass, colorsci.FallbackNearIdentity:
		Logger().Debug("colour matrix is identity", "reason", fb)
	default:
		Logger().Warn("calibration unusable, colour correction disabled", "reason", fb)
	}
	return NewPipeline(ctx, dev, frame, params, wb, matrix, opts...)
}

func (p *Pipeline) applyParams() {
	u, e := &p.u, p.params
	u.Exposure = e.Exposure
	u.Contrast = e.Contrast
	u.Highlights = e.Highlights
	u.Shadows = e.Shadows
	u.Whites = e.Whites
	u.Blacks = e.Blacks
	u.Vibrance = e.Vibrance
	u.Saturation = e.Saturation
	u.Temperature = e.Temperature
	u.Tint = e.Tint
}

// applyTarget sets the output size and view for t. Full renders always
// show the whole frame.
func (p *Pipeline) applyTarget(t RenderTarget) {
	p.u.OutputSize = [2]uint32{uint32(t.Width), uint32(t.Height)}
	m := Identity()
	if t.Kind == TargetPreview {
		m = p.view.Matrix()
	}
	p.u.ViewX, p.u.ViewY = m.rows()
}

// flush writes the uniform block if it differs from the last one written.
// The caller holds p.mu.
func (p *Pipeline) flush() error {
	var next [develop.UniformSize]byte
	p.u.Pack(next[:])
	if bytes.Equal(next[:], p.packed[:]) {
		return nil
	}
	if err := p.img.WriteUniforms(next[:]); err != nil {
		return p.mapErr(err)
	}
	p.packed = next
	return nil
}

// UpdateParameters replaces the edit parameters, clamped to their bounds.
// Only the uniform block is rewritten; the mosaic is never re-uploaded.
func (p *Pipeline) UpdateParameters(params EditParameters) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPipelineClosed
	}
	p.params = params.Clamp()
	p.applyParams()
	return p.flush()
}

// Parameters returns the current (clamped) parameters.
func (p *Pipeline) Parameters() EditParameters {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.params
}

// SetView sets the preview's zoom and pan. The view is clamped and takes
// effect at the next preview render. It never affects RenderFull.
func (p *Pipeline) SetView(v View) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPipelineClosed
	}
	p.view = v.Clamped()
	return nil
}

// View returns the current preview view.
func (p *Pipeline) View() View {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view
}

// PreviewTarget returns the preview target descriptor.
func (p *Pipeline) PreviewTarget() RenderTarget { return p.preview }

// FullTarget returns the native-resolution target descriptor.
func (p *Pipeline) FullTarget() RenderTarget { return p.full }

// RenderPreview renders the bounded preview with the current view.
func (p *Pipeline) RenderPreview() (*Image, error) {
	return p.Render(p.preview)
}

// RenderFull renders at native sensor resolution. It blocks for a time
// proportional to the sensor size and should not run on an interactive
// goroutine; see RenderFullAsync.
func (p *Pipeline) RenderFull() (*Image, error) {
	return p.Render(p.full)
}

// Render draws into a target of any size. Preview targets use the current
// view; full targets show the whole frame.
func (p *Pipeline) Render(t RenderTarget) (*Image, error) {
	if t.Width <= 0 || t.Height <= 0 {
		return nil, fmt.Errorf("darkroom: invalid render target %s", t)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPipelineClosed
	}

	start := time.Now()
	p.applyTarget(t)
	if err := p.flush(); err != nil {
		return nil, err
	}
	pix, err := p.img.Render(t.Width, t.Height)
	if err != nil {
		return nil, p.mapErr(err)
	}
	Logger().Debug("rendered", "target", t, "took", time.Since(start))
	return &Image{Width: t.Width, Height: t.Height, Pix: pix}, nil
}

// RenderResult is the outcome of an asynchronous render.
type RenderResult struct {
	Image *Image
	Err   error
}

// RenderFullAsync runs RenderFull on a new goroutine and delivers the
// result on the returned channel, which receives exactly one value. If ctx
// ends before the render starts the result carries ctx.Err(); a render in
// progress is not interrupted.
func (p *Pipeline) RenderFullAsync(ctx context.Context) <-chan RenderResult {
	ch := make(chan RenderResult, 1)
	go func() {
		if err := ctx.Err(); err != nil {
			ch <- RenderResult{Err: err}
			return
		}
		img, err := p.RenderFull()
		ch <- RenderResult{Image: img, Err: err}
	}()
	return ch
}

// Close releases the pipeline's backend resources. Later calls to any
// method return ErrPipelineClosed. Close is safe to call more than once.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.img.Destroy()
	p.img = nil
	Logger().Debug("pipeline closed", "frame", p.full)
	return nil
}

func (p *Pipeline) mapErr(err error) error {
	if errors.Is(err, gpu.ErrDestroyed) || errors.Is(err, cpu.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrPipelineClosed, err)
	}
	return err
}
