package cpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/darkroom/internal/develop"
	"github.com/gogpu/darkroom/internal/parallel"
)

// ErrClosed is returned by operations on a closed renderer or image.
var ErrClosed = errors.New("cpu: closed")

// Renderer owns the worker pool shared by every image it creates.
type Renderer struct {
	pool *parallel.WorkerPool
}

// NewRenderer starts a renderer with the given number of workers.
// workers <= 0 uses GOMAXPROCS.
func NewRenderer(workers int) *Renderer {
	r := &Renderer{pool: parallel.NewWorkerPool(workers)}
	slogger().Debug("software renderer started", "workers", r.pool.Workers())
	return r
}

// Workers returns the number of render workers.
func (r *Renderer) Workers() int { return r.pool.Workers() }

// Close stops the worker pool. Images still alive render on the caller's
// goroutine afterwards.
func (r *Renderer) Close() { r.pool.Close() }

// Image is a mosaic held in host memory together with its current
// uniform block.
type Image struct {
	r *Renderer

	mu       sync.Mutex
	mosaic   develop.Mosaic
	uniforms develop.Uniforms
	closed   bool
}

// NewImage copies a width x height mosaic. uniforms is the initial packed
// uniform block.
func (r *Renderer) NewImage(width, height int, pix []uint16, uniforms []byte) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("cpu: invalid mosaic size %dx%d", width, height)
	}
	if len(pix) != width*height {
		return nil, fmt.Errorf("cpu: mosaic has %d samples, want %d", len(pix), width*height)
	}
	if len(uniforms) != develop.UniformSize {
		return nil, fmt.Errorf("cpu: uniform block is %d bytes, want %d", len(uniforms), develop.UniformSize)
	}
	return &Image{
		r: r,
		mosaic: develop.Mosaic{
			Width:  width,
			Height: height,
			Pix:    append([]uint16(nil), pix...),
		},
		uniforms: develop.Unpack(uniforms),
	}, nil
}

// Size returns the mosaic dimensions.
func (img *Image) Size() (width, height int) {
	return img.mosaic.Width, img.mosaic.Height
}

// WriteUniforms replaces the uniform block used by subsequent renders.
func (img *Image) WriteUniforms(b []byte) error {
	if len(b) != develop.UniformSize {
		return fmt.Errorf("cpu: uniform block is %d bytes, want %d", len(b), develop.UniformSize)
	}
	img.mu.Lock()
	defer img.mu.Unlock()
	if img.closed {
		return ErrClosed
	}
	img.uniforms = develop.Unpack(b)
	return nil
}

// Render shades a width x height RGBA8 frame. The output size always
// follows the request, whatever the uniform block says.
func (img *Image) Render(width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("cpu: invalid output size %dx%d", width, height)
	}
	img.mu.Lock()
	if img.closed {
		img.mu.Unlock()
		return nil, ErrClosed
	}
	u, m := img.uniforms, img.mosaic
	img.mu.Unlock()

	u.OutputSize = [2]uint32{uint32(width), uint32(height)}
	k := develop.NewKernel(u)
	out := make([]byte, width*height*4)
	img.r.pool.ForRows(height, func(y0, y1 int) {
		k.ShadeRows(&m, out, y0, y1)
	})
	return out, nil
}

// Destroy releases the mosaic. It is safe to call more than once.
func (img *Image) Destroy() {
	img.mu.Lock()
	defer img.mu.Unlock()
	img.closed = true
	img.mosaic.Pix = nil
}
