package darkroom

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/darkroom/internal/cpu"
)

// backendImage is the per-image state a backend keeps: the uploaded
// mosaic, its uniform block and whatever is needed to render it.
type backendImage interface {
	WriteUniforms(b []byte) error
	Render(width, height int) ([]byte, error)
	Destroy()
}

type backend interface {
	newImage(width, height int, pix []uint16, uniforms []byte) (backendImage, error)
	name() string
	memory() MemoryStats
	close()
}

// MemoryStats counts the GPU textures and buffers held by the live images
// of a device. The software renderer reports zeros.
type MemoryStats struct {
	Images       int
	Textures     int
	TextureBytes uint64
	Buffers      int
	BufferBytes  uint64
}

// TotalBytes returns texture plus buffer bytes.
func (s MemoryStats) TotalBytes() uint64 { return s.TextureBytes + s.BufferBytes }

// Device is the long-lived renderer shared by all pipelines of a process.
// Create it once, pass it to NewPipeline and Close it last.
type Device struct {
	kind BackendKind
	b    backend

	mu     sync.Mutex
	closed bool
}

// OpenDevice acquires a renderer. Adapter selection and device creation
// run on their own goroutine; if ctx ends first OpenDevice returns
// ctx.Err() and the late device is released.
//
// With BackendAuto (the default) a GPU failure falls back to the software
// renderer; with BackendGPU it is returned as ErrBackendUnavailable,
// ErrAdapterNotFound or ErrDeviceCreation.
func OpenDevice(ctx context.Context, opts ...DeviceOption) (*Device, error) {
	o := defaultDeviceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.backend == BackendSoftware {
		return newSoftwareDevice(o), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type result struct {
		b   backend
		err error
	}
	ch := make(chan result, 1)
	go func() {
		b, err := openGPU(o)
		ch <- result{b, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			if o.backend == BackendAuto {
				Logger().Warn("GPU unavailable, using software renderer", "err", r.err)
				return newSoftwareDevice(o), nil
			}
			return nil, r.err
		}
		Logger().Info("device opened", "backend", BackendGPU, "adapter", r.b.name())
		return &Device{kind: BackendGPU, b: r.b}, nil
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.err == nil {
				r.b.close()
			}
		}()
		return nil, ctx.Err()
	}
}

// NewSoftwareDevice returns a device that renders on the CPU. Only
// WithWorkers applies.
func NewSoftwareDevice(opts ...DeviceOption) *Device {
	o := defaultDeviceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return newSoftwareDevice(o)
}

func newSoftwareDevice(o deviceOptions) *Device {
	d := &Device{kind: BackendSoftware, b: cpuBackend{r: cpu.NewRenderer(o.workers)}}
	Logger().Info("device opened", "backend", BackendSoftware, "adapter", d.b.name())
	return d
}

// Kind returns BackendGPU or BackendSoftware.
func (d *Device) Kind() BackendKind { return d.kind }

// Name returns the adapter name.
func (d *Device) Name() string { return d.b.name() }

// MemoryStats returns the GPU allocations of the images open on d.
func (d *Device) MemoryStats() MemoryStats { return d.b.memory() }

// Close releases the device. Pipelines still open on it fail their next
// GPU render with ErrDeviceLost. Close is safe to call more than once.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	d.b.close()
}

func (d *Device) newImage(width, height int, pix []uint16, uniforms []byte) (backendImage, error) {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return nil, ErrDeviceClosed
	}
	return d.b.newImage(width, height, pix, uniforms)
}

type cpuBackend struct {
	r *cpu.Renderer
}

func (c cpuBackend) newImage(width, height int, pix []uint16, uniforms []byte) (backendImage, error) {
	img, err := c.r.NewImage(width, height, pix, uniforms)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (c cpuBackend) name() string {
	return fmt.Sprintf("software (%d workers)", c.r.Workers())
}

func (c cpuBackend) memory() MemoryStats { return MemoryStats{} }

func (c cpuBackend) close() { c.r.Close() }
