package darkroom

import (
	"time"

	"github.com/gogpu/darkroom/colorsci"
)

// DefaultMaxPreviewWidth bounds the preview target width.
const DefaultMaxPreviewWidth = 2560

// BackendKind selects which renderer a Device uses.
type BackendKind uint8

const (
	// BackendAuto tries the GPU and falls back to software.
	BackendAuto BackendKind = iota

	// BackendGPU requires a GPU adapter.
	BackendGPU

	// BackendSoftware always renders on the CPU.
	BackendSoftware
)

// String returns the backend name.
func (k BackendKind) String() string {
	switch k {
	case BackendAuto:
		return "auto"
	case BackendGPU:
		return "gpu"
	case BackendSoftware:
		return "software"
	default:
		return "unknown"
	}
}

// DeviceOption configures OpenDevice.
//
// Example:
//
//	dev, err := darkroom.OpenDevice(ctx,
//	    darkroom.WithBackend(darkroom.BackendGPU),
//	    darkroom.WithAdapter("rtx"))
type DeviceOption func(*deviceOptions)

type deviceOptions struct {
	backend     BackendKind
	adapter     string
	waitTimeout time.Duration
	workers     int
}

func defaultDeviceOptions() deviceOptions {
	return deviceOptions{
		backend:     BackendAuto,
		waitTimeout: 5 * time.Second,
	}
}

// WithBackend selects the renderer. The default is BackendAuto.
func WithBackend(k BackendKind) DeviceOption {
	return func(o *deviceOptions) {
		o.backend = k
	}
}

// WithAdapter selects the first GPU adapter whose name contains name,
// ignoring case. Without it a discrete or integrated GPU is preferred.
func WithAdapter(name string) DeviceOption {
	return func(o *deviceOptions) {
		o.adapter = name
	}
}

// WithWaitTimeout bounds how long a render waits for the GPU before
// reporting ErrDeviceLost.
func WithWaitTimeout(d time.Duration) DeviceOption {
	return func(o *deviceOptions) {
		if d > 0 {
			o.waitTimeout = d
		}
	}
}

// WithWorkers sets the software renderer's worker count. The default is
// GOMAXPROCS.
func WithWorkers(n int) DeviceOption {
	return func(o *deviceOptions) {
		o.workers = n
	}
}

// PipelineOption configures NewPipeline.
type PipelineOption func(*pipelineOptions)

type pipelineOptions struct {
	maxPreviewWidth int
	matrixMode      colorsci.MatrixMode
}

func defaultPipelineOptions() pipelineOptions {
	return pipelineOptions{
		maxPreviewWidth: DefaultMaxPreviewWidth,
		matrixMode:      colorsci.MatrixFull,
	}
}

// WithMaxPreviewWidth bounds the preview target width. Values below 1 are
// ignored.
func WithMaxPreviewWidth(w int) PipelineOption {
	return func(o *pipelineOptions) {
		if w > 0 {
			o.maxPreviewWidth = w
		}
	}
}

// WithMatrixMode selects how NewPipelineFromFrame derives the colour
// matrix. MatrixBypass disables colour correction entirely.
func WithMatrixMode(m colorsci.MatrixMode) PipelineOption {
	return func(o *pipelineOptions) {
		o.matrixMode = m
	}
}
