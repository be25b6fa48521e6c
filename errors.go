package darkroom

import (
	"errors"

	"github.com/gogpu/darkroom/internal/gpu"
)

// Device acquisition errors. They are fatal to the construction attempt
// and never retried internally.
var (
	ErrBackendUnavailable = gpu.ErrBackendUnavailable
	ErrAdapterNotFound    = gpu.ErrAdapterNotFound
	ErrDeviceCreation     = gpu.ErrDeviceCreation
)

// Render errors. After ErrDeviceLost every pipeline on the device must be
// rebuilt on a new device.
var (
	ErrDeviceLost = gpu.ErrDeviceLost
	ErrReadback   = gpu.ErrReadback
)

var (
	// ErrFrameTooLarge is returned when a frame or render target exceeds
	// the device's maximum texture dimension.
	ErrFrameTooLarge = gpu.ErrTextureTooLarge

	// ErrInvalidFrame is returned for a SensorFrame that fails validation.
	ErrInvalidFrame = errors.New("darkroom: invalid sensor frame")

	// ErrPipelineClosed is returned by operations on a closed pipeline.
	ErrPipelineClosed = errors.New("darkroom: pipeline closed")

	// ErrDeviceClosed is returned when creating a pipeline on a closed device.
	ErrDeviceClosed = errors.New("darkroom: device closed")

	// ErrEditorClosed is returned by operations on a closed editor.
	ErrEditorClosed = errors.New("darkroom: editor closed")

	// ErrNotReady is returned by Editor operations that need a loaded image.
	ErrNotReady = errors.New("darkroom: no image ready")
)
