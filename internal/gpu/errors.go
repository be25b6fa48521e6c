package gpu

import "errors"

var (
	// ErrBackendUnavailable is returned when the requested HAL backend is
	// not compiled in or cannot create an instance.
	ErrBackendUnavailable = errors.New("gpu: backend unavailable")

	// ErrAdapterNotFound is returned when no adapter matches the request.
	ErrAdapterNotFound = errors.New("gpu: adapter not found")

	// ErrDeviceCreation is returned when the adapter fails to open a device.
	ErrDeviceCreation = errors.New("gpu: device creation failed")

	// ErrDeviceLost is returned when a submission fails or never completes.
	// All resources created on the device must be recreated.
	ErrDeviceLost = errors.New("gpu: device lost")

	// ErrReadback is returned when rendered pixels cannot be copied back.
	ErrReadback = errors.New("gpu: readback failed")

	// ErrTextureTooLarge is returned when a frame or target exceeds the
	// device's maximum 2D texture dimension.
	ErrTextureTooLarge = errors.New("gpu: texture exceeds maximum dimension")

	// ErrDestroyed is returned by operations on a destroyed image.
	ErrDestroyed = errors.New("gpu: image destroyed")
)
