//go:build nogpu

package darkroom

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/gpucontext"
)

func openGPU(deviceOptions) (backend, error) {
	return nil, fmt.Errorf("%w: built with nogpu", ErrBackendUnavailable)
}

// DeviceFromProvider is unavailable in nogpu builds.
func DeviceFromProvider(gpucontext.DeviceProvider, ...DeviceOption) (*Device, error) {
	return nil, fmt.Errorf("%w: built with nogpu", ErrBackendUnavailable)
}

func setGPULogger(*slog.Logger) {}
