//go:build !nogpu

package darkroom

import (
	"log/slog"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/darkroom/internal/gpu"
)

func openGPU(o deviceOptions) (backend, error) {
	d, err := gpu.Open(gpu.Config{
		AdapterName: o.adapter,
		WaitTimeout: o.waitTimeout,
	})
	if err != nil {
		return nil, err
	}
	return gpuBackend{d: d}, nil
}

// DeviceFromProvider renders on a device owned by a host application,
// such as a gogpu window. The provider's Device must be a *wgpu.Device or
// otherwise expose HalDevice and HalQueue. Closing the returned Device
// leaves the host's device alive.
func DeviceFromProvider(provider gpucontext.DeviceProvider, opts ...DeviceOption) (*Device, error) {
	o := defaultDeviceOptions()
	for _, opt := range opts {
		opt(&o)
	}
	d, err := gpu.FromProvider(provider, gpu.Config{WaitTimeout: o.waitTimeout})
	if err != nil {
		return nil, err
	}
	Logger().Info("device opened", "backend", BackendGPU, "adapter", d.Name(), "shared", true)
	return &Device{kind: BackendGPU, b: gpuBackend{d: d}}, nil
}

type gpuBackend struct {
	d *gpu.Device
}

func (g gpuBackend) newImage(width, height int, pix []uint16, uniforms []byte) (backendImage, error) {
	img, err := gpu.NewImage(g.d, width, height, pix, uniforms)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (g gpuBackend) name() string { return g.d.Name() }

func (g gpuBackend) memory() MemoryStats {
	s := g.d.Stats()
	return MemoryStats{
		Images:       s.Images,
		Textures:     s.Textures,
		TextureBytes: s.TextureBytes,
		Buffers:      s.Buffers,
		BufferBytes:  s.BufferBytes,
	}
}

func (g gpuBackend) close() { g.d.Destroy() }

func setGPULogger(l *slog.Logger) { gpu.SetLogger(l) }
