//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// Config controls device acquisition and submission.
type Config struct {
	// Backend selects the HAL backend. Defaults to Vulkan.
	Backend gputypes.Backend

	// AdapterName, when set, selects the first adapter whose name contains
	// it (case-insensitive). Otherwise a discrete or integrated GPU is
	// preferred over anything else.
	AdapterName string

	// WaitTimeout bounds the wait for a submission to complete.
	WaitTimeout time.Duration

	// MaxTextureDimension is the largest texture side of a borrowed device.
	// Zero uses the device's reported limits, or the WebGPU default when
	// it reports none. Open always uses the adapter's limit.
	MaxTextureDimension uint32
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		Backend:     gputypes.BackendVulkan,
		WaitTimeout: 5 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Backend == gputypes.BackendEmpty {
		c.Backend = d.Backend
	}
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = d.WaitTimeout
	}
	return c
}

// pollInterval is the sleep between completion polls.
const pollInterval = 200 * time.Microsecond

// Device is a GPU device and queue shared by every image of the process.
type Device struct {
	mu sync.Mutex // serialises encoding, submission and readback

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	name        string
	maxTexture  uint32
	waitTimeout time.Duration
	external    bool // borrowed from a host; not destroyed by Destroy
	destroyed   bool

	mem MemoryStats
}

// Open creates an instance on the configured backend, picks an adapter and
// opens a device on it.
func Open(cfg Config) (*Device, error) {
	cfg = cfg.withDefaults()

	backend, ok := hal.GetBackend(cfg.Backend)
	if !ok {
		return nil, fmt.Errorf("%w: %s not registered", ErrBackendUnavailable, cfg.Backend)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("%w: create instance: %w", ErrBackendUnavailable, err)
	}

	adapters := instance.EnumerateAdapters(nil)
	selected := selectAdapter(adapters, cfg.AdapterName)
	if selected == nil {
		instance.Destroy()
		if cfg.AdapterName != "" {
			return nil, fmt.Errorf("%w: no adapter named %q among %d", ErrAdapterNotFound, cfg.AdapterName, len(adapters))
		}
		return nil, ErrAdapterNotFound
	}

	limits := requestLimits(selected.Capabilities.Limits)
	openDev, err := selected.Adapter.Open(gputypes.Features(0), limits)
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("%w: %s: %w", ErrDeviceCreation, selected.Info.Name, err)
	}

	d := &Device{
		instance:    instance,
		device:      openDev.Device,
		queue:       openDev.Queue,
		name:        selected.Info.Name,
		maxTexture:  limits.MaxTextureDimension2D,
		waitTimeout: cfg.WaitTimeout,
	}
	slogger().Info("device opened", "adapter", d.name, "type", selected.Info.DeviceType.String())
	return d, nil
}

func selectAdapter(adapters []hal.ExposedAdapter, name string) *hal.ExposedAdapter {
	if len(adapters) == 0 {
		return nil
	}
	if name != "" {
		want := strings.ToLower(name)
		for i := range adapters {
			if strings.Contains(strings.ToLower(adapters[i].Info.Name), want) {
				return &adapters[i]
			}
		}
		return nil
	}
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			return &adapters[i]
		}
	}
	return &adapters[0]
}

// requestLimits returns the WebGPU default limits with the 2D texture cap
// set to what the adapter supports, so sensors wider than 8192 pixels fit on
// hardware that allows it.
func requestLimits(adapter gputypes.Limits) gputypes.Limits {
	limits := gputypes.DefaultLimits()
	if adapter.MaxTextureDimension2D != 0 {
		limits.MaxTextureDimension2D = adapter.MaxTextureDimension2D
	}
	return limits
}

// FromHAL wraps a device and queue owned by someone else. Destroy leaves
// them alive.
func FromHAL(device hal.Device, queue hal.Queue, name string, cfg Config) *Device {
	cfg = cfg.withDefaults()
	maxTexture := cfg.MaxTextureDimension
	if maxTexture == 0 {
		maxTexture = gputypes.DefaultLimits().MaxTextureDimension2D
	}
	return &Device{
		device:      device,
		queue:       queue,
		name:        name,
		maxTexture:  maxTexture,
		waitTimeout: cfg.WaitTimeout,
		external:    true,
	}
}

// halDeviceQueue is implemented by *wgpu.Device.
type halDeviceQueue interface {
	HalDevice() hal.Device
	HalQueue() hal.Queue
}

// limitedDevice is implemented by *wgpu.Device.
type limitedDevice interface {
	Limits() gputypes.Limits
}

// FromProvider borrows the device of a host application. The provider's
// Device must expose its HAL device and queue, as *wgpu.Device does.
func FromProvider(provider gpucontext.DeviceProvider, cfg Config) (*Device, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: nil device provider", ErrDeviceCreation)
	}
	hp, ok := provider.Device().(halDeviceQueue)
	if !ok {
		return nil, fmt.Errorf("%w: provider device %T does not expose HAL types", ErrDeviceCreation, provider.Device())
	}
	device, queue := hp.HalDevice(), hp.HalQueue()
	if device == nil || queue == nil {
		return nil, fmt.Errorf("%w: provider device is released", ErrDeviceLost)
	}
	if ld, ok := provider.Device().(limitedDevice); ok && cfg.MaxTextureDimension == 0 {
		cfg.MaxTextureDimension = ld.Limits().MaxTextureDimension2D
	}
	name := provider.AdapterInfo().Name
	slogger().Info("using shared device", "adapter", name, "max_texture", cfg.MaxTextureDimension)
	return FromHAL(device, queue, name, cfg), nil
}

// Name returns the adapter name.
func (d *Device) Name() string { return d.name }

// MaxTextureDimension returns the largest supported 2D texture side.
func (d *Device) MaxTextureDimension() uint32 { return d.maxTexture }

// Destroy releases the device and instance unless they are borrowed.
// It is safe to call more than once.
func (d *Device) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed {
		return
	}
	d.destroyed = true
	if d.mem.Images > 0 {
		slogger().Warn("device destroyed with live images", "images", d.mem.Images, "memory", d.mem)
	}
	d.mem = MemoryStats{}
	if d.external {
		d.device, d.queue = nil, nil
		return
	}
	if d.device != nil {
		if err := d.device.WaitIdle(); err != nil {
			slogger().Warn("wait idle before destroy", "err", err)
		}
		d.device.Destroy()
		d.device = nil
	}
	if d.instance != nil {
		d.instance.Destroy()
		d.instance = nil
	}
	d.queue = nil
}

// submit hands cmdBuf to the queue and blocks until the GPU has finished
// it. The caller holds d.mu.
func (d *Device) submit(cmdBuf hal.CommandBuffer) error {
	idx, err := d.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		return fmt.Errorf("%w: submit: %w", ErrDeviceLost, err)
	}
	deadline := time.Now().Add(d.waitTimeout)
	for d.queue.PollCompleted() < idx {
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: submission %d not complete after %v", ErrDeviceLost, idx, d.waitTimeout)
		}
		time.Sleep(pollInterval)
	}
	return nil
}

// wrapHAL maps HAL device-loss errors onto ErrDeviceLost and everything
// else onto fallback.
func wrapHAL(fallback error, op string, err error) error {
	if errors.Is(err, hal.ErrDeviceLost) || errors.Is(err, hal.ErrDeviceOutOfMemory) {
		return fmt.Errorf("%w: %s: %w", ErrDeviceLost, op, err)
	}
	return fmt.Errorf("%w: %s: %w", fallback, op, err)
}
