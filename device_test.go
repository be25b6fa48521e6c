package darkroom

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSoftwareDevice(t *testing.T) {
	dev := NewSoftwareDevice(WithWorkers(3))
	defer dev.Close()

	if dev.Kind() != BackendSoftware {
		t.Errorf("Kind() = %v, want software", dev.Kind())
	}
	if !strings.Contains(dev.Name(), "3 workers") {
		t.Errorf("Name() = %q", dev.Name())
	}
	if s := dev.MemoryStats(); s != (MemoryStats{}) {
		t.Errorf("software MemoryStats() = %+v, want zero", s)
	}
}

func TestOpenDeviceSoftwareIgnoresContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dev, err := OpenDevice(ctx, WithBackend(BackendSoftware))
	if err != nil {
		t.Fatalf("OpenDevice(software): %v", err)
	}
	dev.Close()
}

func TestOpenDeviceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := OpenDevice(ctx, WithBackend(BackendGPU)); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestOpenDeviceAuto(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping adapter probe in short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Auto never fails: without a GPU it falls back to software.
	dev, err := OpenDevice(ctx)
	if err != nil {
		t.Fatalf("OpenDevice(auto): %v", err)
	}
	defer dev.Close()
	if k := dev.Kind(); k != BackendGPU && k != BackendSoftware {
		t.Errorf("Kind() = %v", k)
	}
	t.Logf("opened %s device %q", dev.Kind(), dev.Name())
}

func TestDeviceCloseIdempotent(t *testing.T) {
	dev := NewSoftwareDevice()
	dev.Close()
	dev.Close()

	_, err := NewPipelineFromFrame(context.Background(), dev, synthFrame(4, 4), EditParameters{})
	if !errors.Is(err, ErrDeviceClosed) {
		t.Errorf("pipeline on closed device err = %v", err)
	}
}

func TestBackendKindString(t *testing.T) {
	tests := []struct {
		k    BackendKind
		want string
	}{
		{BackendAuto, "auto"},
		{BackendGPU, "gpu"},
		{BackendSoftware, "software"},
		{BackendKind(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.k.String(); got != tt.want {
			t.Errorf("BackendKind(%d).String() = %q, want %q", tt.k, got, tt.want)
		}
	}
}
