//go:build !nogpu

package gpu

import "fmt"

// MemoryStats counts the GPU allocations made for images on a device.
// Sizes are the logical payload sizes; drivers may round them up.
type MemoryStats struct {
	// Images is the number of live images.
	Images int

	// Textures and TextureBytes cover mosaics and colour targets.
	Textures     int
	TextureBytes uint64

	// Buffers and BufferBytes cover uniform and staging buffers.
	Buffers     int
	BufferBytes uint64
}

// TotalBytes returns texture plus buffer bytes.
func (s MemoryStats) TotalBytes() uint64 {
	return s.TextureBytes + s.BufferBytes
}

// String returns a human-readable summary.
func (s MemoryStats) String() string {
	return fmt.Sprintf("Memory[%.1f MB, %d images, %d textures, %d buffers]",
		float64(s.TotalBytes())/(1024*1024), s.Images, s.Textures, s.Buffers)
}

func (s *MemoryStats) addTexture(n uint64) {
	s.Textures++
	s.TextureBytes += n
}

func (s *MemoryStats) removeTexture(n uint64) {
	s.Textures--
	s.TextureBytes -= n
}

func (s *MemoryStats) addBuffer(n uint64) {
	s.Buffers++
	s.BufferBytes += n
}

func (s *MemoryStats) removeBuffer(n uint64) {
	s.Buffers--
	s.BufferBytes -= n
}

// Stats returns the current allocation counts.
func (d *Device) Stats() MemoryStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mem
}
