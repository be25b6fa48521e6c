package darkroom

// Histogram holds per-channel counts of an RGBA8 buffer.
type Histogram struct {
	R, G, B [256]uint32
}

// ComputeHistogram counts red, green and blue values of an RGBA8 buffer in
// one pass, ignoring alpha. A trailing partial pixel is ignored.
func ComputeHistogram(buf []byte) Histogram {
	var h Histogram
	n := len(buf) &^ 3
	for i := 0; i < n; i += 4 {
		h.R[buf[i]]++
		h.G[buf[i+1]]++
		h.B[buf[i+2]]++
	}
	return h
}

// Total returns the number of pixels counted.
func (h *Histogram) Total() uint64 {
	var n uint64
	for _, c := range h.R {
		n += uint64(c)
	}
	return n
}

// Peak returns the largest bin count over all channels, the usual scale
// for drawing the histogram.
func (h *Histogram) Peak() uint32 {
	var peak uint32
	for i := range 256 {
		peak = max(peak, h.R[i], h.G[i], h.B[i])
	}
	return peak
}

// Clipped returns the number of pixels per channel at the extreme bins.
func (h *Histogram) Clipped() (shadows, highlights [3]uint32) {
	return [3]uint32{h.R[0], h.G[0], h.B[0]}, [3]uint32{h.R[255], h.G[255], h.B[255]}
}
