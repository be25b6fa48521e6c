package parallel

// minBandRows keeps bands large enough that scheduling stays cheap next
// to the per-row work.
const minBandRows = 16

// Band is a half-open row range [Y0, Y1).
type Band struct {
	Y0, Y1 int
}

// SplitRows divides height rows into at most n contiguous bands of nearly
// equal size, none smaller than minBandRows unless height itself is.
func SplitRows(height, n int) []Band {
	if height <= 0 {
		return nil
	}
	n = max(n, 1)
	n = min(n, max(height/minBandRows, 1))

	bands := make([]Band, 0, n)
	base, extra := height/n, height%n
	y := 0
	for i := range n {
		rows := base
		if i < extra {
			rows++
		}
		bands = append(bands, Band{Y0: y, Y1: y + rows})
		y += rows
	}
	return bands
}

// ForRows calls fn once per band of height rows on the pool and waits for
// all bands. Bands never overlap, so fn may write its rows of a shared
// buffer without locking.
func (p *WorkerPool) ForRows(height int, fn func(y0, y1 int)) {
	// Two bands per worker lets stealing even out slow bands.
	bands := SplitRows(height, p.workers*2)
	work := make([]func(), len(bands))
	for i, b := range bands {
		work[i] = func() { fn(b.Y0, b.Y1) }
	}
	p.ExecuteAll(work)
}
