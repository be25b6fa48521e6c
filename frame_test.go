package darkroom

import (
	"errors"
	"testing"

	"github.com/gogpu/darkroom/internal/develop"
)

func TestParseCFAPattern(t *testing.T) {
	tests := []struct {
		in      string
		want    CFAPattern
		wantErr bool
	}{
		{"RGGB", RGGB, false},
		{"bggr", BGGR, false},
		{" GrBg ", GRBG, false},
		{"GBRG", GBRG, false},
		{"RGBG", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseCFAPattern(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCFAPattern(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCFAPattern(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCFAPatternRoundTrip(t *testing.T) {
	for _, p := range []CFAPattern{RGGB, BGGR, GRBG, GBRG} {
		got, err := ParseCFAPattern(p.String())
		if err != nil || got != p {
			t.Errorf("ParseCFAPattern(%q) = %v, %v", p.String(), got, err)
		}
	}
	if s := CFAPattern(9).String(); s != "CFAPattern(9)" {
		t.Errorf("String() = %q", s)
	}
}

func TestCFAPatternSites(t *testing.T) {
	for _, p := range []CFAPattern{RGGB, BGGR, GRBG, GBRG} {
		sites := p.sites()
		var counts [4]int
		for _, s := range sites {
			counts[s]++
		}
		if counts[develop.Red] != 1 || counts[develop.Blue] != 1 ||
			counts[develop.Green] != 1 || counts[develop.Green2] != 1 {
			t.Errorf("%v sites %v do not hold one of each channel", p, sites)
		}
		// Greens sit on a diagonal of the cell.
		g1, g2 := -1, -1
		for i, s := range sites {
			switch s {
			case develop.Green:
				g1 = i
			case develop.Green2:
				g2 = i
			}
		}
		if g1+g2 != 3 {
			t.Errorf("%v greens at %d and %d are not diagonal", p, g1, g2)
		}
	}
}

func validFrame() *SensorFrame {
	return &SensorFrame{
		Width:        4,
		Height:       2,
		Mosaic:       make([]uint16, 8),
		BitDepth:     12,
		BlackLevel:   256,
		WhiteBalance: []float32{2, 1, 1.5},
	}
}

func TestSensorFrameValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *SensorFrame)
	}{
		{"zero width", func(f *SensorFrame) { f.Width = 0 }},
		{"negative height", func(f *SensorFrame) { f.Height = -2 }},
		{"short mosaic", func(f *SensorFrame) { f.Mosaic = f.Mosaic[:7] }},
		{"bit depth 17", func(f *SensorFrame) { f.BitDepth = 17 }},
		{"negative bit depth", func(f *SensorFrame) { f.BitDepth = -1 }},
		{"unknown pattern", func(f *SensorFrame) { f.Pattern = 7 }},
		{"black above white", func(f *SensorFrame) { f.BlackLevel = 4096 }},
	}
	if err := validFrame().Validate(); err != nil {
		t.Fatalf("valid frame: %v", err)
	}
	var nilFrame *SensorFrame
	if err := nilFrame.Validate(); !errors.Is(err, ErrInvalidFrame) {
		t.Errorf("nil frame err = %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFrame()
			tt.mutate(f)
			if err := f.Validate(); !errors.Is(err, ErrInvalidFrame) {
				t.Errorf("err = %v, want ErrInvalidFrame", err)
			}
		})
	}
}

func TestEffectiveBitDepth(t *testing.T) {
	tests := []struct {
		name  string
		depth int
		peak  uint16
		want  int
	}{
		{"explicit", 14, 100, 14},
		{"inferred minimum", 0, 1000, 12},
		{"inferred 14-bit", 0, 16383, 14},
		{"inferred 16-bit", 0, 40000, 16},
		{"empty", 0, 0, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &SensorFrame{Width: 2, Height: 1, Mosaic: []uint16{0, tt.peak}, BitDepth: tt.depth}
			if got := f.EffectiveBitDepth(); got != tt.want {
				t.Errorf("EffectiveBitDepth() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWhiteScale(t *testing.T) {
	f := validFrame()
	if got := f.whiteScale(12); got != 4096-256 {
		t.Errorf("whiteScale(12) = %v, want %v", got, 4096-256)
	}
}
