package cmd

import (
	"encoding/json"
	"fmt"
	"image"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/image/tiff"

	"github.com/gogpu/darkroom"
	"github.com/gogpu/darkroom/colorsci"
)

// addFrameFlags registers the flags describing the input mosaic.
func addFrameFlags(pf *pflag.FlagSet) {
	pf.StringP("in", "i", "", "16-bit grayscale TIFF mosaic, or synthetic:WxH")
	pf.String("pattern", "RGGB", "CFA pattern of the mosaic (RGGB, BGGR, GRBG, GBRG)")
	pf.Int("bit-depth", 0, "significant sensor bits; 0 infers from the data")
	pf.Uint16("black", 0, "sensor black level")
	pf.Float32Slice("wb", []float32{1, 1, 1}, "as-shot white balance multipliers R,G,B[,G2]")
	pf.Float32Slice("calibration", nil, "row-major XYZ-to-camera matrix, 9 values")
}

// loadFrame reads the mosaic named by --in and applies the frame flags.
func loadFrame(cmd *cobra.Command) (*darkroom.SensorFrame, error) {
	fl := cmd.Flags()
	in, _ := fl.GetString("in")
	if in == "" && fl.NArg() > 0 {
		in = fl.Arg(0)
	}
	if in == "" {
		return nil, fmt.Errorf("an input is required. Use --in or provide it as argument")
	}
	patternName, _ := fl.GetString("pattern")
	pattern, err := darkroom.ParseCFAPattern(patternName)
	if err != nil {
		return nil, err
	}

	var frame *darkroom.SensorFrame
	if spec, ok := strings.CutPrefix(in, "synthetic:"); ok {
		w, h, err := parseSize(spec)
		if err != nil {
			return nil, err
		}
		frame = SyntheticFrame(w, h, pattern)
	} else {
		frame, err = readTIFF(in)
		if err != nil {
			return nil, err
		}
	}
	frame.Pattern = pattern

	if fl.Changed("bit-depth") || frame.BitDepth == 0 {
		frame.BitDepth, _ = fl.GetInt("bit-depth")
	}
	if fl.Changed("black") {
		frame.BlackLevel, _ = fl.GetUint16("black")
	}
	if fl.Changed("wb") || frame.WhiteBalance == nil {
		frame.WhiteBalance, _ = fl.GetFloat32Slice("wb")
	}
	if cal, _ := fl.GetFloat32Slice("calibration"); len(cal) > 0 {
		if len(cal) != 9 {
			return nil, fmt.Errorf("--calibration needs 9 values, got %d", len(cal))
		}
		copy(frame.Calibration[:], cal)
	}
	return frame, frame.Validate()
}

func parseSize(s string) (w, h int, err error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("size %q is not WxH", s)
	}
	if w, err = strconv.Atoi(ws); err != nil || w <= 0 {
		return 0, 0, fmt.Errorf("bad width in %q", s)
	}
	if h, err = strconv.Atoi(hs); err != nil || h <= 0 {
		return 0, 0, fmt.Errorf("bad height in %q", s)
	}
	return w, h, nil
}

// readTIFF loads a single-channel TIFF as a mosaic. 8-bit files are
// widened and marked as 8-bit.
func readTIFF(path string) (*darkroom.SensorFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	img, err := tiff.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	b := img.Bounds()
	frame := &darkroom.SensorFrame{
		Width:  b.Dx(),
		Height: b.Dy(),
		Mosaic: make([]uint16, b.Dx()*b.Dy()),
	}
	switch g := img.(type) {
	case *image.Gray16:
		for y := 0; y < frame.Height; y++ {
			row := g.Pix[y*g.Stride : y*g.Stride+frame.Width*2]
			for x := 0; x < frame.Width; x++ {
				frame.Mosaic[y*frame.Width+x] = uint16(row[2*x])<<8 | uint16(row[2*x+1])
			}
		}
	case *image.Gray:
		frame.BitDepth = 8
		for y := 0; y < frame.Height; y++ {
			for x := 0; x < frame.Width; x++ {
				frame.Mosaic[y*frame.Width+x] = uint16(g.Pix[y*g.Stride+x])
			}
		}
	default:
		return nil, fmt.Errorf("%s: %T is not a single-channel mosaic", path, img)
	}
	return frame, nil
}

// SyntheticFrame renders a test scene through a CFA: a hue sweep across
// the frame darkening towards the bottom, with a neutral grey strip along
// the top. Values are 14-bit with a black level of 512 and a typical
// daylight channel imbalance.
func SyntheticFrame(w, h int, pattern darkroom.CFAPattern) *darkroom.SensorFrame {
	const (
		black = 512
		white = 1<<14 - 1
	)
	// Camera response relative to green; the frame's WhiteBalance undoes it.
	response := [3]float64{1 / 2.1, 1, 1 / 1.6}
	layout := cfaLayout(pattern)

	frame := &darkroom.SensorFrame{
		Width:        w,
		Height:       h,
		Mosaic:       make([]uint16, w*h),
		BitDepth:     14,
		BlackLevel:   black,
		WhiteBalance: []float32{2.1, 1, 1.6},
		Pattern:      pattern,
	}
	strip := max(h/8, 1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var c [3]float64
			if y < strip {
				g := float64(x) / float64(max(w-1, 1))
				c = [3]float64{g, g, g}
			} else {
				hue := 360 * float64(x) / float64(w)
				v := 1 - 0.9*float64(y-strip)/float64(max(h-strip, 1))
				c = hsv(hue, 0.8, v)
			}
			ch := layout[(y&1)*2+(x&1)]
			// Linear light: undo display gamma before sampling.
			lin := math.Pow(c[ch], 2.2) * response[ch]
			frame.Mosaic[y*w+x] = uint16(black + lin*(white-black))
		}
	}
	return frame
}

// cfaLayout returns the RGB channel index per cell site.
func cfaLayout(p darkroom.CFAPattern) [4]int {
	switch p {
	case darkroom.BGGR:
		return [4]int{2, 1, 1, 0}
	case darkroom.GRBG:
		return [4]int{1, 0, 2, 1}
	case darkroom.GBRG:
		return [4]int{1, 2, 0, 1}
	default:
		return [4]int{0, 1, 1, 2}
	}
}

func hsv(h, s, v float64) [3]float64 {
	c := v * s
	hp := h / 60
	x := c * (1 - math.Abs(math.Mod(hp, 2)-1))
	var r, g, b float64
	switch {
	case hp < 1:
		r, g = c, x
	case hp < 2:
		r, g = x, c
	case hp < 3:
		g, b = c, x
	case hp < 4:
		g, b = x, c
	case hp < 5:
		r, b = x, c
	default:
		r, b = c, x
	}
	m := v - c
	return [3]float64{r + m, g + m, b + m}
}

// addParamFlags registers one flag per edit parameter plus --params.
func addParamFlags(pf *pflag.FlagSet) {
	pf.String("params", "", "JSON file with edit parameters; flags override it")
	pf.Float32("exposure", 0, "exposure in stops (-5..5)")
	pf.Float32("contrast", 0, "contrast (-1..1)")
	pf.Float32("highlights", 0, "highlights (-1..1)")
	pf.Float32("shadows", 0, "shadows (-1..1)")
	pf.Float32("whites", 0, "whites (-1..1)")
	pf.Float32("blacks", 0, "blacks (-1..1)")
	pf.Float32("vibrance", 0, "vibrance (-1..1)")
	pf.Float32("saturation", 0, "saturation (-1..1)")
	pf.Float32("temperature", 0, "temperature shift (-1..1)")
	pf.Float32("tint", 0, "tint shift (-1..1)")
}

func loadParams(fl *pflag.FlagSet) (darkroom.EditParameters, error) {
	var p darkroom.EditParameters
	if path, _ := fl.GetString("params"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return p, err
		}
		if err := json.Unmarshal(b, &p); err != nil {
			return p, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	for name, dst := range map[string]*float32{
		"exposure":    &p.Exposure,
		"contrast":    &p.Contrast,
		"highlights":  &p.Highlights,
		"shadows":     &p.Shadows,
		"whites":      &p.Whites,
		"blacks":      &p.Blacks,
		"vibrance":    &p.Vibrance,
		"saturation":  &p.Saturation,
		"temperature": &p.Temperature,
		"tint":        &p.Tint,
	} {
		if fl.Changed(name) {
			*dst, _ = fl.GetFloat32(name)
		}
	}
	return p, nil
}

// addDeviceFlags registers the renderer selection flags.
func addDeviceFlags(pf *pflag.FlagSet) {
	pf.String("backend", "auto", "renderer (auto, gpu, software)")
	pf.String("adapter", "", "select the GPU adapter whose name contains this")
	pf.Int("workers", 0, "software renderer workers; 0 uses GOMAXPROCS")
	pf.Int("max-preview", darkroom.DefaultMaxPreviewWidth, "maximum preview width")
	pf.Bool("bypass-matrix", false, "skip colour correction")
}

func deviceOptions(fl *pflag.FlagSet) ([]darkroom.DeviceOption, error) {
	name, _ := fl.GetString("backend")
	var kind darkroom.BackendKind
	switch strings.ToLower(name) {
	case "auto":
		kind = darkroom.BackendAuto
	case "gpu":
		kind = darkroom.BackendGPU
	case "software", "cpu":
		kind = darkroom.BackendSoftware
	default:
		return nil, fmt.Errorf("unknown backend %q", name)
	}
	adapter, _ := fl.GetString("adapter")
	workers, _ := fl.GetInt("workers")
	return []darkroom.DeviceOption{
		darkroom.WithBackend(kind),
		darkroom.WithAdapter(adapter),
		darkroom.WithWorkers(workers),
	}, nil
}

func pipelineOptions(fl *pflag.FlagSet) []darkroom.PipelineOption {
	maxPreview, _ := fl.GetInt("max-preview")
	opts := []darkroom.PipelineOption{darkroom.WithMaxPreviewWidth(maxPreview)}
	if bypass, _ := fl.GetBool("bypass-matrix"); bypass {
		opts = append(opts, darkroom.WithMatrixMode(colorsci.MatrixBypass))
	}
	return opts
}
