package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"github.com/gogpu/darkroom"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(prev)
		darkroom.SetLogger(nil)
	})
	root := NewRoot(context.Background(), "test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRenderSyntheticPreview(t *testing.T) {
	out := filepath.Join(t.TempDir(), "preview.png")
	stdout, err := run(t, "render", "--backend", "software", "--workers", "2",
		"--in", "synthetic:320x200", "--max-preview", "160", "--exposure", "0.5", "-o", out)
	require.NoError(t, err, stdout)
	assert.Contains(t, stdout, "160x100")

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 160, 100), img.Bounds())
}

func TestRenderFullTIFF(t *testing.T) {
	out := filepath.Join(t.TempDir(), "full.tiff")
	_, err := run(t, "render", "--backend", "software", "--in", "synthetic:64x48",
		"--pattern", "bggr", "--full", "-o", out)
	require.NoError(t, err)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := tiff.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 48, img.Bounds().Dy())
}

func TestRenderReadsTIFFMosaic(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "mosaic.tif")
	src := SyntheticFrame(32, 32, darkroom.RGGB)
	g := image.NewGray16(image.Rect(0, 0, 32, 32))
	for i, v := range src.Mosaic {
		g.Pix[2*i] = uint8(v >> 8)
		g.Pix[2*i+1] = uint8(v)
	}
	f, err := os.Create(in)
	require.NoError(t, err)
	require.NoError(t, tiff.Encode(f, g, nil))
	require.NoError(t, f.Close())

	render := NewRenderCmd(context.Background())
	require.NoError(t, render.ParseFlags([]string{in, "--black", "512", "--bit-depth", "14", "--wb", "2.1,1,1.6"}))

	frame, err := loadFrame(render)
	require.NoError(t, err)
	assert.Equal(t, src.Mosaic, frame.Mosaic)
	assert.Equal(t, uint16(512), frame.BlackLevel)
	assert.Equal(t, 14, frame.BitDepth)
	assert.Equal(t, []float32{2.1, 1, 1.6}, frame.WhiteBalance)
}

func TestRenderErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no output", []string{"render", "--in", "synthetic:8x8"}, "--out is required"},
		{"no input", []string{"render", "-o", filepath.Join(dir, "a.png")}, "input is required"},
		{"bad pattern", []string{"render", "--in", "synthetic:8x8", "--pattern", "XYZW", "-o", filepath.Join(dir, "a.png")}, "unknown CFA pattern"},
		{"bad size", []string{"render", "--in", "synthetic:8", "-o", filepath.Join(dir, "a.png")}, "not WxH"},
		{"bad backend", []string{"render", "--in", "synthetic:8x8", "--backend", "metal", "-o", filepath.Join(dir, "a.png")}, "unknown backend"},
		{"bad format", []string{"render", "--in", "synthetic:8x8", "--backend", "software", "-o", filepath.Join(dir, "a.bmp")}, "unsupported output format"},
		{"bad calibration", []string{"render", "--in", "synthetic:8x8", "--calibration", "1,2,3", "-o", filepath.Join(dir, "a.png")}, "9 values"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
	_, err := os.Stat(filepath.Join(dir, "a.bmp"))
	assert.True(t, os.IsNotExist(err), "failed output left behind")
}

func TestParamsFileAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.json")
	b, err := json.Marshal(darkroom.EditParameters{Exposure: 1.5, Contrast: 0.2})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o644))

	cmd := NewRenderCmd(context.Background())
	require.NoError(t, cmd.ParseFlags([]string{"--params", path, "--contrast=-0.3", "--tint", "0.1"}))
	p, err := loadParams(cmd.Flags())
	require.NoError(t, err)
	assert.Equal(t, darkroom.EditParameters{Exposure: 1.5, Contrast: -0.3, Tint: 0.1}, p)
}

func TestHistogramCommand(t *testing.T) {
	stdout, err := run(t, "histogram", "--backend", "software", "--in", "synthetic:200x100",
		"--max-preview", "100", "--bins", "8")
	require.NoError(t, err)
	assert.Contains(t, stdout, "pixels: 5,000")
	assert.Contains(t, stdout, "R clipped:")
	assert.Contains(t, stdout, "224-255")

	_, err = run(t, "histogram", "--in", "synthetic:8x8", "--bins", "7")
	assert.ErrorContains(t, err, "--bins")
}

func TestPrintHistogramBars(t *testing.T) {
	var h darkroom.Histogram
	h.R[0], h.G[128], h.B[255] = 10, 5, 10
	var buf bytes.Buffer
	printHistogram(&buf, &h, 2)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "pixels: 10", lines[0])
	assert.Contains(t, lines[1], "10 shadows")
	assert.Contains(t, lines[3], "10 highlights")
	assert.Contains(t, lines[4], strings.Repeat("#", barWidth))
	assert.Contains(t, lines[5], strings.Repeat("#", barWidth/2))
}

func TestShaderCommand(t *testing.T) {
	stdout, err := run(t, "shader")
	require.NoError(t, err)
	assert.Contains(t, stdout, "fn fs_main")

	out := filepath.Join(t.TempDir(), "develop.spv")
	stdout, err = run(t, "shader", "--spirv", out)
	if err != nil && (strings.Contains(err.Error(), "not yet implemented") || strings.Contains(err.Error(), "not supported")) {
		t.Skipf("SPIR-V backend unavailable: %v", err)
	}
	require.NoError(t, err)
	assert.Contains(t, stdout, "SPIR-V words")
	b, err := os.ReadFile(out)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(b), 4)
	assert.Equal(t, []byte{0x03, 0x02, 0x23, 0x07}, b[:4])
}

func TestVersionCommand(t *testing.T) {
	stdout, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "darkroom "+darkroom.Version+" (test)\n", stdout)
}

func TestLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "darkroom.log")
	_, err := run(t, "--log-file", path, "--log-level", "debug", "--log-json",
		"render", "--backend", "software", "--in", "synthetic:16x16", "-o", filepath.Join(t.TempDir(), "x.png"))
	require.NoError(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"msg":"pipeline created"`)
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, l)
	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestSyntheticFrame(t *testing.T) {
	f := SyntheticFrame(40, 30, darkroom.GRBG)
	require.NoError(t, f.Validate())
	assert.Equal(t, darkroom.GRBG, f.Pattern)
	for _, v := range f.Mosaic {
		require.GreaterOrEqual(t, v, uint16(512))
		require.Less(t, v, uint16(1<<14))
	}
}
