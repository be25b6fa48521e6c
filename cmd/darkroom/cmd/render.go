package cmd

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/image/tiff"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/darkroom"
)

// NewRenderCmd develops a mosaic into a PNG or TIFF.
func NewRenderCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render [mosaic]",
		Short: "develop a mosaic to PNG or TIFF",
		Long:  "Uploads a sensor mosaic, applies the edit parameters and writes the preview (default) or the full-resolution render.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fl := cmd.Flags()
			out, _ := fl.GetString("out")
			if out == "" {
				return fmt.Errorf("--out is required")
			}
			full, _ := fl.GetBool("full")

			p, dev, err := openPipeline(ctx, cmd)
			if err != nil {
				return err
			}
			defer dev.Close()
			defer p.Close()

			if fl.Changed("zoom") || fl.Changed("center-x") || fl.Changed("center-y") {
				v := darkroom.DefaultView()
				v.Zoom, _ = fl.GetFloat64("zoom")
				v.CenterX, _ = fl.GetFloat64("center-x")
				v.CenterY, _ = fl.GetFloat64("center-y")
				if err := p.SetView(v); err != nil {
					return err
				}
			}

			start := time.Now()
			var img *darkroom.Image
			if full {
				res := <-p.RenderFullAsync(ctx)
				img, err = res.Image, res.Err
			} else {
				img, err = p.RenderPreview()
			}
			if err != nil {
				return fmt.Errorf("render: %w", err)
			}
			took := time.Since(start)

			if err := writeImage(out, img); err != nil {
				return err
			}
			pr := message.NewPrinter(language.English)
			pr.Fprintf(cmd.OutOrStdout(), "%s: %dx%d (%d pixels) on %s in %v\n",
				out, img.Width, img.Height, img.Width*img.Height, dev.Name(), took.Round(time.Millisecond))
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	addFrameFlags(pf)
	addParamFlags(pf)
	addDeviceFlags(pf)
	pf.StringP("out", "o", "", "output file (.png, .tif, .tiff)")
	pf.Bool("full", false, "render at native sensor resolution")
	pf.Float64("zoom", 1, "preview zoom (1 fits the frame)")
	pf.Float64("center-x", 0.5, "preview centre, 0..1 across the frame")
	pf.Float64("center-y", 0.5, "preview centre, 0..1 down the frame")
	return cmd
}

// openPipeline loads the frame, opens the device and builds the pipeline.
func openPipeline(ctx context.Context, cmd *cobra.Command) (*darkroom.Pipeline, *darkroom.Device, error) {
	fl := cmd.Flags()
	frame, err := loadFrame(cmd)
	if err != nil {
		return nil, nil, err
	}
	params, err := loadParams(fl)
	if err != nil {
		return nil, nil, err
	}
	devOpts, err := deviceOptions(fl)
	if err != nil {
		return nil, nil, err
	}

	dev, err := darkroom.OpenDevice(ctx, devOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("open device: %w", err)
	}
	p, err := darkroom.NewPipelineFromFrame(ctx, dev, frame, params, pipelineOptions(fl)...)
	if err != nil {
		dev.Close()
		return nil, nil, err
	}
	return p, dev, nil
}

func writeImage(path string, img *darkroom.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		err = png.Encode(f, img.RGBA())
	case ".tif", ".tiff":
		err = tiff.Encode(f, img.RGBA(), &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	default:
		err = fmt.Errorf("unsupported output format %q", ext)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
