package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/darkroom"
)

// NewHistogramCmd prints the preview histogram of a developed mosaic.
func NewHistogramCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "histogram [mosaic]",
		Short: "print the RGB histogram of the developed preview",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bins, _ := cmd.Flags().GetInt("bins")
			if bins < 1 || bins > 256 || 256%bins != 0 {
				return fmt.Errorf("--bins must divide 256, got %d", bins)
			}
			p, dev, err := openPipeline(ctx, cmd)
			if err != nil {
				return err
			}
			defer dev.Close()
			defer p.Close()

			img, err := p.RenderPreview()
			if err != nil {
				return fmt.Errorf("render: %w", err)
			}
			h := img.Histogram()
			printHistogram(cmd.OutOrStdout(), &h, bins)
			return nil
		},
	}
	pf := cmd.PersistentFlags()
	addFrameFlags(pf)
	addParamFlags(pf)
	addDeviceFlags(pf)
	pf.Int("bins", 16, "number of histogram rows (divides 256)")
	return cmd
}

const barWidth = 40

func printHistogram(w io.Writer, h *darkroom.Histogram, bins int) {
	pr := message.NewPrinter(language.English)
	total := h.Total()
	shadows, highlights := h.Clipped()
	pr.Fprintf(w, "pixels: %d\n", total)
	for i, name := range []string{"R", "G", "B"} {
		pr.Fprintf(w, "%s clipped: %d shadows, %d highlights\n", name, shadows[i], highlights[i])
	}

	step := 256 / bins
	var rows [][3]uint64
	var peak uint64
	for b := 0; b < 256; b += step {
		var row [3]uint64
		for v := b; v < b+step; v++ {
			row[0] += uint64(h.R[v])
			row[1] += uint64(h.G[v])
			row[2] += uint64(h.B[v])
		}
		peak = max(peak, row[0], row[1], row[2])
		rows = append(rows, row)
	}
	for i, row := range rows {
		pr.Fprintf(w, "%3d-%3d", i*step, i*step+step-1)
		for _, c := range row {
			n := 0
			if peak > 0 {
				n = int(c * barWidth / peak)
			}
			fmt.Fprintf(w, " |%-*s", barWidth, strings.Repeat("#", n))
		}
		fmt.Fprintln(w)
	}
}
