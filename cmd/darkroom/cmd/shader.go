package cmd

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gogpu/darkroom/internal/develop"
)

// NewShaderCmd dumps the develop shader as WGSL or compiled SPIR-V.
func NewShaderCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shader",
		Short: "print the develop shader or write its SPIR-V",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("spirv")
			if out == "" {
				fmt.Fprint(cmd.OutOrStdout(), develop.ShaderSource())
				return nil
			}
			words, err := develop.CompileSPIRV()
			if err != nil {
				return err
			}
			buf := make([]byte, 0, len(words)*4)
			for _, w := range words {
				buf = binary.LittleEndian.AppendUint32(buf, w)
			}
			if err := os.WriteFile(out, buf, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d SPIR-V words, uniform block %d bytes\n", out, len(words), develop.UniformSize)
			return nil
		},
	}
	pf := cmd.PersistentFlags()
	pf.String("spirv", "", "compile to SPIR-V and write it to this file")
	return cmd
}
