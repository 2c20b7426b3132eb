package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"netspeedtray/internal/assets"
)

var iconOpts struct {
	dir    string
	sizes  []int
	greyed bool
}

var iconCmd = &cobra.Command{
	Use:   "icon",
	Short: "Write the application icon as PNG files",
	Long: `Render the tray and application icon at the given sizes, e.g. for an
installer or a Windows resource file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll(iconOpts.dir, 0755); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
		suffix := ""
		if iconOpts.greyed {
			suffix = "_paused"
		}
		for _, size := range iconOpts.sizes {
			if size <= 0 {
				return fmt.Errorf("invalid icon size %d", size)
			}
			data, err := assets.PNG(size, iconOpts.greyed)
			if err != nil {
				return fmt.Errorf("render %dpx icon: %w", size, err)
			}
			path := filepath.Join(iconOpts.dir, fmt.Sprintf("icon%s_%d.png", suffix, size))
			if err := os.WriteFile(path, data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated %s\n", path)
		}
		return nil
	},
}

func init() {
	iconCmd.Flags().StringVarP(&iconOpts.dir, "out", "o", ".", "Output directory")
	iconCmd.Flags().IntSliceVar(&iconOpts.sizes, "size", []int{16, 32, 48, 256}, "Icon sizes in pixels")
	iconCmd.Flags().BoolVar(&iconOpts.greyed, "paused", false, "Render the greyed paused variant")
}
