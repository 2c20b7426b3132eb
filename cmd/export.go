package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"netspeedtray/internal/app"
	"netspeedtray/internal/config"
	"netspeedtray/internal/export"
	"netspeedtray/internal/history"
)

type exportFlags struct {
	since     string
	iface     string
	out       string
	width     int
	height    int
	bytesUnit bool
}

var exportOpts exportFlags

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recorded speed history",
	Long: `Export the speed history database as a CSV table or a PNG graph.

Examples:
  netspeedtray export csv --since 7d
  netspeedtray export graph --since 24h --out speed.png --bytes`,
}

var exportCSVCmd = &cobra.Command{
	Use:   "csv",
	Short: "Export history as CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd, export.KindCSV)
	},
}

var exportGraphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export history as a PNG graph",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd, export.KindGraph)
	},
}

func init() {
	for _, c := range []*cobra.Command{exportCSVCmd, exportGraphCmd} {
		c.Flags().StringVar(&exportOpts.since, "since", "",
			"Only export the last duration (e.g. 24h, 7d; default: everything)")
		c.Flags().StringVar(&exportOpts.iface, "interface", "",
			"Only export this interface (default: sum of all)")
		c.Flags().StringVarP(&exportOpts.out, "out", "o", "",
			"Output file (default: timestamped name in Documents)")
		exportCmd.AddCommand(c)
	}

	def := export.DefaultGraphOptions()
	exportGraphCmd.Flags().IntVar(&exportOpts.width, "width", def.Width, "Image width in pixels")
	exportGraphCmd.Flags().IntVar(&exportOpts.height, "height", def.Height, "Image height in pixels")
	exportGraphCmd.Flags().BoolVar(&exportOpts.bytesUnit, "bytes", false, "Plot MB/s instead of Mbps")
}

func runExport(cmd *cobra.Command, kind export.Kind) error {
	since, err := export.ParseSince(exportOpts.since)
	if err != nil {
		return err
	}

	dir, err := config.Dir()
	if err != nil {
		return err
	}
	path := filepath.Join(dir, app.HistoryFile)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("no history database at %s", path)
	}

	ctx := context.Background()
	store, err := history.Open(ctx, path, logger)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()

	res, err := export.ToFile(ctx, store, export.Request{
		Kind:      kind,
		Path:      exportOpts.out,
		Since:     since,
		Interface: exportOpts.iface,
		Graph: export.GraphOptions{
			Title:  "Network Speed",
			Width:  exportOpts.width,
			Height: exportOpts.height,
			Bytes:  exportOpts.bytesUnit,
		},
	})
	if errors.Is(err, export.ErrNoData) {
		return errors.New("no history in the requested range")
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s)\n", res.Path, res.Summary)
	return nil
}
