package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"netspeedtray/internal/app"
	"netspeedtray/internal/config"
	"netspeedtray/internal/history"
	"netspeedtray/internal/position"
	"netspeedtray/internal/taskbar"
)

var diagOpts struct {
	width  int
	height int
}

var diagCmd = &cobra.Command{
	Use:   "diag",
	Short: "Print taskbar geometry and the calculated overlay position",
	Long: `Print what the overlay sees: every taskbar with its edge, DPI scale and
screen, the tray and task list rectangles, and where the overlay would be
placed for a widget of the given size. History database statistics follow
when a database exists.`,
	RunE: runDiag,
}

func init() {
	diagCmd.Flags().IntVar(&diagOpts.width, "width", 110, "Widget width in logical pixels")
	diagCmd.Flags().IntVar(&diagOpts.height, "height", 36, "Widget height in logical pixels")
}

var (
	diagHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	diagLabel  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(16)
	diagValue  = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	diagWarn   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func runDiag(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	disc := taskbar.NewDiscoverer(taskbar.NewShell(), logger)
	calc := position.NewCalculator(disc, logger)
	cfg := config.Get().Snapshot()
	off := position.Offsets{X: cfg.TrayOffsetX, Y: cfg.TrayOffsetY}
	size := taskbar.Size{Width: diagOpts.width, Height: diagOpts.height}

	all := disc.DiscoverAll()
	for i, info := range all {
		fmt.Fprintln(out, diagHeader.Render(fmt.Sprintf("Taskbar %d", i+1)))
		fmt.Fprint(out, renderTaskbar(disc, calc, info, size, off))
		fmt.Fprintln(out)
	}

	return printHistoryStats(cmd)
}

func renderTaskbar(disc *taskbar.Discoverer, calc *position.Calculator, info taskbar.Info, size taskbar.Size, off position.Offsets) string {
	var b strings.Builder
	row := func(label, value string) {
		b.WriteString(diagLabel.Render(label) + diagValue.Render(value) + "\n")
	}

	if info.IsFallback() {
		b.WriteString(diagWarn.Render("no taskbar detected, using the primary screen fallback") + "\n")
	}
	row("screen", fmt.Sprintf("%s %dx%d at (%d,%d)", info.ScreenName,
		info.ScreenGeometry.Width, info.ScreenGeometry.Height, info.ScreenGeometry.X, info.ScreenGeometry.Y))
	row("primary", fmt.Sprintf("%v", info.IsPrimary))
	row("dpi scale", fmt.Sprintf("%.2f", info.DPIScale))
	row("edge", taskbar.ClassifyEdge(info).String())
	row("rect", info.Rect.String())
	row("logical rect", info.LogicalRect().String())
	row("thickness", fmt.Sprintf("%d px (small: %v)", info.Height, taskbar.IsSmallTaskbar(info)))
	row("visible", fmt.Sprintf("%v", disc.IsTaskbarVisible(info)))
	row("tray", optRect(disc.TrayRect(info)))
	row("task list", optRect(info.TaskListRect))

	pos := calc.CalculatePosition(info, size, off)
	row("overlay", fmt.Sprintf("(%d,%d) for %dx%d, offsets %d/%d",
		pos.X, pos.Y, size.Width, size.Height, off.X, off.Y))
	return b.String()
}

func optRect(r *taskbar.Rect) string {
	if r == nil {
		return diagWarn.Render("not found")
	}
	return r.String()
}

// printHistoryStats summarizes the history database without creating one.
func printHistoryStats(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	dir, err := config.Dir()
	if err != nil {
		return err
	}
	path := filepath.Join(dir, app.HistoryFile)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(out, diagWarn.Render("no history database at "+path))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := history.Open(ctx, path, logger)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()

	st, err := store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("history stats: %w", err)
	}

	fmt.Fprintln(out, diagHeader.Render("History"))
	row := func(label, value string) {
		fmt.Fprintln(out, diagLabel.Render(label)+diagValue.Render(value))
	}
	row("database", path)
	if fi, err := os.Stat(path); err == nil {
		row("size", humanize.Bytes(uint64(fi.Size())))
	}
	for _, tier := range []history.Tier{history.TierRaw, history.TierMinute, history.TierHour} {
		row(tier.String()+" rows", humanize.Comma(int64(st.Rows[tier])))
	}
	if !st.Earliest.IsZero() {
		row("range", fmt.Sprintf("%s to %s", humanize.Time(st.Earliest), humanize.Time(st.Latest)))
	}
	row("peak down", humanize.Bytes(uint64(st.PeakDownload))+"/s")
	row("peak up", humanize.Bytes(uint64(st.PeakUpload))+"/s")
	if len(st.Interfaces) > 0 {
		row("interfaces", strings.Join(st.Interfaces, ", "))
	}
	return nil
}
