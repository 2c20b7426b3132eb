// Package position computes where the overlay sits relative to the taskbar
// and applies that placement to the overlay window.
package position

import (
	"log/slog"

	"netspeedtray/internal/taskbar"
)

const (
	// Padding separates the overlay from the task list or tray it is clamped against.
	Padding = 4

	// ScreenEdgeMargin insets the safe fallback position from the screen corner.
	ScreenEdgeMargin = 5

	// MaxWidgetWidth and MaxWidgetHeight bound the size used for placement so
	// a runaway layout cannot push the overlay off screen.
	MaxWidgetWidth  = 600
	MaxWidgetHeight = 200
)

// ScreenPosition is a logical top-left coordinate
type ScreenPosition struct {
	X int
	Y int
}

// Point converts to a taskbar.Point
func (p ScreenPosition) Point() taskbar.Point { return taskbar.Point{X: p.X, Y: p.Y} }

// Offsets are the user-tunable gaps between the overlay and the tray.
type Offsets struct {
	X int // horizontal taskbars
	Y int // vertical taskbars
}

// ScreenSource provides the primary screen for the fallback position.
type ScreenSource interface {
	PrimaryScreen() (taskbar.Screen, bool)
}

// Calculator maps a taskbar snapshot and widget size to a position. It does
// no I/O beyond asking its ScreenSource for the primary screen.
type Calculator struct {
	screens ScreenSource
	logger  *slog.Logger
}

// NewCalculator creates a calculator
func NewCalculator(screens ScreenSource, logger *slog.Logger) *Calculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Calculator{screens: screens, logger: logger.With("component", "position")}
}

// CalculatePosition returns the default overlay position beside the tray.
// Any failure yields SafeFallbackPosition.
func (c *Calculator) CalculatePosition(info taskbar.Info, size taskbar.Size, off Offsets) (pos ScreenPosition) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("position calculation panicked", "panic", r)
			pos = c.SafeFallbackPosition(size)
		}
	}()

	if info.IsFallback() {
		return c.SafeFallbackPosition(size)
	}
	if size.Width <= 0 || size.Height <= 0 {
		c.logger.Warn("invalid widget size", "width", size.Width, "height", size.Height)
		return c.SafeFallbackPosition(size)
	}
	size = c.clampSize(size)

	edge := taskbar.ClassifyEdge(info)
	var x, y int
	switch edge {
	case taskbar.EdgeTop, taskbar.EdgeBottom:
		x, y = c.horizontal(info, size, off)
	case taskbar.EdgeLeft, taskbar.EdgeRight:
		x, y = c.vertical(info, size, off)
	default:
		return c.SafeFallbackPosition(size)
	}

	return ValidatePosition(x, y, size, info.ScreenGeometry)
}

func (c *Calculator) horizontal(info taskbar.Info, size taskbar.Size, off Offsets) (int, int) {
	tb := info.LogicalRect()
	left, right := AxisBounds(info)

	y := tb.Top + (tb.Height()-size.Height)/2
	x := right - size.Width - off.X
	if x < left {
		c.logger.Warn("overlay would cover the task list, clamping",
			"x", x, "left_boundary", left, "width", size.Width)
		x = left + Padding
	}
	return x, y
}

func (c *Calculator) vertical(info taskbar.Info, size taskbar.Size, off Offsets) (int, int) {
	tb := info.LogicalRect()
	top, bottom := AxisBounds(info)

	x := tb.Left + (tb.Width()-size.Width)/2
	y := bottom - size.Height - off.Y
	if y < top {
		c.logger.Warn("overlay would cover the task list, clamping",
			"y", y, "top_boundary", top, "height", size.Height)
		y = top + Padding
	}
	return x, y
}

// AxisBounds returns the logical range along the taskbar the overlay may
// occupy: task list end to tray start. Left/right for horizontal taskbars,
// top/bottom for vertical ones. Missing children fall back to the taskbar ends.
func AxisBounds(info taskbar.Info) (start, end int) {
	dpi := info.DPIScale
	if dpi <= 0 {
		dpi = 1
	}
	tb := info.LogicalRect()

	if taskbar.ClassifyEdge(info).Horizontal() {
		start, end = tb.Left, tb.Right
		if info.TaskListRect != nil {
			start = info.TaskListRect.Logical(dpi).Right
		}
		if info.TrayRect != nil {
			end = info.TrayRect.Logical(dpi).Left
		}
		return start, end
	}

	start, end = tb.Top, tb.Bottom
	if info.TaskListRect != nil {
		start = info.TaskListRect.Logical(dpi).Bottom
	}
	if info.TrayRect != nil {
		end = info.TrayRect.Logical(dpi).Top
	}
	return start, end
}

// ConstrainDragPosition keeps a dragged overlay on its taskbar: the axis
// across the taskbar stays at the calculated value and the axis along it is
// clamped between the task list and the tray. ok is false when the snapshot
// cannot be used, in which case the drag frame should be ignored.
func (c *Calculator) ConstrainDragPosition(desired taskbar.Point, info taskbar.Info, size taskbar.Size, off Offsets) (p taskbar.Point, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("drag constraint panicked", "panic", r)
			p, ok = taskbar.Point{}, false
		}
	}()

	if info.IsFallback() || size.Width <= 0 || size.Height <= 0 {
		return taskbar.Point{}, false
	}
	edge := taskbar.ClassifyEdge(info)
	if edge == taskbar.EdgeUnknown {
		return taskbar.Point{}, false
	}
	size = c.clampSize(size)

	base := c.CalculatePosition(info, size, off)
	sg := info.ScreenGeometry
	dpi := info.DPIScale

	if edge.Horizontal() {
		lo, hi := sg.X, sg.Right()-size.Width
		if info.TaskListRect != nil {
			lo = info.TaskListRect.Logical(dpi).Right + Padding
		}
		if info.TrayRect != nil {
			hi = info.TrayRect.Logical(dpi).Left - size.Width - Padding
		}
		// A tray offset below Padding rests closer to the tray than the
		// drag range allows; keep the rest position reachable.
		hi = max(hi, base.X)
		x := clamp(desired.X, lo, max(lo, hi))
		return ValidatePosition(x, base.Y, size, sg).Point(), true
	}

	lo, hi := sg.Y, sg.Bottom()-size.Height
	if info.TaskListRect != nil {
		lo = info.TaskListRect.Logical(dpi).Bottom + Padding
	}
	if info.TrayRect != nil {
		hi = info.TrayRect.Logical(dpi).Top - size.Height - Padding
	}
	hi = max(hi, base.Y)
	y := clamp(desired.Y, lo, max(lo, hi))
	return ValidatePosition(base.X, y, size, sg).Point(), true
}

// SafeFallbackPosition is the bottom-right corner of the primary screen's
// available area, inset by ScreenEdgeMargin. It never panics.
func (c *Calculator) SafeFallbackPosition(size taskbar.Size) (pos ScreenPosition) {
	defer func() {
		if r := recover(); r != nil {
			pos = ScreenPosition{}
		}
	}()

	if c.screens == nil {
		return ScreenPosition{}
	}
	s, ok := c.screens.PrimaryScreen()
	if !ok {
		return ScreenPosition{}
	}
	area := s.Available
	if area.Width <= 0 || area.Height <= 0 {
		area = s.Geometry
	}

	x := area.X + area.Width - size.Width - ScreenEdgeMargin
	y := area.Y + area.Height - size.Height - ScreenEdgeMargin
	return ScreenPosition{X: max(x, area.X), Y: max(y, area.Y)}
}

// ValidatePosition clamps (x, y) so the whole widget stays on the screen.
// The full screen is used, not the work area, so the overlay may sit on the
// taskbar itself.
func ValidatePosition(x, y int, size taskbar.Size, screen taskbar.Geometry) ScreenPosition {
	return ScreenPosition{
		X: max(screen.X, min(x, screen.Right()-size.Width)),
		Y: max(screen.Y, min(y, screen.Bottom()-size.Height)),
	}
}

// IsPositionValid reports whether a widget at (x, y) is at least partly on screen.
func IsPositionValid(x, y int, size taskbar.Size, screen taskbar.Geometry) bool {
	return screen.Intersects(x, y, size.Width, size.Height)
}

func (c *Calculator) clampSize(size taskbar.Size) taskbar.Size {
	if size.Width > MaxWidgetWidth {
		c.logger.Warn("widget width exceeds maximum, clamping", "width", size.Width, "max", MaxWidgetWidth)
		size.Width = MaxWidgetWidth
	}
	if size.Height > MaxWidgetHeight {
		c.logger.Warn("widget height exceeds maximum, clamping", "height", size.Height, "max", MaxWidgetHeight)
		size.Height = MaxWidgetHeight
	}
	return size
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
