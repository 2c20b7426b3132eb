// Package taskbar discovers the Windows shell taskbars and turns their raw
// window geometry into DPI-aware snapshots the rest of the overlay consumes.
package taskbar

import (
	"fmt"
	"math"
)

// Tolerances and defaults shared by discovery, edge classification and the
// position calculator.
const (
	// EdgeTolerance is how far (logical px) a taskbar side may sit from the
	// screen side it is docked to.
	EdgeTolerance = 5

	// AutoHideTolerance is how far (physical px) an auto-hidden taskbar may
	// still protrude into the screen while counting as slid away.
	AutoHideTolerance = 5

	// DefaultHeight is the logical taskbar thickness assumed when detection fails.
	DefaultHeight = 40

	// SmallTaskbarThreshold is the largest logical height rendered with the
	// compact single-row layout.
	SmallTaskbarThreshold = 34

	// Window classes owned by the shell.
	ClassPrimaryTaskbar   = "Shell_TrayWnd"
	ClassSecondaryTaskbar = "Shell_SecondaryTrayWnd"
	ClassTrayNotify       = "TrayNotifyWnd"
	ClassReBar            = "ReBarWindow32"
	ClassTaskSwitch       = "MSTaskSwWClass"
	ClassToolbar          = "ToolbarWindow32"
)

// Rect is a window rectangle in physical pixels. Right and Bottom are exclusive.
type Rect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// Width returns the horizontal extent
func (r Rect) Width() int { return r.Right - r.Left }

// Height returns the vertical extent
func (r Rect) Height() int { return r.Bottom - r.Top }

// Empty reports whether the rect has no area
func (r Rect) Empty() bool { return r.Right <= r.Left || r.Bottom <= r.Top }

// Area returns width*height, zero for empty rects
func (r Rect) Area() int {
	if r.Empty() {
		return 0
	}
	return r.Width() * r.Height()
}

// Intersect returns the overlapping region of r and o.
func (r Rect) Intersect(o Rect) Rect {
	out := Rect{
		Left:   max(r.Left, o.Left),
		Top:    max(r.Top, o.Top),
		Right:  min(r.Right, o.Right),
		Bottom: min(r.Bottom, o.Bottom),
	}
	if out.Empty() {
		return Rect{}
	}
	return out
}

// Contains reports whether o lies entirely inside r.
func (r Rect) Contains(o Rect) bool {
	return o.Left >= r.Left && o.Top >= r.Top && o.Right <= r.Right && o.Bottom <= r.Bottom
}

// ContainsPoint reports whether (x, y) lies inside r.
func (r Rect) ContainsPoint(x, y int) bool {
	return x >= r.Left && x < r.Right && y >= r.Top && y < r.Bottom
}

// Logical converts a physical rect to logical pixels at the given scale.
func (r Rect) Logical(dpi float64) Rect {
	if dpi <= 0 {
		dpi = 1
	}
	return Rect{
		Left:   round(float64(r.Left) / dpi),
		Top:    round(float64(r.Top) / dpi),
		Right:  round(float64(r.Right) / dpi),
		Bottom: round(float64(r.Bottom) / dpi),
	}
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d) %dx%d", r.Left, r.Top, r.Right, r.Bottom, r.Width(), r.Height())
}

// Geometry is a screen area in logical pixels, expressed as origin and size.
type Geometry struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Right returns the exclusive right edge
func (g Geometry) Right() int { return g.X + g.Width }

// Bottom returns the exclusive bottom edge
func (g Geometry) Bottom() int { return g.Y + g.Height }

// Rect returns the geometry as a logical Rect.
func (g Geometry) Rect() Rect {
	return Rect{Left: g.X, Top: g.Y, Right: g.Right(), Bottom: g.Bottom()}
}

// Physical scales the logical geometry to physical pixels.
func (g Geometry) Physical(dpi float64) Rect {
	return Rect{
		Left:   round(float64(g.X) * dpi),
		Top:    round(float64(g.Y) * dpi),
		Right:  round(float64(g.X)*dpi) + round(float64(g.Width)*dpi),
		Bottom: round(float64(g.Y)*dpi) + round(float64(g.Height)*dpi),
	}
}

// Contains reports whether the logical point lies inside the geometry.
func (g Geometry) Contains(x, y int) bool {
	return x >= g.X && x < g.Right() && y >= g.Y && y < g.Bottom()
}

// Intersects reports whether the widget-sized box at (x, y) overlaps g.
func (g Geometry) Intersects(x, y, w, h int) bool {
	return x < g.Right() && x+w > g.X && y < g.Bottom() && y+h > g.Y
}

// FromRect builds a Geometry from a rect in the same coordinate space.
func FromRect(r Rect) Geometry {
	return Geometry{X: r.Left, Y: r.Top, Width: r.Width(), Height: r.Height()}
}

// Point is a logical screen coordinate
type Point struct {
	X int
	Y int
}

// Size is a logical widget size
type Size struct {
	Width  int
	Height int
}

// Screen describes one logical display as the GUI toolkit sees it.
type Screen struct {
	Name             string
	Monitor          uintptr
	Geometry         Geometry
	Available        Geometry
	DevicePixelRatio float64
	Primary          bool
}

// Info is an immutable snapshot of one taskbar, rebuilt on every discovery.
//
// A zero Handle marks the fallback value produced when no taskbar could be
// found; its geometry describes the primary screen and must not be treated
// as a real taskbar.
type Info struct {
	Handle       uintptr
	TrayHandle   uintptr
	TrayRect     *Rect
	TaskListRect *Rect
	Rect         Rect
	Monitor      uintptr

	ScreenName     string
	ScreenGeometry Geometry
	Available      Geometry
	WorkArea       Rect
	DPIScale       float64
	IsPrimary      bool
	Height         int
}

// IsFallback reports whether this is the "no taskbar detected" sentinel.
func (i Info) IsFallback() bool { return i.Handle == 0 }

// LogicalRect returns the taskbar rect in logical pixels.
func (i Info) LogicalRect() Rect { return i.Rect.Logical(i.scale()) }

// Validate checks the invariants every non-fallback snapshot must satisfy.
func (i Info) Validate() error {
	if i.DPIScale <= 0 {
		return fmt.Errorf("taskbar %#x: invalid dpi scale %v", i.Handle, i.DPIScale)
	}
	if !i.IsFallback() && i.Height <= 0 {
		return fmt.Errorf("taskbar %#x: invalid height %d", i.Handle, i.Height)
	}
	return nil
}

func (i Info) scale() float64 {
	if i.DPIScale <= 0 {
		return 1
	}
	return i.DPIScale
}

func round(v float64) int {
	return int(math.Round(v))
}
