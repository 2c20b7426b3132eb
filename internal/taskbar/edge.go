package taskbar

// Edge is the screen side a taskbar is docked to.
type Edge int

const (
	EdgeUnknown Edge = iota
	EdgeTop
	EdgeBottom
	EdgeLeft
	EdgeRight
)

func (e Edge) String() string {
	switch e {
	case EdgeTop:
		return "top"
	case EdgeBottom:
		return "bottom"
	case EdgeLeft:
		return "left"
	case EdgeRight:
		return "right"
	default:
		return "unknown"
	}
}

// Horizontal reports whether the taskbar runs along the top or bottom.
func (e Edge) Horizontal() bool { return e == EdgeTop || e == EdgeBottom }

// ClassifyEdge derives the docked edge of a taskbar from its logical rect and
// its screen geometry.
//
// The fallback snapshot is reported as bottom, the Windows default. Snapshots
// with no usable geometry are unknown.
func ClassifyEdge(info Info) Edge {
	if info.IsFallback() {
		return EdgeBottom
	}
	if info.Rect.Empty() || info.DPIScale <= 0 || info.ScreenGeometry.Width <= 0 || info.ScreenGeometry.Height <= 0 {
		return EdgeUnknown
	}

	tb := info.LogicalRect()
	sg := info.ScreenGeometry

	if tb.Width() > tb.Height() {
		top := abs(tb.Top-sg.Y) <= EdgeTolerance
		bottom := abs(tb.Bottom-sg.Bottom()) <= EdgeTolerance
		switch {
		case top && !bottom:
			return EdgeTop
		case bottom && !top:
			return EdgeBottom
		}
		if tb.Top+tb.Height()/2 < sg.Y+sg.Height/2 {
			return EdgeTop
		}
		return EdgeBottom
	}

	left := abs(tb.Left-sg.X) <= EdgeTolerance
	right := abs(tb.Right-sg.Right()) <= EdgeTolerance
	switch {
	case left && !right:
		return EdgeLeft
	case right && !left:
		return EdgeRight
	}
	if tb.Left+tb.Width()/2 < sg.X+sg.Width/2 {
		return EdgeLeft
	}
	return EdgeRight
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
