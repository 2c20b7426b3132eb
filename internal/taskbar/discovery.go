package taskbar

import (
	"errors"
	"log/slog"
	"math"
	"sync"
)

var (
	// ErrUnsupported is returned by the shell on platforms without a taskbar.
	ErrUnsupported = errors.New("taskbar: unsupported platform")

	// ErrNotFound is returned when a window or monitor lookup has no result.
	ErrNotFound = errors.New("taskbar: not found")
)

// MonitorInfo is the raw monitor description reported by the OS.
type MonitorInfo struct {
	Monitor Rect
	Work    Rect
	Primary bool
}

// Shell is the OS surface discovery needs. The Windows implementation lives
// in shell_windows.go; tests substitute a fake.
type Shell interface {
	FindWindow(class string) uintptr
	FindWindows(class string) []uintptr
	FindChild(parent uintptr, class string) uintptr
	IsWindow(hwnd uintptr) bool
	IsWindowVisible(hwnd uintptr) bool
	ClassName(hwnd uintptr) (string, error)
	WindowRect(hwnd uintptr) (Rect, error)
	MonitorFromWindow(hwnd uintptr) uintptr
	MonitorInfo(monitor uintptr) (MonitorInfo, error)
	MonitorDPI(monitor uintptr) (float64, error)
	AutoHide() (bool, error)
	Screens() []Screen
}

// Discoverer builds taskbar snapshots from a Shell. It caches per-monitor DPI
// and remembers which monitors already produced a DPI warning.
type Discoverer struct {
	shell  Shell
	logger *slog.Logger

	mu       sync.Mutex
	dpiCache map[uintptr]float64
	warned   map[uintptr]struct{}
}

// NewDiscoverer creates a discoverer over the given shell
func NewDiscoverer(shell Shell, logger *slog.Logger) *Discoverer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discoverer{
		shell:    shell,
		logger:   logger.With("component", "taskbar"),
		dpiCache: make(map[uintptr]float64),
		warned:   make(map[uintptr]struct{}),
	}
}

// DiscoverAll returns every ready taskbar, primary first. When none is found
// it returns a single fallback snapshot built from the primary screen.
func (d *Discoverer) DiscoverAll() []Info {
	screens := d.shell.Screens()

	var candidates []uintptr
	if h := d.shell.FindWindow(ClassPrimaryTaskbar); h != 0 {
		candidates = append(candidates, h)
	}
	candidates = append(candidates, d.shell.FindWindows(ClassSecondaryTaskbar)...)

	seen := make(map[uintptr]struct{}, len(candidates))
	var out []Info
	for _, h := range candidates {
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		if info, ok := d.inspect(h, screens); ok {
			out = append(out, info)
		}
	}

	if len(out) == 0 {
		return []Info{d.fallback(screens)}
	}
	return out
}

// DiscoverPrimary returns the primary taskbar, else the first one found, else
// the fallback snapshot.
func (d *Discoverer) DiscoverPrimary() Info {
	all := d.DiscoverAll()
	for _, info := range all {
		if info.IsPrimary {
			return info
		}
	}
	return all[0]
}

// TaskbarHeight returns the primary taskbar thickness in logical pixels.
func (d *Discoverer) TaskbarHeight() int {
	info := d.DiscoverPrimary()
	if info.IsFallback() || info.Height <= 0 {
		return DefaultHeight
	}
	return info.Height
}

// PrimaryScreen returns the primary display as reported by the shell.
func (d *Discoverer) PrimaryScreen() (Screen, bool) {
	return PrimaryScreen(d.shell.Screens())
}

// IsHandleValid reports whether hwnd still names a live window.
func (d *Discoverer) IsHandleValid(hwnd uintptr) bool {
	return hwnd != 0 && d.shell.IsWindow(hwnd)
}

// IsTaskbarVisible reports whether the taskbar is actually on screen. An
// auto-hidden taskbar that slid off its edge counts as hidden even though the
// window itself stays visible.
func (d *Discoverer) IsTaskbarVisible(info Info) bool {
	if info.IsFallback() || !d.shell.IsWindow(info.Handle) || !d.shell.IsWindowVisible(info.Handle) {
		return false
	}

	autoHide, err := d.shell.AutoHide()
	if err != nil {
		d.logger.Debug("app bar state unavailable", "error", err)
		return true
	}
	if !autoHide {
		return true
	}

	rect := info.Rect
	if live, err := d.shell.WindowRect(info.Handle); err == nil {
		rect = live
	}
	screen := info.ScreenGeometry.Physical(info.scale())

	switch ClassifyEdge(info) {
	case EdgeBottom:
		return rect.Top < screen.Bottom-AutoHideTolerance
	case EdgeTop:
		return rect.Bottom > screen.Top+AutoHideTolerance
	case EdgeLeft:
		return rect.Right > screen.Left+AutoHideTolerance
	case EdgeRight:
		return rect.Left < screen.Right-AutoHideTolerance
	}
	return true
}

// IsSmallTaskbar reports whether the compact single-row layout applies.
func IsSmallTaskbar(info Info) bool {
	return info.Height > 0 && info.Height <= SmallTaskbarThreshold
}

// FindTaskListRect walks ReBarWindow32 > MSTaskSwWClass > ToolbarWindow32 to
// the running-app icon strip. Returns nil if any hop is missing.
func (d *Discoverer) FindTaskListRect(hwnd uintptr) *Rect {
	if hwnd == 0 {
		return nil
	}
	rebar := d.shell.FindChild(hwnd, ClassReBar)
	if rebar == 0 {
		return nil
	}
	tasks := d.shell.FindChild(rebar, ClassTaskSwitch)
	if tasks == 0 {
		return nil
	}
	toolbar := d.shell.FindChild(tasks, ClassToolbar)
	if toolbar == 0 {
		return nil
	}
	r, err := d.shell.WindowRect(toolbar)
	if err != nil || r.Empty() {
		return nil
	}
	return &r
}

// TrayRect re-queries the live tray rectangle of a snapshot.
func (d *Discoverer) TrayRect(info Info) *Rect {
	if info.TrayHandle == 0 {
		return nil
	}
	r, err := d.shell.WindowRect(info.TrayHandle)
	if err != nil {
		return nil
	}
	return &r
}

// FindNearest returns the taskbar whose logical rect is closest to p.
func FindNearest(infos []Info, p Point) (Info, bool) {
	best, bestDist := -1, math.MaxFloat64
	for i, info := range infos {
		if info.IsFallback() {
			continue
		}
		r := info.LogicalRect()
		dx := max(r.Left-p.X, 0, p.X-r.Right)
		dy := max(r.Top-p.Y, 0, p.Y-r.Bottom)
		dist := math.Hypot(float64(dx), float64(dy))
		if dist < bestDist {
			best, bestDist = i, dist
		}
	}
	if best < 0 {
		return Info{}, false
	}
	return infos[best], true
}

// inspect turns one candidate window into a snapshot. A taskbar is only ready
// once its tray child exists and answers a rect query.
func (d *Discoverer) inspect(hwnd uintptr, screens []Screen) (Info, bool) {
	if !d.shell.IsWindow(hwnd) || !d.shell.IsWindowVisible(hwnd) {
		return Info{}, false
	}
	class, err := d.shell.ClassName(hwnd)
	if err != nil || (class != ClassPrimaryTaskbar && class != ClassSecondaryTaskbar) {
		return Info{}, false
	}
	rect, err := d.shell.WindowRect(hwnd)
	if err != nil || rect.Empty() {
		d.logger.Debug("taskbar rect unavailable", "hwnd", hwnd, "error", err)
		return Info{}, false
	}

	tray := d.shell.FindChild(hwnd, ClassTrayNotify)
	if tray == 0 {
		d.logger.Debug("taskbar not ready, no tray child", "hwnd", hwnd)
		return Info{}, false
	}
	trayRect, err := d.shell.WindowRect(tray)
	if err != nil {
		d.logger.Debug("taskbar not ready, tray rect failed", "hwnd", hwnd, "error", err)
		return Info{}, false
	}

	monitor := d.shell.MonitorFromWindow(hwnd)
	mi, err := d.shell.MonitorInfo(monitor)
	if err != nil {
		d.logger.Debug("monitor info unavailable", "monitor", monitor, "error", err)
	}

	dpi, dpiOK := d.monitorDPI(monitor)
	guess := dpi
	if !dpiOK {
		guess = 1
	}

	screen, found := FindScreen(rect, mi.Monitor, guess, screens)
	if !dpiOK {
		dpi = screen.DevicePixelRatio
		if dpi <= 0 {
			dpi = 1
		}
	}

	info := Info{
		Handle:       hwnd,
		TrayHandle:   tray,
		TrayRect:     &trayRect,
		TaskListRect: d.FindTaskListRect(hwnd),
		Rect:         rect,
		Monitor:      monitor,
		WorkArea:     mi.Work,
		DPIScale:     dpi,
		IsPrimary:    class == ClassPrimaryTaskbar,
		Height:       round(float64(min(rect.Width(), rect.Height())) / dpi),
	}
	if found {
		info.ScreenName = screen.Name
		info.ScreenGeometry = screen.Geometry
		info.Available = screen.Available
	} else if !mi.Monitor.Empty() {
		info.ScreenGeometry = FromRect(mi.Monitor.Logical(dpi))
		info.Available = FromRect(mi.Work.Logical(dpi))
	}
	if info.WorkArea.Empty() && found {
		info.WorkArea = screen.Available.Physical(dpi)
	}

	if err := info.Validate(); err != nil {
		d.logger.Debug("discarding taskbar", "error", err)
		return Info{}, false
	}
	return info, true
}

func (d *Discoverer) fallback(screens []Screen) Info {
	s, _ := PrimaryScreen(screens)
	dpi := s.DevicePixelRatio
	if dpi <= 0 {
		dpi = 1
	}
	return Info{
		ScreenName:     s.Name,
		ScreenGeometry: s.Geometry,
		Available:      s.Available,
		Rect:           s.Available.Physical(dpi),
		WorkArea:       s.Available.Physical(dpi),
		Monitor:        s.Monitor,
		DPIScale:       dpi,
		IsPrimary:      true,
		Height:         DefaultHeight,
	}
}

// monitorDPI returns the cached or freshly queried scale of a monitor. The
// first failure per monitor is logged at warning level, later ones are silent.
func (d *Discoverer) monitorDPI(monitor uintptr) (float64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if dpi, ok := d.dpiCache[monitor]; ok {
		return dpi, true
	}
	dpi, err := d.shell.MonitorDPI(monitor)
	if err == nil && dpi > 0 {
		d.dpiCache[monitor] = dpi
		return dpi, true
	}
	if _, seen := d.warned[monitor]; !seen {
		d.warned[monitor] = struct{}{}
		d.logger.Warn("monitor dpi unavailable, using screen pixel ratio", "monitor", monitor, "error", err)
	}
	return 0, false
}

// ResetCache drops cached DPI values, e.g. after a display change.
func (d *Discoverer) ResetCache() {
	d.mu.Lock()
	defer d.mu.Unlock()
	clear(d.dpiCache)
	clear(d.warned)
}
