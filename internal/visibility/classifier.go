// Package visibility decides whether the overlay should currently be shown,
// based on the taskbar state and the foreground window.
package visibility

import (
	"log/slog"
	"strings"

	"netspeedtray/internal/taskbar"
)

// Inspector reads the window and process facts the classifier needs.
type Inspector interface {
	IsWindow(hwnd uintptr) bool
	ClassName(hwnd uintptr) (string, error)
	ProcessID(hwnd uintptr) (uint32, error)
	ProcessName(pid uint32) (string, error)
	MonitorFromWindow(hwnd uintptr) uintptr
	MonitorRects(monitor uintptr) (full, work taskbar.Rect, err error)
	WindowRect(hwnd uintptr) (taskbar.Rect, error)
	IsMaximized(hwnd uintptr) (bool, error)
	ForegroundWindow() uintptr
}

// TaskbarVisibility reports whether a taskbar is on screen.
type TaskbarVisibility interface {
	IsTaskbarVisible(info taskbar.Info) bool
}

// Window classes that never hide the overlay: the desktop and the taskbars.
var ignoredClasses = map[string]bool{
	"Progman":                     true,
	"WorkerW":                     true,
	taskbar.ClassPrimaryTaskbar:   true,
	taskbar.ClassSecondaryTaskbar: true,
}

const shellProcess = "explorer.exe"

// Browsers routinely size themselves to the work area without the maximized
// style; they only hide the overlay when truly fullscreen.
var browserProcesses = map[string]bool{
	"chrome.exe":  true,
	"firefox.exe": true,
	"msedge.exe":  true,
	"brave.exe":   true,
	"opera.exe":   true,
}

// Shell flyouts (Start, Search, Action Center) cover the tray area.
var flyoutProcesses = map[string]bool{
	"startmenuexperiencehost.exe": true,
	"searchexperiencehost.exe":    true,
	"shellexperiencehost.exe":     true,
}

// Classifier evaluates obstruction as an ordered rule chain. Every lookup
// failure answers "not obstructed": wrongly hiding the overlay is more
// visible than failing to hide it for one odd window.
type Classifier struct {
	inspector Inspector
	taskbars  TaskbarVisibility
	ownPID    uint32
	logger    *slog.Logger
}

// New creates a classifier. ownPID is the overlay's own process id.
func New(inspector Inspector, taskbars TaskbarVisibility, ownPID uint32, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		inspector: inspector,
		taskbars:  taskbars,
		ownPID:    ownPID,
		logger:    logger.With("component", "visibility"),
	}
}

// ForegroundWindow returns the current foreground window handle
func (c *Classifier) ForegroundWindow() uintptr {
	return c.inspector.ForegroundWindow()
}

// IsTaskbarVisible reports whether the taskbar itself is on screen.
func (c *Classifier) IsTaskbarVisible(info taskbar.Info) bool {
	return c.taskbars.IsTaskbarVisible(info)
}

// ShouldBeVisible is true when the taskbar is shown and hwnd does not obstruct it.
func (c *Classifier) ShouldBeVisible(info taskbar.Info, hwnd uintptr) bool {
	return c.taskbars.IsTaskbarVisible(info) && !c.IsObstructed(info, hwnd)
}

// IsObstructed reports whether hwnd covers the taskbar described by info.
func (c *Classifier) IsObstructed(info taskbar.Info, hwnd uintptr) bool {
	w, ok := c.inspect(info, hwnd)
	if !ok {
		return false
	}

	if w.rect == w.monitor {
		c.logger.Debug("obstructed: fullscreen", "process", w.process)
		return true
	}
	if browserProcesses[w.process] {
		return false
	}
	if flyoutProcesses[w.process] {
		c.logger.Debug("obstructed: shell flyout", "process", w.process)
		return true
	}
	if w.rect == w.work {
		maximized, err := c.inspector.IsMaximized(hwnd)
		if err != nil {
			return false
		}
		if !maximized {
			c.logger.Debug("obstructed: borderless work-area window", "process", w.process)
		}
		return !maximized
	}
	if !w.work.Contains(w.rect) {
		c.logger.Debug("obstructed: window exceeds work area", "process", w.process, "rect", w.rect.String())
		return true
	}
	return false
}

// IsTrueFullscreen reports whether hwnd exactly covers the taskbar's monitor.
// It is the narrow check used to hide the overlay before the debounced refresh.
func (c *Classifier) IsTrueFullscreen(info taskbar.Info, hwnd uintptr) bool {
	w, ok := c.inspect(info, hwnd)
	return ok && w.rect == w.monitor
}

type candidate struct {
	process string
	rect    taskbar.Rect
	monitor taskbar.Rect
	work    taskbar.Rect
}

// inspect applies the rules that always mean "not obstructed" and gathers
// the candidate's geometry. ok is false when the window can be ignored.
func (c *Classifier) inspect(info taskbar.Info, hwnd uintptr) (candidate, bool) {
	if hwnd == 0 || !c.inspector.IsWindow(hwnd) {
		return candidate{}, false
	}
	pid, err := c.inspector.ProcessID(hwnd)
	if err != nil || pid == c.ownPID {
		return candidate{}, false
	}
	class, err := c.inspector.ClassName(hwnd)
	if err != nil || ignoredClasses[class] {
		return candidate{}, false
	}
	name, err := c.inspector.ProcessName(pid)
	if err != nil {
		c.logger.Debug("process name unavailable", "pid", pid, "error", err)
		return candidate{}, false
	}
	name = strings.ToLower(name)
	if name == shellProcess {
		return candidate{}, false
	}

	mon := c.inspector.MonitorFromWindow(hwnd)
	tbMon := info.Monitor
	if tbMon == 0 && info.Handle != 0 {
		tbMon = c.inspector.MonitorFromWindow(info.Handle)
	}
	if mon == 0 || (tbMon != 0 && mon != tbMon) {
		return candidate{}, false
	}

	full, work, err := c.inspector.MonitorRects(mon)
	if err != nil {
		return candidate{}, false
	}
	rect, err := c.inspector.WindowRect(hwnd)
	if err != nil {
		return candidate{}, false
	}
	return candidate{process: name, rect: rect, monitor: full, work: work}, true
}
