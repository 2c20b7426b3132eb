package position

import (
	"fmt"
	"log/slog"

	"netspeedtray/internal/platform"
	"netspeedtray/internal/taskbar"
)

// Widget is the narrow window capability the manager positions.
type Widget interface {
	Move(x, y int)
	Width() int
	Height() int
	Pos() taskbar.Point
	Size() taskbar.Size
	IsVisible() bool
	SetVisible(visible bool)
	Handle() platform.WindowHandle
}

// Settings is the slice of configuration the manager reads and writes.
type Settings interface {
	FreeMove() bool
	SavedPosition() (x, y int, ok bool)
	SetSavedPosition(x, y *int) error
	Offsets() Offsets
	SetOffsets(off Offsets) error
}

// Discovery supplies taskbar snapshots.
type Discovery interface {
	DiscoverPrimary() taskbar.Info
	DiscoverAll() []taskbar.Info
	TrayRect(info taskbar.Info) *taskbar.Rect
}

// ZOrder changes the topmost state of a window.
type ZOrder interface {
	SetAlwaysOnTop(handle platform.WindowHandle, onTop bool) error
}

// Manager decides and applies the overlay position. It is the only component
// that moves the window. Methods must be called from the GUI goroutine.
type Manager struct {
	calc      *Calculator
	discovery Discovery
	settings  Settings
	widget    Widget
	zorder    ZOrder
	logger    *slog.Logger

	info     taskbar.Info
	haveInfo bool

	trayRect     taskbar.Rect
	trayObserved bool

	taskbarLost int
}

// NewManager wires a manager
func NewManager(calc *Calculator, discovery Discovery, settings Settings, widget Widget, zorder ZOrder, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		calc:      calc,
		discovery: discovery,
		settings:  settings,
		widget:    widget,
		zorder:    zorder,
		logger:    logger.With("component", "position"),
	}
}

// UpdatePosition moves the widget to its saved free-move position when that
// is still on screen, otherwise to the calculated position. A nil snapshot
// triggers a fresh discovery. Failures leave the widget where it is.
func (m *Manager) UpdatePosition(fresh *taskbar.Info) {
	defer m.recoverFrom("update position")

	info := m.refresh(fresh)

	if m.settings.FreeMove() {
		if x, y, ok := m.settings.SavedPosition(); ok && IsPositionValid(x, y, m.widget.Size(), info.ScreenGeometry) {
			m.apply(ScreenPosition{X: x, Y: y})
			return
		}
	}

	m.apply(m.calc.CalculatePosition(info, m.widget.Size(), m.settings.Offsets()))
}

// CalculatedPosition returns where UpdatePosition would place the widget
// outside free-move mode, without moving it.
func (m *Manager) CalculatedPosition() (pos ScreenPosition, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("calculated position failed", "panic", r)
			pos, ok = ScreenPosition{}, false
		}
	}()

	info := m.snapshot()
	return m.calc.CalculatePosition(info, m.widget.Size(), m.settings.Offsets()), true
}

// ResetToDefaultPosition forgets the saved position, repositions and
// re-asserts topmost.
func (m *Manager) ResetToDefaultPosition() {
	if err := m.settings.SetSavedPosition(nil, nil); err != nil {
		m.logger.Warn("failed to clear saved position", "error", err)
	}
	m.UpdatePosition(nil)
	m.EnsureTopmost()
}

// EnsureTopmost drops and re-applies the topmost flag. A plain re-assert is a
// no-op once the shell has left the Z-order stuck; the round trip forces the
// window manager to re-evaluate it.
func (m *Manager) EnsureTopmost() {
	defer m.recoverFrom("ensure topmost")

	h := m.widget.Handle()
	if h == 0 {
		return
	}
	if err := m.zorder.SetAlwaysOnTop(h, false); err != nil {
		m.logger.Debug("topmost demote failed", "error", err)
	}
	if err := m.zorder.SetAlwaysOnTop(h, true); err != nil {
		m.logger.Warn("topmost promote failed", "error", err)
	}
}

// ConstrainDrag maps a desired drag position to an allowed one. In free-move
// mode the widget is kept inside the screen under the point; otherwise it
// slides along the taskbar only. ok is false when the frame should be ignored.
func (m *Manager) ConstrainDrag(desired taskbar.Point) (taskbar.Point, bool) {
	size := m.widget.Size()

	if m.settings.FreeMove() {
		screen, ok := m.screenAt(desired)
		if !ok {
			return desired, true
		}
		return ValidatePosition(desired.X, desired.Y, size, screen).Point(), true
	}

	return m.calc.ConstrainDragPosition(desired, m.snapshot(), size, m.settings.Offsets())
}

// SavePosition persists the result of a drag. Free-move drags store the
// absolute position; taskbar drags store the distance from the tray so the
// calculated position reproduces where the user left the widget.
func (m *Manager) SavePosition() error {
	pos := m.widget.Pos()

	if m.settings.FreeMove() {
		x, y := pos.X, pos.Y
		if err := m.settings.SetSavedPosition(&x, &y); err != nil {
			return fmt.Errorf("save free-move position: %w", err)
		}
		return nil
	}

	info := m.snapshot()
	if info.IsFallback() {
		return nil
	}
	_, end := AxisBounds(info)
	off := m.settings.Offsets()
	if taskbar.ClassifyEdge(info).Horizontal() {
		off.X = max(0, end-m.widget.Width()-pos.X)
	} else {
		off.Y = max(0, end-m.widget.Height()-pos.Y)
	}
	if err := m.settings.SetOffsets(off); err != nil {
		return fmt.Errorf("save tray offset: %w", err)
	}
	return nil
}

// CheckTrayChange re-reads the tray rectangle and repositions when it moved,
// e.g. after tray icons were added or removed. The first observation only
// records the rect. Skipped in free-move mode and while hidden.
func (m *Manager) CheckTrayChange() bool {
	if m.settings.FreeMove() || !m.widget.IsVisible() {
		return false
	}

	r := m.discovery.TrayRect(m.snapshot())
	if r == nil {
		return false
	}
	if !m.trayObserved {
		m.trayRect, m.trayObserved = *r, true
		return false
	}
	if *r == m.trayRect {
		return false
	}

	m.logger.Debug("tray geometry changed", "old", m.trayRect.String(), "new", r.String())
	m.trayRect = *r
	m.UpdatePosition(nil)
	return true
}

// TaskbarInfo returns the most recent snapshot
func (m *Manager) TaskbarInfo() (taskbar.Info, bool) {
	return m.info, m.haveInfo
}

// NoteTaskbarLost counts a failed discovery and returns the consecutive total.
func (m *Manager) NoteTaskbarLost() int {
	m.taskbarLost++
	return m.taskbarLost
}

// NoteTaskbarFound resets the failure counter
func (m *Manager) NoteTaskbarFound() {
	m.taskbarLost = 0
}

// TaskbarLost returns the consecutive failure count
func (m *Manager) TaskbarLost() int {
	return m.taskbarLost
}

func (m *Manager) refresh(fresh *taskbar.Info) taskbar.Info {
	if fresh != nil {
		m.info = *fresh
	} else {
		m.info = m.discovery.DiscoverPrimary()
	}
	m.haveInfo = true
	return m.info
}

func (m *Manager) snapshot() taskbar.Info {
	if m.haveInfo {
		return m.info
	}
	return m.refresh(nil)
}

// screenAt returns the screen containing p, else the one owning the nearest taskbar.
func (m *Manager) screenAt(p taskbar.Point) (taskbar.Geometry, bool) {
	all := m.discovery.DiscoverAll()
	for _, info := range all {
		if info.ScreenGeometry.Contains(p.X, p.Y) {
			return info.ScreenGeometry, true
		}
	}
	if info, ok := taskbar.FindNearest(all, p); ok {
		return info.ScreenGeometry, true
	}
	if len(all) > 0 && all[0].ScreenGeometry.Width > 0 {
		return all[0].ScreenGeometry, true
	}
	return taskbar.Geometry{}, false
}

// apply moves the widget unless it is already there.
func (m *Manager) apply(p ScreenPosition) {
	if m.widget.Pos() == p.Point() {
		return
	}
	m.widget.Move(p.X, p.Y)
}

func (m *Manager) recoverFrom(op string) {
	if r := recover(); r != nil {
		m.logger.Error("position manager failure", "op", op, "panic", r)
	}
}
