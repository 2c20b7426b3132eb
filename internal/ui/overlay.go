package ui

import (
	"log/slog"
	"math"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"

	"netspeedtray/internal/netspeed"
	"netspeedtray/internal/platform"
	"netspeedtray/internal/taskbar"
)

const overlayTitle = "NetSpeedTray Overlay"

// ScreenSource lists the displays used to convert logical positions to
// physical pixels.
type ScreenSource interface {
	Screens() []taskbar.Screen
}

// OverlayCallbacks connect pointer input to the position manager and the
// scheduler. All run on the GUI goroutine.
type OverlayCallbacks struct {
	DragStarted func()
	Constrain   func(desired taskbar.Point) (taskbar.Point, bool)
	DragEnded   func()
	ContextMenu func(at taskbar.Point)
}

// OverlayWindow is the borderless speed widget. It implements
// position.Widget and must only be used from the GUI goroutine.
type OverlayWindow struct {
	app      fyne.App
	window   fyne.Window
	view     *speedView
	features platform.PlatformFeatures
	screens  ScreenSource
	logger   *slog.Logger

	// handleOf resolves the native handle once the window is shown
	handleOf func(fyne.Window) (platform.WindowHandle, error)

	mu        sync.RWMutex
	callbacks OverlayCallbacks
	visible   bool
	handle    platform.WindowHandle
	pos       taskbar.Point
	placed    bool
	size      taskbar.Size
	opacity   float64

	dragging bool
	grab     fyne.Position
}

// NewOverlayWindow creates the overlay; call Setup before use.
func NewOverlayWindow(app fyne.App, features platform.PlatformFeatures, screens ScreenSource, logger *slog.Logger) *OverlayWindow {
	if features == nil {
		features = platform.Features
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OverlayWindow{
		app:      app,
		features: features,
		screens:  screens,
		logger:   logger.With("component", "overlay"),
		handleOf: platform.WindowHandleOf,
		opacity:  1,
	}
}

// Setup creates the window and its content. The window stays hidden until
// SetVisible(true).
func (o *OverlayWindow) Setup() {
	if drv, ok := o.app.Driver().(desktop.Driver); ok {
		o.window = drv.CreateSplashWindow()
	} else {
		o.window = o.app.NewWindow(overlayTitle)
	}
	o.window.SetTitle(overlayTitle)
	o.window.SetPadded(false)
	o.window.SetFixedSize(true)

	o.view = newSpeedView()
	o.view.onDragged = o.dragged
	o.view.onDragEnd = o.dragEnded
	o.view.onSecondary = o.secondaryTapped
	o.window.SetContent(o.view)
	o.fit()
}

// SetCallbacks replaces the input callbacks
func (o *OverlayWindow) SetCallbacks(cb OverlayCallbacks) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.callbacks = cb
}

// SetCompact switches between the one-line and two-line layouts. It reports
// whether the window size changed, in which case the caller should
// reposition.
func (o *OverlayWindow) SetCompact(compact bool) bool {
	if o.view.compact == compact {
		return false
	}
	o.view.setCompact(compact)
	return o.fit()
}

// SetSpeed shows the latest reading
func (o *OverlayWindow) SetSpeed(r netspeed.Rate, unit string, decimals int) {
	up, down := SpeedLines(r, unit, decimals)
	o.view.setText(up, down)
}

// SetPaused greys out the labels
func (o *OverlayWindow) SetPaused(paused bool) {
	o.view.setPaused(paused)
}

// SetOpacity updates the window transparency
func (o *OverlayWindow) SetOpacity(opacity float64) {
	o.mu.Lock()
	o.opacity = opacity
	h := o.handle
	o.mu.Unlock()
	if h == 0 {
		return
	}
	if err := o.features.SetTransparency(h, opacity); err != nil {
		o.logger.Debug("failed to set transparency", "error", err)
	}
}

// Move places the window at a logical screen position.
func (o *OverlayWindow) Move(x, y int) {
	o.mu.Lock()
	o.pos = taskbar.Point{X: x, Y: y}
	o.placed = true
	h := o.handle
	o.mu.Unlock()

	if h != 0 {
		o.moveNative(h, x, y)
	}
}

func (o *OverlayWindow) moveNative(h platform.WindowHandle, x, y int) {
	scale := o.scaleAt(x, y)
	px, py := int(math.Round(float64(x)*scale)), int(math.Round(float64(y)*scale))
	if err := o.features.MoveWindowTo(h, px, py); err != nil {
		o.logger.Warn("failed to move overlay", "x", x, "y", y, "error", err)
	}
}

// scaleAt returns the device pixel ratio of the screen containing the
// logical point, falling back to the canvas scale.
func (o *OverlayWindow) scaleAt(x, y int) float64 {
	if s, ok := screenScale(o.screens, x, y); ok {
		return s
	}
	if o.window != nil {
		if s := float64(o.window.Canvas().Scale()); s > 0 {
			return s
		}
	}
	return 1
}

// Width returns the logical window width
func (o *OverlayWindow) Width() int { return o.Size().Width }

// Height returns the logical window height
func (o *OverlayWindow) Height() int { return o.Size().Height }

// Size returns the logical window size
func (o *OverlayWindow) Size() taskbar.Size {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.size
}

// Pos returns the last logical position applied
func (o *OverlayWindow) Pos() taskbar.Point {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.pos
}

// IsVisible returns current visibility state
func (o *OverlayWindow) IsVisible() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.visible
}

// SetVisible shows or hides the window. Showing re-applies the last position
// because the toolkit may re-centre a splash window.
func (o *OverlayWindow) SetVisible(visible bool) {
	if visible {
		o.window.Show()
		h := o.ensureNative()

		o.mu.Lock()
		o.visible = true
		pos, placed := o.pos, o.placed
		o.mu.Unlock()

		if h != 0 && placed {
			o.moveNative(h, pos.X, pos.Y)
		}
		return
	}

	o.window.Hide()
	o.mu.Lock()
	o.visible = false
	o.mu.Unlock()
}

// Handle returns the native window handle, zero before the first show.
func (o *OverlayWindow) Handle() platform.WindowHandle {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.handle
}

// Window returns the underlying fyne window
func (o *OverlayWindow) Window() fyne.Window {
	return o.window
}

// Close destroys the window
func (o *OverlayWindow) Close() {
	if o.window != nil {
		o.window.Close()
	}
}

// ensureNative resolves the handle on first show and applies the tool-window,
// transparency and topmost styles.
func (o *OverlayWindow) ensureNative() platform.WindowHandle {
	o.mu.RLock()
	h, opacity := o.handle, o.opacity
	o.mu.RUnlock()
	if h != 0 {
		return h
	}

	h, err := o.handleOf(o.window)
	if err != nil {
		o.logger.Debug("native handle not available", "error", err)
		return 0
	}

	if err := o.features.SetToolWindow(h); err != nil {
		o.logger.Warn("failed to set tool window style", "error", err)
	}
	if err := o.features.SetTransparency(h, opacity); err != nil {
		o.logger.Debug("failed to set transparency", "error", err)
	}
	if err := o.features.SetAlwaysOnTop(h, true); err != nil {
		o.logger.Warn("failed to set always on top", "error", err)
	}

	o.mu.Lock()
	o.handle = h
	o.mu.Unlock()
	o.logger.Info("overlay window ready", "handle", uintptr(h), "opacity", opacity)
	return h
}

// fit resizes the window to the view. Reports whether the size changed.
func (o *OverlayWindow) fit() bool {
	ms := o.view.MinSize()
	o.window.Resize(ms)
	size := taskbar.Size{Width: int(math.Ceil(float64(ms.Width))), Height: int(math.Ceil(float64(ms.Height)))}

	o.mu.Lock()
	defer o.mu.Unlock()
	changed := o.size != size
	o.size = size
	return changed
}

func (o *OverlayWindow) dragged(e *fyne.DragEvent) {
	o.mu.Lock()
	cb := o.callbacks
	started := !o.dragging
	if started {
		o.dragging = true
		o.grab = e.Position.Subtract(e.Dragged)
	}
	grab, pos := o.grab, o.pos
	o.mu.Unlock()

	if started && cb.DragStarted != nil {
		cb.DragStarted()
	}

	// The event is relative to the window, which follows the cursor, so the
	// target is the current origin plus the cursor's offset from the grab point.
	desired := taskbar.Point{
		X: pos.X + int(math.Round(float64(e.Position.X-grab.X))),
		Y: pos.Y + int(math.Round(float64(e.Position.Y-grab.Y))),
	}
	if cb.Constrain != nil {
		var ok bool
		if desired, ok = cb.Constrain(desired); !ok {
			return
		}
	}
	if desired != pos {
		o.Move(desired.X, desired.Y)
	}
}

func (o *OverlayWindow) dragEnded() {
	o.mu.Lock()
	cb := o.callbacks
	was := o.dragging
	o.dragging = false
	o.mu.Unlock()

	if was && cb.DragEnded != nil {
		cb.DragEnded()
	}
}

func (o *OverlayWindow) secondaryTapped(e *fyne.PointEvent) {
	o.mu.RLock()
	cb := o.callbacks
	pos := o.pos
	o.mu.RUnlock()

	if cb.ContextMenu != nil {
		cb.ContextMenu(taskbar.Point{
			X: pos.X + int(e.Position.X),
			Y: pos.Y + int(e.Position.Y),
		})
	}
}

// screenScale returns the device pixel ratio of the screen containing the
// logical point.
func screenScale(screens ScreenSource, x, y int) (float64, bool) {
	if screens == nil {
		return 0, false
	}
	for _, s := range screens.Screens() {
		if s.Geometry.Contains(x, y) && s.DevicePixelRatio > 0 {
			return s.DevicePixelRatio, true
		}
	}
	return 0, false
}
