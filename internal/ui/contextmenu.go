package ui

import (
	"log/slog"
	"math"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"netspeedtray/internal/platform"
	"netspeedtray/internal/taskbar"
)

// DefaultMenuTimeout closes an untouched context menu. Splash windows get
// no focus-loss notification, so a click elsewhere cannot dismiss it.
const DefaultMenuTimeout = 10 * time.Second

// ContextMenu shows a menu in its own borderless window next to the overlay.
// GUI goroutine only.
type ContextMenu struct {
	app      fyne.App
	features platform.PlatformFeatures
	screens  ScreenSource
	logger   *slog.Logger
	handleOf func(fyne.Window) (platform.WindowHandle, error)

	Timeout time.Duration

	win     fyne.Window
	timer   *time.Timer
	gen     int
	onClose func()
}

// NewContextMenu creates a context menu host
func NewContextMenu(app fyne.App, features platform.PlatformFeatures, screens ScreenSource, logger *slog.Logger) *ContextMenu {
	if features == nil {
		features = platform.Features
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ContextMenu{
		app:      app,
		features: features,
		screens:  screens,
		logger:   logger.With("component", "overlay"),
		handleOf: platform.WindowHandleOf,
		Timeout:  DefaultMenuTimeout,
	}
}

// IsOpen reports whether a menu is showing
func (c *ContextMenu) IsOpen() bool { return c.win != nil }

// Show opens menu with its bottom-left corner at the logical point at. An
// open menu is closed first. onClose runs once when the menu goes away.
func (c *ContextMenu) Show(menu *fyne.Menu, at taskbar.Point, onClose func()) {
	c.Close()

	var w fyne.Window
	if drv, ok := c.app.Driver().(desktop.Driver); ok {
		w = drv.CreateSplashWindow()
	} else {
		w = c.app.NewWindow(menu.Label)
	}
	m := widget.NewMenu(menu)
	m.OnDismiss = c.Close
	w.SetPadded(false)
	w.SetContent(m)
	size := m.MinSize()
	w.Resize(size)

	c.win, c.onClose = w, onClose
	w.Show()

	if h, err := c.handleOf(w); err == nil {
		if err := c.features.SetToolWindow(h); err != nil {
			c.logger.Debug("menu tool window style failed", "error", err)
		}
		if err := c.features.SetAlwaysOnTop(h, true); err != nil {
			c.logger.Debug("menu topmost failed", "error", err)
		}
		x, y := at.X, at.Y-int(math.Ceil(float64(size.Height)))
		scale, ok := screenScale(c.screens, at.X, at.Y)
		if !ok {
			scale = 1
		}
		if err := c.features.MoveWindowTo(h, int(math.Round(float64(x)*scale)), int(math.Round(float64(max(y, 0))*scale))); err != nil {
			c.logger.Debug("menu move failed", "error", err)
		}
	}

	if c.Timeout > 0 {
		c.gen++
		gen := c.gen
		c.timer = time.AfterFunc(c.Timeout, func() {
			fyne.Do(func() {
				if c.gen == gen {
					c.Close()
				}
			})
		})
	}
}

// Close hides the menu and runs the close callback
func (c *ContextMenu) Close() {
	if c.win == nil {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	w, onClose := c.win, c.onClose
	c.win, c.onClose = nil, nil
	w.Close()
	if onClose != nil {
		onClose()
	}
}
