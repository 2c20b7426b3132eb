package ui

import (
	"fmt"
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"

	"netspeedtray/internal/assets"
	"netspeedtray/internal/config"
)

// TrayCallbacks are the menu actions. They run on the GUI goroutine.
type TrayCallbacks struct {
	ToggleOverlay  func()
	ToggleFreeMove func()
	ResetPosition  func()
	TogglePause    func()
	ToggleStartup  func()
	ExportCSV      func()
	ExportGraph    func()
	Settings       func()
	Quit           func()
}

// TrayState is what the menu labels reflect.
type TrayState struct {
	OverlayShown bool
	FreeMove     bool
	Paused       bool
	StartOnLogon bool
}

// TrayManager handles the system tray icon and menu. The same menu backs the
// overlay's context menu.
type TrayManager struct {
	app       fyne.App
	menu      *fyne.Menu
	callbacks TrayCallbacks
	state     TrayState
	logger    *slog.Logger

	status   *fyne.MenuItem
	overlay  *fyne.MenuItem
	freeMove *fyne.MenuItem
	pause    *fyne.MenuItem
	startup  *fyne.MenuItem
}

// NewTrayManager creates a new tray manager
func NewTrayManager(app fyne.App, logger *slog.Logger) *TrayManager {
	if logger == nil {
		logger = slog.Default()
	}
	t := &TrayManager{
		app:    app,
		state:  TrayState{OverlayShown: true},
		logger: logger.With("component", "tray"),
	}
	t.build()
	return t
}

// SetCallbacks sets the callback functions for tray actions
func (t *TrayManager) SetCallbacks(cb TrayCallbacks) {
	t.callbacks = cb
}

func (t *TrayManager) build() {
	call := func(f *func()) func() {
		return func() {
			if *f != nil {
				(*f)()
			}
		}
	}

	t.status = fyne.NewMenuItem("Waiting for data…", nil)
	t.status.Disabled = true
	t.overlay = fyne.NewMenuItem("", call(&t.callbacks.ToggleOverlay))
	t.freeMove = fyne.NewMenuItem("Free Move", call(&t.callbacks.ToggleFreeMove))
	t.pause = fyne.NewMenuItem("", call(&t.callbacks.TogglePause))
	t.startup = fyne.NewMenuItem("Start with Windows", call(&t.callbacks.ToggleStartup))

	t.menu = fyne.NewMenu(config.AppName,
		t.status,
		fyne.NewMenuItemSeparator(),
		t.overlay,
		t.freeMove,
		fyne.NewMenuItem("Reset Position", call(&t.callbacks.ResetPosition)),
		t.pause,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Export History (CSV)", call(&t.callbacks.ExportCSV)),
		fyne.NewMenuItem("Export Graph (PNG)", call(&t.callbacks.ExportGraph)),
		t.startup,
		fyne.NewMenuItem("Settings...", call(&t.callbacks.Settings)),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", call(&t.callbacks.Quit)),
	)
	t.applyState()
}

// Setup installs the tray icon and menu
func (t *TrayManager) Setup() error {
	desk, ok := t.app.(desktop.App)
	if !ok {
		return fmt.Errorf("system tray not supported on this platform")
	}
	desk.SetSystemTrayMenu(t.menu)
	desk.SetSystemTrayIcon(assets.TrayIcon())
	t.logger.Info("system tray initialized")
	return nil
}

// Menu returns the menu shared with the overlay
func (t *TrayManager) Menu() *fyne.Menu {
	return t.menu
}

// State returns the state the labels currently show
func (t *TrayManager) State() TrayState {
	return t.state
}

// SetState updates labels, checkmarks and the tray icon
func (t *TrayManager) SetState(s TrayState) {
	pausedChanged := s.Paused != t.state.Paused
	t.state = s
	t.applyState()
	t.menu.Refresh()

	if desk, ok := t.app.(desktop.App); ok && pausedChanged {
		if s.Paused {
			desk.SetSystemTrayIcon(assets.PausedTrayIcon())
		} else {
			desk.SetSystemTrayIcon(assets.TrayIcon())
		}
	}
}

// SetStatus updates the disabled status line at the top of the menu
func (t *TrayManager) SetStatus(text string) {
	if t.status.Label == text {
		return
	}
	t.status.Label = text
	t.menu.Refresh()
}

func (t *TrayManager) applyState() {
	if t.state.OverlayShown {
		t.overlay.Label = "Hide Overlay"
	} else {
		t.overlay.Label = "Show Overlay"
	}
	t.freeMove.Checked = t.state.FreeMove
	t.startup.Checked = t.state.StartOnLogon
	if t.state.Paused {
		t.pause.Label = "Resume"
	} else {
		t.pause.Label = "Pause"
	}
}
