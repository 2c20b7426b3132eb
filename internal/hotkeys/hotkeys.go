// Package hotkeys maps global key bindings to overlay actions.
package hotkeys

import (
	"log/slog"
	"sync"

	"netspeedtray/internal/platform"
)

// Hotkey IDs passed to RegisterHotKey
const (
	HotkeyToggleOverlay = iota + 1
	HotkeyResetPosition
	HotkeyToggleFreeMove
	HotkeyTogglePause
)

// Bindings returns the global shortcuts the manager registers.
func Bindings() []platform.Hotkey {
	mods := platform.ModCtrl | platform.ModAlt
	return []platform.Hotkey{
		{ID: HotkeyToggleOverlay, Modifiers: mods, KeyCode: platform.VK_OEM_PERIOD, Name: "Ctrl+Alt+."},
		{ID: HotkeyResetPosition, Modifiers: mods, KeyCode: platform.VK_R, Name: "Ctrl+Alt+R"},
		{ID: HotkeyToggleFreeMove, Modifiers: mods, KeyCode: platform.VK_F, Name: "Ctrl+Alt+F"},
		{ID: HotkeyTogglePause, Modifiers: mods, KeyCode: platform.VK_P, Name: "Ctrl+Alt+P"},
	}
}

// Callbacks run on the hotkey listener thread; callers marshal to the GUI
// goroutine themselves.
type Callbacks struct {
	ToggleOverlay  func()
	ResetPosition  func()
	ToggleFreeMove func()
	TogglePause    func()
}

// Listener is the part of platform.PlatformFeatures that owns hotkeys.
type Listener interface {
	SetupHotkeyListener(bindings []platform.Hotkey, callback func(id int)) error
	StopHotkeyListener()
}

// Manager handles global hotkey registration and events
type Manager struct {
	listener  Listener
	callbacks Callbacks
	logger    *slog.Logger
	mu        sync.Mutex
	running   bool
}

// NewManager creates a new hotkey manager
func NewManager(listener Listener, logger *slog.Logger) *Manager {
	if listener == nil {
		listener = platform.Features
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		listener: listener,
		logger:   logger.With("component", "hotkeys"),
	}
}

// SetCallbacks replaces the action callbacks
func (m *Manager) SetCallbacks(cb Callbacks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = cb
}

// Start begins listening for hotkeys
func (m *Manager) Start() error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	bindings := Bindings()
	if err := m.listener.SetupHotkeyListener(bindings, m.handleHotkey); err != nil {
		m.logger.Warn("failed to setup hotkey listener", "error", err)
		return err
	}

	m.mu.Lock()
	m.running = true
	m.mu.Unlock()

	names := make([]string, 0, len(bindings))
	for _, b := range bindings {
		names = append(names, b.Name)
	}
	m.logger.Info("hotkey listener started", "bindings", names)
	return nil
}

// Stop stops listening for hotkeys
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	m.listener.StopHotkeyListener()
	m.running = false
	m.logger.Info("hotkey listener stopped")
}

// handleHotkey processes hotkey events
func (m *Manager) handleHotkey(id int) {
	m.mu.Lock()
	cb := m.callbacks
	m.mu.Unlock()

	var (
		action func()
		name   string
	)
	switch id {
	case HotkeyToggleOverlay:
		action, name = cb.ToggleOverlay, "toggle overlay"
	case HotkeyResetPosition:
		action, name = cb.ResetPosition, "reset position"
	case HotkeyToggleFreeMove:
		action, name = cb.ToggleFreeMove, "toggle free move"
	case HotkeyTogglePause:
		action, name = cb.TogglePause, "toggle pause"
	default:
		m.logger.Warn("unknown hotkey", "id", id)
		return
	}

	m.logger.Debug("hotkey pressed", "action", name)
	if action != nil {
		action()
	}
}

// IsRunning returns whether the hotkey listener is active
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
