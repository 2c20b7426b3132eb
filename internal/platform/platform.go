// Package platform wraps the native window calls the overlay needs: Z-order,
// transparency, placement and global hotkeys.
package platform

import "errors"

// WindowHandle represents a platform-specific window handle
type WindowHandle uintptr

// ErrUnsupported is returned on platforms without a native implementation.
var ErrUnsupported = errors.New("platform: not supported")

// PlatformFeatures defines the native window operations used by the overlay.
type PlatformFeatures interface {
	// Window management
	SetAlwaysOnTop(handle WindowHandle, onTop bool) error
	SetTransparency(handle WindowHandle, opacity float64) error
	SetToolWindow(handle WindowHandle) error
	MoveWindowTo(handle WindowHandle, x, y int) error
	GetWindowRect(handle WindowHandle) (x, y, width, height int, err error)

	// Global hotkeys
	SetupHotkeyListener(bindings []Hotkey, callback func(id int)) error
	StopHotkeyListener()
}

// Hotkey is one global key binding registered by the listener.
type Hotkey struct {
	ID        int
	Modifiers uint
	KeyCode   uint
	Name      string
}

// Hotkey modifiers
const (
	ModAlt      uint = 0x0001
	ModCtrl     uint = 0x0002
	ModShift    uint = 0x0004
	ModWin      uint = 0x0008
	ModNoRepeat uint = 0x4000
)

// Virtual key codes
const (
	VK_F          uint = 0x46
	VK_P          uint = 0x50
	VK_R          uint = 0x52
	VK_OEM_PERIOD uint = 0xBE // '.' key
)
