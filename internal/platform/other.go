//go:build !windows

package platform

import "fyne.io/fyne/v2"

// StubFeatures satisfies PlatformFeatures where no native calls exist.
type StubFeatures struct{}

func (StubFeatures) SetAlwaysOnTop(WindowHandle, bool) error       { return ErrUnsupported }
func (StubFeatures) SetTransparency(WindowHandle, float64) error   { return ErrUnsupported }
func (StubFeatures) SetToolWindow(WindowHandle) error              { return ErrUnsupported }
func (StubFeatures) MoveWindowTo(WindowHandle, int, int) error     { return ErrUnsupported }
func (StubFeatures) SetupHotkeyListener([]Hotkey, func(int)) error { return ErrUnsupported }
func (StubFeatures) StopHotkeyListener()                           {}

func (StubFeatures) GetWindowRect(WindowHandle) (int, int, int, int, error) {
	return 0, 0, 0, 0, ErrUnsupported
}

// PostQuit is a no-op off Windows
func PostQuit(uint32) {}

// WindowHandleOf always fails off Windows
func WindowHandleOf(fyne.Window) (WindowHandle, error) { return 0, ErrUnsupported }

// Features is the process-wide platform implementation
var Features PlatformFeatures = StubFeatures{}
