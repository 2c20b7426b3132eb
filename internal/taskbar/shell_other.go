//go:build !windows

package taskbar

// OtherShell reports no taskbars. It lets the overlay core build and be
// tested off Windows; discovery always yields the fallback snapshot.
type OtherShell struct{}

// NewShell returns the stub shell
func NewShell() *OtherShell { return &OtherShell{} }

func (OtherShell) FindWindow(string) uintptr                { return 0 }
func (OtherShell) FindWindows(string) []uintptr             { return nil }
func (OtherShell) FindChild(uintptr, string) uintptr        { return 0 }
func (OtherShell) IsWindow(uintptr) bool                    { return false }
func (OtherShell) IsWindowVisible(uintptr) bool             { return false }
func (OtherShell) ClassName(uintptr) (string, error)        { return "", ErrUnsupported }
func (OtherShell) WindowRect(uintptr) (Rect, error)         { return Rect{}, ErrUnsupported }
func (OtherShell) MonitorFromWindow(uintptr) uintptr        { return 0 }
func (OtherShell) MonitorDPI(uintptr) (float64, error)      { return 0, ErrUnsupported }
func (OtherShell) AutoHide() (bool, error)                  { return false, ErrUnsupported }
func (OtherShell) MonitorInfo(uintptr) (MonitorInfo, error) { return MonitorInfo{}, ErrUnsupported }

func (OtherShell) Screens() []Screen {
	return []Screen{{
		Name:             "default",
		Geometry:         Geometry{Width: 1920, Height: 1080},
		Available:        Geometry{Width: 1920, Height: 1040},
		DevicePixelRatio: 1,
		Primary:          true,
	}}
}
