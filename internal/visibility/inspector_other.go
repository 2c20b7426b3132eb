//go:build !windows

package visibility

import (
	"errors"

	"netspeedtray/internal/taskbar"
)

var errUnsupported = errors.New("visibility: unsupported platform")

// OtherInspector never finds a foreground window, so nothing obstructs.
type OtherInspector struct{}

// NewInspector returns the stub inspector
func NewInspector() *OtherInspector { return &OtherInspector{} }

func (OtherInspector) IsWindow(uintptr) bool              { return false }
func (OtherInspector) ClassName(uintptr) (string, error)  { return "", errUnsupported }
func (OtherInspector) ProcessID(uintptr) (uint32, error)  { return 0, errUnsupported }
func (OtherInspector) ProcessName(uint32) (string, error) { return "", errUnsupported }
func (OtherInspector) MonitorFromWindow(uintptr) uintptr  { return 0 }
func (OtherInspector) WindowRect(uintptr) (taskbar.Rect, error) {
	return taskbar.Rect{}, errUnsupported
}
func (OtherInspector) IsMaximized(uintptr) (bool, error) { return false, errUnsupported }
func (OtherInspector) ForegroundWindow() uintptr         { return 0 }

func (OtherInspector) MonitorRects(uintptr) (taskbar.Rect, taskbar.Rect, error) {
	return taskbar.Rect{}, taskbar.Rect{}, errUnsupported
}
