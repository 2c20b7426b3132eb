//go:build windows

package visibility

import (
	"fmt"
	"path/filepath"
	"syscall"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"

	"netspeedtray/internal/taskbar"
)

var (
	dwmapi                    = syscall.NewLazyDLL("dwmapi.dll")
	procDwmGetWindowAttribute = dwmapi.NewProc("DwmGetWindowAttribute")
)

const dwmwaExtendedFrameBounds = 9

// WindowsInspector implements Inspector with user32, kernel32 and dwmapi.
type WindowsInspector struct{}

// NewInspector returns the Windows inspector
func NewInspector() *WindowsInspector { return &WindowsInspector{} }

func (WindowsInspector) IsWindow(hwnd uintptr) bool {
	return windows.IsWindow(windows.HWND(hwnd))
}

func (WindowsInspector) ClassName(hwnd uintptr) (string, error) {
	buf := make([]uint16, 256)
	n, err := windows.GetClassName(windows.HWND(hwnd), &buf[0], int32(len(buf)))
	if err != nil {
		return "", fmt.Errorf("GetClassName: %w", err)
	}
	return windows.UTF16ToString(buf[:n]), nil
}

func (WindowsInspector) ProcessID(hwnd uintptr) (uint32, error) {
	var pid uint32
	if _, err := windows.GetWindowThreadProcessId(windows.HWND(hwnd), &pid); err != nil {
		return 0, fmt.Errorf("GetWindowThreadProcessId: %w", err)
	}
	return pid, nil
}

func (WindowsInspector) ProcessName(pid uint32) (string, error) {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return "", fmt.Errorf("OpenProcess %d: %w", pid, err)
	}
	defer windows.CloseHandle(h)

	buf := make([]uint16, windows.MAX_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err != nil {
		return "", fmt.Errorf("QueryFullProcessImageName %d: %w", pid, err)
	}
	return filepath.Base(windows.UTF16ToString(buf[:size])), nil
}

func (WindowsInspector) MonitorFromWindow(hwnd uintptr) uintptr {
	return uintptr(win.MonitorFromWindow(win.HWND(hwnd), win.MONITOR_DEFAULTTONEAREST))
}

func (WindowsInspector) MonitorRects(monitor uintptr) (taskbar.Rect, taskbar.Rect, error) {
	var mi win.MONITORINFO
	mi.CbSize = uint32(unsafe.Sizeof(mi))
	if !win.GetMonitorInfo(win.HMONITOR(monitor), &mi) {
		return taskbar.Rect{}, taskbar.Rect{}, fmt.Errorf("GetMonitorInfo %#x failed", monitor)
	}
	return fromRECT(mi.RcMonitor), fromRECT(mi.RcWork), nil
}

// WindowRect prefers the DWM frame bounds, which exclude the invisible
// resize borders; a maximized window then matches the work area exactly.
func (WindowsInspector) WindowRect(hwnd uintptr) (taskbar.Rect, error) {
	var r win.RECT
	if procDwmGetWindowAttribute.Find() == nil {
		hr, _, _ := procDwmGetWindowAttribute.Call(
			hwnd,
			dwmwaExtendedFrameBounds,
			uintptr(unsafe.Pointer(&r)),
			unsafe.Sizeof(r),
		)
		if hr == 0 {
			return fromRECT(r), nil
		}
	}
	if !win.GetWindowRect(win.HWND(hwnd), &r) {
		return taskbar.Rect{}, fmt.Errorf("GetWindowRect %#x failed", hwnd)
	}
	return fromRECT(r), nil
}

func (WindowsInspector) IsMaximized(hwnd uintptr) (bool, error) {
	style := win.GetWindowLong(win.HWND(hwnd), win.GWL_STYLE)
	if style == 0 {
		return false, fmt.Errorf("GetWindowLong %#x failed", hwnd)
	}
	return style&win.WS_MAXIMIZE != 0, nil
}

func (WindowsInspector) ForegroundWindow() uintptr {
	return uintptr(windows.GetForegroundWindow())
}

func fromRECT(r win.RECT) taskbar.Rect {
	return taskbar.Rect{Left: int(r.Left), Top: int(r.Top), Right: int(r.Right), Bottom: int(r.Bottom)}
}
