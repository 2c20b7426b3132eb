//go:build windows

package taskbar

import (
	"fmt"
	"sync"
	"syscall"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"
)

var (
	user32  = syscall.NewLazyDLL("user32.dll")
	shell32 = syscall.NewLazyDLL("shell32.dll")
	shcore  = syscall.NewLazyDLL("shcore.dll")

	procFindWindowEx        = user32.NewProc("FindWindowExW")
	procEnumDisplayMonitors = user32.NewProc("EnumDisplayMonitors")
	procGetMonitorInfo      = user32.NewProc("GetMonitorInfoW")
	procSHAppBarMessage     = shell32.NewProc("SHAppBarMessage")
	procGetDpiForMonitor    = shcore.NewProc("GetDpiForMonitor")
)

const (
	abmGetState     = 0x00000004
	absAutoHide     = 0x0000001
	mdtEffectiveDPI = 0
	baseDPI         = 96.0
)

type appBarData struct {
	CbSize           uint32
	HWnd             uintptr
	UCallbackMessage uint32
	UEdge            uint32
	Rc               win.RECT
	LParam           uintptr
}

type monitorInfoEx struct {
	CbSize    uint32
	RcMonitor win.RECT
	RcWork    win.RECT
	DwFlags   uint32
	SzDevice  [32]uint16
}

// EnumWindows and EnumDisplayMonitors callbacks are allocated once; the Go
// runtime caps the number of callbacks a process may create.
var (
	enumMu       sync.Mutex
	enumClass    string
	enumWindows  []uintptr
	enumMonitors []uintptr

	windowCallback = syscall.NewCallback(func(hwnd uintptr, _ uintptr) uintptr {
		if className(hwnd) == enumClass {
			enumWindows = append(enumWindows, hwnd)
		}
		return 1
	})

	monitorCallback = syscall.NewCallback(func(hmon, _, _, _ uintptr) uintptr {
		enumMonitors = append(enumMonitors, hmon)
		return 1
	})
)

// WindowsShell implements Shell with user32, shell32 and shcore.
type WindowsShell struct{}

// NewShell returns the Windows shell
func NewShell() *WindowsShell { return &WindowsShell{} }

func (WindowsShell) FindWindow(class string) uintptr {
	return findWindowEx(0, class)
}

func (WindowsShell) FindWindows(class string) []uintptr {
	enumMu.Lock()
	defer enumMu.Unlock()

	enumClass = class
	enumWindows = nil
	_ = windows.EnumWindows(windowCallback, nil)
	out := enumWindows
	enumWindows = nil
	return out
}

func (WindowsShell) FindChild(parent uintptr, class string) uintptr {
	return findWindowEx(parent, class)
}

func (WindowsShell) IsWindow(hwnd uintptr) bool {
	return hwnd != 0 && windows.IsWindow(windows.HWND(hwnd))
}

func (WindowsShell) IsWindowVisible(hwnd uintptr) bool {
	return win.IsWindowVisible(win.HWND(hwnd))
}

func (WindowsShell) ClassName(hwnd uintptr) (string, error) {
	name := className(hwnd)
	if name == "" {
		return "", fmt.Errorf("GetClassName %#x: %w", hwnd, ErrNotFound)
	}
	return name, nil
}

func (WindowsShell) WindowRect(hwnd uintptr) (Rect, error) {
	var r win.RECT
	if !win.GetWindowRect(win.HWND(hwnd), &r) {
		return Rect{}, fmt.Errorf("GetWindowRect %#x failed", hwnd)
	}
	return fromRECT(r), nil
}

func (WindowsShell) MonitorFromWindow(hwnd uintptr) uintptr {
	return uintptr(win.MonitorFromWindow(win.HWND(hwnd), win.MONITOR_DEFAULTTONEAREST))
}

func (WindowsShell) MonitorInfo(monitor uintptr) (MonitorInfo, error) {
	if monitor == 0 {
		return MonitorInfo{}, ErrNotFound
	}
	var mi win.MONITORINFO
	mi.CbSize = uint32(unsafe.Sizeof(mi))
	if !win.GetMonitorInfo(win.HMONITOR(monitor), &mi) {
		return MonitorInfo{}, fmt.Errorf("GetMonitorInfo %#x failed", monitor)
	}
	return MonitorInfo{
		Monitor: fromRECT(mi.RcMonitor),
		Work:    fromRECT(mi.RcWork),
		Primary: mi.DwFlags&win.MONITORINFOF_PRIMARY != 0,
	}, nil
}

func (WindowsShell) MonitorDPI(monitor uintptr) (float64, error) {
	if err := procGetDpiForMonitor.Find(); err != nil {
		return 0, fmt.Errorf("GetDpiForMonitor: %w", err)
	}
	var dx, dy uint32
	hr, _, _ := procGetDpiForMonitor.Call(
		monitor,
		mdtEffectiveDPI,
		uintptr(unsafe.Pointer(&dx)),
		uintptr(unsafe.Pointer(&dy)),
	)
	if hr != 0 || dx == 0 {
		return 0, fmt.Errorf("GetDpiForMonitor %#x: hresult %#x", monitor, hr)
	}
	return float64(dx) / baseDPI, nil
}

func (WindowsShell) AutoHide() (bool, error) {
	abd := appBarData{}
	abd.CbSize = uint32(unsafe.Sizeof(abd))
	if err := procSHAppBarMessage.Find(); err != nil {
		return false, fmt.Errorf("SHAppBarMessage: %w", err)
	}
	state, _, _ := procSHAppBarMessage.Call(abmGetState, uintptr(unsafe.Pointer(&abd)))
	return state&absAutoHide != 0, nil
}

// Screens enumerates display monitors. Logical geometry is the physical
// monitor rect divided by the monitor's effective DPI scale.
func (s WindowsShell) Screens() []Screen {
	enumMu.Lock()
	enumMonitors = nil
	procEnumDisplayMonitors.Call(0, 0, monitorCallback, 0)
	monitors := enumMonitors
	enumMonitors = nil
	enumMu.Unlock()

	screens := make([]Screen, 0, len(monitors))
	for _, hmon := range monitors {
		var mi monitorInfoEx
		mi.CbSize = uint32(unsafe.Sizeof(mi))
		if ret, _, _ := procGetMonitorInfo.Call(hmon, uintptr(unsafe.Pointer(&mi))); ret == 0 {
			continue
		}
		dpi, err := s.MonitorDPI(hmon)
		if err != nil {
			dpi = 1
		}
		screens = append(screens, Screen{
			Name:             windows.UTF16ToString(mi.SzDevice[:]),
			Monitor:          hmon,
			Geometry:         FromRect(fromRECT(mi.RcMonitor).Logical(dpi)),
			Available:        FromRect(fromRECT(mi.RcWork).Logical(dpi)),
			DevicePixelRatio: dpi,
			Primary:          mi.DwFlags&win.MONITORINFOF_PRIMARY != 0,
		})
	}
	return screens
}

func findWindowEx(parent uintptr, class string) uintptr {
	classPtr, err := syscall.UTF16PtrFromString(class)
	if err != nil {
		return 0
	}
	hwnd, _, _ := procFindWindowEx.Call(parent, 0, uintptr(unsafe.Pointer(classPtr)), 0)
	return hwnd
}

func className(hwnd uintptr) string {
	buf := make([]uint16, 256)
	n, err := windows.GetClassName(windows.HWND(hwnd), &buf[0], int32(len(buf)))
	if err != nil || n == 0 {
		return ""
	}
	return windows.UTF16ToString(buf[:n])
}

func fromRECT(r win.RECT) Rect {
	return Rect{Left: int(r.Left), Top: int(r.Top), Right: int(r.Right), Bottom: int(r.Bottom)}
}
