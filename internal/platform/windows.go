//go:build windows

package platform

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"syscall"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver"
	"github.com/lxn/win"
	"golang.org/x/sys/windows"
)

var (
	user32                   = syscall.NewLazyDLL("user32.dll")
	procSetLayeredWindowAttr = user32.NewProc("SetLayeredWindowAttributes")
	procRegisterHotKey       = user32.NewProc("RegisterHotKey")
	procUnregisterHotKey     = user32.NewProc("UnregisterHotKey")
	procPostThreadMessage    = user32.NewProc("PostThreadMessageW")
)

const (
	wsExLayered    = 0x00080000
	wsExToolWindow = 0x00000080
	wsExAppWindow  = 0x00040000
	wsExNoActivate = 0x08000000

	lwaAlpha = 0x00000002

	zOrderFlags = win.SWP_NOMOVE | win.SWP_NOSIZE | win.SWP_NOACTIVATE
	moveFlags   = win.SWP_NOSIZE | win.SWP_NOZORDER | win.SWP_NOACTIVATE

	wmHotkey = 0x0312
	wmQuit   = 0x0012
)

// WindowsFeatures implements PlatformFeatures for Windows
type WindowsFeatures struct {
	mu             sync.Mutex
	hotkeyThreadID uint32
	hotkeyDone     chan struct{}
	hotkeyRunning  bool
	logger         *slog.Logger
}

// NewWindowsFeatures creates a new Windows platform features instance
func NewWindowsFeatures() *WindowsFeatures {
	return &WindowsFeatures{logger: slog.Default().With("component", "platform")}
}

// SetAlwaysOnTop places the window in or out of the topmost band without
// moving, resizing or activating it.
func (w *WindowsFeatures) SetAlwaysOnTop(handle WindowHandle, onTop bool) error {
	insertAfter := win.HWND_NOTOPMOST
	if onTop {
		insertAfter = win.HWND_TOPMOST
	}
	if !win.SetWindowPos(win.HWND(handle), insertAfter, 0, 0, 0, 0, zOrderFlags) {
		return fmt.Errorf("SetWindowPos(topmost=%v) failed: %w", onTop, windows.GetLastError())
	}
	return nil
}

// SetTransparency sets the window opacity (0..1)
func (w *WindowsFeatures) SetTransparency(handle WindowHandle, opacity float64) error {
	hwnd := win.HWND(handle)
	style := win.GetWindowLong(hwnd, win.GWL_EXSTYLE)
	win.SetWindowLong(hwnd, win.GWL_EXSTYLE, style|wsExLayered)

	alpha := byte(opacity * 255)
	ret, _, err := procSetLayeredWindowAttr.Call(uintptr(handle), 0, uintptr(alpha), lwaAlpha)
	if ret == 0 {
		return fmt.Errorf("SetLayeredWindowAttributes failed: %w", err)
	}
	return nil
}

// SetToolWindow removes the window from the taskbar and Alt+Tab and stops it
// from taking focus when clicked.
func (w *WindowsFeatures) SetToolWindow(handle WindowHandle) error {
	hwnd := win.HWND(handle)
	style := win.GetWindowLong(hwnd, win.GWL_EXSTYLE)
	style = (style | wsExToolWindow | wsExNoActivate) &^ wsExAppWindow
	win.SetWindowLong(hwnd, win.GWL_EXSTYLE, style)
	if !win.SetWindowPos(hwnd, 0, 0, 0, 0, 0, zOrderFlags|win.SWP_NOZORDER|win.SWP_FRAMECHANGED) {
		return fmt.Errorf("SetWindowPos(frame) failed: %w", windows.GetLastError())
	}
	return nil
}

// MoveWindowTo moves a window keeping its size and Z-order
func (w *WindowsFeatures) MoveWindowTo(handle WindowHandle, x, y int) error {
	if !win.SetWindowPos(win.HWND(handle), 0, int32(x), int32(y), 0, 0, moveFlags) {
		return fmt.Errorf("SetWindowPos(move) failed: %w", windows.GetLastError())
	}
	return nil
}

// GetWindowRect returns the window position and size in physical pixels
func (w *WindowsFeatures) GetWindowRect(handle WindowHandle) (x, y, width, height int, err error) {
	var r win.RECT
	if !win.GetWindowRect(win.HWND(handle), &r) {
		return 0, 0, 0, 0, fmt.Errorf("GetWindowRect failed: %w", windows.GetLastError())
	}
	return int(r.Left), int(r.Top), int(r.Right - r.Left), int(r.Bottom - r.Top), nil
}

// SetupHotkeyListener registers the bindings and runs the hotkey message
// loop. It returns once the listener thread can receive WM_QUIT.
func (w *WindowsFeatures) SetupHotkeyListener(bindings []Hotkey, callback func(id int)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.hotkeyRunning {
		return nil
	}

	ready := make(chan uint32, 1)
	done := make(chan struct{})

	go func() {
		defer close(done)
		// RegisterHotKey and GetMessage must run on the same OS thread.
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		for _, hk := range bindings {
			ret, _, err := procRegisterHotKey.Call(0, uintptr(hk.ID), uintptr(hk.Modifiers|ModNoRepeat), uintptr(hk.KeyCode))
			if ret == 0 {
				w.logger.Warn("failed to register hotkey", "hotkey", hk.Name, "error", err)
				continue
			}
			w.logger.Debug("registered hotkey", "hotkey", hk.Name)
		}
		// RegisterHotKey gave this thread a message queue, so a posted
		// WM_QUIT can no longer be lost.
		ready <- windows.GetCurrentThreadId()

		var msg win.MSG
		for {
			// 0 is WM_QUIT, -1 is an error
			ret := win.GetMessage(&msg, 0, 0, 0)
			if ret == 0 || ret == -1 {
				break
			}
			if msg.Message == wmHotkey {
				callback(int(msg.WParam))
			}
		}

		for _, hk := range bindings {
			procUnregisterHotKey.Call(0, uintptr(hk.ID))
		}
		w.logger.Debug("hotkey message loop exited")
	}()

	w.hotkeyThreadID = <-ready
	w.hotkeyDone = done
	w.hotkeyRunning = true
	return nil
}

// StopHotkeyListener stops the hotkey message loop and waits for it to exit
func (w *WindowsFeatures) StopHotkeyListener() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.hotkeyRunning {
		return
	}
	w.hotkeyRunning = false

	// WM_QUIT unblocks GetMessage on the listener thread
	PostQuit(w.hotkeyThreadID)
	<-w.hotkeyDone
	w.hotkeyThreadID, w.hotkeyDone = 0, nil
}

// PostQuit posts WM_QUIT to a thread running a GetMessage loop.
func PostQuit(threadID uint32) {
	procPostThreadMessage.Call(uintptr(threadID), wmQuit, 0, 0)
}

// WindowHandleOf returns the HWND behind a fyne window. It must not be
// called before the window has been shown.
func WindowHandleOf(w fyne.Window) (WindowHandle, error) {
	nw, ok := w.(driver.NativeWindow)
	if !ok {
		return 0, fmt.Errorf("window has no native handle: %w", ErrUnsupported)
	}
	var (
		hwnd uintptr
		wg   sync.WaitGroup
	)
	wg.Add(1)
	nw.RunNative(func(ctx any) {
		defer wg.Done()
		if winCtx, ok := ctx.(driver.WindowsWindowContext); ok {
			hwnd = winCtx.HWND
		}
	})
	wg.Wait()
	if hwnd == 0 {
		return 0, fmt.Errorf("native window not ready")
	}
	return WindowHandle(hwnd), nil
}

// Features is the process-wide platform implementation
var Features PlatformFeatures = NewWindowsFeatures()
