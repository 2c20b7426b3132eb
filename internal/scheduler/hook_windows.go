//go:build windows

package scheduler

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"syscall"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"

	"netspeedtray/internal/platform"
)

var (
	user32              = syscall.NewLazyDLL("user32.dll")
	procSetWinEventHook = user32.NewProc("SetWinEventHook")
	procUnhookWinEvent  = user32.NewProc("UnhookWinEvent")
)

const (
	eventSystemForeground  = 0x0003
	eventSystemMoveSizeEnd = 0x000B

	wineventOutOfContext   = 0x0000
	wineventSkipOwnProcess = 0x0002

	objidWindow = 0
)

// The callback trampoline is allocated once per process; syscall callbacks
// are never freed. The active sink is swapped on Start/Stop.
var (
	sinkMu sync.Mutex
	sink   chan<- Event

	winEventCallback = syscall.NewCallback(func(hook, event, hwnd, idObject, idChild, thread, when uintptr) uintptr {
		if int32(idObject) != objidWindow || hwnd == 0 {
			return 0
		}
		var kind EventKind
		switch event {
		case eventSystemForeground:
			kind = EventForeground
		case eventSystemMoveSizeEnd:
			kind = EventMoveSizeEnd
		default:
			return 0
		}

		sinkMu.Lock()
		ch := sink
		sinkMu.Unlock()
		if ch == nil {
			return 0
		}
		select {
		case ch <- Event{Kind: kind, Handle: hwnd}:
		default:
		}
		return 0
	})
)

// WinEventHook listens for foreground and move/size-end events on a
// dedicated locked OS thread running its own message loop.
type WinEventHook struct {
	mu       sync.Mutex
	running  bool
	threadID uint32
	done     chan struct{}
	logger   *slog.Logger
}

// NewHook creates an idle hook
func NewHook(logger *slog.Logger) *WinEventHook {
	if logger == nil {
		logger = slog.Default()
	}
	return &WinEventHook{logger: logger.With("component", "winevent")}
}

// Start installs the hooks and returns once they are registered.
func (h *WinEventHook) Start(events chan<- Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return nil
	}

	sinkMu.Lock()
	sink = events
	sinkMu.Unlock()

	type started struct {
		tid uint32
		err error
	}
	ready := make(chan started, 1)
	done := make(chan struct{})

	go func() {
		defer close(done)
		// SetWinEventHook delivers out-of-context events to the registering
		// thread, which must pump messages.
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		var hooks []uintptr
		for _, ev := range []uintptr{eventSystemForeground, eventSystemMoveSizeEnd} {
			hk, _, err := procSetWinEventHook.Call(ev, ev, 0, winEventCallback, 0, 0, wineventOutOfContext|wineventSkipOwnProcess)
			if hk == 0 {
				for _, prev := range hooks {
					procUnhookWinEvent.Call(prev)
				}
				ready <- started{err: fmt.Errorf("SetWinEventHook(%#x): %w", ev, err)}
				return
			}
			hooks = append(hooks, hk)
		}
		ready <- started{tid: windows.GetCurrentThreadId()}

		var msg win.MSG
		for {
			ret := win.GetMessage(&msg, 0, 0, 0)
			if ret == 0 || ret == -1 {
				break
			}
			win.TranslateMessage(&msg)
			win.DispatchMessage(&msg)
		}

		for _, hk := range hooks {
			procUnhookWinEvent.Call(hk)
		}
		h.logger.Debug("win event loop exited")
	}()

	st := <-ready
	if st.err != nil {
		<-done
		return st.err
	}
	h.running = true
	h.threadID = st.tid
	h.done = done
	return nil
}

// Stop posts WM_QUIT to the hook thread and waits for it to unhook.
func (h *WinEventHook) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	done := h.done
	tid := h.threadID
	h.threadID = 0
	h.mu.Unlock()

	platform.PostQuit(tid)
	<-done

	sinkMu.Lock()
	sink = nil
	sinkMu.Unlock()
}
