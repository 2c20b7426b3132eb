package taskbar

import "errors"

type fakeWindow struct {
	class    string
	rect     Rect
	rectErr  bool
	hidden   bool
	children map[string]uintptr
	monitor  uintptr
}

type fakeShell struct {
	windows   map[uintptr]*fakeWindow
	monitors  map[uintptr]MonitorInfo
	dpi       map[uintptr]float64
	dpiCalls  int
	autoHide  bool
	screens   []Screen
	secondary []uintptr
}

func newFakeShell() *fakeShell {
	return &fakeShell{
		windows:  make(map[uintptr]*fakeWindow),
		monitors: make(map[uintptr]MonitorInfo),
		dpi:      make(map[uintptr]float64),
	}
}

// addTaskbar registers a taskbar window with a tray child and returns the
// taskbar handle.
func (f *fakeShell) addTaskbar(hwnd uintptr, class string, rect, tray Rect, monitor uintptr) {
	trayHwnd := hwnd + 1
	f.windows[hwnd] = &fakeWindow{
		class:    class,
		rect:     rect,
		children: map[string]uintptr{ClassTrayNotify: trayHwnd},
		monitor:  monitor,
	}
	f.windows[trayHwnd] = &fakeWindow{class: ClassTrayNotify, rect: tray}
	if class == ClassSecondaryTaskbar {
		f.secondary = append(f.secondary, hwnd)
	}
}

func (f *fakeShell) addTaskList(taskbar uintptr, rect Rect) {
	rebar, tasks, toolbar := taskbar+10, taskbar+11, taskbar+12
	f.windows[taskbar].children[ClassReBar] = rebar
	f.windows[rebar] = &fakeWindow{class: ClassReBar, children: map[string]uintptr{ClassTaskSwitch: tasks}}
	f.windows[tasks] = &fakeWindow{class: ClassTaskSwitch, children: map[string]uintptr{ClassToolbar: toolbar}}
	f.windows[toolbar] = &fakeWindow{class: ClassToolbar, rect: rect}
}

func (f *fakeShell) FindWindow(class string) uintptr {
	for h, w := range f.windows {
		if w.class == class && class == ClassPrimaryTaskbar {
			return h
		}
	}
	return 0
}

func (f *fakeShell) FindWindows(class string) []uintptr {
	if class == ClassSecondaryTaskbar {
		return f.secondary
	}
	return nil
}

func (f *fakeShell) FindChild(parent uintptr, class string) uintptr {
	if w, ok := f.windows[parent]; ok && w.children != nil {
		return w.children[class]
	}
	return 0
}

func (f *fakeShell) IsWindow(hwnd uintptr) bool {
	_, ok := f.windows[hwnd]
	return ok
}

func (f *fakeShell) IsWindowVisible(hwnd uintptr) bool {
	w, ok := f.windows[hwnd]
	return ok && !w.hidden
}

func (f *fakeShell) ClassName(hwnd uintptr) (string, error) {
	if w, ok := f.windows[hwnd]; ok {
		return w.class, nil
	}
	return "", ErrNotFound
}

func (f *fakeShell) WindowRect(hwnd uintptr) (Rect, error) {
	w, ok := f.windows[hwnd]
	if !ok || w.rectErr {
		return Rect{}, errors.New("rect failed")
	}
	return w.rect, nil
}

func (f *fakeShell) MonitorFromWindow(hwnd uintptr) uintptr {
	if w, ok := f.windows[hwnd]; ok {
		return w.monitor
	}
	return 0
}

func (f *fakeShell) MonitorInfo(monitor uintptr) (MonitorInfo, error) {
	if mi, ok := f.monitors[monitor]; ok {
		return mi, nil
	}
	return MonitorInfo{}, ErrNotFound
}

func (f *fakeShell) MonitorDPI(monitor uintptr) (float64, error) {
	f.dpiCalls++
	if d, ok := f.dpi[monitor]; ok {
		return d, nil
	}
	return 0, errors.New("no dpi")
}

func (f *fakeShell) AutoHide() (bool, error) { return f.autoHide, nil }

func (f *fakeShell) Screens() []Screen { return f.screens }

// standardShell is a single 1920x1080 monitor with a 40px bottom taskbar and
// the tray occupying the rightmost 120px.
func standardShell() *fakeShell {
	f := newFakeShell()
	f.screens = []Screen{{
		Name:             "DISPLAY1",
		Monitor:          1000,
		Geometry:         Geometry{X: 0, Y: 0, Width: 1920, Height: 1080},
		Available:        Geometry{X: 0, Y: 0, Width: 1920, Height: 1040},
		DevicePixelRatio: 1,
		Primary:          true,
	}}
	f.monitors[1000] = MonitorInfo{
		Monitor: Rect{0, 0, 1920, 1080},
		Work:    Rect{0, 0, 1920, 1040},
		Primary: true,
	}
	f.dpi[1000] = 1
	f.addTaskbar(100, ClassPrimaryTaskbar, Rect{0, 1040, 1920, 1080}, Rect{1800, 1040, 1920, 1080}, 1000)
	return f
}
