package visibility

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"netspeedtray/internal/taskbar"
)

const (
	ownPID   = 4242
	monitorA = 1000
	monitorB = 2000
)

var (
	fullA = taskbar.Rect{Left: 0, Top: 0, Right: 1920, Bottom: 1080}
	workA = taskbar.Rect{Left: 0, Top: 0, Right: 1920, Bottom: 1040}
	fullB = taskbar.Rect{Left: 1920, Top: 0, Right: 3840, Bottom: 1080}
)

type fakeWin struct {
	class     string
	pid       uint32
	rect      taskbar.Rect
	monitor   uintptr
	maximized bool
	rectErr   bool
}

type fakeInspector struct {
	windows    map[uintptr]*fakeWin
	processes  map[uint32]string
	foreground uintptr
}

func newFakeInspector() *fakeInspector {
	return &fakeInspector{
		windows:   make(map[uintptr]*fakeWin),
		processes: map[uint32]string{ownPID: "netspeedtray.exe"},
	}
}

func (f *fakeInspector) add(hwnd uintptr, process string, pid uint32, w fakeWin) {
	w.pid = pid
	if w.monitor == 0 {
		w.monitor = monitorA
	}
	if w.class == "" {
		w.class = "AppWindow"
	}
	f.windows[hwnd] = &w
	f.processes[pid] = process
}

func (f *fakeInspector) IsWindow(hwnd uintptr) bool { return f.windows[hwnd] != nil }

func (f *fakeInspector) ClassName(hwnd uintptr) (string, error) {
	if w := f.windows[hwnd]; w != nil {
		return w.class, nil
	}
	return "", errors.New("no window")
}

func (f *fakeInspector) ProcessID(hwnd uintptr) (uint32, error) {
	if w := f.windows[hwnd]; w != nil {
		return w.pid, nil
	}
	return 0, errors.New("no window")
}

func (f *fakeInspector) ProcessName(pid uint32) (string, error) {
	if name, ok := f.processes[pid]; ok {
		return name, nil
	}
	return "", errors.New("access denied")
}

func (f *fakeInspector) MonitorFromWindow(hwnd uintptr) uintptr {
	if w := f.windows[hwnd]; w != nil {
		return w.monitor
	}
	return 0
}

func (f *fakeInspector) MonitorRects(monitor uintptr) (taskbar.Rect, taskbar.Rect, error) {
	switch monitor {
	case monitorA:
		return fullA, workA, nil
	case monitorB:
		return fullB, fullB, nil
	}
	return taskbar.Rect{}, taskbar.Rect{}, errors.New("no monitor")
}

func (f *fakeInspector) WindowRect(hwnd uintptr) (taskbar.Rect, error) {
	w := f.windows[hwnd]
	if w == nil || w.rectErr {
		return taskbar.Rect{}, errors.New("rect failed")
	}
	return w.rect, nil
}

func (f *fakeInspector) IsMaximized(hwnd uintptr) (bool, error) {
	if w := f.windows[hwnd]; w != nil {
		return w.maximized, nil
	}
	return false, errors.New("no window")
}

func (f *fakeInspector) ForegroundWindow() uintptr { return f.foreground }

type fakeTaskbars struct{ visible bool }

func (t *fakeTaskbars) IsTaskbarVisible(taskbar.Info) bool { return t.visible }

func primaryInfo() taskbar.Info {
	return taskbar.Info{Handle: 100, Monitor: monitorA, DPIScale: 1}
}

func newClassifier(insp *fakeInspector, taskbarVisible bool) *Classifier {
	return New(insp, &fakeTaskbars{visible: taskbarVisible}, ownPID, nil)
}

func TestIsObstructed_FullscreenBrowser(t *testing.T) {
	insp := newFakeInspector()
	insp.add(1, "chrome.exe", 10, fakeWin{rect: fullA})
	c := newClassifier(insp, true)

	assert.True(t, c.IsObstructed(primaryInfo(), 1))
	assert.True(t, c.IsTrueFullscreen(primaryInfo(), 1))
}

func TestIsObstructed_MaximizedWorkArea(t *testing.T) {
	insp := newFakeInspector()
	insp.add(1, "notepad.exe", 10, fakeWin{rect: workA, maximized: true})
	insp.add(2, "notepad.exe", 11, fakeWin{rect: workA})
	c := newClassifier(insp, true)

	assert.False(t, c.IsObstructed(primaryInfo(), 1))
	assert.True(t, c.IsObstructed(primaryInfo(), 2))
	assert.False(t, c.IsTrueFullscreen(primaryInfo(), 2))
}

func TestIsObstructed_OwnProcess(t *testing.T) {
	insp := newFakeInspector()
	insp.add(1, "netspeedtray.exe", ownPID, fakeWin{rect: fullA})
	insp.add(2, "netspeedtray.exe", ownPID, fakeWin{rect: taskbar.Rect{Left: 1700, Top: 900, Right: 1900, Bottom: 1080}})
	c := newClassifier(insp, true)

	for _, info := range []taskbar.Info{primaryInfo(), {}, {Handle: 7, Monitor: monitorB}} {
		assert.False(t, c.IsObstructed(info, 1))
		assert.False(t, c.IsObstructed(info, 2))
	}
}

func TestIsObstructed_IgnoredWindows(t *testing.T) {
	insp := newFakeInspector()
	insp.add(1, "explorer.exe", 10, fakeWin{class: "Progman", rect: fullA})
	insp.add(2, "explorer.exe", 11, fakeWin{class: taskbar.ClassPrimaryTaskbar, rect: fullA})
	insp.add(3, "Explorer.EXE", 12, fakeWin{class: "CabinetWClass", rect: fullA})
	c := newClassifier(insp, true)

	assert.False(t, c.IsObstructed(primaryInfo(), 0))
	assert.False(t, c.IsObstructed(primaryInfo(), 99))
	assert.False(t, c.IsObstructed(primaryInfo(), 1))
	assert.False(t, c.IsObstructed(primaryInfo(), 2))
	assert.False(t, c.IsObstructed(primaryInfo(), 3))
}

func TestIsObstructed_OtherMonitor(t *testing.T) {
	insp := newFakeInspector()
	insp.add(1, "game.exe", 10, fakeWin{rect: fullB, monitor: monitorB})
	c := newClassifier(insp, true)

	assert.False(t, c.IsObstructed(primaryInfo(), 1))
	assert.True(t, c.IsObstructed(taskbar.Info{Handle: 200, Monitor: monitorB}, 1))
}

func TestIsObstructed_ShellFlyout(t *testing.T) {
	insp := newFakeInspector()
	insp.add(1, "StartMenuExperienceHost.exe", 10, fakeWin{rect: taskbar.Rect{Left: 600, Top: 300, Right: 1300, Bottom: 1030}})
	c := newClassifier(insp, true)

	assert.True(t, c.IsObstructed(primaryInfo(), 1))
}

func TestIsObstructed_BrowserNotFullscreen(t *testing.T) {
	insp := newFakeInspector()
	insp.add(1, "msedge.exe", 10, fakeWin{rect: workA})
	insp.add(2, "firefox.exe", 11, fakeWin{rect: taskbar.Rect{Left: -8, Top: -8, Right: 1928, Bottom: 1048}})
	c := newClassifier(insp, true)

	assert.False(t, c.IsObstructed(primaryInfo(), 1))
	assert.False(t, c.IsObstructed(primaryInfo(), 2))
}

func TestIsObstructed_Containment(t *testing.T) {
	insp := newFakeInspector()
	insp.add(1, "app.exe", 10, fakeWin{rect: taskbar.Rect{Left: 100, Top: 100, Right: 900, Bottom: 700}})
	insp.add(2, "app.exe", 11, fakeWin{rect: taskbar.Rect{Left: 100, Top: 500, Right: 900, Bottom: 1070}})
	c := newClassifier(insp, true)

	assert.False(t, c.IsObstructed(primaryInfo(), 1))
	assert.True(t, c.IsObstructed(primaryInfo(), 2))
}

func TestIsObstructed_FailOpen(t *testing.T) {
	insp := newFakeInspector()
	insp.add(1, "game.exe", 10, fakeWin{rect: fullA, rectErr: true})
	insp.add(2, "game.exe", 11, fakeWin{rect: fullA})
	delete(insp.processes, 11)
	insp.add(3, "game.exe", 12, fakeWin{rect: fullA, monitor: 3000})
	c := newClassifier(insp, true)

	assert.False(t, c.IsObstructed(primaryInfo(), 1))
	assert.False(t, c.IsObstructed(primaryInfo(), 2))
	assert.False(t, c.IsObstructed(taskbar.Info{Handle: 300, Monitor: 3000}, 3))
}

func TestShouldBeVisible(t *testing.T) {
	insp := newFakeInspector()
	insp.add(1, "notepad.exe", 10, fakeWin{rect: workA, maximized: true})
	insp.add(2, "game.exe", 11, fakeWin{rect: fullA})

	c := newClassifier(insp, true)
	assert.True(t, c.ShouldBeVisible(primaryInfo(), 1))
	assert.False(t, c.ShouldBeVisible(primaryInfo(), 2))
	assert.True(t, c.ShouldBeVisible(primaryInfo(), 0))

	hidden := newClassifier(insp, false)
	assert.False(t, hidden.ShouldBeVisible(primaryInfo(), 1))
}

func TestShouldBeVisible_Repeatable(t *testing.T) {
	insp := newFakeInspector()
	insp.add(1, "notepad.exe", 10, fakeWin{rect: workA})
	insp.add(2, "notepad.exe", 11, fakeWin{rect: taskbar.Rect{Left: 10, Top: 10, Right: 400, Bottom: 400}})
	c := newClassifier(insp, true)

	for _, hwnd := range []uintptr{0, 1, 2} {
		first := c.ShouldBeVisible(primaryInfo(), hwnd)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, c.ShouldBeVisible(primaryInfo(), hwnd))
		}
	}
}
