package taskbar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverAll_PrimaryTaskbar(t *testing.T) {
	shell := standardShell()
	shell.addTaskList(100, Rect{200, 1040, 1700, 1080})
	d := NewDiscoverer(shell, nil)

	all := d.DiscoverAll()
	require.Len(t, all, 1)

	info := all[0]
	assert.Equal(t, uintptr(100), info.Handle)
	assert.Equal(t, uintptr(101), info.TrayHandle)
	require.NotNil(t, info.TrayRect)
	assert.Equal(t, Rect{1800, 1040, 1920, 1080}, *info.TrayRect)
	require.NotNil(t, info.TaskListRect)
	assert.Equal(t, 1700, info.TaskListRect.Right)
	assert.Equal(t, "DISPLAY1", info.ScreenName)
	assert.Equal(t, 40, info.Height)
	assert.Equal(t, 1.0, info.DPIScale)
	assert.True(t, info.IsPrimary)
	assert.False(t, info.IsFallback())
	assert.Equal(t, EdgeBottom, ClassifyEdge(info))
}

func TestDiscoverAll_TrayMissingIsNotReady(t *testing.T) {
	shell := standardShell()
	delete(shell.windows[100].children, ClassTrayNotify)
	d := NewDiscoverer(shell, nil)

	info := d.DiscoverPrimary()
	assert.True(t, info.IsFallback())
}

func TestDiscoverAll_TrayRectFailureIsNotReady(t *testing.T) {
	shell := standardShell()
	shell.windows[101].rectErr = true
	d := NewDiscoverer(shell, nil)

	assert.True(t, d.DiscoverPrimary().IsFallback())
}

func TestDiscoverAll_FallbackUsesPrimaryScreen(t *testing.T) {
	shell := newFakeShell()
	shell.screens = []Screen{{
		Name:             "only",
		Geometry:         Geometry{0, 0, 2560, 1440},
		Available:        Geometry{0, 0, 2560, 1392},
		DevicePixelRatio: 1.25,
		Primary:          true,
	}}
	d := NewDiscoverer(shell, nil)

	all := d.DiscoverAll()
	require.Len(t, all, 1)
	fb := all[0]
	assert.True(t, fb.IsFallback())
	assert.Equal(t, DefaultHeight, fb.Height)
	assert.Equal(t, 1.25, fb.DPIScale)
	assert.Equal(t, "only", fb.ScreenName)
	assert.Equal(t, DefaultHeight, d.TaskbarHeight())
}

func TestDiscoverAll_HiddenWindowSkipped(t *testing.T) {
	shell := standardShell()
	shell.windows[100].hidden = true
	d := NewDiscoverer(shell, nil)

	assert.True(t, d.DiscoverPrimary().IsFallback())
}

func TestDiscoverAll_SecondaryTaskbar(t *testing.T) {
	shell := standardShell()
	shell.screens = append(shell.screens, Screen{
		Name:             "DISPLAY2",
		Monitor:          2000,
		Geometry:         Geometry{1920, 0, 1280, 720},
		Available:        Geometry{1920, 0, 1280, 680},
		DevicePixelRatio: 1.5,
	})
	shell.monitors[2000] = MonitorInfo{Monitor: Rect{2880, 0, 4800, 1080}, Work: Rect{2880, 0, 4800, 1020}}
	shell.dpi[2000] = 1.5
	shell.addTaskbar(200, ClassSecondaryTaskbar, Rect{2880, 1020, 4800, 1080}, Rect{4600, 1020, 4800, 1080}, 2000)
	d := NewDiscoverer(shell, nil)

	all := d.DiscoverAll()
	require.Len(t, all, 2)
	assert.Equal(t, uintptr(100), all[0].Handle)
	assert.Equal(t, uintptr(200), all[1].Handle)
	assert.False(t, all[1].IsPrimary)
	assert.Equal(t, 1.5, all[1].DPIScale)
	assert.Equal(t, 40, all[1].Height)

	assert.Equal(t, uintptr(100), d.DiscoverPrimary().Handle)
}

func TestDiscoverer_DPICachedPerMonitor(t *testing.T) {
	shell := standardShell()
	d := NewDiscoverer(shell, nil)

	d.DiscoverAll()
	d.DiscoverAll()
	assert.Equal(t, 1, shell.dpiCalls)

	d.ResetCache()
	d.DiscoverAll()
	assert.Equal(t, 2, shell.dpiCalls)
}

func TestDiscoverer_DPIFailureUsesScreenRatio(t *testing.T) {
	shell := standardShell()
	delete(shell.dpi, 1000)
	shell.screens[0].DevicePixelRatio = 1.25
	d := NewDiscoverer(shell, nil)

	info := d.DiscoverPrimary()
	assert.Equal(t, 1.25, info.DPIScale)
	assert.Len(t, d.warned, 1)

	d.DiscoverPrimary()
	assert.Len(t, d.warned, 1)
}

func TestIsTaskbarVisible(t *testing.T) {
	shell := standardShell()
	d := NewDiscoverer(shell, nil)
	info := d.DiscoverPrimary()

	assert.True(t, d.IsTaskbarVisible(info))

	shell.autoHide = true
	assert.True(t, d.IsTaskbarVisible(info), "auto-hide taskbar currently shown")

	shell.windows[100].rect = Rect{0, 1078, 1920, 1118}
	assert.False(t, d.IsTaskbarVisible(info), "auto-hide taskbar slid off the bottom")

	shell.windows[100].hidden = true
	assert.False(t, d.IsTaskbarVisible(info))

	assert.False(t, d.IsTaskbarVisible(Info{}))
}

func TestIsSmallTaskbar(t *testing.T) {
	assert.True(t, IsSmallTaskbar(Info{Height: 30}))
	assert.True(t, IsSmallTaskbar(Info{Height: SmallTaskbarThreshold}))
	assert.False(t, IsSmallTaskbar(Info{Height: 48}))
	assert.False(t, IsSmallTaskbar(Info{Height: 0}))
}

func TestFindTaskListRect_MissingHop(t *testing.T) {
	shell := standardShell()
	shell.addTaskList(100, Rect{200, 1040, 1700, 1080})
	delete(shell.windows[111].children, ClassToolbar)
	d := NewDiscoverer(shell, nil)

	assert.Nil(t, d.FindTaskListRect(100))
	assert.Nil(t, d.FindTaskListRect(0))
}

func TestTrayRect_Live(t *testing.T) {
	shell := standardShell()
	d := NewDiscoverer(shell, nil)
	info := d.DiscoverPrimary()

	shell.windows[101].rect = Rect{1760, 1040, 1920, 1080}
	r := d.TrayRect(info)
	require.NotNil(t, r)
	assert.Equal(t, 1760, r.Left)

	assert.Nil(t, d.TrayRect(Info{}))
}

func TestFindNearest(t *testing.T) {
	bottom := infoOnScreen(Rect{0, 1040, 1920, 1080}, 1)
	right := infoOnScreen(Rect{1920, 0, 1982, 1080}, 1)
	right.Handle = 2

	got, ok := FindNearest([]Info{bottom, right}, Point{X: 1960, Y: 300})
	require.True(t, ok)
	assert.Equal(t, uintptr(2), got.Handle)

	got, ok = FindNearest([]Info{bottom, right}, Point{X: 500, Y: 1000})
	require.True(t, ok)
	assert.Equal(t, uintptr(1), got.Handle)

	_, ok = FindNearest([]Info{{}}, Point{})
	assert.False(t, ok)
}

func TestRect_Helpers(t *testing.T) {
	r := Rect{0, 0, 100, 50}
	assert.Equal(t, 5000, r.Area())
	assert.Equal(t, Rect{50, 0, 100, 50}, r.Intersect(Rect{50, -10, 200, 60}))
	assert.True(t, r.Intersect(Rect{200, 200, 300, 300}).Empty())
	assert.Equal(t, Rect{0, 0, 67, 33}, r.Logical(1.5))
	assert.Equal(t, Rect{0, 0, 150, 75}, Geometry{0, 0, 100, 50}.Physical(1.5))
}
