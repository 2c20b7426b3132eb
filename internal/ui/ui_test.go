package ui

import (
	"sync"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netspeedtray/internal/config"
	"netspeedtray/internal/netspeed"
	"netspeedtray/internal/platform"
	"netspeedtray/internal/taskbar"
)

type move struct {
	handle platform.WindowHandle
	x, y   int
}

type fakeFeatures struct {
	mu      sync.Mutex
	moves   []move
	topmost []bool
	tool    int
	opacity float64
}

func (f *fakeFeatures) SetAlwaysOnTop(_ platform.WindowHandle, onTop bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topmost = append(f.topmost, onTop)
	return nil
}

func (f *fakeFeatures) SetTransparency(_ platform.WindowHandle, opacity float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opacity = opacity
	return nil
}

func (f *fakeFeatures) SetToolWindow(platform.WindowHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tool++
	return nil
}

func (f *fakeFeatures) MoveWindowTo(h platform.WindowHandle, x, y int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves = append(f.moves, move{h, x, y})
	return nil
}

func (f *fakeFeatures) GetWindowRect(platform.WindowHandle) (int, int, int, int, error) {
	return 0, 0, 0, 0, platform.ErrUnsupported
}

func (f *fakeFeatures) SetupHotkeyListener([]platform.Hotkey, func(int)) error { return nil }
func (f *fakeFeatures) StopHotkeyListener()                                    {}

func (f *fakeFeatures) lastMove() (move, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.moves) == 0 {
		return move{}, false
	}
	return f.moves[len(f.moves)-1], true
}

type fakeScreens []taskbar.Screen

func (s fakeScreens) Screens() []taskbar.Screen { return s }

var hiDPI = fakeScreens{{
	Name:             "primary",
	Geometry:         taskbar.Geometry{X: 0, Y: 0, Width: 1280, Height: 720},
	DevicePixelRatio: 1.5,
	Primary:          true,
}}

func newTestOverlay(t *testing.T) (*OverlayWindow, *fakeFeatures) {
	t.Helper()
	a := test.NewTempApp(t)
	feats := &fakeFeatures{}
	o := NewOverlayWindow(a, feats, hiDPI, nil)
	o.handleOf = func(fyne.Window) (platform.WindowHandle, error) { return 42, nil }
	o.Setup()
	t.Cleanup(o.Close)
	return o, feats
}

func TestOverlay_Setup(t *testing.T) {
	o, _ := newTestOverlay(t)
	size := o.Size()
	assert.Positive(t, size.Width)
	assert.Positive(t, size.Height)
	assert.Equal(t, size.Width, o.Width())
	assert.Equal(t, size.Height, o.Height())
	assert.False(t, o.IsVisible())
	assert.Zero(t, o.Handle())
}

func TestOverlay_CompactLayout(t *testing.T) {
	o, _ := newTestOverlay(t)
	tall := o.Size()

	assert.True(t, o.SetCompact(true))
	wide := o.Size()
	assert.Greater(t, wide.Width, tall.Width)
	assert.Less(t, wide.Height, tall.Height)

	assert.False(t, o.SetCompact(true), "unchanged layout must not report a resize")
}

func TestOverlay_MoveBeforeShow(t *testing.T) {
	o, feats := newTestOverlay(t)
	o.Move(10, 20)
	assert.Equal(t, taskbar.Point{X: 10, Y: 20}, o.Pos())
	_, moved := feats.lastMove()
	assert.False(t, moved, "no native move without a handle")
}

func TestOverlay_ShowAppliesNativeStyles(t *testing.T) {
	o, feats := newTestOverlay(t)
	o.SetOpacity(0.8)
	o.Move(100, 200)
	o.SetVisible(true)

	assert.True(t, o.IsVisible())
	assert.Equal(t, platform.WindowHandle(42), o.Handle())
	assert.Equal(t, 1, feats.tool)
	assert.Equal(t, []bool{true}, feats.topmost)
	assert.Equal(t, 0.8, feats.opacity)

	last, ok := feats.lastMove()
	require.True(t, ok, "showing re-applies the stored position")
	assert.Equal(t, move{42, 150, 300}, last)

	o.SetVisible(false)
	assert.False(t, o.IsVisible())

	// a second show reuses the handle
	o.SetVisible(true)
	assert.Equal(t, 1, feats.tool)
}

func TestOverlay_MoveUsesScreenScale(t *testing.T) {
	o, feats := newTestOverlay(t)
	o.SetVisible(true)

	o.Move(200, 100)
	last, _ := feats.lastMove()
	assert.Equal(t, move{42, 300, 150}, last)

	// off every screen falls back to the canvas scale, 1 under the test driver
	o.Move(5000, 10)
	last, _ = feats.lastMove()
	assert.Equal(t, move{42, 5000, 10}, last)
}

func TestOverlay_SetSpeed(t *testing.T) {
	o, _ := newTestOverlay(t)
	o.SetSpeed(netspeed.Rate{Upload: 125_000, Download: 250_000}, config.SpeedUnitBits, 1)
	assert.Equal(t, "↑ 1.0 Mbps", o.view.up.Text)
	assert.Equal(t, "↓ 2.0 Mbps", o.view.down.Text)

	o.SetPaused(true)
	assert.Equal(t, colorPaused, o.view.up.Color)
	o.SetPaused(false)
	assert.Equal(t, colorUpload, o.view.up.Color)
}

func TestOverlay_Drag(t *testing.T) {
	o, _ := newTestOverlay(t)
	o.Move(100, 100)

	var (
		started, ended int
		asked          []taskbar.Point
	)
	o.SetCallbacks(OverlayCallbacks{
		DragStarted: func() { started++ },
		Constrain: func(p taskbar.Point) (taskbar.Point, bool) {
			asked = append(asked, p)
			return taskbar.Point{X: p.X, Y: 100}, true
		},
		DragEnded: func() { ended++ },
	})

	o.view.Dragged(&fyne.DragEvent{
		PointEvent: fyne.PointEvent{Position: fyne.NewPos(15, 12)},
		Dragged:    fyne.NewDelta(5, 2),
	})
	require.Len(t, asked, 1)
	assert.Equal(t, taskbar.Point{X: 105, Y: 102}, asked[0])
	assert.Equal(t, taskbar.Point{X: 105, Y: 100}, o.Pos())
	assert.Equal(t, 1, started)

	o.view.DragEnd()
	o.view.DragEnd()
	assert.Equal(t, 1, ended, "a stray drag end is ignored")
}

func TestOverlay_DragRejected(t *testing.T) {
	o, _ := newTestOverlay(t)
	o.Move(50, 50)
	o.SetCallbacks(OverlayCallbacks{
		Constrain: func(taskbar.Point) (taskbar.Point, bool) { return taskbar.Point{}, false },
	})

	o.view.Dragged(&fyne.DragEvent{
		PointEvent: fyne.PointEvent{Position: fyne.NewPos(30, 30)},
		Dragged:    fyne.NewDelta(20, 20),
	})
	assert.Equal(t, taskbar.Point{X: 50, Y: 50}, o.Pos())
}

func TestOverlay_ContextMenu(t *testing.T) {
	o, _ := newTestOverlay(t)
	o.Move(300, 400)

	var at taskbar.Point
	o.SetCallbacks(OverlayCallbacks{ContextMenu: func(p taskbar.Point) { at = p }})
	o.view.TappedSecondary(&fyne.PointEvent{Position: fyne.NewPos(7, 3)})
	assert.Equal(t, taskbar.Point{X: 307, Y: 403}, at)
}

func TestContextMenu_ShowAndClose(t *testing.T) {
	a := test.NewTempApp(t)
	feats := &fakeFeatures{}
	c := NewContextMenu(a, feats, hiDPI, nil)
	c.handleOf = func(fyne.Window) (platform.WindowHandle, error) { return 7, nil }
	c.Timeout = 0

	closed := 0
	menu := fyne.NewMenu("test", fyne.NewMenuItem("Item", nil))
	c.Show(menu, taskbar.Point{X: 100, Y: 400}, func() { closed++ })
	assert.True(t, c.IsOpen())

	last, ok := feats.lastMove()
	require.True(t, ok)
	assert.Equal(t, platform.WindowHandle(7), last.handle)
	assert.Equal(t, 150, last.x)
	assert.Less(t, last.y, 600, "menu opens above the anchor")

	// reopening closes the previous menu first
	c.Show(menu, taskbar.Point{X: 100, Y: 400}, func() { closed++ })
	assert.Equal(t, 1, closed)

	c.Close()
	c.Close()
	assert.False(t, c.IsOpen())
	assert.Equal(t, 2, closed)
}

func TestTrayManager_Labels(t *testing.T) {
	a := test.NewTempApp(t)
	tray := NewTrayManager(a, nil)

	assert.Equal(t, "Hide Overlay", tray.overlay.Label)
	assert.Equal(t, "Pause", tray.pause.Label)
	assert.False(t, tray.freeMove.Checked)

	assert.False(t, tray.startup.Checked)

	tray.SetState(TrayState{OverlayShown: false, FreeMove: true, Paused: true, StartOnLogon: true})
	assert.Equal(t, "Show Overlay", tray.overlay.Label)
	assert.Equal(t, "Resume", tray.pause.Label)
	assert.True(t, tray.freeMove.Checked)
	assert.True(t, tray.startup.Checked)
	assert.Equal(t, TrayState{FreeMove: true, Paused: true, StartOnLogon: true}, tray.State())

	tray.SetStatus("↑ 1 Mbps")
	assert.Equal(t, "↑ 1 Mbps", tray.Menu().Items[0].Label)
}

func TestTrayManager_Callbacks(t *testing.T) {
	a := test.NewTempApp(t)
	tray := NewTrayManager(a, nil)

	// callbacks set after the menu was built are still used
	var calls []string
	tray.SetCallbacks(TrayCallbacks{
		ToggleOverlay: func() { calls = append(calls, "overlay") },
		ExportCSV:     func() { calls = append(calls, "csv") },
		ToggleStartup: func() { calls = append(calls, "startup") },
		Quit:          func() { calls = append(calls, "quit") },
	})

	byLabel := map[string]*fyne.MenuItem{}
	for _, item := range tray.Menu().Items {
		byLabel[item.Label] = item
	}
	byLabel["Hide Overlay"].Action()
	byLabel["Export History (CSV)"].Action()
	byLabel["Start with Windows"].Action()
	byLabel["Reset Position"].Action() // unset callback is a no-op
	byLabel["Quit"].Action()

	assert.Equal(t, []string{"overlay", "csv", "startup", "quit"}, calls)
}

func TestSettingsForm_RoundTrip(t *testing.T) {
	src := *config.Default()
	src.UpdateRate = 0.5
	src.TrayOffsetX = 42
	src.KeepVisibleFullscreen = true
	src.SpeedUnit = config.SpeedUnitBytes
	src.DecimalPlaces = 1

	form := newSettingsForm(src)
	require.NoError(t, form.offsetY.Set(7))
	require.NoError(t, form.history.Set(false))
	require.NoError(t, form.startup.Set(false))

	var dst config.Config
	form.apply(&dst)
	assert.Equal(t, 0.5, dst.UpdateRate)
	assert.Equal(t, 42, dst.TrayOffsetX)
	assert.Equal(t, 7, dst.TrayOffsetY)
	assert.True(t, dst.KeepVisibleFullscreen)
	assert.False(t, dst.HistoryEnabled)
	assert.False(t, dst.StartWithWindows)
	assert.Equal(t, config.SpeedUnitBytes, dst.SpeedUnit)
	assert.Equal(t, 1, dst.DecimalPlaces)
	assert.Equal(t, src.OverlayOpacity, dst.OverlayOpacity)
	assert.Equal(t, src.KeepData, dst.KeepData)
}
