package hotkeys

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netspeedtray/internal/platform"
)

type fakeListener struct {
	bindings []platform.Hotkey
	callback func(int)
	stopped  int
	err      error
}

func (f *fakeListener) SetupHotkeyListener(b []platform.Hotkey, cb func(int)) error {
	if f.err != nil {
		return f.err
	}
	f.bindings, f.callback = b, cb
	return nil
}

func (f *fakeListener) StopHotkeyListener() { f.stopped++ }

func TestBindings_UniqueIDs(t *testing.T) {
	seen := make(map[int]bool)
	for _, b := range Bindings() {
		assert.False(t, seen[b.ID], "duplicate id %d", b.ID)
		seen[b.ID] = true
		assert.Equal(t, platform.ModCtrl|platform.ModAlt, b.Modifiers)
		assert.NotEmpty(t, b.Name)
	}
	assert.Len(t, seen, 4)
}

func TestManager_Dispatch(t *testing.T) {
	l := &fakeListener{}
	m := NewManager(l, nil)

	var got []string
	m.SetCallbacks(Callbacks{
		ToggleOverlay:  func() { got = append(got, "overlay") },
		ResetPosition:  func() { got = append(got, "reset") },
		ToggleFreeMove: func() { got = append(got, "free") },
	})
	require.NoError(t, m.Start())
	assert.True(t, m.IsRunning())
	require.Len(t, l.bindings, 4)

	l.callback(HotkeyResetPosition)
	l.callback(HotkeyToggleOverlay)
	l.callback(HotkeyToggleFreeMove)
	l.callback(HotkeyTogglePause) // no callback set
	l.callback(99)

	assert.Equal(t, []string{"reset", "overlay", "free"}, got)
}

func TestManager_StartStop(t *testing.T) {
	l := &fakeListener{}
	m := NewManager(l, nil)

	require.NoError(t, m.Start())
	require.NoError(t, m.Start())
	m.Stop()
	m.Stop()

	assert.False(t, m.IsRunning())
	assert.Equal(t, 1, l.stopped)
}

func TestManager_StartFailure(t *testing.T) {
	l := &fakeListener{err: errors.New("no message queue")}
	m := NewManager(l, nil)

	assert.Error(t, m.Start())
	assert.False(t, m.IsRunning())
	m.Stop()
	assert.Zero(t, l.stopped)
}
