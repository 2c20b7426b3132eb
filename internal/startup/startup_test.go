package startup

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegistry struct {
	values  map[string]string
	writes  int
	failErr error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{values: make(map[string]string)}
}

func (f *fakeRegistry) Value(name string) (string, bool, error) {
	if f.failErr != nil {
		return "", false, f.failErr
	}
	v, ok := f.values[name]
	return v, ok, nil
}

func (f *fakeRegistry) SetValue(name, value string) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.writes++
	f.values[name] = value
	return nil
}

func (f *fakeRegistry) DeleteValue(name string) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.writes++
	delete(f.values, name)
	return nil
}

const exe = `C:\Program Files\NetSpeedTray\netspeedtray.exe`

func TestManager_EnableDisable(t *testing.T) {
	reg := newFakeRegistry()
	m := NewManager(reg, "NetSpeedTray", exe, nil)

	on, err := m.IsEnabled()
	require.NoError(t, err)
	assert.False(t, on)

	require.NoError(t, m.SetEnabled(true))
	assert.Equal(t, `"`+exe+`"`, reg.values["NetSpeedTray"])
	on, err = m.IsEnabled()
	require.NoError(t, err)
	assert.True(t, on)

	require.NoError(t, m.SetEnabled(false))
	assert.NotContains(t, reg.values, "NetSpeedTray")
	require.NoError(t, m.SetEnabled(false))
}

func TestManager_IsEnabledNormalizesQuotesAndCase(t *testing.T) {
	reg := newFakeRegistry()
	reg.values["NetSpeedTray"] = `  c:\program files\netspeedtray\NETSPEEDTRAY.exe `
	m := NewManager(reg, "NetSpeedTray", exe, nil)

	on, err := m.IsEnabled()
	require.NoError(t, err)
	assert.True(t, on)
}

func TestManager_StaleEntryCountsAsDisabled(t *testing.T) {
	reg := newFakeRegistry()
	reg.values["NetSpeedTray"] = `"D:\old\netspeedtray.exe"`
	m := NewManager(reg, "NetSpeedTray", exe, nil)

	on, err := m.IsEnabled()
	require.NoError(t, err)
	assert.False(t, on)

	require.NoError(t, m.Sync(true))
	assert.Equal(t, m.Command(), reg.values["NetSpeedTray"])
}

func TestManager_SyncOnlyWritesOnMismatch(t *testing.T) {
	reg := newFakeRegistry()
	m := NewManager(reg, "NetSpeedTray", exe, nil)

	require.NoError(t, m.Sync(false))
	assert.Zero(t, reg.writes)

	require.NoError(t, m.Sync(true))
	require.NoError(t, m.Sync(true))
	assert.Equal(t, 1, reg.writes)

	require.NoError(t, m.Sync(false))
	assert.Equal(t, 2, reg.writes)
	assert.Empty(t, reg.values)
}

func TestManager_Errors(t *testing.T) {
	reg := newFakeRegistry()
	reg.failErr = ErrUnsupported
	m := NewManager(reg, "NetSpeedTray", exe, nil)

	_, err := m.IsEnabled()
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.ErrorIs(t, m.Sync(true), ErrUnsupported)
	assert.True(t, errors.Is(m.SetEnabled(true), ErrUnsupported))
}
