// Package startup registers the application to run at logon through the
// per-user Run key.
package startup

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// RunKeyPath is the per-user Run key under HKEY_CURRENT_USER.
const RunKeyPath = `Software\Microsoft\Windows\CurrentVersion\Run`

// ErrUnsupported is returned where there is no Run key.
var ErrUnsupported = errors.New("startup: not supported on this platform")

// Registry is the Run key. A missing value is reported as ok == false, not
// as an error.
type Registry interface {
	Value(name string) (value string, ok bool, err error)
	SetValue(name, value string) error
	DeleteValue(name string) error
}

// Manager keeps one Run entry in step with the start-with-Windows setting.
type Manager struct {
	reg     Registry
	name    string
	command string
	logger  *slog.Logger
}

// NewManager manages the entry called name, pointing at exe.
func NewManager(reg Registry, name, exe string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		reg:     reg,
		name:    name,
		command: `"` + exe + `"`,
		logger:  logger.With("component", "startup"),
	}
}

// Command is the value written to the Run key.
func (m *Manager) Command() string { return m.command }

// IsEnabled reports whether the entry exists and launches this executable.
// An entry left behind by a moved install counts as disabled so that
// enabling rewrites it.
func (m *Manager) IsEnabled() (bool, error) {
	v, ok, err := m.reg.Value(m.name)
	if err != nil {
		return false, fmt.Errorf("read run key: %w", err)
	}
	if !ok {
		return false, nil
	}
	if normalize(v) != normalize(m.command) {
		m.logger.Warn("run entry points elsewhere", "registered", v, "expected", m.command)
		return false, nil
	}
	return true, nil
}

// SetEnabled writes or removes the entry. Removing a missing entry is not
// an error.
func (m *Manager) SetEnabled(on bool) error {
	if on {
		if err := m.reg.SetValue(m.name, m.command); err != nil {
			return fmt.Errorf("write run key: %w", err)
		}
		m.logger.Info("start with Windows enabled", "command", m.command)
		return nil
	}
	if err := m.reg.DeleteValue(m.name); err != nil {
		return fmt.Errorf("delete run key: %w", err)
	}
	m.logger.Info("start with Windows disabled")
	return nil
}

// Sync makes the registry match want, touching it only on a mismatch.
func (m *Manager) Sync(want bool) error {
	have, err := m.IsEnabled()
	if err != nil {
		return err
	}
	if have == want {
		return nil
	}
	m.logger.Debug("run entry out of sync", "config", want, "registry", have)
	return m.SetEnabled(want)
}

func normalize(cmd string) string {
	return strings.ToLower(strings.TrimSpace(strings.ReplaceAll(cmd, `"`, "")))
}
