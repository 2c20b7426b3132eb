//go:build !windows

package startup

// RunKey has nothing to write outside Windows.
type RunKey struct{}

// NewRegistry returns a registry whose operations all fail with ErrUnsupported
func NewRegistry() RunKey { return RunKey{} }

func (RunKey) Value(string) (string, bool, error) { return "", false, ErrUnsupported }
func (RunKey) SetValue(string, string) error      { return ErrUnsupported }
func (RunKey) DeleteValue(string) error           { return ErrUnsupported }
