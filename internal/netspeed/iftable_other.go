//go:build !windows

package netspeed

// StubSource has no counters on this platform.
type StubSource struct{}

// NewSource returns the stub counter source
func NewSource() *StubSource { return &StubSource{} }

func (StubSource) Counters() ([]Counters, error) { return nil, ErrUnsupported }
