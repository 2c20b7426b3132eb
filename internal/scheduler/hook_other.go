//go:build !windows

package scheduler

import "log/slog"

// NopHook never delivers events; the polling timers still drive refreshes.
type NopHook struct{}

// NewHook returns a hook that does nothing
func NewHook(*slog.Logger) *NopHook { return &NopHook{} }

func (*NopHook) Start(chan<- Event) error { return nil }
func (*NopHook) Stop()                    {}
