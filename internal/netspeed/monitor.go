// Package netspeed samples interface byte counters and turns them into
// upload/download rates.
package netspeed

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"
	"time"
)

// MaxReasonableSpeed is the highest rate (bytes/s, 10 Gbit/s) accepted from
// a single interface; anything above is a counter glitch.
const MaxReasonableSpeed = 1_250_000_000

// RePrimeSamples is how many samples are discarded after a time jump, e.g.
// resume from sleep, before rates are trusted again.
const RePrimeSamples = 3

// ErrUnsupported is returned by counter sources on unsupported platforms.
var ErrUnsupported = errors.New("netspeed: unsupported platform")

// Counters is one interface's cumulative byte counts.
type Counters struct {
	Name        string
	Description string
	BytesSent   uint64
	BytesRecv   uint64
	Up          bool
}

// CounterSource reads the current counters of every interface.
type CounterSource interface {
	Counters() ([]Counters, error)
}

// Rate is an upload/download pair in bytes per second.
type Rate struct {
	Upload   float64
	Download float64
}

// Speed is one sample: the aggregate over counted interfaces plus the
// per-interface breakdown.
type Speed struct {
	Time time.Time
	Rate
	PerInterface map[string]Rate
}

// Monitor computes rates from successive counter readings.
type Monitor struct {
	source CounterSource
	logger *slog.Logger
	now    func() time.Time

	mu         sync.Mutex
	exclusions []string
	interval   time.Duration
	last       map[string]Counters
	lastTime   time.Time
	reprime    int
}

// NewMonitor creates a monitor. exclusions are case-insensitive substrings of
// interface names or descriptions to ignore.
func NewMonitor(source CounterSource, exclusions []string, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Monitor{
		source:   source,
		logger:   logger.With("component", "netspeed"),
		now:      time.Now,
		interval: time.Second,
	}
	m.SetExclusions(exclusions)
	return m
}

// SetExclusions replaces the exclusion list
func (m *Monitor) SetExclusions(exclusions []string) {
	lower := make([]string, 0, len(exclusions))
	for _, e := range exclusions {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			lower = append(lower, e)
		}
	}
	m.mu.Lock()
	m.exclusions = lower
	m.mu.Unlock()
}

// Excluded reports whether an interface is filtered out.
func (m *Monitor) Excluded(c Counters) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.excluded(c)
}

func (m *Monitor) excluded(c Counters) bool {
	name, desc := strings.ToLower(c.Name), strings.ToLower(c.Description)
	return slices.ContainsFunc(m.exclusions, func(e string) bool {
		return strings.Contains(name, e) || strings.Contains(desc, e)
	})
}

// Reset forgets the baseline so the next Sample starts over.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = nil
	m.reprime = 0
}

// Sample reads counters and returns the rates since the previous call.
// ok is false for the baseline reading, while re-priming, and on read errors.
func (m *Monitor) Sample() (Speed, bool) {
	counters, err := m.source.Counters()
	if err != nil {
		m.logger.Warn("failed to read interface counters", "error", err)
		return Speed{}, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	current := make(map[string]Counters, len(counters))
	for _, c := range counters {
		current[c.Name] = c
	}

	prev, prevTime := m.last, m.lastTime
	m.last, m.lastTime = current, now

	if prev == nil {
		m.logger.Debug("baseline counters stored", "interfaces", len(current))
		return Speed{}, false
	}

	elapsed := now.Sub(prevTime).Seconds()
	if elapsed <= 0 {
		return Speed{}, false
	}
	if m.interval > 0 && now.Sub(prevTime) > 3*m.interval {
		m.logger.Info("time jump detected, re-priming", "elapsed", now.Sub(prevTime))
		m.reprime = RePrimeSamples
		return Speed{Time: now}, false
	}
	if m.reprime > 0 {
		m.reprime--
		return Speed{Time: now}, false
	}

	speed := Speed{Time: now, PerInterface: make(map[string]Rate)}
	for name, cur := range current {
		old, ok := prev[name]
		if !ok {
			continue
		}
		sent, okS := counterDelta(cur.BytesSent, old.BytesSent)
		recv, okR := counterDelta(cur.BytesRecv, old.BytesRecv)
		if !okS || !okR {
			m.logger.Warn("counter reset detected, skipping interface", "interface", name)
			continue
		}
		r := Rate{Upload: float64(sent) / elapsed, Download: float64(recv) / elapsed}
		if r.Upload > MaxReasonableSpeed || r.Download > MaxReasonableSpeed {
			m.logger.Warn("discarding impossible speed", "interface", name, "up", r.Upload, "down", r.Download)
			continue
		}
		speed.PerInterface[name] = r
		if !m.excluded(cur) {
			speed.Upload += r.Upload
			speed.Download += r.Download
		}
	}
	return speed, true
}

// Run samples every interval until ctx is cancelled, handing each valid
// sample to sink. Invalid samples are reported as zero rates so the display
// drops to idle rather than freezing.
func (m *Monitor) Run(ctx context.Context, interval time.Duration, sink func(Speed)) {
	if interval <= 0 {
		interval = time.Second
	}
	m.mu.Lock()
	m.interval = interval
	m.mu.Unlock()

	m.Reset()
	m.Sample()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s, ok := m.Sample()
			if !ok {
				s = Speed{Time: m.now()}
			}
			sink(s)
		}
	}
}

// counterDelta returns cur-prev, treating a decrease of a value that fits in
// 32 bits as a single wrap of a 32-bit counter. Any other decrease is a reset.
func counterDelta(cur, prev uint64) (uint64, bool) {
	if cur >= prev {
		return cur - prev, true
	}
	if prev <= math.MaxUint32 && cur <= math.MaxUint32 {
		return cur + (math.MaxUint32 + 1) - prev, true
	}
	return 0, false
}
