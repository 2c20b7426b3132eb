// Package export writes speed history as CSV or as a PNG graph.
package export

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"netspeedtray/internal/history"
)

// ErrNoData is returned when there is nothing to export.
var ErrNoData = errors.New("export: no history in range")

const timestampFormat = "20060102_150405"

// Kind selects the export format.
type Kind string

const (
	KindCSV   Kind = "csv"
	KindGraph Kind = "graph"
)

// SuggestedName returns the default file name for an export made at t.
func SuggestedName(kind Kind, t time.Time) string {
	switch kind {
	case KindGraph:
		return "nst_graph_" + t.Format(timestampFormat) + ".png"
	default:
		return "nst_history_" + t.Format(timestampFormat) + ".csv"
	}
}

// ParseSince parses a look-back period. It accepts Go durations plus a
// day suffix ("7d"); "all" and "" return zero, meaning no lower bound.
func ParseSince(s string) (time.Duration, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "all" {
		return 0, nil
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid period %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid period %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid period %q", s)
	}
	return d, nil
}

// Window turns a look-back period into a query range ending at now.
func Window(since time.Duration, iface string, now time.Time) history.Query {
	q := history.Query{To: now.Add(time.Second), Interface: iface}
	if since > 0 {
		q.From = now.Add(-since)
	}
	return q
}

// Summary describes exported points in one line.
func Summary(points []history.Point) string {
	if len(points) == 0 {
		return "no data"
	}
	var peakUp, peakDown float64
	for _, p := range points {
		peakUp = max(peakUp, p.UploadMax)
		peakDown = max(peakDown, p.DownloadMax)
	}
	first, last := points[0].Time, points[len(points)-1].Time
	return fmt.Sprintf("%s points from %s to %s, peak %s/s down, %s/s up",
		humanize.Comma(int64(len(points))),
		first.Format(time.DateTime), last.Format(time.DateTime),
		humanize.Bytes(uint64(peakDown)), humanize.Bytes(uint64(peakUp)))
}

func mbps(bytesPerSec float64) float64 {
	return bytesPerSec * 8 / 1_000_000
}
