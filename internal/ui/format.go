package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"netspeedtray/internal/config"
	"netspeedtray/internal/netspeed"
)

// MinDisplaySpeed is the rate in bytes/s below which the overlay shows zero.
const MinDisplaySpeed = 10_000.0

// Arrow glyphs prefixed to the speed lines
const (
	arrowUp   = "↑"
	arrowDown = "↓"
)

// FormatSpeed renders a byte rate in decimal units: bps/Kbps/Mbps/Gbps when
// unit is bits, B/s/KB/s/MB/s/GB/s otherwise. Base units never show
// decimals.
func FormatSpeed(bytesPerSec float64, unit string, decimals int) string {
	bits := unit != config.SpeedUnitBytes
	suffix := func(prefix string) string {
		if bits {
			return prefix + "bps"
		}
		return prefix + "B/s"
	}

	v := max(bytesPerSec, 0)
	if v < MinDisplaySpeed {
		return fmt.Sprintf("%.*f %s", decimals, 0.0, suffix("K"))
	}
	if bits {
		v *= 8
	}

	value, prefix := humanize.ComputeSI(v)
	switch prefix {
	case "":
		return fmt.Sprintf("%.0f %s", value, suffix(""))
	case "k":
		prefix = "K"
	case "M", "G":
	default:
		// beyond giga, stay in giga
		value, prefix = v/1e9, "G"
	}
	return fmt.Sprintf("%.*f %s", decimals, value, suffix(prefix))
}

// SpeedLines returns the upload and download labels for the overlay.
func SpeedLines(r netspeed.Rate, unit string, decimals int) (up, down string) {
	return arrowUp + " " + FormatSpeed(r.Upload, unit, decimals),
		arrowDown + " " + FormatSpeed(r.Download, unit, decimals)
}

// SingleLine joins both labels for the compact layout.
func SingleLine(r netspeed.Rate, unit string, decimals int) string {
	up, down := SpeedLines(r, unit, decimals)
	return strings.Join([]string{up, down}, "  ")
}

// Tooltip summarises the latest reading for the tray menu header.
func Tooltip(s netspeed.Speed, unit string, decimals int, now time.Time) string {
	if s.Time.IsZero() {
		return "Waiting for data…"
	}
	line := SingleLine(s.Rate, unit, decimals)
	if now.Sub(s.Time) > 5*time.Second {
		line += " (" + humanize.RelTime(s.Time, now, "ago", "from now") + ")"
	}
	return line
}
