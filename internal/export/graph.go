package export

import (
	"fmt"
	"io"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"netspeedtray/internal/history"
)

// GraphOptions controls the rendered image.
type GraphOptions struct {
	Title  string
	Width  int
	Height int
	// Bytes plots MB/s instead of Mbps.
	Bytes bool
}

// DefaultGraphOptions returns a 1200x600 Mbps graph.
func DefaultGraphOptions() GraphOptions {
	return GraphOptions{Title: "Network Speed", Width: 1200, Height: 600}
}

var (
	uploadColor   = drawing.Color{R: 234, G: 179, B: 8, A: 255}
	downloadColor = drawing.Color{R: 88, G: 140, B: 236, A: 255}
)

func lineStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeColor: col,
		StrokeWidth: 2,
	}
}

// BuildChart turns points into a chart with upload and download series.
func BuildChart(points []history.Point, opts GraphOptions) (chart.Chart, error) {
	if len(points) == 0 {
		return chart.Chart{}, ErrNoData
	}
	def := DefaultGraphOptions()
	if opts.Width <= 0 {
		opts.Width = def.Width
	}
	if opts.Height <= 0 {
		opts.Height = def.Height
	}

	unit, scale := "Mbps", mbps
	if opts.Bytes {
		unit, scale = "MB/s", func(b float64) float64 { return b / 1_000_000 }
	}

	times := make([]time.Time, 0, len(points)+1)
	up := make([]float64, 0, len(points)+1)
	down := make([]float64, 0, len(points)+1)
	for _, p := range points {
		times = append(times, p.Time)
		up = append(up, scale(p.UploadAvg))
		down = append(down, scale(p.DownloadAvg))
	}
	// go-chart needs two X values to derive a range
	if len(times) == 1 {
		times = append(times, times[0].Add(time.Second))
		up = append(up, up[0])
		down = append(down, down[0])
	}

	maxY := 0.0
	for i := range up {
		maxY = max(maxY, up[i], down[i])
	}
	if maxY == 0 {
		maxY = 1
	}

	title := opts.Title
	if title == "" {
		title = def.Title
	}

	ch := chart.Chart{
		Title:      fmt.Sprintf("%s (%s)", title, unit),
		Width:      opts.Width,
		Height:     opts.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 48}},
		XAxis: chart.XAxis{
			Name:           "Time",
			ValueFormatter: chart.TimeValueFormatterWithFormat(timeLayout(times)),
		},
		YAxis: chart.YAxis{
			Name:  unit,
			Range: &chart.ContinuousRange{Min: 0, Max: maxY * 1.1},
		},
		Series: []chart.Series{
			chart.TimeSeries{Name: "Download", XValues: times, YValues: down, Style: lineStyle(downloadColor)},
			chart.TimeSeries{Name: "Upload", XValues: times, YValues: up, Style: lineStyle(uploadColor)},
		},
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return ch, nil
}

// WriteGraph renders points as a PNG.
func WriteGraph(w io.Writer, points []history.Point, opts GraphOptions) error {
	ch, err := BuildChart(points, opts)
	if err != nil {
		return err
	}
	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render graph: %w", err)
	}
	return nil
}

// timeLayout picks an axis label format for the span covered.
func timeLayout(times []time.Time) string {
	span := times[len(times)-1].Sub(times[0])
	switch {
	case span <= 24*time.Hour:
		return "15:04"
	case span <= 7*24*time.Hour:
		return "Mon 15:04"
	default:
		return "Jan 02"
	}
}
