package export

import (
	"bytes"
	"encoding/csv"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netspeedtray/internal/history"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func samplePoints() []history.Point {
	return []history.Point{
		{Time: t0, UploadAvg: 125_000, DownloadAvg: 1_250_000, UploadMax: 125_000, DownloadMax: 1_250_000},
		{Time: t0.Add(time.Minute), UploadAvg: 250_000, DownloadAvg: 2_500_000, UploadMax: 300_000, DownloadMax: 3_000_000},
	}
}

func TestSuggestedName(t *testing.T) {
	assert.Equal(t, "nst_history_20260301_120000.csv", SuggestedName(KindCSV, t0))
	assert.Equal(t, "nst_graph_20260301_120000.png", SuggestedName(KindGraph, t0))
}

func TestParseSince(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"", 0, false},
		{"all", 0, false},
		{"24h", 24 * time.Hour, false},
		{"7d", 7 * 24 * time.Hour, false},
		{"90m", 90 * time.Minute, false},
		{"0d", 0, true},
		{"-1h", 0, true},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSince(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWindow(t *testing.T) {
	q := Window(time.Hour, "eth0", t0)
	assert.Equal(t, t0.Add(-time.Hour), q.From)
	assert.True(t, q.To.After(t0))
	assert.Equal(t, "eth0", q.Interface)

	all := Window(0, "", t0)
	assert.True(t, all.From.IsZero())
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, samplePoints()))

	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, CSVHeader, recs[0])
	assert.Equal(t, []string{"2026-03-01T12:00:00Z", "1.0000", "10.0000"}, recs[1])
	assert.Equal(t, []string{"2026-03-01T12:01:00Z", "2.0000", "20.0000"}, recs[2])
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, WriteCSV(&buf, nil), ErrNoData)
	assert.Zero(t, buf.Len())
}

func TestBuildChart(t *testing.T) {
	ch, err := BuildChart(samplePoints(), GraphOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1200, ch.Width)
	assert.Equal(t, "Network Speed (Mbps)", ch.Title)
	require.Len(t, ch.Series, 2)
	assert.Equal(t, "Download", ch.Series[0].GetName())

	bytesChart, err := BuildChart(samplePoints(), GraphOptions{Bytes: true, Title: "Today"})
	require.NoError(t, err)
	assert.Equal(t, "Today (MB/s)", bytesChart.Title)
}

func TestWriteGraph(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGraph(&buf, samplePoints(), GraphOptions{Width: 400, Height: 200}))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 400, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
}

func TestWriteGraph_SinglePoint(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGraph(&buf, samplePoints()[:1], GraphOptions{Width: 300, Height: 150}))
	assert.NotZero(t, buf.Len())
}

func TestWriteGraph_Empty(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, WriteGraph(&buf, nil, DefaultGraphOptions()), ErrNoData)
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "no data", Summary(nil))
	assert.Equal(t,
		"2 points from 2026-03-01 12:00:00 to 2026-03-01 12:01:00, peak 3.0 MB/s down, 300 kB/s up",
		Summary(samplePoints()))
}
