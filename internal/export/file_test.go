package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netspeedtray/internal/history"
)

type fakeSource struct {
	points []history.Point
	err    error
	got    history.Query
}

func (f *fakeSource) Points(_ context.Context, q history.Query) ([]history.Point, error) {
	f.got = q
	return f.points, f.err
}

func TestToFile_CSV(t *testing.T) {
	dir := t.TempDir()
	src := &fakeSource{points: samplePoints()}

	res, err := ToFile(context.Background(), src, Request{
		Kind:      KindCSV,
		Dir:       dir,
		Since:     time.Hour,
		Interface: "eth0",
		Now:       t0,
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "nst_history_20260301_120000.csv"), res.Path)
	assert.Equal(t, 2, res.Points)
	assert.Equal(t, t0.Add(-time.Hour), src.got.From)
	assert.Equal(t, "eth0", src.got.Interface)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Timestamp,Upload (Mbps),Download (Mbps)")
}

func TestToFile_GraphExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")
	res, err := ToFile(context.Background(), &fakeSource{points: samplePoints()}, Request{
		Kind:  KindGraph,
		Path:  path,
		Graph: GraphOptions{Width: 320, Height: 160},
	})
	require.NoError(t, err)
	assert.Equal(t, path, res.Path)

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, fi.Size())
}

func TestToFile_NoData(t *testing.T) {
	dir := t.TempDir()
	_, err := ToFile(context.Background(), &fakeSource{}, Request{Kind: KindCSV, Dir: dir})
	assert.ErrorIs(t, err, ErrNoData)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestToFile_SourceError(t *testing.T) {
	boom := errors.New("boom")
	_, err := ToFile(context.Background(), &fakeSource{err: boom}, Request{Kind: KindCSV, Dir: t.TempDir()})
	assert.ErrorIs(t, err, boom)
}

func TestToFile_UnknownKindRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.bin")
	_, err := ToFile(context.Background(), &fakeSource{points: samplePoints()}, Request{Kind: "xml", Path: path})
	assert.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestToFile_WithStore(t *testing.T) {
	ctx := context.Background()
	store, err := history.Open(ctx, filepath.Join(t.TempDir(), "h.db"), nil)
	require.NoError(t, err)
	defer store.Close()

	now := time.Now().Truncate(time.Second)
	require.NoError(t, store.Record(ctx, []history.Sample{
		{Time: now.Add(-2 * time.Second), Interface: "eth0", Upload: 125_000, Download: 125_000},
		{Time: now.Add(-time.Second), Interface: "eth0", Upload: 250_000, Download: 250_000},
	}))

	res, err := ToFile(ctx, store, Request{Kind: KindCSV, Dir: t.TempDir(), Since: time.Hour, Now: now})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Points)
}
