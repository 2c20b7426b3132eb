package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netspeedtray/internal/app"
	"netspeedtray/internal/config"
	"netspeedtray/internal/history"
)

// execute runs the root command against a config in dir.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		config.SetPath("")
		if logCloser != nil {
			logCloser.Close()
		}
	})
	exportOpts = exportFlags{}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{
		"--config", filepath.Join(dir, "config.json"),
		"--log-file", filepath.Join(dir, "test.log"),
	}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func seedHistory(t *testing.T, dir string) {
	t.Helper()
	ctx := context.Background()
	store, err := history.Open(ctx, filepath.Join(dir, app.HistoryFile), nil)
	require.NoError(t, err)
	defer store.Close()

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Record(ctx, []history.Sample{
		{Time: at, Interface: "eth0", Upload: 125_000, Download: 1_000_000},
		{Time: at.Add(time.Second), Interface: "eth0", Upload: 250_000, Download: 2_000_000},
	}))
}

func TestExportCSV(t *testing.T) {
	dir := t.TempDir()
	seedHistory(t, dir)
	out := filepath.Join(dir, "out.csv")

	stdout, err := execute(t, dir, "export", "csv", "--out", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Wrote "+out)
	assert.Contains(t, stdout, "2 points")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Timestamp,Upload (Mbps),Download (Mbps)", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], ",1.0000,8.0000"), lines[1])
}

func TestExportGraph(t *testing.T) {
	dir := t.TempDir()
	seedHistory(t, dir)
	out := filepath.Join(dir, "out.png")

	_, err := execute(t, dir, "export", "graph", "--out", out, "--width", "400", "--height", "200")
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestExport_NoDatabase(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, dir, "export", "csv", "--out", filepath.Join(dir, "x.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no history database")
}

func TestExport_BadSince(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, dir, "export", "csv", "--since", "soon", "--out", filepath.Join(dir, "x.csv"))
	require.Error(t, err)
}

func TestIcon(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "icons")

	stdout, err := execute(t, dir, "icon", "--out", outDir, "--size", "16,32")
	require.NoError(t, err)
	assert.Contains(t, stdout, "icon_16.png")

	for _, name := range []string{"icon_16.png", "icon_32.png"} {
		fi, err := os.Stat(filepath.Join(outDir, name))
		require.NoError(t, err)
		assert.Positive(t, fi.Size())
	}
}
