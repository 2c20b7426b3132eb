package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_Levels(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	logger, closer, err := Setup(Options{Stderr: &buf})
	require.NoError(t, err)
	defer closer.Close()

	logger.Debug("hidden")
	logger.Info("shown", "component", "test")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "component=test")

	buf.Reset()
	logger, closer2, err := Setup(Options{Stderr: &buf, Verbose: true})
	require.NoError(t, err)
	defer closer2.Close()
	logger.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestSetup_FileRotation(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	path := filepath.Join(t.TempDir(), "logs", "netspeedtray.log")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", MaxFileSize+1)), 0600))

	var buf bytes.Buffer
	logger, closer, err := Setup(Options{Stderr: &buf, File: path})
	require.NoError(t, err)
	logger.Warn("after rotation")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "after rotation")
	assert.Less(t, len(data), 1024)

	_, err = os.Stat(path + ".1")
	assert.NoError(t, err)
}
