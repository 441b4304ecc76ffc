package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_WritesConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "test.log")

	require.NoError(t, Init(Config{Level: "debug", OutputFile: path, NoColor: true, Console: &console}))
	t.Cleanup(func() { _ = Close() })

	Infof("hello %s", "AMZN")
	logrus.WithField("component", "test").Debug("from package logger")

	assert.Contains(t, console.String(), "hello AMZN")
	assert.Contains(t, console.String(), "from package logger")
	assert.Equal(t, path, GetCurrentLogFile())

	require.NoError(t, Close())
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "hello AMZN")
}

func TestInit_BadLevelFallsBackToInfo(t *testing.T) {
	var console bytes.Buffer
	require.NoError(t, Init(Config{Level: "loud", NoColor: true, Console: &console}))

	Debugf("hidden")
	Infof("shown")

	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, console.String(), "shown")
	assert.Equal(t, logrus.InfoLevel, Logger.GetLevel())
	assert.Empty(t, GetCurrentLogFile())
}

func TestClose_ClearsCurrentLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.log")
	require.NoError(t, Init(Config{Level: "info", OutputFile: path, NoColor: true, Console: &bytes.Buffer{}}))
	assert.Equal(t, path, GetCurrentLogFile())

	require.NoError(t, Close())
	assert.Empty(t, GetCurrentLogFile())

	require.NoError(t, Init(Config{Level: "info", NoColor: true, Console: &bytes.Buffer{}}))
	assert.Empty(t, GetCurrentLogFile())
}

func TestWrappers_WriteThroughLogger(t *testing.T) {
	var console bytes.Buffer
	require.NoError(t, Init(Config{Level: "info", NoColor: true, Console: &console}))

	Info("plain line")
	Warnf("warn %d", 1)
	Errorf("error %s", "x")
	WithField("component", "app").Infof("with field")

	out := console.String()
	assert.Contains(t, out, "plain line")
	assert.Contains(t, out, "warn 1")
	assert.Contains(t, out, "error x")
	assert.Contains(t, out, "component=app")
}
