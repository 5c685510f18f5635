package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreStandardLogger(t *testing.T) {
	std := logrus.StandardLogger()
	out, formatter, level := std.Out, std.Formatter, std.GetLevel()
	t.Cleanup(func() {
		logrus.SetOutput(out)
		logrus.SetFormatter(formatter)
		logrus.SetLevel(level)
	})
}

func TestSetupWritesRotatingFile(t *testing.T) {
	restoreStandardLogger(t)
	path := filepath.Join(t.TempDir(), "logs", "app.log")

	require.NoError(t, Setup(Options{File: path, Level: "debug", Format: "json"}))
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logrus.StandardLogger().Formatter)

	logrus.WithField("filename", "ride.gpx").Info("Created route")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"filename":"ride.gpx"`)
	assert.Contains(t, string(content), `"msg":"Created route"`)
}

func TestSetupDefaultsToText(t *testing.T) {
	restoreStandardLogger(t)

	require.NoError(t, Setup(Options{Level: "warn"}))
	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logrus.StandardLogger().Formatter)
}

func TestSetupRejectsBadOptions(t *testing.T) {
	restoreStandardLogger(t)

	assert.Error(t, Setup(Options{Level: "loud"}))
	assert.Error(t, Setup(Options{Level: "info", Format: "xml"}))
}
