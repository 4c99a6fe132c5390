package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/juju/loggo/v2"
	"github.com/stretchr/testify/require"
)

func TestFormatter(t *testing.T) {
	entry := loggo.Entry{
		Level:     loggo.WARNING,
		Module:    "offlinegdb.pipeline",
		Timestamp: time.Date(2019, 6, 27, 10, 30, 0, 0, time.UTC),
		Message:   "stage failed",
	}

	require.Equal(t, "2019-06-27 10:30:00 WARNING pipeline stage failed", Formatter(entry))
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	_, err := Setup("LOUD", "", &bytes.Buffer{})
	require.Error(t, err)
}

func TestSetupWritesLogFile(t *testing.T) {
	// --- Arrange ---
	var stderr bytes.Buffer
	logFile := filepath.Join(t.TempDir(), "logs", "offlinegdb.log")

	// --- Act ---
	closer, err := Setup("DEBUG", logFile, &stderr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = loggo.ConfigureLoggers("<root>=WARNING") })

	loggo.GetLogger("offlinegdb.test").Debugf("hello %s", "file")
	require.NoError(t, closer.Close())

	// --- Assert ---
	require.Contains(t, stderr.String(), "DEBUG test hello file")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	require.Contains(t, string(data), "DEBUG test hello file")
}

func TestCloseDetachesLogFile(t *testing.T) {
	// --- Arrange ---
	logFile := filepath.Join(t.TempDir(), "offlinegdb.log")
	closer, err := Setup("DEBUG", logFile, &bytes.Buffer{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = loggo.ConfigureLoggers("<root>=WARNING") })
	loggo.GetLogger("offlinegdb.test").Debugf("before close")

	// --- Act ---
	require.NoError(t, closer.Close())
	loggo.GetLogger("offlinegdb.test").Debugf("after close")

	// --- Assert ---
	_, err = loggo.RemoveWriter(fileWriter)
	require.Error(t, err, "the file writer is gone once closed")
	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	require.Contains(t, string(data), "before close")
	require.NotContains(t, string(data), "after close")
}

func TestSetupWithoutFileDropsEarlierWriter(t *testing.T) {
	// --- Arrange ---
	logFile := filepath.Join(t.TempDir(), "offlinegdb.log")
	_, err := Setup("DEBUG", logFile, &bytes.Buffer{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = loggo.ConfigureLoggers("<root>=WARNING") })

	// --- Act ---
	var stderr bytes.Buffer
	closer, err := Setup("DEBUG", "", &stderr)
	require.NoError(t, err)
	loggo.GetLogger("offlinegdb.test").Debugf("second setup")
	require.NoError(t, closer.Close())

	// --- Assert ---
	require.Contains(t, stderr.String(), "second setup")
	data, err := os.ReadFile(logFile)
	if err == nil {
		require.NotContains(t, string(data), "second setup")
	}
}
