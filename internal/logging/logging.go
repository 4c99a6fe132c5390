// Package logging configures the diagnostic loggers shared by every package.
//
// Diagnostics are separate from the operator-facing messages that go through
// a hosting.Sink: they are developer logs, written to stderr and optionally to
// a rolling log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/juju/lumberjack/v2"
)

// RootModule prefixes every logger name in this program.
const RootModule = "offlinegdb"

// fileWriter is the name of the rolling file writer.
const fileWriter = "file"

// Setup replaces the default writer with a stderr writer, adds a rolling
// file writer when logFile is set, and applies the level to every logger.
// The returned closer releases the log file.
func Setup(level string, logFile string, stderr io.Writer) (io.Closer, error) {
	lvl, ok := loggo.ParseLevel(level)
	if !ok {
		return nil, errors.NotValidf("log level %q", level)
	}

	if stderr == nil {
		stderr = os.Stderr
	}
	if _, err := loggo.ReplaceDefaultWriter(loggo.NewSimpleWriter(stderr, Formatter)); err != nil {
		return nil, errors.Annotate(err, "installing stderr log writer")
	}

	// A writer left by an earlier Setup must not outlive its closer.
	_, _ = loggo.RemoveWriter(fileWriter)

	closer := io.Closer(nopCloser{})
	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			return nil, errors.Annotatef(err, "creating log directory for %q", logFile)
		}
		file := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
		}
		if err := loggo.RegisterWriter(fileWriter, loggo.NewSimpleWriter(file, Formatter)); err != nil {
			return nil, errors.Annotatef(err, "installing log file writer for %q", logFile)
		}
		closer = &fileCloser{file: file}
	}

	if err := loggo.ConfigureLoggers(fmt.Sprintf("<root>=%s", lvl)); err != nil {
		return nil, errors.Trace(err)
	}
	return closer, nil
}

// Formatter renders a log entry as "time LEVEL module message".
func Formatter(entry loggo.Entry) string {
	ts := entry.Timestamp.In(time.UTC).Format("2006-01-02 15:04:05")
	module := strings.TrimPrefix(entry.Module, RootModule+".")
	return fmt.Sprintf("%s %s %s %s", ts, entry.Level, module, entry.Message)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// fileCloser detaches the file writer before closing the file, so later
// log calls cannot reopen it.
type fileCloser struct {
	file *lumberjack.Logger
}

func (c *fileCloser) Close() error {
	_, _ = loggo.RemoveWriter(fileWriter)
	return c.file.Close()
}
