// =============================================================================
// Offline Geodatabase Converter - Execution Context
// =============================================================================
//
// This module decides whether the converter runs as a tool inside a host GIS
// application or as a standalone script, and provides the message sink for
// each case.
//
// DETECTION:
//   argv holds the program name followed by the positional parameters. Any
//   positional parameter means the host framework invoked us as a tool.
//
// SINKS:
//   - ConsoleSink: plain text lines on stdout (errors on stderr).
//   - HostSink:    the host tool framework's message channel.
//   Both receive exactly the same message strings.
//
// =============================================================================

package hosting

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/juju/loggo/v2"
)

// Mode is the execution context of a run.
type Mode int

const (
	// Standalone is a bare script invocation with no parameters.
	Standalone Mode = iota

	// HostedTool is an invocation by a host application's tool framework.
	HostedTool
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	if m == HostedTool {
		return "hosted tool"
	}
	return "standalone script"
}

// Detect returns HostedTool when argv carries more than the program name.
func Detect(argv []string) Mode {
	if len(argv) > 1 {
		return HostedTool
	}
	return Standalone
}

// =============================================================================
// MESSAGE SINKS
// =============================================================================

// Sink receives the operator-facing progress and diagnostic messages.
type Sink interface {
	// Message emits an informational message.
	Message(msg string)

	// Error emits an error message.
	Error(msg string)
}

// NewSink returns the sink for the given mode. out is the standard output
// stream for a standalone run, or the host channel for a hosted one; errOut
// only receives standalone error messages.
func NewSink(mode Mode, out, errOut io.Writer) Sink {
	if mode == HostedTool {
		return NewHostSink(out)
	}
	return &ConsoleSink{Out: out, Err: errOut}
}

// ConsoleSink writes messages as plain lines.
type ConsoleSink struct {
	Out io.Writer
	Err io.Writer
}

// Message implements Sink.
func (s *ConsoleSink) Message(msg string) {
	fmt.Fprintln(s.Out, msg)
}

// Error implements Sink.
func (s *ConsoleSink) Error(msg string) {
	w := s.Err
	if w == nil {
		w = s.Out
	}
	fmt.Fprintln(w, msg)
}

// HostSink routes messages through a dedicated logging context whose only
// writer is the host channel. Each message becomes one "LEVEL message" line,
// multi-line messages included, so the host can colour errors.
type HostSink struct {
	mu     sync.Mutex
	logger loggo.Logger
}

// hostModule is the logger name used on the host channel.
const hostModule = "offlinegdb.host"

// NewHostSink returns a HostSink writing to w.
func NewHostSink(w io.Writer) *HostSink {
	ctx := loggo.NewContext(loggo.INFO)
	// A fresh context has no writers, so adding one cannot clash.
	_ = ctx.AddWriter("host", loggo.NewSimpleWriter(w, hostFormatter))
	return &HostSink{logger: ctx.GetLogger(hostModule)}
}

func hostFormatter(entry loggo.Entry) string {
	lines := strings.Split(entry.Message, "\n")
	for i, line := range lines {
		lines[i] = fmt.Sprintf("%s %s", entry.Level, line)
	}
	return strings.Join(lines, "\n")
}

// Message implements Sink.
func (s *HostSink) Message(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Infof("%s", msg)
}

// Error implements Sink.
func (s *HostSink) Error(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Errorf("%s", msg)
}
