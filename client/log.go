package client

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/canonical/go-nimbus/logging"
)

// LogFunc is a function that can be used for logging.
type LogFunc = logging.Func

// LogLevel defines the logging level.
type LogLevel = logging.Level

// Available logging levels.
const (
	LogNone  = logging.None
	LogDebug = logging.Debug
	LogInfo  = logging.Info
	LogWarn  = logging.Warn
	LogError = logging.Error
)

// DefaultLogFunc emits messages using the stdlib's logger.
func DefaultLogFunc(l LogLevel, format string, a ...interface{}) {
	msg := fmt.Sprintf("["+l.String()+"]"+" nimbus: "+format, a...)
	log.Print(msg)
}

// NewLogFunc returns a LogFunc that writes messages at or above the given
// level to w, each prefixed with prefix. If w is nil, standard output is used.
// With LogNone nothing is written.
func NewLogFunc(level LogLevel, prefix string, w io.Writer) LogFunc {
	if level == LogNone {
		return logging.Discard
	}
	if w == nil {
		w = os.Stdout
	}
	return func(l LogLevel, format string, a ...interface{}) {
		if l < level {
			return
		}
		msg := fmt.Sprintf("["+l.String()+"] "+prefix+format+"\n", a...)
		io.WriteString(w, msg)
	}
}

type loggingWriter struct{}

func (loggingWriter) Write(p []byte) (int, error) {
	log.Print(string(p))
	return len(p), nil
}

// NewLoggingWriter returns an io.Writer that forwards to the stdlib's logger,
// to be used with NewLogFunc.
func NewLoggingWriter() io.Writer {
	return loggingWriter{}
}

// NewLogLevel parses a log level name.
func NewLogLevel(name string) (LogLevel, error) {
	switch strings.ToLower(name) {
	case "debug":
		return LogDebug, nil
	case "info":
		return LogInfo, nil
	case "warn", "warning":
		return LogWarn, nil
	case "error":
		return LogError, nil
	case "none":
		return LogNone, nil
	}
	return LogNone, errors.Errorf("invalid log level %q", name)
}
