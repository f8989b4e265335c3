// Package logger is a small leveled logger used across appinstall.
//
// Messages are printf-style and usually carry a bracketed component prefix,
// e.g. logger.Info("[Install] stage %s done", name). Output goes to stderr
// through a log/slog text handler so operator prompts on stdout stay clean.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Level is a logging verbosity.
type Level int

const (
	TraceLevel Level = iota
	DebugLevel
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
	PanicLevel
)

// slog has no trace/fatal/panic, map them around the built-in levels.
const (
	slogTrace = slog.LevelDebug - 4
	slogFatal = slog.LevelError + 4
	slogPanic = slog.LevelError + 8
)

var (
	mu      sync.Mutex
	level   = new(slog.LevelVar)
	out     io.Writer = os.Stderr
	current           = newLogger(out)
)

func init() {
	level.Set(slog.LevelInfo)
}

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key != slog.LevelKey {
				return a
			}
			switch a.Value.Any().(slog.Level) {
			case slogTrace:
				a.Value = slog.StringValue("TRACE")
			case slogFatal:
				a.Value = slog.StringValue("FATAL")
			case slogPanic:
				a.Value = slog.StringValue("PANIC")
			}
			return a
		},
	}))
}

// ParseLevel converts a level name into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return TraceLevel, nil
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	case "panic":
		return PanicLevel, nil
	default:
		return InfoLevel, fmt.Errorf("invalid log level %q: must be one of trace, debug, info, warn, error, fatal, panic", s)
	}
}

func (l Level) slog() slog.Level {
	switch l {
	case TraceLevel:
		return slogTrace
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	case FatalLevel:
		return slogFatal
	case PanicLevel:
		return slogPanic
	default:
		return slog.LevelInfo
	}
}

// SetLevel sets the minimum level that is written.
func SetLevel(l Level) {
	level.Set(l.slog())
}

// GetLevel returns the current minimum level.
func GetLevel() Level {
	switch v := level.Level(); {
	case v <= slogTrace:
		return TraceLevel
	case v <= slog.LevelDebug:
		return DebugLevel
	case v <= slog.LevelInfo:
		return InfoLevel
	case v <= slog.LevelWarn:
		return WarnLevel
	case v <= slog.LevelError:
		return ErrorLevel
	case v <= slogFatal:
		return FatalLevel
	default:
		return PanicLevel
	}
}

// SetOutput redirects log output. Pass os.Stderr to restore the default.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	current = newLogger(w)
}

// AddOutput tees log output to w in addition to the current writer.
func AddOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = io.MultiWriter(out, w)
	current = newLogger(out)
}

func logf(l slog.Level, format string, args ...any) {
	mu.Lock()
	lg := current
	mu.Unlock()
	if !lg.Enabled(context.Background(), l) {
		return
	}
	lg.Log(context.Background(), l, fmt.Sprintf(format, args...))
}

func Trace(format string, args ...any) { logf(slogTrace, format, args...) }
func Debug(format string, args ...any) { logf(slog.LevelDebug, format, args...) }
func Info(format string, args ...any)  { logf(slog.LevelInfo, format, args...) }
func Warn(format string, args ...any)  { logf(slog.LevelWarn, format, args...) }
func Error(format string, args ...any) { logf(slog.LevelError, format, args...) }

// Fatal logs and exits the process with status 1.
func Fatal(format string, args ...any) {
	logf(slogFatal, format, args...)
	os.Exit(1)
}
