// Package log provides the global structured logger used across the module.
// It wraps zerolog and exposes printf-style (Debugf, Infof...) and key/value
// style (Debugw, Infow...) helpers.
package log

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"
)

const (
	// LogLevelDebug enables all log messages.
	LogLevelDebug = "debug"
	// LogLevelInfo is the default level for the binaries.
	LogLevelInfo = "info"
	// LogLevelWarn only logs warnings and errors.
	LogLevelWarn = "warn"
	// LogLevelError only logs errors.
	LogLevelError = "error"

	logTestWriterName = "log_test_writer"
)

var (
	log      zerolog.Logger
	logLevel = LogLevelError

	// logTestWriter is the output used when Init is called with logTestWriterName.
	logTestWriter io.Writer

	// panicOnInvalidChars makes every log line containing the unicode
	// replacement char panic. Tests enable it to catch binary data being
	// logged as strings.
	panicOnInvalidChars = os.Getenv("LOG_PANIC_ON_INVALIDCHARS") == "true"
)

func init() {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = LogLevelError
	}
	Init(level, "stderr", nil)
}

// invalidCharChecker inspects every raw log line for replacement chars. It
// receives the JSON encoded line, where invalid UTF-8 shows up escaped.
type invalidCharChecker struct{}

func (*invalidCharChecker) Write(p []byte) (int, error) {
	if panicOnInvalidChars &&
		(bytes.ContainsRune(p, unicode.ReplacementChar) || bytes.Contains(p, []byte(`\ufffd`))) {
		panic(fmt.Sprintf("log line contains invalid chars: %q", p))
	}
	return len(p), nil
}

// errorLevelWriter forwards only warning and error events.
type errorLevelWriter struct {
	io.Writer
}

func (w *errorLevelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < zerolog.WarnLevel {
		return len(p), nil
	}
	return w.Write(p)
}

// Init configures the global logger. Level is one of debug, info, warn or
// error. Output can be stdout, stderr or a file path. If errorOutput is not
// nil, warnings and errors are also written to it without colors.
func Init(level, output string, errorOutput io.Writer) {
	var out io.Writer
	switch output {
	case "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	case logTestWriterName:
		out = logTestWriter
	default:
		f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			panic(fmt.Sprintf("cannot open log output %q: %v", output, err))
		}
		out = f
	}
	writers := []io.Writer{
		zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339Nano},
		&invalidCharChecker{},
	}
	if errorOutput != nil {
		writers = append(writers, &errorLevelWriter{zerolog.ConsoleWriter{
			Out:        errorOutput,
			TimeFormat: time.RFC3339Nano,
			NoColor:    true,
		}})
	}
	log = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		With().Timestamp().CallerWithSkipFrameCount(3).Logger()
	setLevel(level)
}

func setLevel(level string) {
	level = strings.ToLower(level)
	l, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		panic(fmt.Sprintf("invalid log level %q", level))
	}
	log = log.Level(l)
	logLevel = level
}

// Level returns the current log level.
func Level() string {
	return logLevel
}

// Logger returns the underlying zerolog logger.
func Logger() *zerolog.Logger {
	return &log
}

// Debug sends a debug level log message.
func Debug(args ...any) {
	if log.GetLevel() > zerolog.DebugLevel {
		return
	}
	log.Debug().Msg(fmt.Sprint(args...))
}

// Info sends an info level log message.
func Info(args ...any) {
	log.Info().Msg(fmt.Sprint(args...))
}

// Warn sends a warn level log message.
func Warn(args ...any) {
	log.Warn().Msg(fmt.Sprint(args...))
}

// Error sends an error level log message.
func Error(args ...any) {
	log.Error().Msg(fmt.Sprint(args...))
}

// Fatal sends a fatal level log message and exits.
func Fatal(args ...any) {
	log.Fatal().Msg(fmt.Sprint(args...))
}

// Debugf sends a formatted debug level log message.
func Debugf(template string, args ...any) {
	log.Debug().Msgf(template, args...)
}

// Infof sends a formatted info level log message.
func Infof(template string, args ...any) {
	log.Info().Msgf(template, args...)
}

// Warnf sends a formatted warn level log message.
func Warnf(template string, args ...any) {
	log.Warn().Msgf(template, args...)
}

// Errorf sends a formatted error level log message.
func Errorf(template string, args ...any) {
	log.Error().Msgf(template, args...)
}

// Fatalf sends a formatted fatal level log message and exits.
func Fatalf(template string, args ...any) {
	log.Fatal().Msgf(template, args...)
}

// Debugw sends a debug level log message with key-value pairs.
func Debugw(msg string, keyvalues ...any) {
	log.Debug().Fields(keyvalues).Msg(msg)
}

// Infow sends an info level log message with key-value pairs.
func Infow(msg string, keyvalues ...any) {
	log.Info().Fields(keyvalues).Msg(msg)
}

// Warnw sends a warning level log message with key-value pairs.
func Warnw(msg string, keyvalues ...any) {
	log.Warn().Fields(keyvalues).Msg(msg)
}

// Errorw sends an error level log message with a special format for errors.
func Errorw(err error, msg string, keyvalues ...any) {
	log.Error().Err(err).Fields(keyvalues).Msg(msg)
}
