// Package logger configures logrus for adminctl and carries field loggers
// through contexts.
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/gravitational/trace"
	log "github.com/sirupsen/logrus"
)

// Config is the [log] section of the configuration file.
type Config struct {
	Output   string `toml:"output"`
	Severity string `toml:"severity"`
}

type contextKey struct{}

var (
	outputMu sync.Mutex
	// outputFile is the log file opened by the last Setup, if any.
	outputFile *os.File
)

// Init sets up the standard logger before the configuration file is read.
func Init() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(os.Stderr)
	log.SetLevel(log.InfoLevel)
}

// Setup applies the [log] configuration to the standard logger.
func Setup(conf Config) error {
	level, err := parseSeverity(conf.Severity)
	if err != nil {
		return trace.Wrap(err)
	}
	out, file, err := openOutput(conf.Output)
	if err != nil {
		return trace.Wrap(err)
	}
	setOutput(out, file)
	log.SetLevel(level)
	return nil
}

// setOutput switches the standard logger to out and closes the log file it
// replaces. file is the log file behind out, nil for stdout and stderr.
func setOutput(out io.Writer, file *os.File) {
	outputMu.Lock()
	defer outputMu.Unlock()
	log.SetOutput(out)
	prev := outputFile
	outputFile = file
	if prev != nil && prev != file {
		if err := prev.Close(); err != nil {
			log.WithError(err).Warn("Failed to close previous log file")
		}
	}
}

func parseSeverity(severity string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(severity)) {
	case "", "info":
		return log.InfoLevel, nil
	case "err", "error":
		return log.ErrorLevel, nil
	case "debug":
		return log.DebugLevel, nil
	case "warn", "warning":
		return log.WarnLevel, nil
	case "trace":
		return log.TraceLevel, nil
	}
	return log.InfoLevel, trace.BadParameter("unsupported logger severity: %q", severity)
}

// Close releases the log file opened by Setup and sends output back to
// stderr.
func Close() {
	setOutput(os.Stderr, nil)
}

func openOutput(output string) (io.Writer, *os.File, error) {
	switch strings.ToLower(strings.TrimSpace(output)) {
	case "", "stderr", "error", "2":
		return os.Stderr, nil, nil
	case "stdout", "out", "1":
		return os.Stdout, nil, nil
	default:
		f, err := os.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0640)
		if err != nil {
			return nil, nil, trace.ConvertSystemError(err)
		}
		return f, f, nil
	}
}

// Standard returns the standard logger.
func Standard() log.FieldLogger {
	return log.StandardLogger()
}

// WithLogger stores logger in the context.
func WithLogger(ctx context.Context, logger log.FieldLogger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// Get returns the logger stored in ctx or the standard one.
func Get(ctx context.Context) log.FieldLogger {
	if logger, ok := ctx.Value(contextKey{}).(log.FieldLogger); ok && logger != nil {
		return logger
	}
	return Standard()
}

// WithField returns a context whose logger carries the extra field, and that logger.
func WithField(ctx context.Context, key string, value interface{}) (context.Context, log.FieldLogger) {
	logger := Get(ctx).WithField(key, value)
	return WithLogger(ctx, logger), logger
}

// WithFields is WithField for several fields at once.
func WithFields(ctx context.Context, fields log.Fields) (context.Context, log.FieldLogger) {
	logger := Get(ctx).WithFields(fields)
	return WithLogger(ctx, logger), logger
}

// SetField is WithField when only the context is needed.
func SetField(ctx context.Context, key string, value interface{}) context.Context {
	ctx, _ = WithField(ctx, key, value)
	return ctx
}
