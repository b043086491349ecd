package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// Log levels accepted in Config.Level.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Logger is the logging surface used across the service.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	Fatal(format string, args ...interface{})

	// Context variants attach the request trace id when present.
	DebugContext(ctx context.Context, format string, args ...interface{})
	InfoContext(ctx context.Context, format string, args ...interface{})
	WarnContext(ctx context.Context, format string, args ...interface{})
	ErrorContext(ctx context.Context, format string, args ...interface{})

	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger

	GetOutput() io.Writer
}

// Config controls logger construction.
type Config struct {
	Level         string
	ServiceName   string
	FilePath      string
	ConsoleOutput bool
	JSONFormat    bool
	ReportCaller  bool
}

// DefaultConfig returns JSON logs at info level on stdout.
func DefaultConfig(serviceName string) Config {
	return Config{
		Level:         LevelInfo,
		ServiceName:   serviceName,
		ConsoleOutput: true,
		JSONFormat:    true,
	}
}

type logrusLogger struct {
	entry *logrus.Entry
}

// NewLogger builds a logrus-backed Logger.
func NewLogger(cfg Config) (Logger, error) {
	l := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if cfg.JSONFormat {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
				logrus.FieldKeyFunc:  "function",
				logrus.FieldKeyFile:  "file",
			},
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	}
	l.SetReportCaller(cfg.ReportCaller)

	var writers []io.Writer
	if cfg.ConsoleOutput {
		writers = append(writers, os.Stdout)
	}
	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, file)
	}
	switch len(writers) {
	case 0:
		l.SetOutput(io.Discard)
	case 1:
		l.SetOutput(writers[0])
	default:
		l.SetOutput(io.MultiWriter(writers...))
	}

	return &logrusLogger{
		entry: l.WithField("service", cfg.ServiceName),
	}, nil
}

// NewWriterLogger logs JSON at debug level into w. Used by tests.
func NewWriterLogger(w io.Writer) Logger {
	l := logrus.New()
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetOutput(w)
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

// Discard returns a Logger that drops everything.
func Discard() Logger {
	return NewWriterLogger(io.Discard)
}

func (l *logrusLogger) withContext(ctx context.Context) *logrus.Entry {
	if traceID := GetTraceID(ctx); traceID != "" {
		return l.entry.WithField("trace_id", traceID)
	}
	return l.entry
}

func (l *logrusLogger) GetOutput() io.Writer {
	return l.entry.Logger.Out
}

func (l *logrusLogger) WithField(key string, value interface{}) Logger {
	return &logrusLogger{entry: l.entry.WithField(key, value)}
}

func (l *logrusLogger) WithFields(fields map[string]interface{}) Logger {
	return &logrusLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l *logrusLogger) WithError(err error) Logger {
	return &logrusLogger{entry: l.entry.WithError(err)}
}

func (l *logrusLogger) Debug(format string, args ...interface{}) {
	l.entry.Debugf(format, args...)
}

func (l *logrusLogger) Info(format string, args ...interface{}) {
	l.entry.Infof(format, args...)
}

func (l *logrusLogger) Warn(format string, args ...interface{}) {
	l.entry.Warnf(format, args...)
}

func (l *logrusLogger) Error(format string, args ...interface{}) {
	l.entry.Errorf(format, args...)
}

func (l *logrusLogger) Fatal(format string, args ...interface{}) {
	l.entry.Fatalf(format, args...)
}

func (l *logrusLogger) DebugContext(ctx context.Context, format string, args ...interface{}) {
	l.withContext(ctx).Debugf(format, args...)
}

func (l *logrusLogger) InfoContext(ctx context.Context, format string, args ...interface{}) {
	l.withContext(ctx).Infof(format, args...)
}

func (l *logrusLogger) WarnContext(ctx context.Context, format string, args ...interface{}) {
	l.withContext(ctx).Warnf(format, args...)
}

func (l *logrusLogger) ErrorContext(ctx context.Context, format string, args ...interface{}) {
	l.withContext(ctx).Errorf(format, args...)
}
