package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Logger provides centralized logging for the whole engine
type Logger struct {
	logger *slog.Logger
	level  *slog.LevelVar
	file   *os.File
}

var globalLogger *Logger

// init creates the global logger with console output by default
func init() {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)
	globalLogger = &Logger{
		logger: slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})),
		level:  level,
		file:   os.Stdout,
	}
}

// Options selects where and how log records are written.
type Options struct {
	Level string
	File  string
}

// Configure replaces the global logger. Records go to File when set, otherwise to
// stdout; stdout that is not a terminal gets JSON records.
func Configure(opts Options) error {
	if opts.File != "" {
		if err := SetFileOutput(opts.File); err != nil {
			return err
		}
		SetLevel(opts.Level)
		return nil
	}

	level := new(slog.LevelVar)
	level.Set(ParseLevel(opts.Level))
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		handler = slog.NewTextHandler(os.Stdout, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, handlerOpts)
	}

	replace(&Logger{logger: slog.New(handler), level: level, file: os.Stdout})
	return nil
}

// SetFileOutput configures the logger to write to the specified file
func SetFileOutput(filename string) error {
	logger, err := NewLogger(filename)
	if err != nil {
		return err
	}
	replace(logger)
	return nil
}

// SetOutput routes records to w using the text handler. Mostly useful in tests.
func SetOutput(w io.Writer) {
	level := new(slog.LevelVar)
	level.Set(slog.LevelDebug)
	replace(&Logger{
		logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})),
		level:  level,
	})
}

// NewLogger creates a new logger that writes to the specified file
func NewLogger(filename string) (*Logger, error) {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, err
	}

	level := new(slog.LevelVar)
	level.Set(slog.LevelDebug)
	handler := slog.NewTextHandler(file, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{
					Key:   slog.TimeKey,
					Value: slog.StringValue(a.Value.Time().Format("2006/01/02 15:04:05.000000")),
				}
			}
			return a
		},
	})

	return &Logger{
		logger: slog.New(handler),
		level:  level,
		file:   file,
	}, nil
}

func replace(logger *Logger) {
	// Close existing file if it's not stdout
	if globalLogger != nil && globalLogger.file != nil && globalLogger.file != os.Stdout {
		globalLogger.file.Close()
	}
	globalLogger = logger
}

// ParseLevel maps a config string onto a slog level, defaulting to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLevel changes the minimum level of the global logger.
func SetLevel(name string) {
	if globalLogger != nil && globalLogger.level != nil {
		globalLogger.level.Set(ParseLevel(name))
	}
}

// With returns a logger tagged with the given component name. The returned
// logger follows later Configure/SetOutput calls.
func With(component string) *slog.Logger {
	h := &forwardHandler{}
	return slog.New(h.WithAttrs([]slog.Attr{slog.String("component", component)}))
}

// forwardHandler resolves the global handler on every record and replays the
// attrs/groups that were added to it in order.
type forwardHandler struct {
	steps []func(slog.Handler) slog.Handler
}

func (h *forwardHandler) target() slog.Handler {
	target := globalLogger.logger.Handler()
	for _, step := range h.steps {
		target = step(target)
	}
	return target
}

func (h *forwardHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return globalLogger != nil && globalLogger.logger.Handler().Enabled(ctx, level)
}

func (h *forwardHandler) Handle(ctx context.Context, record slog.Record) error {
	if globalLogger == nil {
		return nil
	}
	return h.target().Handle(ctx, record)
}

func (h *forwardHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.with(func(next slog.Handler) slog.Handler { return next.WithAttrs(attrs) })
}

func (h *forwardHandler) WithGroup(name string) slog.Handler {
	return h.with(func(next slog.Handler) slog.Handler { return next.WithGroup(name) })
}

func (h *forwardHandler) with(step func(slog.Handler) slog.Handler) *forwardHandler {
	steps := make([]func(slog.Handler) slog.Handler, 0, len(h.steps)+1)
	steps = append(steps, h.steps...)
	return &forwardHandler{steps: append(steps, step)}
}

// Standard logging methods
func Debug(msg string, args ...any) {
	if globalLogger != nil {
		globalLogger.logger.Debug(msg, args...)
	}
}

func Info(msg string, args ...any) {
	if globalLogger != nil {
		globalLogger.logger.Info(msg, args...)
	}
}

func Warn(msg string, args ...any) {
	if globalLogger != nil {
		globalLogger.logger.Warn(msg, args...)
	}
}

func Error(msg string, args ...any) {
	if globalLogger != nil {
		globalLogger.logger.Error(msg, args...)
	}
}

// Close closes the log file
func Close() {
	if globalLogger != nil && globalLogger.file != nil && globalLogger.file != os.Stdout {
		globalLogger.file.Close()
	}
}
