package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level represents a log level.
type Level = slog.Level

// Log levels.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Format represents the log output format.
type Format string

// Output formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level Level

	// Format is the console format (text or json).
	Format Format

	// Output is the console writer. Defaults to os.Stderr.
	Output io.Writer

	// AddSource adds source file and line to log entries.
	AddSource bool

	// File, when set, receives a JSON copy of every entry. See Open.
	File string

	// ErrorFile, when set, receives a JSON copy of every ERROR entry.
	ErrorFile string

	// MaxSizeMB is the size at which File and ErrorFile are rotated.
	// Zero means 100 megabytes.
	MaxSizeMB int

	// MaxBackups is the number of rotated files kept. Zero keeps them all.
	MaxBackups int
}

// DefaultConfig returns the logging defaults: info level, text on stderr.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Format: FormatText,
		Output: os.Stderr,
	}
}

// New creates a console logger. Config.File is ignored; use Open for it.
func New(cfg Config) *slog.Logger {
	return slog.New(consoleHandler(cfg))
}

// Open creates a logger that writes to the console and, when cfg.File or
// cfg.ErrorFile is set, appends JSON entries to those files as well. Files
// are rotated by size. The returned close function releases the files and
// is never nil.
func Open(cfg Config) (*slog.Logger, func() error, error) {
	handlers := []slog.Handler{consoleHandler(cfg)}
	var files []io.Closer
	closeAll := func() error {
		var errs []error
		for _, f := range files {
			errs = append(errs, f.Close())
		}
		return errors.Join(errs...)
	}
	for _, sink := range []struct {
		path  string
		level Level
	}{
		{cfg.File, cfg.Level},
		{cfg.ErrorFile, max(cfg.Level, LevelError)},
	} {
		if sink.path == "" {
			continue
		}
		w, err := openRotating(sink.path, cfg)
		if err != nil {
			_ = closeAll()
			return nil, nil, err
		}
		files = append(files, w)
		handlers = append(handlers, slog.NewJSONHandler(w, &slog.HandlerOptions{Level: sink.level, AddSource: cfg.AddSource}))
	}
	if len(handlers) == 1 {
		return slog.New(handlers[0]), closeAll, nil
	}
	return slog.New(NewMultiHandler(handlers...)), closeAll, nil
}

// openRotating opens path through lumberjack. The empty write creates the
// file now so a bad path fails at startup rather than on the first entry.
func openRotating(path string, cfg Config) (*lumberjack.Logger, error) {
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}
	if _, err := w.Write(nil); err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return w, nil
}

func consoleHandler(cfg Config) slog.Handler {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource}
	if cfg.Format == FormatJSON {
		return slog.NewJSONHandler(out, opts)
	}
	return slog.NewTextHandler(out, opts)
}

// NewWithLevel creates a text logger on stderr at the given level.
func NewWithLevel(level Level) *slog.Logger {
	return New(Config{Level: level, Format: FormatText})
}

// Nop returns a logger that discards all output.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// LookupLevel parses a level name case-insensitively. The empty string is
// info.
func LookupLevel(s string) (Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, true
	case "info", "":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	}
	return LevelInfo, false
}

// ParseLevel is LookupLevel with unknown names mapped to info.
func ParseLevel(s string) Level {
	l, _ := LookupLevel(s)
	return l
}

// LookupFormat parses a format name case-insensitively. The empty string is
// text.
func LookupFormat(s string) (Format, bool) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, true
	case "text", "":
		return FormatText, true
	}
	return FormatText, false
}

// ParseFormat is LookupFormat with unknown names mapped to text.
func ParseFormat(s string) Format {
	f, _ := LookupFormat(s)
	return f
}
