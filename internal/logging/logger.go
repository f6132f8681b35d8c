// Package logging builds the application's slog logger. The terminal belongs
// to the UI, so records go to a file unless a writer is given.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// Path is the log file. Ignored when Writer is set.
	Path   string
	Writer io.Writer
}

// New constructs a slog logger. The returned close function releases the log
// file and is safe to call when no file was opened.
func New(opts Options) (*slog.Logger, func() error, error) {
	level := new(slog.LevelVar)
	level.Set(parseLevel(opts.Level))

	closeFn := func() error { return nil }
	w := opts.Writer
	if w == nil {
		if strings.TrimSpace(opts.Path) == "" {
			return slog.New(slog.DiscardHandler), closeFn, nil
		}
		file, err := openFile(opts.Path)
		if err != nil {
			return nil, nil, err
		}
		w = file
		closeFn = file.Close
	}

	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "text":
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level, ReplaceAttr: replaceAttr})
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level, ReplaceAttr: replaceAttr})
	default:
		_ = closeFn()
		return nil, nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
	return slog.New(handler), closeFn, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

func replaceAttr(_ []string, attr slog.Attr) slog.Attr {
	switch attr.Key {
	case slog.TimeKey:
		if attr.Value.Kind() == slog.KindTime {
			attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339))
		}
	case slog.LevelKey:
		attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
	}
	if attr.Value.Kind() == slog.KindDuration {
		attr.Value = slog.StringValue(attr.Value.Duration().String())
	}
	return attr
}

func openFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}
