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

type Config struct {
	// Level is one of debug, info, warn, error. Default warn.
	Level string
	// Dir enables JSON logging to {Dir}/{Service}_{YYYY-MM-DD}.log instead of
	// text on stderr.
	Dir     string
	Service string
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds the run logger. The returned closer releases the log file.
func New(cfg Config) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	service := cfg.Service
	if service == "" {
		service = "benchmark"
	}

	if cfg.Dir == "" {
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts)).With("service", service)
		return logger, nopCloser{}, nil
	}

	if err = os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s.log", service, time.Now().Format(time.DateOnly))
	f, err := os.OpenFile(filepath.Join(cfg.Dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640) //nolint:gosec // log path is operator controlled
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(f, opts)).With("service", service)
	return logger, f, nil
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}
