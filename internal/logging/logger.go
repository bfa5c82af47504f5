// Package logging writes lectern's structured runtime log as JSON lines.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const logFileName = "log.jsonl"

// Options select where and how verbosely to log.
type Options struct {
	// Verbose enables debug records.
	Verbose bool
	// StateDir overrides the XDG state directory lookup.
	StateDir string
}

// Runtime is an open log sink. Close it when the command finishes.
type Runtime struct {
	Logger *slog.Logger
	Path   string
	sink   io.Closer
}

// Close releases the log file.
func (r Runtime) Close() error {
	if r.sink == nil {
		return nil
	}
	return r.sink.Close()
}

// New opens (appending) the JSONL log file and returns a logger tagged with
// the application name.
func New(opts Options) (Runtime, error) {
	dir := strings.TrimSpace(opts.StateDir)
	if dir == "" {
		var err error
		if dir, err = stateDir(); err != nil {
			return Runtime{}, fmt.Errorf("resolve log dir: %w", err)
		}
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Runtime{}, fmt.Errorf("create log dir: %w", err)
	}

	path := filepath.Join(dir, logFileName)
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return Runtime{}, fmt.Errorf("open log file: %w", err)
	}

	handler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level(opts.Verbose)})
	return Runtime{
		Logger: slog.New(handler).With("app", "lectern"),
		Path:   path,
		sink:   file,
	}, nil
}

func level(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// stateDir is $XDG_STATE_HOME/lectern, falling back to ~/.local/state/lectern.
func stateDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, "lectern"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "lectern"), nil
}
