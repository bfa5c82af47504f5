// Package app wires parsed commands to configuration, the owner session and
// the IPC client paths.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/rbright/lectern/internal/audio"
	"github.com/rbright/lectern/internal/cli"
	"github.com/rbright/lectern/internal/config"
	"github.com/rbright/lectern/internal/doctor"
	"github.com/rbright/lectern/internal/ipc"
	"github.com/rbright/lectern/internal/logging"
	"github.com/rbright/lectern/internal/version"
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("lectern"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("lectern"))
		return 0
	}

	switch parsed.Command {
	case cli.CommandVersion:
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	case cli.CommandScenarios:
		return r.commandScenarios()
	}

	cfgLoaded, cfgErr := config.Load(parsed.ConfigPath)
	logRuntime, err := logging.New(logging.Options{
		Verbose: cfgErr == nil && cfgLoaded.Config.Debug.Verbose,
	})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	if cfgErr != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", cfgErr)
		logger.Error("load config failed", "error", cfgErr.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		if r.printsWarnings(parsed.Command) {
			fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		}
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandStop:
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandStop})
	case cli.CommandCancel:
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandCancel})
	case cli.CommandCorrect:
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandCorrect, ID: parsed.SegmentID, Text: parsed.Text})
	case cli.CommandHistory:
		return r.commandHistory(cfgLoaded.Config, parsed)
	case cli.CommandAnalyze:
		return r.commandAnalyze(ctx, cfgLoaded.Config, parsed, logger)
	case cli.CommandRecord:
		return r.commandRecord(ctx, cfgLoaded.Config, parsed, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

// printsWarnings keeps the status line quiet; warnings still reach the log.
func (r Runner) printsWarnings(command cli.Command) bool {
	return command != cli.CommandStatus
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
		)
	}

	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: ipc.CommandStatus})
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		r.printStatus(resp)
		return 0
	}

	fmt.Fprintln(r.Stdout, "idle")
	return 0
}

// printStatus writes the state line, then live details while recording.
func (r Runner) printStatus(resp ipc.Response) {
	if resp.State == "" {
		resp.State = "idle"
	}
	fmt.Fprintln(r.Stdout, resp.State)
	if resp.ElapsedMS == 0 && len(resp.Segments) == 0 {
		return
	}

	elapsed := time.Duration(resp.ElapsedMS) * time.Millisecond
	fmt.Fprintf(r.Stdout, "device: %s\n", resp.Device)
	fmt.Fprintf(r.Stdout, "elapsed: %s | level: %.0f | wpm: %d\n", elapsed.Round(time.Second), resp.Level, resp.WPM)
	for _, segment := range resp.Segments {
		text := segment.Text
		if segment.Correction != "" {
			text = segment.Correction + " (corrected)"
		}
		fmt.Fprintf(r.Stdout, "  [%s] %s\n", shortID(segment.ID), text)
	}
}

func (r Runner) forwardOrFail(ctx context.Context, req ipc.Request) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, req)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no active lectern session\n")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

// tryForward reports handled=false only when no owner is listening.
func tryForward(ctx context.Context, socketPath string, req ipc.Request) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, req, 220*time.Millisecond)
	switch {
	case err == nil && resp.OK:
		return resp, true, nil
	case err == nil:
		return resp, true, errors.New(resp.Error)
	case ipc.NoOwner(err):
		return ipc.Response{}, false, nil
	default:
		return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", req.Command, err)
	}
}

// shortID trims UUIDs for terminal output.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
