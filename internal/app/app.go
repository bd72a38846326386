// Package app wires seline's commands to the runtime.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/selineapp/seline/internal/cli"
	"github.com/selineapp/seline/internal/config"
	"github.com/selineapp/seline/internal/doctor"
	"github.com/selineapp/seline/internal/ipc"
	"github.com/selineapp/seline/internal/logging"
	"github.com/selineapp/seline/internal/version"
)

const binaryName = "seline"

// Runner executes one CLI invocation.
type Runner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// Execute runs args with the process stdin and returns the exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdin: os.Stdin, Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

// Execute returns 0 on success, 1 on runtime failure, and 2 on usage errors.
func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(binaryName))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText(binaryName))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	loaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logger := r.Logger
	if logger == nil {
		logRuntime, err := logging.New(loaded.Config.Log.Level)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
			return 1
		}
		defer func() { _ = logRuntime.Close() }()
		logger = logRuntime.Logger
	}

	for _, w := range loaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger = logger.With("session_id", uuid.NewString())
	logger.Info("command start",
		"command", parsed.Command,
		"config", loaded.Path,
		"version", version.String(),
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, loaded, doctor.Probes{})
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
		return r.forwardOrFail(ctx, ipc.CommandStop)
	case cli.CommandCancel:
		return r.forwardOrFail(ctx, ipc.CommandCancel)
	case cli.CommandAsk:
		return r.commandAsk(ctx, loaded.Config, logger, parsed.Query)
	case cli.CommandToggle:
		return r.commandToggle(ctx, loaded.Config, logger)
	case cli.CommandChat:
		return r.commandChat(ctx, loaded.Config, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) fail(err error) int {
	fmt.Fprintf(r.Stderr, "error: %v\n", err)
	return 1
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
