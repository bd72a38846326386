package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/selineapp/seline/internal/config"
	"github.com/selineapp/seline/internal/conversation"
	"github.com/selineapp/seline/internal/ipc"
	"github.com/selineapp/seline/internal/session"
	"github.com/selineapp/seline/internal/tui"
)

const (
	acquireProbeTimeout = 180 * time.Millisecond
	acquireRetries      = 8
)

// owner holds the session socket and serves a controller on it.
type owner struct {
	socketPath string
	listener   net.Listener
	cancel     context.CancelFunc
	done       chan error
}

func acquireOwner(ctx context.Context, socketPath string) (*owner, error) {
	listener, err := ipc.Acquire(ctx, socketPath, acquireProbeTimeout, acquireRetries)
	if err != nil {
		return nil, err
	}
	return &owner{socketPath: socketPath, listener: listener}, nil
}

func (o *owner) serve(ctx context.Context, handler ipc.Handler) {
	ctx, o.cancel = context.WithCancel(ctx)
	o.done = make(chan error, 1)
	go func() { o.done <- ipc.Serve(ctx, o.listener, handler) }()
}

// close stops serving and removes the socket.
func (o *owner) close() error {
	var err error
	if o.cancel != nil {
		o.cancel()
		err = <-o.done
	}
	_ = o.listener.Close()
	_ = os.Remove(o.socketPath)
	return err
}

func (r Runner) commandAsk(ctx context.Context, cfg config.Config, logger *slog.Logger, query string) int {
	if socketPath, err := ipc.RuntimeSocketPath(); err == nil {
		resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: ipc.CommandAsk, Text: query}, askTimeout(cfg))
		if handled {
			if err != nil {
				return r.fail(err)
			}
			r.printAnswer(resp.Answer, resp.Message)
			return 0
		}
	}

	rt := buildRuntime(cfg, logger, nil)
	defer rt.Close()

	before := len(rt.pipeline.Snapshot().Entries)
	if err := rt.pipeline.SubmitQuery(ctx, query); err != nil {
		if msg := rt.pipeline.Snapshot().Error; msg != "" {
			logger.Error("ask failed", "error", err.Error())
			return r.fail(errors.New(msg))
		}
		return r.fail(err)
	}

	entries := rt.pipeline.Snapshot().Entries
	answer := ""
	if n := len(entries); n > before+1 && entries[n-1].Role == conversation.RoleAssistant {
		answer = entries[n-1].Content
	}
	r.printAnswer(answer, "interrupted")

	if err := rt.pipeline.WaitSpeech(ctx); err != nil {
		logger.Debug("speech wait ended early", "error", err.Error())
	}
	return 0
}

func (r Runner) printAnswer(answer, fallback string) {
	if answer != "" {
		fmt.Fprintln(r.Stdout, answer)
		return
	}
	if fallback != "" {
		fmt.Fprintln(r.Stdout, fallback)
	}
}

func (r Runner) commandToggle(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		return r.fail(err)
	}

	if code, forwarded := r.forwardToggle(ctx, socketPath); forwarded {
		return code
	}

	own, err := acquireOwner(ctx, socketPath)
	if errors.Is(err, ipc.ErrAlreadyRunning) {
		// Another owner won the race; hand it the toggle.
		code, _ := r.forwardToggle(ctx, socketPath)
		return code
	}
	if err != nil {
		return r.fail(err)
	}

	rt := buildRuntime(cfg, logger, nil)
	controller := session.NewController(rt.pipeline, logger)
	own.serve(ctx, controller)

	result := controller.RunOnce(ctx)
	serveErr := own.close()
	controller.Wait()
	rt.Close()

	logSessionResult(logger, result)
	if serveErr != nil {
		return r.fail(fmt.Errorf("ipc server failed: %w", serveErr))
	}

	switch {
	case result.Cancelled || errors.Is(result.Err, context.Canceled):
		fmt.Fprintln(r.Stdout, "cancelled")
		return 0
	case result.Err != nil:
		return r.fail(result.Err)
	}
	r.printAnswer(result.Answer, "")
	return 0
}

func (r Runner) forwardToggle(ctx context.Context, socketPath string) (int, bool) {
	resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: ipc.CommandToggle}, forwardTimeout)
	if !handled {
		return 0, false
	}
	if err != nil {
		return r.fail(err), true
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0, true
}

func (r Runner) commandChat(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		return r.fail(err)
	}
	own, err := acquireOwner(ctx, socketPath)
	if err != nil {
		return r.fail(err)
	}

	var program *tea.Program
	rt := buildRuntime(cfg, logger, tui.Forward(func(msg tea.Msg) { program.Send(msg) }))
	controller := session.NewController(rt.pipeline, logger)

	model := tui.New(ctx, rt.pipeline, rt.pipeline.Snapshot())
	program = tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithInput(r.Stdin),
		tea.WithOutput(r.Stdout),
		tea.WithAltScreen(),
	)
	own.serve(ctx, controller)

	_, runErr := program.Run()
	rt.pipeline.StopAll()
	serveErr := own.close()
	controller.Wait()
	rt.Close()

	logger.Info("chat session closed", "turns", len(rt.pipeline.Snapshot().Entries))
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) && ctx.Err() == nil {
		return r.fail(fmt.Errorf("terminal ui: %w", runErr))
	}
	if serveErr != nil {
		return r.fail(fmt.Errorf("ipc server failed: %w", serveErr))
	}
	return 0
}

func logSessionResult(logger *slog.Logger, result session.Result) {
	fields := []any{
		"cancelled", result.Cancelled,
		"started_at", result.StartedAt.Format(time.RFC3339Nano),
		"finished_at", result.FinishedAt.Format(time.RFC3339Nano),
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
		"query_length", len(result.Query),
		"answer_length", len(result.Answer),
	}
	if !result.StoppedAt.IsZero() && !result.AnsweredAt.IsZero() {
		fields = append(fields, "answer_ms", result.AnsweredAt.Sub(result.StoppedAt).Milliseconds())
	}

	if result.Err != nil {
		logger.Error("session failed", append(fields, "error", result.Err.Error())...)
		return
	}
	logger.Info("session complete", fields...)
}
