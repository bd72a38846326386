package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/selineapp/seline/internal/config"
	"github.com/selineapp/seline/internal/ipc"
)

const forwardTimeout = 220 * time.Millisecond

// errNoSession means no owner is listening on the session socket.
var errNoSession = errors.New("no active seline session")

// tryForward sends one request to a running owner. handled is false when no
// owner is listening.
func tryForward(ctx context.Context, socketPath string, req ipc.Request, timeout time.Duration) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, req, timeout)
	switch {
	case err == nil && resp.OK:
		return resp, true, nil
	case err == nil:
		return resp, true, errors.New(resp.Error)
	case ipc.IsNoListener(err):
		return ipc.Response{}, false, nil
	default:
		return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", req.Command, err)
	}
}

// askTimeout bounds a forwarded ask by the chat request timeout.
func askTimeout(cfg config.Config) time.Duration {
	timeout := millis(cfg.Chat.RequestTimeoutMS)
	if timeout <= 0 {
		timeout = time.Minute
	}
	return timeout + 5*time.Second
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: ipc.CommandStatus}, forwardTimeout)
	if !handled {
		fmt.Fprintln(r.Stdout, "idle")
		return 0
	}
	if err != nil {
		return r.fail(err)
	}

	state := resp.State
	if state == "" {
		state = "idle"
	}
	if resp.Speaking {
		state += " (speaking)"
	}
	fmt.Fprintln(r.Stdout, state)
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		return r.fail(err)
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: command}, forwardTimeout)
	if !handled {
		return r.fail(errNoSession)
	}
	if err != nil {
		return r.fail(err)
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}
