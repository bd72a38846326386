// Package session serves a voice pipeline to other seline processes and runs
// single headless exchanges.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/selineapp/seline/internal/conversation"
	"github.com/selineapp/seline/internal/ipc"
	"github.com/selineapp/seline/internal/logging"
	"github.com/selineapp/seline/internal/voice"
)

type action int

const (
	actionStop action = iota + 1
	actionCancel
)

const defaultPoll = 50 * time.Millisecond

// Pipeline is the voice pipeline surface the controller drives.
type Pipeline interface {
	Snapshot() voice.Snapshot
	StartRecording(ctx context.Context) error
	StopRecording(ctx context.Context, userInitiated bool) error
	SubmitQuery(ctx context.Context, query string) error
	StopSpeaking()
	StopAll()
	WaitSpeech(ctx context.Context) error
}

// Controller answers IPC commands on behalf of the session owner.
type Controller struct {
	pipeline Pipeline
	logger   *slog.Logger
	poll     time.Duration

	wg sync.WaitGroup

	mu      sync.Mutex
	oneShot bool
	actions chan action
}

// NewController wraps pipeline. A nil logger discards output.
func NewController(pipeline Pipeline, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Controller{
		pipeline: pipeline,
		logger:   logger,
		poll:     defaultPoll,
		actions:  make(chan action, 1),
	}
}

// Wait blocks until background work started by Handle has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Handle serves one IPC command.
func (c *Controller) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	c.logger.Debug("ipc command", "command", req.Command)

	switch req.Command {
	case ipc.CommandStatus:
		return c.status("")
	case ipc.CommandToggle:
		return c.toggle(ctx)
	case ipc.CommandAsk:
		return c.ask(ctx, req.Text)
	case ipc.CommandStop:
		if c.signal(actionStop) {
			return c.status("stop requested")
		}
		c.pipeline.StopSpeaking()
		return c.status("speech stopped")
	case ipc.CommandCancel:
		if c.signal(actionCancel) {
			return c.status("cancel requested")
		}
		c.pipeline.StopAll()
		return c.status("cancelled")
	default:
		resp := c.status("")
		resp.OK = false
		resp.Error = fmt.Sprintf("unknown command: %s", req.Command)
		return resp
	}
}

func (c *Controller) status(message string) ipc.Response {
	snap := c.pipeline.Snapshot()
	if message == "" {
		message = snap.Error
	}
	return ipc.Response{
		OK:       true,
		State:    string(snap.State),
		Busy:     snap.Busy,
		Speaking: snap.Speaking,
		Message:  message,
	}
}

func (c *Controller) failure(err error) ipc.Response {
	snap := c.pipeline.Snapshot()
	message := snap.Error
	if message == "" || errors.Is(err, voice.ErrBusy) || errors.Is(err, voice.ErrRecording) {
		message = err.Error()
	}
	return ipc.Response{
		OK:       false,
		State:    string(snap.State),
		Busy:     snap.Busy,
		Speaking: snap.Speaking,
		Error:    message,
	}
}

func (c *Controller) toggle(ctx context.Context) ipc.Response {
	if c.signal(actionStop) {
		return c.status("stop requested")
	}

	if c.pipeline.Snapshot().Recording {
		c.background(ctx, "stop recording", func(ctx context.Context) error {
			return c.pipeline.StopRecording(ctx, true)
		})
		return c.status("stop requested")
	}

	if err := c.pipeline.StartRecording(ctx); err != nil {
		return c.failure(err)
	}
	return c.status("recording started")
}

func (c *Controller) ask(ctx context.Context, text string) ipc.Response {
	if strings.TrimSpace(text) == "" {
		return c.failure(errors.New("ask requires a query"))
	}

	before := len(c.pipeline.Snapshot().Entries)
	if err := c.pipeline.SubmitQuery(ctx, text); err != nil {
		return c.failure(err)
	}

	_, answer, answered := exchangeAt(c.pipeline.Snapshot().Entries, before)
	if !answered {
		return c.status("interrupted")
	}
	resp := c.status("answered")
	resp.Answer = answer
	return resp
}

// background runs fn outside the request so the client is not held for the
// whole answer.
func (c *Controller) background(ctx context.Context, name string, fn func(context.Context) error) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		err := fn(ctx)
		if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, voice.ErrNotRecording) {
			return
		}
		c.logger.Warn(name+" failed", "error", err.Error())
	}()
}

// signal hands a to a running RunOnce. It reports false when none is active.
func (c *Controller) signal(a action) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.oneShot {
		return false
	}
	select {
	case c.actions <- a:
	default:
	}
	return true
}

// exchangeAt returns the query at entries[i] and its answer, if committed.
func exchangeAt(entries []conversation.Entry, i int) (query, answer string, answered bool) {
	if i >= len(entries) || entries[i].Role != conversation.RoleUser {
		return "", "", false
	}
	query = entries[i].Content
	if i+1 < len(entries) && entries[i+1].Role == conversation.RoleAssistant {
		return query, entries[i+1].Content, true
	}
	return query, "", false
}
