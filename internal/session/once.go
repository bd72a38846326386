package session

import (
	"context"
	"errors"
	"time"

	"github.com/selineapp/seline/internal/voice"
)

var (
	// ErrEmptyTranscript means the recording ended without recognizable speech.
	ErrEmptyTranscript = errors.New("no speech recognized; check microphone input or mute state")
	// ErrOneShotActive means a headless exchange is already running.
	ErrOneShotActive = errors.New("a headless exchange is already running")
)

// Result describes one headless exchange.
type Result struct {
	Query     string
	Answer    string
	Cancelled bool
	Err       error

	StartedAt  time.Time
	StoppedAt  time.Time
	AnsweredAt time.Time
	FinishedAt time.Time
}

// RunOnce records one query, waits for a stop (IPC toggle or stop, or the
// recording limit), then waits for the answer and its speech to finish.
func (c *Controller) RunOnce(ctx context.Context) Result {
	result := Result{StartedAt: time.Now()}
	if !c.beginOneShot() {
		result.Err = ErrOneShotActive
		return finish(result)
	}
	defer c.endOneShot()

	before := len(c.pipeline.Snapshot().Entries)
	if err := c.pipeline.StartRecording(ctx); err != nil {
		result.Err = err
		return finish(result)
	}

	if !c.awaitAnswer(ctx, &result) {
		return finish(result)
	}
	result.AnsweredAt = time.Now()

	query, answer, answered := exchangeAt(c.pipeline.Snapshot().Entries, before)
	result.Query, result.Answer = query, answer
	switch {
	case result.Err != nil:
		return finish(result)
	case query == "":
		result.Err = ErrEmptyTranscript
		return finish(result)
	case !answered:
		result.Cancelled = true
		return finish(result)
	}

	c.awaitSpeech(ctx, &result)
	return finish(result)
}

func finish(result Result) Result {
	result.FinishedAt = time.Now()
	return result
}

// awaitAnswer returns false when the exchange was cancelled.
func (c *Controller) awaitAnswer(ctx context.Context, result *Result) bool {
	stopCtx, cancelStop := context.WithCancel(ctx)
	defer cancelStop()

	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	stopped := make(chan error, 1)
	stopping := false

	abort := func(err error) bool {
		c.pipeline.StopAll()
		cancelStop()
		if stopping {
			<-stopped
		}
		result.Cancelled = true
		result.Err = err
		return false
	}

	for {
		select {
		case <-ctx.Done():
			return abort(ctx.Err())
		case a := <-c.actions:
			switch {
			case a == actionCancel:
				return abort(nil)
			case !stopping:
				stopping = true
				result.StoppedAt = time.Now()
				go func() { stopped <- c.pipeline.StopRecording(stopCtx, true) }()
			default:
				c.pipeline.StopSpeaking()
			}
		case err := <-stopped:
			if err != nil && !errors.Is(err, voice.ErrNotRecording) {
				result.Err = err
			}
			return true
		case <-ticker.C:
			if stopping {
				continue
			}
			snap := c.pipeline.Snapshot()
			if !snap.Recording && !snap.Transcribing && !snap.Busy {
				result.StoppedAt = time.Now()
				return true
			}
		}
	}
}

func (c *Controller) awaitSpeech(ctx context.Context, result *Result) {
	done := make(chan error, 1)
	go func() { done <- c.pipeline.WaitSpeech(ctx) }()

	for {
		select {
		case err := <-done:
			if err != nil {
				c.pipeline.StopAll()
				result.Cancelled = true
				result.Err = err
			}
			return
		case a := <-c.actions:
			if a == actionCancel {
				c.pipeline.StopAll()
			} else {
				c.pipeline.StopSpeaking()
			}
		}
	}
}

func (c *Controller) beginOneShot() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.oneShot {
		return false
	}
	c.oneShot = true
	for {
		select {
		case <-c.actions:
		default:
			return true
		}
	}
}

func (c *Controller) endOneShot() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.oneShot = false
}
