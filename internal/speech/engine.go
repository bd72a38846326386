// Package speech synthesizes and plays spoken answers, one utterance at a time.
package speech

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/selineapp/seline/internal/audio"
	"github.com/selineapp/seline/internal/logging"
)

// Synthesizer renders text to PCM.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (audio.PCM, error)
}

// Player plays PCM on an output device.
type Player interface {
	Prepare(ctx context.Context) error
	Play(ctx context.Context, pcm audio.PCM) error
}

// Utterance is one Speak request. Done is closed exactly once when it
// finishes, is cancelled, or fails.
type Utterance struct {
	Text string

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	err    error
}

func newUtterance(text string, cancel context.CancelFunc) *Utterance {
	return &Utterance{Text: text, cancel: cancel, done: make(chan struct{})}
}

// Done is closed when the utterance is over.
func (u *Utterance) Done() <-chan struct{} {
	return u.done
}

// Err reports why the utterance ended. Only meaningful after Done is closed.
func (u *Utterance) Err() error {
	select {
	case <-u.done:
		return u.err
	default:
		return nil
	}
}

// Cancel stops the utterance if it is still active.
func (u *Utterance) Cancel() {
	if u.cancel != nil {
		u.cancel()
	}
}

func (u *Utterance) complete(err error) {
	u.once.Do(func() {
		u.err = err
		if u.cancel != nil {
			u.cancel()
		}
		close(u.done)
	})
}

// Engine speaks through a Synthesizer and Player. Speak interrupts the
// current utterance; there is no queue.
type Engine struct {
	synth  Synthesizer
	player Player
	logger *slog.Logger

	mu      sync.Mutex
	current *Utterance
}

// NewEngine wires an engine. logger may be nil.
func NewEngine(synth Synthesizer, player Player, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Engine{synth: synth, player: player, logger: logger}
}

// Speak starts speaking text and returns its utterance handle.
func (e *Engine) Speak(ctx context.Context, text string) *Utterance {
	uctx, cancel := context.WithCancel(ctx)
	u := newUtterance(text, cancel)

	e.mu.Lock()
	prev := e.current
	e.current = u
	e.mu.Unlock()

	if prev != nil {
		prev.Cancel()
	}
	go e.run(uctx, u, prev)
	return u
}

func (e *Engine) run(ctx context.Context, u *Utterance, prev *Utterance) {
	started := time.Now()
	err := e.speak(ctx, u.Text, prev)

	e.mu.Lock()
	if e.current == u {
		e.current = nil
	}
	e.mu.Unlock()
	u.complete(err)

	switch {
	case err == nil:
		e.logger.Debug("utterance finished",
			"text_length", len(u.Text),
			"duration_ms", time.Since(started).Milliseconds(),
		)
	case errors.Is(err, context.Canceled):
		e.logger.Debug("utterance interrupted", "text_length", len(u.Text))
	default:
		e.logger.Warn("utterance failed", "error", err.Error())
	}
}

func (e *Engine) speak(ctx context.Context, text string, prev *Utterance) error {
	if err := e.player.Prepare(ctx); err != nil {
		e.logger.Debug("prepare audio output failed", "error", err.Error())
	}

	pcm, err := e.synth.Synthesize(ctx, text)
	if err != nil {
		return err
	}

	if prev != nil {
		select {
		case <-prev.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.player.Play(ctx, pcm)
}

// Stop cancels the current utterance. Safe to call at any time.
func (e *Engine) Stop() {
	e.mu.Lock()
	current := e.current
	e.mu.Unlock()
	if current != nil {
		current.Cancel()
	}
}

// Speaking reports whether an utterance is active.
func (e *Engine) Speaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != nil
}

// Wait blocks until no utterance is active or ctx ends.
func (e *Engine) Wait(ctx context.Context) error {
	for {
		e.mu.Lock()
		current := e.current
		e.mu.Unlock()
		if current == nil {
			return nil
		}
		select {
		case <-current.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
