// Package indicator surfaces pipeline progress as desktop notifications and
// short audio cues.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/selineapp/seline/internal/audio"
	"github.com/selineapp/seline/internal/config"
	"github.com/selineapp/seline/internal/logging"
)

const (
	dispatchTimeout = 400 * time.Millisecond
	cueTimeout      = 2 * time.Second
	// stickyTimeoutMS keeps progress notifications up until replaced or hidden.
	stickyTimeoutMS = 300000
)

// CuePlayer plays one cue to the output device.
type CuePlayer interface {
	Play(ctx context.Context, pcm audio.PCM) error
}

// Desktop drives freedesktop notifications and tone cues. All methods are
// best-effort: failures are logged at debug and never returned.
type Desktop struct {
	cfg      config.IndicatorConfig
	player   CuePlayer
	logger   *slog.Logger
	messages messages

	mu             sync.Mutex
	notificationID uint32

	cueMu sync.Mutex
	cues  sync.WaitGroup
}

// NewDesktop builds an indicator from cfg. A nil player disables cues.
func NewDesktop(cfg config.IndicatorConfig, player CuePlayer, logger *slog.Logger) *Desktop {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Desktop{
		cfg:      cfg,
		player:   player,
		logger:   logger,
		messages: messagesFor(cfg),
	}
}

// ShowRecording plays the start cue and shows the listening notice.
func (d *Desktop) ShowRecording(ctx context.Context) {
	d.playCue(cueStart)
	d.notify(ctx, stickyTimeoutMS, d.messages.recording)
}

// ShowThinking shows the notice used while an answer streams.
func (d *Desktop) ShowThinking(ctx context.Context) {
	d.notify(ctx, stickyTimeoutMS, d.messages.thinking)
}

// ShowError shows text, or the default error notice when text is empty.
func (d *Desktop) ShowError(ctx context.Context, text string) {
	if strings.TrimSpace(text) == "" {
		text = d.messages.errorText
	}
	timeout := d.cfg.ErrorTimeoutMS
	if timeout <= 0 {
		timeout = 1200
	}
	d.notify(ctx, timeout, text)
}

func (d *Desktop) CueStop(context.Context)     { d.playCue(cueStop) }
func (d *Desktop) CueComplete(context.Context) { d.playCue(cueComplete) }
func (d *Desktop) CueCancel(context.Context)   { d.playCue(cueCancel) }

// Hide closes the current notification, if any.
func (d *Desktop) Hide(ctx context.Context) {
	if !d.cfg.Enable {
		return
	}

	d.mu.Lock()
	id := d.notificationID
	d.notificationID = 0
	d.mu.Unlock()
	if id == 0 {
		return
	}

	d.run(ctx, func(ctx context.Context) error { return desktopDismiss(ctx, id) })
}

// Wait blocks until queued cues have played.
func (d *Desktop) Wait() {
	d.cues.Wait()
}

// notify replaces the current notification so one surface tracks the session.
func (d *Desktop) notify(ctx context.Context, timeoutMS int, text string) {
	if !d.cfg.Enable {
		return
	}

	appName := strings.TrimSpace(d.cfg.DesktopAppName)
	if appName == "" {
		appName = "seline"
	}

	d.run(ctx, func(ctx context.Context) error {
		d.mu.Lock()
		replaceID := d.notificationID
		d.mu.Unlock()

		id, err := desktopNotify(ctx, appName, replaceID, text, timeoutMS)
		if err != nil {
			return err
		}

		d.mu.Lock()
		d.notificationID = id
		d.mu.Unlock()
		return nil
	})
}

func (d *Desktop) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
	defer cancel()
	if err := fn(runCtx); err != nil {
		d.logger.Debug("indicator dispatch failed", "error", err.Error())
	}
}

// playCue plays asynchronously; cues are serialized so they never overlap.
func (d *Desktop) playCue(kind cueKind) {
	if !d.cfg.SoundEnable || d.player == nil {
		return
	}
	pcm, ok := cuePCM(kind)
	if !ok {
		return
	}

	d.cues.Add(1)
	go func() {
		defer d.cues.Done()
		d.cueMu.Lock()
		defer d.cueMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), cueTimeout)
		defer cancel()
		if err := d.player.Play(ctx, pcm); err != nil {
			d.logger.Debug("indicator audio cue failed", "cue", kind.String(), "error", err.Error())
		}
	}()
}
