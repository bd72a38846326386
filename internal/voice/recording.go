package voice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/selineapp/seline/internal/capture"
	"github.com/selineapp/seline/internal/fsm"
)

// ToggleRecording stops an active recording and submits its transcript,
// or stops speech and starts a new recording. While a query is in flight
// the overlap policy decides whether a new recording may start.
func (p *Pipeline) ToggleRecording(ctx context.Context) error {
	p.mu.Lock()
	recording := p.state == fsm.StateRecording
	p.mu.Unlock()

	if recording {
		return p.StopRecording(ctx, true)
	}
	return p.StartRecording(ctx)
}

// StartRecording silences any speech and begins a capture. A start rejected
// by the overlap policy leaves speech playing.
func (p *Pipeline) StartRecording(ctx context.Context) error {
	for {
		var (
			inFlight chan struct{}
			cancel   context.CancelFunc
			gen      uint64
			err      error
			claimed  bool
		)

		p.update(func() bool {
			if fsm.Busy(p.state) {
				inFlight, cancel = p.queryDone, p.cancelQuery
				return false
			}
			if err = p.transitionLocked(fsm.EventStart); err != nil {
				return false
			}
			p.recording++
			gen = p.recording
			p.recorded = ""
			p.speaking = false
			claimed = true
			return true
		})

		if err != nil {
			return fmt.Errorf("start recording: %w", err)
		}
		if claimed {
			p.speaker.Stop()
			return p.openRecording(ctx, gen)
		}

		if p.overlap != OverlapReplace {
			return ErrBusy
		}
		cancel()
		select {
		case <-inFlight:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *Pipeline) openRecording(ctx context.Context, gen uint64) error {
	// The capture outlives the request that started it.
	recCtx := context.WithoutCancel(ctx)

	if err := p.recorder.Start(recCtx); err != nil {
		p.update(func() bool {
			if p.recording != gen || p.state != fsm.StateRecording {
				return false
			}
			p.state = fsm.StateError
			p.errMsg = "Could not start recording."
			return true
		})
		p.indicator.ShowError(recCtx, "Could not start recording.")
		p.logger.Error("start recording failed", "error", err.Error())
		return fmt.Errorf("start recording: %w", err)
	}

	var superseded bool
	p.update(func() bool {
		if p.recording != gen || p.state != fsm.StateRecording {
			superseded = true
			return false
		}
		if p.maxRecording > 0 {
			p.autoStop = time.AfterFunc(p.maxRecording, func() { p.limitReached(recCtx, gen) })
		}
		p.stopPoll = make(chan struct{})
		go p.pollRecordedText(gen, p.stopPoll)
		return false
	})
	if superseded {
		_ = p.recorder.Cancel(recCtx)
		return nil
	}

	p.indicator.ShowRecording(recCtx)
	return nil
}

// StopRecording finishes the capture and submits the transcript. Empty
// transcripts are dropped silently.
func (p *Pipeline) StopRecording(ctx context.Context, userInitiated bool) error {
	var (
		err error
		gen uint64
	)
	p.update(func() bool {
		if p.state != fsm.StateRecording {
			err = ErrNotRecording
			return false
		}
		gen = p.recording
		p.endRecordingLocked()
		if err = p.transitionLocked(fsm.EventStop); err != nil {
			return false
		}
		p.transcribing = true
		return true
	})
	if err != nil {
		return err
	}

	p.indicator.CueStop(ctx)
	result, err := p.recorder.Stop(ctx, userInitiated)
	if err != nil {
		if errors.Is(err, capture.ErrNotStarted) {
			p.update(func() bool {
				p.transcribing = false
				return true
			})
			p.indicator.Hide(ctx)
			return ErrNotRecording
		}
		var discarded bool
		p.update(func() bool {
			if p.recording != gen {
				discarded = true
				return false
			}
			p.transcribing = false
			if p.state != fsm.StateIdle {
				return true
			}
			p.state = fsm.StateError
			p.errMsg = "Could not transcribe the recording."
			return true
		})
		if discarded {
			p.logger.Debug("discarded recording failed to stop", "error", err.Error())
			return nil
		}
		p.indicator.ShowError(ctx, "Could not transcribe the recording.")
		p.logger.Error("stop recording failed", "error", err.Error())
		return fmt.Errorf("stop recording: %w", err)
	}

	var discarded bool
	p.update(func() bool {
		if p.recording != gen {
			discarded = true
			return false
		}
		changed := p.recorded != result.Transcript || result.Transcript == ""
		p.recorded = result.Transcript
		if result.Transcript == "" {
			p.transcribing = false
		}
		return changed
	})
	p.logger.Info("recording finished",
		"user_initiated", result.UserInitiated,
		"audio_device", result.AudioDevice,
		"bytes_captured", result.BytesCaptured,
		"asr_latency_ms", result.ASRLatency.Milliseconds(),
		"discarded", discarded,
	)

	if discarded {
		return nil
	}
	if result.Transcript == "" {
		p.indicator.Hide(ctx)
		return nil
	}
	return p.submit(ctx, result.Transcript, gen)
}

func (p *Pipeline) limitReached(ctx context.Context, gen uint64) {
	p.mu.Lock()
	current := p.recording == gen && p.state == fsm.StateRecording
	p.mu.Unlock()
	if !current {
		return
	}

	p.logger.Info("recording limit reached", "max_recording_ms", p.maxRecording.Milliseconds())
	if err := p.StopRecording(ctx, false); err != nil && !errors.Is(err, ErrNotRecording) && !errors.Is(err, ErrBusy) {
		p.logger.Warn("auto-stop failed", "error", err.Error())
	}
}

// pollRecordedText mirrors the recorder's live text into the snapshot.
func (p *Pipeline) pollRecordedText(gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(recordedTextPoll)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		text := p.recorder.Text()
		p.update(func() bool {
			if p.recording != gen || p.state != fsm.StateRecording || p.recorded == text {
				return false
			}
			p.recorded = text
			return true
		})
	}
}

// endRecordingLocked stops the auto-stop timer and the text poller.
func (p *Pipeline) endRecordingLocked() {
	if p.autoStop != nil {
		p.autoStop.Stop()
		p.autoStop = nil
	}
	if p.stopPoll != nil {
		close(p.stopPoll)
		p.stopPoll = nil
	}
}
