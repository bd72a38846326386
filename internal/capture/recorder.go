// Package capture records one spoken query and turns it into text.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/selineapp/seline/internal/audio"
	"github.com/selineapp/seline/internal/config"
	"github.com/selineapp/seline/internal/logging"
)

var (
	// ErrNotStarted is returned by Stop when no recording is active.
	ErrNotStarted = errors.New("recording not started")
	// ErrAlreadyStarted is returned by Start while a recording is active.
	ErrAlreadyStarted = errors.New("recording already started")
)

// StopResult describes one finished recording.
type StopResult struct {
	Transcript    string
	UserInitiated bool
	AudioDevice   string
	BytesCaptured int64
	ASRLatency    time.Duration
}

// Transcriber converts captured PCM to text.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm audio.PCM) (string, error)
}

// Stream is a running audio capture.
type Stream interface {
	Device() audio.Device
	PCM() audio.PCM
	BytesCaptured() int64
	Stop() error
}

// Opener starts a capture stream.
type Opener func(ctx context.Context) (Stream, error)

// PulseOpener selects an input per cfg and records from it.
func PulseOpener(cfg config.AudioConfig, logger *slog.Logger) Opener {
	return func(ctx context.Context) (Stream, error) {
		selection, err := audio.SelectDevice(ctx, cfg.Input, cfg.Fallback)
		if err != nil {
			return nil, err
		}
		if selection.Warning != "" {
			logger.Warn(selection.Warning)
		}
		capture, err := audio.StartCapture(ctx, selection.Device)
		if err != nil {
			return nil, err
		}
		return capture, nil
	}
}

// Recorder owns at most one recording at a time.
type Recorder struct {
	open        Opener
	transcriber Transcriber
	logger      *slog.Logger

	interim   time.Duration
	audioDump bool

	mu        sync.Mutex
	stream    Stream
	text      string
	stopLoop  context.CancelFunc
	loopDone  chan struct{}
	startedAt time.Time
}

// Options tunes a Recorder.
type Options struct {
	// InterimInterval > 0 re-transcribes the capture periodically for Text.
	InterimInterval time.Duration
	AudioDump       bool
	Logger          *slog.Logger
}

// NewRecorder wires a recorder around an opener and transcriber.
func NewRecorder(open Opener, transcriber Transcriber, opts Options) *Recorder {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Recorder{
		open:        open,
		transcriber: transcriber,
		logger:      logger,
		interim:     opts.InterimInterval,
		audioDump:   opts.AudioDump,
	}
}

// Start opens the capture stream.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stream != nil {
		return ErrAlreadyStarted
	}

	stream, err := r.open(ctx)
	if err != nil {
		return fmt.Errorf("start capture: %w", err)
	}
	r.stream = stream
	r.text = ""
	r.startedAt = time.Now()

	if r.interim > 0 {
		loopCtx, cancel := context.WithCancel(ctx)
		r.stopLoop = cancel
		r.loopDone = make(chan struct{})
		go r.refreshLoop(loopCtx, stream, r.loopDone)
	}

	r.logger.Info("recording started", "audio_device", stream.Device().Label())
	return nil
}

// Text is the most recent transcript of the active or last recording.
func (r *Recorder) Text() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.text
}

// Active reports whether a recording is in progress.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stream != nil
}

// Stop ends the recording and transcribes everything captured.
func (r *Recorder) Stop(ctx context.Context, userInitiated bool) (StopResult, error) {
	stream, duration, err := r.detach()
	if err != nil {
		return StopResult{}, err
	}

	_ = stream.Stop()
	pcm := stream.PCM()
	r.dumpAudio(pcm)

	result := StopResult{
		UserInitiated: userInitiated,
		AudioDevice:   stream.Device().Label(),
		BytesCaptured: stream.BytesCaptured(),
	}

	if len(pcm.Data) > 0 {
		started := time.Now()
		text, err := r.transcriber.Transcribe(ctx, pcm)
		result.ASRLatency = time.Since(started)
		if err != nil {
			return result, fmt.Errorf("transcribe capture: %w", err)
		}
		result.Transcript = normalizeTranscript(text)
	}

	r.mu.Lock()
	r.text = result.Transcript
	r.mu.Unlock()

	r.logger.Info("recording stopped",
		"user_initiated", userInitiated,
		"audio_device", result.AudioDevice,
		"bytes_captured", result.BytesCaptured,
		"duration_ms", duration.Milliseconds(),
		"asr_latency_ms", result.ASRLatency.Milliseconds(),
		"transcript_length", len(result.Transcript),
	)
	return result, nil
}

// Cancel discards the recording without transcription. It is idempotent.
func (r *Recorder) Cancel(_ context.Context) error {
	stream, _, err := r.detach()
	if errors.Is(err, ErrNotStarted) {
		return nil
	}
	_ = stream.Stop()
	r.dumpAudio(stream.PCM())

	r.mu.Lock()
	r.text = ""
	r.mu.Unlock()

	r.logger.Info("recording cancelled", "bytes_captured", stream.BytesCaptured())
	return nil
}

// detach takes ownership of the active stream and stops the refresh loop.
func (r *Recorder) detach() (Stream, time.Duration, error) {
	r.mu.Lock()
	stream := r.stream
	stopLoop, loopDone := r.stopLoop, r.loopDone
	started := r.startedAt
	r.stream, r.stopLoop, r.loopDone = nil, nil, nil
	r.mu.Unlock()

	if stream == nil {
		return nil, 0, ErrNotStarted
	}
	if stopLoop != nil {
		stopLoop()
		<-loopDone
	}
	return stream, time.Since(started), nil
}

func (r *Recorder) refreshLoop(ctx context.Context, stream Stream, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interim)
	defer ticker.Stop()

	var transcribed int
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		pcm := stream.PCM()
		if len(pcm.Data) == transcribed {
			continue
		}
		text, err := r.transcriber.Transcribe(ctx, pcm)
		if err != nil {
			if ctx.Err() == nil {
				r.logger.Debug("interim transcription failed", "error", err.Error())
			}
			continue
		}
		transcribed = len(pcm.Data)

		r.mu.Lock()
		if r.stream == stream {
			r.text = normalizeTranscript(text)
		}
		r.mu.Unlock()
	}
}

func normalizeTranscript(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func (r *Recorder) dumpAudio(pcm audio.PCM) {
	if !r.audioDump || len(pcm.Data) == 0 {
		return
	}
	path, err := writeDebugWAV(pcm, time.Now())
	if err != nil {
		r.logger.Warn("unable to write debug audio dump", "error", err.Error())
		return
	}
	r.logger.Debug("wrote debug audio dump", "path", path)
}

// writeDebugWAV stores pcm under the state debug directory.
func writeDebugWAV(pcm audio.PCM, at time.Time) (string, error) {
	stateDir, err := logging.StateDir()
	if err != nil {
		return "", fmt.Errorf("resolve state dir: %w", err)
	}
	dir := filepath.Join(stateDir, "debug")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create debug dir: %w", err)
	}

	path := filepath.Join(dir, "audio-"+at.Format("20060102-150405.000")+".wav")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("open debug file %q: %w", path, err)
	}
	defer file.Close()

	if err := audio.WriteWAV(file, pcm); err != nil {
		return "", fmt.Errorf("write debug file %q: %w", path, err)
	}
	return path, nil
}
