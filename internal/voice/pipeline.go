// Package voice runs the voice-query pipeline: transcript to prompt,
// streamed answer to live caption and spoken chunks, then a committed turn.
package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/selineapp/seline/internal/chat"
	"github.com/selineapp/seline/internal/conversation"
	"github.com/selineapp/seline/internal/fsm"
	"github.com/selineapp/seline/internal/logging"
	"github.com/selineapp/seline/internal/speech"
)

var (
	// ErrBusy is returned when a query is already in flight under OverlapReject.
	ErrBusy = errors.New("a query is already in progress")
	// ErrNotRecording is returned when a recording operation finds no capture.
	ErrNotRecording = errors.New("not recording")
	// ErrRecording is returned when a typed query arrives during a capture.
	ErrRecording = errors.New("a recording is in progress")

	errRecordingDiscarded = errors.New("recording was discarded")
)

// OverlapPolicy decides what a new query does while another is in flight.
type OverlapPolicy string

const (
	// OverlapReject refuses the new query with ErrBusy.
	OverlapReject OverlapPolicy = "reject"
	// OverlapReplace cancels the in-flight stream and proceeds.
	OverlapReplace OverlapPolicy = "replace"
)

const recordedTextPoll = 200 * time.Millisecond

// Snapshot is the observable pipeline state.
type Snapshot struct {
	State           fsm.State
	Busy            bool
	Recording       bool
	Speaking        bool
	CurrentResponse string
	RecordedText    string
	Error           string
	Entries         []conversation.Entry
	// Transcribing is set between the end of a recording and the start of
	// its answer.
	Transcribing bool
}

// Observer receives every observable change in mutation order. It runs
// synchronously and must not call back into mutating Pipeline methods.
type Observer func(Snapshot)

// Options configures a Pipeline. Only Backend is required.
type Options struct {
	Backend      chat.Backend
	Recorder     Recorder
	Speaker      Speaker
	Indicator    Indicator
	Sink         AnswerSink
	Observer     Observer
	Logger       *slog.Logger
	SystemPrompt string
	Temperature  float64
	Overlap      OverlapPolicy
	// MaxRecording > 0 stops a recording automatically after that long.
	MaxRecording time.Duration
}

// Pipeline is one voice session. All methods are safe for concurrent use.
type Pipeline struct {
	backend      chat.Backend
	recorder     Recorder
	speaker      Speaker
	indicator    Indicator
	sink         AnswerSink
	observer     Observer
	logger       *slog.Logger
	systemPrompt string
	temperature  float64
	overlap      OverlapPolicy
	maxRecording time.Duration

	transcript *conversation.Transcript

	// notifyMu serializes mutate+notify so observers see changes in order.
	notifyMu sync.Mutex

	mu           sync.Mutex
	state        fsm.State
	speaking     bool
	current      string
	recorded     string
	transcribing bool
	errMsg       string
	cancelQuery  context.CancelFunc
	queryDone    chan struct{}
	recording    uint64
	autoStop     *time.Timer
	stopPoll     chan struct{}
}

// New builds a pipeline from opts.
func New(opts Options) *Pipeline {
	p := &Pipeline{
		backend:      opts.Backend,
		recorder:     opts.Recorder,
		speaker:      opts.Speaker,
		indicator:    opts.Indicator,
		sink:         opts.Sink,
		observer:     opts.Observer,
		logger:       opts.Logger,
		systemPrompt: opts.SystemPrompt,
		temperature:  opts.Temperature,
		overlap:      opts.Overlap,
		maxRecording: opts.MaxRecording,
		transcript:   conversation.NewTranscript(),
		state:        fsm.StateIdle,
	}
	if p.recorder == nil {
		p.recorder = noRecorder{}
	}
	if p.speaker == nil {
		p.speaker = speech.Silent{}
	}
	if p.indicator == nil {
		p.indicator = noopIndicator{}
	}
	if p.logger == nil {
		p.logger = logging.Discard()
	}
	if p.overlap == "" {
		p.overlap = OverlapReject
	}
	return p
}

// Snapshot returns a copy of the current observable state.
func (p *Pipeline) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Transcript exposes the session conversation.
func (p *Pipeline) Transcript() *conversation.Transcript {
	return p.transcript
}

func (p *Pipeline) snapshotLocked() Snapshot {
	return Snapshot{
		State:           p.state,
		Busy:            fsm.Busy(p.state),
		Recording:       p.state == fsm.StateRecording,
		Speaking:        p.speaking,
		CurrentResponse: p.current,
		RecordedText:    p.recorded,
		Transcribing:    p.transcribing,
		Error:           p.errMsg,
		Entries:         p.transcript.Entries(),
	}
}

// update applies mutate under the state lock and notifies the observer when
// it reports a change. Notifications are delivered in mutation order.
func (p *Pipeline) update(mutate func() bool) {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.Lock()
	changed := mutate()
	snap := p.snapshotLocked()
	p.mu.Unlock()

	if changed && p.observer != nil {
		p.observer(snap)
	}
}

// transitionLocked applies event, resetting a failed session first.
func (p *Pipeline) transitionLocked(event fsm.Event) error {
	if p.state == fsm.StateError && event != fsm.EventFail {
		p.state = fsm.StateIdle
		p.errMsg = ""
	}
	next, err := fsm.Transition(p.state, event)
	if err != nil {
		return err
	}
	p.state = next
	return nil
}

// SubmitQuery sends query to the chat backend, captions and speaks the
// answer as it streams, and commits the assistant turn on success. It
// blocks until the stream ends. Blank queries are ignored.
func (p *Pipeline) SubmitQuery(ctx context.Context, query string) error {
	return p.submit(ctx, query, 0)
}

// submit runs query. A non-zero gen names the recording the query was
// transcribed from; the query is dropped if that recording was torn down.
func (p *Pipeline) submit(ctx context.Context, query string, gen uint64) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	qctx, done, err := p.claimQuery(ctx, query, gen)
	if errors.Is(err, errRecordingDiscarded) {
		return nil
	}
	if err != nil {
		return err
	}
	defer close(done)

	return p.runQuery(ctx, qctx, query)
}

// claimQuery applies the overlap policy, then appends the user entry and
// marks the pipeline busy in a single observable update. A query from a
// finished recording also clears the transcribing flag.
func (p *Pipeline) claimQuery(ctx context.Context, query string, gen uint64) (context.Context, chan struct{}, error) {
	fromRecording := gen != 0
	for {
		var (
			qctx     context.Context
			done     chan struct{}
			inFlight chan struct{}
			cancel   context.CancelFunc
			err      error
		)

		p.update(func() bool {
			cleared := fromRecording && p.transcribing
			if cleared {
				p.transcribing = false
			}
			switch {
			case fromRecording && p.recording != gen:
				err = errRecordingDiscarded
				return cleared
			case fsm.Busy(p.state):
				inFlight, cancel = p.queryDone, p.cancelQuery
				return cleared
			case p.state == fsm.StateRecording:
				err = ErrRecording
				return cleared
			}
			if err = p.transitionLocked(fsm.EventSubmit); err != nil {
				return cleared
			}
			p.transcript.Append(conversation.RoleUser, query)
			p.current = ""
			p.errMsg = ""
			qctx, p.cancelQuery = context.WithCancel(ctx)
			done = make(chan struct{})
			p.queryDone = done
			return true
		})

		if err != nil {
			return nil, nil, err
		}
		if qctx != nil {
			return qctx, done, nil
		}

		if p.overlap != OverlapReplace {
			return nil, nil, ErrBusy
		}
		p.logger.Info("replacing in-flight query")
		cancel()
		select {
		case <-inFlight:
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
}

func (p *Pipeline) runQuery(ctx context.Context, qctx context.Context, query string) error {
	p.indicator.ShowThinking(qctx)
	started := time.Now()
	speakCtx := context.WithoutCancel(qctx)

	var (
		accumulated strings.Builder
		deltas      int
		chunks      int
	)

	err := p.backend.StreamChat(qctx, chat.Request{
		SystemPrompt: p.systemPrompt,
		UserPrompt:   query,
		Temperature:  p.temperature,
	}, func(delta string) {
		if qctx.Err() != nil {
			return
		}
		accumulated.WriteString(delta)
		deltas++
		text := accumulated.String()
		p.update(func() bool {
			p.current = text
			return true
		})
		if ContainsSentenceBoundary(delta) {
			p.speak(speakCtx, delta)
			chunks++
		}
	})

	if err == nil && qctx.Err() != nil {
		err = qctx.Err()
	}
	answer := accumulated.String()

	switch {
	case err == nil:
		p.finishQuery(fsm.EventAnswered, func() {
			p.transcript.Append(conversation.RoleAssistant, answer)
		})
		if chunks == 0 && answer != "" {
			p.speak(speakCtx, answer)
		}
		p.deliver(speakCtx, answer)
		p.indicator.CueComplete(speakCtx)
		p.indicator.Hide(speakCtx)
		p.logger.Info("query answered",
			"query_length", len(query),
			"answer_length", len(answer),
			"delta_count", deltas,
			"spoken_chunks", chunks,
			"duration_ms", time.Since(started).Milliseconds(),
		)
		return nil

	case errors.Is(err, context.Canceled) && qctx.Err() != nil:
		p.finishQuery(fsm.EventInterrupt, nil)
		p.logger.Info("query interrupted",
			"delta_count", deltas,
			"duration_ms", time.Since(started).Milliseconds(),
		)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return nil

	default:
		message := chat.UserMessage(err)
		p.finishQuery(fsm.EventFail, func() {
			p.errMsg = message
		})
		p.indicator.ShowError(speakCtx, message)
		p.logger.Error("query failed",
			"error", err.Error(),
			"delta_count", deltas,
			"duration_ms", time.Since(started).Milliseconds(),
		)
		return fmt.Errorf("stream answer: %w", err)
	}
}

// finishQuery releases the busy state on every exit path.
func (p *Pipeline) finishQuery(event fsm.Event, mutate func()) {
	p.update(func() bool {
		if mutate != nil {
			mutate()
		}
		if err := p.transitionLocked(event); err != nil {
			p.state = fsm.StateIdle
		}
		p.current = ""
		if p.cancelQuery != nil {
			p.cancelQuery()
		}
		p.cancelQuery = nil
		p.queryDone = nil
		return true
	})
}

func (p *Pipeline) deliver(ctx context.Context, answer string) {
	if p.sink == nil || answer == "" {
		return
	}
	if err := p.sink.Deliver(ctx, answer); err != nil {
		p.logger.Warn("answer delivery failed", "error", err.Error())
	}
}

// speak hands text to the speech engine and tracks its speaking flag.
func (p *Pipeline) speak(ctx context.Context, text string) {
	u := p.speaker.Speak(ctx, text)
	p.syncSpeaking()
	go func() {
		<-u.Done()
		p.syncSpeaking()
	}()
}

func (p *Pipeline) syncSpeaking() {
	p.update(func() bool {
		speaking := p.speaker.Speaking()
		changed := speaking != p.speaking
		p.speaking = speaking
		return changed
	})
}

// StopSpeaking cancels the active utterance. It is a no-op when silent.
func (p *Pipeline) StopSpeaking() {
	p.speaker.Stop()
	p.update(func() bool {
		changed := p.speaking
		p.speaking = false
		return changed
	})
}

// WaitSpeech blocks until no utterance is active.
func (p *Pipeline) WaitSpeech(ctx context.Context) error {
	return p.speaker.Wait(ctx)
}

// StopAll cancels any recording, speech, and in-flight answer stream.
// It never fails.
func (p *Pipeline) StopAll() {
	var (
		wasRecording bool
		cancel       context.CancelFunc
	)
	p.update(func() bool {
		cancel = p.cancelQuery
		switch {
		case p.state == fsm.StateRecording:
			p.endRecordingLocked()
			p.state = fsm.StateIdle
		case p.transcribing:
			// Retire the generation so the pending transcript is dropped.
			p.recording++
			p.transcribing = false
		default:
			return false
		}
		wasRecording = true
		p.recorded = ""
		return true
	})

	if cancel != nil {
		cancel()
	}
	p.StopSpeaking()

	if wasRecording {
		if err := p.recorder.Cancel(context.Background()); err != nil {
			p.logger.Debug("cancel recording failed", "error", err.Error())
		}
		p.indicator.CueCancel(context.Background())
		p.indicator.Hide(context.Background())
	}
	p.logger.Debug("stopped all activity", "was_recording", wasRecording, "cancelled_query", cancel != nil)
}
