package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/selineapp/seline/internal/capture"
	"github.com/selineapp/seline/internal/chat"
	"github.com/selineapp/seline/internal/fsm"
	"github.com/selineapp/seline/internal/ipc"
	"github.com/selineapp/seline/internal/voice"
)

type stubRecorder struct {
	mu         sync.Mutex
	transcript string
	startErr   error
	stops      []bool
	cancels    int
}

func (r *stubRecorder) Start(context.Context) error {
	return r.startErr
}

func (r *stubRecorder) Stop(_ context.Context, userInitiated bool) (capture.StopResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops = append(r.stops, userInitiated)
	return capture.StopResult{Transcript: r.transcript, UserInitiated: userInitiated}, nil
}

func (r *stubRecorder) Cancel(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancels++
	return nil
}

func (*stubRecorder) Text() string { return "" }

func (r *stubRecorder) stopCalls() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.stops...)
}

func answering(deltas ...string) chat.Backend {
	return chat.BackendFunc(func(_ context.Context, _ chat.Request, onDelta func(string)) error {
		for _, delta := range deltas {
			onDelta(delta)
		}
		return nil
	})
}

// holding blocks every stream until release is closed or the stream is cancelled.
func holding(entered chan<- struct{}, release <-chan struct{}) chat.Backend {
	return chat.BackendFunc(func(ctx context.Context, _ chat.Request, onDelta func(string)) error {
		entered <- struct{}{}
		select {
		case <-release:
			onDelta("Done.")
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

func newTestController(t *testing.T, backend chat.Backend, recorder voice.Recorder, maxRecording time.Duration) (*Controller, *voice.Pipeline) {
	t.Helper()
	pipeline := voice.New(voice.Options{
		Backend:      backend,
		Recorder:     recorder,
		MaxRecording: maxRecording,
	})
	ctrl := NewController(pipeline, nil)
	ctrl.poll = 5 * time.Millisecond
	t.Cleanup(ctrl.Wait)
	return ctrl, pipeline
}

func TestHandleStatusAndUnknownCommand(t *testing.T) {
	ctrl, _ := newTestController(t, answering(), nil, 0)

	status := ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandStatus})
	require.True(t, status.OK)
	require.Equal(t, string(fsm.StateIdle), status.State)
	require.False(t, status.Busy)

	unknown := ctrl.Handle(context.Background(), ipc.Request{Command: "definitely-unknown"})
	require.False(t, unknown.OK)
	require.Contains(t, unknown.Error, "unknown command")
}

func TestHandleAskReturnsAnswer(t *testing.T) {
	ctrl, pipeline := newTestController(t, answering("Blue light ", "scatters more."), nil, 0)

	resp := ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandAsk, Text: "why is the sky blue"})
	require.True(t, resp.OK, resp.Error)
	require.Equal(t, "Blue light scatters more.", resp.Answer)
	require.Equal(t, "answered", resp.Message)
	require.Len(t, pipeline.Snapshot().Entries, 2)
}

func TestHandleAskRequiresText(t *testing.T) {
	ctrl, _ := newTestController(t, answering(), nil, 0)

	resp := ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandAsk, Text: "  "})
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "requires a query")
}

func TestHandleAskSurfacesUserMessage(t *testing.T) {
	backend := chat.BackendFunc(func(context.Context, chat.Request, func(string)) error {
		return errors.New("boom")
	})
	ctrl, _ := newTestController(t, backend, nil, 0)

	resp := ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandAsk, Text: "hello"})
	require.False(t, resp.OK)
	require.Equal(t, chat.UserMessage(errors.New("boom")), resp.Error)
	require.Equal(t, string(fsm.StateError), resp.State)
}

func TestHandleAskWhileBusyIsRejected(t *testing.T) {
	entered := make(chan struct{}, 2)
	release := make(chan struct{})
	ctrl, _ := newTestController(t, holding(entered, release), nil, 0)

	first := make(chan ipc.Response, 1)
	go func() {
		first <- ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandAsk, Text: "first"})
	}()
	<-entered

	second := ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandAsk, Text: "second"})
	require.False(t, second.OK)
	require.Contains(t, second.Error, voice.ErrBusy.Error())
	require.True(t, second.Busy)

	close(release)
	resp := <-first
	require.True(t, resp.OK)
	require.Equal(t, "Done.", resp.Answer)
}

func TestHandleCancelInterruptsAsk(t *testing.T) {
	entered := make(chan struct{}, 1)
	ctrl, pipeline := newTestController(t, holding(entered, make(chan struct{})), nil, 0)

	first := make(chan ipc.Response, 1)
	go func() {
		first <- ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandAsk, Text: "long question"})
	}()
	<-entered

	cancelled := ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandCancel})
	require.True(t, cancelled.OK)
	require.Equal(t, "cancelled", cancelled.Message)

	resp := <-first
	require.True(t, resp.OK)
	require.Equal(t, "interrupted", resp.Message)
	require.Empty(t, resp.Answer)
	require.Len(t, pipeline.Snapshot().Entries, 1)
}

func TestHandleToggleRecordsAndAnswers(t *testing.T) {
	recorder := &stubRecorder{transcript: "what time is it"}
	ctrl, pipeline := newTestController(t, answering("It is noon."), recorder, 0)

	start := ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandToggle})
	require.True(t, start.OK, start.Error)
	require.Equal(t, "recording started", start.Message)
	require.Equal(t, string(fsm.StateRecording), start.State)

	stop := ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandToggle})
	require.True(t, stop.OK)
	require.Equal(t, "stop requested", stop.Message)

	ctrl.Wait()
	entries := pipeline.Snapshot().Entries
	require.Len(t, entries, 2)
	require.Equal(t, "what time is it", entries[0].Content)
	require.Equal(t, "It is noon.", entries[1].Content)
	require.Equal(t, []bool{true}, recorder.stopCalls())
}

func TestHandleToggleWithoutRecorderFails(t *testing.T) {
	ctrl, _ := newTestController(t, answering(), nil, 0)

	resp := ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandToggle})
	require.False(t, resp.OK)
	require.NotEmpty(t, resp.Error)
}

func TestHandleStopSpeaking(t *testing.T) {
	ctrl, _ := newTestController(t, answering(), nil, 0)

	resp := ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandStop})
	require.True(t, resp.OK)
	require.Equal(t, "speech stopped", resp.Message)
	require.False(t, resp.Speaking)
}

func runOnceAsync(ctrl *Controller, ctx context.Context) <-chan Result {
	out := make(chan Result, 1)
	go func() { out <- ctrl.RunOnce(ctx) }()
	return out
}

func waitRecording(t *testing.T, pipeline *voice.Pipeline) {
	t.Helper()
	require.Eventually(t, func() bool { return pipeline.Snapshot().Recording }, time.Second, time.Millisecond)
}

func TestRunOnceToggleCompletesExchange(t *testing.T) {
	recorder := &stubRecorder{transcript: "tell me a joke"}
	ctrl, pipeline := newTestController(t, answering("Why did ", "the chicken cross?"), recorder, 0)

	done := runOnceAsync(ctrl, context.Background())
	waitRecording(t, pipeline)

	resp := ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandToggle})
	require.Equal(t, "stop requested", resp.Message)

	result := <-done
	require.NoError(t, result.Err)
	require.False(t, result.Cancelled)
	require.Equal(t, "tell me a joke", result.Query)
	require.Equal(t, "Why did the chicken cross?", result.Answer)
	require.False(t, result.StoppedAt.Before(result.StartedAt))
	require.False(t, result.FinishedAt.Before(result.AnsweredAt))
}

func TestRunOnceStopCommandEndsRecording(t *testing.T) {
	recorder := &stubRecorder{transcript: "hello"}
	ctrl, pipeline := newTestController(t, answering("Hi."), recorder, 0)

	done := runOnceAsync(ctrl, context.Background())
	waitRecording(t, pipeline)
	ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandStop})

	result := <-done
	require.NoError(t, result.Err)
	require.Equal(t, "Hi.", result.Answer)
}

func TestRunOnceCancelCommand(t *testing.T) {
	recorder := &stubRecorder{transcript: "never sent"}
	ctrl, pipeline := newTestController(t, answering("unused"), recorder, 0)

	done := runOnceAsync(ctrl, context.Background())
	waitRecording(t, pipeline)
	resp := ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandCancel})
	require.Equal(t, "cancel requested", resp.Message)

	result := <-done
	require.True(t, result.Cancelled)
	require.NoError(t, result.Err)
	require.Empty(t, result.Query)
	require.Empty(t, pipeline.Snapshot().Entries)
	require.Empty(t, recorder.stopCalls())
}

func TestRunOnceContextCancel(t *testing.T) {
	ctrl, pipeline := newTestController(t, answering(), &stubRecorder{}, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := runOnceAsync(ctrl, ctx)
	waitRecording(t, pipeline)
	cancel()

	result := <-done
	require.True(t, result.Cancelled)
	require.ErrorIs(t, result.Err, context.Canceled)
	require.False(t, pipeline.Snapshot().Recording)
}

func TestRunOnceEmptyTranscript(t *testing.T) {
	ctrl, pipeline := newTestController(t, answering("unused"), &stubRecorder{}, 0)

	done := runOnceAsync(ctrl, context.Background())
	waitRecording(t, pipeline)
	ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandToggle})

	result := <-done
	require.ErrorIs(t, result.Err, ErrEmptyTranscript)
}

func TestRunOnceStartFailure(t *testing.T) {
	startErr := errors.New("no microphone")
	ctrl, _ := newTestController(t, answering(), &stubRecorder{startErr: startErr}, 0)

	result := ctrl.RunOnce(context.Background())
	require.Error(t, result.Err)
	require.False(t, result.FinishedAt.IsZero())
}

func TestRunOnceRecordingLimit(t *testing.T) {
	recorder := &stubRecorder{transcript: "auto stopped"}
	ctrl, _ := newTestController(t, answering("Got it."), recorder, 20*time.Millisecond)

	result := ctrl.RunOnce(context.Background())
	require.NoError(t, result.Err)
	require.Equal(t, "auto stopped", result.Query)
	require.Equal(t, "Got it.", result.Answer)
	require.Equal(t, []bool{false}, recorder.stopCalls())
}

func TestRunOnceRejectsConcurrentRun(t *testing.T) {
	ctrl, pipeline := newTestController(t, answering(), &stubRecorder{}, 0)

	done := runOnceAsync(ctrl, context.Background())
	waitRecording(t, pipeline)

	second := ctrl.RunOnce(context.Background())
	require.ErrorIs(t, second.Err, ErrOneShotActive)

	ctrl.Handle(context.Background(), ipc.Request{Command: ipc.CommandCancel})
	require.True(t, (<-done).Cancelled)
}
