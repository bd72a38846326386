package voice

import (
	"context"
	"errors"

	"github.com/selineapp/seline/internal/capture"
	"github.com/selineapp/seline/internal/speech"
)

// Recorder captures one spoken query at a time.
type Recorder interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context, userInitiated bool) (capture.StopResult, error)
	Cancel(ctx context.Context) error
	Text() string
}

// Speaker is the shared speech engine. At most one utterance is active.
type Speaker interface {
	Speak(ctx context.Context, text string) *speech.Utterance
	Stop()
	Speaking() bool
	Wait(ctx context.Context) error
}

// Indicator surfaces pipeline progress outside the terminal.
type Indicator interface {
	ShowRecording(context.Context)
	ShowThinking(context.Context)
	ShowError(context.Context, string)
	CueStop(context.Context)
	CueComplete(context.Context)
	CueCancel(context.Context)
	Hide(context.Context)
}

// AnswerSink receives each committed assistant answer.
type AnswerSink interface {
	Deliver(ctx context.Context, answer string) error
}

type noopIndicator struct{}

func (noopIndicator) ShowRecording(context.Context)     {}
func (noopIndicator) ShowThinking(context.Context)      {}
func (noopIndicator) ShowError(context.Context, string) {}
func (noopIndicator) CueStop(context.Context)           {}
func (noopIndicator) CueComplete(context.Context)       {}
func (noopIndicator) CueCancel(context.Context)         {}
func (noopIndicator) Hide(context.Context)              {}

var errNoRecorder = errors.New("voice capture is not configured")

type noRecorder struct{}

func (noRecorder) Start(context.Context) error { return errNoRecorder }

func (noRecorder) Stop(context.Context, bool) (capture.StopResult, error) {
	return capture.StopResult{}, capture.ErrNotStarted
}

func (noRecorder) Cancel(context.Context) error { return nil }

func (noRecorder) Text() string { return "" }
