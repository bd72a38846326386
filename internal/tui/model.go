// Package tui renders a voice session in the terminal.
package tui

import (
	"context"
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/selineapp/seline/internal/conversation"
	"github.com/selineapp/seline/internal/voice"
)

// Controls are the pipeline operations bound to keys.
type Controls interface {
	ToggleRecording(ctx context.Context) error
	SubmitQuery(ctx context.Context, query string) error
	StopSpeaking()
	StopAll()
}

// SnapshotMsg carries one pipeline state change.
type SnapshotMsg struct {
	Snapshot voice.Snapshot
}

type actionErrMsg struct {
	err error
}

// Forward returns an observer that feeds snapshots to send, usually
// (*tea.Program).Send. Send blocks until the program accepts the message, so
// snapshots arrive in mutation order.
func Forward(send func(tea.Msg)) voice.Observer {
	return func(snap voice.Snapshot) {
		send(SnapshotMsg{Snapshot: snap})
	}
}

// Model is the root bubbletea model.
type Model struct {
	ctx      context.Context
	controls Controls

	snap   voice.Snapshot
	input  []rune
	notice string

	width  int
	height int
}

// New builds a model. ctx bounds every pipeline call the model starts.
func New(ctx context.Context, controls Controls, initial voice.Snapshot) Model {
	return Model{ctx: ctx, controls: controls, snap: initial}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case SnapshotMsg:
		m.snap = msg.Snapshot
		return m, nil

	case actionErrMsg:
		m.notice = noticeFor(msg.err)
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""

	switch msg.String() {
	case keyQuit, keyEsc:
		return m, m.quit()

	case keyToggle:
		return m, m.run(func(ctx context.Context) error { return m.controls.ToggleRecording(ctx) })

	case keyStopSpeaking:
		return m, m.run(func(context.Context) error {
			m.controls.StopSpeaking()
			return nil
		})

	case keySubmit:
		query := strings.TrimSpace(string(m.input))
		if query == "" {
			return m, nil
		}
		m.input = nil
		return m, m.run(func(ctx context.Context) error { return m.controls.SubmitQuery(ctx, query) })

	case keyBackspace:
		if n := len(m.input); n > 0 {
			m.input = m.input[:n-1]
		}
		return m, nil
	}

	switch msg.Type {
	case tea.KeyRunes:
		m.input = append(m.input, msg.Runes...)
	case tea.KeySpace:
		m.input = append(m.input, ' ')
	}
	return m, nil
}

// run executes fn off the event loop and reports its error, if any.
func (m Model) run(fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		if err := fn(ctx); err != nil {
			return actionErrMsg{err: err}
		}
		return nil
	}
}

func (m Model) quit() tea.Cmd {
	controls := m.controls
	return func() tea.Msg {
		controls.StopAll()
		return tea.Quit()
	}
}

// noticeFor turns an action error into a short status line. Failures the
// pipeline already reports through its snapshot yield "".
func noticeFor(err error) string {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return ""
	case errors.Is(err, voice.ErrBusy):
		return "Still answering the last question."
	case errors.Is(err, voice.ErrRecording):
		return "Finish the recording first."
	case errors.Is(err, voice.ErrNotRecording):
		return ""
	default:
		return err.Error()
	}
}

func roleLabel(role conversation.Role) string {
	if role == conversation.RoleUser {
		return userLabelStyle.Render("You")
	}
	return assistantLabelStyle.Render("Seline")
}
