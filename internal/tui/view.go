package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/selineapp/seline/internal/conversation"
)

// chromeLines counts the header, dividers, input, and footer rows.
const chromeLines = 5

func (m Model) View() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	body := m.renderBody(width)
	if m.height > chromeLines {
		if limit := m.height - chromeLines; len(body) > limit {
			body = body[len(body)-limit:]
		}
	}

	divider := dividerStyle.Render(strings.Repeat("─", width))
	sections := []string{m.renderHeader(), divider}
	sections = append(sections, body...)
	sections = append(sections, divider, m.renderInput(), m.renderFooter())
	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	var state string
	switch {
	case m.snap.Recording:
		state = recordingStyle.Render("● REC")
	case m.snap.Transcribing:
		state = thinkingStyle.Render("… TRANSCRIBING")
	case m.snap.Busy:
		state = thinkingStyle.Render("◌ THINKING")
	default:
		state = idleStyle.Render("○ IDLE")
	}

	header := titleStyle.Render("SELINE") + "  " + state
	if m.snap.Speaking {
		header += "  " + speakingStyle.Render("♪ speaking")
	}
	return header
}

// renderBody returns the conversation, live caption, recorded text, and
// status lines, already wrapped to width.
func (m Model) renderBody(width int) []string {
	wrap := lipgloss.NewStyle().Width(width)

	var blocks []string
	for _, entry := range m.snap.Entries {
		blocks = append(blocks, wrap.Render(roleLabel(entry.Role)+": "+entry.Content))
	}
	if m.snap.CurrentResponse != "" {
		blocks = append(blocks, wrap.Render(roleLabel(conversation.RoleAssistant)+": "+captionStyle.Render(m.snap.CurrentResponse)))
	}
	if (m.snap.Recording || m.snap.Transcribing) && m.snap.RecordedText != "" {
		blocks = append(blocks, wrap.Render(dimStyle.Render("Heard: "+m.snap.RecordedText)))
	}
	if m.snap.Error != "" {
		blocks = append(blocks, wrap.Render(errorStyle.Render(m.snap.Error)))
	}
	if m.notice != "" {
		blocks = append(blocks, wrap.Render(dimStyle.Render(m.notice)))
	}
	if len(blocks) == 0 {
		blocks = append(blocks, dimStyle.Render("Press ctrl+r and speak, or type a question."))
	}

	var lines []string
	for _, block := range blocks {
		lines = append(lines, strings.Split(block, "\n")...)
	}
	return lines
}

func (m Model) renderInput() string {
	return "> " + string(m.input) + dimStyle.Render("▏")
}

func (m Model) renderFooter() string {
	keys := []struct{ key, desc string }{
		{"ctrl+r", "record"},
		{"enter", "ask"},
		{"ctrl+s", "stop speaking"},
		{"esc", "quit"},
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, footerKeyStyle.Render(k.key)+" "+dimStyle.Render(k.desc))
	}
	return strings.Join(parts, "  ")
}
