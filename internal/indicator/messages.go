package indicator

import (
	"strings"

	"github.com/selineapp/seline/internal/config"
)

type messages struct {
	recording string
	thinking  string
	errorText string
}

var defaultMessages = messages{
	recording: "Listening…",
	thinking:  "Thinking…",
	errorText: "Something went wrong",
}

// messagesFor applies configured text overrides to the defaults.
func messagesFor(cfg config.IndicatorConfig) messages {
	m := defaultMessages
	if text := strings.TrimSpace(cfg.TextRecording); text != "" {
		m.recording = text
	}
	if text := strings.TrimSpace(cfg.TextThinking); text != "" {
		m.thinking = text
	}
	if text := strings.TrimSpace(cfg.TextError); text != "" {
		m.errorText = text
	}
	return m
}
