package tui

const (
	keyQuit         = "ctrl+c"
	keyEsc          = "esc"
	keyToggle       = "ctrl+r"
	keyStopSpeaking = "ctrl+s"
	keySubmit       = "enter"
	keyBackspace    = "backspace"
)
