// Package config resolves, parses, validates, and defaults seline configuration.
package config

// Config is the fully materialized runtime configuration used by seline.
type Config struct {
	Chat      ChatConfig
	ASR       ASRConfig
	Speech    SpeechConfig
	Audio     AudioConfig
	Capture   CaptureConfig
	Voice     VoiceConfig
	Indicator IndicatorConfig
	Clipboard ClipboardConfig
	Debug     DebugConfig
	Log       LogConfig
}

// ChatConfig controls the streaming chat backend.
type ChatConfig struct {
	APIKey           string
	BaseURL          string
	Model            string
	Temperature      float64
	SystemPrompt     string
	RequestTimeoutMS int
}

// ASRConfig controls transcription requests for captured speech.
type ASRConfig struct {
	Model             string
	Language          string
	Prompt            string
	InterimIntervalMS int
}

// SpeechConfig controls answer synthesis and playback.
type SpeechConfig struct {
	Enable bool
	Model  string
	Voice  string
	Speed  float64
	Sink   string
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string
	Fallback string
}

// CaptureConfig bounds one recording.
type CaptureConfig struct {
	MaxDurationMS int
}

// VoiceConfig controls pipeline re-entrancy behavior.
type VoiceConfig struct {
	// Overlap is "reject" or "replace".
	Overlap string
}

// IndicatorConfig controls desktop notifications and audio cues.
type IndicatorConfig struct {
	Enable         bool
	DesktopAppName string
	SoundEnable    bool
	TextRecording  string
	TextThinking   string
	TextError      string
	ErrorTimeoutMS int
}

// ClipboardConfig controls delivery of committed answers to the clipboard.
type ClipboardConfig struct {
	Enable bool
	Cmd    CommandConfig
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool
}

// LogConfig controls runtime log verbosity.
type LogConfig struct {
	Level string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
