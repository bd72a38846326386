package config

// DefaultSystemPrompt asks for answers that read well when spoken aloud.
const DefaultSystemPrompt = "You are Seline, a voice assistant. Answer in one to three short, " +
	"conversational sentences that sound natural when read aloud. " +
	"Do not use markdown, lists, code blocks, or emoji."

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	clipboard := "wl-copy --trim-newline"

	return Config{
		Chat: ChatConfig{
			BaseURL:          "https://api.openai.com/v1",
			Model:            "gpt-4o-mini",
			Temperature:      0.6,
			SystemPrompt:     DefaultSystemPrompt,
			RequestTimeoutMS: 60000,
		},
		ASR: ASRConfig{
			Model:    "whisper-1",
			Language: "en",
		},
		Speech: SpeechConfig{
			Enable: true,
			Model:  "tts-1",
			Voice:  "alloy",
			Speed:  1.0,
			Sink:   "default",
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Capture: CaptureConfig{MaxDurationMS: 60000},
		Voice:   VoiceConfig{Overlap: "reject"},
		Indicator: IndicatorConfig{
			Enable:         true,
			DesktopAppName: "seline",
			SoundEnable:    true,
			ErrorTimeoutMS: 1600,
		},
		Clipboard: ClipboardConfig{
			Enable: false,
			Cmd:    CommandConfig{Raw: clipboard, Argv: mustParseArgv(clipboard)},
		},
		Log: LogConfig{Level: "info"},
	}
}
