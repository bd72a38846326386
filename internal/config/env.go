package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// envOverrides lists the environment variables that override file values.
// Fields are pre-populated from the loaded config so unset variables keep it.
type envOverrides struct {
	OpenAIKey      string  `env:"OPENAI_API_KEY"`
	APIKey         string  `env:"SELINE_API_KEY"`
	ChatBaseURL    string  `env:"SELINE_CHAT_BASE_URL"`
	ChatModel      string  `env:"SELINE_CHAT_MODEL"`
	Temperature    float64 `env:"SELINE_CHAT_TEMPERATURE"`
	SpeechEnable   bool    `env:"SELINE_SPEECH_ENABLE"`
	SpeechVoice    string  `env:"SELINE_SPEECH_VOICE"`
	AudioInput     string  `env:"SELINE_AUDIO_INPUT"`
	VoiceOverlap   string  `env:"SELINE_VOICE_OVERLAP"`
	LogLevel       string  `env:"SELINE_LOG_LEVEL"`
	DebugAudioDump bool    `env:"SELINE_DEBUG_AUDIO_DUMP"`
}

// LoadDotEnv reads KEY=value pairs from path into the process environment.
// Variables already set are preserved; a missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %q: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays environment overrides onto cfg.
func ApplyEnv(cfg *Config) error {
	o := envOverrides{
		OpenAIKey:      cfg.Chat.APIKey,
		ChatBaseURL:    cfg.Chat.BaseURL,
		ChatModel:      cfg.Chat.Model,
		Temperature:    cfg.Chat.Temperature,
		SpeechEnable:   cfg.Speech.Enable,
		SpeechVoice:    cfg.Speech.Voice,
		AudioInput:     cfg.Audio.Input,
		VoiceOverlap:   cfg.Voice.Overlap,
		LogLevel:       cfg.Log.Level,
		DebugAudioDump: cfg.Debug.EnableAudioDump,
	}
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}

	cfg.Chat.APIKey = o.OpenAIKey
	if o.APIKey != "" {
		cfg.Chat.APIKey = o.APIKey
	}
	cfg.Chat.BaseURL = o.ChatBaseURL
	cfg.Chat.Model = o.ChatModel
	cfg.Chat.Temperature = o.Temperature
	cfg.Speech.Enable = o.SpeechEnable
	cfg.Speech.Voice = o.SpeechVoice
	cfg.Audio.Input = o.AudioInput
	cfg.Voice.Overlap = strings.ToLower(strings.TrimSpace(o.VoiceOverlap))
	cfg.Log.Level = o.LogLevel
	cfg.Debug.EnableAudioDump = o.DebugAudioDump
	return nil
}
