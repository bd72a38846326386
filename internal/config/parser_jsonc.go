package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

type jsoncConfig struct {
	Chat      *jsoncChat      `json:"chat"`
	ASR       *jsoncASR       `json:"asr"`
	Speech    *jsoncSpeech    `json:"speech"`
	Audio     *jsoncAudio     `json:"audio"`
	Capture   *jsoncCapture   `json:"capture"`
	Voice     *jsoncVoice     `json:"voice"`
	Indicator *jsoncIndicator `json:"indicator"`
	Clipboard *jsoncClipboard `json:"clipboard"`
	Debug     *jsoncDebug     `json:"debug"`
	Log       *jsoncLog       `json:"log"`
}

type jsoncChat struct {
	BaseURL          *string  `json:"base_url"`
	Model            *string  `json:"model"`
	Temperature      *float64 `json:"temperature"`
	SystemPrompt     *string  `json:"system_prompt"`
	RequestTimeoutMS *int     `json:"request_timeout_ms"`
}

type jsoncASR struct {
	Model             *string `json:"model"`
	Language          *string `json:"language"`
	Prompt            *string `json:"prompt"`
	InterimIntervalMS *int    `json:"interim_interval_ms"`
}

type jsoncSpeech struct {
	Enable *bool    `json:"enable"`
	Model  *string  `json:"model"`
	Voice  *string  `json:"voice"`
	Speed  *float64 `json:"speed"`
	Sink   *string  `json:"sink"`
}

type jsoncAudio struct {
	Input    *string `json:"input"`
	Fallback *string `json:"fallback"`
}

type jsoncCapture struct {
	MaxDurationMS *int `json:"max_duration_ms"`
}

type jsoncVoice struct {
	Overlap *string `json:"overlap"`
}

type jsoncIndicator struct {
	Enable         *bool   `json:"enable"`
	DesktopAppName *string `json:"desktop_app_name"`
	SoundEnable    *bool   `json:"sound_enable"`
	TextRecording  *string `json:"text_recording"`
	TextThinking   *string `json:"text_thinking"`
	TextError      *string `json:"text_error"`
	ErrorTimeoutMS *int    `json:"error_timeout_ms"`
}

type jsoncClipboard struct {
	Enable *bool   `json:"enable"`
	Cmd    *string `json:"cmd"`
}

type jsoncDebug struct {
	AudioDump *bool `json:"audio_dump"`
}

type jsoncLog struct {
	Level *string `json:"level"`
}

// parseJSONC decodes already-normalized JSON onto base.
func parseJSONC(normalized string, base Config) (Config, []Warning, error) {
	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func (payload jsoncConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if c := payload.Chat; c != nil {
		setString(&cfg.Chat.BaseURL, c.BaseURL)
		setString(&cfg.Chat.Model, c.Model)
		setFloat(&cfg.Chat.Temperature, c.Temperature)
		if c.SystemPrompt != nil {
			cfg.Chat.SystemPrompt = *c.SystemPrompt
			if strings.TrimSpace(*c.SystemPrompt) == "" {
				warnings = append(warnings, Warning{Message: "chat.system_prompt is empty; using built-in prompt"})
				cfg.Chat.SystemPrompt = DefaultSystemPrompt
			}
		}
		setInt(&cfg.Chat.RequestTimeoutMS, c.RequestTimeoutMS)
	}

	if a := payload.ASR; a != nil {
		setString(&cfg.ASR.Model, a.Model)
		setString(&cfg.ASR.Language, a.Language)
		if a.Prompt != nil {
			cfg.ASR.Prompt = *a.Prompt
		}
		setInt(&cfg.ASR.InterimIntervalMS, a.InterimIntervalMS)
	}

	if s := payload.Speech; s != nil {
		setBool(&cfg.Speech.Enable, s.Enable)
		setString(&cfg.Speech.Model, s.Model)
		setString(&cfg.Speech.Voice, s.Voice)
		setFloat(&cfg.Speech.Speed, s.Speed)
		setString(&cfg.Speech.Sink, s.Sink)
	}

	if a := payload.Audio; a != nil {
		setString(&cfg.Audio.Input, a.Input)
		setString(&cfg.Audio.Fallback, a.Fallback)
	}

	if c := payload.Capture; c != nil {
		setInt(&cfg.Capture.MaxDurationMS, c.MaxDurationMS)
	}

	if v := payload.Voice; v != nil && v.Overlap != nil {
		cfg.Voice.Overlap = strings.ToLower(strings.TrimSpace(*v.Overlap))
	}

	if i := payload.Indicator; i != nil {
		setBool(&cfg.Indicator.Enable, i.Enable)
		setString(&cfg.Indicator.DesktopAppName, i.DesktopAppName)
		setBool(&cfg.Indicator.SoundEnable, i.SoundEnable)
		setString(&cfg.Indicator.TextRecording, i.TextRecording)
		setString(&cfg.Indicator.TextThinking, i.TextThinking)
		setString(&cfg.Indicator.TextError, i.TextError)
		setInt(&cfg.Indicator.ErrorTimeoutMS, i.ErrorTimeoutMS)
	}

	if c := payload.Clipboard; c != nil {
		setBool(&cfg.Clipboard.Enable, c.Enable)
		if c.Cmd != nil {
			argv, err := parseArgv(*c.Cmd)
			if err != nil {
				return nil, fmt.Errorf("invalid clipboard.cmd: %w", err)
			}
			cfg.Clipboard.Cmd = CommandConfig{Raw: *c.Cmd, Argv: argv}
		}
	}

	if d := payload.Debug; d != nil {
		setBool(&cfg.Debug.EnableAudioDump, d.AudioDump)
	}

	if l := payload.Log; l != nil {
		setString(&cfg.Log.Level, l.Level)
	}

	return warnings, nil
}
