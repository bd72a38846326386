package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Overlap policies accepted by voice.overlap.
const (
	OverlapReject  = "reject"
	OverlapReplace = "replace"
)

var validLogLevels = map[string]struct{}{
	"debug": {}, "info": {}, "warn": {}, "warning": {}, "error": {},
}

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if err := validateChat(cfg.Chat); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Chat.APIKey) == "" {
		warnings = append(warnings, Warning{Message: "no API key configured; set OPENAI_API_KEY or SELINE_API_KEY"})
	}

	if strings.TrimSpace(cfg.ASR.Model) == "" {
		return nil, fmt.Errorf("asr.model must not be empty")
	}
	if cfg.ASR.InterimIntervalMS < 0 {
		return nil, fmt.Errorf("asr.interim_interval_ms must be >= 0")
	}

	if cfg.Speech.Enable {
		if strings.TrimSpace(cfg.Speech.Model) == "" {
			return nil, fmt.Errorf("speech.model must not be empty when speech.enable=true")
		}
		if strings.TrimSpace(cfg.Speech.Voice) == "" {
			return nil, fmt.Errorf("speech.voice must not be empty when speech.enable=true")
		}
		if cfg.Speech.Speed < 0.25 || cfg.Speech.Speed > 4 {
			return nil, fmt.Errorf("speech.speed must be between 0.25 and 4.0")
		}
	}

	if cfg.Capture.MaxDurationMS < 0 {
		return nil, fmt.Errorf("capture.max_duration_ms must be >= 0")
	}

	switch cfg.Voice.Overlap {
	case OverlapReject, OverlapReplace:
	default:
		return nil, fmt.Errorf("voice.overlap must be one of: %s, %s", OverlapReject, OverlapReplace)
	}

	if cfg.Indicator.Enable && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.enable=true")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}

	if cfg.Clipboard.Enable && len(cfg.Clipboard.Cmd.Argv) == 0 {
		return nil, fmt.Errorf("clipboard.cmd must not be empty when clipboard.enable=true")
	}

	if _, ok := validLogLevels[strings.ToLower(strings.TrimSpace(cfg.Log.Level))]; !ok {
		return nil, fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}

	return warnings, nil
}

func validateChat(chat ChatConfig) error {
	raw := strings.TrimSpace(chat.BaseURL)
	if raw == "" {
		return fmt.Errorf("chat.base_url must not be empty")
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("chat.base_url must be an absolute http(s) URL")
	}
	if strings.TrimSpace(chat.Model) == "" {
		return fmt.Errorf("chat.model must not be empty")
	}
	if chat.Temperature < 0 || chat.Temperature > 2 {
		return fmt.Errorf("chat.temperature must be between 0 and 2")
	}
	if chat.RequestTimeoutMS <= 0 {
		return fmt.Errorf("chat.request_timeout_ms must be > 0")
	}
	return nil
}
