package config

import (
	"fmt"
	"strings"
)

// Parse reads JSONC configuration content on top of base and validates it.
// Empty content yields base unchanged.
func Parse(content string, base Config) (Config, []Warning, error) {
	cfg, warnings, err := decode(content, base)
	if err != nil {
		return Config{}, nil, err
	}
	validated, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, append(warnings, validated...), nil
}

// decode applies file content to base without validation.
func decode(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	trimmed := strings.TrimSpace(normalized)
	if trimmed == "" {
		return base, nil, nil
	}
	if !strings.HasPrefix(trimmed, "{") {
		return Config{}, nil, fmt.Errorf("config must be a JSONC object")
	}
	return parseJSONC(normalized, base)
}
