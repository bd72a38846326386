package config

import (
	"errors"
	"fmt"
	"os"
)

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves, reads, and parses the config file, then applies the
// optional .env file and environment overrides before validating.
func Load(explicitPath string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	if err := LoadDotEnv(DotEnvPath(resolvedPath)); err != nil {
		return Loaded{}, err
	}

	loaded := Loaded{Path: resolvedPath, Config: Default()}

	content, err := os.ReadFile(resolvedPath)
	switch {
	case err == nil:
		cfg, warnings, decodeErr := decode(string(content), loaded.Config)
		if decodeErr != nil {
			return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, decodeErr)
		}
		loaded.Config = cfg
		loaded.Warnings = warnings
		loaded.Exists = true
	case errors.Is(err, os.ErrNotExist):
		loaded.Warnings = []Warning{{
			Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath),
		}}
	default:
		return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
	}

	if err := ApplyEnv(&loaded.Config); err != nil {
		return Loaded{}, err
	}

	validated, err := Validate(loaded.Config)
	if err != nil {
		return Loaded{}, fmt.Errorf("invalid config %q: %w", resolvedPath, err)
	}
	loaded.Warnings = append(loaded.Warnings, validated...)
	return loaded, nil
}
