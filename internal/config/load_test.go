package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func clearSelineEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OPENAI_API_KEY", "SELINE_API_KEY", "SELINE_CHAT_BASE_URL", "SELINE_CHAT_MODEL",
		"SELINE_CHAT_TEMPERATURE", "SELINE_SPEECH_ENABLE", "SELINE_SPEECH_VOICE",
		"SELINE_AUDIO_INPUT", "SELINE_VOICE_OVERLAP", "SELINE_LOG_LEVEL", "SELINE_DEBUG_AUDIO_DUMP",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestResolvePath(t *testing.T) {
	path, err := ResolvePath("/tmp/explicit.jsonc")
	require.NoError(t, err)
	require.Equal(t, "/tmp/explicit.jsonc", path)

	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	path, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, "/xdg/seline/config.jsonc", path)

	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/tester")
	path, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, "/home/tester/.config/seline/config.jsonc", path)
}

func TestDotEnvPath(t *testing.T) {
	require.Equal(t, "/etc/seline/.env", DotEnvPath("/etc/seline/config.jsonc"))
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearSelineEnv(t)
	path := filepath.Join(t.TempDir(), "config.jsonc")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.False(t, loaded.Exists)
	require.Equal(t, path, loaded.Path)
	require.Equal(t, Default(), loaded.Config)
	require.NotEmpty(t, loaded.Warnings)
	require.Contains(t, loaded.Warnings[0].Message, "not found")
}

func TestLoadReadsFileAndEnvOverrides(t *testing.T) {
	clearSelineEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"chat":{"model":"file-model"},"log":{"level":"warn"}}`), 0o600))

	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("SELINE_API_KEY", "sk-seline")
	t.Setenv("SELINE_LOG_LEVEL", "debug")
	t.Setenv("SELINE_VOICE_OVERLAP", " Replace ")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, "file-model", loaded.Config.Chat.Model)
	require.Equal(t, "sk-seline", loaded.Config.Chat.APIKey)
	require.Equal(t, "debug", loaded.Config.Log.Level)
	require.Equal(t, OverlapReplace, loaded.Config.Voice.Overlap)
	require.Empty(t, loaded.Warnings)
}

func TestLoadReadsDotEnvBesideConfig(t *testing.T) {
	clearSelineEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.jsonc")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SELINE_CHAT_MODEL=dotenv-model\nOPENAI_API_KEY=sk-dotenv\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("SELINE_CHAT_MODEL")
		_ = os.Unsetenv("OPENAI_API_KEY")
	})

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "dotenv-model", loaded.Config.Chat.Model)
	require.Equal(t, "sk-dotenv", loaded.Config.Chat.APIKey)
}

func TestLoadInvalidFile(t *testing.T) {
	clearSelineEnv(t)
	path := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"chat":`), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse config")
}

func TestApplyEnvRejectsMalformedValues(t *testing.T) {
	clearSelineEnv(t)
	t.Setenv("SELINE_CHAT_TEMPERATURE", "warm")

	cfg := Default()
	err := ApplyEnv(&cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse environment")
}
