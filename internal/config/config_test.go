// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// clearEnv blanks every PARLEY_* override so file values are observable.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PARLEY_BASE_URL", "PARLEY_APP_ID", "PARLEY_API_KEY",
		"PARLEY_MODEL", "PARLEY_LANGUAGE", "PARLEY_TEMPERATURE",
		"PARLEY_MAX_TOKENS", "PARLEY_SEND_HISTORY",
	} {
		t.Setenv(key, "")
	}
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "http://localhost:8080", cfg.Server.BaseURL)
	assert.Equal(t, "default", cfg.Server.AppID)
	assert.Equal(t, 0.7, cfg.Generation.Temperature)
	assert.True(t, cfg.Generation.SendChatHistory)
	assert.True(t, cfg.UI.Markdown)
	assert.Equal(t, 80, cfg.UI.WordWrap)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Server.BaseURL, cfg.Server.BaseURL)
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[server]
base_url = "https://chat.example.com"
app_id = "support"
api_key = "file-key"

[generation]
model = "large"
temperature = 0.2
max_tokens = 2000
send_chat_history = false
system_prompt = "be brief"

[ui]
markdown = false
word_wrap = 100
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://chat.example.com", cfg.Server.BaseURL)
	assert.Equal(t, "support", cfg.Server.AppID)
	assert.Equal(t, "file-key", cfg.Server.APIKey)
	assert.Equal(t, "large", cfg.Generation.Model)
	assert.Equal(t, 0.2, cfg.Generation.Temperature)
	assert.Equal(t, 2000, cfg.Generation.MaxTokens)
	assert.False(t, cfg.Generation.SendChatHistory)
	assert.Equal(t, "be brief", cfg.Generation.SystemPrompt)
	assert.False(t, cfg.UI.Markdown)
	assert.Equal(t, 100, cfg.UI.WordWrap)
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[server]
base_url = "https://file.example.com"
api_key = "file-key"

[generation]
model = "file-model"
`)

	t.Setenv("PARLEY_BASE_URL", "https://env.example.com")
	t.Setenv("PARLEY_API_KEY", "env-key")
	t.Setenv("PARLEY_MODEL", "env-model")
	t.Setenv("PARLEY_TEMPERATURE", "1.5")
	t.Setenv("PARLEY_MAX_TOKENS", "4096")
	t.Setenv("PARLEY_SEND_HISTORY", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.Server.BaseURL)
	assert.Equal(t, "env-key", cfg.Server.APIKey)
	assert.Equal(t, "env-model", cfg.Generation.Model)
	assert.Equal(t, 1.5, cfg.Generation.Temperature)
	assert.Equal(t, 4096, cfg.Generation.MaxTokens)
	assert.False(t, cfg.Generation.SendChatHistory)
}

func TestEnvIgnoresUnparseableNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("PARLEY_TEMPERATURE", "warm")
	t.Setenv("PARLEY_MAX_TOKENS", "lots")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, 0.7, cfg.Generation.Temperature)
	assert.Zero(t, cfg.Generation.MaxTokens)
}

func TestLoadRejectsMalformedToml(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "[server\nbase_url = ")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad url", func(c *Config) { c.Server.BaseURL = "not a url" }},
		{"empty app id", func(c *Config) { c.Server.AppID = "" }},
		{"temperature too high", func(c *Config) { c.Generation.Temperature = 2.5 }},
		{"temperature negative", func(c *Config) { c.Generation.Temperature = -0.1 }},
		{"negative max tokens", func(c *Config) { c.Generation.MaxTokens = -1 }},
		{"bad language tag", func(c *Config) { c.Generation.Language = "!!" }},
		{"unknown output format", func(c *Config) { c.Generation.OutputFormat = "yaml" }},
		{"negative word wrap", func(c *Config) { c.UI.WordWrap = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateAcceptsRegionTags(t *testing.T) {
	cfg := Default()
	cfg.Generation.Language = "de-DE"
	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsInvalidFileValues(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[generation]
temperature = 5.0
`)

	_, err := Load(path)
	assert.Error(t, err)
}
