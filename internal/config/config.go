// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for parley.
//
// Configuration sources, in order of precedence:
//   - PARLEY_* environment variables
//   - .env file in the working directory (loaded via godotenv)
//   - ~/.parley/config.toml
//   - Built-in defaults
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"golang.org/x/text/language"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete parley configuration.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Generation GenerationConfig `toml:"generation"`
	UI         UIConfig         `toml:"ui"`
}

// ServerConfig addresses the chat backend.
type ServerConfig struct {
	// BaseURL is the backend root, e.g. "https://chat.example.com".
	BaseURL string `toml:"base_url"`
	// AppID selects the chat application on the backend.
	AppID string `toml:"app_id"`
	// APIKey is the bearer credential. Prefer PARLEY_API_KEY over the file.
	APIKey string `toml:"api_key"`
}

// GenerationConfig holds the parameters forwarded on every generation
// request.
type GenerationConfig struct {
	Model        string  `toml:"model"`
	Style        string  `toml:"style"`
	Temperature  float64 `toml:"temperature"`
	OutputFormat string  `toml:"output_format"`
	// Language is a BCP 47 tag ("en", "de-DE"). Empty lets the backend
	// pick.
	Language string `toml:"language"`
	// MaxTokens caps the response; 0 lets the backend decide.
	MaxTokens int `toml:"max_tokens"`
	// MaxTokensBoost is the cap used for retry-after-truncation. 0 means
	// four times MaxTokens.
	MaxTokensBoost  int    `toml:"max_tokens_boost"`
	SendChatHistory bool   `toml:"send_chat_history"`
	SystemPrompt    string `toml:"system_prompt"`
}

// UIConfig holds terminal front-end preferences.
type UIConfig struct {
	// Markdown renders finished assistant messages with glamour.
	Markdown bool `toml:"markdown"`
	// WordWrap is the render width for markdown output.
	WordWrap int `toml:"word_wrap"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL: "http://localhost:8080",
			AppID:   "default",
		},
		Generation: GenerationConfig{
			Model:           "default",
			Temperature:     0.7,
			OutputFormat:    "markdown",
			SendChatHistory: true,
		},
		UI: UIConfig{
			Markdown: true,
			WordWrap: 80,
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".parley", "config.toml")
}

// Dir returns the parley configuration directory.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".parley"), nil
}

// EnsureDir creates the configuration directory if it does not exist.
func EnsureDir() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads configuration from the given path, layering .env and
// environment overrides on top. A missing file is not an error; defaults
// apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	// .env is optional; ignore absence.
	_ = godotenv.Load()

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv layers PARLEY_* environment variables over the file values.
func applyEnv(cfg *Config) {
	if v := os.Getenv("PARLEY_BASE_URL"); v != "" {
		cfg.Server.BaseURL = v
	}
	if v := os.Getenv("PARLEY_APP_ID"); v != "" {
		cfg.Server.AppID = v
	}
	if v := os.Getenv("PARLEY_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("PARLEY_MODEL"); v != "" {
		cfg.Generation.Model = v
	}
	if v := os.Getenv("PARLEY_LANGUAGE"); v != "" {
		cfg.Generation.Language = v
	}
	if v := os.Getenv("PARLEY_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Generation.Temperature = f
		}
	}
	if v := os.Getenv("PARLEY_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Generation.MaxTokens = n
		}
	}
	if v := os.Getenv("PARLEY_SEND_HISTORY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Generation.SendChatHistory = b
		}
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the configuration for values that would fail at request
// time.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("server.base_url %q is not a valid URL", c.Server.BaseURL))
	}
	if c.Server.AppID == "" {
		errs = append(errs, errors.New("server.app_id must not be empty"))
	}

	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		errs = append(errs, fmt.Errorf("generation.temperature %v out of range [0, 2]", c.Generation.Temperature))
	}
	if c.Generation.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("generation.max_tokens must not be negative"))
	}
	if c.Generation.Language != "" {
		if _, err := language.Parse(c.Generation.Language); err != nil {
			errs = append(errs, fmt.Errorf("generation.language %q is not a valid BCP 47 tag: %w", c.Generation.Language, err))
		}
	}
	switch c.Generation.OutputFormat {
	case "", "markdown", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("generation.output_format %q unknown (markdown, text, json)", c.Generation.OutputFormat))
	}

	if c.UI.WordWrap < 0 {
		errs = append(errs, errors.New("ui.word_wrap must not be negative"))
	}

	return errors.Join(errs...)
}
