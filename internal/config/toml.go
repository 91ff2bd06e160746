// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Tokens TokensConfig `toml:"tokens"`
	Speech SpeechConfig `toml:"speech"`
	Log    LogConfig    `toml:"log"`
	Draw   DrawConfig   `toml:"draw"`
}

// TokensConfig maps the token source.
type TokensConfig struct {
	File *string `toml:"file"`
}

// SpeechConfig maps the text-to-speech command. Runtime speech settings live in the database.
type SpeechConfig struct {
	Command *string `toml:"command"`
	Voice   *string `toml:"voice"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
}

// DrawConfig maps draw defaults.
type DrawConfig struct {
	Batch *int `toml:"batch"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

const template = `# namedraw configuration

[tokens]
# file = "~/.config/namedraw/tokens.txt"

[speech]
# command = "espeak-ng"
# voice = "cmn"

[log]
# level = "info"

[draw]
# batch = 10
`

// WriteTemplate creates a commented config file at path unless one exists.
func WriteTemplate(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(template), 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
