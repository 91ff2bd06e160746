package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

// DefaultBatch is the batch size used when none is configured.
const DefaultBatch = 10

// EnvConfig holds environment overrides. Empty values are unset.
type EnvConfig struct {
	DataDir       string `env:"NAMEDRAW_DATA_DIR"`
	TokensFile    string `env:"NAMEDRAW_TOKENS_FILE"`
	LogLevel      string `env:"NAMEDRAW_LOG_LEVEL"`
	SpeechCommand string `env:"NAMEDRAW_SPEECH_COMMAND"`
	SpeechVoice   string `env:"NAMEDRAW_SPEECH_VOICE"`
}

// ParseEnv loads overrides from the environment.
func ParseEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		return EnvConfig{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Settings are the resolved startup settings.
type Settings struct {
	DataDir       string
	TokensFile    string
	LogLevel      string
	SpeechCommand string
	SpeechVoice   string
	Batch         int
}

// Resolve merges defaults, the config file and the environment, later sources winning.
// Command-line flags are applied on top by the caller.
func Resolve(file FileConfig, envCfg EnvConfig) Settings {
	s := Settings{
		DataDir:    DefaultDataDir(),
		TokensFile: DefaultTokensPath(),
		LogLevel:   "info",
		Batch:      DefaultBatch,
	}
	applyString(&s.TokensFile, file.Tokens.File)
	applyString(&s.SpeechCommand, file.Speech.Command)
	applyString(&s.SpeechVoice, file.Speech.Voice)
	applyString(&s.LogLevel, file.Log.Level)
	if file.Draw.Batch != nil {
		s.Batch = *file.Draw.Batch
	}

	overrideString(&s.DataDir, envCfg.DataDir)
	overrideString(&s.TokensFile, envCfg.TokensFile)
	overrideString(&s.LogLevel, envCfg.LogLevel)
	overrideString(&s.SpeechCommand, envCfg.SpeechCommand)
	overrideString(&s.SpeechVoice, envCfg.SpeechVoice)

	s.TokensFile = ExpandHome(s.TokensFile)
	s.DataDir = ExpandHome(s.DataDir)
	return s
}

// DBPath returns the database path for the resolved data dir.
func (s Settings) DBPath() string {
	return DBPath(s.DataDir)
}

// LogPath returns the shell log path for the resolved data dir.
func (s Settings) LogPath() string {
	return LogPath(s.DataDir)
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(value string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", value, err)
	}
	return level, nil
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	return filepath.Join(home, path[2:])
}

func applyString(target *string, value *string) {
	if value != nil && *value != "" {
		*target = *value
	}
}

func overrideString(target *string, value string) {
	if value != "" {
		*target = value
	}
}
