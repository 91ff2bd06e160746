package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/namedraw/internal/config"
	"github.com/verte-zerg/namedraw/internal/engine"
	"github.com/verte-zerg/namedraw/internal/model"
	"github.com/verte-zerg/namedraw/internal/phonetic"
	"github.com/verte-zerg/namedraw/internal/speech"
	"github.com/verte-zerg/namedraw/internal/store"
	"github.com/verte-zerg/namedraw/internal/tokens"
)

// app bundles what every command needs.
type app struct {
	settings config.Settings
	logger   *slog.Logger
	logFile  io.Closer
	store    *store.Store
	universe *tokens.Universe
	engine   *engine.Engine
}

func resolveSettings(cmd *cobra.Command) (config.Settings, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return config.Settings{}, fmt.Errorf("failed to load config: %w", err)
	}
	envCfg, err := config.ParseEnv()
	if err != nil {
		return config.Settings{}, err
	}
	s := config.Resolve(fileCfg, envCfg)
	applyStringConfig(cmd, "data-dir", &s.DataDir, config.ExpandHome(flagDataDir))
	applyStringConfig(cmd, "tokens", &s.TokensFile, config.ExpandHome(flagTokensFile))
	applyStringConfig(cmd, "log-level", &s.LogLevel, flagLogLevel)
	applyStringConfig(cmd, "speech-command", &s.SpeechCommand, flagSpeechCommand)
	applyStringConfig(cmd, "voice", &s.SpeechVoice, flagSpeechVoice)
	return s, nil
}

// openApp resolves settings and opens the store and engine. The shell logs to a file
// because Bubble Tea owns the terminal.
func openApp(cmd *cobra.Command, logToFile bool) (*app, error) {
	settings, err := resolveSettings(cmd)
	if err != nil {
		return nil, err
	}
	level, err := config.ParseLevel(settings.LogLevel)
	if err != nil {
		return nil, err
	}

	a := &app{settings: settings}
	var out io.Writer = os.Stderr
	if logToFile {
		f, err := openLogFile(settings.LogPath())
		if err != nil {
			logErrf("failed to open log file: %v\n", err)
			out = io.Discard
		} else {
			out = f
			a.logFile = f
		}
	}
	a.logger = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)

	universe, err := loadTokens(settings.TokensFile, a.logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.universe = universe

	st, err := store.Open(settings.DBPath())
	if err != nil {
		a.logger.Error("failed to open database, using in-memory store", "path", settings.DBPath(), "error", err)
		st, err = store.Open(store.MemoryPath)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open db: %w", err)
		}
	}
	a.store = st

	a.engine = engine.New(st, universe,
		engine.WithLogger(a.logger),
		engine.WithProvider(phonetic.NewPinyin()))
	if err := a.engine.Load(cmd.Context()); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load draw pool: %w", err)
	}
	return a, nil
}

func (a *app) Close() {
	if a.store != nil {
		if cerr := a.store.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}
	if a.logFile != nil {
		if cerr := a.logFile.Close(); cerr != nil {
			// Best-effort log close.
			_ = cerr
		}
	}
}

func (a *app) speechConfig(ctx context.Context) model.SpeechConfig {
	cfg := model.DefaultSpeechConfig()
	var stored model.SpeechConfig
	ok, err := a.store.LoadJSON(ctx, store.KeySpeechConfig, &stored)
	if err != nil {
		a.logger.Warn("failed to load speech config", "error", err)
		return cfg
	}
	if !ok {
		return cfg
	}
	if err := stored.Validate(); err != nil {
		a.logger.Warn("ignoring stored speech config", "error", err)
		return cfg
	}
	return stored
}

// opener is used even when speech is disabled: the throttler gates announcements
// and the engine is only opened on the first one.
func (a *app) opener() speech.Opener {
	return speech.ExecOpener(a.settings.SpeechCommand, a.settings.SpeechVoice)
}

func loadTokens(path string, logger *slog.Logger) (*tokens.Universe, error) {
	universe, err := tokens.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		if werr := tokens.WriteTemplate(path); werr != nil {
			return nil, fmt.Errorf("failed to create token file: %w", werr)
		}
		logger.Info("created token template", "path", path)
		universe, err = tokens.Load(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tokens from %s: %w", path, err)
	}
	return universe, nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
