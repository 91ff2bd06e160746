// Package main provides the CLI entrypoint for namedraw.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/namedraw/internal/config"
	"github.com/verte-zerg/namedraw/internal/model"
	"github.com/verte-zerg/namedraw/internal/speech"
	"github.com/verte-zerg/namedraw/internal/store"
	"github.com/verte-zerg/namedraw/internal/tui"
)

const shutdownTimeout = time.Second

var (
	flagDataDir       string
	flagTokensFile    string
	flagLogLevel      string
	flagSpeechCommand string
	flagSpeechVoice   string
	flagBatch         int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "namedraw",
		Short:         "Draw two-character names without repeats",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runShellCmd,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagDataDir, "data-dir", "", "directory for the database and log")
	flags.StringVar(&flagTokensFile, "tokens", "", "token file (one character per entry)")
	flags.StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&flagSpeechCommand, "speech-command", "", "text-to-speech command (espeak-ng, espeak, say)")
	flags.StringVar(&flagSpeechVoice, "voice", "", "text-to-speech voice")
	rootCmd.Flags().IntVar(&flagBatch, "batch", config.DefaultBatch, "names drawn by the batch key")

	rootCmd.AddCommand(newDrawCmd())
	rootCmd.AddCommand(newUndoCmd())
	rootCmd.AddCommand(newResetCmd())
	rootCmd.AddCommand(newExcludeCmd())
	rootCmd.AddCommand(newRestoreCmd())
	rootCmd.AddCommand(newFavoriteCmd())
	rootCmd.AddCommand(newUnfavoriteCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newFavoritesCmd())
	rootCmd.AddCommand(newExcludedCmd())
	rootCmd.AddCommand(newLookupCmd())
	rootCmd.AddCommand(newFreqCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newFilterCmd())
	rootCmd.AddCommand(newSpeechCmd())
	rootCmd.AddCommand(newSayCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func runShellCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	batch := a.settings.Batch
	applyIntConfig(cmd, "batch", &batch, flagBatch)
	if batch < 1 || batch > 1000 {
		return fmt.Errorf("--batch must be between 1 and 1000")
	}

	ctx := context.Background()
	speechCfg := a.speechConfig(ctx)
	notifier := speech.NewNotifier(a.opener(), speech.WithNotifierLogger(a.logger))
	throttler := speech.NewThrottler(notifier, speechCfg)
	defer func() {
		throttler.Cancel()
		if err := notifier.Shutdown(shutdownTimeout); err != nil {
			a.logger.Warn("speech worker did not stop", "error", err)
		}
	}()

	shell := tui.NewModel(a.engine, throttler, batch, a.logger)
	shell.OnSpeechChange(func(ctx context.Context, cfg model.SpeechConfig) error {
		return a.store.SaveJSON(ctx, store.KeySpeechConfig, cfg)
	})
	program := tea.NewProgram(shell, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := config.WriteTemplate(path); err != nil {
		return err
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target *string, flagValue string) {
	if cmd.Flags().Changed(name) {
		*target = flagValue
	}
}

func applyIntConfig(cmd *cobra.Command, name string, target *int, flagValue int) {
	if cmd.Flags().Changed(name) {
		*target = flagValue
	}
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
