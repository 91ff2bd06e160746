package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/namedraw/internal/engine"
	"github.com/verte-zerg/namedraw/internal/model"
	"github.com/verte-zerg/namedraw/internal/speech"
	"github.com/verte-zerg/namedraw/internal/stats"
	"github.com/verte-zerg/namedraw/internal/store"
)

var (
	drawCount  int
	resetSmart bool

	filterHard    []string
	filterProb    []string
	filterPercent int
	filterDefault bool

	speechEnabled   bool
	speechMode      string
	speechCooldown  int
	speechInterrupt bool
	speechRate      int
	speechVolume    float64
)

// withApp opens the app for a one-shot command and saves the pool afterwards.
func withApp(run func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, false)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := run(cmd, args, a); err != nil {
			return err
		}
		if err := a.engine.Save(cmd.Context()); err != nil {
			a.logger.Warn("failed to save draw pool", "error", err)
		}
		return nil
	}
}

func newDrawCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draw",
		Short: "Draw names",
		Args:  cobra.NoArgs,
		RunE:  withApp(runDrawCmd),
	}
	cmd.Flags().IntVarP(&drawCount, "count", "n", 1, "number of names to draw (1-1000)")
	return cmd
}

func runDrawCmd(cmd *cobra.Command, _ []string, a *app) error {
	out := cmd.OutOrStdout()
	res, err := a.engine.BatchDraw(cmd.Context(), drawCount)
	if err != nil {
		return err
	}
	for _, d := range res.Draws {
		if err := printName(out, d.Entry.Name, a.engine.Reading(d.Entry.Name)); err != nil {
			return err
		}
	}
	switch res.Status {
	case engine.StatusExhausted:
		logErrf("pool exhausted after %d draws; run `namedraw reset`\n", len(res.Draws))
	case engine.StatusFilterExhausted:
		logErrf("filter rejected every candidate; adjust `namedraw filter` or reset\n")
	}
	_, err = fmt.Fprintf(out, "%d remaining\n", res.Remaining)
	return err
}

func newUndoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Return the last drawn name to the pool",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			res, err := a.engine.Undo(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "undid %s\n", res.Entry.Name)
			return err
		}),
	}
}

func newResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Refill the pool",
		Long:  "Refill the pool with every combination and clear the ledgers. With --smart, keep the ledgers and leave out names already drawn.",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			if err := a.engine.Initialize(cmd.Context(), resetSmart, !resetSmart); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%d remaining\n", a.engine.Remaining())
			return err
		}),
	}
	cmd.Flags().BoolVar(&resetSmart, "smart", false, "keep ledgers and exclude drawn names")
	return cmd
}

func newExcludeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exclude <name>",
		Short: "Remove a name from the pool permanently",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			pair, err := a.engine.Resolve(args[0])
			if err != nil {
				return err
			}
			entry, err := a.engine.Exclude(cmd.Context(), pair)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "excluded %s (id %d)\n", entry.Name, entry.ID)
			return err
		}),
	}
}

func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id>",
		Short: "Return an excluded name to the pool",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			entry, err := a.engine.Restore(cmd.Context(), id)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "restored %s\n", entry.Name)
			return err
		}),
	}
}

func newFavoriteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "favorite <name>",
		Short: "Save a name to favorites",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			pair, err := a.engine.Resolve(args[0])
			if err != nil {
				return err
			}
			entry, err := a.engine.AddFavorite(cmd.Context(), pair)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "saved %s (id %d)\n", entry.Name, entry.ID)
			return err
		}),
	}
}

func newUnfavoriteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unfavorite <id>",
		Short: "Remove a favorite",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.engine.RemoveFavorite(cmd.Context(), id)
		}),
	}
}

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List drawn names",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			return stats.RenderHistory(cmd.OutOrStdout(), a.engine.History(), a.engine.Reading)
		}),
	}
}

func newFavoritesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "favorites",
		Short: "List favorites",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			entries, err := a.engine.Favorites(cmd.Context())
			if err != nil {
				return err
			}
			return stats.RenderLedger(cmd.OutOrStdout(), "Favorites", entries)
		}),
	}
}

func newExcludedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "excluded",
		Short: "List excluded names",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			entries, err := a.engine.Excluded(cmd.Context())
			if err != nil {
				return err
			}
			return stats.RenderLedger(cmd.OutOrStdout(), "Excluded", entries)
		}),
	}
}

func newLookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <name>",
		Short: "Show where a name stands",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			res, err := a.engine.Lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printLookup(cmd.OutOrStdout(), res)
		}),
	}
}

func newFreqCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "freq",
		Short: "Show token and tone frequencies of drawn names",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			history := a.engine.History()
			out := cmd.OutOrStdout()
			if err := stats.RenderTokenTable(out, stats.TokenFrequency(history, a.universe)); err != nil {
				return err
			}
			return stats.RenderToneTable(out, stats.ToneFrequency(history))
		}),
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show pool progress",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			report, err := stats.BuildReport(cmd.Context(), a.store, a.universe, a.engine.Remaining())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := stats.RenderSummary(out, report, stats.BarWidthFor(stats.TerminalWidth())); err != nil {
				return err
			}
			if top := stats.TopTokens(report.TokenCounts, 5); len(top) > 0 {
				_, err = fmt.Fprintf(out, "Most drawn: %s\n", strings.Join(top, " "))
			}
			return err
		}),
	}
}

func newFilterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Show or change the tone filter",
		Args:  cobra.NoArgs,
		RunE:  withApp(runFilterCmd),
	}
	cmd.Flags().StringArrayVar(&filterHard, "hard", nil, "always reject this tone pair, e.g. 3,3 (repeatable)")
	cmd.Flags().StringArrayVar(&filterProb, "prob", nil, "reject this tone pair with --percent chance (repeatable)")
	cmd.Flags().IntVar(&filterPercent, "percent", 0, "rejection chance for --prob pairs (0-100)")
	cmd.Flags().BoolVar(&filterDefault, "default", false, "restore the default filter")
	return cmd
}

func runFilterCmd(cmd *cobra.Command, _ []string, a *app) error {
	cfg := a.engine.Filter()
	if filterDefault {
		cfg = model.DefaultFilterConfig()
	}
	var err error
	if cmd.Flags().Changed("hard") {
		if cfg.HardReject, err = parseSignatures(filterHard); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("prob") {
		if cfg.ProbReject, err = parseSignatures(filterProb); err != nil {
			return err
		}
	}
	applyIntConfig(cmd, "percent", &cfg.RejectPercent, filterPercent)

	changed := filterDefault || cmd.Flags().Changed("hard") || cmd.Flags().Changed("prob") || cmd.Flags().Changed("percent")
	if changed {
		if err := a.engine.ConfigureFilter(cmd.Context(), cfg); err != nil {
			return err
		}
	}
	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintf(out, "hard: %s\n", joinSignatures(cfg.HardReject)); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "prob: %s @ %d%%\n", joinSignatures(cfg.ProbReject), cfg.RejectPercent)
	return err
}

func newSpeechCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "speech",
		Short: "Show or change announcement settings",
		Args:  cobra.NoArgs,
		RunE:  withApp(runSpeechCmd),
	}
	cmd.Flags().BoolVar(&speechEnabled, "enabled", true, "announce drawn names")
	cmd.Flags().StringVar(&speechMode, "mode", "", "throttle mode: interrupt, skip or debounce")
	cmd.Flags().IntVar(&speechCooldown, "cooldown", 0, "cooldown between announcements in ms")
	cmd.Flags().BoolVar(&speechInterrupt, "interrupt", true, "debounced announcements cut off the current one")
	cmd.Flags().IntVar(&speechRate, "rate", 0, "speech rate in words per minute")
	cmd.Flags().Float64Var(&speechVolume, "volume", 0, "speech volume (0-1)")
	return cmd
}

func runSpeechCmd(cmd *cobra.Command, _ []string, a *app) error {
	ctx := cmd.Context()
	cfg := a.speechConfig(ctx)
	flags := cmd.Flags()
	if flags.Changed("enabled") {
		cfg.Enabled = speechEnabled
	}
	if flags.Changed("mode") {
		cfg.Mode = model.ThrottleMode(speechMode)
	}
	applyIntConfig(cmd, "cooldown", &cfg.CooldownMs, speechCooldown)
	if flags.Changed("interrupt") {
		cfg.Interrupt = speechInterrupt
	}
	applyIntConfig(cmd, "rate", &cfg.Rate, speechRate)
	if flags.Changed("volume") {
		cfg.Volume = speechVolume
	}
	if flags.NFlag() > 0 {
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := a.store.SaveJSON(ctx, store.KeySpeechConfig, cfg); err != nil {
			return fmt.Errorf("failed to save speech config: %w", err)
		}
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(),
		"enabled: %t\nmode: %s\ncooldown: %dms\ninterrupt: %t\nrate: %d\nvolume: %.2f\n",
		cfg.Enabled, cfg.Mode, cfg.CooldownMs, cfg.Interrupt, cfg.Rate, cfg.Volume)
	return err
}

func newSayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "say <text>",
		Short: "Speak text with the configured engine",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			cfg := a.speechConfig(cmd.Context())
			eng, err := speech.OpenExec(a.settings.SpeechCommand, a.settings.SpeechVoice)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := eng.Close(); cerr != nil {
					a.logger.Warn("failed to close speech engine", "error", cerr)
				}
			}()
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			err = eng.Play(ctx, speech.Utterance{Text: strings.Join(args, " "), Rate: cfg.Rate, Volume: cfg.Volume})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}),
	}
}

func printName(w io.Writer, name, reading string) error {
	if reading == "" {
		_, err := fmt.Fprintln(w, name)
		return err
	}
	_, err := fmt.Fprintf(w, "%s  %s\n", name, reading)
	return err
}

func printLookup(w io.Writer, res engine.LookupResult) error {
	state := "drawn"
	switch {
	case res.Excluded:
		state = "excluded"
	case res.Remaining:
		state = "remaining"
	case !res.Drawn:
		state = "spent (rejected by the filter)"
	}
	if err := printName(w, res.Name, res.Reading); err != nil {
		return err
	}
	tones := res.Signature.String()
	if tones == "" {
		tones = "?"
	}
	_, err := fmt.Fprintf(w, "index: %d\ntones: %s\nstate: %s\n", res.Index, tones, state)
	return err
}

func parseID(value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", value)
	}
	return id, nil
}

func parseSignatures(values []string) ([]model.Signature, error) {
	out := make([]model.Signature, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		sig, err := model.ParseSignature(v)
		if err != nil {
			return nil, err
		}
		out = append(out, sig)
	}
	return out, nil
}

func joinSignatures(sigs []model.Signature) string {
	if len(sigs) == 0 {
		return "-"
	}
	parts := make([]string, len(sigs))
	for i, s := range sigs {
		parts[i] = "(" + s.String() + ")"
	}
	return strings.Join(parts, " ")
}
