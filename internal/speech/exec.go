package speech

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"path/filepath"
	"strconv"
)

// ErrAudioUnavailable is returned when no speech command can be found.
var ErrAudioUnavailable = errors.New("audio engine unavailable")

// DefaultCommands are tried in order when no command is configured.
var DefaultCommands = []string{"espeak-ng", "espeak", "say"}

// ExecEngine speaks by running a text-to-speech command per utterance.
type ExecEngine struct {
	path  string
	voice string
}

// OpenExec resolves command (or the first of DefaultCommands found on PATH).
func OpenExec(command, voice string) (*ExecEngine, error) {
	candidates := DefaultCommands
	if command != "" {
		candidates = []string{command}
	}
	for _, name := range candidates {
		path, err := exec.LookPath(name)
		if err == nil {
			return &ExecEngine{path: path, voice: voice}, nil
		}
	}
	return nil, fmt.Errorf("no speech command among %v: %w", candidates, ErrAudioUnavailable)
}

// ExecOpener returns an Opener for OpenExec.
func ExecOpener(command, voice string) Opener {
	return func() (AudioEngine, error) {
		engine, err := OpenExec(command, voice)
		if err != nil {
			return nil, err
		}
		return engine, nil
	}
}

// Command returns the resolved executable path.
func (e *ExecEngine) Command() string {
	return e.path
}

// Play runs the command and waits. Cancelling ctx kills the process.
func (e *ExecEngine) Play(ctx context.Context, u Utterance) error {
	cmd := exec.CommandContext(ctx, e.path, execArgs(filepath.Base(e.path), e.voice, u)...)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to run %s: %w", filepath.Base(e.path), err)
	}
	return nil
}

// Close implements AudioEngine.
func (e *ExecEngine) Close() error {
	return nil
}

func execArgs(name, voice string, u Utterance) []string {
	var args []string
	switch name {
	case "say":
		if voice != "" {
			args = append(args, "-v", voice)
		}
		if u.Rate > 0 {
			args = append(args, "-r", strconv.Itoa(u.Rate))
		}
	case "espeak", "espeak-ng":
		if voice != "" {
			args = append(args, "-v", voice)
		}
		if u.Rate > 0 {
			args = append(args, "-s", strconv.Itoa(u.Rate))
		}
		// espeak amplitude runs 0..200 with 100 as the default level.
		amp := int(math.Round(u.Volume * 100))
		args = append(args, "-a", strconv.Itoa(amp))
	}
	return append(args, u.Text)
}

// NopEngine discards every utterance.
type NopEngine struct{}

// Play implements AudioEngine.
func (NopEngine) Play(context.Context, Utterance) error { return nil }

// Close implements AudioEngine.
func (NopEngine) Close() error { return nil }

// NopOpener opens a NopEngine.
func NopOpener() (AudioEngine, error) {
	return NopEngine{}, nil
}
