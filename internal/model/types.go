// Package model defines shared data structures.
package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Pair is an ordered pair of token positions.
type Pair struct {
	A int
	B int
}

// Signature characterizes the phonetic shape of a pair, e.g. the tone of each token.
type Signature []int

// Equal reports exact, order-sensitive equality.
func (s Signature) Equal(other Signature) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// String renders the signature as "3,3".
func (s Signature) String() string {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// ParseSignature parses a comma-separated signature such as "3,3".
func ParseSignature(value string) (Signature, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("signature is empty")
	}
	parts := strings.Split(value, ",")
	sig := make(Signature, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid signature %q: %w", value, err)
		}
		sig = append(sig, n)
	}
	return sig, nil
}

// HistoryEntry records an accepted draw.
type HistoryEntry struct {
	ID        int64
	Timestamp time.Time
	Name      string
	Signature Signature
}

// LedgerEntry is a favorite or excluded record.
type LedgerEntry struct {
	ID        int64
	Timestamp time.Time
	Name      string
}

// FilterConfig holds the tone rejection rules.
type FilterConfig struct {
	HardReject    []Signature `json:"unsmooth_blacklist"`
	ProbReject    []Signature `json:"probabilistic_blacklist"`
	RejectPercent int         `json:"reject_chance"`
}

// DefaultFilterConfig rejects repeated tones outright.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		HardReject:    []Signature{{3, 3}, {4, 4}, {1, 1}, {2, 2}},
		ProbReject:    []Signature{},
		RejectPercent: 50,
	}
}

// ThrottleMode selects the announcement behavior inside a cooldown window.
type ThrottleMode string

const (
	ThrottleInterrupt ThrottleMode = "interrupt"
	ThrottleSkip      ThrottleMode = "skip"
	ThrottleDebounce  ThrottleMode = "debounce"
)

// Valid reports whether the mode is known.
func (m ThrottleMode) Valid() bool {
	switch m {
	case ThrottleInterrupt, ThrottleSkip, ThrottleDebounce:
		return true
	default:
		return false
	}
}

// SpeechConfig defines announcement settings.
type SpeechConfig struct {
	Enabled    bool         `json:"enabled"`
	Interrupt  bool         `json:"interrupt"`
	CooldownMs int          `json:"throttle_ms"`
	Mode       ThrottleMode `json:"throttle_mode"`
	Rate       int          `json:"rate"`
	Volume     float64      `json:"volume"`
}

// DefaultSpeechConfig returns the settings used when nothing is stored.
func DefaultSpeechConfig() SpeechConfig {
	return SpeechConfig{
		Enabled:    true,
		Interrupt:  true,
		CooldownMs: 300,
		Mode:       ThrottleInterrupt,
		Rate:       160,
		Volume:     1.0,
	}
}

// Cooldown returns the cooldown as a duration.
func (c SpeechConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownMs) * time.Millisecond
}

// Validate checks ranges of the speech settings.
func (c SpeechConfig) Validate() error {
	if c.CooldownMs < 0 {
		return fmt.Errorf("throttle_ms must be >= 0")
	}
	if !c.Mode.Valid() {
		return fmt.Errorf("unknown throttle mode %q", c.Mode)
	}
	if c.Rate <= 0 {
		return fmt.Errorf("rate must be > 0")
	}
	if c.Volume < 0 || c.Volume > 1 {
		return fmt.Errorf("volume must be between 0 and 1")
	}
	return nil
}

// TokenCount is a token with the number of accepted draws containing it.
type TokenCount struct {
	Token string
	Count int
}
