// Package filter classifies pair signatures against tone rejection rules.
package filter

import (
	"errors"
	"fmt"

	"github.com/verte-zerg/namedraw/internal/model"
)

// ErrInvalidConfig indicates a filter configuration that cannot be applied.
var ErrInvalidConfig = errors.New("invalid filter config")

// Verdict is the outcome of classifying a signature.
type Verdict int

const (
	Accept Verdict = iota
	HardReject
	ProbabilisticReject
)

func (v Verdict) String() string {
	switch v {
	case Accept:
		return "accept"
	case HardReject:
		return "hard-reject"
	case ProbabilisticReject:
		return "probabilistic-reject"
	default:
		return "unknown"
	}
}

// Classify matches sig against the hard list first, then the probabilistic list.
// A missing signature (ok == false) is always accepted.
func Classify(sig model.Signature, ok bool, cfg model.FilterConfig) Verdict {
	if !ok || len(sig) == 0 {
		return Accept
	}
	if contains(cfg.HardReject, sig) {
		return HardReject
	}
	if contains(cfg.ProbReject, sig) {
		return ProbabilisticReject
	}
	return Accept
}

// Rejects decides whether a verdict discards the draw. roll must be uniform in [1,100].
func Rejects(v Verdict, cfg model.FilterConfig, roll int) bool {
	switch v {
	case HardReject:
		return true
	case ProbabilisticReject:
		return roll <= cfg.RejectPercent
	default:
		return false
	}
}

// Validate checks the configuration.
func Validate(cfg model.FilterConfig) error {
	if cfg.RejectPercent < 0 || cfg.RejectPercent > 100 {
		return fmt.Errorf("reject percent %d not in [0,100]: %w", cfg.RejectPercent, ErrInvalidConfig)
	}
	for _, list := range [][]model.Signature{cfg.HardReject, cfg.ProbReject} {
		for _, sig := range list {
			if len(sig) == 0 {
				return fmt.Errorf("empty signature: %w", ErrInvalidConfig)
			}
		}
	}
	return nil
}

func contains(list []model.Signature, sig model.Signature) bool {
	for _, candidate := range list {
		if candidate.Equal(sig) {
			return true
		}
	}
	return false
}
