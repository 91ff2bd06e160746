package speech

import (
	"sync"
	"time"

	"github.com/verte-zerg/namedraw/internal/model"
)

// Decision reports what Announce did with a text.
type Decision int

const (
	Spoken Decision = iota
	Dropped
	Deferred
	Disabled
)

func (d Decision) String() string {
	switch d {
	case Spoken:
		return "spoken"
	case Dropped:
		return "dropped"
	case Deferred:
		return "deferred"
	case Disabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Enqueuer accepts announcement requests.
type Enqueuer interface {
	Enqueue(req Request) (string, bool)
}

// ThrottleOption configures a Throttler.
type ThrottleOption func(*Throttler)

// WithThrottleClock overrides the clock.
func WithThrottleClock(now func() time.Time) ThrottleOption {
	return func(t *Throttler) { t.now = now }
}

// Throttler limits the announcement rate of rapid draws.
type Throttler struct {
	target Enqueuer
	now    func() time.Time

	mu      sync.Mutex
	cfg     model.SpeechConfig
	last    time.Time
	timer   *time.Timer
	gen     uint64
	pending string
}

// NewThrottler creates a throttler feeding target.
func NewThrottler(target Enqueuer, cfg model.SpeechConfig, opts ...ThrottleOption) *Throttler {
	t := &Throttler{target: target, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Configure replaces the settings. Disabling speech drops any pending text.
func (t *Throttler) Configure(cfg model.SpeechConfig) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cfg = cfg
	if !cfg.Enabled {
		t.cancelLocked()
	}
}

// Config returns the current settings.
func (t *Throttler) Config() model.SpeechConfig {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cfg
}

// Announce speaks text now, drops it or defers it depending on the cooldown and mode.
func (t *Throttler) Announce(text string) Decision {
	t.mu.Lock()
	cfg := t.cfg
	if !cfg.Enabled {
		t.mu.Unlock()
		return Disabled
	}
	now := t.now()
	if t.last.IsZero() || now.Sub(t.last) >= cfg.Cooldown() {
		t.cancelLocked()
		t.last = now
		t.mu.Unlock()
		t.enqueue(text, true, cfg)
		return Spoken
	}

	switch cfg.Mode {
	case model.ThrottleSkip:
		t.mu.Unlock()
		return Dropped
	case model.ThrottleDebounce:
		t.cancelLocked()
		t.pending = text
		gen := t.gen
		t.timer = time.AfterFunc(cfg.Cooldown(), func() { t.fire(gen) })
		t.mu.Unlock()
		return Deferred
	default:
		t.last = now
		t.mu.Unlock()
		t.enqueue(text, true, cfg)
		return Spoken
	}
}

// Cancel stops a pending debounce. Safe after the timer fired.
func (t *Throttler) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
}

func (t *Throttler) cancelLocked() {
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.pending = ""
}

func (t *Throttler) fire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || t.pending == "" {
		t.mu.Unlock()
		return
	}
	text := t.pending
	cfg := t.cfg
	t.pending = ""
	t.timer = nil
	t.last = t.now()
	t.mu.Unlock()
	t.enqueue(text, cfg.Interrupt, cfg)
}

func (t *Throttler) enqueue(text string, interrupt bool, cfg model.SpeechConfig) {
	t.target.Enqueue(Request{
		Utterance: Utterance{Text: text, Rate: cfg.Rate, Volume: cfg.Volume},
		Interrupt: interrupt,
	})
}
