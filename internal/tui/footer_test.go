package tui

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/namedraw/internal/engine"
	"github.com/verte-zerg/namedraw/internal/model"
	"github.com/verte-zerg/namedraw/internal/speech"
	"github.com/verte-zerg/namedraw/internal/store"
	"github.com/verte-zerg/namedraw/internal/tokens"
)

type recordingAnnouncer struct {
	texts []string
}

func (r *recordingAnnouncer) Announce(text string) speech.Decision {
	r.texts = append(r.texts, text)
	return speech.Spoken
}

func newTestModel(t *testing.T, toks ...string) (*Model, *recordingAnnouncer) {
	t.Helper()
	st, err := store.Open(store.MemoryPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.New(st, tokens.New(toks),
		engine.WithRand(rand.New(rand.NewSource(7))),
		engine.WithLogger(logger),
		engine.WithFilter(model.FilterConfig{}))
	if err := eng.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	ann := &recordingAnnouncer{}
	return NewModel(eng, ann, 3, logger), ann
}

func press(m *Model, key string) {
	var msg tea.KeyMsg
	switch key {
	case " ":
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	m.Update(msg)
}

func TestRenderFooterFormats(t *testing.T) {
	m, _ := newTestModel(t, "a", "b", "c")
	press(m, " ")
	out := m.renderFooter()
	if !containsAll(out, []string{"Remaining 8/9", "Accepted 1", "Filter 0 hard · 0 prob @0%"}) {
		t.Fatalf("footer missing expected segments: %s", out)
	}
}

func TestDrawAnnouncesAndUndoRestores(t *testing.T) {
	m, ann := newTestModel(t, "a", "b")
	press(m, " ")
	if m.name == "" || len(ann.texts) != 1 || ann.texts[0] != m.name {
		t.Fatalf("expected drawn name to be announced, got name=%q texts=%v", m.name, ann.texts)
	}
	drawn := m.name
	press(m, "u")
	if m.eng.Remaining() != 4 || m.name != "" {
		t.Fatalf("expected undo to restore the pool, remaining=%d name=%q", m.eng.Remaining(), m.name)
	}
	if !strings.Contains(m.status, drawn) {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestExhaustionDisablesDrawsUntilReset(t *testing.T) {
	m, _ := newTestModel(t, "a")
	press(m, " ")
	press(m, " ")
	if !m.exhausted {
		t.Fatalf("expected exhausted pool")
	}
	press(m, " ")
	if !strings.Contains(m.status, "disabled") {
		t.Fatalf("expected disabled status, got %q", m.status)
	}
	press(m, "r")
	if m.exhausted || m.eng.Remaining() != 1 || len(m.recent) != 0 {
		t.Fatalf("expected reset pool, remaining=%d recent=%v", m.eng.Remaining(), m.recent)
	}
}

func TestBatchExcludeAndLedgers(t *testing.T) {
	m, _ := newTestModel(t, "a", "b", "c")
	press(m, "b")
	if len(m.recent) != 3 || m.eng.Remaining() != 6 {
		t.Fatalf("expected 3 batch draws, recent=%v remaining=%d", m.recent, m.eng.Remaining())
	}
	press(m, "x")
	press(m, "f")
	press(m, "tab")
	if m.view != viewHistory || len(m.ledger.Rows()) != 3 {
		t.Fatalf("expected history ledger with 3 rows, view=%d rows=%d", m.view, len(m.ledger.Rows()))
	}
	press(m, "tab")
	if m.view != viewFavorites || len(m.ledger.Rows()) != 1 {
		t.Fatalf("expected 1 favorite, got %d", len(m.ledger.Rows()))
	}
	press(m, "tab")
	if m.view != viewExcluded || len(m.ledger.Rows()) != 1 {
		t.Fatalf("expected 1 exclusion, got %d", len(m.ledger.Rows()))
	}
	press(m, "d")
	if len(m.ledger.Rows()) != 0 || m.eng.Remaining() != 7 {
		t.Fatalf("expected restore, rows=%d remaining=%d", len(m.ledger.Rows()), m.eng.Remaining())
	}
}

func containsAll(haystack string, needles []string) bool {
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}

type controlledAnnouncer struct {
	recordingAnnouncer
	cfg model.SpeechConfig
}

func (c *controlledAnnouncer) Config() model.SpeechConfig { return c.cfg }

func (c *controlledAnnouncer) Configure(cfg model.SpeechConfig) { c.cfg = cfg }

func TestMuteTogglesAndPersistsSpeech(t *testing.T) {
	m, _ := newTestModel(t, "a", "b")
	ann := &controlledAnnouncer{cfg: model.DefaultSpeechConfig()}
	m.announce = ann
	var saved []model.SpeechConfig
	m.OnSpeechChange(func(_ context.Context, cfg model.SpeechConfig) error {
		saved = append(saved, cfg)
		return nil
	})

	press(m, "m")
	if ann.cfg.Enabled || m.status != "speech muted" {
		t.Fatalf("expected muted speech, enabled=%t status=%q", ann.cfg.Enabled, m.status)
	}
	press(m, "m")
	if !ann.cfg.Enabled || len(saved) != 2 || !saved[1].Enabled {
		t.Fatalf("expected speech back on and two saves, got %v", saved)
	}
}

func TestMuteWithoutControlReportsUnavailable(t *testing.T) {
	m, _ := newTestModel(t, "a")
	press(m, "m")
	if m.status != "speech unavailable" {
		t.Fatalf("unexpected status %q", m.status)
	}
}
