// Package tui provides the Bubble Tea draw shell.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/namedraw/internal/engine"
	"github.com/verte-zerg/namedraw/internal/model"
	"github.com/verte-zerg/namedraw/internal/speech"
)

const recentLimit = 24

const (
	viewDraw = iota
	viewHistory
	viewFavorites
	viewExcluded
)

var viewNames = []string{"Draw", "History", "Favorites", "Excluded"}

var (
	nameStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true).Padding(0, 2)
	readingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	recentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	latestStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#B0B0B0"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	activeTab    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true).Underline(true)
	inactiveTab  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// Announcer speaks drawn names.
type Announcer interface {
	Announce(text string) speech.Decision
}

// SpeechControl is implemented by announcers whose settings can change at runtime.
type SpeechControl interface {
	Config() model.SpeechConfig
	Configure(cfg model.SpeechConfig)
}

// Model implements the Bubble Tea draw shell.
type Model struct {
	eng      *engine.Engine
	announce Announcer
	batch    int
	logger   *slog.Logger

	width  int
	height int

	current   *model.Pair
	name      string
	reading   string
	recent    []string
	status    string
	errMsg    string
	exhausted bool

	view     int
	ledger   table.Model
	ledgerID []int64

	saveSpeech func(context.Context, model.SpeechConfig) error
}

// NewModel constructs the shell. announce may be nil when speech is off.
func NewModel(eng *engine.Engine, announce Announcer, batch int, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Model{
		eng:      eng,
		announce: announce,
		batch:    batch,
		logger:   logger,
		ledger:   newLedgerTable(),
	}
	for _, entry := range eng.History() {
		m.pushRecent(entry.Name)
	}
	m.status = "space to draw"
	return m
}

// OnSpeechChange registers fn to persist speech settings toggled from the shell.
func (m *Model) OnSpeechChange(fn func(context.Context, model.SpeechConfig) error) {
	m.saveSpeech = fn
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ledger.SetWidth(msg.Width)
		m.ledger.SetHeight(maxInt(3, msg.Height-4))
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctx := context.Background()
	switch msg.String() {
	case "ctrl+c", "q":
		m.quit(ctx)
		return m, tea.Quit
	case "tab":
		m.view = (m.view + 1) % len(viewNames)
		m.refreshLedger(ctx)
		return m, nil
	case "shift+tab":
		m.view = (m.view + len(viewNames) - 1) % len(viewNames)
		m.refreshLedger(ctx)
		return m, nil
	}

	if m.view != viewDraw {
		return m.handleLedgerKey(ctx, msg)
	}

	m.errMsg = ""
	switch msg.String() {
	case " ":
		m.draw(ctx)
	case "b":
		m.batchDraw(ctx)
	case "u":
		m.undo(ctx)
	case "x":
		m.exclude(ctx)
	case "f":
		m.favorite(ctx)
	case "t":
		m.speak()
	case "m":
		m.toggleSpeech(ctx)
	case "r":
		m.reset(ctx, false)
	case "R":
		m.reset(ctx, true)
	}
	return m, nil
}

func (m *Model) handleLedgerKey(ctx context.Context, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "d", "enter":
		m.deleteSelected(ctx)
		return m, nil
	}
	var cmd tea.Cmd
	m.ledger, cmd = m.ledger.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *Model) View() string {
	tabs := m.renderTabs()
	var body string
	if m.view == viewDraw {
		body = m.renderDraw()
	} else {
		body = m.ledger.View()
	}
	footer := m.renderFooter()
	if m.width == 0 || m.height == 0 {
		return tabs + "\n\n" + body + "\n\n" + footer
	}
	bodyHeight := maxInt(1, m.height-2)
	placed := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, body)
	if m.view != viewDraw {
		placed = lipgloss.Place(m.width, bodyHeight, lipgloss.Left, lipgloss.Top, body)
	}
	return tabs + "\n" + placed + "\n" + lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
}

func (m *Model) renderTabs() string {
	parts := make([]string, len(viewNames))
	for i, name := range viewNames {
		if i == m.view {
			parts[i] = activeTab.Render(name)
		} else {
			parts[i] = inactiveTab.Render(name)
		}
	}
	return strings.Join(parts, "  ")
}

func (m *Model) renderDraw() string {
	lines := []string{}
	if m.name != "" {
		lines = append(lines, nameStyle.Render(m.name))
		if m.reading != "" {
			lines = append(lines, readingStyle.Render(m.reading))
		}
	}
	if m.errMsg != "" {
		lines = append(lines, errorStyle.Render(m.errMsg))
	} else if m.status != "" {
		lines = append(lines, statusStyle.Render(m.status))
	}
	if len(m.recent) > 0 {
		width := m.width * 7 / 10
		lines = append(lines, "", wrapChips(buildChips(m.recent), width))
	}
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

func (m *Model) renderFooter() string {
	total := m.eng.Total()
	remaining := m.eng.Remaining()
	cfg := m.eng.Filter()
	segments := []string{
		fmt.Sprintf("Remaining %d/%d", remaining, total),
		fmt.Sprintf("Accepted %d", len(m.eng.History())),
		fmt.Sprintf("Filter %d hard · %d prob @%d%%", len(cfg.HardReject), len(cfg.ProbReject), cfg.RejectPercent),
	}
	if m.view == viewDraw {
		segments = append(segments, "space draw · b batch · u undo · x exclude · f fav · t speak · m mute · r/R reset · tab ledgers · q quit")
	} else {
		segments = append(segments, "↑/↓ select · d remove · tab next · q quit")
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func (m *Model) draw(ctx context.Context) {
	if m.exhausted {
		m.status = "draws disabled until reset or filter change"
		return
	}
	res, err := m.eng.Draw(ctx)
	if err != nil {
		m.fail("draw failed", err)
		return
	}
	m.applyResult(res)
}

func (m *Model) batchDraw(ctx context.Context) {
	if m.exhausted {
		m.status = "draws disabled until reset or filter change"
		return
	}
	res, err := m.eng.BatchDraw(ctx, m.batch)
	if err != nil {
		m.fail("batch draw failed", err)
		return
	}
	for _, d := range res.Draws {
		m.pushRecent(d.Entry.Name)
	}
	if n := len(res.Draws); n > 0 {
		last := res.Draws[n-1]
		m.setCurrent(last.Pair, last.Entry.Name)
		m.speakName(last.Entry.Name)
	}
	switch res.Status {
	case engine.StatusExhausted:
		m.exhausted = true
		m.status = fmt.Sprintf("drew %d, pool exhausted", len(res.Draws))
	case engine.StatusFilterExhausted:
		m.exhausted = true
		m.status = fmt.Sprintf("drew %d, filter rejected every candidate", len(res.Draws))
	default:
		m.status = fmt.Sprintf("drew %d (%d rejected)", len(res.Draws), res.Rejected)
	}
}

func (m *Model) applyResult(res engine.DrawResult) {
	switch res.Status {
	case engine.StatusExhausted:
		m.exhausted = true
		m.status = "pool exhausted, press r to reset"
	case engine.StatusFilterExhausted:
		m.exhausted = true
		m.status = fmt.Sprintf("filter rejected %d candidates, press r to reset", res.Rejected)
	default:
		m.setCurrent(res.Pair, res.Entry.Name)
		m.pushRecent(res.Entry.Name)
		m.speakName(res.Entry.Name)
		if res.Rejected > 0 {
			m.status = fmt.Sprintf("%d rejected", res.Rejected)
		} else {
			m.status = ""
		}
	}
}

func (m *Model) undo(ctx context.Context) {
	res, err := m.eng.Undo(ctx)
	if errors.Is(err, engine.ErrUndoUnavailable) {
		m.status = "nothing to undo"
		return
	}
	if err != nil {
		m.fail("undo failed", err)
		return
	}
	m.exhausted = false
	m.popRecent(res.Entry.Name)
	m.clearCurrent()
	m.status = "returned " + res.Entry.Name + " to the pool"
}

func (m *Model) exclude(ctx context.Context) {
	if m.current == nil {
		m.status = "draw a name first"
		return
	}
	entry, err := m.eng.Exclude(ctx, *m.current)
	if err != nil {
		m.fail("exclude failed", err)
		return
	}
	m.status = "excluded " + entry.Name
}

func (m *Model) favorite(ctx context.Context) {
	if m.current == nil {
		m.status = "draw a name first"
		return
	}
	entry, err := m.eng.AddFavorite(ctx, *m.current)
	if err != nil {
		m.fail("favorite failed", err)
		return
	}
	m.status = "saved " + entry.Name
}

func (m *Model) speak() {
	if m.name == "" {
		return
	}
	m.speakName(m.name)
}

func (m *Model) speakName(name string) {
	if m.announce == nil {
		return
	}
	decision := m.announce.Announce(name)
	m.logger.Debug("announce", "name", name, "decision", decision.String())
}

func (m *Model) toggleSpeech(ctx context.Context) {
	ctl, ok := m.announce.(SpeechControl)
	if !ok {
		m.status = "speech unavailable"
		return
	}
	cfg := ctl.Config()
	cfg.Enabled = !cfg.Enabled
	ctl.Configure(cfg)
	if m.saveSpeech != nil {
		if err := m.saveSpeech(ctx, cfg); err != nil {
			m.logger.Warn("failed to save speech config", "error", err)
		}
	}
	if cfg.Enabled {
		m.status = "speech on"
	} else {
		m.status = "speech muted"
	}
}

func (m *Model) reset(ctx context.Context, smart bool) {
	var err error
	if smart {
		err = m.eng.Initialize(ctx, true, false)
	} else {
		err = m.eng.Initialize(ctx, false, true)
		m.recent = nil
	}
	if err != nil {
		m.fail("reset failed", err)
		return
	}
	m.exhausted = false
	m.clearCurrent()
	m.status = fmt.Sprintf("pool reset, %d remaining", m.eng.Remaining())
}

func (m *Model) quit(ctx context.Context) {
	if err := m.eng.Save(ctx); err != nil {
		m.logger.Warn("failed to save draw pool", "error", err)
	}
}

func (m *Model) fail(what string, err error) {
	m.errMsg = what + ": " + err.Error()
	m.logger.Error(what, "error", err)
}

func (m *Model) setCurrent(pair model.Pair, name string) {
	p := pair
	m.current = &p
	m.name = name
	m.reading = m.eng.Reading(name)
}

func (m *Model) clearCurrent() {
	m.current = nil
	m.name = ""
	m.reading = ""
}

func (m *Model) pushRecent(name string) {
	m.recent = append(m.recent, name)
	if len(m.recent) > recentLimit {
		m.recent = m.recent[len(m.recent)-recentLimit:]
	}
}

func (m *Model) popRecent(name string) {
	if n := len(m.recent); n > 0 && m.recent[n-1] == name {
		m.recent = m.recent[:n-1]
	}
}

func (m *Model) refreshLedger(ctx context.Context) {
	var cols []table.Column
	var rows []table.Row
	m.ledgerID = nil
	switch m.view {
	case viewHistory:
		cols = []table.Column{{Title: "#", Width: 5}, {Title: "Name", Width: 8}, {Title: "Reading", Width: 16}, {Title: "Tones", Width: 6}, {Title: "Drawn", Width: 19}}
		history := m.eng.History()
		for i := len(history) - 1; i >= 0; i-- {
			e := history[i]
			rows = append(rows, table.Row{
				strconv.Itoa(i + 1),
				e.Name,
				m.eng.Reading(e.Name),
				e.Signature.String(),
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			})
		}
	case viewFavorites, viewExcluded:
		cols = []table.Column{{Title: "ID", Width: 6}, {Title: "Name", Width: 8}, {Title: "Reading", Width: 16}, {Title: "Added", Width: 19}}
		var entries []model.LedgerEntry
		var err error
		if m.view == viewFavorites {
			entries, err = m.eng.Favorites(ctx)
		} else {
			entries, err = m.eng.Excluded(ctx)
		}
		if err != nil {
			m.fail("failed to load ledger", err)
		}
		for _, e := range entries {
			m.ledgerID = append(m.ledgerID, e.ID)
			rows = append(rows, table.Row{
				strconv.FormatInt(e.ID, 10),
				e.Name,
				m.eng.Reading(e.Name),
				e.Timestamp.Local().Format("2006-01-02 15:04"),
			})
		}
	default:
		return
	}
	m.ledger.SetRows(nil)
	m.ledger.SetColumns(cols)
	m.ledger.SetRows(rows)
	m.ledger.GotoTop()
}

func (m *Model) deleteSelected(ctx context.Context) {
	idx := m.ledger.Cursor()
	if idx < 0 || idx >= len(m.ledgerID) {
		return
	}
	id := m.ledgerID[idx]
	switch m.view {
	case viewFavorites:
		if err := m.eng.RemoveFavorite(ctx, id); err != nil {
			m.fail("remove favorite failed", err)
			return
		}
	case viewExcluded:
		entry, err := m.eng.Restore(ctx, id)
		if err != nil {
			m.fail("restore failed", err)
			return
		}
		m.exhausted = false
		m.status = "restored " + entry.Name
	default:
		return
	}
	m.refreshLedger(ctx)
}

func newLedgerTable() table.Model {
	t := table.New(table.WithFocused(true), table.WithHeight(10))
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("#F0F0F0")).
		Background(lipgloss.Color("#4A4A4A"))
	t.SetStyles(styles)
	return t
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
