// Package engine draws unique token pairs without repetition.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/verte-zerg/namedraw/internal/combo"
	"github.com/verte-zerg/namedraw/internal/filter"
	"github.com/verte-zerg/namedraw/internal/model"
	"github.com/verte-zerg/namedraw/internal/phonetic"
	"github.com/verte-zerg/namedraw/internal/store"
	"github.com/verte-zerg/namedraw/internal/tokens"
)

const (
	// MaxAttempts caps the rejection loop of a single draw.
	MaxAttempts = 1000
	// MaxBatch caps BatchDraw.
	MaxBatch = 1000
)

var (
	// ErrUndoUnavailable is returned when there is no accepted draw to undo.
	ErrUndoUnavailable = errors.New("nothing to undo")
	// ErrUnknownName is returned for names that are not two known tokens.
	ErrUnknownName = errors.New("unknown name")
	// ErrNotExcluded is returned when an exclusion id does not exist.
	ErrNotExcluded = errors.New("exclusion not found")
	// ErrInvalidBatch is returned for batch sizes outside [1, MaxBatch].
	ErrInvalidBatch = errors.New("invalid batch size")
)

// Status describes how a draw ended.
type Status int

const (
	StatusAccepted Status = iota
	StatusExhausted
	StatusFilterExhausted
)

func (s Status) String() string {
	switch s {
	case StatusAccepted:
		return "accepted"
	case StatusExhausted:
		return "exhausted"
	case StatusFilterExhausted:
		return "filter-exhausted"
	default:
		return "unknown"
	}
}

// DrawResult is the outcome of one draw.
type DrawResult struct {
	Status    Status
	Pair      model.Pair
	Entry     model.HistoryEntry
	Remaining int
	Rejected  int
}

// BatchResult collects the accepted draws of a BatchDraw and the final status.
type BatchResult struct {
	Draws     []DrawResult
	Status    Status
	Remaining int
	Rejected  int
}

// UndoResult reports a reverted draw.
type UndoResult struct {
	Entry    model.HistoryEntry
	Restored bool
}

// LookupResult reports where a name stands.
type LookupResult struct {
	Name      string
	Pair      model.Pair
	Index     int
	Remaining bool
	Drawn     bool
	Excluded  bool
	Signature model.Signature
	Reading   string
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand sets the random source used for shuffling and rejection rolls.
func WithRand(rnd *rand.Rand) Option {
	return func(e *Engine) { e.rnd = rnd }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithProvider sets the signature provider.
func WithProvider(p phonetic.Provider) Option {
	return func(e *Engine) { e.provider = p }
}

// WithFilter sets the initial filter configuration.
func WithFilter(cfg model.FilterConfig) Option {
	return func(e *Engine) { e.filter = cfg }
}

// Engine owns the remaining cache, the in-memory history mirror and the filter.
// The cache is authoritative; store failures are logged and skipped.
type Engine struct {
	mu       sync.Mutex
	store    *store.Store
	universe *tokens.Universe
	space    combo.Space
	provider phonetic.Provider
	filter   model.FilterConfig
	cache    *Cache
	history  []model.HistoryEntry
	rnd      *rand.Rand
	now      func() time.Time
	logger   *slog.Logger
}

// New creates an engine over the token universe. Call Load or Initialize before drawing.
func New(st *store.Store, universe *tokens.Universe, opts ...Option) *Engine {
	e := &Engine{
		store:    st,
		universe: universe,
		space:    combo.New(universe.Len()),
		provider: phonetic.Nop{},
		filter:   model.DefaultFilterConfig(),
		cache:    NewCache(nil),
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type mutator interface {
	DeleteRemaining(ctx context.Context, index int) error
	InsertRemaining(ctx context.Context, index int) error
	AppendHistory(ctx context.Context, entry model.HistoryEntry) (int64, error)
}

type nopMutator struct{}

func (nopMutator) DeleteRemaining(context.Context, int) error { return nil }

func (nopMutator) InsertRemaining(context.Context, int) error { return nil }

func (nopMutator) AppendHistory(context.Context, model.HistoryEntry) (int64, error) { return 0, nil }

// begin opens a store transaction. When that fails the call proceeds in memory only.
// Callers must hold e.mu until the returned finish func has run.
func (e *Engine) begin(ctx context.Context) (mutator, func()) {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		e.logger.Warn("failed to begin draw transaction", "error", err)
		return nopMutator{}, func() {}
	}
	from := len(e.history)
	return tx, func() {
		if err := tx.Commit(); err != nil {
			e.logger.Warn("failed to commit draw transaction", "error", err)
			// The rows were rolled back; their ids may be reused by later appends.
			for i := from; i < len(e.history); i++ {
				e.history[i].ID = 0
			}
		}
	}
}

// Initialize rebuilds the remaining set. excludeDrawn leaves out names already in history;
// resetLedgers clears history, favorites and exclusions.
func (e *Engine) Initialize(ctx context.Context, excludeDrawn, resetLedgers bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initialize(ctx, excludeDrawn, resetLedgers)
}

func (e *Engine) initialize(ctx context.Context, excludeDrawn, resetLedgers bool) error {
	drawn := make(map[int]struct{})
	skip := func(name string) {
		pair, ok := e.universe.Split(name)
		if !ok {
			return
		}
		idx, err := e.space.PairToIndex(pair)
		if err != nil {
			return
		}
		drawn[idx] = struct{}{}
	}
	if excludeDrawn {
		for _, entry := range e.history {
			skip(entry.Name)
		}
	}
	// Kept exclusions stay out of the pool until restored.
	if !resetLedgers {
		for name := range e.excludedNames(ctx) {
			skip(name)
		}
	}

	size := e.space.Size()
	indices := make([]int, 0, size-len(drawn))
	for i := 0; i < size; i++ {
		if _, ok := drawn[i]; ok {
			continue
		}
		indices = append(indices, i)
	}
	e.cache = NewCache(indices)
	e.cache.Shuffle(e.rnd)

	if err := e.store.ReplaceRemaining(ctx, e.cache.Snapshot()); err != nil {
		e.logger.Warn("failed to persist remaining indices", "error", err)
	}
	if resetLedgers {
		e.history = nil
		if err := e.store.ClearLedgers(ctx); err != nil {
			e.logger.Warn("failed to clear ledgers", "error", err)
		}
		if err := e.store.SaveJSON(ctx, store.KeyLastReset, e.now().Format(time.RFC3339)); err != nil {
			e.logger.Warn("failed to record reset time", "error", err)
		}
	}
	e.logger.Info("initialized draw pool", "remaining", e.cache.Len(), "exclude_drawn", excludeDrawn, "reset_ledgers", resetLedgers)
	return nil
}

// Load restores the remaining set, history and filter from the store.
// An empty store is initialized from scratch.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.loadFilter(ctx)

	history, err := e.store.ListHistory(ctx)
	if err != nil {
		e.logger.Warn("failed to load history", "error", err)
		history = nil
	}
	e.history = history

	stored, err := e.store.ListRemaining(ctx)
	if err != nil {
		e.logger.Warn("failed to load remaining indices", "error", err)
		stored = nil
	}
	if len(stored) == 0 && len(e.history) == 0 {
		return e.initialize(ctx, false, true)
	}

	valid := make([]int, 0, len(stored))
	dropped := 0
	for _, idx := range stored {
		if !e.space.Contains(idx) {
			dropped++
			continue
		}
		valid = append(valid, idx)
	}
	if dropped > 0 {
		e.logger.Warn("dropped out-of-range remaining indices", "count", dropped, "tokens", e.universe.Len())
	}
	e.cache = NewCache(valid)
	e.cache.Shuffle(e.rnd)
	e.logger.Debug("loaded draw pool", "remaining", e.cache.Len(), "history", len(e.history))
	return nil
}

// Draw pops candidates until one passes the filter, the cache empties
// or MaxAttempts candidates were rejected. Rejected candidates are spent.
func (e *Engine) Draw(ctx context.Context) (DrawResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	w, finish := e.begin(ctx)
	defer finish()
	return e.drawOne(ctx, w)
}

// BatchDraw draws up to n names in one store transaction.
func (e *Engine) BatchDraw(ctx context.Context, n int) (BatchResult, error) {
	if n < 1 || n > MaxBatch {
		return BatchResult{}, fmt.Errorf("%d not in [1,%d]: %w", n, MaxBatch, ErrInvalidBatch)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	w, finish := e.begin(ctx)
	defer finish()

	result := BatchResult{Status: StatusAccepted}
	for len(result.Draws) < n {
		res, err := e.drawOne(ctx, w)
		if err != nil {
			return result, err
		}
		result.Rejected += res.Rejected
		result.Remaining = res.Remaining
		if res.Status != StatusAccepted {
			result.Status = res.Status
			break
		}
		result.Draws = append(result.Draws, res)
	}
	return result, nil
}

func (e *Engine) maxAttempts() int {
	size := e.space.Size()
	if size < MaxAttempts {
		return size
	}
	return MaxAttempts
}

func (e *Engine) drawOne(ctx context.Context, w mutator) (DrawResult, error) {
	if e.cache.Len() == 0 {
		return DrawResult{Status: StatusExhausted}, nil
	}
	rejected := 0
	for attempt := 0; attempt < e.maxAttempts(); attempt++ {
		idx, ok := e.cache.Pop()
		if !ok {
			return DrawResult{Status: StatusExhausted, Rejected: rejected}, nil
		}
		if err := w.DeleteRemaining(ctx, idx); err != nil {
			e.logger.Warn("failed to delete remaining index", "index", idx, "error", err)
		}
		pair, err := e.space.IndexToPair(idx)
		if err != nil {
			return DrawResult{}, err
		}
		name := e.universe.Name(pair)
		sig, hasSig := e.provider.Signature(name)
		verdict := filter.Classify(sig, hasSig, e.filter)
		if filter.Rejects(verdict, e.filter, e.rnd.Intn(100)+1) {
			rejected++
			e.logger.Debug("rejected candidate", "name", name, "signature", sig.String(), "verdict", verdict.String())
			continue
		}

		entry := model.HistoryEntry{Timestamp: e.now(), Name: name}
		if hasSig {
			entry.Signature = sig
		}
		id, err := w.AppendHistory(ctx, entry)
		if err != nil {
			e.logger.Warn("failed to append history", "name", name, "error", err)
		}
		entry.ID = id
		e.history = append(e.history, entry)
		return DrawResult{
			Status:    StatusAccepted,
			Pair:      pair,
			Entry:     entry,
			Remaining: e.cache.Len(),
			Rejected:  rejected,
		}, nil
	}
	return DrawResult{Status: StatusFilterExhausted, Remaining: e.cache.Len(), Rejected: rejected}, nil
}

// Undo reverts the latest accepted draw and makes its name drawable again.
func (e *Engine) Undo(ctx context.Context) (UndoResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.history) == 0 {
		return UndoResult{}, ErrUndoUnavailable
	}
	last := e.history[len(e.history)-1]
	e.history = e.history[:len(e.history)-1]
	// ID 0 means the append never reached the store.
	if last.ID != 0 {
		if err := e.store.DeleteHistory(ctx, last.ID); err != nil {
			e.logger.Warn("failed to delete history entry", "id", last.ID, "name", last.Name, "error", err)
		}
	}

	result := UndoResult{Entry: last}
	pair, ok := e.universe.Split(last.Name)
	if !ok {
		e.logger.Warn("undone name is no longer in the token list", "name", last.Name)
		return result, nil
	}
	idx, err := e.space.PairToIndex(pair)
	if err != nil {
		return result, err
	}
	if _, excluded := e.excludedNames(ctx)[last.Name]; excluded {
		e.logger.Info("undone name stays excluded", "name", last.Name)
		return result, nil
	}
	if e.cache.Push(idx) {
		result.Restored = true
		if err := e.store.InsertRemaining(ctx, idx); err != nil {
			e.logger.Warn("failed to restore remaining index", "index", idx, "error", err)
		}
	}
	return result, nil
}

// Resolve maps a two-token name to its pair.
func (e *Engine) Resolve(name string) (model.Pair, error) {
	pair, ok := e.universe.Split(name)
	if !ok {
		return model.Pair{}, fmt.Errorf("%q: %w", name, ErrUnknownName)
	}
	return pair, nil
}

// Exclude removes a pair from the pool for good and records it.
func (e *Engine) Exclude(ctx context.Context, pair model.Pair) (model.LedgerEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx, err := e.space.PairToIndex(pair)
	if err != nil {
		return model.LedgerEntry{}, err
	}
	if e.cache.Remove(idx) {
		if err := e.store.DeleteRemaining(ctx, idx); err != nil {
			e.logger.Warn("failed to delete remaining index", "index", idx, "error", err)
		}
	}
	entry := model.LedgerEntry{Timestamp: e.now(), Name: e.universe.Name(pair)}
	id, err := e.store.AppendExcluded(ctx, entry)
	if err != nil {
		e.logger.Warn("failed to record exclusion", "name", entry.Name, "error", err)
	}
	entry.ID = id
	return entry, nil
}

// Restore undoes an exclusion.
func (e *Engine) Restore(ctx context.Context, excludedID int64) (model.LedgerEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok, err := e.store.GetExcluded(ctx, excludedID)
	if err != nil {
		return model.LedgerEntry{}, fmt.Errorf("failed to read exclusion %d: %w", excludedID, err)
	}
	if !ok {
		return model.LedgerEntry{}, fmt.Errorf("id %d: %w", excludedID, ErrNotExcluded)
	}
	pair, ok := e.universe.Split(entry.Name)
	if !ok {
		return entry, fmt.Errorf("%q: %w", entry.Name, ErrUnknownName)
	}
	idx, err := e.space.PairToIndex(pair)
	if err != nil {
		return entry, err
	}
	if e.cache.Push(idx) {
		if err := e.store.InsertRemaining(ctx, idx); err != nil {
			e.logger.Warn("failed to restore remaining index", "index", idx, "error", err)
		}
	}
	if err := e.store.DeleteExcluded(ctx, excludedID); err != nil {
		e.logger.Warn("failed to delete exclusion", "id", excludedID, "error", err)
	}
	return entry, nil
}

// AddFavorite records a pair as a favorite.
func (e *Engine) AddFavorite(ctx context.Context, pair model.Pair) (model.LedgerEntry, error) {
	if _, err := e.space.PairToIndex(pair); err != nil {
		return model.LedgerEntry{}, err
	}
	entry := model.LedgerEntry{Timestamp: e.now(), Name: e.universe.Name(pair)}
	id, err := e.store.AppendFavorite(ctx, entry)
	if err != nil {
		return model.LedgerEntry{}, fmt.Errorf("failed to add favorite: %w", err)
	}
	entry.ID = id
	return entry, nil
}

// RemoveFavorite deletes a favorite by id.
func (e *Engine) RemoveFavorite(ctx context.Context, id int64) error {
	if err := e.store.DeleteFavorite(ctx, id); err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return nil
}

// ConfigureFilter validates and applies cfg, then persists it.
func (e *Engine) ConfigureFilter(ctx context.Context, cfg model.FilterConfig) error {
	if err := filter.Validate(cfg); err != nil {
		return err
	}
	e.mu.Lock()
	e.filter = cfg
	e.mu.Unlock()
	if err := e.store.SaveJSON(ctx, store.KeyFilterConfig, cfg); err != nil {
		e.logger.Warn("failed to persist filter config", "error", err)
	}
	return nil
}

// Filter returns the active filter configuration.
func (e *Engine) Filter() model.FilterConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filter
}

func (e *Engine) loadFilter(ctx context.Context) {
	var cfg model.FilterConfig
	ok, err := e.store.LoadJSON(ctx, store.KeyFilterConfig, &cfg)
	if err != nil {
		e.logger.Warn("failed to load filter config", "error", err)
		return
	}
	if !ok {
		return
	}
	if err := filter.Validate(cfg); err != nil {
		e.logger.Warn("ignoring stored filter config", "error", err)
		return
	}
	e.filter = cfg
}

// Save writes the cache back to the store.
func (e *Engine) Save(ctx context.Context) error {
	e.mu.Lock()
	snapshot := e.cache.Snapshot()
	e.mu.Unlock()
	if err := e.store.ReplaceRemaining(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to save remaining indices: %w", err)
	}
	return nil
}

// Lookup reports whether name is remaining, drawn or excluded.
func (e *Engine) Lookup(ctx context.Context, name string) (LookupResult, error) {
	pair, err := e.Resolve(name)
	if err != nil {
		return LookupResult{}, err
	}
	idx, err := e.space.PairToIndex(pair)
	if err != nil {
		return LookupResult{}, err
	}
	canonical := e.universe.Name(pair)
	result := LookupResult{Name: canonical, Pair: pair, Index: idx}
	result.Signature, _ = e.provider.Signature(canonical)
	result.Reading = e.provider.Display(canonical)

	e.mu.Lock()
	result.Remaining = e.cache.Contains(idx)
	for _, entry := range e.history {
		if entry.Name == canonical {
			result.Drawn = true
			break
		}
	}
	e.mu.Unlock()

	_, result.Excluded = e.excludedNames(ctx)[canonical]
	return result, nil
}

// excludedNames returns the names in the exclusion ledger. A read failure yields an empty set.
func (e *Engine) excludedNames(ctx context.Context) map[string]struct{} {
	names := make(map[string]struct{})
	entries, err := e.store.ListExcluded(ctx)
	if err != nil {
		e.logger.Warn("failed to list exclusions", "error", err)
		return names
	}
	for _, entry := range entries {
		names[entry.Name] = struct{}{}
	}
	return names
}

// Favorites lists favorites oldest first.
func (e *Engine) Favorites(ctx context.Context) ([]model.LedgerEntry, error) {
	return e.store.ListFavorites(ctx)
}

// Excluded lists exclusions newest first.
func (e *Engine) Excluded(ctx context.Context) ([]model.LedgerEntry, error) {
	return e.store.ListExcluded(ctx)
}

// History returns a copy of the accepted draws in order.
func (e *Engine) History() []model.HistoryEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.HistoryEntry, len(e.history))
	copy(out, e.history)
	return out
}

// Remaining returns the number of undrawn indices.
func (e *Engine) Remaining() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cache.Len()
}

// Total returns N².
func (e *Engine) Total() int {
	return e.space.Size()
}

// Tokens returns the token universe.
func (e *Engine) Tokens() *tokens.Universe {
	return e.universe
}

// Reading returns the provider's display reading of name.
func (e *Engine) Reading(name string) string {
	return e.provider.Display(name)
}
