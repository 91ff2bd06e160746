package engine

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/namedraw/internal/model"
	"github.com/verte-zerg/namedraw/internal/phonetic"
	"github.com/verte-zerg/namedraw/internal/store"
	"github.com/verte-zerg/namedraw/internal/tokens"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openStore(t *testing.T) (*store.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "namedraw.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st, path
}

func newEngine(t *testing.T, st *store.Store, toks []string, opts ...Option) *Engine {
	t.Helper()
	base := []Option{
		WithRand(rand.New(rand.NewSource(1))),
		WithLogger(discardLogger()),
		WithFilter(model.FilterConfig{}),
	}
	e := New(st, tokens.New(toks), append(base, opts...)...)
	require.NoError(t, e.Load(context.Background()))
	return e
}

func TestExhaustiveDraw(t *testing.T) {
	ctx := context.Background()
	st, _ := openStore(t)
	e := newEngine(t, st, []string{"a", "b", "c"})
	require.Equal(t, 9, e.Remaining())

	seen := make(map[model.Pair]bool)
	for i := 0; i < 9; i++ {
		res, err := e.Draw(ctx)
		require.NoError(t, err)
		require.Equal(t, StatusAccepted, res.Status)
		assert.False(t, seen[res.Pair], "pair %v drawn twice", res.Pair)
		seen[res.Pair] = true
		assert.Equal(t, 8-i, res.Remaining)
	}
	res, err := e.Draw(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusExhausted, res.Status)
	assert.Len(t, e.History(), 9)
}

func TestHardRejectNeverAccepted(t *testing.T) {
	ctx := context.Background()
	st, _ := openStore(t)
	provider := phonetic.Static{"aa": {3, 3}, "ab": {3, 4}}
	e := newEngine(t, st, []string{"a", "b", "c"},
		WithProvider(provider),
		WithFilter(model.FilterConfig{HardReject: []model.Signature{{3, 3}}}))

	for run := 0; run < 20; run++ {
		require.NoError(t, e.Initialize(ctx, false, true))
		accepted := 0
		for {
			res, err := e.Draw(ctx)
			require.NoError(t, err)
			if res.Status != StatusAccepted {
				assert.Equal(t, StatusExhausted, res.Status)
				break
			}
			assert.NotEqual(t, "aa", res.Entry.Name)
			accepted++
		}
		assert.Equal(t, 8, accepted)
	}
}

func TestProbabilisticPercentBounds(t *testing.T) {
	ctx := context.Background()
	provider := phonetic.Static{"ab": {1, 2}}
	prob := []model.Signature{{1, 2}}

	st, _ := openStore(t)
	always := newEngine(t, st, []string{"a", "b"},
		WithProvider(provider),
		WithFilter(model.FilterConfig{ProbReject: prob, RejectPercent: 100}))
	for i := 0; i < 4; i++ {
		res, err := always.Draw(ctx)
		require.NoError(t, err)
		if res.Status == StatusAccepted {
			assert.NotEqual(t, "ab", res.Entry.Name)
		}
	}

	st2, _ := openStore(t)
	never := newEngine(t, st2, []string{"a", "b"},
		WithProvider(provider),
		WithFilter(model.FilterConfig{ProbReject: prob, RejectPercent: 0}))
	names := make(map[string]bool)
	for i := 0; i < 4; i++ {
		res, err := never.Draw(ctx)
		require.NoError(t, err)
		require.Equal(t, StatusAccepted, res.Status)
		names[res.Entry.Name] = true
	}
	assert.True(t, names["ab"])
}

func TestFilterExhausted(t *testing.T) {
	ctx := context.Background()
	st, _ := openStore(t)
	provider := phonetic.Static{}
	for _, name := range []string{"aa", "ab", "ba", "bb"} {
		provider[name] = model.Signature{1, 1}
	}
	e := newEngine(t, st, []string{"a", "b"},
		WithProvider(provider),
		WithFilter(model.FilterConfig{HardReject: []model.Signature{{1, 1}}}))

	res, err := e.Draw(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusFilterExhausted, res.Status)
	assert.Equal(t, 4, res.Rejected)
	assert.Equal(t, 0, e.Remaining())
	assert.Empty(t, e.History())

	res, err = e.Draw(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusExhausted, res.Status)
}

func TestUndoMakesNameDrawableAgain(t *testing.T) {
	ctx := context.Background()
	st, _ := openStore(t)
	e := newEngine(t, st, []string{"a", "b", "c"})

	_, err := e.Undo(ctx)
	require.ErrorIs(t, err, ErrUndoUnavailable)

	first, err := e.Draw(ctx)
	require.NoError(t, err)
	require.Equal(t, 8, e.Remaining())

	undone, err := e.Undo(ctx)
	require.NoError(t, err)
	assert.True(t, undone.Restored)
	assert.Equal(t, first.Entry.Name, undone.Entry.Name)
	assert.Equal(t, 9, e.Remaining())
	assert.Empty(t, e.History())

	again, err := e.Draw(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Entry.Name, again.Entry.Name)

	persisted, err := st.ListHistory(ctx)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, again.Entry.Name, persisted[0].Name)
}

func TestUndoAfterExhaustionRepeatsOnePair(t *testing.T) {
	ctx := context.Background()
	st, _ := openStore(t)
	e := newEngine(t, st, []string{"a", "b", "c"})

	counts := make(map[model.Pair]int)
	for i := 0; i < 9; i++ {
		res, err := e.Draw(ctx)
		require.NoError(t, err)
		require.Equal(t, StatusAccepted, res.Status)
		counts[res.Pair]++
	}
	undone, err := e.Undo(ctx)
	require.NoError(t, err)
	assert.True(t, undone.Restored)

	res, err := e.Draw(ctx)
	require.NoError(t, err)
	require.Equal(t, StatusAccepted, res.Status)
	assert.Equal(t, undone.Entry.Name, res.Entry.Name)
	counts[res.Pair]++

	repeats := 0
	for _, n := range counts {
		if n > 1 {
			repeats++
		}
	}
	assert.Equal(t, 1, repeats)
	assert.Len(t, counts, 9)

	res, err = e.Draw(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusExhausted, res.Status)
}

func TestUndoAfterFailedAppendKeepsPersistedHistory(t *testing.T) {
	ctx := context.Background()
	st, path := openStore(t)
	e := newEngine(t, st, []string{"a", "b", "c"})

	first, err := e.Draw(ctx)
	require.NoError(t, err)
	require.NotZero(t, first.Entry.ID)

	side, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer side.Close()
	_, err = side.ExecContext(ctx, `ALTER TABLE history RENAME TO history_parked`)
	require.NoError(t, err)

	second, err := e.Draw(ctx)
	require.NoError(t, err)
	require.Equal(t, StatusAccepted, second.Status)
	assert.Zero(t, second.Entry.ID)

	_, err = side.ExecContext(ctx, `ALTER TABLE history_parked RENAME TO history`)
	require.NoError(t, err)

	undone, err := e.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.Entry.Name, undone.Entry.Name)
	require.Len(t, e.History(), 1)
	assert.Equal(t, first.Entry.Name, e.History()[0].Name)

	persisted, err := st.ListHistory(ctx)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, first.Entry.Name, persisted[0].Name)
	assert.Equal(t, first.Entry.ID, persisted[0].ID)
}

func TestUndoKeepsExcludedNameOut(t *testing.T) {
	ctx := context.Background()
	st, _ := openStore(t)
	e := newEngine(t, st, []string{"a", "b"})

	res, err := e.Draw(ctx)
	require.NoError(t, err)
	_, err = e.Exclude(ctx, res.Pair)
	require.NoError(t, err)
	require.Equal(t, 3, e.Remaining())

	undone, err := e.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, res.Entry.Name, undone.Entry.Name)
	assert.False(t, undone.Restored)
	assert.Equal(t, 3, e.Remaining())
	assert.Empty(t, e.History())

	lookup, err := e.Lookup(ctx, res.Entry.Name)
	require.NoError(t, err)
	assert.True(t, lookup.Excluded)
	assert.False(t, lookup.Remaining)
}

func TestSmartResetKeepsExclusionsOut(t *testing.T) {
	ctx := context.Background()
	st, _ := openStore(t)
	e := newEngine(t, st, []string{"a", "b", "c"})

	pair, err := e.Resolve("cc")
	require.NoError(t, err)
	_, err = e.Exclude(ctx, pair)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		res, err := e.Draw(ctx)
		require.NoError(t, err)
		require.NotEqual(t, "cc", res.Entry.Name)
	}

	require.NoError(t, e.Initialize(ctx, true, false))
	assert.Equal(t, 5, e.Remaining())
	lookup, err := e.Lookup(ctx, "cc")
	require.NoError(t, err)
	assert.True(t, lookup.Excluded)
	assert.False(t, lookup.Remaining)

	require.NoError(t, e.Initialize(ctx, false, true))
	assert.Equal(t, 9, e.Remaining())
	excluded, err := e.Excluded(ctx)
	require.NoError(t, err)
	assert.Empty(t, excluded)
}

func TestInitializeSmartReset(t *testing.T) {
	ctx := context.Background()
	st, _ := openStore(t)
	e := newEngine(t, st, []string{"a", "b", "c"})

	var drawn []string
	for i := 0; i < 3; i++ {
		res, err := e.Draw(ctx)
		require.NoError(t, err)
		drawn = append(drawn, res.Entry.Name)
	}

	require.NoError(t, e.Initialize(ctx, true, false))
	assert.Equal(t, 6, e.Remaining())
	assert.Len(t, e.History(), 3)
	for _, name := range drawn {
		lookup, err := e.Lookup(ctx, name)
		require.NoError(t, err)
		assert.False(t, lookup.Remaining)
		assert.True(t, lookup.Drawn)
	}

	require.NoError(t, e.Initialize(ctx, false, true))
	assert.Equal(t, 9, e.Remaining())
	assert.Empty(t, e.History())
	var stamp string
	ok, err := st.LoadJSON(ctx, store.KeyLastReset, &stamp)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, stamp)
}

func TestExcludeAndRestore(t *testing.T) {
	ctx := context.Background()
	st, _ := openStore(t)
	e := newEngine(t, st, []string{"a", "b"})

	pair, err := e.Resolve("ba")
	require.NoError(t, err)
	entry, err := e.Exclude(ctx, pair)
	require.NoError(t, err)
	assert.Equal(t, "ba", entry.Name)
	assert.Equal(t, 3, e.Remaining())

	for i := 0; i < 3; i++ {
		res, err := e.Draw(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, "ba", res.Entry.Name)
	}

	restored, err := e.Restore(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "ba", restored.Name)
	res, err := e.Draw(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ba", res.Entry.Name)

	_, err = e.Restore(ctx, entry.ID)
	assert.ErrorIs(t, err, ErrNotExcluded)
	_, err = e.Resolve("zz")
	assert.ErrorIs(t, err, ErrUnknownName)
}

func TestLoadResumesPersistedState(t *testing.T) {
	ctx := context.Background()
	st, path := openStore(t)
	e := newEngine(t, st, []string{"a", "b", "c"})
	for i := 0; i < 4; i++ {
		_, err := e.Draw(ctx)
		require.NoError(t, err)
	}
	require.NoError(t, e.ConfigureFilter(ctx, model.FilterConfig{ProbReject: []model.Signature{{2, 2}}, RejectPercent: 30}))
	require.NoError(t, e.Save(ctx))
	require.NoError(t, st.Close())

	reopened, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	resumed := New(reopened, tokens.New([]string{"a", "b", "c"}), WithLogger(discardLogger()))
	require.NoError(t, resumed.Load(ctx))
	assert.Equal(t, 5, resumed.Remaining())
	assert.Len(t, resumed.History(), 4)
	assert.Equal(t, 30, resumed.Filter().RejectPercent)
}

func TestLoadDropsOutOfRangeIndices(t *testing.T) {
	ctx := context.Background()
	st, _ := openStore(t)
	require.NoError(t, st.ReplaceRemaining(ctx, []int{0, 3, 8, 42}))
	e := New(st, tokens.New([]string{"a", "b", "c"}), WithLogger(discardLogger()))
	require.NoError(t, e.Load(ctx))
	assert.Equal(t, 3, e.Remaining())
}

func TestBatchDraw(t *testing.T) {
	ctx := context.Background()
	st, _ := openStore(t)
	e := newEngine(t, st, []string{"a", "b", "c"})

	_, err := e.BatchDraw(ctx, 0)
	require.ErrorIs(t, err, ErrInvalidBatch)
	_, err = e.BatchDraw(ctx, MaxBatch+1)
	require.ErrorIs(t, err, ErrInvalidBatch)

	res, err := e.BatchDraw(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, res.Status)
	assert.Len(t, res.Draws, 5)
	assert.Equal(t, 4, res.Remaining)

	res, err = e.BatchDraw(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, StatusExhausted, res.Status)
	assert.Len(t, res.Draws, 4)

	persisted, err := st.ListHistory(ctx)
	require.NoError(t, err)
	assert.Len(t, persisted, 9)
	remaining, err := st.ListRemaining(ctx)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestConfigureFilterRejectsInvalid(t *testing.T) {
	st, _ := openStore(t)
	e := newEngine(t, st, []string{"a"})
	err := e.ConfigureFilter(context.Background(), model.FilterConfig{RejectPercent: 101})
	require.Error(t, err)
	assert.Equal(t, 0, e.Filter().RejectPercent)
}

func TestFavorites(t *testing.T) {
	ctx := context.Background()
	st, _ := openStore(t)
	e := newEngine(t, st, []string{"a", "b"})
	pair, err := e.Resolve("ab")
	require.NoError(t, err)
	fav, err := e.AddFavorite(ctx, pair)
	require.NoError(t, err)
	favorites, err := e.Favorites(ctx)
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	require.NoError(t, e.RemoveFavorite(ctx, fav.ID))
	favorites, err = e.Favorites(ctx)
	require.NoError(t, err)
	assert.Empty(t, favorites)
}

func TestStorageFailuresKeepDrawing(t *testing.T) {
	ctx := context.Background()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	e := newEngine(t, store.New(db), []string{"a", "b"})
	assert.Equal(t, 4, e.Remaining())

	res, err := e.Draw(ctx)
	require.NoError(t, err)
	require.Equal(t, StatusAccepted, res.Status)
	assert.Zero(t, res.Entry.ID)

	undone, err := e.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, res.Entry.Name, undone.Entry.Name)
	assert.Equal(t, 4, e.Remaining())
	assert.Error(t, e.Save(ctx))
}

func TestCache(t *testing.T) {
	c := NewCache([]int{1, 2, 3})
	assert.False(t, c.Push(2))
	assert.True(t, c.Remove(1))
	assert.False(t, c.Contains(1))
	idx, ok := c.Pop()
	require.True(t, ok)
	assert.Equal(t, 2, idx)
	idx, ok = c.Pop()
	require.True(t, ok)
	assert.Equal(t, 3, idx)
	_, ok = c.Pop()
	assert.False(t, ok)
}
