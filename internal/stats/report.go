package stats

import (
	"context"
	"time"

	"github.com/verte-zerg/namedraw/internal/model"
	"github.com/verte-zerg/namedraw/internal/store"
	"github.com/verte-zerg/namedraw/internal/tokens"
)

// Report contains precomputed data for status rendering.
type Report struct {
	Tokens      int
	Total       int
	Remaining   int
	History     []model.HistoryEntry
	Favorites   int
	Excluded    int
	LastReset   time.Time
	TokenCounts []model.TokenCount
	ToneCounts  []ToneCount
}

// BuildReport loads ledgers and prepares data for status rendering.
func BuildReport(ctx context.Context, st *store.Store, universe *tokens.Universe, remaining int) (Report, error) {
	history, err := st.ListHistory(ctx)
	if err != nil {
		return Report{}, err
	}
	favorites, err := st.ListFavorites(ctx)
	if err != nil {
		return Report{}, err
	}
	excluded, err := st.ListExcluded(ctx)
	if err != nil {
		return Report{}, err
	}
	var stamp string
	var lastReset time.Time
	if ok, err := st.LoadJSON(ctx, store.KeyLastReset, &stamp); err != nil {
		return Report{}, err
	} else if ok {
		if parsed, perr := time.Parse(time.RFC3339, stamp); perr == nil {
			lastReset = parsed
		}
	}

	n := universe.Len()
	return Report{
		Tokens:      n,
		Total:       n * n,
		Remaining:   remaining,
		History:     history,
		Favorites:   len(favorites),
		Excluded:    len(excluded),
		LastReset:   lastReset,
		TokenCounts: TokenFrequency(history, universe),
		ToneCounts:  ToneFrequency(history),
	}, nil
}
