package stats

import "github.com/verte-zerg/namedraw/internal/model"

// TopTokens returns the n most drawn tokens. counts must be sorted as TokenFrequency returns them.
func TopTokens(counts []model.TokenCount, n int) []string {
	if n <= 0 || len(counts) == 0 {
		return nil
	}
	if n > len(counts) {
		n = len(counts)
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if counts[i].Count == 0 {
			break
		}
		out = append(out, counts[i].Token)
	}
	return out
}
