package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/verte-zerg/namedraw/internal/model"
	"github.com/verte-zerg/namedraw/internal/tokens"
)

const sparkChars = " .:-=+*#%@"

// ToneCount is a signature with the number of accepted draws carrying it.
type ToneCount struct {
	Signature string
	Count     int
}

// TokenFrequency counts how often each token appears in accepted draws.
// Tokens never drawn are included with a zero count.
func TokenFrequency(history []model.HistoryEntry, universe *tokens.Universe) []model.TokenCount {
	counts := make(map[string]int, universe.Len())
	for _, tok := range universe.List() {
		counts[tok] = 0
	}
	for _, entry := range history {
		pair, ok := universe.Split(entry.Name)
		if !ok {
			continue
		}
		counts[universe.Token(pair.A)]++
		counts[universe.Token(pair.B)]++
	}
	out := make([]model.TokenCount, 0, len(counts))
	for tok, n := range counts {
		out = append(out, model.TokenCount{Token: tok, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Token < out[j].Token
		}
		return out[i].Count > out[j].Count
	})
	return out
}

// ToneFrequency groups accepted draws by signature. Draws without one count as "?".
func ToneFrequency(history []model.HistoryEntry) []ToneCount {
	counts := make(map[string]int)
	for _, entry := range history {
		key := "?"
		if len(entry.Signature) > 0 {
			key = entry.Signature.String()
		}
		counts[key]++
	}
	out := make([]ToneCount, 0, len(counts))
	for sig, n := range counts {
		out = append(out, ToneCount{Signature: sig, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Signature < out[j].Signature
		}
		return out[i].Count > out[j].Count
	})
	return out
}

// DailyCounts buckets draws by local calendar day, oldest first, including empty days.
func DailyCounts(history []model.HistoryEntry, loc *time.Location) []float64 {
	if len(history) == 0 {
		return nil
	}
	day := func(ts time.Time) time.Time {
		t := ts.In(loc)
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	}
	first := day(history[0].Timestamp)
	last := first
	for _, entry := range history {
		d := day(entry.Timestamp)
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}
	days := int(math.Round(last.Sub(first).Hours()/24)) + 1
	out := make([]float64, days)
	for _, entry := range history {
		i := int(math.Round(day(entry.Timestamp).Sub(first).Hours() / 24))
		out[i]++
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// ProgressBar renders done/total as a bar of the given width.
func ProgressBar(done, total, width int) string {
	if width <= 0 {
		return ""
	}
	filled := 0
	if total > 0 {
		filled = int(math.Round(float64(done) / float64(total) * float64(width)))
	}
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

// RenderSummary prints pool progress and ledger sizes.
func RenderSummary(w io.Writer, r Report, barWidth int) error {
	drawn := r.Total - r.Remaining
	pct := 0.0
	if r.Total > 0 {
		pct = float64(drawn) / float64(r.Total) * 100
	}
	if _, err := fmt.Fprintln(w, "Summary"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Tokens: %d  Combinations: %d\n", r.Tokens, r.Total); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Remaining: %d  %s %.1f%%\n", r.Remaining, ProgressBar(drawn, r.Total, barWidth), pct); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Accepted: %d  Favorites: %d  Excluded: %d\n", len(r.History), r.Favorites, r.Excluded); err != nil {
		return err
	}
	if !r.LastReset.IsZero() {
		if _, err := fmt.Fprintf(w, "Last reset: %s\n", r.LastReset.Local().Format("2006-01-02 15:04")); err != nil {
			return err
		}
	}
	if daily := DailyCounts(r.History, time.Local); len(daily) > 1 {
		if _, err := fmt.Fprintf(w, "Daily draws: %s\n", Sparkline(daily)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderTokenTable prints token frequencies.
func RenderTokenTable(w io.Writer, counts []model.TokenCount) error {
	total := 0
	for _, c := range counts {
		total += c.Count
	}
	if total == 0 {
		_, err := fmt.Fprintln(w, "No draws yet.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Token Frequency"); err != nil {
		return err
	}
	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []string{
			c.Token,
			fmt.Sprintf("%d", c.Count),
			fmt.Sprintf("%.1f%%", float64(c.Count)/float64(total)*100),
		})
	}
	return writeLines(w, formatTable([]string{"Token", "Draws", "Share"}, rows, map[int]bool{1: true, 2: true}))
}

// RenderToneTable prints signature frequencies.
func RenderToneTable(w io.Writer, counts []ToneCount) error {
	if len(counts) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Tones"); err != nil {
		return err
	}
	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []string{c.Signature, fmt.Sprintf("%d", c.Count)})
	}
	return writeLines(w, formatTable([]string{"Tones", "Draws"}, rows, map[int]bool{1: true}))
}

// RenderLedger prints favorites or exclusions.
func RenderLedger(w io.Writer, title string, entries []model.LedgerEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintf(w, "No %s.\n", strings.ToLower(title))
		return err
	}
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			fmt.Sprintf("%d", e.ID),
			e.Name,
			e.Timestamp.Local().Format("2006-01-02 15:04"),
		})
	}
	return writeLines(w, formatTable([]string{"ID", "Name", "Added"}, rows, map[int]bool{0: true}))
}

// RenderHistory prints accepted draws oldest first.
func RenderHistory(w io.Writer, history []model.HistoryEntry, reading func(string) string) error {
	if len(history) == 0 {
		_, err := fmt.Fprintln(w, "No draws yet.")
		return err
	}
	rows := make([][]string, 0, len(history))
	for i, e := range history {
		pron := ""
		if reading != nil {
			pron = reading(e.Name)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			e.Name,
			pron,
			e.Signature.String(),
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
		})
	}
	return writeLines(w, formatTable([]string{"#", "Name", "Reading", "Tones", "Drawn"}, rows, map[int]bool{0: true}))
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}
