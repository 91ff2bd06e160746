// Package tokens loads the token universe from a file.
package tokens

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/verte-zerg/namedraw/internal/model"
)

// ErrEmpty is returned when a token file has no usable tokens.
var ErrEmpty = errors.New("token list is empty")

const templateContent = "愛\n麗\n雅\n靜\n風\n雲\n月\n星\n"

// Universe is an ordered, de-duplicated token list with a reverse index.
type Universe struct {
	tokens []string
	index  map[string]int
}

// New builds a universe, keeping the first occurrence of repeated tokens.
func New(list []string) *Universe {
	u := &Universe{index: make(map[string]int, len(list))}
	for _, tok := range list {
		tok = norm.NFC.String(tok)
		if tok == "" {
			continue
		}
		if _, ok := u.index[tok]; ok {
			continue
		}
		u.index[tok] = len(u.tokens)
		u.tokens = append(u.tokens, tok)
	}
	return u
}

// Parse splits content into single-character tokens.
func Parse(content string) *Universe {
	content = norm.NFC.String(content)
	var list []string
	for _, r := range content {
		if !keepRune(r) {
			continue
		}
		list = append(list, string(r))
	}
	return New(list)
}

// Load reads the token file at path.
func Load(path string) (*Universe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	u := Parse(string(data))
	if u.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmpty)
	}
	return u, nil
}

// WriteTemplate creates a sample token file at path.
func WriteTemplate(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create token dir: %w", err)
	}
	return os.WriteFile(path, []byte(templateContent), 0o644)
}

// Len returns the token count N.
func (u *Universe) Len() int {
	return len(u.tokens)
}

// Token returns the token at position i.
func (u *Universe) Token(i int) string {
	return u.tokens[i]
}

// List returns a copy of all tokens in order.
func (u *Universe) List() []string {
	out := make([]string, len(u.tokens))
	copy(out, u.tokens)
	return out
}

// Index returns the position of tok.
func (u *Universe) Index(tok string) (int, bool) {
	i, ok := u.index[norm.NFC.String(tok)]
	return i, ok
}

// Name renders a pair as its two tokens.
func (u *Universe) Name(p model.Pair) string {
	return u.tokens[p.A] + u.tokens[p.B]
}

// Split maps a two-token name back to its pair.
func (u *Universe) Split(name string) (model.Pair, bool) {
	runes := []rune(norm.NFC.String(strings.TrimSpace(name)))
	if len(runes) != 2 {
		return model.Pair{}, false
	}
	a, okA := u.index[string(runes[0])]
	b, okB := u.index[string(runes[1])]
	if !okA || !okB {
		return model.Pair{}, false
	}
	return model.Pair{A: a, B: b}, true
}
