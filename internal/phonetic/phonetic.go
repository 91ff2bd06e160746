// Package phonetic derives tone signatures for names.
package phonetic

import (
	"strings"
	"unicode/utf8"

	"github.com/mozillazg/go-pinyin"

	"github.com/verte-zerg/namedraw/internal/model"
)

// neutralTone is reported for syllables without a tone mark.
const neutralTone = 5

// Provider computes signatures for names. Implementations may be permanently unavailable.
type Provider interface {
	// Signature returns the tone of each character, or false when the name cannot be read.
	Signature(name string) (model.Signature, bool)
	// Display returns a human-readable reading, or "" when unavailable.
	Display(name string) string
}

// Pinyin reads Mandarin tones.
type Pinyin struct {
	toneArgs    pinyin.Args
	displayArgs pinyin.Args
}

// NewPinyin returns a Mandarin tone provider.
func NewPinyin() *Pinyin {
	toneArgs := pinyin.NewArgs()
	toneArgs.Style = pinyin.Tone3
	displayArgs := pinyin.NewArgs()
	displayArgs.Style = pinyin.Tone
	return &Pinyin{toneArgs: toneArgs, displayArgs: displayArgs}
}

// Signature implements Provider.
func (p *Pinyin) Signature(name string) (model.Signature, bool) {
	if name == "" {
		return nil, false
	}
	syllables := pinyin.Pinyin(name, p.toneArgs)
	// Untranslatable characters are dropped by the converter.
	if len(syllables) != utf8.RuneCountInString(name) {
		return nil, false
	}
	sig := make(model.Signature, 0, len(syllables))
	for _, readings := range syllables {
		if len(readings) == 0 {
			return nil, false
		}
		sig = append(sig, toneOf(readings[0]))
	}
	return sig, true
}

// Display implements Provider.
func (p *Pinyin) Display(name string) string {
	syllables := pinyin.Pinyin(name, p.displayArgs)
	parts := make([]string, 0, len(syllables))
	for _, readings := range syllables {
		if len(readings) > 0 {
			parts = append(parts, readings[0])
		}
	}
	return strings.Join(parts, " ")
}

func toneOf(syllable string) int {
	if syllable == "" {
		return neutralTone
	}
	last := syllable[len(syllable)-1]
	if last >= '1' && last <= '4' {
		return int(last - '0')
	}
	return neutralTone
}

// Nop is a provider that is never available.
type Nop struct{}

// Signature implements Provider.
func (Nop) Signature(string) (model.Signature, bool) { return nil, false }

// Display implements Provider.
func (Nop) Display(string) string { return "" }

// Static serves fixed signatures, for shells without a reading dictionary and for tests.
type Static map[string]model.Signature

// Signature implements Provider.
func (s Static) Signature(name string) (model.Signature, bool) {
	sig, ok := s[name]
	return sig, ok
}

// Display implements Provider.
func (s Static) Display(name string) string {
	if sig, ok := s[name]; ok {
		return sig.String()
	}
	return ""
}
