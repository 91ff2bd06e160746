package tokens

import "unicode"

// keepRune reports whether r is a token. Separators used in hand-edited files are skipped.
func keepRune(r rune) bool {
	if unicode.IsSpace(r) || unicode.IsControl(r) {
		return false
	}
	switch r {
	case ',', '，', '#', '、':
		return false
	}
	return true
}
