package intent

import (
	"strings"
	"unicode"
)

// Tokenize lowercases text, drops every rune outside the word alphabet
// (letters, digits, underscore and the arithmetic symbols + - * / ( ) ^)
// and splits the rest on whitespace.
func Tokenize(text string) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		case isWordRune(r):
			b.WriteRune(r)
		}
	}
	return strings.Fields(b.String())
}

func isWordRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
		return true
	}
	switch r {
	case '+', '-', '*', '/', '(', ')', '^':
		return true
	}
	return false
}
