package sanitizer

import (
	"regexp"
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var (
	reKeepLettersDigits = regexp.MustCompile(`[^0-9\p{L}]+`)
	reTrimHyphens       = regexp.MustCompile(`-+`)
)

func trimAndLower(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return s
}

func collapseHyphens(s string) string {
	s = reTrimHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// SanitizeResourceID derives the structured room identifier stored with every
// reservation. Two spellings of the same room map to the same ID.
func SanitizeResourceID(roomName string) string {
	p := Pipeline{
		trimAndLower,
		func(s string) string { return reKeepLettersDigits.ReplaceAllString(s, "-") },
		collapseHyphens,
	}
	return p.Apply(roomName)
}

func SanitizeEmail(email string) string {
	return trimAndLower(email)
}

func SanitizeToken(token string) string {
	return strings.TrimSpace(token)
}

// SanitizeNote trims the note and strips control characters other than
// newlines and tabs.
func SanitizeNote(note string) string {
	note = strings.TrimSpace(note)
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, note)
}
