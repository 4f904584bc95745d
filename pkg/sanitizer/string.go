package sanitizer

import (
	"strings"
	"unicode"
)

func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

func NormalizeRoomName(name string) string {
	return TrimAndNormalize(name)
}

// NormalizeForComparison folds case and whitespace so room names can be
// compared loosely.
func NormalizeForComparison(s string) string {
	return strings.ToLower(TrimAndNormalize(s))
}
