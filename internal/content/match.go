package content

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// stemMin is the keyword length from which trailing letters are tolerated, so "procrastinat"
// matches "procrastinating" while "ai" does not match "said" or "aim".
const stemMin = 5

// ContainsKeyword reports whether kw occurs in lower starting at a word boundary. Short
// keywords must also end at a word boundary.
func ContainsKeyword(lower, kw string) bool {
	kw = strings.ToLower(strings.TrimSpace(kw))
	if kw == "" {
		return false
	}
	for from := 0; from <= len(lower)-len(kw); {
		i := strings.Index(lower[from:], kw)
		if i < 0 {
			return false
		}
		i += from
		end := i + len(kw)
		if boundaryBefore(lower, i) && (len(kw) >= stemMin || boundaryAfter(lower, end)) {
			return true
		}
		_, size := utf8.DecodeRuneInString(lower[i:])
		from = i + size
	}
	return false
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
