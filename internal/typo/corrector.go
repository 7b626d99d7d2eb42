// Package typo corrects common typing errors word by word.
package typo

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

//go:embed corrections.yaml
var correctionsYAML []byte

// Table maps a lowercase misspelling to its canonical correction.
type Table map[string]string

// Corrector rewrites known misspellings while keeping the writer's casing and punctuation.
type Corrector struct {
	table Table
}

var (
	tokenRe = regexp.MustCompile(`\s+|\S+`)

	defaultCorrector = mustDefault()
)

func mustDefault() *Corrector {
	var t Table
	if err := yaml.Unmarshal(correctionsYAML, &t); err != nil {
		panic(fmt.Sprintf("typo: embedded corrections: %v", err))
	}
	c, err := New(t)
	if err != nil {
		panic(fmt.Sprintf("typo: embedded corrections: %v", err))
	}
	return c
}

// New builds a Corrector. Keys are case-folded; a correction that is itself a key is
// rejected because it would make correction non-idempotent.
func New(t Table) (*Corrector, error) {
	folded := make(Table, len(t))
	for k, v := range t {
		key := strings.ToLower(strings.TrimSpace(k))
		if key == "" || strings.TrimSpace(v) == "" {
			return nil, fmt.Errorf("empty entry %q: %q", k, v)
		}
		if _, dup := folded[key]; dup {
			return nil, fmt.Errorf("duplicate key %q", key)
		}
		folded[key] = v
	}
	for k, v := range folded {
		for _, word := range strings.Fields(v) {
			if _, ok := folded[strings.ToLower(word)]; ok {
				return nil, fmt.Errorf("correction %q for %q is itself a misspelling", v, k)
			}
		}
	}
	return &Corrector{table: folded}, nil
}

// Default returns the corrector built from the embedded table.
func Default() *Corrector { return defaultCorrector }

// Correct runs the default corrector.
func Correct(text string) string { return defaultCorrector.Correct(text) }

// Len reports the number of table entries.
func (c *Corrector) Len() int { return len(c.table) }

// Correct replaces every known misspelling in text. Whitespace runs are kept as-is.
func (c *Corrector) Correct(text string) string {
	if text == "" {
		return text
	}
	tokens := tokenRe.FindAllString(text, -1)
	var b strings.Builder
	b.Grow(len(text))
	for _, tok := range tokens {
		r, _ := utf8.DecodeRuneInString(tok)
		if unicode.IsSpace(r) {
			b.WriteString(tok)
			continue
		}
		b.WriteString(c.word(tok))
	}
	return b.String()
}

func (c *Corrector) word(tok string) string {
	start := strings.IndexFunc(tok, unicode.IsLetter)
	if start < 0 {
		return tok
	}
	end := strings.LastIndexFunc(tok, unicode.IsLetter)
	_, size := utf8.DecodeRuneInString(tok[end:])
	end += size

	prefix, core, suffix := tok[:start], tok[start:end], tok[end:]
	fix, ok := c.table[strings.ToLower(core)]
	if !ok {
		return tok
	}
	return prefix + applyCase(core, fix) + suffix
}

// applyCase copies the casing pattern of orig onto fix.
func applyCase(orig, fix string) string {
	switch {
	case isAllUpper(orig):
		return strings.ToUpper(fix)
	case isCapitalized(orig):
		r, size := utf8.DecodeRuneInString(fix)
		return string(unicode.ToUpper(r)) + fix[size:]
	default:
		return fix
	}
}

func isAllUpper(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return letters > 1
}

func isCapitalized(s string) bool {
	first := true
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		if first {
			if !unicode.IsUpper(r) {
				return false
			}
			first = false
			continue
		}
		if unicode.IsUpper(r) {
			return false
		}
	}
	return !first
}
