// Package knowledge is a small keyword-searched knowledge base loaded from a YAML bundle.
package knowledge

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Entry is one knowledge-base article.
type Entry struct {
	ID      string   `yaml:"id" json:"id"`
	Title   string   `yaml:"title" json:"title"`
	Content string   `yaml:"content" json:"content"`
	Tags    []string `yaml:"tags,omitempty" json:"tags,omitempty"`
}

type bundle struct {
	Entries []Entry `yaml:"entries"`
}

// Base holds entries and a term index over them. It is immutable after construction.
type Base struct {
	entries []Entry
	terms   []map[string]int // per entry: term -> weight
}

const (
	titleWeight   = 3
	tagWeight     = 2
	contentWeight = 1
)

// stopwords are ignored on both sides of a search.
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "of": true, "to": true,
	"in": true, "on": true, "for": true, "is": true, "are": true, "what": true, "how": true,
	"do": true, "does": true, "i": true, "me": true, "my": true, "you": true, "your": true,
	"it": true, "can": true, "about": true, "with": true, "be": true, "this": true, "that": true,
}

// New indexes entries. Entries without an ID or without content are rejected.
func New(entries []Entry) (*Base, error) {
	seen := make(map[string]bool, len(entries))
	b := &Base{entries: make([]Entry, 0, len(entries)), terms: make([]map[string]int, 0, len(entries))}
	for i, e := range entries {
		e.ID = strings.TrimSpace(e.ID)
		if e.ID == "" {
			return nil, fmt.Errorf("knowledge entry %d: missing id", i)
		}
		if strings.TrimSpace(e.Content) == "" {
			return nil, fmt.Errorf("knowledge entry %q: empty content", e.ID)
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("knowledge entry %q: duplicate id", e.ID)
		}
		seen[e.ID] = true

		idx := map[string]int{}
		for _, t := range tokenize(e.Title) {
			idx[t] += titleWeight
		}
		for _, tag := range e.Tags {
			for _, t := range tokenize(tag) {
				idx[t] += tagWeight
			}
		}
		for _, t := range tokenize(e.Content) {
			idx[t] += contentWeight
		}
		b.entries = append(b.entries, e)
		b.terms = append(b.terms, idx)
	}
	return b, nil
}

// Parse decodes a YAML bundle of the form `entries: [{id, title, content, tags}]`.
func Parse(data []byte) (*Base, error) {
	var bn bundle
	if err := yaml.Unmarshal(data, &bn); err != nil {
		return nil, fmt.Errorf("parse knowledge bundle: %w", err)
	}
	return New(bn.Entries)
}

// LoadFile reads a YAML bundle from disk.
func LoadFile(path string) (*Base, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge bundle: %w", err)
	}
	return Parse(data)
}

// Fetcher returns the raw bytes stored under key.
type Fetcher interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// Load fetches a bundle from src, typically an S3 client.
func Load(ctx context.Context, src Fetcher, key string) (*Base, error) {
	data, err := src.Fetch(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("fetch knowledge bundle %s: %w", key, err)
	}
	return Parse(data)
}

func (b *Base) Len() int { return len(b.entries) }

// Search returns up to limit entries ranked by weighted term overlap with query. Ties keep
// bundle order. Entries sharing no term with the query are never returned.
func (b *Base) Search(ctx context.Context, query string, limit int) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b == nil || limit <= 0 {
		return nil, nil
	}
	q := tokenize(query)
	if len(q) == 0 {
		return nil, nil
	}

	type hit struct {
		i     int
		score int
	}
	var hits []hit
	for i, idx := range b.terms {
		score := 0
		counted := make(map[string]bool, len(q))
		for _, t := range q {
			if !counted[t] {
				counted[t] = true
				score += idx[t]
			}
		}
		if score > 0 {
			hits = append(hits, hit{i, score})
		}
	}
	sort.SliceStable(hits, func(a, c int) bool { return hits[a].score > hits[c].score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]Entry, len(hits))
	for k, h := range hits {
		out[k] = b.entries[h.i]
	}
	return out, nil
}

// tokenize lowercases s, splits on non-alphanumerics, drops stopwords and single letters
// and strips a plural "s".
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) < 2 || stopwords[f] {
			continue
		}
		out = append(out, strings.TrimSuffix(f, "s"))
	}
	return out
}
