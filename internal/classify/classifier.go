// Package classify routes a prompt to the generator category that should answer it.
package classify

import (
	"regexp"
	"strings"

	"github.com/local/assistcore/internal/ai"
	"github.com/local/assistcore/internal/content"
	"github.com/local/assistcore/internal/generators"
)

// Stage records which step of the cascade produced a route.
type Stage string

const (
	StageCodeRepair Stage = "code_repair"
	StageRule       Stage = "rule"
	StageKeyword    Stage = "keyword"
	StageFollowUp   Stage = "follow_up"
	StageDefault    Stage = "default"
)

// Route is the classifier's decision. Topic is set for follow-ups: the category the
// conversation was about before this turn.
type Route struct {
	Category string
	Stage    Stage
	Topic    string
}

// Classifier applies the rule table, then a keyword pass over the topic library.
type Classifier struct {
	rules []Rule
	lib   *content.Library
	// keyword pass order: topics named by a rule in rule order, then the rest in library order
	order []string
}

func New(lib *content.Library) *Classifier {
	c := &Classifier{rules: rules, lib: lib}
	seen := make(map[string]bool)
	for _, r := range rules {
		if _, ok := lib.Topic(r.Category); ok && !seen[r.Category] {
			seen[r.Category] = true
			c.order = append(c.order, r.Category)
		}
	}
	for _, name := range lib.Names() {
		if !seen[name] {
			c.order = append(c.order, name)
		}
	}
	return c
}

// Default returns a classifier over the embedded topic library.
func Default() *Classifier {
	return New(content.Default())
}

// Classify routes a single prompt. It never fails: unmatched input ends in the default
// category.
func (c *Classifier) Classify(prompt string) Route {
	lower := strings.ToLower(strings.TrimSpace(prompt))
	if lower == "" {
		return Route{Category: generators.CategoryDefault, Stage: StageDefault}
	}
	if generators.LooksLikeCodeFix(lower) {
		return Route{Category: generators.CategoryCodeRepair, Stage: StageCodeRepair}
	}
	if r, ok := c.match(lower); ok {
		return r
	}
	return Route{Category: generators.CategoryDefault, Stage: StageDefault}
}

func (c *Classifier) match(lower string) (Route, bool) {
	for _, r := range c.rules {
		if r.Match(lower) {
			return Route{Category: r.Category, Stage: StageRule}, true
		}
	}
	best, bestHits := "", 0
	for _, name := range c.order {
		t, _ := c.lib.Topic(name)
		if hits := t.KeywordHits(lower); hits > bestHits {
			best, bestHits = name, hits
		}
	}
	if bestHits > 0 {
		return Route{Category: best, Stage: StageKeyword}, true
	}
	return Route{}, false
}

var followUpCue = regexp.MustCompile(`^(?:why|how\s+so|what\s+about|and\b|more\b|tell\s+me\s+more|go\s+on|continue|for\s+example|example|another|really|ok(?:ay)?\b|yes\b|yeah|no\b|sure|then\s+what|what\s+else|elaborate|can\s+you\s+elaborate|explain\s+more|what\s+do\s+you\s+mean|huh|which\s+one|what\s+if)`)

const followUpMaxWords = 6

var social = map[string]bool{
	generators.CategoryGreeting:  true,
	generators.CategoryGratitude: true,
	generators.CategoryFarewell:  true,
}

// ClassifyConversation is Classify with conversation context. A short turn continues the
// previous topic when it matches nothing on its own, or when it opens with a follow-up cue
// ("why?", "tell me more") and did not name a topic of its own.
func (c *Classifier) ClassifyConversation(prompt string, history []ai.Message) Route {
	r := c.Classify(prompt)
	if len(history) == 0 || r.Stage == StageCodeRepair {
		return r
	}
	lower := strings.ToLower(strings.TrimSpace(prompt))
	if len(strings.Fields(lower)) > followUpMaxWords {
		return r
	}
	_, topical := c.lib.Topic(r.Category)
	switch {
	case r.Stage == StageDefault:
	case followUpCue.MatchString(lower) && !topical && !social[r.Category]:
	default:
		return r
	}
	return Route{Category: generators.CategoryFollowUp, Stage: StageFollowUp, Topic: c.previousTopic(history)}
}

// previousTopic is the category of the latest user message that routes to a content topic.
func (c *Classifier) previousTopic(history []ai.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		m := history[i]
		if ai.NormalizeRole(m.Role) != "user" {
			continue
		}
		lower := strings.ToLower(strings.TrimSpace(m.Content))
		if lower == "" {
			continue
		}
		if r, ok := c.match(lower); ok {
			if _, isTopic := c.lib.Topic(r.Category); isTopic {
				return r.Category
			}
		}
	}
	return ""
}
