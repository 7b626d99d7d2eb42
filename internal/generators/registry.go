package generators

import (
	"fmt"
	"sort"
	"strings"

	"github.com/local/assistcore/internal/ai"
	"github.com/local/assistcore/internal/content"
)

// Generator renders a response for one category. raw is the prompt as typed, lower its
// lower-cased form. Generators are pure and always return text.
type Generator func(raw, lower string) string

// Computed category names. Content categories are named after their topic.
const (
	CategoryGreeting       = "greeting"
	CategoryGratitude      = "gratitude"
	CategoryFarewell       = "farewell"
	CategoryMath           = "math"
	CategoryIdentity       = "identity"
	CategorySummarize      = "summarize"
	CategoryCodeRepair     = "code_repair"
	CategoryComparison     = "comparison"
	CategoryDefinition     = "definition"
	CategoryHowTo          = "how_to"
	CategoryBrainstorm     = "brainstorm"
	CategoryRecommendation = "recommendation"
	CategoryOpinion        = "opinion"
	CategoryExplain        = "explain"
	CategoryFollowUp       = "follow_up"
	CategoryDefault        = "default"
)

// Registry maps category names to generators: the computed ones plus one per content topic.
type Registry struct {
	lib  *content.Library
	gens map[string]Generator
}

func NewRegistry(lib *content.Library) *Registry {
	r := &Registry{lib: lib, gens: make(map[string]Generator)}
	for _, name := range lib.Names() {
		t, _ := lib.Topic(name)
		r.gens[name] = topicGenerator(t)
	}
	// computed generators win over a topic of the same name
	r.gens[CategoryGreeting] = Greeting
	r.gens[CategoryGratitude] = Gratitude
	r.gens[CategoryFarewell] = Farewell
	r.gens[CategoryIdentity] = Identity
	r.gens[CategorySummarize] = SummarizeRequest
	r.gens[CategoryCodeRepair] = CodeRepair
	r.gens[CategoryComparison] = Comparison
	r.gens[CategoryDefinition] = Definition
	r.gens[CategoryHowTo] = HowTo
	r.gens[CategoryBrainstorm] = Brainstorm
	r.gens[CategoryRecommendation] = Recommendation
	r.gens[CategoryOpinion] = Opinion
	r.gens[CategoryExplain] = Explain
	r.gens[CategoryDefault] = Default
	r.gens[CategoryMath] = r.math
	r.gens[CategoryFollowUp] = func(raw, lower string) string { return r.FollowUp("", raw, lower) }
	return r
}

// DefaultRegistry returns a registry over the embedded content.
func DefaultRegistry() *Registry {
	return NewRegistry(content.Default())
}

func (r *Registry) Library() *content.Library { return r.lib }

// Has reports whether category has a generator.
func (r *Registry) Has(category string) bool {
	_, ok := r.gens[category]
	return ok
}

// Categories lists every registered category, sorted.
func (r *Registry) Categories() []string {
	out := make([]string, 0, len(r.gens))
	for k := range r.gens {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Render runs the generator for category, falling back to Default for unknown names.
// A panicking generator also degrades to Default.
func (r *Registry) Render(category, raw string) (out string) {
	gen, ok := r.gens[category]
	if !ok {
		gen = Default
	}
	lower := strings.ToLower(raw)
	defer func() {
		if rec := recover(); rec != nil {
			out = Default(raw, lower)
		}
	}()
	out = gen(raw, lower)
	if strings.TrimSpace(out) == "" {
		out = Default(raw, lower)
	}
	return out
}

func (r *Registry) math(raw, lower string) string {
	if answer, ok := Calculate(lower); ok {
		return answer
	}
	if t, ok := r.lib.Topic(CategoryMath); ok {
		return RenderTopic(t, raw, lower)
	}
	return Default(raw, lower)
}

// Transform applies the local text transform for a task kind. ok is false for plain
// generation.
func Transform(kind ai.Kind, text string) (string, bool) {
	switch kind {
	case ai.KindImprove:
		return Improve(text), true
	case ai.KindSummarize:
		return Summarize(text), true
	case ai.KindExpand:
		return Expand(text), true
	case ai.KindRewrite:
		return Rewrite(text), true
	}
	return "", false
}

// FollowUp continues a conversation about topic (a category name, possibly empty).
func (r *Registry) FollowUp(topic, raw, lower string) string {
	var b strings.Builder
	if t, ok := r.lib.Topic(topic); ok {
		fmt.Fprintf(&b, "## More on %s\n\n", strings.TrimPrefix(t.Title, "## "))
		body := t.Fallback
		if br := t.Branch(lower); br != nil {
			body = br.Body
		} else if len(t.Branches) > 0 {
			body = t.Branches[0].Body
		}
		b.WriteString(strings.TrimSpace(body))
		b.WriteString("\n\n")
		b.WriteString(followUpPrompt(lower))
		return b.String()
	}
	b.WriteString("## Continuing Our Conversation\n\n")
	b.WriteString("Happy to keep going. ")
	b.WriteString(followUpPrompt(lower))
	return b.String()
}

func followUpPrompt(lower string) string {
	switch {
	case strings.HasPrefix(lower, "why"):
		return "Is there a particular part of the reasoning you'd like me to unpack further?"
	case strings.Contains(lower, "example"):
		return "Would you like a concrete, step-by-step example for your situation?"
	case strings.HasPrefix(lower, "what about") || strings.HasPrefix(lower, "and "):
		return "Tell me a little more about that angle and I'll tailor the answer."
	case strings.HasPrefix(lower, "yes") || strings.HasPrefix(lower, "ok") || strings.HasPrefix(lower, "sure"):
		return "Great. What would you like to focus on next?"
	}
	return "Which part would you like me to go deeper on?"
}
