package generators

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	diffBetween = regexp.MustCompile(`(?i)difference\s+between\s+(.+?)\s+and\s+(.+)`)
	versus      = regexp.MustCompile(`(?i)(.+?)\s+(?:vs\.?|versus|compared\s+(?:to|with)|or)\s+(.+)`)
	compareLead = regexp.MustCompile(`(?i)^(?:compare|comparing|which\s+is\s+better[,:]?|what'?s\s+better[,:]?|should\s+i\s+(?:choose|pick|use|get))\s+`)

	defineLead = regexp.MustCompile(`(?i)^(?:define|definition\s+of|meaning\s+of|what\s+is\s+the\s+(?:meaning|definition)\s+of)\s+`)
	whatMean   = regexp.MustCompile(`(?i)what\s+does\s+["']?(.+?)["']?\s+mean`)

	ideasFor  = regexp.MustCompile(`(?i)(?:ideas?|suggestions?|names?)\s+(?:for|about|on)\s+(.+)`)
	brainLead = regexp.MustCompile(`(?i)^(?:brainstorm|help\s+me\s+brainstorm|give\s+me\s+ideas)\s+(?:on\s+|about\s+|for\s+)?`)

	shouldLead = regexp.MustCompile(`(?i)^(?:should\s+i|is\s+it\s+worth|what\s+do\s+you\s+think\s+(?:about|of)|is\s+it\s+a\s+good\s+idea\s+to)\s+`)
	recLead    = regexp.MustCompile(`(?i)^(?:can\s+you\s+)?(?:recommend|suggest)(?:\s+me)?\s+(?:a\s+|an\s+|some\s+)?|^what(?:'s|\s+is|\s+are)\s+the\s+best\s+`)
)

// Comparison lays out a side-by-side framework for "A vs B" style questions.
func Comparison(raw, _ string) string {
	a, b := compareSides(raw)
	if a == "" || b == "" {
		return fmt.Sprintf("## Making a Comparison\n\nTo compare options well, look at each one across the same criteria.\n\n%s\n\nTell me the two things you'd like to compare and I'll structure it for you.", criteriaList)
	}
	var s strings.Builder
	fmt.Fprintf(&s, "## %s vs. %s\n\n", capitalize(a), capitalize(b))
	fmt.Fprintf(&s, "Here's a framework for comparing **%s** and **%s**:\n\n", a, b)
	fmt.Fprintf(&s, "| Aspect | %s | %s |\n|---|---|---|\n", a, b)
	for _, aspect := range []string{"Main purpose", "Strengths", "Weaknesses", "Cost", "Best suited for"} {
		fmt.Fprintf(&s, "| %s | ? | ? |\n", aspect)
	}
	s.WriteString("\n**How to decide:**\n")
	s.WriteString("1. Write down what matters most to you\n")
	s.WriteString("2. Score each option against those priorities\n")
	s.WriteString("3. Consider the long-term trade-offs, not just the immediate ones\n\n")
	s.WriteString("Share your priorities and I can help fill in the table.")
	return s.String()
}

const criteriaList = `- Purpose and main use case
- Strengths and weaknesses
- Cost (money, time, effort)
- Long-term implications`

func compareSides(raw string) (string, string) {
	s := subjectTail.ReplaceAllString(strings.TrimSpace(raw), "")
	if m := diffBetween.FindStringSubmatch(s); m != nil {
		return clean(m[1]), clean(m[2])
	}
	s = compareLead.ReplaceAllString(s, "")
	if m := versus.FindStringSubmatch(s); m != nil {
		return clean(m[1]), clean(m[2])
	}
	return "", ""
}

// Definition explains how to pin down a term and gives a structured placeholder answer.
func Definition(raw, _ string) string {
	term := definitionTerm(raw)
	return fmt.Sprintf("## Definition: %s\n\n"+
		"**%s** is a term whose exact meaning depends on the context it's used in.\n\n"+
		"**To understand it fully, consider:**\n"+
		"- **Field:** is it used in everyday speech, science, law, technology or another area?\n"+
		"- **Origin:** where the word comes from often hints at its meaning\n"+
		"- **Examples:** seeing it used in a sentence usually clarifies it\n"+
		"- **Related terms:** synonyms and opposites help draw the boundaries\n\n"+
		"Tell me the context where you saw \"%s\" and I can give a more precise explanation.",
		capitalize(term), term, term)
}

func definitionTerm(raw string) string {
	s := subjectTail.ReplaceAllString(strings.TrimSpace(raw), "")
	if m := whatMean.FindStringSubmatch(s); m != nil {
		return clean(m[1])
	}
	if t := clean(defineLead.ReplaceAllString(s, "")); t != "" {
		return t
	}
	return "this term"
}

// HowTo gives a generic step-by-step plan for a task.
func HowTo(raw, _ string) string {
	task := Subject(raw)
	return fmt.Sprintf("## How to %s\n\n"+
		"Here's a general approach you can adapt:\n\n"+
		"1. **Define the goal:** be specific about what \"done\" looks like\n"+
		"2. **Gather what you need:** tools, materials, information or help\n"+
		"3. **Break it into steps:** list the smallest actions in order\n"+
		"4. **Start small:** do the first step and check the result\n"+
		"5. **Adjust as you go:** learn from mistakes and refine\n"+
		"6. **Review:** once finished, note what you'd do differently next time\n\n"+
		"**Tip:** a short tutorial video or guide for *%s* can make the details much clearer.\n\n"+
		"If you share more about your situation, I can give more specific steps.",
		task, task)
}

// Brainstorm produces idea prompts around a subject.
func Brainstorm(raw, _ string) string {
	subject := brainstormSubject(raw)
	var b strings.Builder
	fmt.Fprintf(&b, "## Ideas for %s\n\nHere are some angles to spark ideas:\n\n", subject)
	angles := []string{
		"**Start with the audience:** who is it for, and what would delight them?",
		"**Combine two things:** merge %s with an unrelated hobby or trend",
		"**Flip it:** what would the opposite approach look like?",
		"**Make it smaller:** what's the simplest version you could try this week?",
		"**Make it bigger:** what would it look like with no limits on budget or time?",
		"**Borrow:** how do others in a completely different field handle something similar?",
	}
	for i, a := range angles {
		if strings.Contains(a, "%s") {
			a = fmt.Sprintf(a, subject)
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, a)
	}
	b.WriteString("\nPick the one that excites you most and I can help develop it further.")
	return b.String()
}

func brainstormSubject(raw string) string {
	s := subjectTail.ReplaceAllString(strings.TrimSpace(raw), "")
	if m := ideasFor.FindStringSubmatch(s); m != nil {
		return clean(m[1])
	}
	if t := clean(brainLead.ReplaceAllString(s, "")); t != "" {
		return t
	}
	return "your project"
}

// Recommendation explains how to pick among options in a category.
func Recommendation(raw, _ string) string {
	s := subjectTail.ReplaceAllString(strings.TrimSpace(raw), "")
	what := clean(recLead.ReplaceAllString(s, ""))
	if what == "" {
		what = "options"
	}
	return fmt.Sprintf("## Recommendations: %s\n\n"+
		"The best choice depends on what you value most. Here's how to narrow it down:\n\n"+
		"- **Budget:** set a range before you start looking\n"+
		"- **Must-haves:** list two or three features you can't do without\n"+
		"- **Reviews:** check several independent sources, not just ratings\n"+
		"- **Trial:** try before committing when possible\n\n"+
		"Tell me your preferences and constraints for %s and I'll suggest specific options.",
		capitalize(what), what)
}

// Opinion gives a balanced decision framework instead of a verdict.
func Opinion(raw, _ string) string {
	s := subjectTail.ReplaceAllString(strings.TrimSpace(raw), "")
	q := clean(shouldLead.ReplaceAllString(s, ""))
	if q == "" {
		q = "this decision"
	}
	return fmt.Sprintf("## Thinking It Through: %s\n\n"+
		"I can't decide for you, but here's a way to weigh it up.\n\n"+
		"**Pros to consider:**\n- What do you gain?\n- Does it move you toward a bigger goal?\n\n"+
		"**Cons to consider:**\n- What does it cost in time, money or energy?\n- What are the risks, and can you undo it?\n\n"+
		"**Questions to ask yourself:**\n"+
		"1. How will I feel about this in a year?\n"+
		"2. What would I advise a friend in the same situation?\n"+
		"3. What's the smallest way to test it first?\n\n"+
		"Share more about your situation and I can help you think through %s in detail.",
		capitalize(q), q)
}

// Explain gives a structured overview of a subject.
func Explain(raw, _ string) string {
	subject := Subject(raw)
	return fmt.Sprintf("## Understanding %s\n\n"+
		"Here's a structured way to explore **%s**:\n\n"+
		"**1. The basics:** what it is and where it comes from\n"+
		"**2. How it works:** the key parts and how they fit together\n"+
		"**3. Why it matters:** its practical uses and impact\n"+
		"**4. Common misconceptions:** what people often get wrong\n"+
		"**5. Going deeper:** good books, courses or experts to learn more\n\n"+
		"Which of these would you like me to expand on?",
		capitalize(subject), subject)
}

// SummarizeRequest summarizes the text that follows an instruction like "summarize this:".
func SummarizeRequest(raw, _ string) string {
	text := raw
	if i := strings.Index(raw, ":"); i >= 0 && i < len(raw)-1 {
		text = raw[i+1:]
	} else {
		text = summarizeLead.ReplaceAllString(raw, "")
	}
	if len(strings.Fields(text)) < 8 {
		return "## Summary\n\nPlease paste the text you'd like summarized, for example:\n\n> Summarize this: <your text>"
	}
	return Summarize(text)
}

var summarizeLead = regexp.MustCompile(`(?i)^\s*(?:please\s+)?(?:summari[sz]e|tl;?dr|give\s+me\s+a\s+summary\s+of)(?:\s+this|\s+the\s+following)?\s*`)

// Default asks for more context; it is the terminal generator and always produces text.
func Default(raw, _ string) string {
	subject := Subject(raw)
	var b strings.Builder
	b.WriteString("## Let's Dig In\n\n")
	if subject != "this" && len(strings.Fields(subject)) <= 8 {
		fmt.Fprintf(&b, "I'd like to help with **%s**. ", subject)
	} else {
		b.WriteString("I'd like to help with that. ")
	}
	b.WriteString("Could you share a bit more context?\n\n")
	b.WriteString("- What are you trying to achieve?\n")
	b.WriteString("- What have you tried so far?\n")
	b.WriteString("- Are there any constraints (time, budget, tools)?\n\n")
	b.WriteString(helpMenu)
	return b.String()
}

func clean(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`+"`")
	s = strings.TrimPrefix(s, "the ")
	s = subjectTail.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) > maxSubject {
		s = string([]rune(s)[:maxSubject]) + "…"
	}
	return s
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
