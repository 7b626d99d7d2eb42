package generators

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/local/assistcore/internal/typo"
)

var (
	sentenceRe  = regexp.MustCompile(`[^.!?\n]+[.!?]*`)
	spaceRun    = regexp.MustCompile(`[ \t]{2,}`)
	spaceBefore = regexp.MustCompile(`\s+([,.!?;:])`)
	spaceAfter  = regexp.MustCompile(`([,;])([A-Za-z])`)
	repeatPunct = regexp.MustCompile(`([!?.])[!?.]+`)
	loneI       = regexp.MustCompile(`\bi\b`)
	wordRe      = regexp.MustCompile(`[A-Za-z][A-Za-z'-]*`)
)

// Improve cleans up spelling, spacing, capitalization and punctuation.
func Improve(text string) string {
	orig := strings.TrimSpace(text)
	if orig == "" {
		return "## Improved Version\n\nThere's no text to improve yet. Paste what you've written and I'll polish it."
	}

	var changes []string
	out := typo.Correct(orig)
	if out != orig {
		changes = append(changes, "Fixed spelling mistakes")
	}
	if s := spaceAfter.ReplaceAllString(spaceBefore.ReplaceAllString(spaceRun.ReplaceAllString(out, " "), "$1"), "$1 $2"); s != out {
		out = s
		changes = append(changes, "Normalized spacing")
	}
	if s := repeatPunct.ReplaceAllString(out, "$1"); s != out {
		out = s
		changes = append(changes, "Removed repeated punctuation")
	}
	if s := capitalizeSentences(loneI.ReplaceAllString(out, "I")); s != out {
		out = s
		changes = append(changes, "Capitalized sentences and the pronoun \"I\"")
	}
	if s := terminate(out); s != out {
		out = s
		changes = append(changes, "Added closing punctuation")
	}

	var b strings.Builder
	b.WriteString("## Improved Version\n\n")
	b.WriteString(out)
	if len(changes) == 0 {
		b.WriteString("\n\nYour text already reads cleanly. For a deeper edit, consider tightening long sentences and using more specific verbs.")
		return b.String()
	}
	b.WriteString("\n\n**Changes made:**\n")
	for _, c := range changes {
		b.WriteString("- " + c + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Summarize keeps the highest-scoring third of the sentences, in their original order.
// Sentences score by the frequency of their non-stopword terms across the whole text.
func Summarize(text string) string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return "## Summary\n\nThere's no text to summarize yet."
	}
	freq := termFrequencies(text)
	if len(sentences) <= 2 {
		return "## Summary\n\n" + strings.Join(sentences, " ") + keyTerms(freq)
	}

	type scored struct {
		idx   int
		score float64
	}
	ss := make([]scored, len(sentences))
	for i, s := range sentences {
		words := wordRe.FindAllString(strings.ToLower(s), -1)
		total := 0
		for _, w := range words {
			total += freq[w]
		}
		score := 0.0
		if len(words) > 0 {
			score = float64(total) / float64(len(words))
		}
		if i == 0 {
			score *= 1.2 // lead sentences usually carry the topic
		}
		ss[i] = scored{i, score}
	}
	sort.SliceStable(ss, func(a, b int) bool { return ss[a].score > ss[b].score })

	keep := (len(sentences) + 2) / 3
	picked := ss[:keep]
	sort.Slice(picked, func(a, b int) bool { return picked[a].idx < picked[b].idx })
	parts := make([]string, len(picked))
	for i, p := range picked {
		parts[i] = sentences[p.idx]
	}
	return fmt.Sprintf("## Summary\n\n%s%s\n\n*Condensed from %d sentences to %d.*",
		strings.Join(parts, " "), keyTerms(freq), len(sentences), keep)
}

// Expand builds out a short text with supporting sections.
func Expand(text string) string {
	orig := strings.TrimSpace(text)
	if orig == "" {
		return "## Expanded Version\n\nThere's no text to expand yet. Share a sentence or two and I'll build on it."
	}
	topic := orig
	if sentences := splitSentences(orig); len(sentences) > 0 {
		topic = strings.TrimRight(sentences[0], ".!?")
	}
	terms := topTerms(termFrequencies(orig), 3)

	var b strings.Builder
	b.WriteString("## Expanded Version\n\n")
	b.WriteString(terminate(capitalizeSentences(orig)))
	b.WriteString("\n\n### Background\n\n")
	fmt.Fprintf(&b, "To understand this fully, it helps to look at the context behind it: %s.", lowerFirst(topic))
	b.WriteString(" Considering where the idea comes from and who it affects makes the main point clearer.")
	b.WriteString("\n\n### Key Details\n\n")
	if len(terms) > 0 {
		for _, t := range terms {
			fmt.Fprintf(&b, "- **%s:** what role does it play, and what evidence or examples support it?\n", capitalize(t))
		}
	} else {
		b.WriteString("- Add concrete examples, numbers or quotes that support the main point\n")
	}
	b.WriteString("\n### Why It Matters\n\n")
	b.WriteString("Explain the consequences: what changes for the reader, and what should they do or think differently as a result?")
	b.WriteString("\n\n### Conclusion\n\n")
	b.WriteString("Close by restating the main point in light of the details above, and suggest a next step.")
	return b.String()
}

var formalWords = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(?i)\bgonna\b`), "going to"},
	{regexp.MustCompile(`(?i)\bwanna\b`), "want to"},
	{regexp.MustCompile(`(?i)\bgotta\b`), "have to"},
	{regexp.MustCompile(`(?i)\bkinda\b`), "somewhat"},
	{regexp.MustCompile(`(?i)\bsorta\b`), "somewhat"},
	{regexp.MustCompile(`(?i)\byeah\b`), "yes"},
	{regexp.MustCompile(`(?i)\bnope\b`), "no"},
	{regexp.MustCompile(`(?i)\bstuff\b`), "material"},
	{regexp.MustCompile(`(?i)\ba lot of\b`), "many"},
	{regexp.MustCompile(`(?i)\blots of\b`), "many"},
	{regexp.MustCompile(`(?i)\bguys\b`), "everyone"},
	{regexp.MustCompile(`(?i)\bawesome\b`), "excellent"},
	{regexp.MustCompile(`(?i)\bok(?:ay)?\b`), "acceptable"},
	{regexp.MustCompile(`(?i)\bthanks\b`), "thank you"},
	{regexp.MustCompile(`(?i)\bcan't\b`), "cannot"},
	{regexp.MustCompile(`(?i)\bwon't\b`), "will not"},
	{regexp.MustCompile(`(?i)\bdon't\b`), "do not"},
	{regexp.MustCompile(`(?i)\bdoesn't\b`), "does not"},
	{regexp.MustCompile(`(?i)\bdidn't\b`), "did not"},
	{regexp.MustCompile(`(?i)\bisn't\b`), "is not"},
	{regexp.MustCompile(`(?i)\baren't\b`), "are not"},
	{regexp.MustCompile(`(?i)\bwasn't\b`), "was not"},
	{regexp.MustCompile(`(?i)\bshouldn't\b`), "should not"},
	{regexp.MustCompile(`(?i)\bcouldn't\b`), "could not"},
	{regexp.MustCompile(`(?i)\bwouldn't\b`), "would not"},
	{regexp.MustCompile(`(?i)\bit's\b`), "it is"},
	{regexp.MustCompile(`(?i)\bthat's\b`), "that is"},
	{regexp.MustCompile(`(?i)\bi'm\b`), "I am"},
	{regexp.MustCompile(`(?i)\bi've\b`), "I have"},
	{regexp.MustCompile(`(?i)\bi'll\b`), "I will"},
	{regexp.MustCompile(`(?i)\bwe're\b`), "we are"},
	{regexp.MustCompile(`(?i)\bthey're\b`), "they are"},
	{regexp.MustCompile(`(?i)\byou're\b`), "you are"},
}

// Rewrite turns informal text into a more formal register.
func Rewrite(text string) string {
	orig := strings.TrimSpace(text)
	if orig == "" {
		return "## Rewritten Version\n\nThere's no text to rewrite yet. Paste it in and I'll adjust the tone."
	}
	out := typo.Correct(orig)
	for _, f := range formalWords {
		out = f.re.ReplaceAllStringFunc(out, func(m string) string { return matchCase(m, f.repl) })
	}
	out = repeatPunct.ReplaceAllString(out, "$1")
	out = spaceRun.ReplaceAllString(out, " ")
	out = terminate(capitalizeSentences(loneI.ReplaceAllString(out, "I")))
	return "## Rewritten Version\n\n" + out + "\n\n*Tone: formal. Contractions expanded and casual words replaced.*"
}

func matchCase(orig, repl string) string {
	r, _ := utf8.DecodeRuneInString(orig)
	if unicode.IsUpper(r) {
		return capitalize(repl)
	}
	return repl
}

func splitSentences(text string) []string {
	var out []string
	for _, s := range sentenceRe.FindAllString(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func capitalizeSentences(s string) string {
	rs := []rune(s)
	start := true
	for i, r := range rs {
		switch {
		case r == '.' || r == '!' || r == '?' || r == '\n':
			start = true
		case unicode.IsLetter(r):
			if start {
				rs[i] = unicode.ToUpper(r)
			}
			start = false
		case !unicode.IsSpace(r):
			start = false
		}
	}
	return string(rs)
}

func terminate(s string) string {
	s = strings.TrimRight(s, " \t\n")
	if s == "" {
		return s
	}
	r, _ := utf8.DecodeLastRuneInString(s)
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return s + "."
	}
	return s
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || size == len(s) {
		return strings.ToLower(s)
	}
	next, _ := utf8.DecodeRuneInString(s[size:])
	if unicode.IsUpper(next) {
		return s // acronym
	}
	return string(unicode.ToLower(r)) + s[size:]
}

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true, "of": true, "to": true,
	"in": true, "on": true, "for": true, "with": true, "is": true, "are": true, "was": true, "were": true,
	"be": true, "been": true, "it": true, "its": true, "this": true, "that": true, "these": true,
	"those": true, "as": true, "at": true, "by": true, "from": true, "has": true, "have": true,
	"had": true, "not": true, "we": true, "you": true, "they": true, "he": true, "she": true, "i": true,
	"our": true, "your": true, "their": true, "can": true, "will": true, "would": true, "so": true,
	"if": true, "than": true, "then": true, "there": true, "which": true, "who": true, "what": true,
	"also": true, "more": true, "most": true, "very": true, "into": true, "about": true, "do": true,
}

func termFrequencies(text string) map[string]int {
	freq := make(map[string]int)
	for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		if len(w) > 2 && !stopwords[w] {
			freq[w]++
		}
	}
	return freq
}

// topTerms returns the n most frequent terms seen more than once, ties broken alphabetically.
func topTerms(freq map[string]int, n int) []string {
	var terms []string
	for w, c := range freq {
		if c > 1 {
			terms = append(terms, w)
		}
	}
	sort.Slice(terms, func(a, b int) bool {
		if freq[terms[a]] != freq[terms[b]] {
			return freq[terms[a]] > freq[terms[b]]
		}
		return terms[a] < terms[b]
	})
	if len(terms) > n {
		terms = terms[:n]
	}
	return terms
}

func keyTerms(freq map[string]int) string {
	terms := topTerms(freq, 5)
	if len(terms) == 0 {
		return ""
	}
	return "\n\n**Key terms:** " + strings.Join(terms, ", ")
}
