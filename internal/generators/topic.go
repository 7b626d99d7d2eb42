package generators

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/local/assistcore/internal/content"
)

var (
	fillerLead  = regexp.MustCompile(`(?i)^(?:(?:hey|hi|hello|ok|okay|so|um|well|please|pls)[,!.]?\s+)+`)
	askLead     = regexp.MustCompile(`(?i)^(?:(?:can|could|would|will)\s+you\s+(?:please\s+)?|i\s+(?:need|want|would\s+like)\s+(?:some\s+)?(?:help|advice|tips|info|information)?\s*(?:with|on|about|for)?\s*|please\s+)`)
	topicLead   = regexp.MustCompile(`(?i)^(?:tell\s+me\s+(?:about|more\s+about)|what\s+(?:is|are)|what's|explain|describe|how\s+(?:do|can|should)\s+(?:i|you|we)|how\s+to|help\s+me\s+(?:with|to)?|give\s+me\s+(?:some\s+)?(?:tips|advice|ideas)?\s*(?:on|for|about)?|tips\s+(?:on|for)|advice\s+(?:on|for|about)|teach\s+me(?:\s+about)?|show\s+me)\s+`)
	subjectTail = regexp.MustCompile(`[\s?.!,;:]+$`)
)

const maxSubject = 60

// Subject pulls the thing being asked about out of a prompt: "Can you tell me about black
// holes?" gives "black holes". It falls back to "this" when nothing usable remains.
func Subject(raw string) string {
	s := strings.TrimSpace(raw)
	s = fillerLead.ReplaceAllString(s, "")
	s = askLead.ReplaceAllString(s, "")
	s = topicLead.ReplaceAllString(s, "")
	s = subjectTail.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return "this"
	}
	if utf8.RuneCountInString(s) > maxSubject {
		cut := string([]rune(s)[:maxSubject])
		if i := strings.LastIndexFunc(cut, unicode.IsSpace); i > 0 {
			cut = cut[:i]
		}
		return cut + "…"
	}
	return s
}

// RenderTopic assembles a markdown answer from a topic: title, intro, the first branch whose
// keywords match (or the fallback body) and the closing line.
func RenderTopic(t *content.Topic, raw, lower string) string {
	body := t.Fallback
	if b := t.Branch(lower); b != nil {
		body = b.Body
	}
	parts := []string{"## " + t.Title}
	if intro := fill(t.Intro, raw); intro != "" {
		parts = append(parts, intro)
	}
	parts = append(parts, strings.TrimSpace(body))
	if t.Closing != "" {
		parts = append(parts, strings.TrimSpace(t.Closing))
	}
	return strings.Join(parts, "\n\n")
}

func fill(tmpl, raw string) string {
	tmpl = strings.TrimSpace(tmpl)
	if !strings.Contains(tmpl, "{subject}") {
		return tmpl
	}
	return strings.ReplaceAll(tmpl, "{subject}", Subject(raw))
}

// topicGenerator binds a content topic to the Generator contract.
func topicGenerator(t *content.Topic) Generator {
	return func(raw, lower string) string {
		return RenderTopic(t, raw, lower)
	}
}
