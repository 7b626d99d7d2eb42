package ai

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Settings configures one provider client.
type Settings struct {
	APIKey     string
	BaseURL    string
	BasicModel string
	PlusModel  string
	Timeout    time.Duration
	MaxTokens  int
}

// ModelFor picks the model for a tier; plus falls back to basic when unset.
func (s Settings) ModelFor(t Tier) string {
	if t == TierPlus && s.PlusModel != "" {
		return s.PlusModel
	}
	return s.BasicModel
}

func (s Settings) maxTokens() int {
	if s.MaxTokens <= 0 {
		return 1024
	}
	return s.MaxTokens
}

func (s Settings) httpClient() *http.Client {
	return &http.Client{Timeout: s.Timeout}
}

func pickModel(s Settings, req Request) string {
	if req.Model != "" {
		return req.Model
	}
	return s.ModelFor(req.Tier)
}

const maxAttachmentChars = 12000

var kindInstructions = map[Kind]string{
	KindImprove:   "Improve the following text. Fix grammar and spelling and make it clearer while keeping its meaning.",
	KindSummarize: "Summarize the following text concisely.",
	KindExpand:    "Expand the following text with more detail and supporting points.",
	KindRewrite:   "Rewrite the following text in a different, polished style.",
}

// SystemPrompt is the instruction text shared by every vendor.
func SystemPrompt(t Task) string {
	var b strings.Builder
	b.WriteString("You are a helpful, concise assistant. Answer in markdown.")
	if c := strings.TrimSpace(t.Context); c != "" {
		b.WriteString("\n\n")
		b.WriteString(c)
	}
	return b.String()
}

// UserPrompt renders the task prompt, kind instruction and attachment text into one message.
func UserPrompt(t Task) string {
	var b strings.Builder
	if inst, ok := kindInstructions[t.EffectiveKind()]; ok {
		b.WriteString(inst)
		b.WriteString("\n\n")
	}
	b.WriteString(t.Prompt)
	for _, a := range t.Attachments {
		text := strings.TrimSpace(a.ExtractedText)
		if text == "" {
			continue
		}
		name := a.DisplayName
		if name == "" {
			name = a.URI
		}
		if len(text) > maxAttachmentChars {
			text = text[:maxAttachmentChars] + "\n[truncated]"
		}
		fmt.Fprintf(&b, "\n\nATTACHED FILE (%s):\n%s", name, text)
	}
	return b.String()
}

// NormalizeRole maps history roles onto the user/assistant pair most vendors accept.
func NormalizeRole(role string) string {
	switch strings.ToLower(role) {
	case "assistant", "model", "ai", "bot":
		return "assistant"
	default:
		return "user"
	}
}
