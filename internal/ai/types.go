package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind is what the caller wants done with the prompt.
type Kind string

const (
	KindGenerate  Kind = "generate"
	KindImprove   Kind = "improve"
	KindSummarize Kind = "summarize"
	KindExpand    Kind = "expand"
	KindRewrite   Kind = "rewrite"
)

// Valid reports whether k is one of the known task kinds. The empty kind counts as generate.
func (k Kind) Valid() bool {
	switch k {
	case "", KindGenerate, KindImprove, KindSummarize, KindExpand, KindRewrite:
		return true
	}
	return false
}

// Tier is the caller's subscription tier.
type Tier string

const (
	TierBasic Tier = "basic"
	TierPlus  Tier = "plus"
)

// ParseTier maps free-form tier names to a Tier, defaulting to basic.
func ParseTier(s string) Tier {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "plus", "premium", "pro":
		return TierPlus
	default:
		return TierBasic
	}
}

// ProviderID names an external vendor, or the local generator ("mock").
type ProviderID string

const (
	ProviderHuggingFace ProviderID = "huggingface"
	ProviderOpenAI      ProviderID = "openai"
	ProviderAnthropic   ProviderID = "anthropic"
	ProviderGemini      ProviderID = "gemini"
	ProviderMock        ProviderID = "mock"
)

// Providers lists every known provider in documentation order.
var Providers = []ProviderID{ProviderHuggingFace, ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderMock}

// ParseProvider accepts a provider name case-insensitively.
func ParseProvider(s string) (ProviderID, error) {
	v := ProviderID(strings.ToLower(strings.TrimSpace(s)))
	switch v {
	case "hf", "hugging_face":
		return ProviderHuggingFace, nil
	case "claude":
		return ProviderAnthropic, nil
	case "google":
		return ProviderGemini, nil
	case "local":
		return ProviderMock, nil
	}
	for _, p := range Providers {
		if p == v {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown provider %q", s)
}

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Attachment is a file the user sent along with the prompt.
type Attachment struct {
	URI           string `json:"uri,omitempty"`
	MimeType      string `json:"mimeType,omitempty"`
	DisplayName   string `json:"displayName,omitempty"`
	InlineData    []byte `json:"inlineData,omitempty"`
	ExtractedText string `json:"extractedText,omitempty"`
	SizeBytes     int64  `json:"sizeBytes,omitempty"`
}

// IsImage reports whether the attachment carries image bytes a vision model can take.
func (a Attachment) IsImage() bool {
	return len(a.InlineData) > 0 && strings.HasPrefix(a.MimeType, "image/")
}

// Task is a single request to the assistant.
type Task struct {
	Kind        Kind           `json:"kind"`
	Prompt      string         `json:"prompt"`
	Context     string         `json:"context,omitempty"`
	History     []Message      `json:"history,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Attachments []Attachment   `json:"attachments,omitempty"`
}

// Clone returns a deep copy so pipeline stages never alias the caller's task.
func (t Task) Clone() Task {
	c := t
	if t.History != nil {
		c.History = append([]Message(nil), t.History...)
	}
	if t.Parameters != nil {
		c.Parameters = make(map[string]any, len(t.Parameters))
		for k, v := range t.Parameters {
			c.Parameters[k] = v
		}
	}
	if t.Attachments != nil {
		c.Attachments = make([]Attachment, len(t.Attachments))
		for i, a := range t.Attachments {
			if a.InlineData != nil {
				a.InlineData = append([]byte(nil), a.InlineData...)
			}
			c.Attachments[i] = a
		}
	}
	return c
}

// EffectiveKind returns the task kind, treating empty as generate.
func (t Task) EffectiveKind() Kind {
	if t.Kind == "" {
		return KindGenerate
	}
	return t.Kind
}

// Metadata describes how a response was produced.
type Metadata struct {
	ModelID    string     `json:"modelId,omitempty"`
	TokenCount int        `json:"tokenCount,omitempty"`
	LatencyMs  int64      `json:"latencyMs"`
	ProviderID ProviderID `json:"providerId"`
}

// Response is the assistant's answer.
type Response struct {
	Content  string    `json:"content"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

// Request is what a provider client receives: the prepared task plus routing hints.
type Request struct {
	Task Task
	Tier Tier
	// Model overrides the tier-selected model when set.
	Model string
}

// Client interface for providers like OpenAI, Anthropic.
type Client interface {
	Name() ProviderID
	Do(ctx context.Context, req Request) (Response, error)
}

var (
	ErrRateLimited    = errors.New("rate_limited")
	ErrContentRefused = errors.New("content_refused")
)

func IsRateLimited(err error) bool    { return errors.Is(err, ErrRateLimited) }
func IsContentRefused(err error) bool { return errors.Is(err, ErrContentRefused) }
