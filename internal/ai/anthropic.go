package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const anthropicDefaultBaseURL = "https://api.anthropic.com"

type AnthropicClient struct {
	http     *http.Client
	settings Settings
}

func NewAnthropicClient(s Settings) *AnthropicClient {
	if s.BaseURL == "" {
		s.BaseURL = anthropicDefaultBaseURL
	}
	return &AnthropicClient{http: s.httpClient(), settings: s}
}

func (c *AnthropicClient) Name() ProviderID { return ProviderAnthropic }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicMsgReq struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMsgResp struct {
	Type       string `json:"type"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *AnthropicClient) Do(ctx context.Context, req Request) (Response, error) {
	if c.settings.APIKey == "" {
		return Response{}, &ConfigError{Provider: ProviderAnthropic, Missing: "ANTHROPIC_API_KEY"}
	}
	model := pickModel(c.settings, req)

	payload := anthropicMsgReq{Model: model, MaxTokens: c.settings.maxTokens(), System: SystemPrompt(req.Task)}
	for _, m := range req.Task.History {
		payload.Messages = append(payload.Messages, anthropicMessage{Role: NormalizeRole(m.Role), Content: m.Content})
	}
	payload.Messages = append(payload.Messages, anthropicMessage{Role: "user", Content: UserPrompt(req.Task)})

	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("anthropic encode: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.settings.BaseURL, "/")+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("anthropic request: %w", err)
	}
	httpReq.Header.Set("x-api-key", c.settings.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("anthropic request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("anthropic read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Response{}, statusError(ProviderAnthropic, resp.StatusCode, raw)
	}

	var r anthropicMsgResp
	if err := json.Unmarshal(raw, &r); err != nil {
		return Response{}, &ParseError{Provider: ProviderAnthropic, Reason: "decode", Err: err}
	}
	if r.Error != nil || r.Type == "error" {
		msg := "error payload"
		if r.Error != nil {
			msg = r.Error.Type + ": " + r.Error.Message
		}
		return Response{}, &ParseError{Provider: ProviderAnthropic, Reason: msg}
	}
	if r.StopReason == "refusal" {
		return Response{}, fmt.Errorf("anthropic %s: %w", model, ErrContentRefused)
	}
	var text strings.Builder
	for _, block := range r.Content {
		if block.Type == "" || block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return Response{}, &ParseError{Provider: ProviderAnthropic, Reason: "no content"}
	}
	if r.Model != "" {
		model = r.Model
	}
	return Response{
		Content: strings.TrimSpace(text.String()),
		Metadata: &Metadata{
			ModelID:    model,
			TokenCount: r.Usage.InputTokens + r.Usage.OutputTokens,
			ProviderID: ProviderAnthropic,
		},
	}, nil
}
