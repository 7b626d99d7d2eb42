package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

type OpenAIClient struct {
	client   *openai.Client
	settings Settings
}

func NewOpenAIClient(s Settings) *OpenAIClient {
	cfg := openai.DefaultConfig(s.APIKey)
	if s.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(s.BaseURL, "/")
	}
	cfg.HTTPClient = s.httpClient()
	return &OpenAIClient{client: openai.NewClientWithConfig(cfg), settings: s}
}

func (c *OpenAIClient) Name() ProviderID { return ProviderOpenAI }

func (c *OpenAIClient) Do(ctx context.Context, req Request) (Response, error) {
	if c.settings.APIKey == "" {
		return Response{}, &ConfigError{Provider: ProviderOpenAI, Missing: "OPENAI_API_KEY"}
	}
	model := pickModel(c.settings, req)

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt(req.Task)},
	}
	for _, m := range req.Task.History {
		role := openai.ChatMessageRoleUser
		if NormalizeRole(m.Role) == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	messages = append(messages, openAIUserMessage(req.Task))

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   c.settings.maxTokens(),
		Temperature: 0.7,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
			return Response{}, statusError(ProviderOpenAI, apiErr.HTTPStatusCode, []byte(apiErr.Message))
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
			return Response{}, statusError(ProviderOpenAI, reqErr.HTTPStatusCode, []byte(reqErr.Error()))
		}
		return Response{}, fmt.Errorf("openai request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, &ParseError{Provider: ProviderOpenAI, Reason: "no choices"}
	}
	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter || choice.Message.Refusal != "" {
		return Response{}, fmt.Errorf("openai %s: %w", model, ErrContentRefused)
	}
	text := strings.TrimSpace(choice.Message.Content)
	if text == "" {
		return Response{}, &ParseError{Provider: ProviderOpenAI, Reason: "empty content"}
	}
	if resp.Model != "" {
		model = resp.Model
	}
	return Response{
		Content: text,
		Metadata: &Metadata{
			ModelID:    model,
			TokenCount: resp.Usage.TotalTokens,
			ProviderID: ProviderOpenAI,
		},
	}, nil
}

// openAIUserMessage sends images as vision parts next to the text prompt.
func openAIUserMessage(t Task) openai.ChatCompletionMessage {
	prompt := UserPrompt(t)
	var images []Attachment
	for _, a := range t.Attachments {
		if a.IsImage() {
			images = append(images, a)
		}
	}
	if len(images) == 0 {
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt}
	}
	parts := []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: prompt}}
	for _, a := range images {
		url := fmt.Sprintf("data:%s;base64,%s", a.MimeType, base64.StdEncoding.EncodeToString(a.InlineData))
		parts = append(parts, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: url, Detail: openai.ImageURLDetailAuto},
		})
	}
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts}
}
