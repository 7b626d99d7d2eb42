package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// GeminiClient first asks the server-side proxy, then calls the Gemini API directly.
// When both fail the error goes back to the caller's fallback chain.
type GeminiClient struct {
	http     *http.Client
	settings Settings
	proxyURL string
	direct   geminiCaller
}

type geminiCaller interface {
	call(ctx context.Context, model string, t Task) (text string, tokens int, err error)
}

func NewGeminiClient(s Settings, proxyURL string) *GeminiClient {
	return &GeminiClient{
		http:     s.httpClient(),
		settings: s,
		proxyURL: proxyURL,
		direct:   &genaiCaller{settings: s},
	}
}

func (c *GeminiClient) Name() ProviderID { return ProviderGemini }

func (c *GeminiClient) Do(ctx context.Context, req Request) (Response, error) {
	if c.proxyURL == "" && c.settings.APIKey == "" {
		return Response{}, &ConfigError{Provider: ProviderGemini, Missing: "GEMINI_API_KEY"}
	}
	model := pickModel(c.settings, req)

	var proxyErr error
	if c.proxyURL != "" {
		resp, err := c.viaProxy(ctx, model, req)
		if err == nil {
			return resp, nil
		}
		proxyErr = err
		log.Warn().Err(err).Str("provider", string(ProviderGemini)).Msg("gemini proxy failed - trying direct call")
		if ctx.Err() != nil {
			return Response{}, proxyErr
		}
	}

	if c.settings.APIKey == "" {
		return Response{}, errors.Join(proxyErr, &ConfigError{Provider: ProviderGemini, Missing: "GEMINI_API_KEY"})
	}
	text, tokens, err := c.direct.call(ctx, model, req.Task)
	if err != nil {
		return Response{}, errors.Join(proxyErr, err)
	}
	return Response{
		Content:  text,
		Metadata: &Metadata{ModelID: model, TokenCount: tokens, ProviderID: ProviderGemini},
	}, nil
}

type geminiProxyReq struct {
	Model   string    `json:"model"`
	Tier    Tier      `json:"tier"`
	System  string    `json:"system,omitempty"`
	Prompt  string    `json:"prompt"`
	History []Message `json:"history,omitempty"`
}

type geminiProxyResp struct {
	Text       string `json:"text"`
	Model      string `json:"model"`
	TokenCount int    `json:"tokenCount"`
	Error      string `json:"error"`
}

func (c *GeminiClient) viaProxy(ctx context.Context, model string, req Request) (Response, error) {
	body, err := json.Marshal(geminiProxyReq{
		Model:   model,
		Tier:    req.Tier,
		System:  SystemPrompt(req.Task),
		Prompt:  UserPrompt(req.Task),
		History: req.Task.History,
	})
	if err != nil {
		return Response{}, fmt.Errorf("gemini proxy encode: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.proxyURL, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("gemini proxy request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("gemini proxy request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("gemini proxy read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Response{}, statusError(ProviderGemini, resp.StatusCode, raw)
	}
	var r geminiProxyResp
	if err := json.Unmarshal(raw, &r); err != nil {
		return Response{}, &ParseError{Provider: ProviderGemini, Reason: "proxy decode", Err: err}
	}
	if r.Error != "" {
		return Response{}, &ParseError{Provider: ProviderGemini, Reason: "proxy error: " + r.Error}
	}
	text := strings.TrimSpace(r.Text)
	if text == "" {
		return Response{}, &ParseError{Provider: ProviderGemini, Reason: "proxy returned empty text"}
	}
	if r.Model != "" {
		model = r.Model
	}
	return Response{
		Content:  text,
		Metadata: &Metadata{ModelID: model, TokenCount: r.TokenCount, ProviderID: ProviderGemini},
	}, nil
}

// genaiCaller talks to the Gemini API through the official SDK. The client is created on
// first use because construction needs a context.
type genaiCaller struct {
	settings Settings
	mu       sync.Mutex
	client   *genai.Client
}

func (g *genaiCaller) sdk(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil {
		return g.client, nil
	}
	cfg := &genai.ClientConfig{
		APIKey:     g.settings.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: g.settings.httpClient(),
	}
	if g.settings.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: g.settings.BaseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	g.client = client
	return client, nil
}

func (g *genaiCaller) call(ctx context.Context, model string, t Task) (string, int, error) {
	client, err := g.sdk(ctx)
	if err != nil {
		return "", 0, err
	}

	var contents []*genai.Content
	for _, m := range t.History {
		role := genai.Role(genai.RoleUser)
		if NormalizeRole(m.Role) == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	parts := []*genai.Part{genai.NewPartFromText(UserPrompt(t))}
	for _, a := range t.Attachments {
		if a.IsImage() || (a.MimeType == "application/pdf" && len(a.InlineData) > 0) {
			parts = append(parts, genai.NewPartFromBytes(a.InlineData, a.MimeType))
		}
	}
	contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))

	temperature := float32(0.7)
	resp, err := client.Models.GenerateContent(ctx, model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemPrompt(t), genai.RoleUser),
		MaxOutputTokens:   int32(g.settings.maxTokens()),
		Temperature:       &temperature,
	})
	if err != nil {
		return "", 0, fmt.Errorf("gemini generate: %w", err)
	}
	if err := geminiRefusal(resp); err != nil {
		return "", 0, err
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", 0, &ParseError{Provider: ProviderGemini, Reason: "no candidates"}
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", 0, &ParseError{Provider: ProviderGemini, Reason: "empty candidate"}
	}
	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return text, tokens, nil
}

// geminiRefusal maps a blocked prompt or a safety stop to ErrContentRefused.
func geminiRefusal(resp *genai.GenerateContentResponse) error {
	if resp == nil {
		return nil
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return fmt.Errorf("gemini prompt blocked (%s): %w", fb.BlockReason, ErrContentRefused)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil
	}
	switch reason := resp.Candidates[0].FinishReason; reason {
	case genai.FinishReasonSafety, genai.FinishReasonBlocklist, genai.FinishReasonProhibitedContent:
		return fmt.Errorf("gemini stopped (%s): %w", reason, ErrContentRefused)
	}
	return nil
}
