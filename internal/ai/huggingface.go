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

const huggingFaceDefaultBaseURL = "https://api-inference.huggingface.co"

// HuggingFaceClient calls the hosted inference API for text-generation models.
type HuggingFaceClient struct {
	http     *http.Client
	settings Settings
}

func NewHuggingFaceClient(s Settings) *HuggingFaceClient {
	if s.BaseURL == "" {
		s.BaseURL = huggingFaceDefaultBaseURL
	}
	return &HuggingFaceClient{http: s.httpClient(), settings: s}
}

func (c *HuggingFaceClient) Name() ProviderID { return ProviderHuggingFace }

type hfParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float64 `json:"temperature"`
	ReturnFullText bool    `json:"return_full_text"`
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}

func (c *HuggingFaceClient) Do(ctx context.Context, req Request) (Response, error) {
	if c.settings.APIKey == "" {
		return Response{}, &ConfigError{Provider: ProviderHuggingFace, Missing: "HUGGINGFACE_API_KEY"}
	}
	model := pickModel(c.settings, req)

	payload := hfRequest{
		Inputs: hfPrompt(req.Task),
		Parameters: hfParameters{
			MaxNewTokens: c.settings.maxTokens(),
			Temperature:  0.7,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("huggingface encode: %w", err)
	}
	url := fmt.Sprintf("%s/models/%s", strings.TrimRight(c.settings.BaseURL, "/"), model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("huggingface request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.settings.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("huggingface request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("huggingface read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Response{}, statusError(ProviderHuggingFace, resp.StatusCode, raw)
	}

	text, err := parseHFBody(raw)
	if err != nil {
		return Response{}, err
	}
	return Response{
		Content:  text,
		Metadata: &Metadata{ModelID: model, TokenCount: len(strings.Fields(text)), ProviderID: ProviderHuggingFace},
	}, nil
}

// parseHFBody accepts both the list form and the single-object form the API returns.
func parseHFBody(raw []byte) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	var text string
	switch {
	case bytes.HasPrefix(trimmed, []byte("[")):
		var gens []hfGeneration
		if err := json.Unmarshal(trimmed, &gens); err != nil {
			return "", &ParseError{Provider: ProviderHuggingFace, Reason: "decode", Err: err}
		}
		if len(gens) == 0 {
			return "", &ParseError{Provider: ProviderHuggingFace, Reason: "no generations"}
		}
		text = gens[0].GeneratedText
	case bytes.HasPrefix(trimmed, []byte("{")):
		var obj struct {
			GeneratedText string `json:"generated_text"`
			Error         string `json:"error"`
		}
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return "", &ParseError{Provider: ProviderHuggingFace, Reason: "decode", Err: err}
		}
		if obj.Error != "" {
			return "", &ParseError{Provider: ProviderHuggingFace, Reason: obj.Error}
		}
		text = obj.GeneratedText
	default:
		return "", &ParseError{Provider: ProviderHuggingFace, Reason: "unexpected body"}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &ParseError{Provider: ProviderHuggingFace, Reason: "empty generation"}
	}
	return text, nil
}

// hfPrompt flattens the conversation into the instruction format text-generation models expect.
func hfPrompt(t Task) string {
	var b strings.Builder
	b.WriteString("<s>[INST] ")
	b.WriteString(SystemPrompt(t))
	b.WriteString(" [/INST]</s>\n")
	for _, m := range t.History {
		if NormalizeRole(m.Role) == "assistant" {
			b.WriteString(m.Content)
			b.WriteString("</s>\n")
			continue
		}
		b.WriteString("[INST] ")
		b.WriteString(m.Content)
		b.WriteString(" [/INST]\n")
	}
	b.WriteString("[INST] ")
	b.WriteString(UserPrompt(t))
	b.WriteString(" [/INST]")
	return b.String()
}
