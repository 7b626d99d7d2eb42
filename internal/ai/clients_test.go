package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func testTask() Task {
	return Task{
		Kind:    KindGenerate,
		Prompt:  "how do I boil an egg",
		Context: "User language preference: en",
		History: []Message{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}},
	}
}

func TestOpenAIClient_Success(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","model":"gpt-4o-mini","choices":[{"index":0,"message":{"role":"assistant","content":"Boil it for 9 minutes."},"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":6,"total_tokens":16}}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient(Settings{APIKey: "sk-test", BaseURL: srv.URL + "/v1", BasicModel: "gpt-4o-mini", PlusModel: "gpt-4o", Timeout: 5 * time.Second})
	resp, err := c.Do(context.Background(), Request{Task: testTask(), Tier: TierBasic})
	require.NoError(t, err)
	assert.Equal(t, "Boil it for 9 minutes.", resp.Content)
	require.NotNil(t, resp.Metadata)
	assert.Equal(t, ProviderOpenAI, resp.Metadata.ProviderID)
	assert.Equal(t, 16, resp.Metadata.TokenCount)
	assert.Equal(t, "gpt-4o-mini", got["model"])
	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 4)
}

func TestOpenAIClient_PlusTierUsesLargerModel(t *testing.T) {
	var model string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		model = body.Model
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient(Settings{APIKey: "k", BaseURL: srv.URL + "/v1", BasicModel: "small", PlusModel: "large"})
	_, err := c.Do(context.Background(), Request{Task: testTask(), Tier: TierPlus})
	require.NoError(t, err)
	assert.Equal(t, "large", model)
}

func TestOpenAIClient_Errors(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		_, err := NewOpenAIClient(Settings{}).Do(context.Background(), Request{Task: testTask()})
		var cfgErr *ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, ProviderOpenAI, cfgErr.Provider)
	})

	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"error":{"message":"boom","type":"server_error"}}`)
		}))
		defer srv.Close()
		_, err := NewOpenAIClient(Settings{APIKey: "k", BaseURL: srv.URL + "/v1", BasicModel: "m"}).Do(context.Background(), Request{Task: testTask()})
		var httpErr *HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, 500, httpErr.StatusCode)
	})

	t.Run("no choices", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"choices":[]}`)
		}))
		defer srv.Close()
		_, err := NewOpenAIClient(Settings{APIKey: "k", BaseURL: srv.URL + "/v1", BasicModel: "m"}).Do(context.Background(), Request{Task: testTask()})
		var parseErr *ParseError
		require.ErrorAs(t, err, &parseErr)
	})
}

func TestAnthropicClient(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/messages", r.URL.Path)
			assert.Equal(t, "ak", r.Header.Get("x-api-key"))
			var body anthropicMsgReq
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Contains(t, body.System, "User language preference: en")
			require.Len(t, body.Messages, 3)
			assert.Equal(t, "assistant", body.Messages[1].Role)
			_, _ = io.WriteString(w, `{"type":"message","model":"claude-x","content":[{"type":"text","text":"Boil for 9 minutes."}],"usage":{"input_tokens":5,"output_tokens":4}}`)
		}))
		defer srv.Close()
		resp, err := NewAnthropicClient(Settings{APIKey: "ak", BaseURL: srv.URL, BasicModel: "claude-x"}).Do(context.Background(), Request{Task: testTask()})
		require.NoError(t, err)
		assert.Equal(t, "Boil for 9 minutes.", resp.Content)
		assert.Equal(t, 9, resp.Metadata.TokenCount)
	})

	t.Run("rate limited", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()
		_, err := NewAnthropicClient(Settings{APIKey: "ak", BaseURL: srv.URL}).Do(context.Background(), Request{Task: testTask()})
		assert.True(t, IsRateLimited(err))
		var httpErr *HTTPError
		assert.ErrorAs(t, err, &httpErr)
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `not json`)
		}))
		defer srv.Close()
		_, err := NewAnthropicClient(Settings{APIKey: "ak", BaseURL: srv.URL}).Do(context.Background(), Request{Task: testTask()})
		var parseErr *ParseError
		assert.ErrorAs(t, err, &parseErr)
	})
}

func TestHuggingFaceClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/org/model-7b", r.URL.Path)
		var body hfRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.True(t, strings.HasSuffix(body.Inputs, "[/INST]"))
		_, _ = io.WriteString(w, `[{"generated_text":"  Nine minutes.  "}]`)
	}))
	defer srv.Close()

	resp, err := NewHuggingFaceClient(Settings{APIKey: "hf", BaseURL: srv.URL, BasicModel: "org/model-7b"}).Do(context.Background(), Request{Task: testTask()})
	require.NoError(t, err)
	assert.Equal(t, "Nine minutes.", resp.Content)
	assert.Equal(t, ProviderHuggingFace, resp.Metadata.ProviderID)
}

func TestParseHFBody(t *testing.T) {
	text, err := parseHFBody([]byte(`{"generated_text":"hello"}`))
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	_, err = parseHFBody([]byte(`{"error":"Model is currently loading"}`))
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Reason, "loading")

	_, err = parseHFBody([]byte(`[]`))
	assert.Error(t, err)
}

type fakeGeminiDirect struct {
	calls int
	text  string
	err   error
}

func (f *fakeGeminiDirect) call(ctx context.Context, model string, t Task) (string, int, error) {
	f.calls++
	return f.text, 3, f.err
}

func TestGeminiClient_ProxyFirst(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"text":"from proxy","model":"gemini-flash"}`)
	}))
	defer srv.Close()

	direct := &fakeGeminiDirect{text: "from direct"}
	c := NewGeminiClient(Settings{APIKey: "g", BasicModel: "gemini-flash"}, srv.URL)
	c.direct = direct

	resp, err := c.Do(context.Background(), Request{Task: testTask()})
	require.NoError(t, err)
	assert.Equal(t, "from proxy", resp.Content)
	assert.Equal(t, 0, direct.calls)
}

func TestGeminiClient_ErrorPayloadFallsBackToDirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"error":"quota exceeded"}`)
	}))
	defer srv.Close()

	direct := &fakeGeminiDirect{text: "from direct"}
	c := NewGeminiClient(Settings{APIKey: "g", BasicModel: "gemini-flash"}, srv.URL)
	c.direct = direct

	resp, err := c.Do(context.Background(), Request{Task: testTask()})
	require.NoError(t, err)
	assert.Equal(t, "from direct", resp.Content)
	assert.Equal(t, 1, direct.calls)
}

func TestGeminiClient_BothFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	direct := &fakeGeminiDirect{err: errors.New("dial tcp: connection refused")}
	c := NewGeminiClient(Settings{APIKey: "g"}, srv.URL)
	c.direct = direct

	_, err := c.Do(context.Background(), Request{Task: testTask()})
	require.Error(t, err)
	var httpErr *HTTPError
	assert.ErrorAs(t, err, &httpErr)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 1, direct.calls)
}

func TestGeminiClient_NotConfigured(t *testing.T) {
	_, err := NewGeminiClient(Settings{}, "").Do(context.Background(), Request{Task: testTask()})
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestClients_RefusalIsContentRefused(t *testing.T) {
	t.Run("openai content filter", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":""},"finish_reason":"content_filter"}]}`)
		}))
		defer srv.Close()
		_, err := NewOpenAIClient(Settings{APIKey: "k", BaseURL: srv.URL + "/v1", BasicModel: "m"}).Do(context.Background(), Request{Task: testTask()})
		assert.True(t, IsContentRefused(err), "%v", err)
	})

	t.Run("openai refusal message", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","refusal":"I can't help with that."},"finish_reason":"stop"}]}`)
		}))
		defer srv.Close()
		_, err := NewOpenAIClient(Settings{APIKey: "k", BaseURL: srv.URL + "/v1", BasicModel: "m"}).Do(context.Background(), Request{Task: testTask()})
		assert.True(t, IsContentRefused(err), "%v", err)
	})

	t.Run("anthropic refusal stop reason", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"type":"message","model":"claude-x","stop_reason":"refusal","content":[{"type":"text","text":"partial"}]}`)
		}))
		defer srv.Close()
		_, err := NewAnthropicClient(Settings{APIKey: "ak", BaseURL: srv.URL}).Do(context.Background(), Request{Task: testTask()})
		assert.True(t, IsContentRefused(err), "%v", err)
	})
}

func TestGeminiRefusal(t *testing.T) {
	assert.NoError(t, geminiRefusal(nil))
	assert.NoError(t, geminiRefusal(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonStop}},
	}))

	err := geminiRefusal(&genai.GenerateContentResponse{
		PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety},
	})
	assert.True(t, IsContentRefused(err))

	err = geminiRefusal(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonProhibitedContent}},
	})
	assert.True(t, IsContentRefused(err))
	assert.Contains(t, err.Error(), "PROHIBITED_CONTENT")
}
