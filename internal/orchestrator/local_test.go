package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/local/assistcore/internal/ai"
	"github.com/local/assistcore/internal/classify"
	"github.com/local/assistcore/internal/generators"
)

func newLocal() *LocalResponder {
	return NewLocalResponder(classify.Default(), generators.DefaultRegistry(), nil, 0)
}

func TestLocalResponder_Scenarios(t *testing.T) {
	l := newLocal()
	ctx := context.Background()

	resp := l.Respond(ctx, ai.Task{Prompt: "25 + 17"})
	assert.Contains(t, resp.Content, "25 + 17 = 42")
	assert.Equal(t, ai.ProviderMock, resp.Metadata.ProviderID)
	assert.Equal(t, "local", resp.Metadata.ModelID)
	assert.Positive(t, resp.Metadata.TokenCount)

	again := l.Respond(ctx, ai.Task{Prompt: "25 + 17"})
	assert.Equal(t, resp.Content, again.Content, "deterministic")

	fix := l.RepairCode("fix this: for (let i = 0; i <= arr.length; i++) { console.log(arr[i]) }")
	assert.Contains(t, fix.Content, "i < arr.length")
	assert.Equal(t, "code-repair", fix.Metadata.ModelID)
}

func TestLocalResponder_FollowUp(t *testing.T) {
	l := newLocal()
	history := []ai.Message{
		{Role: "user", Content: "how can I improve my sleep"},
		{Role: "assistant", Content: "Here are some tips..."},
	}
	resp := l.Respond(context.Background(), ai.Task{Prompt: "why?", History: history})
	assert.Contains(t, resp.Content, "## More on")
	assert.Contains(t, resp.Content, "reasoning")
}

func TestLocalResponder_TransformKinds(t *testing.T) {
	l := newLocal()
	text := "i think teh plan is good. we should start soon. the budget is tight but workable."
	for _, kind := range []ai.Kind{ai.KindImprove, ai.KindSummarize, ai.KindExpand, ai.KindRewrite} {
		resp := l.Respond(context.Background(), ai.Task{Kind: kind, Prompt: text})
		want, _ := generators.Transform(kind, text)
		assert.Equal(t, want, resp.Content, kind)
	}
}

func TestLocalResponder_AttachmentsWhenNothingElseMatches(t *testing.T) {
	l := newLocal()
	resp := l.Respond(context.Background(), ai.Task{
		Prompt: "zxqv blorp",
		Attachments: []ai.Attachment{
			{DisplayName: "image.png", MimeType: "image/png"},
			{DisplayName: "notes.txt", ExtractedText: "Quarterly revenue grew. Costs fell sharply. Hiring is paused until spring."},
		},
	})
	assert.Contains(t, resp.Content, "## About Your Attachment")
	assert.Contains(t, resp.Content, "### notes.txt")
	assert.NotContains(t, resp.Content, "image.png")
}

func TestLocalResponder_KnowledgeOnlyForUnmatchedPrompts(t *testing.T) {
	kb := &countingKB{}
	l := NewLocalResponder(classify.Default(), generators.DefaultRegistry(), kb, 0)
	l.Respond(context.Background(), ai.Task{Prompt: "hello"})
	assert.Zero(t, kb.searches.Load())
	resp := l.Respond(context.Background(), ai.Task{Prompt: "zxqv blorp"})
	assert.EqualValues(t, 1, kb.searches.Load())
	assert.Equal(t, generators.Default("zxqv blorp", "zxqv blorp"), resp.Content, "empty search falls through to the default generator")
}
