package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/assistcore/internal/ai"
	"github.com/local/assistcore/internal/classify"
	"github.com/local/assistcore/internal/generators"
	mpkg "github.com/local/assistcore/internal/metrics"
)

const (
	localModel      = "local"
	codeRepairModel = "code-repair"
	knowledgeLimit  = 2
)

// LocalResponder answers from the classifier and the generator library. It never fails.
type LocalResponder struct {
	classifier *classify.Classifier
	registry   *generators.Registry
	knowledge  KnowledgeBase
	latency    time.Duration
}

// NewLocalResponder builds a responder over the given classifier and registry. kb may be nil.
func NewLocalResponder(c *classify.Classifier, r *generators.Registry, kb KnowledgeBase, latency time.Duration) *LocalResponder {
	return &LocalResponder{classifier: c, registry: r, knowledge: kb, latency: latency}
}

// Respond renders a response for task. The artificial latency ends early when ctx is done;
// cancellation never turns into a failure here.
func (l *LocalResponder) Respond(ctx context.Context, task ai.Task) ai.Response {
	start := time.Now()

	var text string
	if out, ok := generators.Transform(task.EffectiveKind(), task.Prompt); ok {
		mpkg.IncRoute(string(task.EffectiveKind()), "transform")
		text = out
	} else {
		text = l.generate(ctx, task)
	}

	l.wait(ctx)
	return ai.Response{
		Content: text,
		Metadata: &ai.Metadata{
			ModelID:    localModel,
			TokenCount: len(strings.Fields(text)),
			LatencyMs:  time.Since(start).Milliseconds(),
			ProviderID: ai.ProviderMock,
		},
	}
}

func (l *LocalResponder) generate(ctx context.Context, task ai.Task) string {
	route := l.classifier.ClassifyConversation(task.Prompt, task.History)
	mpkg.IncRoute(route.Category, string(route.Stage))
	log.Debug().
		Str("category", route.Category).
		Str("stage", string(route.Stage)).
		Str("topic", route.Topic).
		Msg("local route")

	switch route.Stage {
	case classify.StageFollowUp:
		return l.registry.FollowUp(route.Topic, task.Prompt, strings.ToLower(task.Prompt))
	case classify.StageDefault:
		if answer, ok := l.fromKnowledge(ctx, task.Prompt); ok {
			return answer
		}
		if answer, ok := fromAttachments(task.Attachments); ok {
			return answer
		}
	}
	return l.registry.Render(route.Category, task.Prompt)
}

func (l *LocalResponder) fromKnowledge(ctx context.Context, prompt string) (string, bool) {
	if l.knowledge == nil {
		return "", false
	}
	entries, err := l.knowledge.Search(ctx, prompt, knowledgeLimit)
	if err != nil {
		mpkg.IncAuxFailure("knowledge")
		log.Warn().Err(err).Msg("knowledge search failed")
		return "", false
	}
	if len(entries) == 0 {
		return "", false
	}
	var b strings.Builder
	b.WriteString("## Here's What I Found\n\n")
	for _, e := range entries {
		title := e.Title
		if title == "" {
			title = e.ID
		}
		fmt.Fprintf(&b, "### %s\n\n%s\n\n", title, strings.TrimSpace(e.Content))
	}
	b.WriteString("Does this answer your question, or should I go into more detail on one of these?")
	return b.String(), true
}

// fromAttachments summarises text extracted from the user's files when the prompt alone
// gives nothing to go on.
func fromAttachments(atts []ai.Attachment) (string, bool) {
	var b strings.Builder
	for _, a := range atts {
		text := strings.TrimSpace(a.ExtractedText)
		if text == "" {
			continue
		}
		if b.Len() == 0 {
			b.WriteString("## About Your Attachment\n\n")
		}
		name := a.DisplayName
		if name == "" {
			name = "attachment"
		}
		fmt.Fprintf(&b, "### %s\n\n%s\n\n", name, generators.Summarize(text))
	}
	if b.Len() == 0 {
		return "", false
	}
	b.WriteString("What would you like me to do with it?")
	return b.String(), true
}

// RepairCode runs the code-repair generator directly, bypassing providers.
func (l *LocalResponder) RepairCode(prompt string) ai.Response {
	start := time.Now()
	mpkg.IncRoute(generators.CategoryCodeRepair, string(classify.StageCodeRepair))
	text := l.registry.Render(generators.CategoryCodeRepair, prompt)
	return ai.Response{
		Content: text,
		Metadata: &ai.Metadata{
			ModelID:    codeRepairModel,
			TokenCount: len(strings.Fields(text)),
			LatencyMs:  time.Since(start).Milliseconds(),
			ProviderID: ai.ProviderMock,
		},
	}
}

func (l *LocalResponder) wait(ctx context.Context) {
	if l.latency <= 0 {
		return
	}
	t := time.NewTimer(l.latency)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
