package orchestrator

import (
	"context"

	"github.com/local/assistcore/internal/ai"
	"github.com/local/assistcore/internal/knowledge"
)

// SessionProvider resolves the signed-in user for the request.
type SessionProvider interface {
	CurrentUser(ctx context.Context) (userID string, ok bool, err error)
}

// SubscriptionLookup returns the user's plan.
type SubscriptionLookup interface {
	Tier(ctx context.Context, userID string) (ai.Tier, error)
}

// UsageStatus is the outcome of a quota check.
type UsageStatus struct {
	CanUse bool
	Used   int
	Limit  int
}

// UsageGate checks and records per-user consumption.
type UsageGate interface {
	CheckLimits(ctx context.Context, userID string, tier ai.Tier) (UsageStatus, error)
	Increment(ctx context.Context, userID string, delta int) error
}

// LocaleResolver returns the caller's preferred language code, or "".
type LocaleResolver interface {
	LanguagePreference(ctx context.Context) string
}

// ContextMemory enriches prompts for plus users with what they said before.
type ContextMemory interface {
	EnhancePrompt(ctx context.Context, userID, prompt string) (string, error)
	UpdateFromInput(ctx context.Context, userID, prompt string) error
}

// KnowledgeBase answers free-form lookups for the local responder.
type KnowledgeBase interface {
	Search(ctx context.Context, query string, limit int) ([]knowledge.Entry, error)
}

// AttachmentPreparer fills in MIME type and extracted text for an attachment.
type AttachmentPreparer interface {
	Prepare(ctx context.Context, a ai.Attachment) (ai.Attachment, error)
}

// HealthProbe reports whether a provider currently answers.
type HealthProbe interface {
	Healthy(ctx context.Context, provider ai.ProviderID) bool
}

// Dependencies are the external collaborators. Only Sessions is required; the rest may be
// nil and are then skipped.
type Dependencies struct {
	Sessions      SessionProvider
	Subscriptions SubscriptionLookup
	Usage         UsageGate
	Locale        LocaleResolver
	Memory        ContextMemory
	Knowledge     KnowledgeBase
	Attachments   AttachmentPreparer
	Health        HealthProbe
}
