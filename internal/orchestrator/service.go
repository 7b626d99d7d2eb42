// Package orchestrator runs a chat request through auth, usage, normalization and
// enrichment, then dispatches it to the provider chain that ends at the local responder.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/local/assistcore/internal/ai"
	"github.com/local/assistcore/internal/classify"
	"github.com/local/assistcore/internal/config"
	"github.com/local/assistcore/internal/dispatcher"
	"github.com/local/assistcore/internal/generators"
	mpkg "github.com/local/assistcore/internal/metrics"
	"github.com/local/assistcore/internal/typo"
)

// State is a step of the request lifecycle, logged on every transition.
type State string

const (
	StateIdle          State = "idle"
	StateAuthChecked   State = "auth_checked"
	StateUsageChecked  State = "usage_checked"
	StateNormalized    State = "normalized"
	StateEnriched      State = "enriched"
	StateDispatched    State = "dispatched"
	StateFallback      State = "fallback"
	StateLocalFallback State = "local_fallback"
	StateSucceeded     State = "succeeded"
)

// Service is the request core. Configuration is fixed at construction; only the active
// provider can change afterwards, through SetActiveProvider.
type Service struct {
	deps      Dependencies
	providers config.ProvidersConfig
	clients   map[ai.ProviderID]ai.Client
	available []ai.ProviderID
	chain     *dispatcher.Chain
	local     *LocalResponder
	corrector *typo.Corrector
	tracer    trace.Tracer

	mu     sync.RWMutex
	active ai.ProviderID
}

type Option func(*Service)

// WithClient registers c for its provider, replacing the client built from configuration.
// A registered client makes its provider available.
func WithClient(c ai.Client) Option {
	return func(s *Service) { s.clients[c.Name()] = c }
}

func WithChain(c *dispatcher.Chain) Option { return func(s *Service) { s.chain = c } }

func WithLocalResponder(l *LocalResponder) Option { return func(s *Service) { s.local = l } }

func WithCorrector(c *typo.Corrector) Option { return func(s *Service) { s.corrector = c } }

func WithTracer(t trace.Tracer) Option { return func(s *Service) { s.tracer = t } }

// New builds a Service from cfg. Provider clients are created for every provider whose
// credentials are configured.
func New(cfg config.Config, deps Dependencies, opts ...Option) *Service {
	s := &Service{
		deps:      deps,
		providers: cfg.Providers,
		clients:   clientsFromConfig(cfg.Providers),
		corrector: typo.Default(),
		tracer:    otel.Tracer("github.com/local/assistcore/internal/orchestrator"),
	}
	for _, o := range opts {
		o(s)
	}
	if s.chain == nil {
		s.chain = dispatcher.NewChain()
	}
	if s.local == nil {
		s.local = NewLocalResponder(classify.Default(), generators.DefaultRegistry(), deps.Knowledge, cfg.Local.Latency)
	}

	for _, p := range ai.Providers {
		if p == ai.ProviderMock {
			continue
		}
		if _, ok := s.clients[p]; ok {
			s.available = append(s.available, p)
		}
	}
	s.available = append(s.available, ai.ProviderMock)
	s.active = s.initialActive(cfg.Providers.Active)

	log.Info().
		Str("active", string(s.active)).
		Interface("available", s.available).
		Strs("fallback", cfg.Providers.Fallback).
		Msg("orchestrator ready")
	return s
}

func clientsFromConfig(p config.ProvidersConfig) map[ai.ProviderID]ai.Client {
	out := make(map[ai.ProviderID]ai.Client)
	if p.Configured(ai.ProviderHuggingFace) {
		out[ai.ProviderHuggingFace] = ai.NewHuggingFaceClient(p.HuggingFace)
	}
	if p.Configured(ai.ProviderOpenAI) {
		out[ai.ProviderOpenAI] = ai.NewOpenAIClient(p.OpenAI)
	}
	if p.Configured(ai.ProviderAnthropic) {
		out[ai.ProviderAnthropic] = ai.NewAnthropicClient(p.Anthropic)
	}
	if p.Configured(ai.ProviderGemini) {
		out[ai.ProviderGemini] = ai.NewGeminiClient(p.Gemini, p.GeminiProxyURL)
	}
	return out
}

// initialActive honours the configured provider when it is available, otherwise picks the
// first available external provider, otherwise the local generator.
func (s *Service) initialActive(configured string) ai.ProviderID {
	if configured != "" {
		if p, err := ai.ParseProvider(configured); err == nil && s.isListed(p) {
			return p
		}
		log.Warn().Str("provider", configured).Msg("configured provider not available - picking another")
	}
	return s.available[0]
}

func (s *Service) isListed(p ai.ProviderID) bool {
	for _, a := range s.available {
		if a == p {
			return true
		}
	}
	return false
}

// ListAvailableProviders returns the providers with credentials, in fixed order, with the
// local generator last. No I/O.
func (s *Service) ListAvailableProviders() []ai.ProviderID {
	return append([]ai.ProviderID(nil), s.available...)
}

// SetActiveProvider switches the provider used for new requests.
func (s *Service) SetActiveProvider(p ai.ProviderID) error {
	if !s.isListed(p) {
		return fmt.Errorf("%w: %s", ErrProviderUnavailable, p)
	}
	s.mu.Lock()
	prev := s.active
	s.active = p
	s.mu.Unlock()
	log.Info().Str("from", string(prev)).Str("to", string(p)).Msg("active provider changed")
	return nil
}

func (s *Service) ActiveProvider() ai.ProviderID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// IsAvailable is a best-effort liveness probe of the active provider. The local generator
// is always available.
func (s *Service) IsAvailable(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	active := s.ActiveProvider()
	if active == ai.ProviderMock || s.deps.Health == nil {
		return true
	}
	return s.deps.Health.Healthy(ctx, active)
}

type requestIDKey struct{}

// ContextWithRequestID makes Generate reuse id instead of minting one.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

// Generate answers task. It returns ErrAuthenticationRequired or ErrUsageLimitExceeded;
// every other failure degrades to the next provider and finally to the local responder.
// The caller's task is never modified.
func (s *Service) Generate(ctx context.Context, task ai.Task) (ai.Response, error) {
	requestID := requestIDFrom(ctx)
	ctx, span := s.tracer.Start(ctx, "orchestrator.Generate", trace.WithAttributes(
		attribute.String("request_id", requestID),
		attribute.String("kind", string(task.EffectiveKind())),
	))
	defer span.End()

	start := time.Now()
	s.transition(requestID, StateIdle)

	// 1. auth
	userID, err := s.currentUser(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		mpkg.IncRequest("auth_required", "")
		log.Warn().Err(err).Str("request_id", requestID).Msg("request rejected")
		return ai.Response{}, err
	}
	s.transition(requestID, StateAuthChecked)

	// 2. tier + usage
	tier := s.tier(ctx, requestID, userID)
	if err := s.checkUsage(ctx, requestID, userID, tier); err != nil {
		span.SetStatus(codes.Error, err.Error())
		mpkg.IncRequest("usage_exceeded", "")
		return ai.Response{}, err
	}
	s.transition(requestID, StateUsageChecked)

	// 3. normalize on a private copy
	t := task.Clone()
	t.Prompt = s.corrector.Correct(t.Prompt)
	s.transition(requestID, StateNormalized)

	// 4-5. enrich
	t.Context = s.appendContext(ctx, t.Context, tier)
	t.Attachments = s.prepareAttachments(ctx, requestID, t.Attachments)
	local := t
	provider := t
	if tier == ai.TierPlus {
		provider.Prompt = s.enhance(ctx, requestID, userID, t.Prompt)
	}
	s.transition(requestID, StateEnriched)

	// 6. code repair bypasses providers
	if t.EffectiveKind() == ai.KindGenerate && generators.LooksLikeCodeFix(strings.ToLower(t.Prompt)) {
		resp := s.local.RepairCode(t.Prompt)
		s.finish(span, requestID, resp, start)
		return resp, nil
	}

	// 7-9. provider chain ending at the local responder
	steps := s.steps(tier, provider, local)
	s.transition(requestID, StateDispatched)
	res, err := s.chain.Run(ctx, requestID, steps)
	if err != nil {
		// only reachable if the local step itself broke
		log.Error().Err(err).Str("request_id", requestID).Msg("chain exhausted - static reply")
		resp := staticReply(t.Prompt)
		s.finish(span, requestID, resp, start)
		return resp, nil
	}
	if len(res.Failures) > 0 {
		s.transition(requestID, StateFallback)
	}

	resp := res.Response
	if resp.Metadata == nil {
		resp.Metadata = &ai.Metadata{ProviderID: ai.ProviderID(res.Provider), ModelID: res.Model}
	}
	if res.Provider == string(ai.ProviderMock) {
		s.transition(requestID, StateLocalFallback)
	} else {
		s.incrementUsage(ctx, requestID, userID)
	}
	s.finish(span, requestID, resp, start)
	return resp, nil
}

func (s *Service) transition(requestID string, st State) {
	log.Debug().Str("request_id", requestID).Str("state", string(st)).Msg("state")
}

func (s *Service) finish(span trace.Span, requestID string, resp ai.Response, start time.Time) {
	provider := ""
	if resp.Metadata != nil {
		provider = string(resp.Metadata.ProviderID)
	}
	span.SetAttributes(attribute.String("provider", provider))
	mpkg.IncRequest("ok", provider)
	s.transition(requestID, StateSucceeded)
	log.Info().
		Str("request_id", requestID).
		Str("provider", provider).
		Dur("duration", time.Since(start)).
		Msg("request completed")
}

func (s *Service) currentUser(ctx context.Context) (string, error) {
	if s.deps.Sessions == nil {
		return "", ErrAuthenticationRequired
	}
	userID, ok, err := s.deps.Sessions.CurrentUser(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAuthenticationRequired, err)
	}
	if !ok || strings.TrimSpace(userID) == "" {
		return "", ErrAuthenticationRequired
	}
	return userID, nil
}

func (s *Service) tier(ctx context.Context, requestID, userID string) ai.Tier {
	if s.deps.Subscriptions == nil {
		return ai.TierBasic
	}
	tier, err := s.deps.Subscriptions.Tier(ctx, userID)
	if err != nil {
		mpkg.IncAuxFailure("subscriptions")
		log.Warn().Err(err).Str("request_id", requestID).Msg("tier lookup failed - assuming basic")
		return ai.TierBasic
	}
	if tier != ai.TierPlus {
		return ai.TierBasic
	}
	return tier
}

func (s *Service) checkUsage(ctx context.Context, requestID, userID string, tier ai.Tier) error {
	if s.deps.Usage == nil {
		return nil
	}
	st, err := s.deps.Usage.CheckLimits(ctx, userID, tier)
	if err != nil {
		mpkg.IncUsageCheck("error")
		log.Warn().
			Err(fmt.Errorf("%w: %w", ErrUsageUnavailable, err)).
			Str("request_id", requestID).
			Msg("usage check failed - continuing")
		return nil
	}
	if !st.CanUse {
		mpkg.IncUsageCheck("exceeded")
		log.Info().
			Str("request_id", requestID).
			Str("tier", string(tier)).
			Int("used", st.Used).
			Int("limit", st.Limit).
			Msg("usage limit exceeded")
		return fmt.Errorf("%w: %d of %d requests used", ErrUsageLimitExceeded, st.Used, st.Limit)
	}
	mpkg.IncUsageCheck("allowed")
	return nil
}

func (s *Service) incrementUsage(ctx context.Context, requestID, userID string) {
	if s.deps.Usage == nil {
		return
	}
	if err := s.deps.Usage.Increment(ctx, userID, 1); err != nil {
		mpkg.IncAuxFailure("usage")
		log.Warn().
			Err(fmt.Errorf("%w: %w", ErrUsageUnavailable, err)).
			Str("request_id", requestID).
			Msg("usage increment failed")
	}
}

func (s *Service) appendContext(ctx context.Context, existing string, tier ai.Tier) string {
	var lines []string
	if strings.TrimSpace(existing) != "" {
		lines = append(lines, strings.TrimRight(existing, "\n"))
	}
	if s.deps.Locale != nil {
		if lang := strings.TrimSpace(s.deps.Locale.LanguagePreference(ctx)); lang != "" {
			lines = append(lines, "User language: "+lang)
		}
	}
	lines = append(lines, "Subscription tier: "+string(tier))
	return strings.Join(lines, "\n")
}

// enhance returns the memory-enriched prompt, or prompt itself when memory fails.
func (s *Service) enhance(ctx context.Context, requestID, userID, prompt string) string {
	if s.deps.Memory == nil {
		return prompt
	}
	out := prompt
	enhanced, err := s.deps.Memory.EnhancePrompt(ctx, userID, prompt)
	switch {
	case err != nil:
		mpkg.IncAuxFailure("memory")
		log.Warn().Err(fmt.Errorf("%w: %w", ErrContextMemoryUnavailable, err)).Str("request_id", requestID).Msg("prompt enrichment failed")
	case strings.TrimSpace(enhanced) != "":
		out = enhanced
	}
	if err := s.deps.Memory.UpdateFromInput(ctx, userID, prompt); err != nil {
		mpkg.IncAuxFailure("memory")
		log.Warn().Err(fmt.Errorf("%w: %w", ErrContextMemoryUnavailable, err)).Str("request_id", requestID).Msg("memory update failed")
	}
	return out
}

func (s *Service) prepareAttachments(ctx context.Context, requestID string, atts []ai.Attachment) []ai.Attachment {
	if s.deps.Attachments == nil {
		return atts
	}
	for i, a := range atts {
		prepared, err := s.deps.Attachments.Prepare(ctx, a)
		if err != nil {
			mpkg.IncAuxFailure("attachments")
			log.Warn().Err(err).Str("request_id", requestID).Str("attachment", a.DisplayName).Msg("attachment preparation failed")
			continue
		}
		atts[i] = prepared
	}
	return atts
}

// order is the active provider, then the configured fallbacks, skipping duplicates, the
// local generator and anything unavailable. Mock mode answers locally only, so it has no
// external steps at all.
func (s *Service) order() []ai.ProviderID {
	active := s.ActiveProvider()
	if active == ai.ProviderMock {
		return nil
	}
	seen := map[ai.ProviderID]bool{ai.ProviderMock: true}
	var out []ai.ProviderID
	add := func(p ai.ProviderID) {
		if seen[p] {
			return
		}
		seen[p] = true
		if _, ok := s.clients[p]; ok {
			out = append(out, p)
		}
	}
	add(active)
	for _, name := range s.providers.Fallback {
		p, err := ai.ParseProvider(name)
		if err != nil {
			log.Warn().Str("provider", name).Msg("unknown fallback provider ignored")
			continue
		}
		add(p)
	}
	return out
}

func (s *Service) steps(tier ai.Tier, provider, local ai.Task) []dispatcher.Step {
	var steps []dispatcher.Step
	for _, p := range s.order() {
		client := s.clients[p]
		req := ai.Request{Task: provider, Tier: tier}
		steps = append(steps, dispatcher.Step{
			Provider: string(p),
			Model:    s.providers.Settings(p).ModelFor(tier),
			Timeout:  s.providers.AttemptTimeout,
			Run: func(ctx context.Context) (ai.Response, error) {
				return client.Do(ctx, req)
			},
		})
	}
	return append(steps, dispatcher.Step{
		Provider: string(ai.ProviderMock),
		Model:    localModel,
		Terminal: true,
		Run: func(ctx context.Context) (ai.Response, error) {
			return s.local.Respond(ctx, local), nil
		},
	})
}

func staticReply(prompt string) ai.Response {
	return ai.Response{
		Content:  generators.Default(prompt, strings.ToLower(prompt)),
		Metadata: &ai.Metadata{ModelID: localModel, ProviderID: ai.ProviderMock},
	}
}

// IsUserFacing reports whether err is one of the two errors Generate returns.
func IsUserFacing(err error) bool {
	return errors.Is(err, ErrAuthenticationRequired) || errors.Is(err, ErrUsageLimitExceeded)
}
