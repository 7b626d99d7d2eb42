// Package web exposes the assistant over HTTP.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/local/assistcore/internal/ai"
	"github.com/local/assistcore/internal/metrics"
	"github.com/local/assistcore/internal/orchestrator"
	"github.com/local/assistcore/internal/statuscheck"
)

const maxBodyBytes = 32 << 20

// Assistant is the part of the orchestrator the API serves.
type Assistant interface {
	Generate(ctx context.Context, task ai.Task) (ai.Response, error)
	ListAvailableProviders() []ai.ProviderID
	ActiveProvider() ai.ProviderID
	SetActiveProvider(p ai.ProviderID) error
	IsAvailable(ctx context.Context) bool
}

// HealthReporter produces the dependency summary for /health.
type HealthReporter interface {
	Summary(ctx context.Context) statuscheck.Summary
}

type Server struct {
	assistant  Assistant
	health     HealthReporter
	adminToken string
	validate   *validator.Validate
}

// New builds the API. health may be nil; an empty adminToken disables provider switching.
func New(a Assistant, health HealthReporter, adminToken string) *Server {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Server{assistant: a, health: health, adminToken: adminToken, validate: v}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/generate", s.handleGenerate)
	mux.HandleFunc("GET /v1/providers", s.handleProviders)
	mux.HandleFunc("PUT /v1/providers/active", s.requireAdmin(s.handleSetActive))
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())
}

// Handler returns the routes wrapped in the request middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return requestContext(mux)
}

type messageBody struct {
	Role    string `json:"role" validate:"required,oneof=user assistant model system"`
	Content string `json:"content" validate:"required,max=20000"`
}

type attachmentBody struct {
	URI           string `json:"uri" validate:"omitempty,uri"`
	MimeType      string `json:"mimeType" validate:"max=255"`
	DisplayName   string `json:"displayName" validate:"max=255"`
	Data          []byte `json:"data"`
	ExtractedText string `json:"extractedText"`
}

type generateBody struct {
	Kind        string           `json:"kind" validate:"omitempty,oneof=generate improve summarize expand rewrite"`
	Prompt      string           `json:"prompt" validate:"required,max=20000"`
	Context     string           `json:"context" validate:"max=20000"`
	History     []messageBody    `json:"history" validate:"max=100,dive"`
	Parameters  map[string]any   `json:"parameters"`
	Attachments []attachmentBody `json:"attachments" validate:"max=10,dive"`
}

func (b generateBody) task() ai.Task {
	t := ai.Task{
		Kind:       ai.Kind(b.Kind),
		Prompt:     b.Prompt,
		Context:    b.Context,
		Parameters: b.Parameters,
	}
	for _, m := range b.History {
		t.History = append(t.History, ai.Message{Role: m.Role, Content: m.Content})
	}
	for _, a := range b.Attachments {
		t.Attachments = append(t.Attachments, ai.Attachment{
			URI:           a.URI,
			MimeType:      a.MimeType,
			DisplayName:   a.DisplayName,
			InlineData:    a.Data,
			ExtractedText: a.ExtractedText,
		})
	}
	return t
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var body generateBody
	if !s.decode(w, r, &body) {
		return
	}
	resp, err := s.assistant.Generate(r.Context(), body.task())
	if err == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}
	if !orchestrator.IsUserFacing(err) {
		log.Error().Err(err).Msg("generate failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	status := http.StatusUnauthorized
	if errors.Is(err, orchestrator.ErrUsageLimitExceeded) {
		status = http.StatusTooManyRequests
	}
	writeError(w, status, err.Error())
}

type providersBody struct {
	Active    ai.ProviderID   `json:"active"`
	Available []ai.ProviderID `json:"available"`
}

func (s *Server) handleProviders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, providersBody{
		Active:    s.assistant.ActiveProvider(),
		Available: s.assistant.ListAvailableProviders(),
	})
}

type setActiveBody struct {
	Provider string `json:"provider" validate:"required"`
}

func (s *Server) handleSetActive(w http.ResponseWriter, r *http.Request) {
	var body setActiveBody
	if !s.decode(w, r, &body) {
		return
	}
	p, err := ai.ParseProvider(body.Provider)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.assistant.SetActiveProvider(p); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.handleProviders(w, r)
}

type healthBody struct {
	Status    string               `json:"status"`
	Active    ai.ProviderID        `json:"active"`
	Available bool                 `json:"available"`
	Checks    *statuscheck.Summary `json:"checks,omitempty"`
}

// handleHealth always answers 200: the local generator keeps the service usable even when
// every dependency is down.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	out := healthBody{
		Status:    "ok",
		Active:    s.assistant.ActiveProvider(),
		Available: s.assistant.IsAvailable(r.Context()),
	}
	if !out.Available {
		out.Status = "degraded"
	}
	if s.health != nil {
		sum := s.health.Summary(r.Context())
		out.Checks = &sum
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken == "" {
			writeError(w, http.StatusForbidden, "ADMIN_TOKEN not set")
			return
		}
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid admin token")
			return
		}
		next(w, r)
	}
}

// decode reads a JSON body into dst and validates it, writing a 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// drop the top-level struct name: "generateBody.history[0].role" -> "history[0].role"
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", field, fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s exceeds maximum of %s", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
