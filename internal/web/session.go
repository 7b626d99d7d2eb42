package web

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/assistcore/internal/orchestrator"
)

type ctxKey int

const (
	userKey ctxKey = iota
	langKey
)

// Sessions resolves the caller from the X-User-ID header captured by the request middleware.
type Sessions struct{}

func (Sessions) CurrentUser(ctx context.Context) (string, bool, error) {
	id, _ := ctx.Value(userKey).(string)
	return id, id != "", nil
}

// Locale answers the language from the Accept-Language header, defaulting to English.
type Locale struct{}

func (Locale) LanguagePreference(ctx context.Context) string {
	if l, ok := ctx.Value(langKey).(string); ok && l != "" {
		return l
	}
	return "en"
}

// WithUser attaches a user id the way the HTTP middleware does. Used by the CLI.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey, userID)
}

// primaryLanguage returns the first language tag of an Accept-Language value, without
// region or quality.
func primaryLanguage(header string) string {
	first, _, _ := strings.Cut(header, ",")
	first, _, _ = strings.Cut(first, ";")
	first, _, _ = strings.Cut(strings.TrimSpace(first), "-")
	if first == "*" {
		return ""
	}
	return strings.ToLower(first)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestContext copies identity headers into the context and logs each request.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx := orchestrator.ContextWithRequestID(r.Context(), requestID)
		if u := strings.TrimSpace(r.Header.Get("X-User-ID")); u != "" {
			ctx = context.WithValue(ctx, userKey, u)
		}
		if l := primaryLanguage(r.Header.Get("Accept-Language")); l != "" {
			ctx = context.WithValue(ctx, langKey, l)
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}
