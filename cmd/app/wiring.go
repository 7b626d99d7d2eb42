package main

import (
	"context"
	"fmt"
	"io"
	"os"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/local/assistcore/internal/attachment"
	"github.com/local/assistcore/internal/classify"
	"github.com/local/assistcore/internal/config"
	"github.com/local/assistcore/internal/content"
	"github.com/local/assistcore/internal/dispatcher"
	"github.com/local/assistcore/internal/generators"
	"github.com/local/assistcore/internal/knowledge"
	"github.com/local/assistcore/internal/limiter"
	"github.com/local/assistcore/internal/metrics"
	"github.com/local/assistcore/internal/orchestrator"
	"github.com/local/assistcore/internal/statuscheck"
	"github.com/local/assistcore/internal/storage"
	"github.com/local/assistcore/internal/store"
	"github.com/local/assistcore/internal/web"
)

// app is the wired service plus what must be released on exit.
type app struct {
	service *orchestrator.Service
	health  *statuscheck.Checker
	closers []func(context.Context) error
}

func (a *app) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			log.Warn().Err(err).Msg("shutdown step failed")
		}
	}
}

// buildApp wires the orchestrator and its adapters. Only a broken content directory is
// fatal: Redis, the knowledge bundle and tracing degrade to "not available".
func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	metrics.Init()
	a := &app{}

	if cfg.Tracing.Stdout {
		shutdown, err := initTracing(os.Stderr, cfg.Tracing.SampleRatio)
		if err != nil {
			log.Warn().Err(err).Msg("tracing disabled")
		} else {
			a.closers = append(a.closers, shutdown)
		}
	}

	prepOpts := attachment.Options{}
	if lo, err := attachment.NewLibreOffice(2, 0); err != nil {
		log.Info().Err(err).Msg("office attachments will not be converted")
	} else {
		prepOpts.Converter = lo
	}
	deps := orchestrator.Dependencies{
		Sessions:    web.Sessions{},
		Locale:      web.Locale{},
		Attachments: attachment.NewPreparer(prepOpts),
	}
	chainOpts := []dispatcher.Option{dispatcher.WithLimiter(limiter.New(limiter.Options{
		RatePerSecond: cfg.Providers.RatePerSecond,
		Burst:         cfg.Providers.Burst,
		MaxInflight:   cfg.Providers.MaxInflight,
	}))}
	checkOpts := statuscheck.Options{Providers: cfg.Providers}

	if rc := openRedis(ctx, cfg.Redis); rc != nil {
		a.closers = append(a.closers, func(context.Context) error { return rc.Close() })
		chainOpts = append(chainOpts, dispatcher.WithBreaker(dispatcher.NewCircuitBreaker(rc, cfg.Breaker.BaseBackoff, cfg.Breaker.MaxBackoff)))
		deps.Usage = store.NewRedisUsage(rc, cfg.Usage.BasicDailyLimit, cfg.Usage.PlusDailyLimit)
		deps.Subscriptions = store.NewRedisSubscriptions(rc)
		deps.Memory = store.NewRedisMemory(rc, cfg.Memory.MaxItems, cfg.Memory.TTL)
		checkOpts.Redis = store.Pinger{Client: rc}
	}

	kb, bucket := loadKnowledge(ctx, cfg.Knowledge)
	if kb != nil {
		deps.Knowledge = kb
	}
	if bucket != nil {
		checkOpts.Bucket = bucket
	}
	a.health = statuscheck.New(checkOpts)
	deps.Health = a.health

	opts := []orchestrator.Option{orchestrator.WithChain(dispatcher.NewChain(chainOpts...))}
	if cfg.Local.ContentDir != "" {
		lib, err := content.Load(os.DirFS(cfg.Local.ContentDir), ".")
		if err != nil {
			return nil, fmt.Errorf("load content from %s: %w", cfg.Local.ContentDir, err)
		}
		local := orchestrator.NewLocalResponder(classify.New(lib), generators.NewRegistry(lib), deps.Knowledge, cfg.Local.Latency)
		opts = append(opts, orchestrator.WithLocalResponder(local))
	}

	a.service = orchestrator.New(cfg, deps, opts...)
	return a, nil
}

func openRedis(ctx context.Context, rc config.RedisConfig) *redis.Client {
	if !rc.Enabled {
		return nil
	}
	client, err := store.Open(ctx, rc.URL)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable; usage limits, memory and breaker disabled")
		return nil
	}
	return client
}

// loadKnowledge prefers the S3 bundle over a local file. The bucket client is returned even
// when the fetch fails so /health can report on it.
func loadKnowledge(ctx context.Context, kc config.KnowledgeConfig) (*knowledge.Base, *storage.S3Client) {
	if kc.S3Bucket != "" {
		s3c, err := storage.NewS3Client(ctx, kc.S3Bucket, kc.S3Passphrase)
		if err != nil {
			log.Warn().Err(err).Msg("knowledge bucket unavailable")
			return nil, nil
		}
		kb, err := knowledge.Load(ctx, s3c, kc.S3Key)
		if err != nil {
			log.Warn().Err(err).Str("bucket", kc.S3Bucket).Str("key", kc.S3Key).Msg("knowledge base not loaded")
			return nil, s3c
		}
		log.Info().Int("entries", kb.Len()).Str("bucket", kc.S3Bucket).Msg("knowledge base loaded")
		return kb, s3c
	}
	if kc.File != "" {
		kb, err := knowledge.LoadFile(kc.File)
		if err != nil {
			log.Warn().Err(err).Str("file", kc.File).Msg("knowledge base not loaded")
			return nil, nil
		}
		log.Info().Int("entries", kb.Len()).Str("file", kc.File).Msg("knowledge base loaded")
		return kb, nil
	}
	return nil, nil
}

func initTracing(w io.Writer, ratio float64) (func(context.Context) error, error) {
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("stdout trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
