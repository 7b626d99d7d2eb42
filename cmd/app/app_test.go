package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/assistcore/internal/ai"
	"github.com/local/assistcore/internal/config"
	"github.com/local/assistcore/internal/store"
	"github.com/local/assistcore/internal/web"
)

const bundle = `entries:
  - id: refunds
    title: Refund policy
    content: Refunds are issued within 14 days of a billing dispute.
    tags: [billing]
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestBuildApp_WithRedisAndKnowledge(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Config{
		Redis:     config.RedisConfig{URL: "redis://" + mr.Addr(), Enabled: true},
		Usage:     config.UsageConfig{BasicDailyLimit: 1},
		Knowledge: config.KnowledgeConfig{File: writeFile(t, "kb.yaml", bundle)},
	}
	a, err := buildApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close(context.Background())

	assert.Equal(t, []ai.ProviderID{ai.ProviderMock}, a.service.ListAvailableProviders())

	ctx := web.WithUser(context.Background(), "u1")
	resp, err := a.service.Generate(ctx, ai.Task{Prompt: "zxqv blorp refunds"})
	require.NoError(t, err)
	assert.Contains(t, resp.Content, "Refund policy")

	assert.True(t, a.health.Summary(context.Background()).Redis.OK)
}

func TestBuildApp_DegradesWithoutRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	a, err := buildApp(context.Background(), config.Config{
		Redis:     config.RedisConfig{URL: "redis://" + addr, Enabled: true},
		Knowledge: config.KnowledgeConfig{File: filepath.Join(t.TempDir(), "missing.yaml")},
	})
	require.NoError(t, err)
	defer a.Close(context.Background())

	resp, err := a.service.Generate(web.WithUser(context.Background(), "u1"), ai.Task{Prompt: "hello"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Content)
}

func TestBuildApp_ContentDir(t *testing.T) {
	_, err := buildApp(context.Background(), config.Config{Local: config.LocalConfig{ContentDir: t.TempDir()}})
	assert.ErrorContains(t, err, "no topic files")
}

type uploadFunc func(ctx context.Context, key string, data []byte, contentType string) error

func (f uploadFunc) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	return f(ctx, key, data, contentType)
}

func TestPushKnowledge(t *testing.T) {
	var gotKey, gotType string
	up := uploadFunc(func(_ context.Context, key string, _ []byte, contentType string) error {
		gotKey, gotType = key, contentType
		return nil
	})

	n, err := pushKnowledge(context.Background(), up, writeFile(t, "kb.yaml", bundle), "knowledge/base.yaml")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "knowledge/base.yaml", gotKey)
	assert.Equal(t, "application/yaml", gotType)

	gotKey = ""
	_, err = pushKnowledge(context.Background(), up, writeFile(t, "bad.yaml", "entries:\n  - id: x\n"), "k")
	assert.ErrorContains(t, err, "invalid bundle")
	assert.Empty(t, gotKey, "nothing uploaded")

	failing := uploadFunc(func(context.Context, string, []byte, string) error { return errors.New("AccessDenied") })
	_, err = pushKnowledge(context.Background(), failing, writeFile(t, "kb.yaml", bundle), "k")
	assert.ErrorContains(t, err, "AccessDenied")
}

func TestAskCommand(t *testing.T) {
	for _, k := range []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY", "GEMINI_PROXY_URL", "HUGGINGFACE_API_KEY", "REDIS_URL", "KNOWLEDGE_S3_BUCKET", "KNOWLEDGE_FILE"} {
		t.Setenv(k, "")
	}
	t.Setenv("LOG_FILE", filepath.Join(t.TempDir(), "app.log"))
	t.Setenv("LOCAL_LATENCY", "1ms")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"ask", "--user", "u1", "25 + 17"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	done := make(chan error, 1)
	go func() { done <- rootCmd.Execute() }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("ask did not finish")
	}
	assert.Contains(t, out.String(), "25 + 17 = 42")
}

func TestUserTier(t *testing.T) {
	mr := miniredis.RunT(t)
	rc, err := store.Open(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	defer rc.Close()
	subs := store.NewRedisSubscriptions(rc)
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, userTier(ctx, subs, &out, "u1", ""))
	assert.Equal(t, "u1: basic\n", out.String())

	out.Reset()
	require.NoError(t, userTier(ctx, subs, &out, "u1", "Plus"))
	assert.Equal(t, "u1: plus\n", out.String())
	tier, err := subs.Tier(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, ai.TierPlus, tier)

	assert.ErrorContains(t, userTier(ctx, subs, &out, "u1", "gold"), "unknown tier")
	tier, _ = subs.Tier(ctx, "u1")
	assert.Equal(t, ai.TierPlus, tier, "a bad tier leaves the stored one alone")
}

func TestUserForgetCommand(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_URL", "redis://"+mr.Addr())
	t.Setenv("LOG_FILE", filepath.Join(t.TempDir(), "app.log"))

	rc, err := store.Open(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	defer rc.Close()
	mem := store.NewRedisMemory(rc, 5, time.Hour)
	require.NoError(t, mem.UpdateFromInput(context.Background(), "u1", "budget planning for march"))
	require.NotEmpty(t, mr.Keys())

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"user", "forget", "u1"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "memory cleared for u1")
	assert.Empty(t, mr.Keys())
}
