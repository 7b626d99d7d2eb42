package knowledge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
entries:
  - id: refunds
    title: Refund policy
    content: Purchases can be refunded within 30 days from the billing page.
    tags: [billing, payments]
  - id: plus
    title: Plus subscription
    content: The plus tier raises daily limits and unlocks larger models.
    tags: [billing, tiers]
  - id: export
    title: Exporting conversations
    content: Conversations can be exported as markdown from settings.
`

func ids(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestSearch_Ranking(t *testing.T) {
	b, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.Equal(t, 3, b.Len())
	ctx := context.Background()

	got, err := b.Search(ctx, "How do I get a refund?", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"refunds"}, ids(got))

	got, err = b.Search(ctx, "billing billing", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"refunds", "plus"}, ids(got), "content mentions outrank tag-only matches")

	got, err = b.Search(ctx, "export my conversations", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"export"}, ids(got))

	got, err = b.Search(ctx, "what is the weather", 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = b.Search(ctx, "refund", 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearch_Canceled(t *testing.T) {
	b, err := Parse([]byte(sample))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.Search(ctx, "refund", 3)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_Validation(t *testing.T) {
	_, err := New([]Entry{{ID: "", Content: "x"}})
	assert.ErrorContains(t, err, "missing id")
	_, err = New([]Entry{{ID: "a", Content: "  "}})
	assert.ErrorContains(t, err, "empty content")
	_, err = New([]Entry{{ID: "a", Content: "x"}, {ID: "a", Content: "y"}})
	assert.ErrorContains(t, err, "duplicate id")
	_, err = Parse([]byte("entries: {"))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	b, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, b.Len())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

type fetchFunc func(ctx context.Context, key string) ([]byte, error)

func (f fetchFunc) Fetch(ctx context.Context, key string) ([]byte, error) { return f(ctx, key) }

func TestLoad(t *testing.T) {
	var asked string
	b, err := Load(context.Background(), fetchFunc(func(_ context.Context, key string) ([]byte, error) {
		asked = key
		return []byte(sample), nil
	}), "knowledge/base.yaml")
	require.NoError(t, err)
	assert.Equal(t, "knowledge/base.yaml", asked)
	assert.Equal(t, 3, b.Len())

	_, err = Load(context.Background(), fetchFunc(func(context.Context, string) ([]byte, error) {
		return nil, errors.New("access denied")
	}), "k")
	assert.ErrorContains(t, err, "access denied")
}

func TestSearch_NilBase(t *testing.T) {
	var b *Base
	got, err := b.Search(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}
