package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/axiomhq/axiom-go/axiom"
	"github.com/axiomhq/axiom-go/axiom/ingest"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/assistcore/internal/config"
)

type sinkFunc func(axiom.Event)

func (f sinkFunc) Send(ev axiom.Event) { f(ev) }

func TestAxiomWriter(t *testing.T) {
	var got []axiom.Event
	w := &axiomWriter{sink: sinkFunc(func(ev axiom.Event) { got = append(got, ev) })}

	for _, line := range []string{
		`{"level":"debug","message":"noisy"}`,
		`{"level":"info","message":"served","provider":"openai"}`,
		`not json`,
	} {
		n, err := w.Write([]byte(line))
		require.NoError(t, err)
		assert.Equal(t, len(line), n)
	}

	require.Len(t, got, 2)
	assert.Equal(t, "served", got[0]["message"])
	assert.Equal(t, "openai", got[0]["provider"])
	assert.Equal(t, serviceName, got[0]["service"])
	assert.Contains(t, got[0], ingest.TimestampField)
	assert.Equal(t, "not json", got[1]["message"])
}

func TestInit(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	var buf bytes.Buffer
	file := filepath.Join(t.TempDir(), "logs", "app.log")
	require.NoError(t, Init(config.LoggingConfig{Level: "warn", File: file, MaxSizeMB: 1}, config.AxiomConfig{}, &buf))

	log.Info().Msg("dropped")
	log.Warn().Str("request_id", "r1").Msg("kept")

	var ev map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &ev))
	assert.Equal(t, "kept", ev["message"])
	assert.Equal(t, "r1", ev["request_id"])
	assert.FileExists(t, file)
}
