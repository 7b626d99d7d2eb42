// Package logger configures the process-wide zerolog logger.
package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/axiomhq/axiom-go/axiom"
	"github.com/axiomhq/axiom-go/axiom/ingest"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/local/assistcore/internal/config"
)

const serviceName = "assistcore"

var (
	mu sync.Mutex
	ax *axiomClient
)

// Init sets up the global logger: rotated file, stdout (console format when pretty) and
// optional Axiom forwarding of info+ events. An Axiom failure only disables forwarding.
// Stdout is replaced by out when out is non-nil.
func Init(lc config.LoggingConfig, ac config.AxiomConfig, out io.Writer) error {
	var writers []io.Writer

	if lc.File != "" {
		if err := os.MkdirAll(filepath.Dir(lc.File), 0o755); err != nil {
			return fmt.Errorf("create logs dir: %w", err)
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   lc.File,
			MaxSize:    lc.MaxSizeMB,
			MaxBackups: lc.MaxBackups,
			MaxAge:     lc.MaxAgeDays,
			Compress:   lc.Compress,
		})
	}

	if out == nil {
		out = os.Stdout
	}
	if lc.Pretty {
		writers = append(writers, zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	} else {
		writers = append(writers, out)
	}

	mu.Lock()
	defer mu.Unlock()
	if ac.Send && ac.APIKey != "" {
		client, err := newAxiomClient(ac)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Axiom disabled: %v\n", err)
		} else {
			ax = client
			writers = append(writers, &axiomWriter{sink: client})
		}
	}

	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(lc.Level)
	if err != nil || lc.Level == "" {
		lvl = zerolog.InfoLevel
	}
	log.Logger = zerolog.New(io.MultiWriter(writers...)).Level(lvl).With().Timestamp().Logger()
	return nil
}

// Close flushes buffered Axiom events.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if ax != nil {
		ax.Close()
		ax = nil
	}
}

type eventSink interface {
	Send(ev axiom.Event)
}

// axiomWriter turns zerolog JSON lines into Axiom events, dropping debug and trace.
type axiomWriter struct{ sink eventSink }

func (w *axiomWriter) Write(p []byte) (int, error) {
	var ev map[string]any
	if err := json.Unmarshal(p, &ev); err != nil {
		ev = map[string]any{"message": string(p), "level": "info"}
	}
	switch ev["level"] {
	case "debug", "trace":
		return len(p), nil
	}
	ev["service"] = serviceName
	if _, ok := ev[ingest.TimestampField]; !ok {
		ev[ingest.TimestampField] = time.Now()
	}
	w.sink.Send(axiom.Event(ev))
	return len(p), nil
}

type axiomClient struct {
	client  *axiom.Client
	dataset string
	ch      chan axiom.Event
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

func newAxiomClient(ac config.AxiomConfig) (*axiomClient, error) {
	opts := []axiom.Option{axiom.SetToken(ac.APIKey)}
	if ac.OrgID != "" {
		opts = append(opts, axiom.SetOrganizationID(ac.OrgID))
	}
	c, err := axiom.NewClient(opts...)
	if err != nil {
		return nil, err
	}
	dataset := ac.Dataset
	if dataset == "" {
		dataset = "dev_" + serviceName
	}
	flushEvery := ac.FlushInterval
	if flushEvery <= 0 {
		flushEvery = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	a := &axiomClient{client: c, dataset: dataset, ch: make(chan axiom.Event, 1000), cancel: cancel}
	a.wg.Add(1)
	go a.loop(ctx, flushEvery)
	return a, nil
}

// Send never blocks; events are dropped when the buffer is full.
func (a *axiomClient) Send(ev axiom.Event) {
	select {
	case a.ch <- ev:
	default:
	}
}

func (a *axiomClient) loop(ctx context.Context, flushEvery time.Duration) {
	defer a.wg.Done()
	ticker := time.NewTicker(flushEvery)
	defer ticker.Stop()
	batch := make([]axiom.Event, 0, 200)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		fctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if _, err := a.client.IngestEvents(fctx, a.dataset, batch); err != nil {
			fmt.Fprintf(os.Stderr, "axiom ingest failed: %v\n", err)
		}
		cancel()
		batch = batch[:0]
	}
	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case <-ticker.C:
			flush()
		case ev := <-a.ch:
			batch = append(batch, ev)
			if len(batch) >= 200 {
				flush()
			}
		}
	}
}

func (a *axiomClient) Close() {
	a.cancel()
	a.wg.Wait()
}
