package activity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/venuedesk/bookingengine/tracebus"
)

type fakeSink struct {
	mu   sync.Mutex
	rows []Row
}

func (f *fakeSink) AppendActivityRows(_ context.Context, rows []Row) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, rows...)
	return nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func TestTransformerFlushesOnBatchSize(t *testing.T) {
	sink := &fakeSink{}
	tr := New(zerolog.Nop(), sink, Config{BufferSize: 100, BatchSize: 3, FlushInterval: time.Hour, MaxRetries: 0, RetryDelay: time.Millisecond})
	tr.Start(context.Background())
	defer tr.Stop()

	for i := 0; i < 3; i++ {
		tr.Ingest("event_1", tracebus.Entry{Kind: tracebus.KindStepEnter, Step: 1})
	}

	deadline := time.Now().Add(2 * time.Second)
	for sink.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if sink.count() != 3 {
		t.Fatalf("expected 3 rows flushed, got %d", sink.count())
	}
}

func TestSummarizeStepExit(t *testing.T) {
	entry := Summarize(tracebus.Entry{Kind: tracebus.KindStepExit, Step: 4, Detail: "offer_sent"})
	if entry.Kind != string(tracebus.KindStepExit) {
		t.Fatalf("expected kind preserved, got %s", entry.Kind)
	}
	if entry.Summary == "" {
		t.Fatalf("expected non-empty summary")
	}
}
