// Package activity turns trace bus entries into the human-readable
// activity feed attached to each event, asynchronously and without
// blocking the request path — the same buffered-worker shape the
// gateway's analytics pipeline used for request/cost/wallet events.
package activity

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/venuedesk/bookingengine/domain"
	"github.com/venuedesk/bookingengine/tracebus"
)

// Row pairs a transformed activity entry with the event it belongs to.
type Row struct {
	EventID string
	Entry   domain.ActivityEntry
}

// Sink persists transformed activity rows. store.ActivitySink
// (store/activitysink.go, built in main.go with store.NewActivitySink)
// implements this by appending under the document lock.
type Sink interface {
	AppendActivityRows(ctx context.Context, rows []Row) error
}

// Config controls batching and backpressure.
type Config struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
	MaxRetries    int
	RetryDelay    time.Duration
}

func DefaultConfig() Config {
	return Config{
		BufferSize:    10000,
		BatchSize:     100,
		FlushInterval: 2 * time.Second,
		MaxRetries:    3,
		RetryDelay:    200 * time.Millisecond,
	}
}

// Transformer consumes (eventID, tracebus.Entry) pairs and flushes
// batches of derived domain.ActivityEntry rows to a Sink.
type Transformer struct {
	logger zerolog.Logger
	config Config
	sink   Sink

	in chan Row

	wg     sync.WaitGroup
	cancel context.CancelFunc

	received int64
	written  int64
	dropped  int64
}

// New creates a Transformer.
func New(logger zerolog.Logger, sink Sink, config ...Config) *Transformer {
	cfg := DefaultConfig()
	if len(config) > 0 {
		cfg = config[0]
	}
	return &Transformer{
		logger: logger.With().Str("component", "activity-transformer").Logger(),
		config: cfg,
		sink:   sink,
		in:     make(chan Row, cfg.BufferSize),
	}
}

// Start launches the flush worker.
func (t *Transformer) Start(ctx context.Context) {
	ctx, t.cancel = context.WithCancel(ctx)
	t.wg.Add(1)
	go t.worker(ctx)
	t.logger.Info().Int("buffer_size", t.config.BufferSize).Msg("activity transformer started")
}

// Stop drains and flushes remaining rows.
func (t *Transformer) Stop() {
	if t.cancel != nil {
		t.cancel()
	}
	t.wg.Wait()
	t.logger.Info().
		Int64("received", atomic.LoadInt64(&t.received)).
		Int64("written", atomic.LoadInt64(&t.written)).
		Int64("dropped", atomic.LoadInt64(&t.dropped)).
		Msg("activity transformer stopped")
}

// Ingest submits a trace bus entry for transformation, non-blocking:
// drops if the buffer is full rather than stall the request path.
func (t *Transformer) Ingest(eventID string, e tracebus.Entry) {
	row := Row{EventID: eventID, Entry: Summarize(e)}
	select {
	case t.in <- row:
		atomic.AddInt64(&t.received, 1)
	default:
		atomic.AddInt64(&t.dropped, 1)
		t.logger.Warn().Str("event_id", eventID).Msg("activity row dropped: buffer full")
	}
}

func (t *Transformer) worker(ctx context.Context) {
	defer t.wg.Done()
	ticker := time.NewTicker(t.config.FlushInterval)
	defer ticker.Stop()

	batch := make([]Row, 0, t.config.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		t.flush(batch)
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case row := <-t.in:
					batch = append(batch, row)
					if len(batch) >= t.config.BatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		case row := <-t.in:
			batch = append(batch, row)
			if len(batch) >= t.config.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (t *Transformer) flush(batch []Row) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cp := make([]Row, len(batch))
	copy(cp, batch)

	var err error
	for attempt := 0; attempt <= t.config.MaxRetries; attempt++ {
		err = t.sink.AppendActivityRows(ctx, cp)
		if err == nil {
			atomic.AddInt64(&t.written, int64(len(cp)))
			return
		}
		t.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("activity flush failed")
		if attempt < t.config.MaxRetries {
			time.Sleep(t.config.RetryDelay * time.Duration(1<<uint(attempt)))
		}
	}
	atomic.AddInt64(&t.dropped, int64(len(cp)))
	t.logger.Error().Err(err).Int("batch_size", len(cp)).Msg("activity batch dropped after retries")
}

// Summarize converts one trace bus entry into a human-readable activity
// row.
func Summarize(e tracebus.Entry) domain.ActivityEntry {
	var summary string
	switch e.Kind {
	case tracebus.KindStepEnter:
		summary = fmt.Sprintf("entered step %d", e.Step)
	case tracebus.KindStepExit:
		summary = fmt.Sprintf("step %d completed: %s", e.Step, e.Detail)
	case tracebus.KindGatePass:
		summary = fmt.Sprintf("gate passed: %s", e.Detail)
	case tracebus.KindGateFail:
		summary = fmt.Sprintf("gate held: %s", e.Detail)
	case tracebus.KindEntityCapture:
		summary = fmt.Sprintf("captured entities: %s", e.Detail)
	case tracebus.KindDraftSend:
		summary = fmt.Sprintf("reply sent: %s", e.Detail)
	default:
		summary = e.Detail
	}
	return domain.ActivityEntry{Ts: e.Ts, Kind: string(e.Kind), Summary: summary}
}
