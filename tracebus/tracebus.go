package tracebus

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Kind enumerates the trace entry kinds a step handler or the Router may
// emit.
type Kind string

const (
	KindStepEnter     Kind = "STEP_ENTER"
	KindStepExit      Kind = "STEP_EXIT"
	KindGatePass      Kind = "GATE_PASS"
	KindGateFail      Kind = "GATE_FAIL"
	KindDBRead        Kind = "DB_READ"
	KindDBWrite       Kind = "DB_WRITE"
	KindEntityCapture Kind = "ENTITY_CAPTURE"
	KindDraftSend     Kind = "DRAFT_SEND"
	KindStateSnapshot Kind = "STATE_SNAPSHOT"
	KindAgentPromptIn Kind = "AGENT_PROMPT_IN"
	KindAgentPromptOut Kind = "AGENT_PROMPT_OUT"
)

// Entry is one append-only row in a thread's trace ring.
type Entry struct {
	RowID     int64          `json:"row_id"`
	Ts        time.Time      `json:"ts"`
	Kind      Kind           `json:"kind"`
	Step      int            `json:"step"`
	OwnerStep int            `json:"owner_step,omitempty"`
	Detail    string         `json:"detail"`
	Data      map[string]any `json:"data,omitempty"`
}

// Config bounds retention per thread.
type Config struct {
	MaxEntriesPerThread int
}

// DefaultConfig mirrors the corpus's semantic cache defaults: a bounded
// per-namespace store with FIFO eviction.
func DefaultConfig() Config {
	return Config{MaxEntriesPerThread: 500}
}

// Bus is the in-memory, per-thread ordered trace log (spec.md C2). Each
// thread gets its own bounded FIFO ring; row_id is a single
// process-wide monotonic counter so the UI can order entries even
// across threads.
type Bus struct {
	mu     sync.RWMutex
	logger zerolog.Logger
	config Config

	rows map[string][]Entry // threadID -> ring
	next atomic.Int64
}

// New creates a trace bus.
func New(logger zerolog.Logger, config ...Config) *Bus {
	cfg := DefaultConfig()
	if len(config) > 0 {
		cfg = config[0]
	}
	return &Bus{
		logger: logger.With().Str("component", "tracebus").Logger(),
		config: cfg,
		rows:   make(map[string][]Entry),
	}
}

// Append records an entry for threadID, evicting the oldest entry if the
// thread's ring is at capacity.
func (b *Bus) Append(threadID string, e Entry) Entry {
	e.RowID = b.next.Add(1)
	if e.Ts.IsZero() {
		e.Ts = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	ring := b.rows[threadID]
	ring = append(ring, e)
	if len(ring) > b.config.MaxEntriesPerThread {
		ring = ring[len(ring)-b.config.MaxEntriesPerThread:]
	}
	b.rows[threadID] = ring
	return e
}

// Since returns all entries for a thread with row_id strictly greater
// than after, in arrival order — the feed the activity transformer and
// debug surface poll.
func (b *Bus) Since(threadID string, after int64) []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ring := b.rows[threadID]
	out := make([]Entry, 0, len(ring))
	for _, e := range ring {
		if e.RowID > after {
			out = append(out, e)
		}
	}
	return out
}

// All returns every retained entry for a thread.
func (b *Bus) All(threadID string) []Entry {
	return b.Since(threadID, 0)
}

// FlushThread discards a thread's ring, returning how many entries were
// dropped.
func (b *Bus) FlushThread(threadID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.rows[threadID])
	delete(b.rows, threadID)
	return n
}
