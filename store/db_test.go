package store

import (
	"path/filepath"
	"testing"

	"github.com/venuedesk/bookingengine/config"
	"github.com/venuedesk/bookingengine/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{StoreDBPath: filepath.Join(dir, "events.json")}
	return New(cfg)
}

func TestWithLockCreatesEmptyDBOnFirstAccess(t *testing.T) {
	s := newTestStore(t)

	var seen *DB
	err := s.WithLock(func(db *DB) error {
		seen = db
		return nil
	})
	if err != nil {
		t.Fatalf("WithLock: %v", err)
	}
	if seen == nil || seen.Clients == nil || seen.Events == nil || seen.Tasks == nil {
		t.Fatalf("expected initialized empty DB, got %+v", seen)
	}
}

func TestWithLockPersistsAcrossCalls(t *testing.T) {
	s := newTestStore(t)

	err := s.WithLock(func(db *DB) error {
		e := domain.NewEvent("evt1", "cli1", "thr1", now())
		InsertEvent(db, e)
		return nil
	})
	if err != nil {
		t.Fatalf("first WithLock: %v", err)
	}

	var got *domain.Event
	err = s.WithLock(func(db *DB) error {
		got = FindEventByThread(db, "thr1")
		return nil
	})
	if err != nil {
		t.Fatalf("second WithLock: %v", err)
	}
	if got == nil || got.EventID != "evt1" {
		t.Fatalf("expected persisted event evt1, got %+v", got)
	}
}

func TestWithLockDoesNotPersistOnHandlerError(t *testing.T) {
	s := newTestStore(t)

	wantErr := domain.NewError(domain.ErrValidationFailed, "test", nil)
	err := s.WithLock(func(db *DB) error {
		InsertEvent(db, domain.NewEvent("evt1", "cli1", "thr1", now()))
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("expected handler error to propagate, got %v", err)
	}

	err = s.WithLock(func(db *DB) error {
		if FindEventByThread(db, "thr1") != nil {
			t.Fatalf("expected no persisted event after handler error")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("verify WithLock: %v", err)
	}
}

func TestUpdateEventMetadataRecordsAuditOnStepChange(t *testing.T) {
	e := domain.NewEvent("evt1", "cli1", "thr1", now())
	two := 2
	UpdateEventMetadata(e, EventMetadataFields{CurrentStep: &two, Reason: "test transition"})

	if e.CurrentStep != 2 {
		t.Fatalf("expected current_step=2, got %d", e.CurrentStep)
	}
	if len(e.Audit) != 1 || e.Audit[0].Field != "current_step" {
		t.Fatalf("expected one audit entry for current_step, got %+v", e.Audit)
	}
}

func TestUpdateEventMetadataNoAuditWhenStepUnchanged(t *testing.T) {
	e := domain.NewEvent("evt1", "cli1", "thr1", now())
	one := 1
	UpdateEventMetadata(e, EventMetadataFields{CurrentStep: &one})

	if len(e.Audit) != 0 {
		t.Fatalf("expected no audit entry for unchanged step, got %+v", e.Audit)
	}
}

func TestTagMessageIsIdempotent(t *testing.T) {
	e := domain.NewEvent("evt1", "cli1", "thr1", now())
	TagMessage(e, "m1")
	TagMessage(e, "m1")

	count := 0
	for _, m := range e.Msgs {
		if m == "m1" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected msg_id recorded exactly once, got %d", count)
	}
}

func TestUpsertClientNormalizesEmailAndReusesRecord(t *testing.T) {
	db := emptyDB()

	c1 := UpsertClient(db, "  A@Example.com ", "Alice", "", "", nil)
	c2 := UpsertClient(db, "a@example.com", "", "+41 00 000", "", nil)

	if c1.ClientID != c2.ClientID {
		t.Fatalf("expected same client across case/whitespace variants, got %s vs %s", c1.ClientID, c2.ClientID)
	}
	if c2.Name != "Alice" {
		t.Fatalf("expected name preserved across upsert, got %q", c2.Name)
	}
	if len(db.Clients) != 1 {
		t.Fatalf("expected exactly one client record, got %d", len(db.Clients))
	}
}

func TestEnqueueTaskIsPending(t *testing.T) {
	db := emptyDB()
	task := EnqueueTask(db, "evt1", domain.TaskOfferDraft, domain.Draft{Body: "hello", Topic: "offer_sent"})

	if task.Status != domain.TaskPending {
		t.Fatalf("expected new task pending, got %s", task.Status)
	}
	pending := PendingTasksForEvent(db, "evt1")
	if len(pending) != 1 || pending[0].TaskID != task.TaskID {
		t.Fatalf("expected task to show up in pending list, got %+v", pending)
	}
}
