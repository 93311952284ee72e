package hil

import (
	"testing"

	"github.com/venuedesk/bookingengine/domain"
	"github.com/venuedesk/bookingengine/store"
)

func TestEnqueueSkipsWhenHILDisabled(t *testing.T) {
	db := &store.DB{}
	_, ok := Enqueue(db, "event_1", false, domain.Draft{Topic: "offer_sent"})
	if ok {
		t.Fatalf("expected no task enqueued when hil disabled")
	}
}

func TestEnqueueSkipsUngatedTopic(t *testing.T) {
	db := &store.DB{}
	_, ok := Enqueue(db, "event_1", true, domain.Draft{Topic: "date_clarification"})
	if ok {
		t.Fatalf("expected no task enqueued for an ungated topic")
	}
}

func TestEnqueueGatesOfferSent(t *testing.T) {
	db := &store.DB{}
	task, ok := Enqueue(db, "event_1", true, domain.Draft{Topic: "offer_sent", Body: "here's your offer"})
	if !ok || task == nil {
		t.Fatalf("expected a task enqueued for offer_sent")
	}
	if task.Status != domain.TaskPending {
		t.Fatalf("expected pending status, got %s", task.Status)
	}
}

func TestApproveSendsOriginalBody(t *testing.T) {
	db := &store.DB{}
	task, _ := Enqueue(db, "event_1", true, domain.Draft{Topic: "offer_sent", Body: "original body"})
	body, err := Approve(db, task.TaskID, "manager_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != "original body" {
		t.Fatalf("expected original body sent, got %q", body)
	}
	if task.Status != domain.TaskApproved || task.ResolvedBy != "manager_1" {
		t.Fatalf("expected task approved by manager_1, got %+v", task)
	}
}

func TestEditAndApproveOverridesBody(t *testing.T) {
	db := &store.DB{}
	task, _ := Enqueue(db, "event_1", true, domain.Draft{Topic: "offer_sent", Body: "original body"})
	body, err := EditAndApprove(db, task.TaskID, "manager_1", "edited body")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != "edited body" {
		t.Fatalf("expected edited body sent, got %q", body)
	}
	if task.Status != domain.TaskEdited {
		t.Fatalf("expected edited status, got %s", task.Status)
	}
}

func TestRejectClearsNoBody(t *testing.T) {
	db := &store.DB{}
	task, _ := Enqueue(db, "event_1", true, domain.Draft{Topic: "offer_sent", Body: "original body"})
	if err := Reject(db, task.TaskID, "manager_1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Status != domain.TaskRejected || task.SentBody != "" {
		t.Fatalf("expected rejected with empty sent body, got %+v", task)
	}
}

func TestApproveNonPendingTaskFails(t *testing.T) {
	db := &store.DB{}
	task, _ := Enqueue(db, "event_1", true, domain.Draft{Topic: "offer_sent", Body: "x"})
	if _, err := Approve(db, task.TaskID, "m"); err != nil {
		t.Fatalf("unexpected error on first approve: %v", err)
	}
	if _, err := Approve(db, task.TaskID, "m"); err == nil {
		t.Fatalf("expected error approving an already-resolved task")
	}
}

func TestApproveUnknownTaskFails(t *testing.T) {
	db := &store.DB{}
	if _, err := Approve(db, "task_missing", "m"); err == nil {
		t.Fatalf("expected error for unknown task id")
	}
}
