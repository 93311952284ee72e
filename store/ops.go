package store

import (
	"github.com/venuedesk/bookingengine/domain"
)

// UpsertClient finds a client by normalized email, creating one if
// absent, and appends the message to its history. Returns the client.
func UpsertClient(db *DB, email, name, phone, company string, msg *domain.ClientMessage) *domain.Client {
	norm := domain.NormalizeEmail(email)

	for _, c := range db.Clients {
		if c.Email == norm {
			if name != "" {
				c.Name = name
			}
			if phone != "" {
				c.Phone = phone
			}
			if company != "" {
				c.Company = company
			}
			if msg != nil {
				c.MessageLog = append(c.MessageLog, *msg)
			}
			return c
		}
	}

	c := &domain.Client{
		ClientID:   newID("client"),
		Email:      norm,
		Name:       name,
		Phone:      phone,
		Company:    company,
		CreatedAt:  now(),
		MessageLog: []domain.ClientMessage{},
	}
	if msg != nil {
		c.MessageLog = append(c.MessageLog, *msg)
	}
	db.Clients = append(db.Clients, c)
	return c
}

// LastEventForEmail returns the most recently created, non-cancelled
// event belonging to the client with the given email, or nil.
func LastEventForEmail(db *DB, email string) *domain.Event {
	norm := domain.NormalizeEmail(email)

	var clientID string
	for _, c := range db.Clients {
		if c.Email == norm {
			clientID = c.ClientID
			break
		}
	}
	if clientID == "" {
		return nil
	}

	var latest *domain.Event
	for _, e := range db.Events {
		if e.ClientID != clientID || e.Status == domain.StatusCancelled {
			continue
		}
		if latest == nil || e.CreatedAt.After(latest.CreatedAt) {
			latest = e
		}
	}
	return latest
}

// EventMetadataFields carries the subset of Event fields an
// update_event_metadata call may set; zero-value fields are left
// untouched — callers must use pointers to express "set to zero".
type EventMetadataFields struct {
	CurrentStep *int
	CallerStep  **int // pointer-to-pointer: set to distinguish "clear" from "leave alone"
	ThreadState *domain.ThreadState
	Status      *domain.Status
	Reason      string
}

// UpdateEventMetadata applies only the provided fields to an event and
// appends an audit breadcrumb whenever current_step or caller_step
// changes, per the load_db/save_db contract in spec.md §4.1.
func UpdateEventMetadata(e *domain.Event, f EventMetadataFields) {
	if f.CurrentStep != nil && *f.CurrentStep != e.CurrentStep {
		before := e.CurrentStep
		e.CurrentStep = domain.ClampStep(*f.CurrentStep)
		e.Audit = append(e.Audit, domain.AuditEntry{
			Ts: now(), Field: "current_step", Before: before, After: e.CurrentStep, Reason: f.Reason,
		})
	}
	if f.CallerStep != nil {
		before := e.CallerStep
		e.CallerStep = *f.CallerStep
		changed := (before == nil) != (e.CallerStep == nil) ||
			(before != nil && *before != *e.CallerStep)
		if changed {
			e.Audit = append(e.Audit, domain.AuditEntry{
				Ts: now(), Field: "caller_step", Before: before, After: e.CallerStep, Reason: f.Reason,
			})
		}
	}
	if f.ThreadState != nil {
		e.ThreadState = *f.ThreadState
	}
	if f.Status != nil {
		e.Status = *f.Status
	}
	e.UpdatedAt = now()
}

// AppendAuditEntry records a breadcrumb directly, for callers outside
// UpdateEventMetadata's field set (e.g. hash changes, offer mutations).
func AppendAuditEntry(e *domain.Event, field string, before, after any, reason string) {
	e.Audit = append(e.Audit, domain.AuditEntry{Ts: now(), Field: field, Before: before, After: after, Reason: reason})
}

// AppendHistory records a free-form operational log line on the event.
func AppendHistory(e *domain.Event, level, message string) {
	e.Logs = append(e.Logs, domain.LogEntry{Ts: now(), Level: level, Message: message})
}

// AppendActivity records a human-readable activity-feed row.
func AppendActivity(e *domain.Event, kind, summary string) {
	e.ActivityLog = append(e.ActivityLog, domain.ActivityEntry{Ts: now(), Kind: kind, Summary: summary})
}

// TagMessage marks a msg_id processed on an event, enforcing the
// at-most-one-event invariant is the caller's responsibility (the
// Router looks up by thread_id, which already scopes to one event).
func TagMessage(e *domain.Event, msgID string) {
	e.MarkProcessed(msgID)
}

// EnqueueTask appends a new pending HIL task and returns it.
func EnqueueTask(db *DB, eventID string, typ domain.TaskType, draft domain.Draft) *domain.Task {
	t := &domain.Task{
		TaskID:    newID("task"),
		EventID:   eventID,
		Type:      typ,
		Draft:     draft,
		Status:    domain.TaskPending,
		CreatedAt: now(),
	}
	db.Tasks = append(db.Tasks, t)
	return t
}

// FindEventByID returns the event with the given id, or nil.
func FindEventByID(db *DB, eventID string) *domain.Event {
	for _, e := range db.Events {
		if e.EventID == eventID {
			return e
		}
	}
	return nil
}

// FindEventByThread returns the event owning a thread_id, or nil.
func FindEventByThread(db *DB, threadID string) *domain.Event {
	for _, e := range db.Events {
		if e.ThreadID == threadID {
			return e
		}
	}
	return nil
}

// InsertEvent appends a newly created event to the document.
func InsertEvent(db *DB, e *domain.Event) {
	db.Events = append(db.Events, e)
}

// PendingTasksForEvent returns every task in TaskPending state for an
// event, in creation order.
func PendingTasksForEvent(db *DB, eventID string) []*domain.Task {
	var out []*domain.Task
	for _, t := range db.Tasks {
		if t.EventID == eventID && t.Status == domain.TaskPending {
			out = append(out, t)
		}
	}
	return out
}

// FindTaskByID returns the task with the given id, or nil.
func FindTaskByID(db *DB, taskID string) *domain.Task {
	for _, t := range db.Tasks {
		if t.TaskID == taskID {
			return t
		}
	}
	return nil
}

// LoadConfig reads a config key from the document's config blob.
func LoadConfig(db *DB, key string) (any, bool) {
	v, ok := db.Config[key]
	return v, ok
}

// SaveConfig writes a config key into the document's config blob.
func SaveConfig(db *DB, key string, value any) {
	if db.Config == nil {
		db.Config = map[string]any{}
	}
	db.Config[key] = value
}
