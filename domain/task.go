package domain

import "time"

// TaskType enumerates the kinds of draft a human reviewer can be asked
// to act on.
type TaskType string

const (
	TaskManualReview       TaskType = "manual_review"
	TaskConfirmationDraft  TaskType = "confirmation_message"
	TaskTransitionDraft    TaskType = "transition_message"
	TaskOfferDraft         TaskType = "offer_draft"
	TaskNegotiationDecision TaskType = "negotiation_decision"
)

// TaskStatus is the lifecycle state of a HIL queue entry.
type TaskStatus string

const (
	TaskPending  TaskStatus = "pending"
	TaskApproved TaskStatus = "approved"
	TaskRejected TaskStatus = "rejected"
	TaskEdited   TaskStatus = "edited"
)

// Task is one entry in the human-in-the-loop approval queue.
type Task struct {
	TaskID    string     `json:"task_id"`
	EventID   string     `json:"event_id"`
	Type      TaskType   `json:"type"`
	Draft     Draft      `json:"draft"`
	Status    TaskStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`

	// ResolvedAt/ResolvedBy/SentBody are set when the operator acts.
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy string     `json:"resolved_by,omitempty"`
	SentBody   string     `json:"sent_body,omitempty"`
}

// Draft is a client-facing (or manager-panel) reply composed by a step
// handler and possibly rewritten by the Verbalizer.
type Draft struct {
	Body            string       `json:"body"`
	BodyMarkdown    string       `json:"body_markdown,omitempty"`
	Step            int          `json:"step"`
	Topic           string       `json:"topic"`
	RequiresApproval bool        `json:"requires_approval"`
	Headers         []string     `json:"headers,omitempty"`
	TableBlocks     []TableBlock `json:"table_blocks,omitempty"`
	Footer          string       `json:"footer,omitempty"`
}

// TableBlock is a manager-panel summary table attached to a draft (used
// by the Step 4 offer summary).
type TableBlock struct {
	Title string     `json:"title"`
	Rows  [][]string `json:"rows"`
}

// HILGatedTopics are draft topics that must never be auto-sent while
// hil_mode.enabled is true (spec.md Testable Property 9).
var HILGatedTopics = map[string]bool{
	"offer_sent":            true,
	"offer_confirmation":    true,
	"transition_message":    true,
	"final_contract_sent":   true,
}
