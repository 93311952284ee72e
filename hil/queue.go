// Package hil implements the human-in-the-loop approval queue: while HIL
// mode is enabled, every draft reply tagged with a gated topic
// (domain.HILGatedTopics) or marked RequiresApproval sits as a pending
// Task until an operator approves, edits-then-approves, or rejects it.
package hil

import (
	"fmt"

	"github.com/venuedesk/bookingengine/domain"
	"github.com/venuedesk/bookingengine/store"
)

// ContinuationMessage is the synthetic client message body the Router
// re-injects into the pipeline once a gated draft is approved, so the
// step that produced it can resume exactly where it paused.
const ContinuationMessage = "[CONTINUE_AFTER_APPROVAL]"

// Enqueue files a draft for operator review if HIL mode is enabled and
// the draft's topic is HIL-gated or the draft sets RequiresApproval;
// otherwise it returns ok=false and the caller should send the draft
// immediately.
func Enqueue(db *store.DB, eventID string, hilEnabled bool, draft domain.Draft) (*domain.Task, bool) {
	if !hilEnabled || !(domain.HILGatedTopics[draft.Topic] || draft.RequiresApproval) {
		return nil, false
	}
	t := store.EnqueueTask(db, eventID, taskTypeForTopic(draft.Topic), draft)
	return t, true
}

func taskTypeForTopic(topic string) domain.TaskType {
	switch topic {
	case "offer_sent", "offer_confirmation":
		return domain.TaskOfferDraft
	case "transition_message":
		return domain.TaskTransitionDraft
	case "final_contract_sent":
		return domain.TaskConfirmationDraft
	case "negotiation_decision":
		return domain.TaskNegotiationDecision
	default:
		return domain.TaskManualReview
	}
}

// Approve marks a pending task approved as-is and returns the body that
// should now be sent to the client.
func Approve(db *store.DB, taskID, operator string) (string, error) {
	t := store.FindTaskByID(db, taskID)
	if t == nil {
		return "", fmt.Errorf("hil: task %s not found", taskID)
	}
	if t.Status != domain.TaskPending {
		return "", fmt.Errorf("hil: task %s is not pending (status=%s)", taskID, t.Status)
	}
	resolve(t, domain.TaskApproved, operator, t.Draft.Body)
	return t.SentBody, nil
}

// EditAndApprove rewrites the draft body before approving it.
func EditAndApprove(db *store.DB, taskID, operator, editedBody string) (string, error) {
	t := store.FindTaskByID(db, taskID)
	if t == nil {
		return "", fmt.Errorf("hil: task %s not found", taskID)
	}
	if t.Status != domain.TaskPending {
		return "", fmt.Errorf("hil: task %s is not pending (status=%s)", taskID, t.Status)
	}
	resolve(t, domain.TaskEdited, operator, editedBody)
	return t.SentBody, nil
}

// Reject marks a pending task rejected; no message is sent to the
// client and the owning step must be revisited by an operator.
func Reject(db *store.DB, taskID, operator string) error {
	t := store.FindTaskByID(db, taskID)
	if t == nil {
		return fmt.Errorf("hil: task %s not found", taskID)
	}
	if t.Status != domain.TaskPending {
		return fmt.Errorf("hil: task %s is not pending (status=%s)", taskID, t.Status)
	}
	resolve(t, domain.TaskRejected, operator, "")
	return nil
}

func resolve(t *domain.Task, status domain.TaskStatus, operator, sentBody string) {
	now := nowFn()
	t.Status = status
	t.ResolvedAt = &now
	t.ResolvedBy = operator
	t.SentBody = sentBody
}

// nowFn is overridable in tests that need deterministic timestamps.
var nowFn = defaultNow
