package steps

import (
	"fmt"
	"time"

	"github.com/venuedesk/bookingengine/domain"
	"github.com/venuedesk/bookingengine/store"
)

const eventDateLayout = "02.01.2006"

// Step2DateConfirmation validates a candidate date and, once confirmed,
// advances the event to Step 3.
func Step2DateConfirmation(ws *WorkflowState) GroupResult {
	e := ws.Event
	candidate := e.ChosenDate
	if ws.Entities.DateISO != "" {
		candidate = ws.Entities.DateISO
	}

	if candidate == "" {
		return result("date_vague_hint").withDraft(domain.Draft{
			Body:  "Could you let me know your preferred date for the event?",
			Step:  2,
			Topic: "date_clarification",
		}).halted()
	}

	parsed, err := time.Parse(eventDateLayout, candidate)
	if err != nil {
		return result("date_unparsable").withDraft(domain.Draft{
			Body:  fmt.Sprintf("I couldn't quite place the date %q — could you confirm it in DD.MM.YYYY form?", candidate),
			Step:  2,
			Topic: "date_clarification",
		}).halted()
	}

	if parsed.Before(time.Now().Truncate(24 * time.Hour)) {
		two := 2
		store.UpdateEventMetadata(e, store.EventMetadataFields{CurrentStep: &two, Reason: "confirmed date is in the past"})
		return result("date_rejected_past").withDraft(domain.Draft{
			Body:  "That date has already passed — could you share an upcoming date instead?",
			Step:  2,
			Topic: "date_clarification",
		}).halted()
	}

	if isBlockedDate(candidate, blockedDatesFromExtras(ws)) {
		return result("date_blocked").withDraft(domain.Draft{
			Body:  "That date isn't available at our venue — would another date work?",
			Step:  2,
			Topic: "date_clarification",
		}).halted()
	}

	e.ChosenDate = candidate
	e.DateConfirmed = true
	three := 3
	store.UpdateEventMetadata(e, store.EventMetadataFields{CurrentStep: &three, Reason: "date confirmed"})

	return result("date_confirmed").withPayload("chosen_date", candidate)
}

func blockedDatesFromExtras(ws *WorkflowState) []string {
	if ws.Extras == nil {
		return nil
	}
	if v, ok := ws.Extras["blocked_dates"].([]string); ok {
		return v
	}
	return nil
}

func isBlockedDate(candidate string, blocked []string) bool {
	for _, b := range blocked {
		if b == candidate {
			return true
		}
	}
	return false
}
