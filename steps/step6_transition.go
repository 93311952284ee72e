package steps

import (
	"github.com/venuedesk/bookingengine/domain"
	"github.com/venuedesk/bookingengine/store"
)

// Step6Transition verifies the invariants an accepted offer must satisfy
// before the contract/confirmation path opens, then hands off to Step 7.
func Step6Transition(ws *WorkflowState) GroupResult {
	e := ws.Event

	if !e.OfferAccepted {
		five := 5
		store.UpdateEventMetadata(e, store.EventMetadataFields{CurrentStep: &five, Reason: "transition invariant failed: offer not accepted"})
		return result("transition_rejected_no_acceptance").halted()
	}

	if !e.BillingDetails.Complete() {
		e.BillingRequirements.AwaitingBillingForAccept = true
		return result("transition_awaiting_billing").withDraft(domain.Draft{
			Body:  "Just need your billing details before we can finalize — name/company, street, postal code, and city.",
			Step:  6,
			Topic: "negotiation_response",
		}).halted()
	}

	seven := 7
	store.UpdateEventMetadata(e, store.EventMetadataFields{CurrentStep: &seven, Reason: "transition verified"})
	return result("transitioned_to_confirmation").withDraft(domain.Draft{
		Body:             "Your offer is confirmed — we're preparing the final contract now.",
		Step:             6,
		Topic:            "transition_message",
		RequiresApproval: true,
	})
}
