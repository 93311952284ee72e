package steps

import (
	"github.com/venuedesk/bookingengine/detection"
	"github.com/venuedesk/bookingengine/domain"
	"github.com/venuedesk/bookingengine/propagator"
	"github.com/venuedesk/bookingengine/store"
)

// Step5Negotiation classifies the client's response to a standing offer
// into one of accept, decline, counter, question, or structural-change
// and routes accordingly (spec.md §4.7 Step 5).
func Step5Negotiation(ws *WorkflowState) GroupResult {
	e := ws.Event

	ud := &detection.UnifiedDetection{Signals: ws.Signals}
	if ct, ok := propagator.DetectChange(ud, ws.Message); ok {
		return applyChange(ws, ct)
	}

	switch {
	case ws.Signals.IsAcceptance || ws.Intent == detection.IntentAcceptOffer:
		return negotiationAccept(ws)

	case ws.Signals.IsRejection || ws.Intent == detection.IntentDeclineOffer:
		return negotiationDecline(ws)

	case ws.Signals.IsQuestion:
		return result("negotiation_question").withDraft(domain.Draft{
			Body:  "Happy to clarify — what would you like to know about the offer?",
			Step:  5,
			Topic: "negotiation_qna",
		}).halted()

	default:
		return negotiationCounter(ws)
	}
}

func negotiationAccept(ws *WorkflowState) GroupResult {
	e := ws.Event
	e.OfferAccepted = true
	e.OfferStatus = "accepted"
	status := domain.StatusAccepted
	six := 6

	if !e.BillingDetails.Complete() {
		e.BillingRequirements.AwaitingBillingForAccept = true
		store.UpdateEventMetadata(e, store.EventMetadataFields{Status: &status, Reason: "offer accepted, awaiting billing"})
		return result("offer_accepted_awaiting_billing").withDraft(domain.Draft{
			Body:  "Wonderful — before I send the contract over, could you share your billing details (name/company, street, postal code, city)?",
			Step:  5,
			Topic: "offer_confirmation",
		}).halted()
	}

	store.UpdateEventMetadata(e, store.EventMetadataFields{CurrentStep: &six, Status: &status, Reason: "offer accepted"})
	return result("offer_accepted").withDraft(domain.Draft{
		Body:  "Wonderful — we'll get the contract ready for you.",
		Step:  5,
		Topic: "offer_confirmation",
	})
}

func negotiationDecline(ws *WorkflowState) GroupResult {
	e := ws.Event
	e.OfferAccepted = false
	e.OfferStatus = "declined"
	store.AppendAuditEntry(e, "offer_status", "sent", "declined", "client declined offer")
	return result("offer_declined").withDraft(domain.Draft{
		Body:             "Thank you for letting us know. Is there anything about the offer we could adjust to work better for you?",
		Step:             5,
		Topic:            "negotiation_response",
		RequiresApproval: true,
	}).halted()
}

func negotiationCounter(ws *WorkflowState) GroupResult {
	e := ws.Event
	store.EnqueueTask(ws.DB, e.EventID, domain.TaskNegotiationDecision, domain.Draft{
		Body:  ws.Message,
		Step:  5,
		Topic: "negotiation_decision",
	})
	return result("negotiation_counter_escalated").withDraft(domain.Draft{
		Body:             "Thanks for the details — I've passed this along to our team to review the terms.",
		Step:             5,
		Topic:            "negotiation_response",
		RequiresApproval: true,
	}).halted()
}
