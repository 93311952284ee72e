package steps

import (
	"github.com/venuedesk/bookingengine/detection"
	"github.com/venuedesk/bookingengine/domain"
	"github.com/venuedesk/bookingengine/guard"
	"github.com/venuedesk/bookingengine/propagator"
	"github.com/venuedesk/bookingengine/store"
)

// Step1Intake always runs first, on the client and event the Router has
// already upserted, linked or created. With no event it answers a
// standalone question or reports that there is nothing to book;
// otherwise it merges newly extracted entities, detects early signals,
// and either attempts a smart shortcut to Step 4 or routes a detected
// change through the DAG.
func Step1Intake(ws *WorkflowState) GroupResult {
	e := ws.Event

	if e == nil {
		if ws.Intent == "qna" || ws.Signals.IsQuestion {
			return result("standalone_qna").withDraft(domain.Draft{
				Body:  "Thanks for reaching out — happy to answer, though I don't yet have an event on file for you. Could you share a bit more about what you're planning?",
				Step:  1,
				Topic: "standalone_qna",
			}).halted()
		}
		return result("no_event_no_question").halted()
	}

	mergeEntities(e, ws)

	if ws.Signals.IsManagerRequest || ws.Confidence < 0.3 {
		return result("manual_review_enqueued").withDraft(domain.Draft{
			Body:             "Thanks — I've flagged this for a member of our team to follow up personally.",
			Step:             1,
			Topic:            "manual_review",
			RequiresApproval: true,
		})
	}

	if billing, ok := guard.CaptureBilling(ws.Message); ok {
		e.BillingDetails = billing
		store.AppendAuditEntry(e, "billing_details", nil, billing, "captured from free text")
	}

	ud := &detection.UnifiedDetection{Signals: ws.Signals}
	if ct, ok := propagator.DetectChange(ud, ws.Message); ok {
		return applyChange(ws, ct)
	}

	if shortcutEligible(e) {
		step := 4
		e.DateConfirmed = true
		e.LockedRoomID = e.Requirements.PreferredRoom
		e.RoomEvalHash = e.RequirementsHash
		store.UpdateEventMetadata(e, store.EventMetadataFields{CurrentStep: &step, Reason: "smart shortcut: date+room+requirements jointly determined"})
		store.AppendActivity(e, "SHORTCUT", "smart shortcut to offer: date+room+requirements jointly determined")
		return result("smart_shortcut_to_offer").withPayload("current_step", step).halted()
	}

	return result("intake_processed")
}

// mergeEntities folds newly extracted entities into the event's
// top-level fields and requirements, recomputing requirements_hash.
func mergeEntities(e *domain.Event, ws *WorkflowState) {
	ent := ws.Entities

	if ent.DateISO != "" {
		e.ChosenDate = ent.DateISO
	}
	if ent.Participants != nil {
		e.Requirements.Participants = ent.Participants
	}
	if ent.StartTime != "" || ent.EndTime != "" {
		if e.Requirements.Duration == nil {
			e.Requirements.Duration = &domain.Duration{}
		}
		if ent.StartTime != "" {
			e.Requirements.Duration.Start = ent.StartTime
		}
		if ent.EndTime != "" {
			e.Requirements.Duration.End = ent.EndTime
		}
	}
	if ent.RoomPreference != "" {
		e.Requirements.PreferredRoom = ent.RoomPreference
	}
	if ent.MenuChoice != "" {
		e.Requirements.SpecialRequirements = ent.MenuChoice
	}

	newHash := e.Requirements.Hash()
	if newHash != e.RequirementsHash {
		store.AppendAuditEntry(e, "requirements_hash", e.RequirementsHash, newHash, "entities merged")
		e.RequirementsHash = newHash
	}
}

// shortcutEligible reports whether date, room, and requirements are all
// jointly determined so Step 1 can jump straight to the offer step.
func shortcutEligible(e *domain.Event) bool {
	return e.ChosenDate != "" &&
		e.Requirements.PreferredRoom != "" &&
		e.Requirements.Participants != nil &&
		e.Requirements.Duration != nil
}

// applyChange routes a detected change through the DAG and mutates the
// event accordingly (the fields a DATE change invalidates are cleared
// here since the propagator itself is a pure function).
func applyChange(ws *WorkflowState, ct propagator.ChangeType) GroupResult {
	e := ws.Event
	decision := propagator.Route(e, ct, e.RequirementsHash)

	if decision.SkipReason != "" {
		return result("change_skipped").withPayload("skip_reason", decision.SkipReason)
	}

	if ct == propagator.ChangeDate {
		e.LockedRoomID = ""
		e.RoomEvalHash = ""
		e.DateConfirmed = false
	}

	store.UpdateEventMetadata(e, store.EventMetadataFields{
		CurrentStep: &decision.NextStep,
		CallerStep:  ptrptr(decision.CallerStep),
		Reason:      "change_detour:" + string(ct),
	})

	return result("change_detour").
		withPayload("current_step", decision.NextStep).
		withPayload("caller_step", decision.CallerStep)
}

func ptrptr(p *int) **int { return &p }
