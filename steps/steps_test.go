package steps

import (
	"testing"
	"time"

	"github.com/venuedesk/bookingengine/detection"
	"github.com/venuedesk/bookingengine/domain"
	"github.com/venuedesk/bookingengine/store"
)

func newTestEvent() *domain.Event {
	return domain.NewEvent("event_1", "client_1", "thread_1", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
}

func TestStep1IntakeNoEventWithQuestion(t *testing.T) {
	ws := &WorkflowState{Message: "What time do you open?", Signals: detection.Signals{IsQuestion: true}}
	res := Step1Intake(ws)
	if res.Action != "standalone_qna" || !res.Halt {
		t.Fatalf("expected standalone_qna halted, got %+v", res)
	}
}

func TestStep1IntakeShortcut(t *testing.T) {
	e := newTestEvent()
	participants := 50
	e.Requirements.Participants = &participants
	e.Requirements.PreferredRoom = "grand-hall"
	e.Requirements.Duration = &domain.Duration{Start: "18:00", End: "23:00"}
	e.ChosenDate = "15.03.2027"
	e.RequirementsHash = e.Requirements.Hash()

	ws := &WorkflowState{Message: "here are our details", Event: e, Confidence: 0.9}
	res := Step1Intake(ws)
	if res.Action != "smart_shortcut_to_offer" {
		t.Fatalf("expected smart_shortcut_to_offer, got %+v", res)
	}
	if e.CurrentStep != 4 {
		t.Fatalf("expected current_step 4, got %d", e.CurrentStep)
	}
	if e.RoomEvalHash != e.RequirementsHash {
		t.Fatalf("expected room_eval_hash to mirror requirements_hash")
	}
}

func TestStep1IntakeLowConfidenceEnqueuesReview(t *testing.T) {
	e := newTestEvent()
	ws := &WorkflowState{Message: "hmm maybe", Event: e, Confidence: 0.1}
	res := Step1Intake(ws)
	if res.Action != "manual_review_enqueued" {
		t.Fatalf("expected manual_review_enqueued, got %+v", res)
	}
	if len(res.Drafts) != 1 || !res.Drafts[0].RequiresApproval {
		t.Fatalf("expected an approval-gated draft")
	}
}

func TestStep2DateConfirmationAdvancesStep(t *testing.T) {
	e := newTestEvent()
	ws := &WorkflowState{Event: e, Entities: detection.Entities{DateISO: "20.03.2027"}}
	res := Step2DateConfirmation(ws)
	if res.Action != "date_confirmed" {
		t.Fatalf("expected date_confirmed, got %+v", res)
	}
	if e.CurrentStep != 3 || !e.DateConfirmed {
		t.Fatalf("expected advance to step 3 with date_confirmed set, got step=%d confirmed=%v", e.CurrentStep, e.DateConfirmed)
	}
}

func TestStep2DateConfirmationRejectsPastDate(t *testing.T) {
	e := newTestEvent()
	ws := &WorkflowState{Event: e, Entities: detection.Entities{DateISO: "01.01.2000"}}
	res := Step2DateConfirmation(ws)
	if res.Action != "date_rejected_past" || !res.Halt {
		t.Fatalf("expected date_rejected_past halted, got %+v", res)
	}
}

func TestStep2DateConfirmationBlockedDate(t *testing.T) {
	e := newTestEvent()
	ws := &WorkflowState{
		Event:    e,
		Entities: detection.Entities{DateISO: "25.12.2027"},
		Extras:   map[string]any{"blocked_dates": []string{"25.12.2027"}},
	}
	res := Step2DateConfirmation(ws)
	if res.Action != "date_blocked" {
		t.Fatalf("expected date_blocked, got %+v", res)
	}
}

func TestStep3RoomAvailabilityNoneViable(t *testing.T) {
	e := newTestEvent()
	e.CurrentStep = 3
	ws := &WorkflowState{
		Event:  e,
		Extras: map[string]any{"room_options": []RoomOption{{RoomID: "small-room", Capacity: 10, Fits: false}}},
	}
	res := Step3RoomAvailability(ws)
	if res.Action != "no_room_available" || !res.Halt {
		t.Fatalf("expected no_room_available halted, got %+v", res)
	}
	if e.CallerStep == nil || *e.CallerStep != 3 {
		t.Fatalf("expected caller_step preserved as 3, got %v", e.CallerStep)
	}
}

func TestStep3RoomAvailabilitySingleViableProposesRoom(t *testing.T) {
	e := newTestEvent()
	ws := &WorkflowState{
		Event:  e,
		Extras: map[string]any{"room_options": []RoomOption{{RoomID: "grand-hall", Capacity: 100, Fits: true}}},
	}
	res := Step3RoomAvailability(ws)
	if res.Action != "room_proposed" {
		t.Fatalf("expected room_proposed, got %+v", res)
	}
}

func TestStep3RoomAvailabilityDirectSelectionLocksRoom(t *testing.T) {
	e := newTestEvent()
	e.RequirementsHash = "abc123"
	ws := &WorkflowState{Event: e, Entities: detection.Entities{RoomPreference: "garden-room"}}
	res := Step3RoomAvailability(ws)
	if res.Action != "room_locked" {
		t.Fatalf("expected room_locked, got %+v", res)
	}
	if e.LockedRoomID != "garden-room" || e.RoomEvalHash != e.RequirementsHash {
		t.Fatalf("expected room locked with matching eval hash, got %+v", e)
	}
	if e.CurrentStep != 4 {
		t.Fatalf("expected advance to step 4, got %d", e.CurrentStep)
	}
}

func TestStep4OfferComposesAndAdvances(t *testing.T) {
	e := newTestEvent()
	e.ChosenDate = "20.03.2027"
	e.LockedRoomID = "grand-hall"
	e.RequirementsHash = "reqhash"
	ws := &WorkflowState{Event: e}
	res := Step4Offer(ws)
	if res.Action != "offer_sent" {
		t.Fatalf("expected offer_sent, got %+v", res)
	}
	if len(e.Offers) != 1 || e.CurrentOfferID == "" {
		t.Fatalf("expected one offer composed, got %+v", e.Offers)
	}
	if e.CurrentStep != 5 || e.Status != domain.StatusOfferSent {
		t.Fatalf("expected advance to step 5 with status offer sent, got step=%d status=%s", e.CurrentStep, e.Status)
	}
	if len(res.Drafts) != 1 || !res.Drafts[0].RequiresApproval || res.Drafts[0].Topic != "offer_sent" {
		t.Fatalf("expected HIL-gated offer_sent draft, got %+v", res.Drafts)
	}
}

func TestStep4OfferSkipsRecomposeWhenHashUnchanged(t *testing.T) {
	e := newTestEvent()
	e.ChosenDate = "20.03.2027"
	e.LockedRoomID = "grand-hall"
	e.RequirementsHash = "reqhash"
	e.OfferHash = domain.OfferHash(e.RequirementsHash, e.LockedRoomID, e.ChosenDate)
	e.Offers = []domain.Offer{{OfferID: "offer-1"}}
	e.CurrentOfferID = "offer-1"

	res := Step4Offer(&WorkflowState{Event: e})
	if res.Action != "offer_unchanged" {
		t.Fatalf("expected offer_unchanged, got %+v", res)
	}
	if len(e.Offers) != 1 {
		t.Fatalf("expected no new offer appended, got %d", len(e.Offers))
	}
}

func TestStep5NegotiationAcceptWithCompleteBilling(t *testing.T) {
	e := newTestEvent()
	e.BillingDetails = domain.BillingDetails{NameOrCompany: "Acme", Street: "Main St 1", PostalCode: "8000", City: "Zurich"}
	ws := &WorkflowState{Event: e, Signals: detection.Signals{IsAcceptance: true}}
	res := Step5Negotiation(ws)
	if res.Action != "offer_accepted" {
		t.Fatalf("expected offer_accepted, got %+v", res)
	}
	if e.CurrentStep != 6 || !e.OfferAccepted {
		t.Fatalf("expected advance to step 6 with offer accepted, got step=%d accepted=%v", e.CurrentStep, e.OfferAccepted)
	}
}

func TestStep5NegotiationAcceptWithoutBillingAwaits(t *testing.T) {
	e := newTestEvent()
	ws := &WorkflowState{Event: e, Signals: detection.Signals{IsAcceptance: true}}
	res := Step5Negotiation(ws)
	if res.Action != "offer_accepted_awaiting_billing" || !res.Halt {
		t.Fatalf("expected offer_accepted_awaiting_billing halted, got %+v", res)
	}
	if !e.BillingRequirements.AwaitingBillingForAccept {
		t.Fatalf("expected awaiting_billing_for_accept flag set")
	}
}

func TestStep6TransitionRequiresAcceptance(t *testing.T) {
	e := newTestEvent()
	ws := &WorkflowState{Event: e}
	res := Step6Transition(ws)
	if res.Action != "transition_rejected_no_acceptance" {
		t.Fatalf("expected transition_rejected_no_acceptance, got %+v", res)
	}
	if e.CurrentStep != 5 {
		t.Fatalf("expected fallback to step 5, got %d", e.CurrentStep)
	}
}

func TestStep6TransitionAdvancesOnVerifiedInvariants(t *testing.T) {
	e := newTestEvent()
	e.OfferAccepted = true
	e.BillingDetails = domain.BillingDetails{NameOrCompany: "Acme", Street: "Main St 1", PostalCode: "8000", City: "Zurich"}
	res := Step6Transition(&WorkflowState{Event: e})
	if res.Action != "transitioned_to_confirmation" || e.CurrentStep != 7 {
		t.Fatalf("expected transition to step 7, got %+v (step=%d)", res, e.CurrentStep)
	}
	if len(res.Drafts) != 1 || res.Drafts[0].Topic != "transition_message" || !res.Drafts[0].RequiresApproval {
		t.Fatalf("expected HIL-gated transition_message draft, got %+v", res.Drafts)
	}
}

func TestStep7ConfirmationRequiresDepositBeforeConfirming(t *testing.T) {
	e := newTestEvent()
	e.BillingDetails = domain.BillingDetails{NameOrCompany: "Acme", Street: "Main St 1", PostalCode: "8000", City: "Zurich"}
	e.DepositInfo = domain.DepositInfo{Required: true}
	ws := &WorkflowState{Event: e, Signals: detection.Signals{IsAcceptance: true}}
	res := Step7Confirmation(ws)
	if res.Action != "confirmation_awaiting_deposit" || !res.Halt {
		t.Fatalf("expected confirmation_awaiting_deposit halted, got %+v", res)
	}
}

func TestStep7ConfirmationDepositPaidConfirmsBooking(t *testing.T) {
	e := newTestEvent()
	e.BillingDetails = domain.BillingDetails{NameOrCompany: "Acme", Street: "Main St 1", PostalCode: "8000", City: "Zurich"}
	e.DepositInfo = domain.DepositInfo{Required: true}
	ws := &WorkflowState{Event: e, Extras: map[string]any{"deposit_paid": true}}
	res := Step7Confirmation(ws)
	if res.Action != "deposit_paid_confirmed" {
		t.Fatalf("expected deposit_paid_confirmed, got %+v", res)
	}
	if e.Status != domain.StatusConfirmed || e.ThreadState != domain.ThreadConfirmed {
		t.Fatalf("expected status/thread_state confirmed, got %s/%s", e.Status, e.ThreadState)
	}
	if !e.DepositInfo.Paid || e.DepositInfo.PaidAt == nil {
		t.Fatalf("expected deposit marked paid with timestamp")
	}
}

func TestStep7ConfirmationSiteVisitProgression(t *testing.T) {
	e := newTestEvent()
	ws := &WorkflowState{Event: e, Message: "Could we schedule a site visit?"}
	res := Step7Confirmation(ws)
	if res.Action != "site_visit_date_requested" || e.SiteVisitState.Status != domain.SiteVisitDatePending {
		t.Fatalf("expected site_visit_date_requested, got %+v (state=%s)", res, e.SiteVisitState.Status)
	}

	ws2 := &WorkflowState{Event: e, Message: "How about the 10th?", Entities: detection.Entities{DateISO: "10.04.2027"}}
	res2 := Step7Confirmation(ws2)
	if res2.Action != "site_visit_time_requested" || e.SiteVisitState.Status != domain.SiteVisitTimePending {
		t.Fatalf("expected site_visit_time_requested, got %+v", res2)
	}
}

func TestHandlerForStepDispatch(t *testing.T) {
	if HandlerForStep(3) == nil {
		t.Fatalf("expected a handler for step 3")
	}
	if HandlerForStep(99) == nil {
		t.Fatalf("expected a fallback handler for an out-of-range step")
	}
}

// sanity: ensure store.EnqueueTask used by negotiationCounter doesn't
// panic against a freshly constructed DB.
func TestStep5NegotiationCounterEnqueuesTask(t *testing.T) {
	e := newTestEvent()
	db := &store.DB{}
	ws := &WorkflowState{Event: e, DB: db, Message: "Could you do 5500 instead of 6000?"}
	res := Step5Negotiation(ws)
	if res.Action != "negotiation_counter_escalated" {
		t.Fatalf("expected negotiation_counter_escalated, got %+v", res)
	}
	if len(db.Tasks) != 1 {
		t.Fatalf("expected one task enqueued, got %d", len(db.Tasks))
	}
}
