package steps

import (
	"strings"
	"time"

	"github.com/venuedesk/bookingengine/config"
	"github.com/venuedesk/bookingengine/detection"
	"github.com/venuedesk/bookingengine/domain"
	"github.com/venuedesk/bookingengine/propagator"
	"github.com/venuedesk/bookingengine/store"
)

// Step7Confirmation dispatches the final stage: change, question,
// deposit_paid, site_visit (a site-visit request, or any message while a
// site visit is date/time/confirm pending), decline, or confirm
// (spec.md §4.7 Step 7). There is no separate reserve branch; a message
// matching none of these gets a clarification request. The billing gate
// applies here even when billing was already
// captured earlier, since it may have been skipped until acceptance.
func Step7Confirmation(ws *WorkflowState) GroupResult {
	e := ws.Event

	ud := &detection.UnifiedDetection{Signals: ws.Signals}
	if ct, ok := propagator.DetectChange(ud, ws.Message); ok {
		return applyChange(ws, ct)
	}

	switch {
	case ws.Signals.IsQuestion:
		return result("confirmation_question").withDraft(domain.Draft{
			Body:  "Happy to answer any last questions before we finalize.",
			Step:  7,
			Topic: "negotiation_qna",
		}).halted()

	case depositPaidSignal(ws):
		return handleDepositPaid(ws)

	case isSiteVisitRequest(ws.Message) ||
		e.SiteVisitState.Status == domain.SiteVisitDatePending ||
		e.SiteVisitState.Status == domain.SiteVisitTimePending ||
		e.SiteVisitState.Status == domain.SiteVisitConfirmPending:
		return handleSiteVisitRequest(ws)

	case ws.Signals.IsRejection:
		status := domain.StatusCancelled
		state := domain.ThreadClosed
		store.UpdateEventMetadata(e, store.EventMetadataFields{Status: &status, ThreadState: &state, Reason: "cancelled at confirmation"})
		return result("confirmation_declined").withDraft(domain.Draft{
			Body:  "Understood — we've cancelled this booking. Do reach out again if plans change.",
			Step:  7,
			Topic: "negotiation_response",
		})

	case ws.Signals.IsAcceptance:
		return handleConfirm(ws)

	default:
		return result("confirmation_clarification_needed").withDraft(domain.Draft{
			Body:  "Could you confirm whether you'd like to proceed with the booking as finalized?",
			Step:  7,
			Topic: "negotiation_qna",
		}).halted()
	}
}

func handleConfirm(ws *WorkflowState) GroupResult {
	e := ws.Event

	if !e.BillingDetails.Complete() {
		e.BillingRequirements.AwaitingBillingForConfirmation = true
		return result("confirmation_awaiting_billing").withDraft(domain.Draft{
			Body:  "Just need your billing details to issue the final contract — name/company, street, postal code, and city.",
			Step:  7,
			Topic: "negotiation_response",
		}).halted()
	}

	if e.DepositInfo.Required && !e.DepositInfo.Paid {
		return result("confirmation_awaiting_deposit").withDraft(domain.Draft{
			Body:  "Great — the last step is the deposit payment. We'll send payment details separately; let us know once it's settled.",
			Step:  7,
			Topic: "negotiation_response",
		}).halted()
	}

	status := domain.StatusConfirmed
	state := domain.ThreadConfirmed
	store.UpdateEventMetadata(e, store.EventMetadataFields{Status: &status, ThreadState: &state, Reason: "booking confirmed"})
	return result("booking_confirmed").withDraft(domain.Draft{
		Body:             "You're all set — your booking is confirmed. The signed contract is attached.",
		Step:             7,
		Topic:            "final_contract_sent",
		RequiresApproval: true,
	})
}

func handleDepositPaid(ws *WorkflowState) GroupResult {
	e := ws.Event
	t := nowUTC()
	e.DepositInfo.Paid = true
	e.DepositInfo.PaidAt = &t
	store.AppendAuditEntry(e, "deposit_info.paid", false, true, "deposit payment reported")

	if e.BillingDetails.Complete() {
		status := domain.StatusConfirmed
		state := domain.ThreadConfirmed
		store.UpdateEventMetadata(e, store.EventMetadataFields{Status: &status, ThreadState: &state, Reason: "deposit paid, booking confirmed"})
		return result("deposit_paid_confirmed").withDraft(domain.Draft{
			Body:             "Thank you — your deposit has been received and your booking is now confirmed.",
			Step:             7,
			Topic:            "final_contract_sent",
			RequiresApproval: true,
		})
	}

	return result("deposit_paid_awaiting_billing").withDraft(domain.Draft{
		Body:  "Thank you — deposit received. We just need your billing details to finalize the contract.",
		Step:  7,
		Topic: "negotiation_response",
	}).halted()
}

func handleSiteVisitRequest(ws *WorkflowState) GroupResult {
	e := ws.Event
	sv := &e.SiteVisitState

	if ws.Signals.IsRejection && sv.Status != domain.SiteVisitIdle && sv.Status != "" {
		resetSiteVisit(sv)
		return result("site_visit_cancelled").withDraft(domain.Draft{
			Body:  "No problem — let us know if you'd like to arrange a site visit another time.",
			Step:  7,
			Topic: "site_visit",
		}).halted()
	}

	switch sv.Status {
	case domain.SiteVisitIdle, "":
		sv.Status = domain.SiteVisitDatePending
		sv.InitiatedAtStep = 7
		return result("site_visit_date_requested").withDraft(domain.Draft{
			Body:  "We'd be glad to host a site visit — what date works best for you?",
			Step:  7,
			Topic: "site_visit",
		}).halted()

	case domain.SiteVisitDatePending:
		if ws.Entities.DateISO != "" {
			sv.DateISO = ws.Entities.DateISO
			sv.Status = domain.SiteVisitTimePending
			return result("site_visit_time_requested").withDraft(domain.Draft{
				Body:  "Perfect — and what time would suit you that day?",
				Step:  7,
				Topic: "site_visit",
			}).halted()
		}
		return result("site_visit_date_unclear").withDraft(domain.Draft{
			Body:  "Could you confirm the date you'd like to visit?",
			Step:  7,
			Topic: "site_visit",
		}).halted()

	case domain.SiteVisitTimePending:
		if ws.Entities.StartTime != "" {
			sv.TimeSlot = ws.Entities.StartTime
			sv.Status = domain.SiteVisitConfirmPending
			return result("site_visit_confirm_requested").withDraft(domain.Draft{
				Body:  "Shall I lock in the visit then?",
				Step:  7,
				Topic: "site_visit",
			}).halted()
		}
		return result("site_visit_time_unclear").withDraft(domain.Draft{
			Body:  "What time would you like to visit?",
			Step:  7,
			Topic: "site_visit",
		}).halted()

	case domain.SiteVisitConfirmPending:
		if ws.Signals.IsAcceptance {
			if reason, ok := siteVisitDateRejected(ws, sv.DateISO); ok {
				sv.Status = domain.SiteVisitDatePending
				sv.DateISO = ""
				return result("site_visit_date_rejected").withDraft(domain.Draft{
					Body:  reason,
					Step:  7,
					Topic: "site_visit",
				}).halted()
			}
			sv.Status = domain.SiteVisitScheduled
			return result("site_visit_scheduled").withDraft(domain.Draft{
				Body:  "Your site visit is scheduled — we look forward to seeing you.",
				Step:  7,
				Topic: "site_visit",
			})
		}
		return result("site_visit_confirm_unclear").withDraft(domain.Draft{
			Body:  "Just to confirm — shall I lock in that site visit slot?",
			Step:  7,
			Topic: "site_visit",
		}).halted()

	default:
		return result("site_visit_no_action_needed").halted()
	}
}

// resetSiteVisit returns the sub-state machine to idle and clears any
// proposed date/slot, per the "decline from any pending state" rule.
func resetSiteVisit(sv *domain.SiteVisitState) {
	sv.Status = domain.SiteVisitIdle
	sv.DateISO = ""
	sv.TimeSlot = ""
	sv.ProposedDates = nil
	sv.ProposedSlots = nil
	sv.PendingSlot = ""
}

// siteVisitDateRejected checks dateStr against the configured site-visit
// policy and every confirmed event's chosen_date (spec.md Invariant 8: a
// site visit is never scheduled on a date any confirmed event already
// occupies). ok=true means the date must be rejected, with a
// client-facing reason.
func siteVisitDateRejected(ws *WorkflowState, dateStr string) (string, bool) {
	parsed, err := time.Parse(eventDateLayout, dateStr)
	if err != nil {
		return "Could you confirm the visit date in DD.MM.YYYY form?", true
	}

	policy := siteVisitPolicyFromExtras(ws)

	today := time.Now().Truncate(24 * time.Hour)
	if policy.MinDaysAhead > 0 && parsed.Before(today.AddDate(0, 0, policy.MinDaysAhead)) {
		return "That date is too soon for a site visit — could you pick one a little further out?", true
	}

	if policy.WeekdaysOnly && (parsed.Weekday() == time.Saturday || parsed.Weekday() == time.Sunday) {
		return "Site visits run on weekdays only — could you choose a weekday instead?", true
	}

	for _, blocked := range policy.BlockedDates {
		if blocked == dateStr {
			return "That date isn't available for a site visit — would another day work?", true
		}
	}

	for _, other := range ws.DB.Events {
		if other.Status == domain.StatusConfirmed && other.ChosenDate == dateStr {
			return "That date is already booked for an event — would another day work for your visit?", true
		}
	}

	return "", false
}

func siteVisitPolicyFromExtras(ws *WorkflowState) config.SiteVisitPolicy {
	if ws.Extras == nil {
		return config.SiteVisitPolicy{}
	}
	if v, ok := ws.Extras["site_visit_policy"].(config.SiteVisitPolicy); ok {
		return v
	}
	return config.SiteVisitPolicy{}
}

func depositPaidSignal(ws *WorkflowState) bool {
	if ws.Extras == nil {
		return false
	}
	v, _ := ws.Extras["deposit_paid"].(bool)
	return v
}

func isSiteVisitRequest(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range []string{"site visit", "visit the venue", "come see", "viewing", "besichtigung", "visite"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
