package guard

import "github.com/venuedesk/bookingengine/domain"

// Snapshot is the read-only evaluation of an event's current guard
// state (spec.md §4.5). Guards never mutate the event.
type Snapshot struct {
	ForcedStep              int
	RequirementsHashChanged bool
	Step2Required           bool
	CandidateDates          []string
	DepositBypass           bool
	SiteVisitGuard          bool
	BillingFlowActive       bool
}

// Evaluate computes a GuardSnapshot from the current event state.
func Evaluate(e *domain.Event) Snapshot {
	var snap Snapshot

	if e.OfferAccepted && e.BillingRequirements.AwaitingBillingForAccept {
		snap.BillingFlowActive = true
	}

	switch {
	case !e.DateConfirmed:
		if !snap.BillingFlowActive {
			snap.ForcedStep = 2
			snap.Step2Required = true
		}
	case e.DateConfirmed && e.LockedRoomID == "":
		if !snap.BillingFlowActive {
			snap.ForcedStep = 3
		}
	case e.LockedRoomID != "" && e.RequirementsHash != e.RoomEvalHash:
		snap.RequirementsHashChanged = true
		if !snap.BillingFlowActive {
			snap.ForcedStep = 3
		}
	}

	switch e.SiteVisitState.Status {
	case domain.SiteVisitDatePending, domain.SiteVisitTimePending, domain.SiteVisitConfirmPending:
		snap.SiteVisitGuard = true
	}

	return snap
}
