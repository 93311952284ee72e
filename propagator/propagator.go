package propagator

import "github.com/venuedesk/bookingengine/domain"

// ChangeType is the kind of confirmed variable a message revises.
type ChangeType string

const (
	ChangeDate         ChangeType = "DATE"
	ChangeRoom         ChangeType = "ROOM"
	ChangeRequirements ChangeType = "REQUIREMENTS"
	ChangeProducts     ChangeType = "PRODUCTS"
	ChangeCommercial   ChangeType = "COMMERCIAL"
	ChangeDeposit      ChangeType = "DEPOSIT"
	ChangeSiteVisit    ChangeType = "SITE_VISIT"
	ChangeClientInfo   ChangeType = "CLIENT_INFO"
)

// NextStepDecision is the result of routing a detected change through
// the DAG.
type NextStepDecision struct {
	NextStep    int
	CallerStep  *int
	NeedsReeval bool
	SkipReason  string
}

// ownerStep maps a ChangeType to the step that owns it. SITE_VISIT and
// CLIENT_INFO are handled in place (no detour) and are not present
// here; see Route.
var ownerStep = map[ChangeType]int{
	ChangeDate:         2,
	ChangeRoom:         3,
	ChangeRequirements: 3,
	ChangeProducts:     4,
	ChangeCommercial:   5,
	ChangeDeposit:      7,
}

// Route computes the NextStepDecision for a detected change against the
// current event, implementing the DAG in spec.md §4.6.
func Route(e *domain.Event, change ChangeType, newRequirementsHash string) NextStepDecision {
	switch change {
	case ChangeSiteVisit, ChangeClientInfo:
		// Handled in place by whichever step is active; no detour.
		return NextStepDecision{NextStep: e.CurrentStep, NeedsReeval: false}

	case ChangeRequirements:
		if e.RoomEvalHash == newRequirementsHash {
			return NextStepDecision{NextStep: e.CurrentStep, NeedsReeval: false, SkipReason: "hash_match"}
		}
		return detour(e, ownerStep[ChangeRequirements])

	case ChangeDate:
		// Invalidates locked_room_id and room_eval_hash — caller clears
		// those fields when applying this decision.
		return detour(e, ownerStep[ChangeDate])

	default:
		if owner, ok := ownerStep[change]; ok {
			return detour(e, owner)
		}
		return NextStepDecision{NextStep: e.CurrentStep, NeedsReeval: false}
	}
}

// detour composes with any already-active detour, preserving the
// original (outermost) caller_step (spec.md §4.6: "If a detour arrives
// while one is active, compose: the outermost caller_step is
// preserved" — a second detour must still return to where the first
// one was entered from, not to the step the second detour interrupted).
func detour(e *domain.Event, ownerStepNum int) NextStepDecision {
	caller := e.CurrentStep
	if e.CallerStep != nil {
		caller = *e.CallerStep
	}
	return NextStepDecision{
		NextStep:    domain.ClampStep(ownerStepNum),
		CallerStep:  &caller,
		NeedsReeval: true,
	}
}

// IsRevisionSignal reports whether text contains a revision verb in any
// supported language — the first half of the dual-condition change
// detection test in spec.md §4.6.
func IsRevisionSignal(text string) bool {
	lower := normalize(text)
	for _, kw := range revisionVerbs {
		if contains(lower, kw) {
			return true
		}
	}
	return false
}

var revisionVerbs = []string{
	"change", "move", "reschedule", "switch", "update",
	"ändern", "verschieben", "wechseln",
	"changer", "déplacer", "reporter",
	"cambiare", "spostare",
	"cambiar", "mover",
}

func normalize(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			r = r + ('a' - 'A')
		}
		out = append(out, r)
	}
	return string(out)
}

func contains(haystack, needle string) bool {
	return len(needle) <= len(haystack) && indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	n, m := len(haystack), len(needle)
	for i := 0; i+m <= n; i++ {
		if haystack[i:i+m] == needle {
			return i
		}
	}
	return -1
}
