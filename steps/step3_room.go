package steps

import (
	"fmt"
	"strings"

	"github.com/venuedesk/bookingengine/domain"
	"github.com/venuedesk/bookingengine/store"
)

// RoomOption is one candidate room surfaced by the (external) catalog
// adapter, passed in via ws.Extras["room_options"].
type RoomOption struct {
	RoomID   string
	Capacity int
	Fits     bool
}

// Step3RoomAvailability evaluates rooms against requirements and the
// chosen date.
func Step3RoomAvailability(ws *WorkflowState) GroupResult {
	e := ws.Event

	if ws.Entities.RoomPreference != "" {
		e.LockedRoomID = ws.Entities.RoomPreference
		e.RoomEvalHash = e.RequirementsHash
		four := 4
		store.UpdateEventMetadata(e, store.EventMetadataFields{CurrentStep: &four, Reason: "room selected"})
		return result("room_locked").withPayload("locked_room_id", e.LockedRoomID)
	}

	options := roomOptionsFromExtras(ws)
	viable := make([]RoomOption, 0, len(options))
	for _, o := range options {
		if o.Fits {
			viable = append(viable, o)
		}
	}

	switch len(viable) {
	case 0:
		two := 2
		caller := e.CurrentStep
		if e.CallerStep != nil {
			caller = *e.CallerStep
		}
		store.UpdateEventMetadata(e, store.EventMetadataFields{CurrentStep: &two, CallerStep: ptrptr(&caller), Reason: "no viable room, manager review"})
		return result("no_room_available").withDraft(domain.Draft{
			Body:             "None of our rooms currently fit that request — a member of our team will follow up with alternatives.",
			Step:             3,
			Topic:            "manual_review",
			RequiresApproval: true,
		}).halted()

	case 1:
		return result("room_proposed").withDraft(domain.Draft{
			Body:  fmt.Sprintf("Based on your requirements, I'd suggest %s. Shall I lock it in?", viable[0].RoomID),
			Step:  3,
			Topic: "room_proposal",
		}).halted()

	default:
		var names []string
		for _, r := range viable {
			names = append(names, fmt.Sprintf("%s (capacity %d)", r.RoomID, r.Capacity))
		}
		return result("rooms_listed").withDraft(domain.Draft{
			Body:  "A few rooms would work: " + strings.Join(names, ", ") + ". Which would you prefer?",
			Step:  3,
			Topic: "room_options",
		}).halted()
	}
}

func roomOptionsFromExtras(ws *WorkflowState) []RoomOption {
	if ws.Extras == nil {
		return nil
	}
	if v, ok := ws.Extras["room_options"].([]RoomOption); ok {
		return v
	}
	return nil
}
