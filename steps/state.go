package steps

import (
	"github.com/venuedesk/bookingengine/detection"
	"github.com/venuedesk/bookingengine/domain"
	"github.com/venuedesk/bookingengine/store"
)

// WorkflowState is the input every step handler receives.
type WorkflowState struct {
	Message    string
	MsgID      string
	DB         *store.DB
	Event      *domain.Event
	Intent     detection.Intent
	Confidence float64
	Entities   detection.Entities
	Signals    detection.Signals
	Extras     map[string]any
}

// GroupResult is what every step handler returns.
type GroupResult struct {
	Action  string
	Payload map[string]any
	Drafts  []domain.Draft
	Halt    bool
}

func result(action string) GroupResult {
	return GroupResult{Action: action, Payload: map[string]any{}}
}

func (g GroupResult) withDraft(d domain.Draft) GroupResult {
	g.Drafts = append(g.Drafts, d)
	return g
}

func (g GroupResult) withPayload(k string, v any) GroupResult {
	if g.Payload == nil {
		g.Payload = map[string]any{}
	}
	g.Payload[k] = v
	return g
}

func (g GroupResult) halted() GroupResult {
	g.Halt = true
	return g
}

// Handler is the signature every step handler implements.
type Handler func(ws *WorkflowState) GroupResult
