package verbalizer

import "github.com/venuedesk/bookingengine/config"

// QnAType names a question type that QnATemplates can answer.
type QnAType string

const (
	QnAOpeningHours QnAType = "opening_hours"
	QnAPricingRange QnAType = "pricing_range"
	QnAGeneric      QnAType = "generic"
)

// QnATemplates renders a deterministic answer for a question type from
// venue configuration. No pipeline path calls it: the Router's fallback
// reply and Step 1's standalone_qna draft use their own fixed text.
func QnATemplates(qt QnAType, venue config.Venue) string {
	switch qt {
	case QnAOpeningHours:
		return "Our venue, " + venue.Name + ", is open " + venue.OperatingHours + " (" + venue.Timezone + ")."
	case QnAPricingRange:
		return "Pricing depends on your date, room, and requirements — share a few details and we'll put together an offer."
	default:
		return "Thanks for reaching out to " + venue.Name + " — a member of our team will follow up shortly."
	}
}
