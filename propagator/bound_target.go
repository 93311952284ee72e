package propagator

import "github.com/venuedesk/bookingengine/detection"

// boundTargetKeywords names the nouns that anchor a revision verb to a
// specific ChangeType — the second half of the dual-condition test.
var boundTargetKeywords = map[ChangeType][]string{
	ChangeDate:         {"date", "day", "datum", "tag", "date", "jour", "data", "giorno", "fecha", "dia"},
	ChangeRoom:         {"room", "hall", "raum", "saal", "salle", "sala"},
	ChangeRequirements: {"guests", "participants", "layout", "seating", "duration", "time", "personen", "gäste", "participants", "disposition", "partecipanti", "disposizione"},
	ChangeProducts:     {"menu", "catering", "products", "food", "drinks", "speisekarte", "menü", "boissons"},
	ChangeCommercial:   {"price", "terms", "discount", "cost", "preis", "rabatt", "prix", "prezzo", "precio"},
	ChangeDeposit:      {"deposit", "anzahlung", "acompte", "deposito"},
}

// DetectChange applies the dual-condition test from spec.md §4.6: a
// revision signal AND a bound target. Pure Q&A ("what if we changed…")
// is excluded when is_question is set without is_change_request; without
// is_change_request the revision signal comes from the raw text's
// revision verbs. Returns ok=false when no change should be routed.
func DetectChange(d *detection.UnifiedDetection, rawText string) (ChangeType, bool) {
	if d == nil {
		return "", false
	}
	if d.Signals.IsQuestion && !d.Signals.IsChangeRequest {
		return "", false
	}
	if !d.Signals.IsChangeRequest {
		if !IsRevisionSignal(rawText) {
			return "", false
		}
	}

	lower := normalize(rawText)
	for _, ct := range orderedChangeTypes {
		for _, kw := range boundTargetKeywords[ct] {
			if contains(lower, kw) {
				return ct, true
			}
		}
	}
	return "", false
}

// orderedChangeTypes fixes the tie-break order when a message's text
// matches more than one bound-target keyword set: date and room are
// checked before the broader requirements set.
var orderedChangeTypes = []ChangeType{
	ChangeDate, ChangeRoom, ChangeDeposit, ChangeCommercial, ChangeProducts, ChangeRequirements,
}
