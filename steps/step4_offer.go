package steps

import (
	"fmt"
	"time"

	"github.com/venuedesk/bookingengine/config"
	"github.com/venuedesk/bookingengine/domain"
	"github.com/venuedesk/bookingengine/store"
)

// Step4Offer composes (or re-sends) the offer for the current
// requirements/room/date combination, gated by offer_hash so an
// unchanged offer is never recomposed.
func Step4Offer(ws *WorkflowState) GroupResult {
	e := ws.Event

	newHash := domain.OfferHash(e.RequirementsHash, e.LockedRoomID, e.ChosenDate)
	if e.OfferHash == newHash && len(e.Offers) > 0 {
		return result("offer_unchanged").withPayload("offer_id", e.CurrentOfferID)
	}

	items := lineItemsFromExtras(ws)
	if len(items) == 0 {
		items = []domain.OfferLineItem{{
			Description: "Venue hire",
			Quantity:    1,
			UnitPrice:   0,
			Total:       0,
		}}
	}
	var total float64
	for _, it := range items {
		total += it.Total
	}

	offer := domain.Offer{
		OfferID:     fmt.Sprintf("offer-%d", len(e.Offers)+1),
		TotalAmount: total,
		LineItems:   items,
		CreatedAt:   nowUTC(),
	}
	e.Offers = append(e.Offers, offer)
	e.CurrentOfferID = offer.OfferID
	e.OfferHash = newHash
	e.OfferAccepted = false
	e.OfferStatus = "sent"
	e.DepositInfo = depositFromPolicy(depositPolicyFromExtras(ws), total)

	status := domain.StatusOfferSent
	five := 5
	store.UpdateEventMetadata(e, store.EventMetadataFields{CurrentStep: &five, Status: &status, Reason: "offer composed"})
	store.AppendAuditEntry(e, "offer_hash", nil, newHash, "offer composed")

	return result("offer_sent").withDraft(domain.Draft{
		Body:             fmt.Sprintf("Here is our offer for %s: total %.2f. Let me know if this works for you.", e.ChosenDate, total),
		Step:             4,
		Topic:            "offer_sent",
		RequiresApproval: true,
		TableBlocks: []domain.TableBlock{{
			Title: "Offer " + offer.OfferID,
			Rows:  lineItemRows(items),
		}},
	}).withPayload("offer_id", offer.OfferID)
}

func lineItemRows(items []domain.OfferLineItem) [][]string {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{
			it.Description,
			fmt.Sprintf("%.2f", it.Quantity),
			fmt.Sprintf("%.2f", it.UnitPrice),
			fmt.Sprintf("%.2f", it.Total),
		})
	}
	return rows
}

func lineItemsFromExtras(ws *WorkflowState) []domain.OfferLineItem {
	if ws.Extras == nil {
		return nil
	}
	if v, ok := ws.Extras["line_items"].([]domain.OfferLineItem); ok {
		return v
	}
	return nil
}

func depositPolicyFromExtras(ws *WorkflowState) config.GlobalDeposit {
	if ws.Extras == nil {
		return config.GlobalDeposit{}
	}
	if v, ok := ws.Extras["global_deposit"].(config.GlobalDeposit); ok {
		return v
	}
	return config.GlobalDeposit{}
}

// depositFromPolicy derives per-event deposit terms from the venue-wide
// policy at the moment an offer is composed (spec.md §6).
func depositFromPolicy(p config.GlobalDeposit, total float64) domain.DepositInfo {
	if !p.Enabled {
		return domain.DepositInfo{Required: false}
	}
	amount := p.FixedAmount
	typ := string(config.DepositFixed)
	if p.Type == config.DepositPercentage {
		amount = total * p.Percentage / 100
		typ = string(config.DepositPercentage)
	}
	due := nowUTC().AddDate(0, 0, p.DeadlineDays)
	return domain.DepositInfo{
		Required: true,
		Type:     typ,
		Amount:   amount,
		DueDate:  due.Format("02.01.2006"),
	}
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
