package detection

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/venuedesk/bookingengine/domain"
	"github.com/venuedesk/bookingengine/provider"
)

// detectLegacy runs the fallback pipeline: a sequential keyword
// pre-filter, then a separate intent call, then a separate entity call.
// Used when config.DetectionMode is "legacy", and by Detect as the
// fallback when the unified call fails or returns unparsable JSON.
func (d *Detector) detectLegacy(ctx context.Context, message string, currentStep int) (*UnifiedDetection, error) {
	keywordIntent, matched := keywordPreFilter(message)

	intentReq := &provider.Request{
		Operation:    provider.OpIntent,
		SystemPrompt: legacyIntentPrompt(currentStep),
		UserPrompt:   message,
	}
	intentResp, err := d.registry.CompleteWithFallback(ctx, intentReq)
	if err != nil {
		if matched {
			return &UnifiedDetection{Intent: keywordIntent, Confidence: 0.4, Language: LangEN}, nil
		}
		return nil, domain.NewError(domain.ErrProviderUnavailable, "detection.detectLegacy.intent", err)
	}

	var intentOut struct {
		Intent     Intent   `json:"intent"`
		Confidence float64  `json:"confidence"`
		Language   Language `json:"language"`
		Signals    Signals  `json:"signals"`
	}
	if err := json.Unmarshal([]byte(intentResp.Text), &intentOut); err != nil {
		return nil, domain.NewError(domain.ErrPayloadInvalid, "detection.detectLegacy.intent.parse", err)
	}

	entityReq := &provider.Request{
		Operation:    provider.OpEntity,
		SystemPrompt: legacyEntityPrompt,
		UserPrompt:   message,
	}
	entityResp, err := d.registry.CompleteWithFallback(ctx, entityReq)
	if err != nil {
		return &UnifiedDetection{
			Intent: intentOut.Intent, Confidence: intentOut.Confidence,
			Language: intentOut.Language, Signals: intentOut.Signals,
		}, nil
	}

	var entityOut struct {
		Entities Entities `json:"entities"`
	}
	_ = json.Unmarshal([]byte(entityResp.Text), &entityOut)

	return &UnifiedDetection{
		Intent:     intentOut.Intent,
		Confidence: intentOut.Confidence,
		Language:   intentOut.Language,
		Signals:    intentOut.Signals,
		Entities:   entityOut.Entities,
	}, nil
}

// keywordPreFilter does a cheap pass before any LLM call, used only to
// produce a usable result if the intent call itself fails entirely.
func keywordPreFilter(message string) (Intent, bool) {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "cancel"):
		return IntentCancellation, true
	case strings.Contains(lower, "accept") || strings.Contains(lower, "we accept"):
		return IntentAcceptOffer, true
	case strings.Contains(lower, "decline") || strings.Contains(lower, "not interested"):
		return IntentDeclineOffer, true
	case strings.Contains(lower, "change") || strings.Contains(lower, "move the date") || strings.Contains(lower, "reschedule"):
		return IntentChangeRequest, true
	case strings.Contains(lower, "manager") || strings.Contains(lower, "supervisor"):
		return IntentManagerRequest, true
	case strings.Contains(lower, "?"):
		return IntentQnA, true
	default:
		return IntentEventRequest, false
	}
}

func legacyIntentPrompt(currentStep int) string {
	return "Classify the client message intent only. Return JSON {intent, confidence, language, signals}."
}

const legacyEntityPrompt = "Extract structured entities from the client message. Return JSON {entities}."
