package detection

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/venuedesk/bookingengine/domain"
	"github.com/venuedesk/bookingengine/provider"
)

// Detector runs the detection operation against a provider registry,
// choosing between unified and legacy pipelines per config.
type Detector struct {
	registry *provider.Registry
	mode     Mode
}

// Mode selects which detection pipeline to run.
type Mode string

const (
	ModeUnified Mode = "unified"
	ModeLegacy  Mode = "legacy"
)

// New creates a Detector bound to a provider registry.
func New(registry *provider.Registry, mode Mode) *Detector {
	return &Detector{registry: registry, mode: mode}
}

// Detect runs the configured pipeline: detect(message, current_step) →
// UnifiedDetection (spec.md §4.3). In unified mode, a failed unified
// call (primary and fallback) or an unparsable reply falls back to the
// legacy pipeline.
func (d *Detector) Detect(ctx context.Context, message string, currentStep int) (*UnifiedDetection, error) {
	if d.mode == ModeLegacy {
		return d.detectLegacy(ctx, message, currentStep)
	}
	ud, err := d.detectUnified(ctx, message, currentStep)
	if err != nil {
		return d.detectLegacy(ctx, message, currentStep)
	}
	return ud, nil
}

// detectUnified makes a single structured-completion call that extracts
// intent, confidence, language, signals, and entities together —
// cheaper and less prone to cross-field inconsistency than running two
// separate calls.
func (d *Detector) detectUnified(ctx context.Context, message string, currentStep int) (*UnifiedDetection, error) {
	req := &provider.Request{
		Operation:    provider.OpIntent,
		SystemPrompt: unifiedSystemPrompt(currentStep),
		UserPrompt:   message,
		Temperature:  0,
	}

	resp, err := d.registry.CompleteWithFallback(ctx, req)
	if err != nil {
		return nil, domain.NewError(domain.ErrProviderUnavailable, "detection.Detect", err)
	}

	var out UnifiedDetection
	if err := json.Unmarshal([]byte(resp.Text), &out); err != nil {
		return nil, domain.NewError(domain.ErrPayloadInvalid, "detection.Detect.parse", err)
	}
	return &out, nil
}

func unifiedSystemPrompt(currentStep int) string {
	return fmt.Sprintf(
		"Classify the client message for a venue-booking conversation currently at step %d. "+
			"Return a single JSON object with fields: intent, confidence, language, signals, entities, qna_types, step_anchor. "+
			"A revision verb (change/move/reschedule) alone is not enough to set is_change_request: "+
			"it must also name a bound target (date, room, participants, products, price, deposit). "+
			"Quoted or forwarded prior content (lines starting with '>' or under 'you wrote') must not drive signals.",
		currentStep,
	)
}
