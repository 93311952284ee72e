package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestTrackStepExposedInHandler(t *testing.T) {
	r := New(zerolog.Nop())
	r.TrackStep(4, "offer_sent", 12.5)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	r.Handler().ServeHTTP(w, req)

	body := w.Body.String()
	if !strings.Contains(body, "booking_step_outcomes_total") {
		t.Fatalf("expected step outcome counter in output, got: %s", body)
	}
	if !strings.Contains(body, "booking_step_duration_ms") {
		t.Fatalf("expected step duration histogram in output, got: %s", body)
	}
}

func TestTrackProviderHealthGauge(t *testing.T) {
	r := New(zerolog.Nop())
	r.TrackProviderHealth("openai", true)
	if r.getGauge("booking_provider_healthy", map[string]string{"provider": "openai"}).Value() != 1.0 {
		t.Fatalf("expected healthy gauge to be 1.0")
	}
	r.TrackProviderHealth("openai", false)
	if r.getGauge("booking_provider_healthy", map[string]string{"provider": "openai"}).Value() != 0.0 {
		t.Fatalf("expected unhealthy gauge to be 0.0")
	}
}

func TestTrackHILQueueDepth(t *testing.T) {
	r := New(zerolog.Nop())
	r.TrackHILQueueDepth(3)
	if r.getGauge("booking_hil_queue_depth", nil).Value() != 3 {
		t.Fatalf("expected hil queue depth gauge to be 3")
	}
}
