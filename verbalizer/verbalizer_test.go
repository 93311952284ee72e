package verbalizer

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/venuedesk/bookingengine/config"
	"github.com/venuedesk/bookingengine/domain"
	"github.com/venuedesk/bookingengine/provider"
)

func TestRecognizesDateAcrossFormats(t *testing.T) {
	cases := []string{
		"We'll see you on 20.03.2027.",
		"We'll see you on 20 March 2027.",
		"We'll see you on March 20, 2027.",
		"We'll see you on the 20th of March 2027.",
		"We'll see you on 2027-03-20.",
	}
	for _, text := range cases {
		if !RecognizesDate(text, "20.03.2027") {
			t.Errorf("expected date recognized in %q", text)
		}
	}
}

func TestRecognizesNumberAcrossFormats(t *testing.T) {
	cases := []string{
		"Your total comes to 1200.00 CHF.",
		"Your total comes to 1'200.00 CHF.",
		"Your total comes to 1,200.00 CHF.",
	}
	for _, text := range cases {
		if !RecognizesNumber(text, "1200.00") {
			t.Errorf("expected number recognized in %q", text)
		}
	}
}

func TestRecognizesNumberRejectsWrongValue(t *testing.T) {
	if RecognizesNumber("Your total comes to 900.00 CHF.", "1200.00") {
		t.Fatalf("expected mismatch to be rejected")
	}
}

func TestQnATemplatesOpeningHours(t *testing.T) {
	venue := config.Venue{Name: "The Grand Hall", OperatingHours: "08:00-22:00", Timezone: "Europe/Zurich"}
	out := QnATemplates(QnAOpeningHours, venue)
	if out == "" {
		t.Fatalf("expected non-empty template output")
	}
}

func TestRenderFallsBackOnProviderError(t *testing.T) {
	registry := provider.NewRegistry()
	v := New(registry, zerolog.Nop())
	draft := domain.Draft{Body: "original deterministic body", Step: 4, Topic: "offer_sent"}
	out := v.Render(context.Background(), draft, Facts{"chosen_date": "20.03.2027"})
	if out.Body != draft.Body {
		t.Fatalf("expected fallback to original body when no providers registered, got %q", out.Body)
	}
}

func TestRenderUsesStubProviderWhenFactsSurvive(t *testing.T) {
	registry := provider.NewRegistry()
	registry.Register(renamedStub{provider.NewStubProvider()})
	v := New(registry, zerolog.Nop())
	draft := domain.Draft{Body: "Here is your offer for 20.03.2027.", Step: 4, Topic: "offer_sent"}
	out := v.Render(context.Background(), draft, Facts{})
	if out.Body == "" {
		t.Fatalf("expected non-empty rendered body")
	}
}

// renamedStub registers the stub provider under the "primary" route
// name CompleteWithFallback expects.
type renamedStub struct{ provider.Provider }

func (renamedStub) Name() string { return "primary" }
