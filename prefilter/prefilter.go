package prefilter

import (
	"regexp"
	"strings"

	"github.com/venuedesk/bookingengine/domain"
)

// Flags is the output of a pre-filter pass, run before detection so
// cheap checks never cost an LLM call.
type Flags struct {
	IsDuplicate       bool
	HasBillingSignal  bool
	LanguageHint      string
	IsStructuralAttack bool
}

var (
	billingKeywords = []string{"invoice", "vat", "tax id", "company name", "billing address", "rechnungsadresse"}

	structuralPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<\s*system\s*>`),
		regexp.MustCompile(`(?i)<\s*/?\s*(assistant|user|tool)\s*>`),
		regexp.MustCompile("(?s)```\\s*(system|assistant)"),
		regexp.MustCompile(`(?i)ignore (all )?(previous|prior) instructions`),
	}
)

// Run evaluates the cheap pre-detection flags for a message against an
// event (nil if no event exists yet for this thread).
func Run(e *domain.Event, msgID, body string) Flags {
	f := Flags{
		LanguageHint: guessLanguage(body),
	}

	if e != nil && e.HasProcessed(msgID) {
		f.IsDuplicate = true
	}

	lower := strings.ToLower(body)
	for _, kw := range billingKeywords {
		if strings.Contains(lower, kw) {
			f.HasBillingSignal = true
			break
		}
	}

	for _, p := range structuralPatterns {
		if p.MatchString(body) {
			f.IsStructuralAttack = true
			break
		}
	}

	return f
}

// guessLanguage is a cheap heuristic used only as a pre-filter hint;
// the authoritative language comes from detection.UnifiedDetection.
func guessLanguage(body string) string {
	lower := strings.ToLower(body)
	switch {
	case strings.Contains(lower, " der ") || strings.Contains(lower, " und ") || strings.Contains(lower, " sie "):
		return "de"
	case strings.Contains(lower, " le ") || strings.Contains(lower, " et ") || strings.Contains(lower, " vous "):
		return "fr"
	case strings.Contains(lower, " il ") || strings.Contains(lower, " e ") || strings.Contains(lower, " grazie"):
		return "it"
	case strings.Contains(lower, " el ") || strings.Contains(lower, " gracias"):
		return "es"
	default:
		return "en"
	}
}

// StripQuoted removes forwarded/quoted prior-message content (lines
// starting with '>' or an "On ... wrote:" header) so that pre-filter
// and detection signals are not driven by text the client didn't
// author themselves (spec.md S3).
func StripQuoted(body string) string {
	lines := strings.Split(body, "\n")
	var out []string
	quoting := false
	onWroteRe := regexp.MustCompile(`(?i)^on .* wrote:\s*$`)

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if onWroteRe.MatchString(trimmed) {
			quoting = true
			continue
		}
		if strings.HasPrefix(trimmed, ">") {
			quoting = true
			continue
		}
		if quoting && trimmed == "" {
			continue
		}
		quoting = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
