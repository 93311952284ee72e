package guard

import (
	"regexp"
	"strings"

	"github.com/venuedesk/bookingengine/domain"
)

// billing capture runs before gate evaluation on every message
// regardless of whether a billing gate is currently active, matching
// original_source/workflows/runtime/pre_route.py's "Billing flow step
// correction" stage — the client may volunteer invoicing details at
// any step and they should stick.
var (
	postalCodeRe = regexp.MustCompile(`\b\d{4,6}\b`)
)

// CaptureBilling attempts to extract billing fields from free text.
// It returns ok=false when nothing resembling a billing block was
// found. Country is optional by design (spec.md domain.BillingDetails).
func CaptureBilling(text string) (domain.BillingDetails, bool) {
	lines := splitNonEmptyLines(text)
	if len(lines) < 2 {
		return domain.BillingDetails{}, false
	}

	var b domain.BillingDetails
	for _, line := range lines {
		if b.PostalCode == "" && b.City == "" && postalCodeRe.MatchString(line) {
			match := postalCodeRe.FindString(line)
			b.PostalCode = match
			rest := strings.TrimSpace(strings.Replace(line, match, "", 1))
			if rest != "" {
				b.City = rest
			}
			continue
		}
		if b.Street == "" && looksLikeStreet(line) {
			b.Street = line
			continue
		}
		if b.NameOrCompany == "" {
			b.NameOrCompany = line
		}
	}

	if !b.Complete() {
		return b, false
	}
	return b, true
}

func looksLikeStreet(line string) bool {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return false
	}
	last := fields[len(fields)-1]
	for _, r := range last {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

func splitNonEmptyLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
