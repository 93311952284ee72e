package verbalizer

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are the formats a generated reply might legitimately
// restate a DD.MM.YYYY fact in — the verifier accepts any of them as
// carrying the same fact, not just a byte-for-byte match.
var dateLayouts = []string{
	"02.01.2006",
	"2 January 2006",
	"January 2, 2006",
	"02/01/2006",
	"2006-01-02",
}

var ordinalSuffix = regexp.MustCompile(`(\d+)(st|nd|rd|th)`)

// RecognizesDate reports whether text contains a date equivalent to
// value (given in DD.MM.YYYY), in any of the accepted prose formats,
// including ordinal day forms like "15th of February 2026".
func RecognizesDate(text, value string) bool {
	want, err := time.Parse("02.01.2006", value)
	if err != nil {
		return false
	}

	normalized := ordinalSuffix.ReplaceAllString(text, "$1")
	normalized = strings.ReplaceAll(normalized, " of ", " ")

	for _, layout := range dateLayouts {
		for _, candidate := range candidateSubstrings(normalized, len(layout)) {
			if got, err := time.Parse(layout, candidate); err == nil && got.Equal(want) {
				return true
			}
		}
	}
	return strings.Contains(text, value)
}

// candidateSubstrings returns a generous set of fixed-width substrings
// to attempt parsing against — cheap since dates are short and replies
// are short client-facing messages, not documents.
func candidateSubstrings(text string, width int) []string {
	var out []string
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		for w := 6; w <= width+6 && i+w <= len(runes); w++ {
			out = append(out, strings.TrimSpace(string(runes[i:i+w])))
		}
	}
	return out
}

// thousandsSep matches a Swiss-style thousands separator (apostrophe)
// in a numeric literal, e.g. "1'200.00".
var thousandsSep = regexp.MustCompile(`(\d)'(\d{3})`)

// RecognizesNumber reports whether text contains a number equivalent to
// value, tolerant of a Swiss thousands-separator rendering and trailing
// currency/unit suffixes.
func RecognizesNumber(text, value string) bool {
	wantF, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return false
	}

	numRe := regexp.MustCompile(`[\d'.,]+`)
	for _, tok := range numRe.FindAllString(text, -1) {
		normalized := thousandsSep.ReplaceAllString(tok, "$1$2")
		normalized = strings.ReplaceAll(normalized, ",", "")
		normalized = strings.Trim(normalized, ".")
		if got, err := strconv.ParseFloat(normalized, 64); err == nil && floatsEqual(got, wantF) {
			return true
		}
	}
	return false
}

func floatsEqual(a, b float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < 0.005
}
