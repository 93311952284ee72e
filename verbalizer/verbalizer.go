// Package verbalizer turns a step handler's deterministic draft into
// warmer client-facing prose, then verifies the generated text still
// carries every fact it was given before letting it out the door — the
// "sandwich": generate, verify, patch-or-fall-back.
package verbalizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/venuedesk/bookingengine/domain"
	"github.com/venuedesk/bookingengine/provider"
)

// Facts is the set of verbatim values a verbalized draft must still
// contain after rewriting — dates, amounts, room names, and the like.
type Facts map[string]string

// Verbalizer rewrites a draft's body while verifying facts survive.
type Verbalizer struct {
	registry *provider.Registry
	logger   zerolog.Logger
}

// New creates a Verbalizer over a provider registry.
func New(registry *provider.Registry, logger zerolog.Logger) *Verbalizer {
	return &Verbalizer{registry: registry, logger: logger.With().Str("component", "verbalizer").Logger()}
}

// Render attempts to produce warmer prose for a draft. On any failure —
// provider error, or facts missing from the generated text even after a
// patch attempt — it falls back to the original deterministic body
// untouched, so a verbalization failure never blocks a reply.
func (v *Verbalizer) Render(ctx context.Context, draft domain.Draft, facts Facts) domain.Draft {
	resp, err := v.registry.CompleteWithFallback(ctx, &provider.Request{
		Operation:    provider.OpVerbalization,
		SystemPrompt: systemPrompt(),
		UserPrompt:   userPrompt(draft.Body, facts),
		Temperature:  0.4,
	})
	if err != nil {
		v.logger.Warn().Err(err).Msg("verbalization provider call failed, using deterministic body")
		return draft
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return draft
	}

	missing := missingFacts(text, facts)
	if len(missing) == 0 {
		draft.Body = text
		return draft
	}

	patched := patch(text, missing)
	if len(missingFacts(patched, facts)) == 0 {
		draft.Body = patched
		return draft
	}

	v.logger.Warn().Strs("missing_facts", keysOf(missing)).Msg("verbalized draft failed fact verification, falling back")
	return draft
}

func systemPrompt() string {
	return "Rewrite the given message in warm, professional prose for a venue booking " +
		"client. Preserve every fact exactly as given — dates, amounts, room names, and " +
		"counts must appear verbatim. Do not invent new facts or omit any given fact."
}

func userPrompt(body string, facts Facts) string {
	var b strings.Builder
	b.WriteString("Message to rewrite:\n")
	b.WriteString(body)
	if len(facts) > 0 {
		b.WriteString("\n\nFacts that must appear in your rewrite:\n")
		for k, v := range facts {
			fmt.Fprintf(&b, "- %s: %s\n", k, v)
		}
	}
	return b.String()
}

// missingFacts returns the subset of facts not recognizable in text,
// tolerant of multi-format dates and thousands-separator variants.
func missingFacts(text string, facts Facts) Facts {
	missing := Facts{}
	for k, v := range facts {
		if v == "" {
			continue
		}
		if RecognizesDate(text, v) || RecognizesNumber(text, v) || strings.Contains(text, v) {
			continue
		}
		missing[k] = v
	}
	return missing
}

// patch appends a deterministic postscript listing facts the generated
// prose dropped, rather than discarding the (otherwise fine) rewrite.
func patch(text string, missing Facts) string {
	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\n\n")
	for k, v := range missing {
		fmt.Fprintf(&b, "%s: %s\n", humanize(k), v)
	}
	return strings.TrimRight(b.String(), "\n")
}

func humanize(key string) string {
	words := strings.Split(strings.ReplaceAll(key, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func keysOf(f Facts) []string {
	out := make([]string, 0, len(f))
	for k := range f {
		out = append(out, k)
	}
	return out
}
