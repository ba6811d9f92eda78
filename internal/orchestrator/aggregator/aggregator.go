// Package aggregator renders a list of dispatch responses into the single
// plain-text message returned to the user (spec.md §4.6).
package aggregator

import (
	"strings"

	"github.com/seiggy/lucia/internal/orchestrator/dispatch"
)

const DefaultFallbackMessage = "Sorry, I wasn't able to do that."

// Aggregate implements spec.md §4.6's four rendering rules.
func Aggregate(responses []dispatch.Response, fallbackMessage string) string {
	if fallbackMessage == "" {
		fallbackMessage = DefaultFallbackMessage
	}
	if len(responses) == 0 {
		return fallbackMessage
	}

	var succeeded, failed []dispatch.Response
	for _, r := range responses {
		if r.Success {
			succeeded = append(succeeded, r)
		} else {
			failed = append(failed, r)
		}
	}

	switch {
	case len(failed) == 0:
		return renderSuccess(succeeded)
	case len(succeeded) == 0:
		return fallbackMessage
	default:
		return renderPartial(succeeded, failed)
	}
}

func renderSuccess(responses []dispatch.Response) string {
	parts := make([]string, 0, len(responses))
	for _, r := range responses {
		parts = append(parts, normalizePunctuation(r.Content))
	}
	return strings.Join(parts, " ")
}

func renderPartial(succeeded, failed []dispatch.Response) string {
	var b strings.Builder
	b.WriteString(renderSuccess(succeeded))
	b.WriteString(" However, ")
	explanations := make([]string, 0, len(failed))
	for _, r := range failed {
		explanations = append(explanations, r.AgentID+" could not complete: "+r.Error)
	}
	b.WriteString(strings.Join(explanations, "; "))
	b.WriteString(".")
	return b.String()
}

// normalizePunctuation trims whitespace and ensures a single trailing
// sentence terminator so concatenated agent replies read as one message.
func normalizePunctuation(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	last := s[len(s)-1]
	if last == '.' || last == '!' || last == '?' {
		return s
	}
	return s + "."
}
