package triage

import (
	"fmt"
	"strings"
)

// Prompt templates delimit their sections with XML-style tags, so the
// only characters user content must never contribute verbatim are the
// tag delimiters themselves.
var delimiterEscaper = strings.NewReplacer(
	"<", "&lt;",
	">", "&gt;",
)

// SanitizeText neutralizes template delimiters in raw user text. Pure
// transform: it never fails, worst case the whole input comes back
// escaped.
func SanitizeText(raw string) string {
	return delimiterEscaper.Replace(raw)
}

// Sanitize derives the per-turn SanitizedInput from a raw turn and the
// retained history window. History entries are re-escaped on every
// turn; only user inputs from prior turns are carried into prompts,
// matching the classifier's chat-history contract.
func Sanitize(turn *UserTurn, history []TurnRecord) *SanitizedInput {
	lines := make([]string, 0, len(history))
	for i, rec := range history {
		if rec.Failed {
			continue
		}
		lines = append(lines, fmt.Sprintf("User Input %d: %s", i, SanitizeText(rec.Input)))
	}

	return &SanitizedInput{
		Text:     SanitizeText(turn.Text),
		History:  lines,
		Image:    turn.Image,
		Location: turn.Location,
	}
}
