package triage

import (
	"fmt"
	"strings"
)

// FormatResponse merges handler output, the facility list, and the
// severity tag into the platform-agnostic FinalResponse. Deterministic
// and side-effect free; the severe path sets the emergency flag
// unconditionally.
func FormatResponse(conversationID, turnID string, verdict *Verdict, handled *HandlerResult, facilities []Facility) *FinalResponse {
	var sb strings.Builder
	sb.WriteString(handled.Response)

	if len(facilities) > 0 {
		sb.WriteString("\n\nNearby facilities:\n")
		for _, f := range facilities {
			sb.WriteString(fmt.Sprintf("- %s (%s)\n", f.DisplayName, f.Category))
		}
	}

	if facilities == nil {
		facilities = []Facility{}
	}

	return &FinalResponse{
		ConversationID: conversationID,
		TurnID:         turnID,
		Text:           strings.TrimRight(sb.String(), "\n"),
		Severity:       verdict.Severity,
		Facilities:     facilities,
		Specialists:    handled.Specialists,
		Emergency:      verdict.Severity == SeveritySevere,
	}
}
