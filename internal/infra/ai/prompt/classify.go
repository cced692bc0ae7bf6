package prompt

import (
	"fmt"
	"strings"
)

// SystemPrompt constrains the model to one JSON object with a checklist status.
func SystemPrompt() string {
	return `You assist housing inspectors. Read the inspector's dictated notes for one checklist item and
suggest the item's status. Respond with one JSON object only (no markdown, no commentary).

Rules:
- status is one of PASS, FAIL, INCONCLUSIVE, NOT_APPLICABLE.
- is24Hour is true only for conditions that threaten life, health or safety and must be fixed within 24 hours
  (no heat in winter, gas leak, exposed wiring, blocked egress, missing smoke detector).
- confidence is a number between 0 and 1.
- rationale is one short sentence.

Schema:
{"status": "<PASS|FAIL|INCONCLUSIVE|NOT_APPLICABLE>", "is24Hour": false, "confidence": 0.0, "rationale": "<string>"}`
}

// UserPrompt wraps the item label and dictation.
func UserPrompt(itemLabel, dictation string) string {
	label := strings.TrimSpace(itemLabel)
	if label == "" {
		label = "(unlabelled item)"
	}
	return fmt.Sprintf("Checklist item: %s\nInspector notes: %s", label, strings.TrimSpace(dictation))
}
