package ai

import (
	"context"

	"github.com/bryanwahyu/inspection-sync/internal/domain/inspections"
)

// Suggestion is a best-effort reading of dictated inspector notes. An empty
// Status means the classifier had no opinion.
type Suggestion struct {
	Status     inspections.ItemStatus `json:"status"`
	Is24Hour   bool                   `json:"is24Hour"`
	Confidence float64                `json:"confidence"`
	Rationale  string                 `json:"rationale,omitempty"`
}

// Classifier suggests a checklist item status from free text.
type Classifier interface {
	Classify(ctx context.Context, itemLabel, dictation string) (Suggestion, error)
}
