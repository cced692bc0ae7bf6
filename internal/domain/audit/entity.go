package audit

import (
	"encoding/json"
	"time"
)

// Entry is an append-only record of one accepted mutation.
type Entry struct {
	ID         string          `json:"id"`
	AgencyID   string          `json:"agency_id"`
	ActorID    string          `json:"actor_id"`
	Action     string          `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	ChangeID   string          `json:"change_id,omitempty"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
