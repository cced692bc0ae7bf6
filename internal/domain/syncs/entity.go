package syncs

import (
	"encoding/json"
	"time"
)

// EntityType is the declared target of a client change.
type EntityType string

const (
	EntityInspection EntityType = "inspection"
	EntitySchedule   EntityType = "schedule"
	EntityDeficiency EntityType = "deficiency"
)

// Action is what the client did to the entity while offline.
type Action string

const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionResolve Action = "resolve"
)

// Change is one offline mutation as sent by a device.
type Change struct {
	ID        string          `json:"id"`
	Type      EntityType      `json:"type"`
	Action    Action          `json:"action"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// Status of a SyncRecord.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// ChangeError reports a change that was not applied.
type ChangeError struct {
	ChangeID string `json:"changeId"`
	Field    string `json:"field,omitempty"`
	Error    string `json:"error"`
}

// Record is one received batch from one device, kept for audit and replay.
type Record struct {
	ID              string        `json:"id"`
	AgencyID        string        `json:"agency_id"`
	DeviceID        string        `json:"device_id"`
	UserID          string        `json:"user_id"`
	Changes         []Change      `json:"changes"`
	ClientTimestamp time.Time     `json:"client_timestamp"`
	Status          Status        `json:"status"`
	Errors          []ChangeError `json:"errors,omitempty"`
	Processed       int           `json:"processed"`
	CreatedAt       time.Time     `json:"created_at"`
	FinishedAt      *time.Time    `json:"finished_at,omitempty"`
}

// Outcome of one change within a batch.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeConflict  Outcome = "conflict"
	OutcomeError     Outcome = "error"
)

// ChangeResult is reported for every submitted change, in submission order.
type ChangeResult struct {
	ChangeID     string  `json:"changeId"`
	Outcome      Outcome `json:"outcome"`
	EntityID     string  `json:"entityId,omitempty"`
	ServerRecord any     `json:"serverRecord,omitempty"`
	Error        string  `json:"error,omitempty"`
}

// Conflict carries the winning server record for a stale change.
type Conflict struct {
	ChangeID     string `json:"changeId"`
	ServerRecord any    `json:"serverRecord"`
}

// AppliedChange is the idempotency ledger entry of a committed change.
type AppliedChange struct {
	AgencyID   string     `json:"agency_id"`
	ChangeID   string     `json:"change_id"`
	SyncID     string     `json:"sync_id"`
	EntityType EntityType `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	AppliedAt  time.Time  `json:"applied_at"`
}
