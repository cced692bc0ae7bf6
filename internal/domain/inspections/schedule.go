package inspections

import "time"

// ScheduleStatus of a calendar commitment.
type ScheduleStatus string

const (
	ScheduleScheduled  ScheduleStatus = "scheduled"
	ScheduleInProgress ScheduleStatus = "in_progress"
	ScheduleCompleted  ScheduleStatus = "completed"
	ScheduleCancelled  ScheduleStatus = "cancelled"
)

func (s ScheduleStatus) Valid() bool {
	switch s {
	case ScheduleScheduled, ScheduleInProgress, ScheduleCompleted, ScheduleCancelled:
		return true
	}
	return false
}

// Schedule is one calendar commitment tied to an inspection.
type Schedule struct {
	ID           string         `json:"id"`
	AgencyID     string         `json:"agency_id"`
	InspectionID string         `json:"inspection_id"`
	InspectorID  *string        `json:"inspector_id,omitempty"`
	Date         time.Time      `json:"date"`
	Time         string         `json:"time,omitempty"`
	Status       ScheduleStatus `json:"status"`
	Notes        string         `json:"notes,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}
