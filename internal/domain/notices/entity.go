package notices

import "time"

// Type of notice requested from the document collaborator.
type Type string

const (
	TypeScheduleNotice Type = "Schedule_Notice"
	TypeFailureNotice  Type = "Failure_Notice"
	TypeReminder       Type = "Reminder"
)

func (t Type) Valid() bool {
	return t == TypeScheduleNotice || t == TypeFailureNotice || t == TypeReminder
}

// Status of a persisted notice. Delivery happens outside this service.
type Status string

const (
	StatusPending Status = "Pending"
	StatusSent    Status = "Sent"
)

type Notice struct {
	ID           string    `json:"id"`
	AgencyID     string    `json:"agency_id"`
	InspectionID string    `json:"inspection_id"`
	Type         Type      `json:"type"`
	Status       Status    `json:"status"`
	DocumentURL  string    `json:"document_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
