package inspections

import (
	"time"
)

// Frequency is how often a unit must be re-inspected.
type Frequency string

const (
	FrequencyAnnual    Frequency = "Annual"
	FrequencyBiennial  Frequency = "Biennial"
	FrequencyTriennial Frequency = "Triennial"
)

// Interval returns the number of years between inspections.
// Unknown values are treated as annual.
func (f Frequency) Interval() int {
	switch f {
	case FrequencyBiennial:
		return 2
	case FrequencyTriennial:
		return 3
	default:
		return 1
	}
}

// ComplianceStatus reflects the most recent inspection outcome for a unit.
type ComplianceStatus string

const (
	ComplianceCompliant    ComplianceStatus = "Compliant"
	ComplianceNonCompliant ComplianceStatus = "Non-Compliant"
	ComplianceAbatement    ComplianceStatus = "Abatement"
)

// Unit is a physical dwelling owned by an agency.
type Unit struct {
	ID                 string           `json:"id"`
	AgencyID           string           `json:"agency_id"`
	Address            string           `json:"address"`
	City               string           `json:"city,omitempty"`
	ZipCode            string           `json:"zip_code,omitempty"`
	Bedrooms           int              `json:"bedrooms"`
	Bathrooms          float64          `json:"bathrooms"`
	YearBuilt          int              `json:"year_built,omitempty"`
	Frequency          Frequency        `json:"inspection_frequency"`
	ComplianceStatus   ComplianceStatus `json:"compliance_status"`
	LastInspectionDate *time.Time       `json:"last_inspection_date,omitempty"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// Type of an inspection instance.
type Type string

const (
	TypeInitial      Type = "Initial"
	TypeAnnual       Type = "Annual"
	TypeReinspection Type = "Reinspection"
	TypeSpecial      Type = "Special"
)

func (t Type) Valid() bool {
	switch t {
	case TypeInitial, TypeAnnual, TypeReinspection, TypeSpecial:
		return true
	}
	return false
}

// Status of an inspection. draft -> pending -> complete, cancelled from any
// non-terminal state. no_entry closes an attempt where the inspector could
// not get in; scheduled marks a follow-up that already has a date and inspector.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusScheduled Status = "scheduled"
	StatusComplete  Status = "complete"
	StatusCancelled Status = "cancelled"
	StatusNoEntry   Status = "no_entry"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusScheduled, StatusComplete, StatusCancelled, StatusNoEntry:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusCancelled || s == StatusNoEntry
}

var transitions = map[Status][]Status{
	StatusDraft:     {StatusPending, StatusCancelled},
	StatusPending:   {StatusComplete, StatusNoEntry, StatusCancelled},
	StatusScheduled: {StatusPending, StatusComplete, StatusNoEntry, StatusCancelled},
}

// CanTransition reports whether an inspection in s may move to to. Staying
// in the same status is always allowed.
func (s Status) CanTransition(to Status) bool {
	if s == to {
		return true
	}
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// SchedulerOwned reports whether only the scheduler may move an inspection
// into s. Devices never set these directly.
func (s Status) SchedulerOwned() bool {
	return s == StatusScheduled || s == StatusNoEntry
}

// Inspection is one inspection instance of a unit.
type Inspection struct {
	ID                   string     `json:"id"`
	AgencyID             string     `json:"agency_id"`
	UnitID               string     `json:"unit_id"`
	InspectorID          *string    `json:"inspector_id,omitempty"`
	Type                 Type       `json:"inspection_type"`
	Status               Status     `json:"status"`
	ScheduledDate        *time.Time `json:"scheduled_date,omitempty"`
	Checklist            Checklist  `json:"checklist"`
	ReinspectionDeadline *time.Time `json:"reinspection_deadline,omitempty"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
	ParentID             *string    `json:"parent_id,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// Inspector is a field inspector that can be auto-routed work.
type Inspector struct {
	ID       string `json:"id"`
	AgencyID string `json:"agency_id"`
	Name     string `json:"name"`
	Active   bool   `json:"active"`
}

// Result of a completed inspection visit.
type Result string

const (
	ResultPass    Result = "Pass"
	ResultFail    Result = "Fail"
	ResultNoEntry Result = "No Entry"
)

func (r Result) Valid() bool {
	return r == ResultPass || r == ResultFail || r == ResultNoEntry
}
