package inspections

import (
	"context"
	"time"
)

// UnitRepository persists units. Every call is scoped by agency; a unit of
// another agency is reported as not found.
type UnitRepository interface {
	Get(ctx context.Context, agency, id string) (*Unit, error)
	Save(ctx context.Context, u *Unit) error
	ListByAgency(ctx context.Context, agency string) ([]*Unit, error)
}

// Routable is an unassigned inspection joined with its unit's zip code.
type Routable struct {
	InspectionID  string
	UnitID        string
	ScheduledDate time.Time
	ZipCode       string
}

type InspectionRepository interface {
	Get(ctx context.Context, agency, id string) (*Inspection, error)
	Insert(ctx context.Context, in *Inspection) error
	Update(ctx context.Context, in *Inspection) error
	// ListUnassigned returns pending inspections with no inspector whose
	// scheduled date falls in [start, end], ordered by date then id.
	ListUnassigned(ctx context.Context, agency string, start, end time.Time) ([]Routable, error)
	Assign(ctx context.Context, agency, id, inspectorID string, at time.Time) error
}

type DeficiencyRepository interface {
	Get(ctx context.Context, agency, id string) (*Deficiency, error)
	Update(ctx context.Context, d *Deficiency) error
	// Replace deletes every deficiency of the inspection and inserts ds.
	Replace(ctx context.Context, agency, inspectionID string, ds []Deficiency) error
	Insert(ctx context.Context, d *Deficiency) error
	ListByInspection(ctx context.Context, agency, inspectionID string) ([]*Deficiency, error)
	List(ctx context.Context, agency string, status DeficiencyStatus) ([]*Deficiency, error)
}

type ScheduleRepository interface {
	Get(ctx context.Context, agency, id string) (*Schedule, error)
	Insert(ctx context.Context, s *Schedule) error
	Update(ctx context.Context, s *Schedule) error
	Delete(ctx context.Context, agency, id string) error
	// LatestForInspection returns the most recent schedule of an inspection.
	LatestForInspection(ctx context.Context, agency, inspectionID string) (*Schedule, error)
}

type InspectorRepository interface {
	// ListActive returns active inspectors ordered by name then id.
	ListActive(ctx context.Context, agency string) ([]*Inspector, error)
}
