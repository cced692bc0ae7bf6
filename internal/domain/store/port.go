package store

import (
	"context"

	"github.com/bryanwahyu/inspection-sync/internal/domain/audit"
	"github.com/bryanwahyu/inspection-sync/internal/domain/inspections"
	"github.com/bryanwahyu/inspection-sync/internal/domain/notices"
	"github.com/bryanwahyu/inspection-sync/internal/domain/syncs"
)

// Repos is the set of repositories bound to one connection or transaction.
type Repos interface {
	Units() inspections.UnitRepository
	Inspections() inspections.InspectionRepository
	Deficiencies() inspections.DeficiencyRepository
	Schedules() inspections.ScheduleRepository
	Inspectors() inspections.InspectorRepository
	Audit() audit.Repository
	AppliedChanges() syncs.AppliedChangeRepository
}

// Store is the source of truth. Repos used directly run outside any
// transaction; WithTx commits when fn returns nil and rolls back otherwise.
type Store interface {
	Repos
	WithTx(ctx context.Context, fn func(tx Repos) error) error
	SyncRecords() syncs.Repository
	Notices() notices.Repository
	Ping(ctx context.Context) error
}
