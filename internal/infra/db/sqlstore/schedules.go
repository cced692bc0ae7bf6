package sqlstore

import (
	"context"
	"database/sql"

	domain "github.com/bryanwahyu/inspection-sync/internal/domain/inspections"
)

type ScheduleRepository struct{ conn }

const scheduleColumns = `id, agency_id, inspection_id, inspector_id, scheduled_on, scheduled_time, status, notes, created_at, updated_at`

func (r *ScheduleRepository) Get(ctx context.Context, agency, id string) (*domain.Schedule, error) {
	q := `SELECT ` + scheduleColumns + ` FROM schedules WHERE agency_id=? AND id=? LIMIT 1`
	s, err := scanSchedule(r.row(ctx, q, agency, id))
	if err != nil {
		return nil, notFound(err, "schedule", id)
	}
	return s, nil
}

func (r *ScheduleRepository) LatestForInspection(ctx context.Context, agency, inspectionID string) (*domain.Schedule, error) {
	q := `SELECT ` + scheduleColumns + ` FROM schedules
WHERE agency_id=? AND inspection_id=? ORDER BY created_at DESC, id DESC LIMIT 1`
	s, err := scanSchedule(r.row(ctx, q, agency, inspectionID))
	if err != nil {
		return nil, notFound(err, "schedule", "inspection "+inspectionID)
	}
	return s, nil
}

func (r *ScheduleRepository) Insert(ctx context.Context, s *domain.Schedule) error {
	const q = `
INSERT INTO schedules
(id, agency_id, inspection_id, inspector_id, scheduled_on, scheduled_time, status, notes, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?)`
	_, err := r.exec(ctx, q,
		s.ID, s.AgencyID, s.InspectionID, nullString(s.InspectorID), s.Date.UTC(), s.Time,
		string(s.Status), s.Notes, s.CreatedAt.UTC(), s.UpdatedAt.UTC(),
	)
	return err
}

func (r *ScheduleRepository) Update(ctx context.Context, s *domain.Schedule) error {
	const q = `
UPDATE schedules SET
 inspector_id=?, scheduled_on=?, scheduled_time=?, status=?, notes=?, updated_at=?
WHERE agency_id=? AND id=?`
	res, err := r.exec(ctx, q,
		nullString(s.InspectorID), s.Date.UTC(), s.Time, string(s.Status), s.Notes, s.UpdatedAt.UTC(),
		s.AgencyID, s.ID,
	)
	if err != nil {
		return err
	}
	return affected(res, "schedule", s.ID)
}

func (r *ScheduleRepository) Delete(ctx context.Context, agency, id string) error {
	res, err := r.exec(ctx, `DELETE FROM schedules WHERE agency_id=? AND id=?`, agency, id)
	if err != nil {
		return err
	}
	return affected(res, "schedule", id)
}

func scanSchedule(sc scanner) (*domain.Schedule, error) {
	var s domain.Schedule
	var inspector, tm, notes sql.NullString
	if err := sc.Scan(
		&s.ID, &s.AgencyID, &s.InspectionID, &inspector, &s.Date, &tm, &s.Status, &notes, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	s.InspectorID = strPtr(inspector)
	s.Time = tm.String
	s.Notes = notes.String
	s.Date = s.Date.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return &s, nil
}
