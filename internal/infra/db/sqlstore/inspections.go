package sqlstore

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/bryanwahyu/inspection-sync/internal/domain/inspections"
)

type InspectionRepository struct{ conn }

const inspectionColumns = `id, agency_id, unit_id, inspector_id, inspection_type, status, scheduled_date,
       checklist, reinspection_deadline, completed_at, parent_id, created_at, updated_at`

func (r *InspectionRepository) Get(ctx context.Context, agency, id string) (*domain.Inspection, error) {
	q := `SELECT ` + inspectionColumns + ` FROM inspections WHERE agency_id=? AND id=? LIMIT 1`
	var in domain.Inspection
	var inspector, parent sql.NullString
	var scheduled, deadline, completed sql.NullTime
	err := r.row(ctx, q, agency, id).Scan(
		&in.ID, &in.AgencyID, &in.UnitID, &inspector, &in.Type, &in.Status, &scheduled,
		&in.Checklist, &deadline, &completed, &parent, &in.CreatedAt, &in.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err, "inspection", id)
	}
	in.InspectorID = strPtr(inspector)
	in.ParentID = strPtr(parent)
	in.ScheduledDate = timePtr(scheduled)
	in.ReinspectionDeadline = timePtr(deadline)
	in.CompletedAt = timePtr(completed)
	in.CreatedAt = in.CreatedAt.UTC()
	in.UpdatedAt = in.UpdatedAt.UTC()
	return &in, nil
}

func (r *InspectionRepository) Insert(ctx context.Context, in *domain.Inspection) error {
	const q = `
INSERT INTO inspections
(id, agency_id, unit_id, inspector_id, inspection_type, status, scheduled_date,
 checklist, reinspection_deadline, completed_at, parent_id, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`
	_, err := r.exec(ctx, q,
		in.ID, in.AgencyID, in.UnitID, nullString(in.InspectorID), string(in.Type), string(in.Status),
		nullTime(in.ScheduledDate), in.Checklist, nullTime(in.ReinspectionDeadline), nullTime(in.CompletedAt),
		nullString(in.ParentID), in.CreatedAt.UTC(), in.UpdatedAt.UTC(),
	)
	return err
}

func (r *InspectionRepository) Update(ctx context.Context, in *domain.Inspection) error {
	const q = `
UPDATE inspections SET
 inspector_id=?, inspection_type=?, status=?, scheduled_date=?, checklist=?,
 reinspection_deadline=?, completed_at=?, parent_id=?, updated_at=?
WHERE agency_id=? AND id=?`
	res, err := r.exec(ctx, q,
		nullString(in.InspectorID), string(in.Type), string(in.Status), nullTime(in.ScheduledDate), in.Checklist,
		nullTime(in.ReinspectionDeadline), nullTime(in.CompletedAt), nullString(in.ParentID), in.UpdatedAt.UTC(),
		in.AgencyID, in.ID,
	)
	if err != nil {
		return err
	}
	return affected(res, "inspection", in.ID)
}

func (r *InspectionRepository) ListUnassigned(ctx context.Context, agency string, start, end time.Time) ([]domain.Routable, error) {
	const q = `
SELECT i.id, i.unit_id, i.scheduled_date, COALESCE(u.zip_code, '')
FROM inspections i
JOIN units u ON u.id = i.unit_id AND u.agency_id = i.agency_id
WHERE i.agency_id=? AND i.status='pending' AND i.inspector_id IS NULL
  AND i.scheduled_date >= ? AND i.scheduled_date <= ?
ORDER BY i.scheduled_date, i.id`
	rows, err := r.query(ctx, q, agency, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Routable
	for rows.Next() {
		var it domain.Routable
		if err := rows.Scan(&it.InspectionID, &it.UnitID, &it.ScheduledDate, &it.ZipCode); err != nil {
			return nil, err
		}
		it.ScheduledDate = it.ScheduledDate.UTC()
		out = append(out, it)
	}
	return out, rows.Err()
}

// Assign sets the inspector; the inspection stays pending.
func (r *InspectionRepository) Assign(ctx context.Context, agency, id, inspectorID string, at time.Time) error {
	const q = `UPDATE inspections SET inspector_id=?, updated_at=? WHERE agency_id=? AND id=?`
	res, err := r.exec(ctx, q, inspectorID, at.UTC(), agency, id)
	if err != nil {
		return err
	}
	return affected(res, "inspection", id)
}
