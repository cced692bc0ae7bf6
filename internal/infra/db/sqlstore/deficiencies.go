package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	domain "github.com/bryanwahyu/inspection-sync/internal/domain/inspections"
)

type DeficiencyRepository struct{ conn }

const deficiencyColumns = `id, agency_id, inspection_id, item_id, section_id, description, responsibility,
       is_24hour, status, due_date, resolved_date, photos, created_at`

func (r *DeficiencyRepository) Get(ctx context.Context, agency, id string) (*domain.Deficiency, error) {
	q := `SELECT ` + deficiencyColumns + ` FROM deficiencies WHERE agency_id=? AND id=? LIMIT 1`
	d, err := scanDeficiency(r.row(ctx, q, agency, id))
	if err != nil {
		return nil, notFound(err, "deficiency", id)
	}
	return d, nil
}

func (r *DeficiencyRepository) Insert(ctx context.Context, d *domain.Deficiency) error {
	const q = `
INSERT INTO deficiencies
(id, agency_id, inspection_id, item_id, section_id, description, responsibility,
 is_24hour, status, due_date, resolved_date, photos, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`
	photos, err := encodeList(d.Photos)
	if err != nil {
		return err
	}
	_, err = r.exec(ctx, q,
		d.ID, d.AgencyID, d.InspectionID, d.ItemID, d.SectionID, d.Description, stringOrDash(d.Responsibility),
		d.Is24Hour, string(d.Status), d.DueDate.UTC(), nullTime(d.ResolvedDate), photos, d.CreatedAt.UTC(),
	)
	return err
}

func (r *DeficiencyRepository) Update(ctx context.Context, d *domain.Deficiency) error {
	const q = `
UPDATE deficiencies SET
 description=?, responsibility=?, is_24hour=?, status=?, due_date=?, resolved_date=?, photos=?
WHERE agency_id=? AND id=?`
	photos, err := encodeList(d.Photos)
	if err != nil {
		return err
	}
	res, err := r.exec(ctx, q,
		d.Description, stringOrDash(d.Responsibility), d.Is24Hour, string(d.Status), d.DueDate.UTC(),
		nullTime(d.ResolvedDate), photos, d.AgencyID, d.ID,
	)
	if err != nil {
		return err
	}
	return affected(res, "deficiency", d.ID)
}

// Replace must run inside a transaction to keep the mirror consistent.
func (r *DeficiencyRepository) Replace(ctx context.Context, agency, inspectionID string, ds []domain.Deficiency) error {
	if _, err := r.exec(ctx, `DELETE FROM deficiencies WHERE agency_id=? AND inspection_id=?`, agency, inspectionID); err != nil {
		return fmt.Errorf("clear deficiencies: %w", err)
	}
	for i := range ds {
		if err := r.Insert(ctx, &ds[i]); err != nil {
			return fmt.Errorf("insert deficiency %s: %w", ds[i].ID, err)
		}
	}
	return nil
}

func (r *DeficiencyRepository) ListByInspection(ctx context.Context, agency, inspectionID string) ([]*domain.Deficiency, error) {
	q := `SELECT ` + deficiencyColumns + ` FROM deficiencies WHERE agency_id=? AND inspection_id=? ORDER BY created_at, id`
	return r.list(ctx, q, agency, inspectionID)
}

// List returns the agency ledger; an empty status selects every row.
func (r *DeficiencyRepository) List(ctx context.Context, agency string, status domain.DeficiencyStatus) ([]*domain.Deficiency, error) {
	if status == "" {
		q := `SELECT ` + deficiencyColumns + ` FROM deficiencies WHERE agency_id=? ORDER BY due_date, id`
		return r.list(ctx, q, agency)
	}
	q := `SELECT ` + deficiencyColumns + ` FROM deficiencies WHERE agency_id=? AND status=? ORDER BY due_date, id`
	return r.list(ctx, q, agency, string(status))
}

func (r *DeficiencyRepository) list(ctx context.Context, q string, args ...any) ([]*domain.Deficiency, error) {
	rows, err := r.query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Deficiency
	for rows.Next() {
		d, err := scanDeficiency(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDeficiency(s scanner) (*domain.Deficiency, error) {
	var d domain.Deficiency
	var resolved sql.NullTime
	var photos []byte
	if err := s.Scan(
		&d.ID, &d.AgencyID, &d.InspectionID, &d.ItemID, &d.SectionID, &d.Description, &d.Responsibility,
		&d.Is24Hour, &d.Status, &d.DueDate, &resolved, &photos, &d.CreatedAt,
	); err != nil {
		return nil, err
	}
	list, err := decodeList(photos)
	if err != nil {
		return nil, fmt.Errorf("decode photos of %s: %w", d.ID, err)
	}
	d.Photos = list
	d.ResolvedDate = timePtr(resolved)
	d.DueDate = d.DueDate.UTC()
	d.CreatedAt = d.CreatedAt.UTC()
	return &d, nil
}
