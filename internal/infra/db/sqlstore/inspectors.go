package sqlstore

import (
	"context"

	domain "github.com/bryanwahyu/inspection-sync/internal/domain/inspections"
)

type InspectorRepository struct{ conn }

func (r *InspectorRepository) ListActive(ctx context.Context, agency string) ([]*domain.Inspector, error) {
	const q = `SELECT id, agency_id, name, active FROM inspectors WHERE agency_id=? AND active=? ORDER BY name, id`
	rows, err := r.query(ctx, q, agency, true)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Inspector
	for rows.Next() {
		var in domain.Inspector
		if err := rows.Scan(&in.ID, &in.AgencyID, &in.Name, &in.Active); err != nil {
			return nil, err
		}
		out = append(out, &in)
	}
	return out, rows.Err()
}

// Save inserts or updates an inspector. Used by seeding and the CLI.
func (r *InspectorRepository) Save(ctx context.Context, in *domain.Inspector) error {
	q := `INSERT INTO inspectors (id, agency_id, name, active) VALUES (?,?,?,?) ` +
		r.d.upsert("id", "name", "active")
	_, err := r.exec(ctx, q, in.ID, in.AgencyID, stringOrDash(in.Name), in.Active)
	return err
}
