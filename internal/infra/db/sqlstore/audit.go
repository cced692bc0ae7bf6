package sqlstore

import (
	"context"
	"database/sql"

	"github.com/bryanwahyu/inspection-sync/internal/domain/audit"
)

type AuditRepository struct{ conn }

func (r *AuditRepository) Append(ctx context.Context, e *audit.Entry) error {
	const q = `
INSERT INTO audit_entries
(id, agency_id, actor_id, action, entity_type, entity_id, change_id, before_json, after_json, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?)`
	var change sql.NullString
	if e.ChangeID != "" {
		change = sql.NullString{String: e.ChangeID, Valid: true}
	}
	_, err := r.exec(ctx, q,
		e.ID, e.AgencyID, stringOrDash(e.ActorID), e.Action, e.EntityType, e.EntityID, change,
		nullJSON(e.Before), nullJSON(e.After), e.CreatedAt.UTC(),
	)
	return err
}

// ListByEntity returns the newest entries first.
func (r *AuditRepository) ListByEntity(ctx context.Context, agency, entityType, entityID string, limit int) ([]*audit.Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	const q = `
SELECT id, agency_id, actor_id, action, entity_type, entity_id, change_id, before_json, after_json, created_at
FROM audit_entries
WHERE agency_id=? AND entity_type=? AND entity_id=?
ORDER BY created_at DESC, id DESC
LIMIT ?`
	rows, err := r.query(ctx, q, agency, entityType, entityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*audit.Entry
	for rows.Next() {
		var e audit.Entry
		var change sql.NullString
		var before, after []byte
		if err := rows.Scan(&e.ID, &e.AgencyID, &e.ActorID, &e.Action, &e.EntityType, &e.EntityID,
			&change, &before, &after, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.ChangeID = change.String
		e.Before = before
		e.After = after
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, &e)
	}
	return out, rows.Err()
}
