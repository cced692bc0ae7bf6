package sqlstore

import (
	"context"
	"database/sql"

	"github.com/bryanwahyu/inspection-sync/internal/domain/notices"
)

type NoticeRepository struct{ conn }

func (r *NoticeRepository) Save(ctx context.Context, n *notices.Notice) error {
	q := `
INSERT INTO notices (id, agency_id, inspection_id, notice_type, status, document_url, created_at)
VALUES (?,?,?,?,?,?,?)
` + r.d.upsert("id", "status", "document_url")
	var url sql.NullString
	if n.DocumentURL != "" {
		url = sql.NullString{String: n.DocumentURL, Valid: true}
	}
	_, err := r.exec(ctx, q, n.ID, n.AgencyID, n.InspectionID, string(n.Type), string(n.Status), url, n.CreatedAt.UTC())
	return err
}

func (r *NoticeRepository) ListByInspection(ctx context.Context, agency, inspectionID string) ([]*notices.Notice, error) {
	const q = `
SELECT id, agency_id, inspection_id, notice_type, status, document_url, created_at
FROM notices WHERE agency_id=? AND inspection_id=? ORDER BY created_at, id`
	rows, err := r.query(ctx, q, agency, inspectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*notices.Notice
	for rows.Next() {
		var n notices.Notice
		var url sql.NullString
		if err := rows.Scan(&n.ID, &n.AgencyID, &n.InspectionID, &n.Type, &n.Status, &url, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.DocumentURL = url.String
		n.CreatedAt = n.CreatedAt.UTC()
		out = append(out, &n)
	}
	return out, rows.Err()
}
