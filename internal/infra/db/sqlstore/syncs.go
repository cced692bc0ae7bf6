package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bryanwahyu/inspection-sync/internal/domain/syncs"
)

type AppliedChangeRepository struct{ conn }

func (r *AppliedChangeRepository) Get(ctx context.Context, agency, changeID string) (*syncs.AppliedChange, error) {
	const q = `
SELECT agency_id, change_id, sync_id, entity_type, entity_id, applied_at
FROM applied_changes WHERE agency_id=? AND change_id=? LIMIT 1`
	var a syncs.AppliedChange
	err := r.row(ctx, q, agency, changeID).Scan(&a.AgencyID, &a.ChangeID, &a.SyncID, &a.EntityType, &a.EntityID, &a.AppliedAt)
	if err != nil {
		return nil, notFound(err, "applied change", changeID)
	}
	a.AppliedAt = a.AppliedAt.UTC()
	return &a, nil
}

func (r *AppliedChangeRepository) Record(ctx context.Context, a *syncs.AppliedChange) error {
	const q = `
INSERT INTO applied_changes (agency_id, change_id, sync_id, entity_type, entity_id, applied_at)
VALUES (?,?,?,?,?,?)`
	_, err := r.exec(ctx, q, a.AgencyID, a.ChangeID, a.SyncID, string(a.EntityType), a.EntityID, a.AppliedAt.UTC())
	return err
}

type SyncRecordRepository struct{ conn }

func (r *SyncRecordRepository) Create(ctx context.Context, rec *syncs.Record) error {
	const q = `
INSERT INTO sync_records
(id, agency_id, device_id, user_id, changes_json, client_timestamp, status, errors_json, processed, created_at, finished_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`
	changes, err := json.Marshal(rec.Changes)
	if err != nil {
		return fmt.Errorf("encode changes: %w", err)
	}
	var client sql.NullTime
	if !rec.ClientTimestamp.IsZero() {
		client = sql.NullTime{Time: rec.ClientTimestamp.UTC(), Valid: true}
	}
	_, err = r.exec(ctx, q,
		rec.ID, rec.AgencyID, rec.DeviceID, stringOrDash(rec.UserID), string(changes), client,
		string(rec.Status), nil, rec.Processed, rec.CreatedAt.UTC(), nullTime(rec.FinishedAt),
	)
	return err
}

func (r *SyncRecordRepository) Finish(ctx context.Context, rec *syncs.Record) error {
	const q = `
UPDATE sync_records SET status=?, errors_json=?, processed=?, finished_at=?
WHERE agency_id=? AND id=?`
	var errorsJSON any
	if len(rec.Errors) > 0 {
		b, err := json.Marshal(rec.Errors)
		if err != nil {
			return fmt.Errorf("encode errors: %w", err)
		}
		errorsJSON = string(b)
	}
	res, err := r.exec(ctx, q, string(rec.Status), errorsJSON, rec.Processed, nullTime(rec.FinishedAt), rec.AgencyID, rec.ID)
	if err != nil {
		return err
	}
	return affected(res, "sync record", rec.ID)
}

func (r *SyncRecordRepository) Get(ctx context.Context, agency, id string) (*syncs.Record, error) {
	const q = `
SELECT id, agency_id, device_id, user_id, changes_json, client_timestamp, status, errors_json, processed, created_at, finished_at
FROM sync_records WHERE agency_id=? AND id=? LIMIT 1`
	var rec syncs.Record
	var changes, errorsJSON []byte
	var client, finished sql.NullTime
	err := r.row(ctx, q, agency, id).Scan(
		&rec.ID, &rec.AgencyID, &rec.DeviceID, &rec.UserID, &changes, &client,
		&rec.Status, &errorsJSON, &rec.Processed, &rec.CreatedAt, &finished,
	)
	if err != nil {
		return nil, notFound(err, "sync record", id)
	}
	if len(changes) > 0 {
		if err := json.Unmarshal(changes, &rec.Changes); err != nil {
			return nil, fmt.Errorf("decode changes of %s: %w", id, err)
		}
	}
	if len(errorsJSON) > 0 {
		if err := json.Unmarshal(errorsJSON, &rec.Errors); err != nil {
			return nil, fmt.Errorf("decode errors of %s: %w", id, err)
		}
	}
	if client.Valid {
		rec.ClientTimestamp = client.Time.UTC()
	}
	rec.FinishedAt = timePtr(finished)
	rec.CreatedAt = rec.CreatedAt.UTC()
	return &rec, nil
}

func (r *SyncRecordRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.exec(ctx, `DELETE FROM sync_records WHERE created_at < ?`, before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
