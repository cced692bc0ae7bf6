package syncs

import (
	"context"
	"time"
)

// Repository persists SyncRecords. It is written outside change transactions
// so the record survives a failed change.
type Repository interface {
	Create(ctx context.Context, r *Record) error
	Finish(ctx context.Context, r *Record) error
	Get(ctx context.Context, agency, id string) (*Record, error)
	// Prune deletes records created before the cutoff and returns the count.
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// AppliedChangeRepository is the idempotency ledger keyed by (agency, change id).
type AppliedChangeRepository interface {
	Get(ctx context.Context, agency, changeID string) (*AppliedChange, error)
	Record(ctx context.Context, a *AppliedChange) error
}
