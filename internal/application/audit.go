package application

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/inspection-sync/internal/domain/audit"
	"github.com/bryanwahyu/inspection-sync/internal/domain/store"
)

// AppendAudit records one mutation inside the caller's transaction.
func AppendAudit(ctx context.Context, tx store.Repos, agency, actor, action, entityType, entityID string, before, after any, at time.Time) error {
	e := &audit.Entry{
		ID:         uuid.NewString(),
		AgencyID:   agency,
		ActorID:    actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		CreatedAt:  at,
	}
	var err error
	if before != nil {
		if e.Before, err = json.Marshal(before); err != nil {
			return fmt.Errorf("encode audit before: %w", err)
		}
	}
	if after != nil {
		if e.After, err = json.Marshal(after); err != nil {
			return fmt.Errorf("encode audit after: %w", err)
		}
	}
	if err := tx.Audit().Append(ctx, e); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}
