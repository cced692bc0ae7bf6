package syncs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/inspection-sync/internal/application"
	"github.com/bryanwahyu/inspection-sync/internal/domain/errs"
	"github.com/bryanwahyu/inspection-sync/internal/domain/presence"
	"github.com/bryanwahyu/inspection-sync/internal/domain/store"
	domain "github.com/bryanwahyu/inspection-sync/internal/domain/syncs"
)

// DefaultChangeTimeout bounds the storage work of a single change.
const DefaultChangeTimeout = 10 * time.Second

// Recorder receives batch counters; the HTTP metrics middleware implements it.
type Recorder interface {
	RecordSync(applied, duplicates, conflicts, failed int)
}

// Service applies batches of offline changes against the store.
//
// Each change runs in its own transaction together with its audit entry and
// idempotency-ledger row, so a change is either fully committed or not at
// all. A rejected change never rolls back its siblings. A failure to begin
// or commit a transaction aborts the remainder of the batch.
type Service struct {
	Store         store.Store
	Broadcaster   presence.Broadcaster
	Recorder      Recorder
	Clock         application.Clock
	Log           *zap.Logger
	ChangeTimeout time.Duration
}

// SyncCommand is one batch received from a device.
type SyncCommand struct {
	AgencyID        string
	UserID          string
	DeviceID        string
	ClientTimestamp time.Time
	Changes         []domain.Change
}

// SyncResult is the acknowledgement returned to the device.
type SyncResult struct {
	Success         bool                  `json:"success"`
	SyncID          string                `json:"syncId"`
	Processed       int                   `json:"processed"`
	Errors          []domain.ChangeError  `json:"errors"`
	Conflicts       []domain.Conflict     `json:"conflicts,omitempty"`
	Results         []domain.ChangeResult `json:"results"`
	ServerTimestamp time.Time             `json:"serverTimestamp"`
}

var errDuplicate = errors.New("change already applied")

// Process runs the batch. The returned error is non-nil only when the batch
// was aborted by a storage failure; the client should resubmit the whole
// batch, and changes that did commit are skipped as duplicates.
func (s *Service) Process(ctx context.Context, cmd SyncCommand) (SyncResult, error) {
	log := s.logger().With(
		zap.String("agency_id", cmd.AgencyID),
		zap.String("device_id", cmd.DeviceID),
		zap.Int("changes", len(cmd.Changes)),
	)
	if cmd.AgencyID == "" {
		return SyncResult{}, errs.Invalid("agency", "agency is required")
	}
	if cmd.DeviceID == "" {
		return SyncResult{}, errs.Invalid("deviceId", "device id is required")
	}

	rec := &domain.Record{
		ID:              uuid.NewString(),
		AgencyID:        cmd.AgencyID,
		DeviceID:        cmd.DeviceID,
		UserID:          cmd.UserID,
		Changes:         cmd.Changes,
		ClientTimestamp: cmd.ClientTimestamp,
		Status:          domain.StatusProcessing,
		CreatedAt:       s.Clock.Now(),
	}
	if err := s.Store.SyncRecords().Create(ctx, rec); err != nil {
		return SyncResult{}, errs.Tx("record sync", err)
	}

	res := SyncResult{
		SyncID:  rec.ID,
		Errors:  []domain.ChangeError{},
		Results: make([]domain.ChangeResult, 0, len(cmd.Changes)),
	}
	var applied, duplicates int
	var aborted error

	for i, ch := range cmd.Changes {
		if aborted != nil {
			res.fail(ch.ID, "", "not processed: batch aborted by storage failure")
			continue
		}
		entityID, err := s.applyOne(ctx, cmd, rec.ID, ch)
		switch {
		case err == nil:
			applied++
			res.Processed++
			res.Results = append(res.Results, domain.ChangeResult{ChangeID: ch.ID, Outcome: domain.OutcomeApplied, EntityID: entityID})
		case errors.Is(err, errDuplicate):
			duplicates++
			res.Processed++
			res.Results = append(res.Results, domain.ChangeResult{ChangeID: ch.ID, Outcome: domain.OutcomeDuplicate, EntityID: entityID})
		case errs.IsConflict(err):
			var c *errs.ConflictError
			errors.As(err, &c)
			res.Conflicts = append(res.Conflicts, domain.Conflict{ChangeID: ch.ID, ServerRecord: c.Current})
			res.Errors = append(res.Errors, domain.ChangeError{ChangeID: ch.ID, Error: err.Error()})
			res.Results = append(res.Results, domain.ChangeResult{ChangeID: ch.ID, Outcome: domain.OutcomeConflict, EntityID: c.ID, ServerRecord: c.Current, Error: err.Error()})
			log.Info("sync change conflict", zap.String("change_id", ch.ID), zap.String("entity_id", c.ID))
		case errs.IsTransaction(err):
			aborted = err
			res.fail(ch.ID, "", err.Error())
			log.Error("sync batch aborted", zap.Int("index", i), zap.String("change_id", ch.ID), zap.Error(err))
		default:
			res.fail(ch.ID, errs.Field(err), err.Error())
			log.Warn("sync change rejected", zap.String("change_id", ch.ID), zap.Error(err))
		}
	}

	now := s.Clock.Now()
	rec.Processed = res.Processed
	rec.Errors = res.Errors
	rec.FinishedAt = &now
	rec.Status = domain.StatusCompleted
	if len(res.Errors) > 0 {
		rec.Status = domain.StatusFailed
	}
	if err := s.Store.SyncRecords().Finish(ctx, rec); err != nil {
		log.Error("finalize sync record", zap.String("sync_id", rec.ID), zap.Error(err))
	}

	if s.Recorder != nil {
		s.Recorder.RecordSync(applied, duplicates, len(res.Conflicts), len(res.Errors)-len(res.Conflicts))
	}
	res.ServerTimestamp = now

	if aborted != nil {
		return res, aborted
	}
	res.Success = true

	if applied > 0 {
		s.broadcast(cmd, rec.ID, res.Processed, now)
	}
	log.Info("sync processed",
		zap.String("sync_id", rec.ID),
		zap.Int("applied", applied),
		zap.Int("duplicates", duplicates),
		zap.Int("errors", len(res.Errors)),
	)
	return res, nil
}

func (r *SyncResult) fail(changeID, field, msg string) {
	r.Errors = append(r.Errors, domain.ChangeError{ChangeID: changeID, Field: field, Error: msg})
	r.Results = append(r.Results, domain.ChangeResult{ChangeID: changeID, Outcome: domain.OutcomeError, Error: msg})
}

// applyOne commits a single change with its audit entry and ledger row.
func (s *Service) applyOne(ctx context.Context, cmd SyncCommand, syncID string, ch domain.Change) (string, error) {
	if ch.ID == "" {
		return "", errs.Invalid("id", "change id is required")
	}
	op, err := decode(ch)
	if err != nil {
		return "", err
	}

	timeout := s.ChangeTimeout
	if timeout <= 0 {
		timeout = DefaultChangeTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var entityID string
	err = s.Store.WithTx(cctx, func(tx store.Repos) error {
		prior, err := tx.AppliedChanges().Get(cctx, cmd.AgencyID, ch.ID)
		if err == nil {
			entityID = prior.EntityID
			return errDuplicate
		}
		if !errs.IsNotFound(err) {
			return err
		}

		a := &applier{
			tx:     tx,
			agency: cmd.AgencyID,
			actor:  cmd.UserID,
			change: ch,
			now:    s.Clock.Now(),
		}
		res, err := op.apply(cctx, a)
		if err != nil {
			return err
		}
		entityID = res.entityID

		entry, err := auditEntry(a, op, res)
		if err != nil {
			return fmt.Errorf("encode audit entry: %w", err)
		}
		if err := tx.Audit().Append(cctx, entry); err != nil {
			return fmt.Errorf("append audit entry: %w", err)
		}
		return tx.AppliedChanges().Record(cctx, &domain.AppliedChange{
			AgencyID:   cmd.AgencyID,
			ChangeID:   ch.ID,
			SyncID:     syncID,
			EntityType: op.entity(),
			EntityID:   res.entityID,
			AppliedAt:  a.now,
		})
	})
	if err != nil && errors.Is(err, context.DeadlineExceeded) && !errs.IsTransaction(err) {
		err = &errs.TransactionError{Op: "apply change " + ch.ID, Err: err}
	}
	return entityID, err
}

func (s *Service) broadcast(cmd SyncCommand, syncID string, processed int, at time.Time) {
	if s.Broadcaster == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := s.Broadcaster.Broadcast(ctx, presence.Event{
		Kind:      presence.KindSyncCompleted,
		AgencyID:  cmd.AgencyID,
		ActorID:   cmd.UserID,
		DeviceID:  cmd.DeviceID,
		SyncID:    syncID,
		Processed: processed,
		At:        at,
	})
	if err != nil {
		s.logger().Warn("broadcast sync completed", zap.String("agency_id", cmd.AgencyID), zap.Error(err))
	}
}

// Get returns a stored sync record.
func (s *Service) Get(ctx context.Context, agency, id string) (*domain.Record, error) {
	return s.Store.SyncRecords().Get(ctx, agency, id)
}

// Prune removes sync records older than the retention window.
func (s *Service) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, errs.Invalid("retention", "retention must be positive")
	}
	n, err := s.Store.SyncRecords().Prune(ctx, s.Clock.Now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("prune sync records: %w", err)
	}
	s.logger().Info("pruned sync records", zap.Int64("deleted", n))
	return n, nil
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
