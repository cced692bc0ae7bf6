package sqlstore

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/bryanwahyu/inspection-sync/internal/domain/audit"
	"github.com/bryanwahyu/inspection-sync/internal/domain/errs"
	"github.com/bryanwahyu/inspection-sync/internal/domain/inspections"
	"github.com/bryanwahyu/inspection-sync/internal/domain/notices"
	"github.com/bryanwahyu/inspection-sync/internal/domain/store"
	"github.com/bryanwahyu/inspection-sync/internal/domain/syncs"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type conn struct {
	q querier
	d Dialect
}

func (c conn) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return c.q.ExecContext(ctx, c.d.rebind(q), args...)
}

func (c conn) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return c.q.QueryContext(ctx, c.d.rebind(q), args...)
}

func (c conn) row(ctx context.Context, q string, args ...any) *sql.Row {
	return c.q.QueryRowContext(ctx, c.d.rebind(q), args...)
}

func (c conn) Units() inspections.UnitRepository { return &UnitRepository{c} }
func (c conn) Inspections() inspections.InspectionRepository { return &InspectionRepository{c} }
func (c conn) Deficiencies() inspections.DeficiencyRepository {
	return &DeficiencyRepository{c}
}
func (c conn) Schedules() inspections.ScheduleRepository { return &ScheduleRepository{c} }
func (c conn) Inspectors() inspections.InspectorRepository { return &InspectorRepository{c} }
func (c conn) Audit() audit.Repository { return &AuditRepository{c} }
func (c conn) AppliedChanges() syncs.AppliedChangeRepository {
	return &AppliedChangeRepository{c}
}

// Store is the SQL-backed source of truth shared by the MySQL and Postgres drivers.
type Store struct {
	conn
	db  *sql.DB
	log *zap.Logger
}

var _ store.Store = (*Store)(nil)

func New(db *sql.DB, d Dialect, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{conn: conn{q: db, d: d}, db: db, log: log}
}

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Dialect() Dialect { return s.d }

func (s *Store) SyncRecords() syncs.Repository { return &SyncRecordRepository{s.conn} }

func (s *Store) Notices() notices.Repository { return &NoticeRepository{s.conn} }

// InspectorRoster exposes roster writes, which the Repos port leaves out.
func (s *Store) InspectorRoster() *InspectorRepository { return &InspectorRepository{s.conn} }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// WithTx runs fn in a transaction. Failing to begin or commit is reported as
// a TransactionError; an error from fn is returned unchanged after rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Repos) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Tx("begin", err)
	}
	if err := fn(conn{q: tx, d: s.d}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			s.log.Warn("rollback failed", zap.Error(rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return errs.Tx("commit", err)
	}
	return nil
}
