package sqlstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/inspection-sync/internal/domain/errs"
	domain "github.com/bryanwahyu/inspection-sync/internal/domain/inspections"
	"github.com/bryanwahyu/inspection-sync/internal/domain/store"
)

func newMock(t *testing.T, d Dialect) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, d, nil), mock
}

func TestRebind(t *testing.T) {
	q := `SELECT * FROM t WHERE a=? AND b='?' AND c=?`
	assert.Equal(t, q, MySQL.rebind(q))
	assert.Equal(t, `SELECT * FROM t WHERE a=$1 AND b='?' AND c=$2`, Postgres.rebind(q))
}

func TestUpsert(t *testing.T) {
	assert.Equal(t, "ON DUPLICATE KEY UPDATE name=VALUES(name), active=VALUES(active)", MySQL.upsert("id", "name", "active"))
	assert.Equal(t, "ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, active=EXCLUDED.active", Postgres.upsert("id", "name", "active"))
}

func TestParseDialect(t *testing.T) {
	d, ok := ParseDialect("PostgreSQL")
	assert.True(t, ok)
	assert.Equal(t, Postgres, d)

	_, ok = ParseDialect("sqlite")
	assert.False(t, ok)
}

var unitCols = []string{"id", "agency_id", "address", "city", "zip_code", "bedrooms", "bathrooms", "year_built",
	"inspection_frequency", "compliance_status", "last_inspection_date", "updated_at"}

func TestUnitGet(t *testing.T) {
	s, mock := newMock(t, MySQL)
	last := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	updated := time.Date(2025, 1, 16, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .* FROM units WHERE agency_id=\? AND id=\? LIMIT 1`).
		WithArgs("agency-1", "unit-1").
		WillReturnRows(sqlmock.NewRows(unitCols).
			AddRow("unit-1", "agency-1", "1 Main St", nil, "94110", 2, 1.5, 1962, "Biennial", "Compliant", last, updated))

	u, err := s.Units().Get(context.Background(), "agency-1", "unit-1")
	require.NoError(t, err)
	assert.Equal(t, "", u.City)
	assert.Equal(t, "94110", u.ZipCode)
	assert.Equal(t, 1962, u.YearBuilt)
	assert.Equal(t, domain.FrequencyBiennial, u.Frequency)
	require.NotNil(t, u.LastInspectionDate)
	assert.True(t, last.Equal(*u.LastInspectionDate))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnitGet_NotFound(t *testing.T) {
	s, mock := newMock(t, Postgres)

	mock.ExpectQuery(`SELECT .* FROM units WHERE agency_id=\$1 AND id=\$2 LIMIT 1`).
		WithArgs("agency-1", "missing").
		WillReturnRows(sqlmock.NewRows(unitCols))

	_, err := s.Units().Get(context.Background(), "agency-1", "missing")
	assert.True(t, errs.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInspectionUpdate_NoRowsIsNotFound(t *testing.T) {
	s, mock := newMock(t, MySQL)

	mock.ExpectExec(`UPDATE inspections SET`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Inspections().Update(context.Background(), &domain.Inspection{ID: "gone", AgencyID: "agency-1", Type: domain.TypeAnnual, Status: domain.StatusPending})
	assert.True(t, errs.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_BeginFailure(t *testing.T) {
	s, mock := newMock(t, MySQL)
	mock.ExpectBegin().WillReturnError(errors.New("bad connection"))

	called := false
	err := s.WithTx(context.Background(), func(store.Repos) error {
		called = true
		return nil
	})
	assert.True(t, errs.IsTransaction(err))
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_CommitFailure(t *testing.T) {
	s, mock := newMock(t, MySQL)
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("lost connection"))

	err := s.WithTx(context.Background(), func(store.Repos) error { return nil })
	assert.True(t, errs.IsTransaction(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_FnErrorRollsBack(t *testing.T) {
	s, mock := newMock(t, MySQL)
	mock.ExpectBegin()
	mock.ExpectRollback()

	want := errs.Invalid("x", "bad")
	err := s.WithTx(context.Background(), func(store.Repos) error { return want })
	assert.Same(t, want, err)
	assert.False(t, errs.IsTransaction(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeficiencyReplace_InTx(t *testing.T) {
	s, mock := newMock(t, Postgres)
	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	ds := []domain.Deficiency{
		{ID: "d1", AgencyID: "agency-1", InspectionID: "insp-1", ItemID: "sink", SectionID: "kitchen", Status: domain.DeficiencyOpen, DueDate: at, CreatedAt: at},
		{ID: "d2", AgencyID: "agency-1", InspectionID: "insp-1", ItemID: "stove", SectionID: "kitchen", Status: domain.DeficiencyOpen, DueDate: at, CreatedAt: at, Photos: []string{"p.jpg"}},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM deficiencies WHERE agency_id=\$1 AND inspection_id=\$2`).
		WithArgs("agency-1", "insp-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`INSERT INTO deficiencies`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO deficiencies`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.WithTx(context.Background(), func(tx store.Repos) error {
		return tx.Deficiencies().Replace(context.Background(), "agency-1", "insp-1", ds)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncRecordPrune(t *testing.T) {
	s, mock := newMock(t, MySQL)
	before := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(`DELETE FROM sync_records WHERE created_at < \?`).
		WithArgs(before).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := s.SyncRecords().Prune(context.Background(), before)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInspectorSave_Upsert(t *testing.T) {
	s, mock := newMock(t, MySQL)
	mock.ExpectExec(`INSERT INTO inspectors .* ON DUPLICATE KEY UPDATE name=VALUES\(name\), active=VALUES\(active\)`).
		WithArgs("insp-1", "agency-1", "Ann", true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.InspectorRoster().Save(context.Background(), &domain.Inspector{ID: "insp-1", AgencyID: "agency-1", Name: "Ann", Active: true})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchema(t *testing.T) {
	for _, d := range []Dialect{MySQL, Postgres} {
		stmts, err := Schema(d)
		require.NoError(t, err)
		require.NotEmpty(t, stmts)
		assert.Contains(t, stmts[0], "CREATE TABLE IF NOT EXISTS units")
		for _, s := range stmts {
			assert.NotContains(t, s, ";")
		}
	}
}

func TestMigrate(t *testing.T) {
	s, mock := newMock(t, MySQL)
	stmts, err := Schema(MySQL)
	require.NoError(t, err)
	for range stmts {
		mock.ExpectExec(`CREATE`).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
