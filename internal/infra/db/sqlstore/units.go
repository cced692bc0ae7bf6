package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	domain "github.com/bryanwahyu/inspection-sync/internal/domain/inspections"
)

type UnitRepository struct{ conn }

const unitColumns = `id, agency_id, address, city, zip_code, bedrooms, bathrooms, year_built,
       inspection_frequency, compliance_status, last_inspection_date, updated_at`

// Save inserts the unit or overwrites every mutable column.
func (r *UnitRepository) Save(ctx context.Context, u *domain.Unit) error {
	q := `
INSERT INTO units
(id, agency_id, address, city, zip_code, bedrooms, bathrooms, year_built,
 inspection_frequency, compliance_status, last_inspection_date, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
` + r.d.upsert("id", "address", "city", "zip_code", "bedrooms", "bathrooms", "year_built",
		"inspection_frequency", "compliance_status", "last_inspection_date", "updated_at")

	freq := u.Frequency
	if freq == "" {
		freq = domain.FrequencyAnnual
	}
	_, err := r.exec(ctx, q,
		u.ID, u.AgencyID, stringOrDash(u.Address), u.City, u.ZipCode, u.Bedrooms, u.Bathrooms, u.YearBuilt,
		string(freq), string(u.ComplianceStatus), nullTime(u.LastInspectionDate), u.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("save unit %s: %w", u.ID, err)
	}
	return nil
}

func (r *UnitRepository) Get(ctx context.Context, agency, id string) (*domain.Unit, error) {
	q := `SELECT ` + unitColumns + ` FROM units WHERE agency_id=? AND id=? LIMIT 1`
	u, err := scanUnit(r.row(ctx, q, agency, id))
	if err != nil {
		return nil, notFound(err, "unit", id)
	}
	return u, nil
}

func (r *UnitRepository) ListByAgency(ctx context.Context, agency string) ([]*domain.Unit, error) {
	q := `SELECT ` + unitColumns + ` FROM units WHERE agency_id=? ORDER BY id`
	rows, err := r.query(ctx, q, agency)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUnit(s scanner) (*domain.Unit, error) {
	var u domain.Unit
	var city, zip sql.NullString
	var year sql.NullInt64
	var last sql.NullTime
	if err := s.Scan(
		&u.ID, &u.AgencyID, &u.Address, &city, &zip, &u.Bedrooms, &u.Bathrooms, &year,
		&u.Frequency, &u.ComplianceStatus, &last, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	u.City = city.String
	u.ZipCode = zip.String
	u.YearBuilt = int(year.Int64)
	u.LastInspectionDate = timePtr(last)
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}
