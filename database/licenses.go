package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"license-tracker/apperror"
)

const licenseColumns = `id, manufacturer, product, license_type, license_count, bundle_count,
	borrowable, contract, reseller, reseller_email, expiration_date, supplier_id,
	created_at, updated_at`

// LicenseStore reads and writes the licenses table.
type LicenseStore struct {
	db *sqlx.DB
}

func NewLicenseStore(db *sqlx.DB) *LicenseStore {
	return &LicenseStore{db: db}
}

func (s *LicenseStore) List(ctx context.Context) ([]License, error) {
	licenses := []License{}
	query := `SELECT ` + licenseColumns + ` FROM licenses ORDER BY id ASC`
	if err := s.db.SelectContext(ctx, &licenses, query); err != nil {
		return nil, fmt.Errorf("list licenses: %w", err)
	}
	return licenses, nil
}

func (s *LicenseStore) Get(ctx context.Context, id int64) (*License, error) {
	var l License
	query := `SELECT ` + licenseColumns + ` FROM licenses WHERE id = $1`
	if err := s.db.GetContext(ctx, &l, query, id); err != nil {
		return nil, translate(err, fmt.Sprintf("license %d", id))
	}
	return &l, nil
}

// ListExpiring returns licenses whose expiration date falls in [from, to]
// and whose reseller email contains "@", earliest expiration first.
func (s *LicenseStore) ListExpiring(ctx context.Context, from, to Date) ([]License, error) {
	licenses := []License{}
	query := `SELECT ` + licenseColumns + ` FROM licenses
		WHERE expiration_date IS NOT NULL
		  AND expiration_date >= $1::date
		  AND expiration_date <= $2::date
		  AND reseller_email IS NOT NULL
		  AND strpos(reseller_email, '@') > 0
		ORDER BY expiration_date ASC, id ASC`
	if err := s.db.SelectContext(ctx, &licenses, query, from, to); err != nil {
		return nil, fmt.Errorf("query expiring licenses: %w", err)
	}
	return licenses, nil
}

func (s *LicenseStore) Update(ctx context.Context, l *License) error {
	return translate(updateLicense(ctx, s.db, l), "license")
}

func (s *LicenseStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM licenses WHERE id = $1`, id)
	if err != nil {
		return translate(err, fmt.Sprintf("license %d", id))
	}
	return requireRow(res, fmt.Sprintf("license %d", id))
}

// ReplaceAll makes the table hold exactly the given licenses. Rows carrying an
// id update that license in place so RDA and supplier references survive;
// rows without an id are inserted; every other license is deleted. The whole
// import runs in one transaction.
func (s *LicenseStore) ReplaceAll(ctx context.Context, licenses []License) error {
	keep := make([]int64, 0, len(licenses))
	for _, l := range licenses {
		if l.ID != 0 {
			keep = append(keep, l.ID)
		}
	}

	return withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM licenses WHERE NOT (id = ANY($1))`, pq.Array(keep)); err != nil {
			return translate(err, "delete licenses")
		}
		for i := range licenses {
			l := &licenses[i]
			var err error
			if l.ID != 0 {
				err = updateLicense(ctx, tx, l)
			} else {
				err = insertLicense(ctx, tx, l)
			}
			if err != nil {
				return translate(err, fmt.Sprintf("rows[%d]", i))
			}
		}
		return nil
	})
}

func insertLicense(ctx context.Context, q sqlx.QueryerContext, l *License) error {
	query := `INSERT INTO licenses
		(manufacturer, product, license_type, license_count, bundle_count, borrowable,
		 contract, reseller, reseller_email, expiration_date, supplier_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`
	row := q.QueryRowxContext(ctx, query,
		l.Manufacturer, l.Product, l.LicenseType, l.LicenseCount, l.BundleCount, l.Borrowable,
		l.Contract, l.Reseller, l.ResellerEmail, l.ExpirationDate, l.SupplierID)
	return row.Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
}

func updateLicense(ctx context.Context, q sqlx.QueryerContext, l *License) error {
	query := `UPDATE licenses SET
		manufacturer = $1, product = $2, license_type = $3, license_count = $4,
		bundle_count = $5, borrowable = $6, contract = $7, reseller = $8,
		reseller_email = $9, expiration_date = $10, supplier_id = $11, updated_at = NOW()
		WHERE id = $12
		RETURNING created_at, updated_at`
	row := q.QueryRowxContext(ctx, query,
		l.Manufacturer, l.Product, l.LicenseType, l.LicenseCount, l.BundleCount, l.Borrowable,
		l.Contract, l.Reseller, l.ResellerEmail, l.ExpirationDate, l.SupplierID, l.ID)
	err := row.Scan(&l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NewNotFound("license %d", l.ID)
	}
	return err
}
