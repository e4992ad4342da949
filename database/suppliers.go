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

// SupplierStore reads and writes suppliers and their license links.
type SupplierStore struct {
	db *sqlx.DB
}

func NewSupplierStore(db *sqlx.DB) *SupplierStore {
	return &SupplierStore{db: db}
}

// List returns every supplier with the licenses linked to it through
// licenses.supplier_id.
func (s *SupplierStore) List(ctx context.Context) ([]Supplier, error) {
	suppliers := []Supplier{}
	if err := s.db.SelectContext(ctx, &suppliers,
		`SELECT id, name, email, created_at, updated_at FROM suppliers ORDER BY id ASC`); err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}

	var linked []License
	if err := s.db.SelectContext(ctx, &linked,
		`SELECT `+licenseColumns+` FROM licenses WHERE supplier_id IS NOT NULL ORDER BY id ASC`); err != nil {
		return nil, fmt.Errorf("list supplier licenses: %w", err)
	}

	bySupplier := make(map[int64][]License, len(suppliers))
	for _, l := range linked {
		bySupplier[*l.SupplierID] = append(bySupplier[*l.SupplierID], l)
	}
	for i := range suppliers {
		suppliers[i].Licenses = bySupplier[suppliers[i].ID]
		if suppliers[i].Licenses == nil {
			suppliers[i].Licenses = []License{}
		}
	}
	return suppliers, nil
}

// Upsert inserts suppliers without an id and updates the others, in one
// transaction. Saved ids and timestamps are written back into the slice.
func (s *SupplierStore) Upsert(ctx context.Context, suppliers []Supplier) error {
	return withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		for i := range suppliers {
			sp := &suppliers[i]
			var err error
			if sp.ID == 0 {
				err = tx.QueryRowxContext(ctx,
					`INSERT INTO suppliers (name, email) VALUES ($1, $2)
					 RETURNING id, created_at, updated_at`,
					sp.Name, sp.Email).Scan(&sp.ID, &sp.CreatedAt, &sp.UpdatedAt)
			} else {
				err = tx.QueryRowxContext(ctx,
					`UPDATE suppliers SET name = $1, email = $2, updated_at = NOW()
					 WHERE id = $3 RETURNING created_at, updated_at`,
					sp.Name, sp.Email, sp.ID).Scan(&sp.CreatedAt, &sp.UpdatedAt)
				if errors.Is(err, sql.ErrNoRows) {
					return apperror.NewNotFound("supplier %d", sp.ID)
				}
			}
			if err != nil {
				return translate(err, fmt.Sprintf("rows[%d].name", i))
			}
		}
		return nil
	})
}

// SetLicenses makes licenseIDs the exact set of licenses linked to the supplier.
func (s *SupplierStore) SetLicenses(ctx context.Context, supplierID int64, licenseIDs []int64) error {
	unique := dedupe(licenseIDs)

	return withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var exists bool
		if err := tx.GetContext(ctx, &exists,
			`SELECT EXISTS (SELECT 1 FROM suppliers WHERE id = $1)`, supplierID); err != nil {
			return fmt.Errorf("check supplier: %w", err)
		}
		if !exists {
			return apperror.NewNotFound("supplier %d", supplierID)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE licenses SET supplier_id = NULL, updated_at = NOW() WHERE supplier_id = $1`,
			supplierID); err != nil {
			return fmt.Errorf("unlink licenses: %w", err)
		}
		if len(unique) == 0 {
			return nil
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE licenses SET supplier_id = $1, updated_at = NOW() WHERE id = ANY($2)`,
			supplierID, pq.Array(unique))
		if err != nil {
			return fmt.Errorf("link licenses: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if int(n) != len(unique) {
			return apperror.Field("licenseIds", "contains ids that do not exist")
		}
		return nil
	})
}

// Delete removes a supplier; its licenses keep existing with no supplier.
func (s *SupplierStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	if err != nil {
		return translate(err, fmt.Sprintf("supplier %d", id))
	}
	return requireRow(res, fmt.Sprintf("supplier %d", id))
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
