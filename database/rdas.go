package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type RdaStore struct {
	db *sqlx.DB
}

func NewRdaStore(db *sqlx.DB) *RdaStore {
	return &RdaStore{db: db}
}

func (s *RdaStore) List(ctx context.Context) ([]Rda, error) {
	rdas := []Rda{}
	if err := s.db.SelectContext(ctx, &rdas,
		`SELECT id, code, product, year, reseller, license_id, created_at FROM rdas ORDER BY id ASC`); err != nil {
		return nil, fmt.Errorf("list rdas: %w", err)
	}
	return rdas, nil
}

// ReplaceAll deletes every RDA and inserts the given ones in one transaction.
func (s *RdaStore) ReplaceAll(ctx context.Context, rdas []Rda) error {
	return withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM rdas`); err != nil {
			return fmt.Errorf("delete rdas: %w", err)
		}
		for i := range rdas {
			r := &rdas[i]
			err := tx.QueryRowxContext(ctx,
				`INSERT INTO rdas (code, product, year, reseller, license_id)
				 VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
				r.Code, r.Product, r.Year, r.Reseller, r.LicenseID).Scan(&r.ID, &r.CreatedAt)
			if err != nil {
				return translate(err, fmt.Sprintf("rows[%d]", i))
			}
		}
		return nil
	})
}
