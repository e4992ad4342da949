package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"license-tracker/apperror"
)

type RequestStore struct {
	db *sqlx.DB
}

func NewRequestStore(db *sqlx.DB) *RequestStore {
	return &RequestStore{db: db}
}

func (s *RequestStore) List(ctx context.Context) ([]PurchaseRequest, error) {
	requests := []PurchaseRequest{}
	if err := s.db.SelectContext(ctx, &requests,
		`SELECT id, requester, product, quantity, budget, year, created_at, updated_at
		 FROM purchase_requests ORDER BY id ASC`); err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return requests, nil
}

// Save inserts requests without an id and updates the rest. An unknown id
// rolls back the whole batch.
func (s *RequestStore) Save(ctx context.Context, requests []PurchaseRequest) error {
	return withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		for i := range requests {
			r := &requests[i]
			if r.ID == 0 {
				err := tx.QueryRowxContext(ctx,
					`INSERT INTO purchase_requests (requester, product, quantity, budget, year)
					 VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at`,
					r.Requester, r.Product, r.Quantity, r.Budget, r.Year).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
				if err != nil {
					return translate(err, fmt.Sprintf("rows[%d]", i))
				}
				continue
			}

			err := tx.QueryRowxContext(ctx,
				`UPDATE purchase_requests
				 SET requester = $1, product = $2, quantity = $3, budget = $4, year = $5, updated_at = NOW()
				 WHERE id = $6 RETURNING created_at, updated_at`,
				r.Requester, r.Product, r.Quantity, r.Budget, r.Year, r.ID).Scan(&r.CreatedAt, &r.UpdatedAt)
			if errors.Is(err, sql.ErrNoRows) {
				return apperror.NewNotFound("request %d", r.ID)
			}
			if err != nil {
				return translate(err, fmt.Sprintf("rows[%d]", i))
			}
		}
		return nil
	})
}
