package handlers

import (
	"context"

	"license-tracker/database"
	"license-tracker/utils"
)

type LicenseStore interface {
	List(ctx context.Context) ([]database.License, error)
	Get(ctx context.Context, id int64) (*database.License, error)
	Update(ctx context.Context, l *database.License) error
	Delete(ctx context.Context, id int64) error
	ReplaceAll(ctx context.Context, licenses []database.License) error
	ListExpiring(ctx context.Context, from, to database.Date) ([]database.License, error)
}

type SupplierStore interface {
	List(ctx context.Context) ([]database.Supplier, error)
	Upsert(ctx context.Context, suppliers []database.Supplier) error
	SetLicenses(ctx context.Context, supplierID int64, licenseIDs []int64) error
	Delete(ctx context.Context, id int64) error
}

type RdaStore interface {
	List(ctx context.Context) ([]database.Rda, error)
	ReplaceAll(ctx context.Context, rdas []database.Rda) error
}

type RequestStore interface {
	List(ctx context.Context) ([]database.PurchaseRequest, error)
	Save(ctx context.Context, requests []database.PurchaseRequest) error
}

type EmailLogStore interface {
	ListForDay(ctx context.Context, day database.Date, limit int) ([]database.EmailLog, error)
	StatusDistribution(ctx context.Context, day database.Date) (map[string]int, error)
	DailySends(ctx context.Context, today database.Date, days int) (map[string]int, error)
}

// MailLimiter reports today's usage of the mail cap.
type MailLimiter interface {
	Today() database.Date
	Status(ctx context.Context) (utils.LimitStatus, error)
}
