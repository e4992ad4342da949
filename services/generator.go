package services

import (
	"context"

	"license-tracker/database"
)

// NotificationInput is what a generator needs to know about one license.
type NotificationInput struct {
	LicenseID      int64
	Product        string
	ExpirationDate string // YYYY-MM-DD, or "N/A" when the license has none
	Reseller       string
	ResellerEmail  string
}

// Content is a rendered notice. Body is HTML.
type Content struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ContentGenerator renders the expiration notice for one license.
type ContentGenerator interface {
	Generate(ctx context.Context, in NotificationInput) (Content, error)
}

func NewNotificationInput(l database.License) NotificationInput {
	in := NotificationInput{
		LicenseID:      l.ID,
		Product:        l.Product,
		ExpirationDate: "N/A",
		Reseller:       l.Reseller,
	}
	if l.ExpirationDate != nil {
		in.ExpirationDate = l.ExpirationDate.String()
	}
	if l.ResellerEmail != nil {
		in.ResellerEmail = *l.ResellerEmail
	}
	return in
}
