package database

import (
	"strings"
	"time"
)

// License represents a row in the licenses table
type License struct {
	ID             int64     `db:"id" json:"id"`
	Manufacturer   string    `db:"manufacturer" json:"manufacturer"`
	Product        string    `db:"product" json:"product"`
	LicenseType    string    `db:"license_type" json:"licenseType"`
	LicenseCount   int       `db:"license_count" json:"licenseCount"`
	BundleCount    int       `db:"bundle_count" json:"bundleCount"`
	Borrowable     bool      `db:"borrowable" json:"borrowable"`
	Contract       string    `db:"contract" json:"contract"`
	Reseller       string    `db:"reseller" json:"reseller"`
	ResellerEmail  *string   `db:"reseller_email" json:"resellerEmail"`
	ExpirationDate *Date     `db:"expiration_date" json:"expirationDate"`
	SupplierID     *int64    `db:"supplier_id" json:"supplierId"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// Contactable reports whether the reseller email can receive a notice.
// Only the presence of "@" is checked.
func (l License) Contactable() bool {
	return l.ResellerEmail != nil && strings.Contains(*l.ResellerEmail, "@")
}

// Supplier represents a row in the suppliers table. Licenses is filled by
// SupplierStore.List from licenses.supplier_id.
type Supplier struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	Licenses  []License `db:"-" json:"licenses"`
}

// Rda is a purchase-request (RDA) reference tied to a product, reseller and year.
type Rda struct {
	ID        int64     `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	Product   string    `db:"product" json:"product"`
	Year      int       `db:"year" json:"year"`
	Reseller  string    `db:"reseller" json:"reseller"`
	LicenseID *int64    `db:"license_id" json:"licenseId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// PurchaseRequest is a budget request for a product.
type PurchaseRequest struct {
	ID        int64     `db:"id" json:"id"`
	Requester string    `db:"requester" json:"requester"`
	Product   string    `db:"product" json:"product"`
	Quantity  int       `db:"quantity" json:"quantity"`
	Budget    float64   `db:"budget" json:"budget"`
	Year      int       `db:"year" json:"year"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// EmailLog represents a row in the email_logs table
type EmailLog struct {
	ID             int64     `db:"id" json:"id"`
	SentTo         string    `db:"sent_to" json:"sent_to"`
	Subject        string    `db:"subject" json:"subject"`
	BodyPreview    string    `db:"body_preview" json:"body_preview"`
	Status         string    `db:"status" json:"status"` // "Success", "Failed"
	Error          *string   `db:"error" json:"error,omitempty"`
	LicenseID      *int64    `db:"license_id" json:"license_id,omitempty"`
	SentAt         time.Time `db:"sent_at" json:"sent_at"`
	RecipientCount int       `db:"recipient_count" json:"recipient_count"`
}

const (
	EmailStatusSuccess = "Success"
	EmailStatusFailed  = "Failed"
)
