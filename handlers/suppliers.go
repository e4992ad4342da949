package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"license-tracker/apperror"
	"license-tracker/database"
)

type supplierRow struct {
	ID    int64  `json:"id" validate:"gte=0"`
	Name  string `json:"name" validate:"required,max=255"`
	Email string `json:"email" validate:"omitempty,email,max=320"`
	// Licenses is echoed back by GET; links change only through
	// PUT /api/suppliers/{id}/licenses.
	Licenses []map[string]interface{} `json:"licenses,omitempty"`
	ignored
}

type supplierLicenses struct {
	LicenseIDs []int64 `json:"licenseIds" validate:"required,dive,gt=0"`
}

func ListSuppliersHandler(store SupplierStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		suppliers, err := store.List(r.Context())
		if err != nil {
			failWith(w, log, err, "Failed to fetch data from database")
			return
		}
		successResponse(w, "Suppliers retrieved successfully", suppliers)
	}
}

// ImportSuppliersHandler upserts suppliers: rows with an id update that
// supplier, rows without one are created.
func ImportSuppliersHandler(store SupplierStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := decodeRows[supplierRow](w, r, "supplier")
		if err != nil {
			failWith(w, log, err, "Invalid request payload")
			return
		}
		if dup := duplicateID(rows, func(s supplierRow) int64 { return s.ID }); dup != "" {
			failWith(w, log, apperror.Field(dup, "duplicate id"), "Invalid request payload")
			return
		}

		suppliers := make([]database.Supplier, len(rows))
		for i, row := range rows {
			suppliers[i] = database.Supplier{ID: row.ID, Name: row.Name, Email: row.Email}
		}
		if err := store.Upsert(r.Context(), suppliers); err != nil {
			failWith(w, log, err, "Failed to save data to database. Ensure data matches the Supplier model.")
			return
		}
		log.Info("suppliers saved", zap.Int("count", len(suppliers)))
		successResponse(w, "Supplier data saved successfully to database", suppliers)
	}
}

func SetSupplierLicensesHandler(store SupplierStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		body, err := decodeObject[supplierLicenses](w, r)
		if err != nil {
			failWith(w, log, err, "Invalid request payload")
			return
		}
		if err := store.SetLicenses(r.Context(), id, body.LicenseIDs); err != nil {
			failWith(w, log, err, "Failed to link licenses")
			return
		}
		successResponse(w, "Supplier licenses updated successfully", body)
	}
}

func DeleteSupplierHandler(store SupplierStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if err := store.Delete(r.Context(), id); err != nil {
			failWith(w, log, err, "Failed to delete supplier")
			return
		}
		successResponse(w, "Supplier deleted successfully", nil)
	}
}
