package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"license-tracker/apperror"
	"license-tracker/database"
	"license-tracker/services"
)

type licenseRow struct {
	ID             int64          `json:"id" validate:"gte=0"`
	Manufacturer   string         `json:"manufacturer" validate:"max=255"`
	Product        string         `json:"product" validate:"required,max=255"`
	LicenseType    string         `json:"licenseType" validate:"max=255"`
	LicenseCount   int            `json:"licenseCount" validate:"gte=0"`
	BundleCount    int            `json:"bundleCount" validate:"gte=0"`
	Borrowable     bool           `json:"borrowable"`
	Contract       string         `json:"contract" validate:"max=255"`
	Reseller       string         `json:"reseller" validate:"max=255"`
	ResellerEmail  *string        `json:"resellerEmail" validate:"omitempty,max=320"`
	ExpirationDate *database.Date `json:"expirationDate"`
	SupplierID     *int64         `json:"supplierId" validate:"omitempty,gt=0"`
	ignored
}

func (r licenseRow) model() database.License {
	return database.License{
		ID:             r.ID,
		Manufacturer:   r.Manufacturer,
		Product:        r.Product,
		LicenseType:    r.LicenseType,
		LicenseCount:   r.LicenseCount,
		BundleCount:    r.BundleCount,
		Borrowable:     r.Borrowable,
		Contract:       r.Contract,
		Reseller:       r.Reseller,
		ResellerEmail:  r.ResellerEmail,
		ExpirationDate: r.ExpirationDate,
		SupplierID:     r.SupplierID,
	}
}

func ListLicensesHandler(store LicenseStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		licenses, err := store.List(r.Context())
		if err != nil {
			failWith(w, log, err, "Failed to fetch data from database")
			return
		}
		successResponse(w, "Licenses retrieved successfully", licenses)
	}
}

func GetLicenseHandler(store LicenseStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		license, err := store.Get(r.Context(), id)
		if err != nil {
			failWith(w, log, err, "Failed to fetch data from database")
			return
		}
		successResponse(w, "License retrieved successfully", license)
	}
}

// ImportLicensesHandler replaces the license table with the posted array.
func ImportLicensesHandler(store LicenseStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := decodeRows[licenseRow](w, r, "license")
		if err != nil {
			failWith(w, log, err, "Invalid request payload")
			return
		}
		if dup := duplicateID(rows, func(l licenseRow) int64 { return l.ID }); dup != "" {
			failWith(w, log, apperror.Field(dup, "duplicate id"), "Invalid request payload")
			return
		}

		licenses := make([]database.License, len(rows))
		for i, row := range rows {
			licenses[i] = row.model()
		}
		if err := store.ReplaceAll(r.Context(), licenses); err != nil {
			failWith(w, log, err, "Failed to save data to database")
			return
		}
		log.Info("licenses imported", zap.Int("count", len(licenses)))
		successResponse(w, "Data saved successfully to database", licenses)
	}
}

func UpdateLicenseHandler(store LicenseStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		row, err := decodeObject[licenseRow](w, r)
		if err != nil {
			failWith(w, log, err, "Invalid request payload")
			return
		}
		if row.ID != 0 && row.ID != id {
			failWith(w, log, apperror.Field("body.id", "does not match the URL"), "Invalid request payload")
			return
		}

		license := row.model()
		license.ID = id
		if err := store.Update(r.Context(), &license); err != nil {
			failWith(w, log, err, "Failed to save data to database")
			return
		}
		successResponse(w, "License updated successfully", license)
	}
}

func DeleteLicenseHandler(store LicenseStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if err := store.Delete(r.Context(), id); err != nil {
			failWith(w, log, err, "Failed to delete license")
			return
		}
		successResponse(w, "License deleted successfully", nil)
	}
}

// ExpiringLicensesHandler previews the licenses a scan would notify about,
// without generating or sending anything. ?months= overrides the window.
func ExpiringLicensesHandler(store LicenseStore, months int, loc *time.Location, log *zap.Logger) http.HandlerFunc {
	if loc == nil {
		loc = time.UTC
	}
	return func(w http.ResponseWriter, r *http.Request) {
		window := months
		if v := r.URL.Query().Get("months"); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil || parsed < 1 || parsed > 24 {
				errorResponse(w, "months must be an integer between 1 and 24", http.StatusBadRequest)
				return
			}
			window = parsed
		}

		from, to := services.ExpirationWindow(time.Now().In(loc), window)
		candidates, err := store.ListExpiring(r.Context(), from, to)
		if err != nil {
			failWith(w, log, err, "Failed to fetch data from database")
			return
		}
		eligible := make([]database.License, 0, len(candidates))
		for _, l := range candidates {
			if services.IsEligible(l, from, to) {
				eligible = append(eligible, l)
			}
		}
		successResponse(w, "Expiring licenses retrieved successfully", map[string]interface{}{
			"from":     from,
			"to":       to,
			"licenses": eligible,
		})
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		errorResponse(w, "Invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// duplicateID returns the path of the first row repeating an earlier non-zero id.
func duplicateID[T any](rows []T, id func(T) int64) string {
	seen := make(map[int64]bool, len(rows))
	for i, row := range rows {
		v := id(row)
		if v == 0 {
			continue
		}
		if seen[v] {
			return "rows[" + strconv.Itoa(i) + "].id"
		}
		seen[v] = true
	}
	return ""
}
