package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"license-tracker/database"
)

type rdaRow struct {
	ID        int64  `json:"id" validate:"gte=0"`
	Code      string `json:"code" validate:"required,max=100"`
	Product   string `json:"product" validate:"max=255"`
	Year      int    `json:"year" validate:"gte=1900,lte=9999"`
	Reseller  string `json:"reseller" validate:"max=255"`
	LicenseID *int64 `json:"licenseId" validate:"omitempty,gt=0"`
	ignored
}

func ListRdasHandler(store RdaStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rdas, err := store.List(r.Context())
		if err != nil {
			failWith(w, log, err, "Failed to fetch data from database")
			return
		}
		successResponse(w, "RDAs retrieved successfully", rdas)
	}
}

// ImportRdasHandler replaces every RDA with the posted array. The license
// link is the explicit licenseId; it is never inferred from the product name.
func ImportRdasHandler(store RdaStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := decodeRows[rdaRow](w, r, "RDA")
		if err != nil {
			failWith(w, log, err, "Invalid request payload")
			return
		}

		rdas := make([]database.Rda, len(rows))
		for i, row := range rows {
			rdas[i] = database.Rda{
				Code:      row.Code,
				Product:   row.Product,
				Year:      row.Year,
				Reseller:  row.Reseller,
				LicenseID: row.LicenseID,
			}
		}
		if err := store.ReplaceAll(r.Context(), rdas); err != nil {
			failWith(w, log, err, "Failed to save data to database. Ensure data matches the RDA model.")
			return
		}
		log.Info("rdas imported", zap.Int("count", len(rdas)))
		successResponse(w, "RDA data saved successfully to database", rdas)
	}
}
