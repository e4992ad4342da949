package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"license-tracker/apperror"
	"license-tracker/database"
)

type requestRow struct {
	ID        int64   `json:"id" validate:"gte=0"`
	Requester string  `json:"requester" validate:"required,max=255"`
	Product   string  `json:"product" validate:"required,max=255"`
	Quantity  int     `json:"quantity" validate:"gte=0"`
	Budget    float64 `json:"budget" validate:"gte=0"`
	Year      int     `json:"year" validate:"gte=1900,lte=9999"`
	ignored
}

func ListRequestsHandler(store RequestStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requests, err := store.List(r.Context())
		if err != nil {
			failWith(w, log, err, "Failed to fetch data from database")
			return
		}
		successResponse(w, "Requests retrieved successfully", requests)
	}
}

// SaveRequestsHandler creates rows without an id and updates rows with one.
func SaveRequestsHandler(store RequestStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := decodeRows[requestRow](w, r, "Request")
		if err != nil {
			failWith(w, log, err, "Invalid request payload")
			return
		}
		if dup := duplicateID(rows, func(q requestRow) int64 { return q.ID }); dup != "" {
			failWith(w, log, apperror.Field(dup, "duplicate id"), "Invalid request payload")
			return
		}

		requests := make([]database.PurchaseRequest, len(rows))
		for i, row := range rows {
			requests[i] = database.PurchaseRequest{
				ID:        row.ID,
				Requester: row.Requester,
				Product:   row.Product,
				Quantity:  row.Quantity,
				Budget:    row.Budget,
				Year:      row.Year,
			}
		}
		if err := store.Save(r.Context(), requests); err != nil {
			failWith(w, log, err, "Failed to save data to database. Ensure data matches the Request model.")
			return
		}
		log.Info("requests saved", zap.Int("count", len(requests)))
		successResponse(w, "Request data saved successfully to database", requests)
	}
}
