package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"license-tracker/services"
)

// ScanTrigger starts an expiration scan or joins the running one.
type ScanTrigger interface {
	Run(ctx context.Context, trigger string) (*services.ScanReport, error)
}

type notifyResponse struct {
	Message string               `json:"message"`
	Details *services.ScanReport `json:"details,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// NotifyExpirationsHandler runs the expiration scan synchronously and returns
// its report. Authorization is checked by middleware.BearerSecret.
func NotifyExpirationsHandler(trigger ScanTrigger, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := trigger.Run(r.Context(), "http")
		switch {
		case errors.Is(err, services.ErrScanInProgress):
			respondWithJSON(w, http.StatusConflict, notifyResponse{Message: "Expiration check already running"})
			return
		case err != nil:
			log.Error("failed to run expiration notification flow", zap.Error(err))
			respondWithJSON(w, http.StatusInternalServerError, notifyResponse{
				Message: "Failed to run expiration check",
				Error:   err.Error(),
			})
			return
		}

		respondWithJSON(w, http.StatusOK, notifyResponse{
			Message: fmt.Sprintf("Processing complete. Generated %d notification(s). Check server logs for details.",
				len(report.SentEmails)),
			Details: report,
		})
	}
}
