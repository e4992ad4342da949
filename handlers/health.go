package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		successResponse(w, "ok", nil)
	}
}

// ReadinessHandler runs every check and fails with 503 if any of them does.
func ReadinessHandler(checks map[string]Check, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		failed := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				log.Warn("readiness check failed", zap.String("check", name), zap.Error(err))
				failed[name] = err.Error()
			}
		}
		if len(failed) > 0 {
			respondWithJSON(w, http.StatusServiceUnavailable, APIResponse{
				Message: "not ready",
				Status:  "error",
				Errors:  failed,
			})
			return
		}
		successResponse(w, "ready", nil)
	}
}
