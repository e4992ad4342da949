package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"license-tracker/apperror"
)

// APIResponse struct for consistent JSON responses
type APIResponse struct {
	Message string            `json:"message"`
	Status  string            `json:"status"` // e.g., "success", "error"
	Data    interface{}       `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// respondWithJSON sends a JSON response
func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		zap.L().Error("error marshalling JSON response", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(response)
}

// errorResponse sends an error JSON response
func errorResponse(w http.ResponseWriter, message string, statusCode int) {
	respondWithJSON(w, statusCode, APIResponse{
		Message: message,
		Status:  "error",
	})
}

// successResponse sends a success JSON response
func successResponse(w http.ResponseWriter, message string, data interface{}) {
	respondWithJSON(w, http.StatusOK, APIResponse{
		Message: message,
		Status:  "success",
		Data:    data,
	})
}

// failWith maps an error onto a status code. Unexpected errors are logged and
// reported with fallback so driver details never reach the client.
func failWith(w http.ResponseWriter, log *zap.Logger, err error, fallback string) {
	var verr *apperror.ValidationError
	switch {
	case errors.As(err, &verr):
		respondWithJSON(w, http.StatusBadRequest, APIResponse{
			Message: "Invalid data. See errors for details.",
			Status:  "error",
			Errors:  verr.Fields,
		})
	case apperror.IsNotFound(err):
		errorResponse(w, err.Error(), http.StatusNotFound)
	case apperror.IsConflict(err):
		errorResponse(w, "Failed to save data. "+err.Error(), http.StatusConflict)
	default:
		log.Error(fallback, zap.Error(err))
		errorResponse(w, fallback, http.StatusInternalServerError)
	}
}
