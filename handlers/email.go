package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"license-tracker/database"
)

const (
	defaultLogLimit = 50
	todayLogLimit   = 5
	maxLogLimit     = 500
)

// GetLogsHandler lists delivery attempts for ?date=YYYY-MM-DD, or today.
func GetLogsHandler(store EmailLogStore, limiter MailLimiter, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day := limiter.Today()
		limit := todayLogLimit
		if v := r.URL.Query().Get("date"); v != "" {
			parsed, err := database.ParseDate(v)
			if err != nil {
				errorResponse(w, "Invalid date format. Use YYYY-MM-DD.", http.StatusBadRequest)
				return
			}
			day = parsed
			limit = defaultLogLimit
		}
		if v := r.URL.Query().Get("limit"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
				limit = min(parsed, maxLogLimit)
			}
		}

		logs, err := store.ListForDay(r.Context(), day, limit)
		if err != nil {
			failWith(w, log, err, "Internal server error fetching logs")
			return
		}
		successResponse(w, "Email logs retrieved successfully", logs)
	}
}

func GetDailyLimitHandler(limiter MailLimiter, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := limiter.Status(r.Context())
		if err != nil {
			failWith(w, log, err, "Internal server error getting daily limit")
			return
		}
		successResponse(w, "Daily mail limit status retrieved", status)
	}
}

func GetEmailStatsHandler(store EmailLogStore, limiter MailLimiter, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := store.StatusDistribution(r.Context(), limiter.Today())
		if err != nil {
			failWith(w, log, err, "Internal server error fetching email stats")
			return
		}
		successResponse(w, "Email status distribution retrieved", counts)
	}
}

func GetDailySendsHandler(store EmailLogStore, limiter MailLimiter, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days := 7
		if v := r.URL.Query().Get("days"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
				days = min(parsed, 366)
			}
		}
		sends, err := store.DailySends(r.Context(), limiter.Today(), days)
		if err != nil {
			failWith(w, log, err, "Internal server error fetching daily sends")
			return
		}
		successResponse(w, "Daily sends over period retrieved", sends)
	}
}
