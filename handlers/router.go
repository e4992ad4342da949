package handlers

import (
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"license-tracker/middleware"
)

// Deps is everything the HTTP surface needs.
type Deps struct {
	Licenses  LicenseStore
	Suppliers SupplierStore
	Rdas      RdaStore
	Requests  RequestStore
	EmailLogs EmailLogStore
	Limiter   MailLimiter
	Scans     ScanTrigger
	Checks    map[string]Check

	CronSecret   string
	WindowMonths int
	ScanLocation *time.Location
	StaticDir    string
	Log          *zap.Logger
}

func NewRouter(d Deps) *mux.Router {
	log := d.Log
	r := mux.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer(log))
	r.Use(middleware.Logger(log))
	r.Use(middleware.Metrics)

	r.HandleFunc("/healthz", LivenessHandler()).Methods(http.MethodGet)
	r.HandleFunc("/readyz", ReadinessHandler(d.Checks, log)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	requireSecret := middleware.BearerSecret(d.CronSecret)
	api.Handle("/notify-expirations", requireSecret(NotifyExpirationsHandler(d.Scans, log))).Methods(http.MethodGet)

	api.HandleFunc("/licenses", ListLicensesHandler(d.Licenses, log)).Methods(http.MethodGet)
	api.HandleFunc("/licenses", ImportLicensesHandler(d.Licenses, log)).Methods(http.MethodPost)
	api.HandleFunc("/licenses/expiring", ExpiringLicensesHandler(d.Licenses, d.WindowMonths, d.ScanLocation, log)).Methods(http.MethodGet)
	api.HandleFunc("/licenses/{id:[0-9]+}", GetLicenseHandler(d.Licenses, log)).Methods(http.MethodGet)
	api.HandleFunc("/licenses/{id:[0-9]+}", UpdateLicenseHandler(d.Licenses, log)).Methods(http.MethodPut)
	api.HandleFunc("/licenses/{id:[0-9]+}", DeleteLicenseHandler(d.Licenses, log)).Methods(http.MethodDelete)

	api.HandleFunc("/suppliers", ListSuppliersHandler(d.Suppliers, log)).Methods(http.MethodGet)
	api.HandleFunc("/suppliers", ImportSuppliersHandler(d.Suppliers, log)).Methods(http.MethodPost)
	api.HandleFunc("/suppliers/{id:[0-9]+}/licenses", SetSupplierLicensesHandler(d.Suppliers, log)).Methods(http.MethodPut)
	api.HandleFunc("/suppliers/{id:[0-9]+}", DeleteSupplierHandler(d.Suppliers, log)).Methods(http.MethodDelete)

	api.HandleFunc("/rdas", ListRdasHandler(d.Rdas, log)).Methods(http.MethodGet)
	api.HandleFunc("/rdas", ImportRdasHandler(d.Rdas, log)).Methods(http.MethodPost)

	api.HandleFunc("/requests", ListRequestsHandler(d.Requests, log)).Methods(http.MethodGet)
	api.HandleFunc("/requests", SaveRequestsHandler(d.Requests, log)).Methods(http.MethodPost)

	api.HandleFunc("/email-logs", GetLogsHandler(d.EmailLogs, d.Limiter, log)).Methods(http.MethodGet)
	api.HandleFunc("/email-limit", GetDailyLimitHandler(d.Limiter, log)).Methods(http.MethodGet)
	api.HandleFunc("/email-stats", GetEmailStatsHandler(d.EmailLogs, d.Limiter, log)).Methods(http.MethodGet)
	api.HandleFunc("/email-daily", GetDailySendsHandler(d.EmailLogs, d.Limiter, log)).Methods(http.MethodGet)

	// Admin UI, when one is deployed next to the binary.
	if d.StaticDir != "" {
		if info, err := os.Stat(d.StaticDir); err == nil && info.IsDir() {
			r.PathPrefix("/").Handler(http.FileServer(http.Dir(d.StaticDir)))
		}
	}
	return r
}
