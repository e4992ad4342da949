package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"license-tracker/apperror"
	"license-tracker/database"
	"license-tracker/services"
	"license-tracker/utils"
)

type fakeLicenses struct {
	licenses []database.License
	replaced []database.License
	updated  *database.License
	err      error
}

func (f *fakeLicenses) List(context.Context) ([]database.License, error) { return f.licenses, f.err }

func (f *fakeLicenses) Get(_ context.Context, id int64) (*database.License, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, l := range f.licenses {
		if l.ID == id {
			return &l, nil
		}
	}
	return nil, apperror.NewNotFound("license %d", id)
}

func (f *fakeLicenses) Update(_ context.Context, l *database.License) error {
	f.updated = l
	return f.err
}

func (f *fakeLicenses) Delete(_ context.Context, id int64) error {
	if f.err != nil {
		return f.err
	}
	return apperror.NewNotFound("license %d", id)
}

func (f *fakeLicenses) ReplaceAll(_ context.Context, ls []database.License) error {
	f.replaced = ls
	return f.err
}

func (f *fakeLicenses) ListExpiring(context.Context, database.Date, database.Date) ([]database.License, error) {
	return f.licenses, f.err
}

type fakeSuppliers struct {
	saved    []database.Supplier
	linkedTo int64
	linked   []int64
	err      error
}

func (f *fakeSuppliers) List(context.Context) ([]database.Supplier, error) { return f.saved, f.err }

func (f *fakeSuppliers) Upsert(_ context.Context, s []database.Supplier) error {
	f.saved = s
	return f.err
}

func (f *fakeSuppliers) SetLicenses(_ context.Context, id int64, ids []int64) error {
	f.linkedTo, f.linked = id, ids
	return f.err
}

func (f *fakeSuppliers) Delete(context.Context, int64) error { return f.err }

type fakeRdas struct {
	replaced []database.Rda
	err      error
}

func (f *fakeRdas) List(context.Context) ([]database.Rda, error) { return f.replaced, f.err }

func (f *fakeRdas) ReplaceAll(_ context.Context, r []database.Rda) error {
	f.replaced = r
	return f.err
}

type fakeRequests struct {
	saved []database.PurchaseRequest
	err   error
}

func (f *fakeRequests) List(context.Context) ([]database.PurchaseRequest, error) { return f.saved, f.err }

func (f *fakeRequests) Save(_ context.Context, r []database.PurchaseRequest) error {
	f.saved = r
	return f.err
}

type fakeEmailLogs struct {
	day   database.Date
	limit int
	logs  []database.EmailLog
}

func (f *fakeEmailLogs) ListForDay(_ context.Context, day database.Date, limit int) ([]database.EmailLog, error) {
	f.day, f.limit = day, limit
	return f.logs, nil
}

func (f *fakeEmailLogs) StatusDistribution(context.Context, database.Date) (map[string]int, error) {
	return map[string]int{database.EmailStatusSuccess: 3, database.EmailStatusFailed: 1}, nil
}

func (f *fakeEmailLogs) DailySends(_ context.Context, today database.Date, days int) (map[string]int, error) {
	out := map[string]int{}
	for i := 0; i < days; i++ {
		out[today.AddDays(-i).String()] = 0
	}
	return out, nil
}

type fakeLimiter struct {
	today  database.Date
	status utils.LimitStatus
}

func (f fakeLimiter) Today() database.Date { return f.today }

func (f fakeLimiter) Status(context.Context) (utils.LimitStatus, error) { return f.status, nil }

type triggerFunc func(ctx context.Context, trigger string) (*services.ScanReport, error)

func (f triggerFunc) Run(ctx context.Context, trigger string) (*services.ScanReport, error) {
	return f(ctx, trigger)
}

type testEnv struct {
	licenses  *fakeLicenses
	suppliers *fakeSuppliers
	rdas      *fakeRdas
	requests  *fakeRequests
	emailLogs *fakeEmailLogs
	router    http.Handler
}

func newTestEnv(t *testing.T, trigger ScanTrigger, secret string) *testEnv {
	t.Helper()
	env := &testEnv{
		licenses:  &fakeLicenses{},
		suppliers: &fakeSuppliers{},
		rdas:      &fakeRdas{},
		requests:  &fakeRequests{},
		emailLogs: &fakeEmailLogs{},
	}
	env.router = NewRouter(Deps{
		Licenses:     env.licenses,
		Suppliers:    env.suppliers,
		Rdas:         env.rdas,
		Requests:     env.requests,
		EmailLogs:    env.emailLogs,
		Limiter:      fakeLimiter{today: database.NewDate(2026, 10, 19), status: utils.LimitStatus{CurrentCount: 4, Limit: 10, Remaining: 6}},
		Scans:        trigger,
		CronSecret:   secret,
		WindowMonths: 4,
		Log:          zap.NewNop(),
	})
	return env
}

func (e *testEnv) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeAPI(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func strPtr(s string) *string { return &s }

func timeNowUTC() time.Time { return time.Now().UTC() }
