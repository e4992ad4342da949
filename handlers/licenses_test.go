package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"license-tracker/apperror"
	"license-tracker/database"
)

func TestImportLicenses(t *testing.T) {
	env := newTestEnv(t, nil, "")

	rec := env.do(http.MethodPost, "/api/licenses", `[
		{"id": 3, "product": "Widget Pro", "reseller": "Acme", "resellerEmail": "ops@acme.test",
		 "expirationDate": "2026-11-19", "licenseCount": 10, "createdAt": "2026-01-01T00:00:00Z"},
		{"product": "Gadget", "expirationDate": null}
	]`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Len(t, env.licenses.replaced, 2)
	first := env.licenses.replaced[0]
	assert.Equal(t, int64(3), first.ID)
	assert.Equal(t, "ops@acme.test", *first.ResellerEmail)
	assert.Equal(t, "2026-11-19", first.ExpirationDate.String())
	assert.Nil(t, env.licenses.replaced[1].ExpirationDate)
	assert.Equal(t, "success", decodeAPI(t, rec).Status)
}

func TestImportLicensesValidation(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"not json", `[{`, "body"},
		{"not an array", `{"product": "x"}`, "body"},
		{"missing product", `[{"reseller": "Acme"}]`, "rows[0].product"},
		{"wrong type", `[{"product": "x"}, {"product": "y", "licenseCount": "ten"}]`, "rows[1].licenseCount"},
		{"unknown field", `[{"product": "x", "colour": "red"}]`, "rows[0].colour"},
		{"bad date", `[{"product": "x", "expirationDate": "19/11/2026"}]`, "rows[0]"},
		{"negative count", `[{"product": "x", "bundleCount": -1}]`, "rows[0].bundleCount"},
		{"duplicate id", `[{"id": 1, "product": "x"}, {"id": 1, "product": "y"}]`, "rows[1].id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil, "")
			rec := env.do(http.MethodPost, "/api/licenses", tt.body)

			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			resp := decodeAPI(t, rec)
			assert.Equal(t, "error", resp.Status)
			assert.Contains(t, resp.Errors, tt.field)
			assert.Nil(t, env.licenses.replaced)
		})
	}
}

func TestImportLicensesUnknownID(t *testing.T) {
	env := newTestEnv(t, nil, "")
	env.licenses.err = apperror.NewNotFound("license %d", 99)

	rec := env.do(http.MethodPost, "/api/licenses", `[{"id": 99, "product": "x"}]`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestImportLicensesStoreFailureHidesDetails(t *testing.T) {
	env := newTestEnv(t, nil, "")
	env.licenses.err = errors.New("pq: password authentication failed")

	rec := env.do(http.MethodPost, "/api/licenses", `[{"product": "x"}]`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeAPI(t, rec)
	assert.Equal(t, "Failed to save data to database", resp.Message)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestGetLicense(t *testing.T) {
	env := newTestEnv(t, nil, "")
	env.licenses.licenses = []database.License{{ID: 5, Product: "Widget"}}

	rec := env.do(http.MethodGet, "/api/licenses/5", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/api/licenses/6", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateLicense(t *testing.T) {
	env := newTestEnv(t, nil, "")

	rec := env.do(http.MethodPut, "/api/licenses/5", `{"product": "Widget", "expirationDate": "2027-01-01"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, env.licenses.updated)
	assert.Equal(t, int64(5), env.licenses.updated.ID)

	rec = env.do(http.MethodPut, "/api/licenses/5", `{"id": 6, "product": "Widget"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteLicenseNotFound(t *testing.T) {
	env := newTestEnv(t, nil, "")
	rec := env.do(http.MethodDelete, "/api/licenses/42", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExpiringLicenses(t *testing.T) {
	env := newTestEnv(t, nil, "")
	soon := database.DateOf(timeNowUTC()).AddDays(10)
	env.licenses.licenses = []database.License{
		{ID: 1, Product: "A", ResellerEmail: strPtr("a@x.test"), ExpirationDate: &soon},
		{ID: 2, Product: "B", ResellerEmail: strPtr("nobody"), ExpirationDate: &soon},
	}

	rec := env.do(http.MethodGet, "/api/licenses/expiring", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := decodeAPI(t, rec).Data.(map[string]interface{})
	assert.Len(t, data["licenses"], 1)

	rec = env.do(http.MethodGet, "/api/licenses/expiring?months=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
