package database

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"license-tracker/apperror"
)

var licenseCols = []string{
	"id", "manufacturer", "product", "license_type", "license_count", "bundle_count",
	"borrowable", "contract", "reseller", "reseller_email", "expiration_date", "supplier_id",
	"created_at", "updated_at",
}

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := sqlx.NewDb(raw, "postgres")
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func TestLicenseStoreListExpiring(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewLicenseStore(db)

	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	exp := time.Date(2026, 11, 19, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("AND strpos(reseller_email, '@') > 0")).
		WithArgs("2026-10-19", "2027-02-19").
		WillReturnRows(sqlmock.NewRows(licenseCols).
			AddRow(3, "Acme", "Widget Pro", "subscription", 10, 1, false, "C-9",
				"Acme Corp", "ops@acme.test", exp, nil, now, now))

	got, err := store.ListExpiring(context.Background(), NewDate(2026, 10, 19), NewDate(2027, 2, 19))
	require.NoError(t, err)
	require.Len(t, got, 1)

	l := got[0]
	assert.Equal(t, int64(3), l.ID)
	assert.Equal(t, "Widget Pro", l.Product)
	require.NotNil(t, l.ResellerEmail)
	assert.Equal(t, "ops@acme.test", *l.ResellerEmail)
	require.NotNil(t, l.ExpirationDate)
	assert.Equal(t, "2026-11-19", l.ExpirationDate.String())
	assert.Nil(t, l.SupplierID)
	assert.True(t, l.Contactable())
}

func TestLicenseStoreGetNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewLicenseStore(db)

	mock.ExpectQuery("FROM licenses WHERE id = ").
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows(licenseCols))

	_, err := store.Get(context.Background(), 99)
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestLicenseStoreReplaceAll(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewLicenseStore(db)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM licenses WHERE NOT").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery("UPDATE licenses SET").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectQuery("INSERT INTO licenses").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(12, now, now))
	mock.ExpectCommit()

	licenses := []License{
		{ID: 5, Product: "Kept"},
		{Product: "New"},
	}
	require.NoError(t, store.ReplaceAll(context.Background(), licenses))
	assert.Equal(t, int64(12), licenses[1].ID)
}

func TestLicenseStoreReplaceAllUnknownIDRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewLicenseStore(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM licenses WHERE NOT").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("UPDATE licenses SET").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}))
	mock.ExpectRollback()

	err := store.ReplaceAll(context.Background(), []License{{ID: 404, Product: "Ghost"}})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestLicenseStoreDelete(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewLicenseStore(db)

	mock.ExpectExec("DELETE FROM licenses WHERE id").
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM licenses WHERE id").
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Delete(context.Background(), 1))
	assert.True(t, apperror.IsNotFound(store.Delete(context.Background(), 2)))
}

func TestSupplierStoreSetLicensesRejectsUnknownIDs(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewSupplierStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec("UPDATE licenses SET supplier_id = NULL").
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = ANY($2)")).
		WithArgs(int64(1), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := store.SetLicenses(context.Background(), 1, []int64{3, 4, 3})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestSupplierStoreListGroupsLicenses(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewSupplierStore(db)
	now := time.Now()

	mock.ExpectQuery("FROM suppliers ORDER BY id").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "created_at", "updated_at"}).
			AddRow(1, "Acme Corp", "sales@acme.test", now, now).
			AddRow(2, "Globex", "", now, now))
	mock.ExpectQuery("WHERE supplier_id IS NOT NULL").
		WillReturnRows(sqlmock.NewRows(licenseCols).
			AddRow(7, "", "Widget", "", 1, 0, false, "", "Acme Corp", nil, nil, 1, now, now))

	got, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Len(t, got[0].Licenses, 1)
	assert.Equal(t, int64(7), got[0].Licenses[0].ID)
	assert.NotNil(t, got[1].Licenses)
	assert.Empty(t, got[1].Licenses)
}

func TestRdaStoreReplaceAllMapsDuplicateCode(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewRdaStore(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM rdas").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectQuery("INSERT INTO rdas").
		WillReturnError(&pq.Error{Code: pqUniqueViolation, Constraint: "rdas_code_key"})
	mock.ExpectRollback()

	err := store.ReplaceAll(context.Background(), []Rda{{Code: "R-1", Year: 2026}})
	require.Error(t, err)
	assert.True(t, apperror.IsConflict(err))
}

func TestRequestStoreSave(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewRequestStore(db)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO purchase_requests").
		WithArgs("Ada", "Widget", 3, 1500.5, 2026).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(1, now, now))
	mock.ExpectQuery("UPDATE purchase_requests").
		WithArgs("Bob", "Gadget", 1, 99.0, 2025, int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectCommit()

	reqs := []PurchaseRequest{
		{Requester: "Ada", Product: "Widget", Quantity: 3, Budget: 1500.5, Year: 2026},
		{ID: 8, Requester: "Bob", Product: "Gadget", Quantity: 1, Budget: 99, Year: 2025},
	}
	require.NoError(t, store.Save(context.Background(), reqs))
	assert.Equal(t, int64(1), reqs[0].ID)
}

func TestEmailLogStoreCountForDay(t *testing.T) {
	db, mock := newMockDB(t)
	rome, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)
	store := NewEmailLogStore(db, rome)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(recipient_count), 0) FROM email_logs")).
		WithArgs("Europe/Rome", "2026-10-19").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(42))

	n, err := store.CountForDay(context.Background(), NewDate(2026, 10, 19))
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}

func TestEmailLogStoreDailySendsFillsGaps(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewEmailLogStore(db, nil)

	mock.ExpectQuery("GROUP BY day").
		WithArgs("UTC", "2026-10-17", "2026-10-19").
		WillReturnRows(sqlmock.NewRows([]string{"day", "count"}).
			AddRow(time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC), 4))

	got, err := store.DailySends(context.Background(), NewDate(2026, 10, 19), 3)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"2026-10-17": 0, "2026-10-18": 4, "2026-10-19": 0}, got)
}

func TestTranslate(t *testing.T) {
	assert.Nil(t, translate(nil, "x"))
	assert.True(t, apperror.IsConflict(translate(&pq.Error{Code: pqUniqueViolation}, "rows[0]")))
	assert.True(t, apperror.IsValidation(translate(&pq.Error{Code: pqForeignKeyViolation}, "rows[0].licenseId")))

	plain := errors.New("boom")
	got := translate(plain, "license")
	assert.ErrorIs(t, got, plain)
	assert.False(t, apperror.IsNotFound(got))
}
