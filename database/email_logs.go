package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// EmailLogStore records delivery attempts and answers the per-day aggregates
// the daily mail cap and the dashboard endpoints need. Days are bucketed in
// the location the store was built with.
type EmailLogStore struct {
	db  *sqlx.DB
	loc *time.Location
}

func NewEmailLogStore(db *sqlx.DB, loc *time.Location) *EmailLogStore {
	if loc == nil {
		loc = time.UTC
	}
	return &EmailLogStore{db: db, loc: loc}
}

// Location is the timezone days are bucketed in.
func (s *EmailLogStore) Location() *time.Location {
	return s.loc
}

func (s *EmailLogStore) Insert(ctx context.Context, entry *EmailLog) error {
	if entry.SentAt.IsZero() {
		entry.SentAt = time.Now()
	}
	if entry.RecipientCount == 0 {
		entry.RecipientCount = 1
	}
	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO email_logs (sent_to, subject, body_preview, status, error, license_id, sent_at, recipient_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		entry.SentTo, entry.Subject, entry.BodyPreview, entry.Status, entry.Error,
		entry.LicenseID, entry.SentAt, entry.RecipientCount).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("insert email log: %w", err)
	}
	return nil
}

// ListForDay returns the newest attempts of the given day.
func (s *EmailLogStore) ListForDay(ctx context.Context, day Date, limit int) ([]EmailLog, error) {
	logs := []EmailLog{}
	query := `SELECT id, sent_to, subject, body_preview, status, error, license_id, sent_at, recipient_count
		FROM email_logs
		WHERE (sent_at AT TIME ZONE $1)::date = $2::date
		ORDER BY sent_at DESC
		LIMIT $3`
	if err := s.db.SelectContext(ctx, &logs, query, s.loc.String(), day, limit); err != nil {
		return nil, fmt.Errorf("failed to list email logs: %w", err)
	}
	return logs, nil
}

// CountForDay sums the recipients of every attempt on the given day.
func (s *EmailLogStore) CountForDay(ctx context.Context, day Date) (int, error) {
	var count int
	query := `SELECT COALESCE(SUM(recipient_count), 0) FROM email_logs
		WHERE (sent_at AT TIME ZONE $1)::date = $2::date`
	if err := s.db.GetContext(ctx, &count, query, s.loc.String(), day); err != nil {
		return 0, fmt.Errorf("failed to get daily mail count: %w", err)
	}
	return count, nil
}

// StatusDistribution returns recipient counts per status for the given day.
// Both Success and Failed are always present.
func (s *EmailLogStore) StatusDistribution(ctx context.Context, day Date) (map[string]int, error) {
	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	query := `SELECT status, COALESCE(SUM(recipient_count), 0) AS count FROM email_logs
		WHERE (sent_at AT TIME ZONE $1)::date = $2::date
		GROUP BY status`
	if err := s.db.SelectContext(ctx, &rows, query, s.loc.String(), day); err != nil {
		return nil, fmt.Errorf("failed to get email status distribution: %w", err)
	}

	counts := map[string]int{EmailStatusSuccess: 0, EmailStatusFailed: 0}
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// DailySends returns recipient totals per day for the days ending at today,
// with zero entries for days without mail.
func (s *EmailLogStore) DailySends(ctx context.Context, today Date, days int) (map[string]int, error) {
	from := today.AddDays(-(days - 1))

	sends := make(map[string]int, days)
	for i := 0; i < days; i++ {
		sends[today.AddDays(-i).String()] = 0
	}

	var rows []struct {
		Day   Date `db:"day"`
		Count int  `db:"count"`
	}
	query := `SELECT (sent_at AT TIME ZONE $1)::date AS day, COALESCE(SUM(recipient_count), 0) AS count
		FROM email_logs
		WHERE (sent_at AT TIME ZONE $1)::date BETWEEN $2::date AND $3::date
		GROUP BY day
		ORDER BY day ASC`
	if err := s.db.SelectContext(ctx, &rows, query, s.loc.String(), from, today); err != nil {
		return nil, fmt.Errorf("failed to get daily sends over period: %w", err)
	}
	for _, r := range rows {
		sends[r.Day.String()] = r.Count
	}
	return sends, nil
}
