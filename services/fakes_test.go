package services

import (
	"context"
	"sync"

	"license-tracker/database"
)

type fakeSource struct {
	licenses []database.License
	err      error

	from, to database.Date
	calls    int
}

func (f *fakeSource) ListExpiring(_ context.Context, from, to database.Date) ([]database.License, error) {
	f.calls++
	f.from, f.to = from, to
	return f.licenses, f.err
}

type generatorFunc func(ctx context.Context, in NotificationInput) (Content, error)

func (f generatorFunc) Generate(ctx context.Context, in NotificationInput) (Content, error) {
	return f(ctx, in)
}

type fakeDeliverer struct {
	mu   sync.Mutex
	sent []Message
	fail map[int64]error
}

func (f *fakeDeliverer) Send(_ context.Context, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[msg.LicenseID]; err != nil {
		return err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeLogWriter struct {
	mu      sync.Mutex
	entries []database.EmailLog
}

func (f *fakeLogWriter) Insert(_ context.Context, e *database.EmailLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *e)
	return nil
}

func (f *fakeLogWriter) snapshot() []database.EmailLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]database.EmailLog(nil), f.entries...)
}

func strPtr(s string) *string { return &s }

func datePtr(d database.Date) *database.Date { return &d }
