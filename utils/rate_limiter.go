package utils

import (
	"context"
	"errors"
	"time"

	"license-tracker/database"
)

var ErrDailyLimitExceeded = errors.New("daily mail limit exceeded")

// MailCounter reports how many recipients were mailed on a given day.
type MailCounter interface {
	CountForDay(ctx context.Context, day database.Date) (int, error)
}

// LimitStatus is the day's usage of the mail cap.
type LimitStatus struct {
	CurrentCount int `json:"current_count"`
	Limit        int `json:"limit"`
	Remaining    int `json:"remaining"`
}

// DailyLimiter enforces a per-day recipient cap computed from the email log,
// so the count survives restarts and is shared by every instance.
type DailyLimiter struct {
	counter MailCounter
	limit   int
	loc     *time.Location
	now     func() time.Time
}

func NewDailyLimiter(counter MailCounter, limit int, loc *time.Location) *DailyLimiter {
	if loc == nil {
		loc = time.UTC
	}
	return &DailyLimiter{counter: counter, limit: limit, loc: loc, now: time.Now}
}

// Today is the current calendar date in the limiter's timezone.
func (l *DailyLimiter) Today() database.Date {
	return database.DateOf(l.now().In(l.loc))
}

func (l *DailyLimiter) Status(ctx context.Context) (LimitStatus, error) {
	count, err := l.counter.CountForDay(ctx, l.Today())
	if err != nil {
		return LimitStatus{}, err
	}
	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return LimitStatus{CurrentCount: count, Limit: l.limit, Remaining: remaining}, nil
}

// Allow returns ErrDailyLimitExceeded once today's count reaches the cap.
func (l *DailyLimiter) Allow(ctx context.Context) error {
	status, err := l.Status(ctx)
	if err != nil {
		return err
	}
	if status.Remaining <= 0 {
		return ErrDailyLimitExceeded
	}
	return nil
}
