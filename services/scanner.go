package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"license-tracker/config"
	"license-tracker/database"
	"license-tracker/metrics"
)

// LicenseSource supplies candidate licenses for a date window.
type LicenseSource interface {
	ListExpiring(ctx context.Context, from, to database.Date) ([]database.License, error)
}

// Deliverer sends a rendered notice.
type Deliverer interface {
	Send(ctx context.Context, msg Message) error
}

// NotificationResult is one notice produced by a scan.
type NotificationResult struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	LicenseID int64  `json:"licenseId"`
	Product   string `json:"product"`
}

// ScanReport is the outcome of one scan. Every eligible license contributes
// exactly one entry to either SentEmails or Errors.
type ScanReport struct {
	SentEmails []NotificationResult `json:"sentEmails"`
	Errors     []string             `json:"errors"`
}

type ScannerConfig struct {
	WindowMonths int
	// Recipient, when set, receives every notice instead of the reseller.
	Recipient        string
	Location         *time.Location
	GeneratorTimeout time.Duration
	DeliveryTimeout  time.Duration
}

func NewScannerConfig(cfg *config.Config) ScannerConfig {
	return ScannerConfig{
		WindowMonths:     cfg.Notify.WindowMonths,
		Recipient:        cfg.Notify.Recipient,
		Location:         cfg.ScanLocation(),
		GeneratorTimeout: cfg.Notify.GeneratorTimeout,
		DeliveryTimeout:  cfg.Notify.DeliveryTimeout,
	}
}

// ExpirationScanner finds licenses expiring inside the window and renders a
// notice for each, one license at a time.
type ExpirationScanner struct {
	source    LicenseSource
	generator ContentGenerator
	deliverer Deliverer
	cfg       ScannerConfig
	now       func() time.Time
	log       *zap.Logger
}

// NewExpirationScanner builds a scanner. A nil deliverer makes scans
// generate-only.
func NewExpirationScanner(source LicenseSource, generator ContentGenerator, deliverer Deliverer, cfg ScannerConfig, log *zap.Logger) *ExpirationScanner {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.WindowMonths <= 0 {
		cfg.WindowMonths = 4
	}
	return &ExpirationScanner{
		source:    source,
		generator: generator,
		deliverer: deliverer,
		cfg:       cfg,
		now:       time.Now,
		log:       log.With(zap.String("component", "expiration_scanner")),
	}
}

// Window returns the inclusive date range a scan started at now considers.
func (s *ExpirationScanner) Window(now time.Time) (from, to database.Date) {
	return ExpirationWindow(now.In(s.cfg.Location), s.cfg.WindowMonths)
}

// ExpirationWindow returns [today, today + months] for the calendar date of now.
func ExpirationWindow(now time.Time, months int) (from, to database.Date) {
	from = database.DateOf(now)
	return from, from.AddMonths(months)
}

// IsEligible reports whether a license should get a notice for the window.
func IsEligible(l database.License, from, to database.Date) bool {
	if l.ExpirationDate == nil || !l.Contactable() {
		return false
	}
	exp := *l.ExpirationDate
	return !exp.Before(from) && !exp.After(to)
}

// Scan runs one pass. Per-license failures are recorded in the report; a
// failure to load candidates, or ctx ending between licenses, is returned as
// an error.
func (s *ExpirationScanner) Scan(ctx context.Context) (*ScanReport, error) {
	from, to := s.Window(s.now())

	candidates, err := s.source.ListExpiring(ctx, from, to)
	if err != nil {
		return nil, err
	}

	report := &ScanReport{
		SentEmails: []NotificationResult{},
		Errors:     []string{},
	}
	considered := 0
	for _, license := range candidates {
		if err := ctx.Err(); err != nil {
			s.log.Warn("expiration scan interrupted",
				zap.Int("notifications", len(report.SentEmails)),
				zap.Int("errors", len(report.Errors)))
			return nil, fmt.Errorf("expiration scan interrupted: %w", err)
		}
		if !IsEligible(license, from, to) {
			s.log.Warn("skipping license outside the scan window",
				zap.Int64("license_id", license.ID))
			continue
		}
		considered++
		s.process(ctx, license, report)
	}

	s.log.Info("expiration scan finished",
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.Int("eligible", considered),
		zap.Int("notifications", len(report.SentEmails)),
		zap.Int("errors", len(report.Errors)),
	)
	return report, nil
}

func (s *ExpirationScanner) process(ctx context.Context, license database.License, report *ScanReport) {
	in := NewNotificationInput(license)

	content, err := s.generate(ctx, in)
	if err != nil {
		metrics.Notifications.WithLabelValues("generation_failed").Inc()
		s.log.Error("failed to generate notice", zap.Int64("license_id", license.ID), zap.Error(err))
		report.Errors = append(report.Errors,
			fmt.Sprintf("Failed to generate email for license ID %d: %s", license.ID, err.Error()))
		return
	}

	result := NotificationResult{
		Recipient: in.ResellerEmail,
		Subject:   content.Subject,
		Body:      content.Body,
		LicenseID: license.ID,
		Product:   license.Product,
	}
	if s.cfg.Recipient != "" {
		result.Recipient = s.cfg.Recipient
	}

	if s.deliverer == nil {
		metrics.Notifications.WithLabelValues("generated").Inc()
		report.SentEmails = append(report.SentEmails, result)
		return
	}

	if err := s.deliver(ctx, result); err != nil {
		metrics.Notifications.WithLabelValues("delivery_failed").Inc()
		s.log.Error("failed to deliver notice",
			zap.Int64("license_id", license.ID),
			zap.String("recipient", result.Recipient),
			zap.Error(err))
		report.Errors = append(report.Errors,
			fmt.Sprintf("Failed to send email for license ID %d: %s", license.ID, err.Error()))
		return
	}
	metrics.Notifications.WithLabelValues("sent").Inc()
	report.SentEmails = append(report.SentEmails, result)
}

func (s *ExpirationScanner) generate(ctx context.Context, in NotificationInput) (Content, error) {
	if s.cfg.GeneratorTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.GeneratorTimeout)
		defer cancel()
	}
	return s.generator.Generate(ctx, in)
}

func (s *ExpirationScanner) deliver(ctx context.Context, result NotificationResult) error {
	if s.cfg.DeliveryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.DeliveryTimeout)
		defer cancel()
	}
	return s.deliverer.Send(ctx, Message{
		To:        result.Recipient,
		Subject:   result.Subject,
		HTMLBody:  result.Body,
		LicenseID: result.LicenseID,
	})
}
