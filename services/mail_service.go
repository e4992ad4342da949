package services

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	mail "gopkg.in/gomail.v2"

	"license-tracker/config"
	"license-tracker/database"
	"license-tracker/metrics"
	"license-tracker/utils"
)

const (
	previewLength   = 200
	logWriteTimeout = 5 * time.Second
)

// ErrDeliveryUnconfirmed is returned when ctx ends before the SMTP server
// has answered.
var ErrDeliveryUnconfirmed = errors.New("delivery not confirmed before deadline")

// Message is one outbound notice.
type Message struct {
	To        string
	Subject   string
	HTMLBody  string
	LicenseID int64
}

// EmailLogWriter records delivery attempts.
type EmailLogWriter interface {
	Insert(ctx context.Context, entry *database.EmailLog) error
}

type mailDialer interface {
	DialAndSend(m ...*mail.Message) error
}

// MailService sends notices over SMTP and logs every attempt to email_logs.
type MailService struct {
	from    string
	dialer  mailDialer
	logs    EmailLogWriter
	limiter *utils.DailyLimiter
	strip   *bluemonday.Policy
	log     *zap.Logger
}

// NewMailService creates a new MailService instance
func NewMailService(cfg config.SMTPConfig, logs EmailLogWriter, limiter *utils.DailyLimiter, log *zap.Logger) *MailService {
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass)
	d.SSL = cfg.Secure
	d.TLSConfig = &tls.Config{
		ServerName:         cfg.Host,
		InsecureSkipVerify: cfg.SkipTLSVerify,
	}

	log = log.With(zap.String("component", "mail_service"))
	if cfg.SkipTLSVerify {
		log.Warn("TLS certificate verification is disabled for SMTP")
	}

	from := cfg.From
	if from == "" {
		from = cfg.User
	}
	return newMailService(from, d, logs, limiter, log)
}

func newMailService(from string, dialer mailDialer, logs EmailLogWriter, limiter *utils.DailyLimiter, log *zap.Logger) *MailService {
	return &MailService{
		from:    from,
		dialer:  dialer,
		logs:    logs,
		limiter: limiter,
		strip:   bluemonday.StrictPolicy(),
		log:     log,
	}
}

// Send delivers msg unless today's cap is reached. Attempts that reach the
// transport are logged whether they succeed or fail.
//
// When ctx ends first Send returns ErrDeliveryUnconfirmed. The SMTP exchange
// cannot be interrupted and may still deliver the message; its log row is
// written once the exchange finishes and carries the real outcome.
func (s *MailService) Send(ctx context.Context, msg Message) error {
	if s.limiter != nil {
		if err := s.limiter.Allow(ctx); err != nil {
			return err
		}
	}

	entry := &database.EmailLog{
		SentTo:         msg.To,
		Subject:        msg.Subject,
		BodyPreview:    s.preview(msg.HTMLBody),
		Status:         database.EmailStatusFailed,
		RecipientCount: 1,
	}
	if msg.LicenseID != 0 {
		id := msg.LicenseID
		entry.LicenseID = &id
	}

	m := mail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTMLBody)

	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(m) }()

	select {
	case err := <-done:
		s.record(ctx, msg, entry, err)
		if err != nil {
			return fmt.Errorf("could not send email: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.log.Warn("email delivery still in progress at deadline",
			zap.String("to", msg.To), zap.Int64("license_id", msg.LicenseID))
		go func() { s.record(ctx, msg, entry, <-done) }()
		return fmt.Errorf("%w: %w", ErrDeliveryUnconfirmed, ctx.Err())
	}
}

// record writes the log row for a finished attempt. It runs even when ctx
// has been cancelled.
func (s *MailService) record(ctx context.Context, msg Message, entry *database.EmailLog, err error) {
	if err != nil {
		reason := err.Error()
		entry.Error = &reason
	} else {
		entry.Status = database.EmailStatusSuccess
		s.log.Info("email sent", zap.String("to", msg.To), zap.Int64("license_id", msg.LicenseID))
	}
	metrics.EmailsSent.WithLabelValues(entry.Status).Inc()

	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logWriteTimeout)
	defer cancel()
	if dbErr := s.logs.Insert(logCtx, entry); dbErr != nil {
		s.log.Error("failed to log email attempt", zap.String("to", msg.To), zap.Error(dbErr))
	}
}

func (s *MailService) preview(body string) string {
	text := strings.Join(strings.Fields(s.strip.Sanitize(body)), " ")
	if utf8.RuneCountInString(text) <= previewLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewLength]) + "..."
}
