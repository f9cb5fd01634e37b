package email

import (
	"os"
	"strconv"

	"go-sales-tracker/internal/queue"

	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"
)

// SMTPMailer delivers queued jobs over SMTP. Configuration comes from
// MAIL_HOST, MAIL_PORT, MAIL_USER, MAIL_PASSWORD and MAIL_FROM.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
	logger *zap.Logger
}

func NewSMTPMailer(logger *zap.Logger) *SMTPMailer {
	port := 587
	if v := os.Getenv("MAIL_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			port = p
		}
	}

	from := os.Getenv("MAIL_FROM")
	if from == "" {
		from = "no-reply@sales-tracker.local"
	}

	return &SMTPMailer{
		dialer: gomail.NewDialer(
			os.Getenv("MAIL_HOST"),
			port,
			os.Getenv("MAIL_USER"),
			os.Getenv("MAIL_PASSWORD"),
		),
		from:   from,
		logger: logger,
	}
}

func (m *SMTPMailer) Send(job queue.EmailJob) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", job.Recipient)
	msg.SetHeader("Subject", job.Subject)
	msg.SetBody("text/html", job.HTMLBody)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return err
	}

	m.logger.Debug("smtp send ok", zap.String("to", job.Recipient))
	return nil
}
