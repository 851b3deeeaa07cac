// Package notify delivers appointment e-mails.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/http"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Message is a plain-text e-mail
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Mailer sends messages
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig holds SMTP connection settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	StartTLS bool
}

var smtpConnectTimeout = 5 * time.Second

// SMTPMailer sends messages through an SMTP relay
type SMTPMailer struct {
	cfg    SMTPConfig
	logger *zap.Logger
}

// NewSMTPMailer creates a new SMTPMailer
func NewSMTPMailer(cfg SMTPConfig, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, logger: logger}
}

// Send delivers msg to every recipient in one SMTP transaction
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("message has no recipients")
	}

	cn, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer cn.Close()

	if err := cn.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("smtp MAIL FROM failed: %w", err)
	}
	for _, to := range msg.To {
		if err := cn.Rcpt(to); err != nil {
			return fmt.Errorf("smtp RCPT TO failed: %w", err)
		}
	}

	wr, err := cn.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA failed: %w", err)
	}
	if _, err := wr.Write(encode(m.cfg.From, msg)); err != nil {
		wr.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := wr.Close(); err != nil {
		return fmt.Errorf("failed to finish message: %w", err)
	}

	if err := cn.Quit(); err != nil {
		m.logger.Debug("smtp QUIT failed", zap.Error(err))
	}

	m.logger.Info("email sent",
		zap.Int("recipients", len(msg.To)),
		zap.String("subject", msg.Subject),
	)
	return nil
}

func (m *SMTPMailer) connect(ctx context.Context) (*smtp.Client, error) {
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))

	dialer := net.Dialer{Timeout: smtpConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SMTP server: %w", err)
	}

	cn, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}

	if m.cfg.StartTLS {
		if err := cn.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
			cn.Close()
			return nil, fmt.Errorf("failed to StartTLS with SMTP server: %w", err)
		}
	}

	if m.cfg.Username != "" {
		if err := cn.Auth(smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)); err != nil {
			cn.Close()
			return nil, fmt.Errorf("smtp auth failed: %w", err)
		}
	}

	return cn, nil
}

func encode(from string, msg Message) []byte {
	header := http.Header{}
	header.Set("From", from)
	header.Set("To", strings.Join(msg.To, ", "))
	header.Set("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header.Set("MIME-Version", "1.0")
	header.Set("Content-Type", "text/plain; charset=UTF-8")

	var b strings.Builder
	header.Write(&b)
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// LogMailer writes messages to the log instead of sending them. It is
// used when no SMTP host is configured.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a new LogMailer
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs msg
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.Info("email not sent: smtp disabled",
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("body_bytes", len(msg.Body)),
	)
	return nil
}
