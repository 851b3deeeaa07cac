package notify

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// sendClient is the part of the SendGrid client the mailer uses
type sendClient interface {
	SendWithContext(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error)
}

// SendGridMailer sends messages through the SendGrid v3 mail API
type SendGridMailer struct {
	client sendClient
	from   *sgmail.Email
	logger *zap.Logger
}

// NewSendGridMailer creates a SendGridMailer. from may carry a display
// name, e.g. "MindCare <no-reply@mindcare.example>".
func NewSendGridMailer(apiKey, from string, logger *zap.Logger) (*SendGridMailer, error) {
	return newSendGridMailer(sendgrid.NewSendClient(apiKey), from, logger)
}

func newSendGridMailer(client sendClient, from string, logger *zap.Logger) (*SendGridMailer, error) {
	addr, err := mail.ParseAddress(from)
	if err != nil {
		return nil, fmt.Errorf("invalid sender address %q: %w", from, err)
	}
	return &SendGridMailer{
		client: client,
		from:   sgmail.NewEmail(addr.Name, addr.Address),
		logger: logger,
	}, nil
}

// Send delivers msg as one personalization addressed to every recipient
func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("message has no recipients")
	}

	p := sgmail.NewPersonalization()
	for _, to := range msg.To {
		p.AddTos(sgmail.NewEmail("", to))
	}

	email := sgmail.NewV3Mail()
	email.SetFrom(m.from)
	email.Subject = msg.Subject
	email.AddPersonalizations(p)
	email.AddContent(sgmail.NewContent("text/plain", msg.Body))

	resp, err := m.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid rejected message: status %d: %s", resp.StatusCode, resp.Body)
	}

	m.logger.Info("email sent",
		zap.String("transport", "sendgrid"),
		zap.Int("recipients", len(msg.To)),
		zap.String("subject", msg.Subject),
	)
	return nil
}
