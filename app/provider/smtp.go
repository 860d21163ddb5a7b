package provider

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"github.com/cloudcore-labs/notification-hub/app/message"
)

// SMTPConfig holds connection parameters for the SMTP provider.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPProvider sends email through an SMTP relay using go-mail.
type SMTPProvider struct {
	config SMTPConfig
}

// NewSMTPProvider builds an SMTP relay provider.
func NewSMTPProvider(config SMTPConfig) *SMTPProvider {
	return &SMTPProvider{config: config}
}

// Send assembles the MIME message and delivers it over SMTP.
func (p *SMTPProvider) Send(ctx context.Context, msg message.EmailMessage) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}

	m, err := buildMailMsg(p.config.From, msg)
	if err != nil {
		return fmt.Errorf("build mime message: %w", err)
	}

	c, err := mail.NewClient(p.config.Host,
		mail.WithPort(p.config.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(p.config.Username),
		mail.WithPassword(p.config.Password),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}

	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
