package provider

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/cloudcore-labs/notification-hub/app/message"
)

// NoopEmailProvider logs and discards email messages. Useful for local
// runs and environments without delivery credentials.
type NoopEmailProvider struct{}

// NewNoopEmailProvider constructs a no-op email provider.
func NewNoopEmailProvider() *NoopEmailProvider {
	return &NoopEmailProvider{}
}

// Send logs the message and returns nil without sending.
func (p *NoopEmailProvider) Send(_ context.Context, msg message.EmailMessage) error {
	log.WithFields(log.Fields{
		"recipients":  len(msg.To),
		"subject":     msg.Subject,
		"attachments": len(msg.Attachments),
	}).Info("noop email provider: message discarded")
	return nil
}

// NoopSmsProvider logs and discards sms messages.
type NoopSmsProvider struct{}

// NewNoopSmsProvider constructs a no-op sms provider.
func NewNoopSmsProvider() *NoopSmsProvider {
	return &NoopSmsProvider{}
}

// Send logs the message and returns nil without sending.
func (p *NoopSmsProvider) Send(_ context.Context, msg message.SmsMessage) error {
	log.WithFields(log.Fields{
		"recipients": len(msg.To),
		"links":      len(msg.Links),
	}).Info("noop sms provider: message discarded")
	return nil
}
