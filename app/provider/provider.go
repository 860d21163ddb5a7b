package provider

import (
	"context"

	"github.com/cloudcore-labs/notification-hub/app/message"
)

// EmailProvider delivers a fully resolved email message.
type EmailProvider interface {
	Send(ctx context.Context, msg message.EmailMessage) error
}

// SmsProvider delivers a fully resolved sms message.
type SmsProvider interface {
	Send(ctx context.Context, msg message.SmsMessage) error
}
