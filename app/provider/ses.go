package provider

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/cloudcore-labs/notification-hub/app/message"
)

// SESProvider sends email via AWS SES.
type SESProvider struct {
	client *sesv2.Client
	source string
}

// NewSESProvider builds a provider that sends email via AWS SES.
func NewSESProvider(cfg aws.Config, source string) *SESProvider {
	return &SESProvider{
		client: sesv2.NewFromConfig(cfg),
		source: source,
	}
}

// Send assembles the MIME message and submits it as a raw SES send.
func (p *SESProvider) Send(ctx context.Context, msg message.EmailMessage) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}

	m, err := buildMailMsg(p.source, msg)
	if err != nil {
		return fmt.Errorf("build mime message: %w", err)
	}

	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return fmt.Errorf("render mime message: %w", err)
	}

	_, err = p.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(p.source),
		Destination: &types.Destination{
			ToAddresses: msg.To,
		},
		Content: &types.EmailContent{
			Raw: &types.RawMessage{Data: buf.Bytes()},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send raw email: %w", err)
	}

	return nil
}
