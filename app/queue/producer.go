package queue

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/cloudcore-labs/notification-hub/app/event"
)

// Producer pushes notification events onto the channel streams.
type Producer struct {
	client *redis.Client
}

// NewProducer constructs a Redis stream producer.
func NewProducer(client *redis.Client) *Producer {
	return &Producer{client: client}
}

// PublishEmail queues an email event.
func (p *Producer) PublishEmail(ctx context.Context, e event.EmailEvent) error {
	payload, err := event.EncodeEmail(e)
	if err != nil {
		return err
	}
	return p.publish(ctx, EmailStream, payload)
}

// PublishSms queues an sms event.
func (p *Producer) PublishSms(ctx context.Context, e event.SmsEvent) error {
	payload, err := event.EncodeSms(e)
	if err != nil {
		return err
	}
	return p.publish(ctx, SmsStream, payload)
}

func (p *Producer) publish(ctx context.Context, stream string, payload string) error {
	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			"payload":  payload,
			"attempts": 0,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd to %s: %w", stream, err)
	}
	return nil
}
