// Package queue implements the notification event bus on Redis Streams.
// Each channel has its own stream; completing a delivery acks it, erroring
// a delivery re-queues it with an incremented attempt count until the
// configured maximum, after which it is moved to the channel's dead-letter
// stream together with the failure reason.
package queue

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	EmailStream = "notifications:email"
	SmsStream   = "notifications:sms"

	ConsumerGroup = "dispatch-workers"

	deadLetterSuffix = ":dead"
)

// Delivery is one in-flight bus message.
type Delivery struct {
	MessageID string
	Payload   string
	Attempts  int
}

// Handler processes one delivery. It must complete or error the delivery
// via the bus; a handler that does neither leaves the message pending.
type Handler func(ctx context.Context, d Delivery)

// Bus is the Redis Streams event bus.
type Bus struct {
	client       *redis.Client
	consumerName string
	maxAttempts  int
}

// NewBus constructs a bus bound to a named consumer.
func NewBus(client *redis.Client, consumerName string, maxAttempts int) *Bus {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Bus{
		client:       client,
		consumerName: consumerName,
		maxAttempts:  maxAttempts,
	}
}

// Subscribe consumes the stream and dispatches deliveries to the handler,
// with at most concurrency handlers in flight. Pending entries from a
// previous run of this consumer are drained first. Blocks until context
// cancellation.
func (b *Bus) Subscribe(ctx context.Context, stream string, concurrency int, handler Handler) error {
	if concurrency < 1 {
		concurrency = 1
	}
	if err := b.ensureGroup(ctx, stream); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"consumer":    b.consumerName,
		"stream":      stream,
		"concurrency": concurrency,
	}).Info("subscription started")

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	// First drain pending messages, then switch to reading new ones.
	startID := "0"
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			log.WithField("stream", stream).Info("subscription shutting down")
			return nil
		default:
		}

		streams, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    ConsumerGroup,
			Consumer: b.consumerName,
			Streams:  []string{stream, startID},
			Count:    int64(concurrency),
			Block:    5 * time.Second,
		}).Result()
		if err != nil {
			if err == redis.Nil {
				startID = ">"
				continue
			}
			if ctx.Err() != nil {
				wg.Wait()
				log.WithField("stream", stream).Info("subscription shutting down")
				return nil
			}
			log.WithError(err).Error("XReadGroup failed")
			time.Sleep(time.Second)
			continue
		}

		for _, s := range streams {
			if len(s.Messages) == 0 {
				startID = ">"
				continue
			}
			for _, msg := range s.Messages {
				delivery := decodeDelivery(msg)

				// Advance the drain cursor past this entry. Re-reading from
				// the same id would hand an unacked in-flight message to a
				// second handler.
				if startID != ">" {
					startID = msg.ID
				}

				select {
				case sem <- struct{}{}:
				case <-ctx.Done():
					wg.Wait()
					return nil
				}

				wg.Add(1)
				go func() {
					defer wg.Done()
					defer func() { <-sem }()
					handler(ctx, delivery)
				}()
			}
		}
	}
}

// Complete acks the delivery, removing it from the pending entries list.
func (b *Bus) Complete(ctx context.Context, stream string, d Delivery) error {
	return b.client.XAck(ctx, stream, ConsumerGroup, d.MessageID).Err()
}

// Error reports a failed delivery. The message is re-queued with an
// incremented attempt count, or dead-lettered with the reason once the
// attempt budget is spent. The original entry is acked either way.
func (b *Bus) Error(ctx context.Context, stream string, d Delivery, reason string) error {
	attempts := d.Attempts + 1

	if attempts < b.maxAttempts {
		err := b.client.XAdd(ctx, &redis.XAddArgs{
			Stream: stream,
			Values: map[string]interface{}{
				"payload":  d.Payload,
				"attempts": attempts,
			},
		}).Err()
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{
			"stream":   stream,
			"message":  d.MessageID,
			"attempts": attempts,
			"reason":   reason,
		}).Warn("delivery re-queued")
	} else {
		err := b.client.XAdd(ctx, &redis.XAddArgs{
			Stream: stream + deadLetterSuffix,
			Values: map[string]interface{}{
				"payload":  d.Payload,
				"attempts": attempts,
				"reason":   reason,
			},
		}).Err()
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{
			"stream":  stream,
			"message": d.MessageID,
			"reason":  reason,
		}).Error("delivery dead-lettered")
	}

	return b.client.XAck(ctx, stream, ConsumerGroup, d.MessageID).Err()
}

// ensureGroup creates the stream and consumer group if missing.
func (b *Bus) ensureGroup(ctx context.Context, stream string) error {
	err := b.client.XGroupCreateMkStream(ctx, stream, ConsumerGroup, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

func decodeDelivery(msg redis.XMessage) Delivery {
	payload, _ := msg.Values["payload"].(string)
	attempts := 0
	if raw, ok := msg.Values["attempts"].(string); ok {
		if parsed, err := strconv.Atoi(raw); err == nil {
			attempts = parsed
		}
	}
	return Delivery{
		MessageID: msg.ID,
		Payload:   payload,
		Attempts:  attempts,
	}
}
