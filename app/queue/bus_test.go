package queue

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/cloudcore-labs/notification-hub/app/event"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func readOne(t *testing.T, client *redis.Client, stream string) Delivery {
	t.Helper()
	ctx := context.Background()

	err := client.XGroupCreateMkStream(ctx, stream, ConsumerGroup, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		if strings.Contains(err.Error(), "unknown command") {
			t.Skipf("streams not supported by miniredis: %v", err)
		}
		t.Fatalf("XGroupCreateMkStream: %v", err)
	}

	streams, err := client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    ConsumerGroup,
		Consumer: "c1",
		Streams:  []string{stream, ">"},
		Count:    1,
	}).Result()
	if err != nil {
		if strings.Contains(err.Error(), "unknown command") {
			t.Skipf("streams not supported by miniredis: %v", err)
		}
		t.Fatalf("XReadGroup: %v", err)
	}
	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		t.Fatal("expected one message on the stream")
	}
	return decodeDelivery(streams[0].Messages[0])
}

func TestProducerPublishEmail(t *testing.T) {
	t.Parallel()

	client := newTestRedis(t)
	ctx := context.Background()

	producer := NewProducer(client)
	err := producer.PublishEmail(ctx, event.EmailEvent{
		ID:      "evt-1",
		To:      []string{"a@b.com"},
		Subject: "subj",
		Content: "body",
	})
	if err != nil {
		if strings.Contains(err.Error(), "unknown command") {
			t.Skipf("streams not supported by miniredis: %v", err)
		}
		t.Fatalf("PublishEmail: %v", err)
	}

	d := readOne(t, client, EmailStream)
	decoded, err := event.DecodeEmail(d.Payload)
	if err != nil {
		t.Fatalf("DecodeEmail: %v", err)
	}
	if decoded.ID != "evt-1" || decoded.Subject != "subj" {
		t.Fatalf("unexpected event %+v", decoded)
	}
	if d.Attempts != 0 {
		t.Fatalf("expected 0 attempts, got %d", d.Attempts)
	}
}

func TestSubscribeDrainsPendingEntryOnce(t *testing.T) {
	t.Parallel()

	client := newTestRedis(t)
	ctx := context.Background()

	producer := NewProducer(client)
	if err := producer.PublishEmail(ctx, event.EmailEvent{ID: "evt-1", To: []string{"a@b.com"}, Content: "x"}); err != nil {
		if strings.Contains(err.Error(), "unknown command") {
			t.Skipf("streams not supported by miniredis: %v", err)
		}
		t.Fatalf("PublishEmail: %v", err)
	}

	// Read without acking so the entry sits in this consumer's pending
	// entries list, as after a crash mid-dispatch.
	_ = readOne(t, client, EmailStream)

	bus := NewBus(client, "c1", 5)

	var calls atomic.Int64
	runCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()

	err := bus.Subscribe(runCtx, EmailStream, 1, func(_ context.Context, d Delivery) {
		calls.Add(1)
		// A slow handler must not cause the drain to hand the still-unacked
		// entry to a second handler.
		time.Sleep(50 * time.Millisecond)
		if err := bus.Complete(ctx, EmailStream, d); err != nil {
			t.Errorf("Complete: %v", err)
		}
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected pending entry handled once, got %d", got)
	}

	pending, err := client.XPending(ctx, EmailStream, ConsumerGroup).Result()
	if err != nil {
		t.Fatalf("XPending: %v", err)
	}
	if pending.Count != 0 {
		t.Fatalf("expected 0 pending after drain, got %d", pending.Count)
	}
}

func TestBusCompleteAcks(t *testing.T) {
	t.Parallel()

	client := newTestRedis(t)
	ctx := context.Background()

	producer := NewProducer(client)
	if err := producer.PublishSms(ctx, event.SmsEvent{ID: "evt-1", To: []string{"+447700900001"}, Text: "hi"}); err != nil {
		if strings.Contains(err.Error(), "unknown command") {
			t.Skipf("streams not supported by miniredis: %v", err)
		}
		t.Fatalf("PublishSms: %v", err)
	}

	d := readOne(t, client, SmsStream)

	bus := NewBus(client, "c1", 5)
	if err := bus.Complete(ctx, SmsStream, d); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	pending, err := client.XPending(ctx, SmsStream, ConsumerGroup).Result()
	if err != nil {
		t.Fatalf("XPending: %v", err)
	}
	if pending.Count != 0 {
		t.Fatalf("expected 0 pending, got %d", pending.Count)
	}
}

func TestBusErrorRequeuesWithIncrementedAttempts(t *testing.T) {
	t.Parallel()

	client := newTestRedis(t)
	ctx := context.Background()

	producer := NewProducer(client)
	if err := producer.PublishEmail(ctx, event.EmailEvent{ID: "evt-1", To: []string{"a@b.com"}, Content: "x"}); err != nil {
		if strings.Contains(err.Error(), "unknown command") {
			t.Skipf("streams not supported by miniredis: %v", err)
		}
		t.Fatalf("PublishEmail: %v", err)
	}

	d := readOne(t, client, EmailStream)

	bus := NewBus(client, "c1", 5)
	if err := bus.Error(ctx, EmailStream, d, "provider exploded"); err != nil {
		t.Fatalf("Error: %v", err)
	}

	// Original acked, replacement queued with attempts=1.
	pending, err := client.XPending(ctx, EmailStream, ConsumerGroup).Result()
	if err != nil {
		t.Fatalf("XPending: %v", err)
	}
	if pending.Count != 0 {
		t.Fatalf("expected 0 pending, got %d", pending.Count)
	}

	redelivered := readOne(t, client, EmailStream)
	if redelivered.Attempts != 1 {
		t.Fatalf("expected attempts=1, got %d", redelivered.Attempts)
	}
	if redelivered.Payload != d.Payload {
		t.Fatal("expected payload to survive re-queue")
	}
}

func TestBusErrorDeadLettersAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	client := newTestRedis(t)
	ctx := context.Background()

	producer := NewProducer(client)
	if err := producer.PublishEmail(ctx, event.EmailEvent{ID: "evt-1", To: []string{"a@b.com"}, Content: "x"}); err != nil {
		if strings.Contains(err.Error(), "unknown command") {
			t.Skipf("streams not supported by miniredis: %v", err)
		}
		t.Fatalf("PublishEmail: %v", err)
	}

	d := readOne(t, client, EmailStream)

	bus := NewBus(client, "c1", 1)
	if err := bus.Error(ctx, EmailStream, d, "unresolvable provider"); err != nil {
		t.Fatalf("Error: %v", err)
	}

	entries, err := client.XRange(ctx, EmailStream+deadLetterSuffix, "-", "+").Result()
	if err != nil {
		t.Fatalf("XRange: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 dead-letter entry, got %d", len(entries))
	}
	if reason, _ := entries[0].Values["reason"].(string); reason != "unresolvable provider" {
		t.Fatalf("unexpected reason %q", entries[0].Values["reason"])
	}

	pending, err := client.XPending(ctx, EmailStream, ConsumerGroup).Result()
	if err != nil {
		t.Fatalf("XPending: %v", err)
	}
	if pending.Count != 0 {
		t.Fatalf("expected 0 pending, got %d", pending.Count)
	}
}
