package dispatch

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/cloudcore-labs/notification-hub/app/event"
	"github.com/cloudcore-labs/notification-hub/app/lock"
	"github.com/cloudcore-labs/notification-hub/app/message"
	"github.com/cloudcore-labs/notification-hub/app/monitor"
	"github.com/cloudcore-labs/notification-hub/app/provider"
	"github.com/cloudcore-labs/notification-hub/app/queue"
	"github.com/cloudcore-labs/notification-hub/app/repository"
)

// SmsWorker consumes the sms stream and dispatches sms events. Attachment
// ids are materialized as shortened public links rather than embedded
// content; sms payload size and per-message cost rule out the latter.
type SmsWorker struct {
	bus       Bus
	providers *provider.Registry[provider.SmsProvider]
	resolver  LinkResolver
	guard     lock.Guard
	history   History
	opts      Options
	counters  Counters
}

// NewSmsWorker wires an sms dispatch worker.
func NewSmsWorker(bus Bus, providers *provider.Registry[provider.SmsProvider], resolver LinkResolver, guard lock.Guard, history History, opts Options) *SmsWorker {
	return &SmsWorker{
		bus:       bus,
		providers: providers,
		resolver:  resolver,
		guard:     guard,
		history:   history,
		opts:      opts,
	}
}

// Counters exposes the worker's dispatch statistics.
func (w *SmsWorker) Counters() *Counters {
	return &w.counters
}

// Run subscribes and blocks until context cancellation.
func (w *SmsWorker) Run(ctx context.Context) error {
	return w.bus.Subscribe(ctx, queue.SmsStream, w.opts.Concurrency, w.handle)
}

// RegisterMetrics hooks the worker into the shared monitor tick.
func (w *SmsWorker) RegisterMetrics(m *monitor.Monitor, sink monitor.Sink) {
	m.Register(func(time.Duration) {
		processed := w.counters.Processed.Swap(0)
		failed := w.counters.Failed.Swap(0)
		links := w.counters.Links.Swap(0)

		log.WithFields(log.Fields{
			"channel":   event.ChannelSms,
			"processed": processed,
			"failed":    failed,
			"links":     links,
		}).Info("dispatch interval")

		sink.Record("sms_messages_processed", processed)
		sink.Record("sms_messages_failed", failed)
		sink.Record("sms_links_generated", links)
	})
}

// handle processes one delivery end to end.
func (w *SmsWorker) handle(ctx context.Context, d queue.Delivery) {
	ev, err := event.DecodeSms(d.Payload)
	if err != nil {
		w.reject(ctx, d, "", ev, fmt.Errorf("decode event: %w", err))
		return
	}

	if ev.Provider == "" {
		ev.Provider = w.opts.DefaultProvider
	}

	smsProvider, err := w.providers.Resolve(ev.Provider)
	if err != nil {
		w.reject(ctx, d, ev.Provider, ev, err)
		return
	}

	acquired, err := w.guard.TryAcquire(ctx, string(event.ChannelSms), ev.ID, w.opts.LockTTL)
	if err != nil {
		log.WithError(err).WithField("event", ev.ID).Warn("in-flight guard unavailable")
	} else if !acquired {
		log.WithField("event", ev.ID).Debug("event already in flight, leaving pending")
		return
	} else {
		defer func() {
			_ = w.guard.Release(context.Background(), string(event.ChannelSms), ev.ID)
		}()
	}

	msg := message.SmsFromEvent(ev)

	for _, attachmentID := range ev.AttachmentIDs {
		link, err := w.resolver.ResolveLink(ctx, attachmentID)
		if err != nil {
			w.reject(ctx, d, ev.Provider, ev, err)
			return
		}
		msg.Links = append(msg.Links, link)
		w.counters.Links.Add(1)
	}

	if err := smsProvider.Send(ctx, msg); err != nil {
		w.reject(ctx, d, ev.Provider, ev, fmt.Errorf("provider send: %w", err))
		return
	}

	if err := w.bus.Complete(ctx, queue.SmsStream, d); err != nil {
		log.WithError(err).WithField("event", ev.ID).Error("complete failed, event will be redelivered")
		return
	}

	w.counters.Processed.Add(1)
	w.record(ctx, ev, repository.DeliveryStatusProcessed, "")
	log.WithFields(log.Fields{
		"event":      ev.ID,
		"recipients": len(msg.To),
		"links":      len(msg.Links),
	}).Debug("sms sent")
}

// reject reports the event as failed to the bus and counts it.
func (w *SmsWorker) reject(ctx context.Context, d queue.Delivery, providerName string, ev event.SmsEvent, cause error) {
	log.WithError(cause).WithFields(log.Fields{
		"event":    ev.ID,
		"provider": providerName,
	}).Error("sms dispatch failed")

	if err := w.bus.Error(ctx, queue.SmsStream, d, cause.Error()); err != nil {
		log.WithError(err).WithField("event", ev.ID).Error("error-report to bus failed")
	}
	w.counters.Failed.Add(1)
	w.record(ctx, ev, repository.DeliveryStatusFailed, cause.Error())
}

func (w *SmsWorker) record(ctx context.Context, ev event.SmsEvent, status string, detail string) {
	if w.history == nil {
		return
	}
	if err := w.history.Record(ctx, ev.ID, string(event.ChannelSms), ev.Provider, len(ev.To), status, detail); err != nil {
		log.WithError(err).WithField("event", ev.ID).Warn("delivery history record failed")
	}
}
