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
	"github.com/cloudcore-labs/notification-hub/app/template"
)

// EmailWorker consumes the email stream and dispatches email events.
type EmailWorker struct {
	bus       Bus
	providers *provider.Registry[provider.EmailProvider]
	templates template.Mapper
	resolver  AttachmentResolver
	guard     lock.Guard
	history   History
	opts      Options
	counters  Counters
}

// NewEmailWorker wires an email dispatch worker.
func NewEmailWorker(bus Bus, providers *provider.Registry[provider.EmailProvider], templates template.Mapper, resolver AttachmentResolver, guard lock.Guard, history History, opts Options) *EmailWorker {
	return &EmailWorker{
		bus:       bus,
		providers: providers,
		templates: templates,
		resolver:  resolver,
		guard:     guard,
		history:   history,
		opts:      opts,
	}
}

// Counters exposes the worker's dispatch statistics.
func (w *EmailWorker) Counters() *Counters {
	return &w.counters
}

// Run subscribes and blocks until context cancellation.
func (w *EmailWorker) Run(ctx context.Context) error {
	return w.bus.Subscribe(ctx, queue.EmailStream, w.opts.Concurrency, w.handle)
}

// RegisterMetrics hooks the worker into the shared monitor tick. Counters
// are read and reset atomically on each tick.
func (w *EmailWorker) RegisterMetrics(m *monitor.Monitor, sink monitor.Sink) {
	m.Register(func(time.Duration) {
		processed := w.counters.Processed.Swap(0)
		failed := w.counters.Failed.Swap(0)
		attachments := w.counters.Attachments.Swap(0)

		log.WithFields(log.Fields{
			"channel":     event.ChannelEmail,
			"processed":   processed,
			"failed":      failed,
			"attachments": attachments,
		}).Info("dispatch interval")

		sink.Record("email_messages_processed", processed)
		sink.Record("email_messages_failed", failed)
		sink.Record("email_attachments_resolved", attachments)
	})
}

// handle processes one delivery end to end.
func (w *EmailWorker) handle(ctx context.Context, d queue.Delivery) {
	ev, err := event.DecodeEmail(d.Payload)
	if err != nil {
		w.reject(ctx, d, "", ev, fmt.Errorf("decode event: %w", err))
		return
	}

	// Default the provider if not set.
	if ev.Provider == "" {
		ev.Provider = w.opts.DefaultProvider
	}

	// An unresolvable provider is reported inline; there is no retry the
	// worker could make that would change the outcome.
	emailProvider, err := w.providers.Resolve(ev.Provider)
	if err != nil {
		w.reject(ctx, d, ev.Provider, ev, err)
		return
	}

	// Skip events another consumer is still processing; the entry stays
	// pending for the bus to redeliver. The guard is advisory: if it is
	// unreachable we dispatch anyway rather than stall the channel.
	acquired, err := w.guard.TryAcquire(ctx, string(event.ChannelEmail), ev.ID, w.opts.LockTTL)
	if err != nil {
		log.WithError(err).WithField("event", ev.ID).Warn("in-flight guard unavailable")
	} else if !acquired {
		log.WithField("event", ev.ID).Debug("event already in flight, leaving pending")
		return
	} else {
		defer func() {
			_ = w.guard.Release(context.Background(), string(event.ChannelEmail), ev.ID)
		}()
	}

	msg := message.EmailFromEvent(ev)

	content, err := w.materializeContent(ctx, ev)
	if err != nil {
		w.reject(ctx, d, ev.Provider, ev, err)
		return
	}
	msg.Content = content

	for _, attachmentID := range ev.AttachmentIDs {
		att, err := w.resolver.ResolveAttachment(ctx, attachmentID)
		if err != nil {
			w.reject(ctx, d, ev.Provider, ev, err)
			return
		}
		msg.Attachments = append(msg.Attachments, att)
		w.counters.Attachments.Add(1)
	}

	if err := emailProvider.Send(ctx, msg); err != nil {
		w.reject(ctx, d, ev.Provider, ev, fmt.Errorf("provider send: %w", err))
		return
	}

	if err := w.bus.Complete(ctx, queue.EmailStream, d); err != nil {
		log.WithError(err).WithField("event", ev.ID).Error("complete failed, event will be redelivered")
		return
	}

	w.counters.Processed.Add(1)
	w.record(ctx, ev, repository.DeliveryStatusProcessed, "")
	log.WithFields(log.Fields{
		"event":      ev.ID,
		"recipients": len(msg.To),
		"subject":    msg.Subject,
	}).Debug("email sent")
}

// materializeContent returns the event content, substituting a template
// when one is named. A template id that does not resolve is a hard error,
// never silently empty content.
func (w *EmailWorker) materializeContent(ctx context.Context, ev event.EmailEvent) (string, error) {
	if ev.TemplateID == "" {
		return ev.Content, nil
	}

	result, err := w.templates.GetContent(ctx, ev.TemplateID)
	if err != nil {
		return "", fmt.Errorf("fetch template %s: %w", ev.TemplateID, err)
	}
	if !result.Found {
		return "", fmt.Errorf("template %s: %w", ev.TemplateID, template.ErrTemplateNotFound)
	}

	model, err := template.Flatten(ev.Content)
	if err != nil {
		return "", err
	}
	return template.Substitute(result.Keys, model, result.Body)
}

// reject reports the event as failed to the bus and counts it.
func (w *EmailWorker) reject(ctx context.Context, d queue.Delivery, providerName string, ev event.EmailEvent, cause error) {
	log.WithError(cause).WithFields(log.Fields{
		"event":    ev.ID,
		"provider": providerName,
	}).Error("email dispatch failed")

	if err := w.bus.Error(ctx, queue.EmailStream, d, cause.Error()); err != nil {
		log.WithError(err).WithField("event", ev.ID).Error("error-report to bus failed")
	}
	w.counters.Failed.Add(1)
	w.record(ctx, ev, repository.DeliveryStatusFailed, cause.Error())
}

func (w *EmailWorker) record(ctx context.Context, ev event.EmailEvent, status string, detail string) {
	if w.history == nil {
		return
	}
	if err := w.history.Record(ctx, ev.ID, string(event.ChannelEmail), ev.Provider, len(ev.To), status, detail); err != nil {
		log.WithError(err).WithField("event", ev.ID).Warn("delivery history record failed")
	}
}
