package dispatch

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cloudcore-labs/notification-hub/app/event"
	"github.com/cloudcore-labs/notification-hub/app/message"
	"github.com/cloudcore-labs/notification-hub/app/monitor"
	"github.com/cloudcore-labs/notification-hub/app/provider"
	"github.com/cloudcore-labs/notification-hub/app/queue"
	"github.com/cloudcore-labs/notification-hub/app/template"
)

type fakeBus struct {
	completes []queue.Delivery
	errors    []string
}

func (b *fakeBus) Subscribe(_ context.Context, _ string, _ int, _ queue.Handler) error {
	return nil
}

func (b *fakeBus) Complete(_ context.Context, _ string, d queue.Delivery) error {
	b.completes = append(b.completes, d)
	return nil
}

func (b *fakeBus) Error(_ context.Context, _ string, _ queue.Delivery, reason string) error {
	b.errors = append(b.errors, reason)
	return nil
}

type fakeEmailProvider struct {
	sent []message.EmailMessage
	err  error
}

func (p *fakeEmailProvider) Send(_ context.Context, msg message.EmailMessage) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, msg)
	return nil
}

type fakeTemplates struct {
	results map[string]template.Result
}

func (m *fakeTemplates) GetContent(_ context.Context, templateID string) (template.Result, error) {
	result, ok := m.results[templateID]
	if !ok {
		return template.Result{Found: false}, nil
	}
	return result, nil
}

type fakeAttachments struct {
	attachments map[string]message.Attachment
}

func (r *fakeAttachments) ResolveAttachment(_ context.Context, attachmentID string) (message.Attachment, error) {
	att, ok := r.attachments[attachmentID]
	if !ok {
		return message.Attachment{}, fmt.Errorf("cannot find attachment %s", attachmentID)
	}
	return att, nil
}

type openGuard struct{}

func (openGuard) TryAcquire(_ context.Context, _ string, _ string, _ time.Duration) (bool, error) {
	return true, nil
}
func (openGuard) Release(_ context.Context, _ string, _ string) error { return nil }

type closedGuard struct{}

func (closedGuard) TryAcquire(_ context.Context, _ string, _ string, _ time.Duration) (bool, error) {
	return false, nil
}
func (closedGuard) Release(_ context.Context, _ string, _ string) error { return nil }

type fakeHistory struct {
	records []string
}

func (h *fakeHistory) Record(_ context.Context, eventID string, channel string, _ string, _ int, status string, _ string) error {
	h.records = append(h.records, channel+":"+eventID+":"+status)
	return nil
}

type countingSink struct {
	recorded map[string]int64
}

func (s *countingSink) Record(name string, value int64) {
	if s.recorded == nil {
		s.recorded = make(map[string]int64)
	}
	s.recorded[name] = value
}

func emailDelivery(t *testing.T, ev event.EmailEvent) queue.Delivery {
	t.Helper()
	payload, err := event.EncodeEmail(ev)
	if err != nil {
		t.Fatalf("EncodeEmail: %v", err)
	}
	return queue.Delivery{MessageID: "1-0", Payload: payload}
}

func newEmailWorker(bus Bus, prov provider.EmailProvider, templates template.Mapper, resolver AttachmentResolver, history History) *EmailWorker {
	registry := provider.NewRegistry[provider.EmailProvider]()
	registry.Register("smtp", prov)
	if templates == nil {
		templates = &fakeTemplates{}
	}
	if resolver == nil {
		resolver = &fakeAttachments{}
	}
	return NewEmailWorker(bus, registry, templates, resolver, openGuard{}, history, Options{
		DefaultProvider: "smtp",
		Concurrency:     1,
		LockTTL:         time.Minute,
	})
}

func TestEmailWorkerDefaultsProvider(t *testing.T) {
	t.Parallel()

	bus := &fakeBus{}
	prov := &fakeEmailProvider{}
	w := newEmailWorker(bus, prov, nil, nil, nil)

	// No provider on the event: the channel default must be substituted.
	w.handle(context.Background(), emailDelivery(t, event.EmailEvent{
		ID:      "evt-1",
		To:      []string{"a@b.com"},
		Subject: "subj",
		Content: "body",
	}))

	if len(prov.sent) != 1 {
		t.Fatalf("expected 1 send, got %d", len(prov.sent))
	}
	if len(bus.completes) != 1 || len(bus.errors) != 0 {
		t.Fatalf("expected 1 complete and 0 errors, got %d/%d", len(bus.completes), len(bus.errors))
	}
}

func TestEmailWorkerUnknownProviderReportsError(t *testing.T) {
	t.Parallel()

	bus := &fakeBus{}
	prov := &fakeEmailProvider{}
	w := newEmailWorker(bus, prov, nil, nil, nil)

	w.handle(context.Background(), emailDelivery(t, event.EmailEvent{
		ID:       "evt-1",
		Provider: "sendgrid",
		To:       []string{"a@b.com"},
		Content:  "body",
	}))

	if len(bus.errors) != 1 {
		t.Fatalf("expected exactly 1 error call, got %d", len(bus.errors))
	}
	if len(bus.completes) != 0 {
		t.Fatalf("expected 0 complete calls, got %d", len(bus.completes))
	}
	if len(prov.sent) != 0 {
		t.Fatal("expected no provider send")
	}
	if got := w.Counters().Failed.Load(); got != 1 {
		t.Fatalf("expected failed counter 1, got %d", got)
	}
}

func TestEmailWorkerEndToEnd(t *testing.T) {
	t.Parallel()

	bus := &fakeBus{}
	prov := &fakeEmailProvider{}
	resolver := &fakeAttachments{attachments: map[string]message.Attachment{
		"att-1": {Name: "invoice.pdf", ContentType: "application/pdf", Content: []byte("pdf")},
	}}
	history := &fakeHistory{}
	w := newEmailWorker(bus, prov, nil, resolver, history)

	w.handle(context.Background(), emailDelivery(t, event.EmailEvent{
		ID:            "evt-1",
		To:            []string{"a@b.com", "c@d.com"},
		Subject:       "subj",
		Content:       "body",
		AttachmentIDs: []string{"att-1"},
	}))

	if len(prov.sent) != 1 {
		t.Fatalf("expected 1 send, got %d", len(prov.sent))
	}
	sent := prov.sent[0]
	if len(sent.To) != 2 {
		t.Fatalf("expected 2 recipients, got %d", len(sent.To))
	}
	if len(sent.Attachments) != 1 || sent.Attachments[0].Name != "invoice.pdf" {
		t.Fatalf("unexpected attachments %+v", sent.Attachments)
	}
	if len(bus.completes) != 1 {
		t.Fatalf("expected 1 complete, got %d", len(bus.completes))
	}
	if got := w.Counters().Processed.Load(); got != 1 {
		t.Fatalf("expected processed counter 1, got %d", got)
	}
	if got := w.Counters().Attachments.Load(); got != 1 {
		t.Fatalf("expected attachments counter 1, got %d", got)
	}
	if len(history.records) != 1 || history.records[0] != "email:evt-1:processed" {
		t.Fatalf("unexpected history %v", history.records)
	}
}

func TestEmailWorkerMissingAttachmentNeverSends(t *testing.T) {
	t.Parallel()

	bus := &fakeBus{}
	prov := &fakeEmailProvider{}
	w := newEmailWorker(bus, prov, nil, &fakeAttachments{}, nil)

	w.handle(context.Background(), emailDelivery(t, event.EmailEvent{
		ID:            "evt-1",
		To:            []string{"a@b.com"},
		Content:       "body",
		AttachmentIDs: []string{"missing"},
	}))

	if len(prov.sent) != 0 {
		t.Fatal("expected no provider send after attachment failure")
	}
	if len(bus.errors) != 1 || len(bus.completes) != 0 {
		t.Fatalf("expected 1 error and 0 completes, got %d/%d", len(bus.errors), len(bus.completes))
	}
}

func TestEmailWorkerTemplateSubstitution(t *testing.T) {
	t.Parallel()

	bus := &fakeBus{}
	prov := &fakeEmailProvider{}
	templates := &fakeTemplates{results: map[string]template.Result{
		"welcome": {Found: true, Body: "Hello {{Title}}", Keys: []string{"Title"}},
	}}
	w := newEmailWorker(bus, prov, templates, nil, nil)

	w.handle(context.Background(), emailDelivery(t, event.EmailEvent{
		ID:         "evt-1",
		To:         []string{"a@b.com"},
		TemplateID: "welcome",
		Content:    `{"title":"Hi"}`,
	}))

	if len(prov.sent) != 1 {
		t.Fatalf("expected 1 send, got %d (errors: %v)", len(prov.sent), bus.errors)
	}
	if prov.sent[0].Content != "Hello Hi" {
		t.Fatalf("expected substituted content, got %q", prov.sent[0].Content)
	}
}

func TestEmailWorkerStaticTemplateWithoutContent(t *testing.T) {
	t.Parallel()

	bus := &fakeBus{}
	prov := &fakeEmailProvider{}
	templates := &fakeTemplates{results: map[string]template.Result{
		"maintenance": {Found: true, Body: "Service window tonight"},
	}}
	w := newEmailWorker(bus, prov, templates, nil, nil)

	// A keyless template needs no model, so empty content is valid.
	w.handle(context.Background(), emailDelivery(t, event.EmailEvent{
		ID:         "evt-1",
		To:         []string{"a@b.com"},
		Subject:    "subj",
		TemplateID: "maintenance",
	}))

	if len(prov.sent) != 1 {
		t.Fatalf("expected 1 send, got %d (errors: %v)", len(prov.sent), bus.errors)
	}
	if prov.sent[0].Content != "Service window tonight" {
		t.Fatalf("expected template body as content, got %q", prov.sent[0].Content)
	}
	if len(bus.completes) != 1 || len(bus.errors) != 0 {
		t.Fatalf("expected 1 complete and 0 errors, got %d/%d", len(bus.completes), len(bus.errors))
	}
}

func TestEmailWorkerTemplateNotFoundFails(t *testing.T) {
	t.Parallel()

	bus := &fakeBus{}
	prov := &fakeEmailProvider{}
	w := newEmailWorker(bus, prov, &fakeTemplates{}, nil, nil)

	w.handle(context.Background(), emailDelivery(t, event.EmailEvent{
		ID:         "evt-1",
		To:         []string{"a@b.com"},
		TemplateID: "missing",
		Content:    `{"title":"Hi"}`,
	}))

	if len(prov.sent) != 0 {
		t.Fatal("expected no send for unresolvable template")
	}
	if len(bus.errors) != 1 || !strings.Contains(bus.errors[0], "template") {
		t.Fatalf("expected template error report, got %v", bus.errors)
	}
}

func TestEmailWorkerSubstitutionKeyMissingFails(t *testing.T) {
	t.Parallel()

	bus := &fakeBus{}
	prov := &fakeEmailProvider{}
	templates := &fakeTemplates{results: map[string]template.Result{
		"welcome": {Found: true, Body: "Hello {{name}}", Keys: []string{"name"}},
	}}
	w := newEmailWorker(bus, prov, templates, nil, nil)

	w.handle(context.Background(), emailDelivery(t, event.EmailEvent{
		ID:         "evt-1",
		To:         []string{"a@b.com"},
		TemplateID: "welcome",
		Content:    `{"title":"Hi"}`,
	}))

	if len(prov.sent) != 0 {
		t.Fatal("expected no send when a substitution key is missing")
	}
	if len(bus.errors) != 1 {
		t.Fatalf("expected 1 error call, got %d", len(bus.errors))
	}
}

func TestEmailWorkerInFlightEventLeftPending(t *testing.T) {
	t.Parallel()

	bus := &fakeBus{}
	prov := &fakeEmailProvider{}
	registry := provider.NewRegistry[provider.EmailProvider]()
	registry.Register("smtp", prov)
	w := NewEmailWorker(bus, registry, &fakeTemplates{}, &fakeAttachments{}, closedGuard{}, nil, Options{
		DefaultProvider: "smtp",
		Concurrency:     1,
		LockTTL:         time.Minute,
	})

	w.handle(context.Background(), emailDelivery(t, event.EmailEvent{
		ID:      "evt-1",
		To:      []string{"a@b.com"},
		Content: "body",
	}))

	// Neither completed nor errored: the entry stays pending on the bus.
	if len(bus.completes) != 0 || len(bus.errors) != 0 {
		t.Fatalf("expected no ack activity, got %d/%d", len(bus.completes), len(bus.errors))
	}
	if len(prov.sent) != 0 {
		t.Fatal("expected no send while event is in flight elsewhere")
	}
}

func TestEmailWorkerCountersReadAndReset(t *testing.T) {
	t.Parallel()

	bus := &fakeBus{}
	prov := &fakeEmailProvider{}
	w := newEmailWorker(bus, prov, nil, nil, nil)

	// Two successes, one provider-not-found failure.
	for i := 0; i < 2; i++ {
		w.handle(context.Background(), emailDelivery(t, event.EmailEvent{
			ID:      fmt.Sprintf("evt-%d", i),
			To:      []string{"a@b.com"},
			Content: "body",
		}))
	}
	w.handle(context.Background(), emailDelivery(t, event.EmailEvent{
		ID:       "evt-bad",
		Provider: "unknown",
		To:       []string{"a@b.com"},
		Content:  "body",
	}))

	m := monitor.New(time.Minute)
	sink := &countingSink{}
	w.RegisterMetrics(m, sink)

	m.Tick()

	if got := sink.recorded["email_messages_processed"]; got != 2 {
		t.Fatalf("expected 2 processed, got %d", got)
	}
	if got := sink.recorded["email_messages_failed"]; got != 1 {
		t.Fatalf("expected 1 failed, got %d", got)
	}

	// Counters reset on read.
	if got := w.Counters().Processed.Load(); got != 0 {
		t.Fatalf("expected processed counter reset, got %d", got)
	}
	if got := w.Counters().Failed.Load(); got != 0 {
		t.Fatalf("expected failed counter reset, got %d", got)
	}

	m.Tick()
	if got := sink.recorded["email_messages_processed"]; got != 0 {
		t.Fatalf("expected 0 processed after second tick, got %d", got)
	}
}
