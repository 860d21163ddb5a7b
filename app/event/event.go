// Package event defines the queued notification envelopes consumed by the
// dispatch workers. Events are the lightweight bus representation; the
// fully resolved form lives in the message package.
package event

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Channel tags a bus subscription. Each channel has its own stream,
// default provider and worker.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSms   Channel = "sms"
)

// Link is a pre-resolved resource link carried on an event.
type Link struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// EmailEvent is the queued representation of a requested email.
// Provider and TemplateID are optional; Content holds either the raw body
// or, when TemplateID is set, the JSON model for template substitution.
type EmailEvent struct {
	ID            string   `json:"id"`
	Provider      string   `json:"provider,omitempty"`
	To            []string `json:"to"`
	Subject       string   `json:"subject"`
	TemplateID    string   `json:"template_id,omitempty"`
	Content       string   `json:"content"`
	PlainText     bool     `json:"plain_text"`
	AttachmentIDs []string `json:"attachment_ids,omitempty"`
	Links         []Link   `json:"links,omitempty"`
}

// SmsEvent is the queued representation of a requested SMS. Attachment ids
// are turned into shortened public links during dispatch.
type SmsEvent struct {
	ID            string   `json:"id"`
	Provider      string   `json:"provider,omitempty"`
	To            []string `json:"to"`
	Text          string   `json:"text"`
	AttachmentIDs []string `json:"attachment_ids,omitempty"`
	Links         []Link   `json:"links,omitempty"`
}

// Validate checks the minimal invariants for a queued email event.
func (e EmailEvent) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("event id is required")
	}
	if len(e.To) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}
	if e.TemplateID == "" && strings.TrimSpace(e.Content) == "" {
		return fmt.Errorf("content or template_id is required")
	}
	return nil
}

// Validate checks the minimal invariants for a queued sms event.
func (e SmsEvent) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("event id is required")
	}
	if len(e.To) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}
	if strings.TrimSpace(e.Text) == "" {
		return fmt.Errorf("text is required")
	}
	return nil
}

// EncodeEmail marshals an email event to its bus payload.
func EncodeEmail(e EmailEvent) (string, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("encode email event: %w", err)
	}
	return string(raw), nil
}

// DecodeEmail unmarshals an email event from its bus payload.
func DecodeEmail(payload string) (EmailEvent, error) {
	var e EmailEvent
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return EmailEvent{}, fmt.Errorf("decode email event: %w", err)
	}
	return e, nil
}

// EncodeSms marshals an sms event to its bus payload.
func EncodeSms(e SmsEvent) (string, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("encode sms event: %w", err)
	}
	return string(raw), nil
}

// DecodeSms unmarshals an sms event from its bus payload.
func DecodeSms(payload string) (SmsEvent, error) {
	var e SmsEvent
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return SmsEvent{}, fmt.Errorf("decode sms event: %w", err)
	}
	return e, nil
}
