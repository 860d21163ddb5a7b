// Package message holds the channel-specific delivery payloads handed to
// providers. A message lives for exactly one dispatch cycle and is never
// persisted.
package message

import (
	"strings"

	"github.com/cloudcore-labs/notification-hub/app/event"
)

// Attachment is resolved binary content ready to embed in an email.
type Attachment struct {
	Name        string
	ContentType string
	Content     []byte
}

// ResourceLink is a shareable link substituted for an attachment on
// channels that cannot carry binary content.
type ResourceLink struct {
	Title string
	URL   string
}

// EmailMessage is a fully resolved email ready for a provider send.
type EmailMessage struct {
	To          []string
	Subject     string
	Content     string
	PlainText   bool
	Attachments []Attachment
	Links       []ResourceLink
}

// SmsMessage is a fully resolved sms ready for a provider send.
type SmsMessage struct {
	To    []string
	Text  string
	Links []ResourceLink
}

// FullText renders the sms body with resolved links appended, one per
// line as "Title: URL".
func (m SmsMessage) FullText() string {
	if len(m.Links) == 0 {
		return m.Text
	}
	lines := make([]string, 0, len(m.Links)+1)
	lines = append(lines, m.Text)
	for _, l := range m.Links {
		lines = append(lines, l.Title+": "+l.URL)
	}
	return strings.Join(lines, "\n")
}

// EmailFromEvent maps a queued email event onto a delivery message.
// Attachments are resolved separately by the worker; content may still be
// replaced if the event names a template.
func EmailFromEvent(e event.EmailEvent) EmailMessage {
	msg := EmailMessage{
		To:        append([]string(nil), e.To...),
		Subject:   e.Subject,
		Content:   e.Content,
		PlainText: e.PlainText,
	}
	for _, l := range e.Links {
		msg.Links = append(msg.Links, ResourceLink{Title: l.Title, URL: l.URL})
	}
	return msg
}

// SmsFromEvent maps a queued sms event onto a delivery message. Links
// generated from attachment ids are appended by the worker.
func SmsFromEvent(e event.SmsEvent) SmsMessage {
	msg := SmsMessage{
		To:   append([]string(nil), e.To...),
		Text: e.Text,
	}
	for _, l := range e.Links {
		msg.Links = append(msg.Links, ResourceLink{Title: l.Title, URL: l.URL})
	}
	return msg
}
