package provider

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/cloudcore-labs/notification-hub/app/message"
)

// buildMailMsg assembles a MIME message from a resolved email. Shared by
// the SMTP and SES providers so both emit identical wire content.
func buildMailMsg(from string, msg message.EmailMessage) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("invalid from address %q: %w", from, err)
	}
	if err := m.To(msg.To...); err != nil {
		return nil, fmt.Errorf("invalid recipients: %w", err)
	}
	m.Subject(msg.Subject)

	body := msg.Content
	if len(msg.Links) > 0 {
		body = body + "\n\n" + renderLinks(msg.Links)
	}

	if msg.PlainText {
		m.SetBodyString(mail.TypeTextPlain, body)
	} else {
		m.SetBodyString(mail.TypeTextHTML, body)
	}

	for _, att := range msg.Attachments {
		opts := []mail.FileOption{}
		if att.ContentType != "" {
			opts = append(opts, mail.WithFileContentType(mail.ContentType(att.ContentType)))
		}
		if err := m.AttachReader(att.Name, bytes.NewReader(att.Content), opts...); err != nil {
			return nil, fmt.Errorf("attach %q: %w", att.Name, err)
		}
	}

	return m, nil
}

// renderLinks formats pre-resolved resource links as plain lines.
func renderLinks(links []message.ResourceLink) string {
	lines := make([]string, 0, len(links))
	for _, l := range links {
		lines = append(lines, l.Title+": "+l.URL)
	}
	return strings.Join(lines, "\n")
}
