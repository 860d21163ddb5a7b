package dto

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/cloudcore-labs/notification-hub/app/event"
)

var (
	ErrMissingRecipients = errors.New("at least one recipient is required")
	ErrInvalidRecipient  = errors.New("recipient must be a valid email address")
	ErrMissingContent    = errors.New("content or template_id is required")
	ErrMissingSubject    = errors.New("subject is required")
)

// Link mirrors a pre-resolved resource link on a send request.
type Link struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type SendEmailRequest struct {
	Provider      string   `json:"provider"`
	To            []string `json:"to"`
	Subject       string   `json:"subject"`
	TemplateID    string   `json:"template_id"`
	Content       string   `json:"content"`
	PlainText     bool     `json:"plain_text"`
	AttachmentIDs []string `json:"attachment_ids"`
	Links         []Link   `json:"links"`
}

// EmailFromEchoContext binds and normalizes an email send request.
func EmailFromEchoContext(ctx echo.Context) (SendEmailRequest, error) {
	var req SendEmailRequest
	if err := ctx.Bind(&req); err != nil {
		return SendEmailRequest{}, err
	}
	req.normalize()
	return req, nil
}

// Validate checks required fields and recipient format.
func (r *SendEmailRequest) Validate() error {
	if len(r.To) == 0 {
		return ErrMissingRecipients
	}
	for _, recipient := range r.To {
		if _, err := mail.ParseAddress(recipient); err != nil {
			return ErrInvalidRecipient
		}
	}
	if r.Subject == "" {
		return ErrMissingSubject
	}
	if r.TemplateID == "" && r.Content == "" {
		return ErrMissingContent
	}
	return nil
}

// ToEvent maps the request onto a queued email event.
func (r *SendEmailRequest) ToEvent(id string) event.EmailEvent {
	ev := event.EmailEvent{
		ID:            id,
		Provider:      r.Provider,
		To:            r.To,
		Subject:       r.Subject,
		TemplateID:    r.TemplateID,
		Content:       r.Content,
		PlainText:     r.PlainText,
		AttachmentIDs: r.AttachmentIDs,
	}
	for _, l := range r.Links {
		ev.Links = append(ev.Links, event.Link{Title: l.Title, URL: l.URL})
	}
	return ev
}

// normalize trims whitespace from all string fields.
func (r *SendEmailRequest) normalize() {
	r.Provider = strings.TrimSpace(r.Provider)
	r.Subject = strings.TrimSpace(r.Subject)
	r.TemplateID = strings.TrimSpace(r.TemplateID)
	r.Content = strings.TrimSpace(r.Content)
	for i, recipient := range r.To {
		r.To[i] = strings.TrimSpace(recipient)
	}
}
