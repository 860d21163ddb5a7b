package dto

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/cloudcore-labs/notification-hub/app/event"
)

var (
	ErrMissingText      = errors.New("text is required")
	ErrInvalidSmsNumber = errors.New("recipient must be a phone number in international format")
)

type SendSmsRequest struct {
	Provider      string   `json:"provider"`
	To            []string `json:"to"`
	Text          string   `json:"text"`
	AttachmentIDs []string `json:"attachment_ids"`
	Links         []Link   `json:"links"`
}

// SmsFromEchoContext binds and normalizes an sms send request.
func SmsFromEchoContext(ctx echo.Context) (SendSmsRequest, error) {
	var req SendSmsRequest
	if err := ctx.Bind(&req); err != nil {
		return SendSmsRequest{}, err
	}
	req.normalize()
	return req, nil
}

// Validate checks required fields and phone number format.
func (r *SendSmsRequest) Validate() error {
	if len(r.To) == 0 {
		return ErrMissingRecipients
	}
	for _, number := range r.To {
		if !validPhoneNumber(number) {
			return ErrInvalidSmsNumber
		}
	}
	if r.Text == "" {
		return ErrMissingText
	}
	return nil
}

// ToEvent maps the request onto a queued sms event.
func (r *SendSmsRequest) ToEvent(id string) event.SmsEvent {
	ev := event.SmsEvent{
		ID:            id,
		Provider:      r.Provider,
		To:            r.To,
		Text:          r.Text,
		AttachmentIDs: r.AttachmentIDs,
	}
	for _, l := range r.Links {
		ev.Links = append(ev.Links, event.Link{Title: l.Title, URL: l.URL})
	}
	return ev
}

// validPhoneNumber accepts a leading + followed by 7 to 15 digits.
func validPhoneNumber(number string) bool {
	if !strings.HasPrefix(number, "+") {
		return false
	}
	digits := number[1:]
	if len(digits) < 7 || len(digits) > 15 {
		return false
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// normalize trims whitespace from all string fields.
func (r *SendSmsRequest) normalize() {
	r.Provider = strings.TrimSpace(r.Provider)
	r.Text = strings.TrimSpace(r.Text)
	for i, number := range r.To {
		r.To[i] = strings.TrimSpace(number)
	}
}
