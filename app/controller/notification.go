package controller

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cloudcore-labs/notification-hub/app/dto"
	"github.com/cloudcore-labs/notification-hub/app/event"
)

// Producer queues notification events for asynchronous dispatch.
type Producer interface {
	PublishEmail(ctx context.Context, e event.EmailEvent) error
	PublishSms(ctx context.Context, e event.SmsEvent) error
}

// NotificationController accepts synchronous send requests and turns
// them into queued events.
type NotificationController struct {
	producer Producer
}

// NewNotificationController constructs the HTTP notification controller.
func NewNotificationController(producer Producer) *NotificationController {
	return &NotificationController{producer: producer}
}

// SendEmail validates and enqueues an email send request.
func (c *NotificationController) SendEmail(ctx echo.Context) error {
	req, err := dto.EmailFromEchoContext(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := req.Validate(); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	id, err := newEventID()
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to allocate event id"})
	}

	if err := c.producer.PublishEmail(ctx.Request().Context(), req.ToEvent(id)); err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to queue email"})
	}

	return ctx.JSON(http.StatusAccepted, map[string]string{"id": id})
}

// SendSms validates and enqueues an sms send request.
func (c *NotificationController) SendSms(ctx echo.Context) error {
	req, err := dto.SmsFromEchoContext(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := req.Validate(); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	id, err := newEventID()
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to allocate event id"})
	}

	if err := c.producer.PublishSms(ctx.Request().Context(), req.ToEvent(id)); err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to queue sms"})
	}

	return ctx.JSON(http.StatusAccepted, map[string]string{"id": id})
}

// newEventID allocates an opaque hex event id.
func newEventID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
