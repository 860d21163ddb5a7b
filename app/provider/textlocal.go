package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cloudcore-labs/notification-hub/app/message"
)

const textlocalSendURL = "https://api.txtlocal.com/send/"

// TextlocalProvider sends sms through the Textlocal HTTP API.
type TextlocalProvider struct {
	APIKey     string
	Sender     string
	HTTPClient *http.Client
	Endpoint   string
}

// NewTextlocalProvider builds a Textlocal sms provider.
func NewTextlocalProvider(apiKey, sender string) *TextlocalProvider {
	return &TextlocalProvider{
		APIKey:     apiKey,
		Sender:     sender,
		HTTPClient: http.DefaultClient,
		Endpoint:   textlocalSendURL,
	}
}

type textlocalResponse struct {
	Status string `json:"status"`
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// Send submits the sms text plus any resolved links as one message.
func (p *TextlocalProvider) Send(ctx context.Context, msg message.SmsMessage) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}

	form := url.Values{}
	form.Set("apikey", p.APIKey)
	form.Set("sender", p.Sender)
	form.Set("numbers", strings.Join(msg.To, ","))
	form.Set("message", msg.FullText())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("textlocal API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var parsed textlocalResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if parsed.Status != "success" {
		detail := ""
		if len(parsed.Errors) > 0 {
			detail = parsed.Errors[0].Message
		}
		return fmt.Errorf("textlocal rejected message: %s", detail)
	}

	return nil
}
