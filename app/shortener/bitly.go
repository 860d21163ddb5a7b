package shortener

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const bitlyShortenURL = "https://api-ssl.bitly.com/v4/shorten"

// BitlyClient shortens links via the Bitly v4 API.
type BitlyClient struct {
	Token      string
	HTTPClient *http.Client
	Endpoint   string
}

// NewBitlyClient creates a Bitly shortener client.
func NewBitlyClient(token string) *BitlyClient {
	return &BitlyClient{
		Token:      token,
		HTTPClient: http.DefaultClient,
		Endpoint:   bitlyShortenURL,
	}
}

type bitlyRequest struct {
	LongURL string `json:"long_url"`
}

type bitlyResponse struct {
	ID      string `json:"id"`
	Link    string `json:"link"`
	LongURL string `json:"long_url"`
}

// Shorten submits the long URL and returns the shortened link.
func (c *BitlyClient) Shorten(ctx context.Context, longURL string) (Result, error) {
	body, err := json.Marshal(bitlyRequest{LongURL: longURL})
	if err != nil {
		return Result{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return Result{Success: false}, fmt.Errorf("bitly API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var parsed bitlyResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return Result{}, fmt.Errorf("unmarshal response: %w", err)
	}
	if parsed.Link == "" {
		return Result{Success: false}, nil
	}

	return Result{Success: true, ShortURL: parsed.Link}, nil
}
