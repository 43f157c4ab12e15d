package webhook

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Notifier posts alert payloads to an external webhook endpoint.
type Notifier interface {
	Notify(ctx context.Context, payload any) error
}

// Client is a resty-backed implementation of Notifier.
type Client struct {
	httpClient *resty.Client
	url        string
}

// NewClient builds a webhook client for the given target URL.
func NewClient(url string) *Client {
	restyClient := resty.New()
	restyClient.
		SetHeader("Content-Type", "application/json").
		SetTimeout(10 * time.Second)

	return &Client{
		httpClient: restyClient,
		url:        url,
	}
}

// Notify POSTs the payload as JSON. Delivery is best effort, there is no retry.
func (c *Client) Notify(ctx context.Context, payload any) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		Post(c.url)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		return fmt.Errorf("webhook error: status=%d, body=%s", resp.StatusCode(), resp.String())
	}

	return nil
}
