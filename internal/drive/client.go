package drive

import (
	"context"
	"fmt"
	"time"

	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/teemow/attachdrop/internal/google"
	"github.com/teemow/attachdrop/internal/instrumentation"
)

// Client wraps the Drive service of one account.
type Client struct {
	service *drive.Service
	account string
	metrics *instrumentation.Metrics
}

// NewClient creates a Client from Google API client options.
func NewClient(ctx context.Context, account string, opts ...option.ClientOption) (*Client, error) {
	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}
	return &Client{service: srv, account: account}, nil
}

// NewClientForAccount creates a Client authenticated with the stored
// credentials of account.
func NewClientForAccount(ctx context.Context, tokens *google.FileTokenProvider, account string) (*Client, error) {
	httpClient, err := tokens.HTTPClient(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("no valid Google OAuth token found for account %s: %w", account, err)
	}
	return NewClient(ctx, account, option.WithHTTPClient(httpClient))
}

// WithMetrics records backend operation metrics for every API call.
func (c *Client) WithMetrics(m *instrumentation.Metrics) *Client {
	c.metrics = m
	return c
}

// Account returns the account this client is associated with.
func (c *Client) Account() string {
	return c.account
}

func (c *Client) observe(ctx context.Context, operation string, start time.Time, err error) {
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	c.metrics.RecordBackendOperation(ctx, instrumentation.BackendDrive, operation, status, time.Since(start))
}
