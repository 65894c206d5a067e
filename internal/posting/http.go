package posting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/romanqed/txgate/internal/txn"
)

// HTTPClient implements Client against the downstream posting
// service's REST contract: GET /transactions/{id} and
// POST /transactions.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	// auth, if set, is called on every outgoing request before it is
	// sent, letting callers inject auth headers without this package
	// needing to know about any particular scheme.
	auth func(*http.Request)
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithAuth registers a hook invoked on every outgoing request.
func WithAuth(hook func(*http.Request)) Option {
	return func(c *HTTPClient) { c.auth = hook }
}

// NewHTTPClient creates a Client bound to baseURL with the given
// per-call timeout.
func NewHTTPClient(baseURL string, timeout time.Duration, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{},
		timeout: timeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) do(req *http.Request) (*http.Response, error) {
	if c.auth != nil {
		c.auth(req)
	}
	return c.http.Do(req)
}

// Get implements Client.
func (c *HTTPClient) Get(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/transactions/%s", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return ErrAbsent
	default:
		return fmt.Errorf("posting: unexpected status on GET: %d", resp.StatusCode)
	}
}

// Post implements Client.
func (c *HTTPClient) Post(ctx context.Context, tx *txn.Transaction) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(tx)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/transactions", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("posting: unexpected status on POST: %d", resp.StatusCode)
	}
	return nil
}
