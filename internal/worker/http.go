package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// HTTPChannel talks the workers' JSON protocol: POST /<op> with a JSON body,
// response wrapped in a {"status": ..., "message": ...} envelope, audio
// carried base64-encoded. This is the protocol the resident-model servers
// have always spoken.
type HTTPChannel struct {
	kind    Kind
	baseURL string
	client  *http.Client
}

// NewHTTPChannel creates a channel to the worker at baseURL.
func NewHTTPChannel(kind Kind, baseURL string) *HTTPChannel {
	return &HTTPChannel{
		kind:    kind,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

// Call performs one request against the worker.
func (c *HTTPChannel) Call(ctx context.Context, op string, payload any) ([]byte, error) {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshalling %s request: %w", c.kind, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/"+op, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating %s request: %w", c.kind, err)
	}
	req.Header.Set("Content-Type", "application/json")

	slog.Debug("worker call", "kind", c.kind, "op", op, "bytes", len(bodyBytes))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, normalizeNetErr(err)
	}
	defer resp.Body.Close()

	// Workers report application failures inside the envelope; a non-2xx
	// status still carries a decodable body.
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", c.kind, err)
	}
	if resp.StatusCode >= 500 {
		return nil, &Error{Kind: c.kind, Message: fmt.Sprintf("status %d: %.200s", resp.StatusCode, respBody)}
	}
	return respBody, nil
}

// Healthy probes GET /health.
func (c *HTTPChannel) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return normalizeNetErr(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

// Close is a no-op — connections are pooled per-request.
func (c *HTTPChannel) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// normalizeNetErr maps transport errors onto the worker failure taxonomy.
func normalizeNetErr(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return context.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return context.DeadlineExceeded
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
