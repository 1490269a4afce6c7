// Package transport performs HTTP against the MCP server: JSON GET/POST
// with a bounded retry policy for transient connection failures, and
// streamed archive downloads.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"syscall"

	"reorc-cli/internal/config"
	"reorc-cli/internal/core"
)

// Client issues HTTP requests with the configured timeout and retry policy.
// Failures are classified: connection-refused-class dial errors are retried
// up to the configured count with a fixed delay; everything else (non-2xx,
// unreadable body) fails immediately.
type Client struct {
	getClient      *http.Client
	postClient     *http.Client
	downloadClient *http.Client
	cfg            config.TransportConfig
	sleeper        core.Sleeper
	logger         core.Logger
	idgen          core.IDGenerator
}

// NewClient creates a Client from the transport settings.
func NewClient(cfg config.TransportConfig, sleeper core.Sleeper, logger core.Logger, idgen core.IDGenerator) *Client {
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout()}
	base := &http.Transport{DialContext: dialer.DialContext}

	return &Client{
		getClient:  &http.Client{Transport: base, Timeout: cfg.GetTimeout()},
		postClient: &http.Client{Transport: base, Timeout: cfg.PostTimeout()},
		// Archive downloads stream arbitrarily large bodies: connect
		// timeout only, no overall deadline.
		downloadClient: &http.Client{Transport: base},
		cfg:            cfg,
		sleeper:        sleeper,
		logger:         logger,
		idgen:          idgen,
	}
}

// GetJSON issues a GET and returns the response body as raw JSON. A 2xx
// response with a non-JSON body is wrapped as {"data": "<raw text>"}.
func (c *Client) GetJSON(ctx context.Context, url string, headers map[string]string) (json.RawMessage, error) {
	return c.doJSON(ctx, c.getClient, http.MethodGet, url, headers, nil)
}

// PostJSON issues a POST with a JSON-encoded body and returns the response
// body as raw JSON.
func (c *Client) PostJSON(ctx context.Context, url string, headers map[string]string, body any) (json.RawMessage, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}
	if headers == nil {
		headers = map[string]string{}
	}
	headers["Content-Type"] = "application/json"
	return c.doJSON(ctx, c.postClient, http.MethodPost, url, headers, encoded)
}

func (c *Client) doJSON(ctx context.Context, hc *http.Client, method, url string, headers map[string]string, body []byte) (json.RawMessage, error) {
	requestID := c.idgen.New()

	var lastErr error
	for attempt := 1; attempt <= c.cfg.Retries; attempt++ {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := hc.Do(req)
		if err != nil {
			if !isTransient(err) {
				return nil, fmt.Errorf("%w: %v", core.ErrNetwork, err)
			}
			lastErr = err
			if attempt < c.cfg.Retries {
				c.logger.Warn("connection failed, retrying",
					"request_id", requestID, "attempt", attempt, "retries", c.cfg.Retries)
				c.sleeper.Sleep(c.cfg.RetryDelay())
			}
			continue
		}

		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: reading response body: %v", core.ErrNetwork, err)
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("%w: HTTP %d: %s", core.ErrNetwork, resp.StatusCode, string(raw))
		}

		if json.Valid(raw) && len(bytes.TrimSpace(raw)) > 0 {
			return raw, nil
		}

		// Non-JSON success body: wrap it so callers always get JSON.
		wrapped, err := json.Marshal(map[string]string{"data": string(raw)})
		if err != nil {
			return nil, fmt.Errorf("wrapping response body: %w", err)
		}
		return wrapped, nil
	}

	return nil, fmt.Errorf("%w: %v", core.ErrNetwork, lastErr)
}

// Download streams a GET response body to destPath. Any non-200 status is
// an error; there is no retry at this layer.
func (c *Client) Download(ctx context.Context, url string, headers map[string]string, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.downloadClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: HTTP %d", core.ErrNetwork, resp.StatusCode)
	}

	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", destPath, err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(destPath)
		return fmt.Errorf("%w: streaming download: %v", core.ErrNetwork, err)
	}
	return f.Close()
}

// isTransient reports whether err is a connection-refused-class failure
// worth retrying. Timeouts, TLS errors and protocol errors are not.
func isTransient(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial" && !opErr.Timeout()
	}
	return false
}
