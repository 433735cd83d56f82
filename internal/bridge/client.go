package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Client is the rendering-surface side of a Channel.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
}

// NewClient returns a client for endpoint (e.g.
// "http://127.0.0.1:53817/ncbridge"). A nil hc uses a client with a short
// timeout.
func NewClient(endpoint, token string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 5 * time.Second}
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		token:    token,
		http:     hc,
	}
}

// Endpoint returns the base URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Poll fetches the oldest envelope newer than after. ok is false on 204.
func (c *Client) Poll(ctx context.Context, after uint64) (MessageEnvelope, bool, error) {
	resp, err := c.do(ctx, http.MethodGet, "/poll?after="+strconv.FormatUint(after, 10), nil)
	if err != nil {
		return MessageEnvelope{}, false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var env MessageEnvelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			return MessageEnvelope{}, false, fmt.Errorf("decode envelope: %w", err)
		}
		return env, true, nil
	case http.StatusNoContent:
		return MessageEnvelope{}, false, nil
	default:
		return MessageEnvelope{}, false, statusError(resp)
	}
}

// Post submits payload to the host's listeners.
func (c *Client) Post(ctx context.Context, payload string) error {
	resp, err := c.do(ctx, http.MethodPost, "/event", strings.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return statusError(resp)
	}
	return nil
}

// Health checks the channel is reachable and the token accepted.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set(TokenHeader, c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func statusError(resp *http.Response) error {
	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	text, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("bridge: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(text)))
}
