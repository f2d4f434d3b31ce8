// Package client talks to the dispatch endpoint the way the dashboard does:
// JSON posted as text/plain, CSV exports for bulk table reads.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

var (
	// ErrUnreachable wraps transport failures.
	ErrUnreachable = errors.New("could not reach the server; check the network connection and the configured dispatch URL")
	// ErrInvalidCredentials is returned by Login when no account matches.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// ServerError is an error envelope returned by the server.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string { return e.Message }

// AuthTokenHeader is read from login responses and replayed as a bearer token.
const AuthTokenHeader = "X-Auth-Token"

type Client struct {
	dispatchURL string
	exportURL   string
	http        *http.Client

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

// WithHTTPClient replaces the default client with its 30s timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken starts the client with an existing session token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New builds a client for dispatchURL. The export endpoint lives next to it.
func New(dispatchURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(dispatchURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid dispatch URL %q", dispatchURL)
	}
	export := *u
	export.Path = strings.TrimSuffix(strings.TrimSuffix(u.Path, "/"), "/exec") + "/export"
	export.RawQuery = ""

	c := &Client{
		dispatchURL: u.String(),
		exportURL:   export.String(),
		http:        &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Token returns the session token captured from the last login, if any.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// Call runs one action and decodes its data into out. A null data payload
// leaves out untouched.
func (c *Client) Call(ctx context.Context, action string, payload, out any) error {
	if payload == nil {
		payload = struct{}{}
	}
	body, err := json.Marshal(map[string]any{"action": action, "payload": payload})
	if err != nil {
		return fmt.Errorf("encode %s: %w", action, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.dispatchURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain;charset=utf-8")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	env, err := readEnvelope(resp)
	if err != nil {
		return err
	}
	if env.Status != "success" {
		return &ServerError{StatusCode: resp.StatusCode, Message: env.Message}
	}
	if tok := resp.Header.Get(AuthTokenHeader); tok != "" {
		c.mu.Lock()
		c.token = tok
		c.mu.Unlock()
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s data: %w", action, err)
	}
	return nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return resp, nil
}

func readEnvelope(resp *http.Response) (envelope, error) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return envelope{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Status == "" {
		return envelope{}, fmt.Errorf("unexpected response from server (HTTP %d)", resp.StatusCode)
	}
	return env, nil
}
