// Package client speaks the relay wire protocol: websocket sender/receiver and the plain HTTP path.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anthanhphan/go-transit-relay/internal/relay/domain"
	"github.com/gorilla/websocket"
)

const (
	goSignal = "Go for file chunks"

	defaultChunkSize = 64 * 1024
)

// RelayError is an "Error: ..." message reported by the relay.
type RelayError struct {
	Status  int
	Message string
}

func (e *RelayError) Error() string {
	return e.Message
}

// ErrIncomplete means the connection ended before the transfer finished.
var ErrIncomplete = errors.New("connection closed before the transfer completed")

type Client struct {
	base      *url.URL
	dialer    *websocket.Dialer
	http      *http.Client
	chunkSize int
}

// Option configures a Client.
type Option func(*Client)

// WithChunkSize sets the size of outgoing binary frames.
func WithChunkSize(n int) Option {
	return func(c *Client) {
		if n > 0 && n <= domain.MaxChunkSize {
			c.chunkSize = n
		}
	}
}

// WithHTTPClient replaces the client used for the plain HTTP path.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a client for the relay at server, e.g. "http://localhost:8080".
func New(server string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(server, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported server scheme %q", base.Scheme)
	}

	c := &Client{
		base: base,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		http:      &http.Client{},
		chunkSize: defaultChunkSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) httpURL(path string) string {
	u := *c.base
	u.Path = path
	return u.String()
}

func (c *Client) wsURL(path string) string {
	u := *c.base
	u.Path = path
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	return u.String()
}

func relayError(status int, text string) error {
	return &RelayError{Status: status, Message: strings.TrimSpace(text)}
}

func isRelayError(text string) bool {
	return strings.HasPrefix(text, "Error")
}

// NewID asks the relay for a fresh transfer ID.
func (c *Client) NewID(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.httpURL("/api/new-id"), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", relayError(resp.StatusCode, string(body))
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode new id: %w", err)
	}
	return out.ID, nil
}
