// Package httpstore is a docstore.Store that talks to a remote docserver.
package httpstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/idilsaglam/tada/internal/docstore"
)

const maxBody = 4 << 20

// Option tweaks a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithToken sends the token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// Client reads and writes documents over HTTP.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	token   string
}

// New returns a client for the server at baseURL (e.g. http://127.0.0.1:8087).
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	// no client timeout: a read runs until it settles or the caller's ctx ends
	c := &Client{baseURL: u, http: &http.Client{}}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

func (c *Client) docURL(collection, id string) (string, error) {
	if err := docstore.ValidateKey(collection, id); err != nil {
		return "", err
	}
	return c.baseURL.JoinPath("v1", url.PathEscape(collection), url.PathEscape(id)).String(), nil
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	target, err := c.docURL(collection, id)
	if err != nil {
		return docstore.Document{}, err
	}
	req, err := c.newRequest(ctx, http.MethodGet, target, nil)
	if err != nil {
		return docstore.Document{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return docstore.Document{}, fmt.Errorf("failed to get: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var fields docstore.Fields
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&fields); err != nil {
			return docstore.Document{}, fmt.Errorf("failed to decode body: %w", err)
		}
		if fields == nil {
			fields = docstore.Fields{}
		}
		return docstore.Document{Collection: collection, ID: id, Fields: fields}, nil
	case http.StatusNotFound:
		return docstore.Document{}, docstore.ErrNotFound
	default:
		return docstore.Document{}, statusError(resp)
	}
}

func (c *Client) Set(ctx context.Context, collection, id string, fields docstore.Fields) error {
	target, err := c.docURL(collection, id)
	if err != nil {
		return err
	}
	if fields == nil {
		fields = docstore.Fields{}
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPut, target, bytes.NewReader(b))
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to put: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return statusError(resp)
	}
	return nil
}

// StatusError is returned for unexpected HTTP responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status code: %d", e.Code)
	}
	return fmt.Sprintf("unexpected status code: %d: %s", e.Code, e.Body)
}

func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
}
