package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultBaseURL is the books resource root of the local development backend.
const DefaultBaseURL = "http://localhost:3333/libros"

var _ BookClient = (*LibrosClient)(nil) // ensure LibrosClient implements BookClient.

// HTTPError is returned when the backend answers with a non-2xx status.
// The body is kept untouched so callers can inspect what the server said.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// LibrosClient issues the books resource calls against a single base URL.
// Each call is exactly one round trip. Nothing is cached or retried.
type LibrosClient struct {
	baseURL string
	client  *http.Client
}

// NewLibrosClient provides a client rooted at baseURL. A nil httpClient
// falls back to http.DefaultClient.
func NewLibrosClient(baseURL string, httpClient *http.Client) *LibrosClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &LibrosClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
	}
}

// BaseURL returns the root under which all book requests are issued.
func (c *LibrosClient) BaseURL() string {
	return c.baseURL
}

// List fetches the whole collection as returned by the backend. Members
// outside the five book fields survive in each record's Extra.
func (c *LibrosClient) List(ctx context.Context) ([]Book, error) {
	var books []Book
	if _, err := c.do(ctx, http.MethodGet, c.baseURL, nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

// Get fetches a single book.
func (c *LibrosClient) Get(ctx context.Context, id int) (Book, error) {
	var book Book
	if _, err := c.do(ctx, http.MethodGet, c.itemURL(id), nil, &book); err != nil {
		return Book{}, err
	}
	return book, nil
}

// Create sends the four mutable fields and returns the record created by
// the backend, which carries the assigned identifier.
func (c *LibrosClient) Create(ctx context.Context, payload BookPayload) (Book, error) {
	var book Book
	if _, err := c.do(ctx, http.MethodPost, c.baseURL, &payload, &book); err != nil {
		return Book{}, err
	}
	return book, nil
}

// Update replaces the four mutable fields of the book.
func (c *LibrosClient) Update(ctx context.Context, id int, payload BookPayload) (Book, error) {
	var book Book
	if _, err := c.do(ctx, http.MethodPut, c.itemURL(id), &payload, &book); err != nil {
		return Book{}, err
	}
	return book, nil
}

// Delete removes the book and returns whatever the backend answered, often nothing.
func (c *LibrosClient) Delete(ctx context.Context, id int) (json.RawMessage, error) {
	data, err := c.do(ctx, http.MethodDelete, c.itemURL(id), nil, nil)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

func (c *LibrosClient) itemURL(id int) string {
	return fmt.Sprintf("%s/%d", c.baseURL, id)
}

// do performs the request and decodes a non-empty success body into out
// when out is not nil. The raw body is returned in all success cases.
func (c *LibrosClient) do(ctx context.Context, method, url string, payload *BookPayload, out interface{}) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(payload); err != nil {
			return nil, err
		}
		body = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Method: method, URL: url, StatusCode: resp.StatusCode, Body: data}
	}

	if out != nil && len(bytes.TrimSpace(data)) != 0 {
		if err = json.Unmarshal(data, out); err != nil {
			return nil, fmt.Errorf("%s %s: decode response: %w", method, url, err)
		}
	}
	return data, nil
}
