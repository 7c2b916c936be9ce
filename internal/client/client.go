package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"dompet/internal/core"
	"dompet/internal/log"
)

// Client talks to the dompet JSON API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a client for baseURL, e.g. http://localhost:4000/api.
// Requests end only when ctx is cancelled.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// NewWithHTTPClient uses hc instead of the default client.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	c := New(baseURL)
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Title   string
	Message string
	Body    string
}

func (e *APIError) Error() string {
	switch {
	case e.Title != "" && e.Message != "":
		return fmt.Sprintf("%s: %s (status %d)", e.Title, e.Message, e.Status)
	case e.Title != "":
		return fmt.Sprintf("%s (status %d)", e.Title, e.Status)
	case e.Body != "":
		return e.Body
	}
	return fmt.Sprintf("HTTP error! status: %d", e.Status)
}

// CreateRequest is a new entry as sent to the ingestion endpoint.
type CreateRequest struct {
	Name        string
	Description string
	Datetime    time.Time
	Price       decimal.Decimal
}

type createPayload struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Datetime    string      `json:"datetime"`
	Price       json.Number `json:"price"`
}

// List fetches every entry, newest first.
func (c *Client) List(ctx context.Context) ([]core.LedgerItem, error) {
	var items []core.LedgerItem
	if err := c.do(ctx, http.MethodGet, "/transaction", nil, http.StatusOK, &items); err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	if items == nil {
		items = []core.LedgerItem{}
	}
	return items, nil
}

// Create posts one entry and returns it as stored.
func (c *Client) Create(ctx context.Context, req CreateRequest) (core.LedgerItem, error) {
	payload := createPayload{
		Name:        req.Name,
		Description: req.Description,
		Datetime:    req.Datetime.UTC().Format(time.RFC3339),
		Price:       json.Number(req.Price.String()),
	}
	var item core.LedgerItem
	if err := c.do(ctx, http.MethodPost, "/transaction", payload, http.StatusCreated, &item); err != nil {
		return core.LedgerItem{}, fmt.Errorf("Create: %w", err)
	}
	return item, nil
}

func (c *Client) do(ctx context.Context, method, path string, in any, want int, out any) error {
	logger := log.FromContext(ctx)

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	logger.DebugContext(ctx, "API response received",
		log.FieldMethod, method,
		log.FieldPath, path,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode != want {
		return decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	apiErr := &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil {
		apiErr.Title = body.Error
		apiErr.Message = body.Message
	}
	return apiErr
}
