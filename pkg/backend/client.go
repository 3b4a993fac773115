// Package backend is the HTTP client for the fragmentation and replication
// REST API consumed by the dashboard.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/salahayoub/distdash/pkg/types"
)

// DefaultBaseURL is where the backend listens in a local setup.
const DefaultBaseURL = "http://localhost:8000/api/v1"

// DefaultTimeout bounds a single request. Replication calls on the real
// backend can take several seconds.
const DefaultTimeout = 15 * time.Second

// Endpoint paths relative to the base URL.
const (
	PathEmployees       = "/empleados-vista-completa"
	PathClients         = "/clientes-unificados"
	PathBidirectional   = "/replicacion-bidireccional"
	PathQuitoCuenca     = "/replicacion-unidireccional/quito-cuenca"
	PathGuayaquilCuenca = "/replicacion-unidireccional/guayaquil-cuenca"
)

const (
	maxErrorBodyBytes = 4096
	contentTypeJSON   = "application/json"
	userAgent         = "distdash"
)

// Client defines the backend operations the dashboard needs.
// Abstracted as an interface so handlers can be tested against fakes.
type Client interface {
	// Employees fetches the unified employee view.
	Employees(ctx context.Context) ([]types.Employee, error)

	// Clients fetches the unified client view.
	Clients(ctx context.Context) ([]types.Client, error)

	// Do sends an arbitrary request and returns the raw JSON body of a 2xx
	// response.
	Do(ctx context.Context, method, path string, query url.Values) (json.RawMessage, error)
}

// ResponseError is returned for non-2xx responses.
type ResponseError struct {
	Status int
	Body   string
	Detail string // "detail" field of the body, if any
}

func (e *ResponseError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Status, e.Detail)
	}
	if e.Body != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("backend returned %d", e.Status)
}

// HTTPClient implements Client over HTTP.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.httpClient.Timeout = d }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.httpClient = hc }
}

// NewHTTPClient creates a client for the API rooted at baseURL
// (e.g. "http://localhost:8000/api/v1").
func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &HTTPClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root this client talks to.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// Employees fetches GET /empleados-vista-completa.
func (c *HTTPClient) Employees(ctx context.Context) ([]types.Employee, error) {
	var rows []types.Employee
	if err := c.getJSON(ctx, PathEmployees, &rows); err != nil {
		return nil, fmt.Errorf("fetch employees: %w", err)
	}
	return rows, nil
}

// Clients fetches GET /clientes-unificados.
func (c *HTTPClient) Clients(ctx context.Context) ([]types.Client, error) {
	var rows []types.Client
	if err := c.getJSON(ctx, PathClients, &rows); err != nil {
		return nil, fmt.Errorf("fetch clients: %w", err)
	}
	return rows, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, out interface{}) error {
	raw, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Do implements Client.
func (c *HTTPClient) Do(ctx context.Context, method, path string, query url.Values) (json.RawMessage, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("User-Agent", userAgent)
	if method != http.MethodGet {
		req.Header.Set("Content-Type", contentTypeJSON)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("decode response: body is not valid JSON")
	}
	return json.RawMessage(body), nil
}

func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	re := &ResponseError{
		Status: resp.StatusCode,
		Body:   string(bytes.TrimSpace(body)),
	}
	var errResp types.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		re.Detail = errResp.Detail
	}
	return re
}
