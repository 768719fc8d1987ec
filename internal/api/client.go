// Package api provides the authenticated HTTP client for the commerce
// backend. It attaches bearer and tenant-scoping headers, retries once
// after a token refresh on 401, and classifies failures into the
// output error taxonomy.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sellhub/shopctl/internal/auth"
	"github.com/sellhub/shopctl/internal/config"
	"github.com/sellhub/shopctl/internal/credstore"
	"github.com/sellhub/shopctl/internal/observability"
	"github.com/sellhub/shopctl/internal/output"
	"github.com/sellhub/shopctl/internal/version"
)

// RequestContext describes a single call through the client. StoreID
// and BranchID control the tenant-scoping headers: each header is sent
// iff its field is non-empty. Headers may add keys but never override
// ones the client sets itself.
type RequestContext struct {
	Endpoint string
	Method   string
	Body     any
	StoreID  string
	BranchID string
	Headers  map[string]string
}

// Response wraps an API response. Data is the raw JSON body; envelope
// interpretation belongs to callers.
type Response struct {
	Data       json.RawMessage
	StatusCode int
	Headers    http.Header
}

// UnmarshalData unmarshals the response data into the given value.
func (r *Response) UnmarshalData(v any) error {
	return json.Unmarshal(r.Data, v)
}

// Envelope is the backend's standard response wrapper.
type Envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Pagination json.RawMessage `json:"pagination"`
}

// Envelope parses the response body as the standard wrapper.
func (r *Response) Envelope() (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(r.Data, &env); err != nil {
		return nil, fmt.Errorf("response is not a standard envelope: %w", err)
	}
	return &env, nil
}

// Client executes authenticated requests against the backend.
type Client struct {
	httpClient *http.Client
	auth       *auth.Manager
	creds      *credstore.Store
	cfg        *config.Config
	log        *observability.Log
	collector  *observability.SessionCollector
}

// NewClient creates a new API client.
func NewClient(cfg *config.Config, authMgr *auth.Manager, creds *credstore.Store, log *observability.Log, collector *observability.SessionCollector) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		auth:      authMgr,
		creds:     creds,
		cfg:       cfg,
		log:       log,
		collector: collector,
	}
}

// Get performs a GET request scoped to the configured store and branch.
func (c *Client) Get(ctx context.Context, endpoint string) (*Response, error) {
	return c.Execute(ctx, c.scoped(endpoint, http.MethodGet, nil))
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, endpoint string, body any) (*Response, error) {
	return c.Execute(ctx, c.scoped(endpoint, http.MethodPost, body))
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, endpoint string, body any) (*Response, error) {
	return c.Execute(ctx, c.scoped(endpoint, http.MethodPut, body))
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, endpoint string) (*Response, error) {
	return c.Execute(ctx, c.scoped(endpoint, http.MethodDelete, nil))
}

func (c *Client) scoped(endpoint, method string, body any) RequestContext {
	return RequestContext{
		Endpoint: endpoint,
		Method:   method,
		Body:     body,
		StoreID:  c.cfg.StoreID,
		BranchID: c.cfg.BranchID,
	}
}

// Execute runs the request, transparently refreshing the access token
// and retrying once when the backend answers 401.
func (c *Client) Execute(ctx context.Context, rc RequestContext) (*Response, error) {
	return c.do(ctx, rc, true)
}

// ExecuteNoRefresh runs the request without the refresh-and-retry
// step; a 401 surfaces immediately as an auth error.
func (c *Client) ExecuteNoRefresh(ctx context.Context, rc RequestContext) (*Response, error) {
	return c.do(ctx, rc, false)
}

func (c *Client) do(ctx context.Context, rc RequestContext, autoRefresh bool) (*Response, error) {
	endpoint := sanitizeEndpoint(rc.Endpoint)
	url := config.NormalizeBaseURL(c.cfg.BaseURL) + endpoint

	method := rc.Method
	if method == "" {
		method = http.MethodGet
	}

	bodyBytes, err := encodeBody(rc.Body)
	if err != nil {
		return nil, err
	}

	resp, err := c.attempt(ctx, method, url, bodyBytes, rc)
	if err != errTokenExpired {
		return resp, err
	}

	if !autoRefresh {
		return nil, output.ErrAuth("Session expired")
	}
	if c.collector != nil {
		c.collector.RecordRefresh()
	}
	if !c.auth.Refresh(ctx) {
		return nil, output.ErrAuth("Session expired")
	}

	// The retry re-reads the credential store, so it always observes
	// the token the refresh just wrote.
	resp, err = c.attempt(ctx, method, url, bodyBytes, rc)
	if err == errTokenExpired {
		return nil, output.ErrAuth("Session expired")
	}
	return resp, err
}

// errTokenExpired is the internal signal for a 401; do() decides
// whether it becomes a refresh attempt or a user-facing auth error.
var errTokenExpired = fmt.Errorf("access token rejected")

func (c *Client) attempt(ctx context.Context, method, url string, body []byte, rc RequestContext) (*Response, error) {
	creds := c.creds.Load()
	if creds == nil {
		return nil, output.ErrAuth("Not authenticated")
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if rc.StoreID != "" {
		req.Header.Set("X-Store-ID", rc.StoreID)
	}
	if rc.BranchID != "" {
		req.Header.Set("X-Branch-ID", rc.BranchID)
	}
	for k, v := range rc.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Record(observability.Event{
			Level:    observability.LevelError,
			Method:   method,
			URL:      url,
			Duration: time.Since(start),
			Err:      err,
		})
		// Transport failures never trigger a refresh.
		return nil, output.ErrNetwork(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	c.log.Record(observability.Event{
		Level:    levelForStatus(resp.StatusCode),
		Method:   method,
		URL:      url,
		Status:   resp.StatusCode,
		Duration: time.Since(start),
	})
	c.log.Record(observability.Event{
		Level:        observability.LevelDebug,
		RequestBody:  observability.RedactBody(body),
		ResponseBody: observability.RedactBody(respBody),
	})

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return &Response{
			Data:       respBody,
			StatusCode: resp.StatusCode,
			Headers:    resp.Header,
		}, nil
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, errTokenExpired
	}
	return nil, classify(resp.StatusCode, respBody)
}

func levelForStatus(status int) observability.Level {
	if status >= 400 {
		return observability.LevelWarn
	}
	return observability.LevelInfo
}

// classify maps a non-2xx, non-401 response to a typed error. The
// backend's message field is surfaced verbatim when present.
func classify(status int, body []byte) error {
	msg := envelopeMessage(body)

	switch {
	case status >= 500:
		if msg == "" {
			msg = fmt.Sprintf("Server error (%d)", status)
		}
		return output.ErrServer(status, msg)
	case status == http.StatusForbidden:
		if msg == "" {
			msg = "Access denied"
		}
		if output.IsBillingMessage(msg) {
			return output.ErrBilling(msg)
		}
		return output.ErrForbidden(msg)
	case status == http.StatusNotFound:
		if msg == "" {
			msg = "Resource not found"
		}
		return output.ErrNotFound(msg)
	default:
		if msg == "" {
			msg = fmt.Sprintf("API request failed: %d", status)
		}
		if output.IsBillingMessage(msg) {
			return output.ErrBilling(msg)
		}
		return output.ErrAPI(status, msg)
	}
}

func envelopeMessage(body []byte) string {
	var env struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	return env.Message
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		return data, nil
	}
}

// sanitizeEndpoint strips path-traversal sequences and ensures a
// leading slash. Traversal is removed rather than rejected so a
// malformed path degrades to a 404 instead of an escape.
func sanitizeEndpoint(endpoint string) string {
	for strings.Contains(endpoint, "../") {
		endpoint = strings.ReplaceAll(endpoint, "../", "")
	}
	endpoint = strings.TrimSuffix(endpoint, "/..")
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return endpoint
}
