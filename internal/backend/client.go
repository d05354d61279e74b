// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jeranaias/datachat-tui/internal/model"
)

// Configuration constants for the dataset assistant API.
const (
	// DefaultBaseURL is the base URL used when none is configured.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultTimeout bounds every request, so a hung call cannot leave a
	// command card executing forever.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize is the default cap on a response body.
	MaxResponseSize = 10 * 1024 * 1024

	// UserAgent identifies the client to the backend.
	UserAgent = "datachat-tui"
)

// API paths.
const (
	PathChat           = "/api/chat"
	PathSearchDataset  = "/api/search_dataset"
	PathSearchDatacard = "/api/search_datacard"
	PathQueryDataset   = "/api/query_dataset"
	PathDatacard       = "/api/datacard"
)

var (
	// sharedTransport pools connections across every client.
	sharedTransport = &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
)

// Error variables for common backend failures.
var (
	// ErrEmptyQuery indicates a search or query without text.
	ErrEmptyQuery = errors.New("query must not be empty")

	// ErrTimeout indicates the request did not finish within the client timeout.
	ErrTimeout = errors.New("request timed out")

	// ErrResponseTooLarge indicates the body exceeded the size cap.
	ErrResponseTooLarge = errors.New("response exceeded maximum size")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
	Path    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the dataset assistant API.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	timeout     time.Duration
	maxResponse int64
	limiter     *rate.Limiter
	logger      *zap.Logger
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		httpClient:  &http.Client{Transport: sharedTransport},
		timeout:     DefaultTimeout,
		maxResponse: MaxResponseSize,
		logger:      zap.NewNop(),
	}
}

// WithTimeout sets the per-request timeout. Non-positive values are ignored.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.timeout = timeout
	}
	return c
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// WithRateLimit throttles outbound requests to rps per second.
// A non-positive rps removes the limiter.
func (c *Client) WithRateLimit(rps float64, burst int) *Client {
	if rps <= 0 {
		c.limiter = nil
		return c
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

// WithMaxResponseSize sets the response body cap in bytes.
func (c *Client) WithMaxResponseSize(n int64) *Client {
	if n > 0 {
		c.maxResponse = n
	}
	return c
}

// WithLogger sets the logger used for request tracing.
func (c *Client) WithLogger(logger *zap.Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// =============================================================================
// CHAT
// =============================================================================

// JSONText holds an auxiliary reply field that is documented as JSON text.
// The backend sends either a JSON string containing the document or the
// document itself; both decode to the same text.
type JSONText string

// UnmarshalJSON implements json.Unmarshaler.
func (t *JSONText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = JSONText(s)
		return nil
	}
	*t = JSONText(data)
	return nil
}

// String returns the text.
func (t JSONText) String() string {
	return string(t)
}

// ChatReply is the /api/chat response body.
type ChatReply struct {
	Message              string   `json:"message"`
	RetrievedInformation JSONText `json:"retrieved_information,omitempty"`
	SuggestedQuery       JSONText `json:"suggested_query,omitempty"`
	Error                string   `json:"error,omitempty"`
}

// Chat posts a user message and the prior history as a multipart form.
func (c *Client) Chat(ctx context.Context, message string, history []model.WireTurn) (*ChatReply, error) {
	historyJSON, err := model.MarshalWire(history)
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat history: %w", err)
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("message", message); err != nil {
		return nil, fmt.Errorf("failed to build form: %w", err)
	}
	if err := form.WriteField("chat_history", historyJSON); err != nil {
		return nil, fmt.Errorf("failed to build form: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("failed to build form: %w", err)
	}

	data, err := c.do(ctx, http.MethodPost, PathChat, &body, form.FormDataContentType())
	if err != nil {
		return nil, err
	}

	var reply ChatReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, fmt.Errorf("failed to parse chat response: %w", err)
	}
	if reply.Error != "" && reply.Message == "" {
		return nil, &APIError{Status: http.StatusOK, Message: reply.Error, Path: PathChat}
	}
	return &reply, nil
}

// =============================================================================
// SEARCH / QUERY
// =============================================================================

// SearchDatasets calls GET /api/search_dataset.
func (c *Client) SearchDatasets(ctx context.Context, query string) (json.RawMessage, error) {
	return c.search(ctx, PathSearchDataset, query)
}

// SearchDatacards calls GET /api/search_datacard.
func (c *Client) SearchDatacards(ctx context.Context, query string) (json.RawMessage, error) {
	return c.search(ctx, PathSearchDatacard, query)
}

func (c *Client) search(ctx context.Context, path, query string) (json.RawMessage, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	endpoint := path + "?query=" + url.QueryEscape(query)
	data, err := c.do(ctx, http.MethodGet, endpoint, nil, "")
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

// queryRequest is the /api/query_dataset body.
type queryRequest struct {
	Query   any    `json:"query"`
	Dataset string `json:"dataset"`
}

// QueryDataset calls POST /api/query_dataset. The dataset must be
// "organization/slug"; otherwise model.ErrInvalidDataset is returned and no
// request is made. query is a string or a structured query object.
func (c *Client) QueryDataset(ctx context.Context, query any, dataset string) (json.RawMessage, error) {
	ref, err := model.ParseDatasetRef(dataset)
	if err != nil {
		return nil, err
	}
	if s, ok := query.(string); ok && strings.TrimSpace(s) == "" {
		return nil, ErrEmptyQuery
	}

	payload, err := json.Marshal(queryRequest{Query: query, Dataset: ref.String()})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	data, err := c.do(ctx, http.MethodPost, PathQueryDataset, bytes.NewReader(payload), "application/json")
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

// Datacard calls GET /api/datacard/{organization}/{definition}.
func (c *Client) Datacard(ctx context.Context, ref model.DatasetRef) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/%s/%s", PathDatacard, url.PathEscape(ref.Organization), url.PathEscape(ref.Slug))
	data, err := c.do(ctx, http.MethodGet, endpoint, nil, "")
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

// =============================================================================
// TRANSPORT
// =============================================================================

// do performs one request. There is no retry: each call is exactly one
// outbound request.
func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader, contentType string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	path := req.URL.Path
	start := time.Now()
	c.logger.Debug("backend request", zap.String("method", method), zap.String("path", path))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s: %s %s", ErrTimeout, c.timeout, method, path)
		}
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := c.readResponse(resp)
	c.logger.Debug("backend response",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
		zap.Int("bytes", len(data)))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s: %s %s", ErrTimeout, c.timeout, method, path)
		}
		return nil, err
	}

	if !statusOK(endpoint, resp.StatusCode) {
		apiErr := parseAPIError(resp.StatusCode, data)
		apiErr.Path = path
		c.logger.Warn("backend error", zap.String("path", path), zap.Int("status", resp.StatusCode), zap.String("message", apiErr.Message))
		return nil, apiErr
	}
	return data, nil
}

// statusOK reports whether status is a success for endpoint. The chat
// endpoint answers 200 on success, so every other status is a failure there.
func statusOK(endpoint string, status int) bool {
	if endpoint == PathChat {
		return status == http.StatusOK
	}
	return status >= 200 && status <= 299
}

// readResponse reads the body, failing when it exceeds the size cap.
func (c *Client) readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponse+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > c.maxResponse {
		return nil, fmt.Errorf("%w of %d bytes", ErrResponseTooLarge, c.maxResponse)
	}
	return body, nil
}

// parseAPIError extracts the message from an error body. FastAPI-style
// backends put it in "detail", the chat endpoint uses "error".
func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err == nil {
		for _, key := range []string{"error", "detail", "message"} {
			raw, ok := envelope[key]
			if !ok {
				continue
			}
			var s string
			if err := json.Unmarshal(raw, &s); err == nil && s != "" {
				apiErr.Message = s
				return apiErr
			}
			if len(raw) > 0 && string(raw) != "null" {
				apiErr.Message = string(raw)
				return apiErr
			}
		}
	}

	if text := strings.TrimSpace(string(body)); text != "" && len(text) <= 200 && !strings.HasPrefix(text, "<") {
		apiErr.Message = text
		return apiErr
	}

	apiErr.Message = http.StatusText(status)
	if apiErr.Message == "" {
		apiErr.Message = "unexpected response"
	}
	return apiErr
}
