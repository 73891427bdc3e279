// Package api implements the authenticated HTTP transport and the endpoint
// registry shared by all OneContext facades.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
)

const authHeader = "API-KEY"

// Error is returned when the service responds with a non-success status.
// Message is empty when the response body carried no parseable error payload.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// FormFile is a single file part of a multipart upload request.
type FormFile struct {
	FieldName   string
	FileName    string
	ContentType string
	Content     []byte
}

// Client executes authenticated requests against the OneContext API and
// normalizes error handling. A single Client (and its connection pool) is
// shared across all facades and upload workers, so it must be safe for
// concurrent use; it holds no mutable state after construction.
type Client struct {
	httpClient   *http.Client
	apiKey       string
	extraHeaders map[string]string
	logger       log.Logger
}

// NewClient creates a transport using the given HTTP client. If httpClient
// is nil a default client with a tuned connection pool is used. The API key
// is attached to every request; extraHeaders are optional.
//
// The transport itself never retries. The upload pipeline layers its own
// retry policy around direct storage PUTs.
func NewClient(httpClient *http.Client, apiKey string, extraHeaders map[string]string, logger log.Logger) *Client {
	if httpClient == nil {
		httpClient = DefaultHTTPClient()
	}
	return &Client{
		httpClient:   httpClient,
		apiKey:       apiKey,
		extraHeaders: extraHeaders,
		logger:       logger,
	}
}

// DefaultHTTPClient creates an HTTP client suitable for concurrent API calls
// and parallel uploads from multiple workers.
func DefaultHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        50,
			MaxConnsPerHost:     20,
			IdleConnTimeout:     30 * time.Second,
			TLSHandshakeTimeout: 5 * time.Second,
			Proxy:               http.ProxyFromEnvironment,
		},
	}
}

// Get executes an authenticated GET request with optional query parameters.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	return c.send(ctx, http.MethodGet, endpoint, params, nil)
}

// Post executes an authenticated POST request with a JSON body.
func (c *Client) Post(ctx context.Context, endpoint string, body interface{}) (json.RawMessage, error) {
	return c.send(ctx, http.MethodPost, endpoint, nil, body)
}

// Delete executes an authenticated DELETE request with optional query
// parameters.
func (c *Client) Delete(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	return c.send(ctx, http.MethodDelete, endpoint, params, nil)
}

func (c *Client) send(ctx context.Context, method, endpoint string, params url.Values, body interface{}) (json.RawMessage, error) {
	requestURL := endpoint
	if len(params) > 0 {
		requestURL = fmt.Sprintf("%s?%s", endpoint, params.Encode())
	}

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req)
}

// PostMultipart executes an authenticated multipart/form-data POST request.
// Used by the legacy knowledge base upload endpoint, which proxies file
// bytes through the API instead of presigned storage URLs.
func (c *Client) PostMultipart(ctx context.Context, endpoint string, fields map[string]string, files []FormFile) (json.RawMessage, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("write form field %s: %w", key, err)
		}
	}

	for _, file := range files {
		part, err := writer.CreateFormFile(file.FieldName, file.FileName)
		if err != nil {
			return nil, fmt.Errorf("create form file %s: %w", file.FileName, err)
		}
		if _, err := part.Write(file.Content); err != nil {
			return nil, fmt.Errorf("write form file %s: %w", file.FileName, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.do(req)
}

func (c *Client) do(req *http.Request) (json.RawMessage, error) {
	req.Header.Set(authHeader, c.apiKey)
	for key, value := range c.extraHeaders {
		req.Header.Set(key, value)
	}

	c.logger.Debugf("%s %s", req.Method, req.URL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Warnf("close response body: %s", err)
		}
	}(resp.Body)

	return c.handleResponse(resp)
}

func (c *Client) handleResponse(resp *http.Response) (json.RawMessage, error) {
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	// An unparseable body falls back to an empty object; the status code
	// error path below still applies.
	if !json.Valid(payload) {
		payload = []byte("{}")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(payload),
		}
	}

	return payload, nil
}

// errorMessage extracts a human-readable message from an error payload.
// The service reports errors via "error"/"message" fields, or "detail" on
// some deployments.
func errorMessage(payload []byte) string {
	var body struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
		Detail  string          `json:"detail"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}

	var parts []string
	if body.Message != "" {
		parts = append(parts, body.Message)
	}
	if detail := rawToString(body.Error); detail != "" {
		parts = append(parts, detail)
	}
	if len(parts) == 0 && body.Detail != "" {
		parts = append(parts, body.Detail)
	}
	return strings.Join(parts, ": ")
}

// rawToString renders the "error" field, which is a string on most
// deployments but can be a list of messages.
func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}
	var asList []string
	if err := json.Unmarshal(raw, &asList); err == nil {
		return strings.Join(asList, "; ")
	}
	return string(raw)
}
