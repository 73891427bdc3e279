// Package onecontext is a Go client for the OneContext API: named contexts
// of uploaded files that are chunked and embedded server-side and queryable
// via hybrid semantic/full-text search.
//
// All state lives server-side; the client marshals method calls into HTTP
// requests, handles authentication, multipart and presigned-URL uploads,
// pagination, and response parsing into typed records.
package onecontext

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/pathutil"

	"github.com/onecontext/onecontext-go/api"
	"github.com/onecontext/onecontext-go/upload"
)

const (
	// DefaultBaseURL is used when no base URL is configured explicitly or
	// via ONECONTEXT_BASE_URL.
	DefaultBaseURL = "https://app.onecontext.ai/api/v5/"

	// APIKeyEnv is the environment variable consulted when no API key is
	// passed explicitly.
	APIKeyEnv = "ONECONTEXT_API_KEY"

	// BaseURLEnv is the environment variable consulted when no base URL is
	// passed explicitly.
	BaseURLEnv = "ONECONTEXT_BASE_URL"
)

// Client is the entry point of the SDK. It owns the shared transport and
// acts as a factory for the Context, KnowledgeBase, Pipeline and VectorIndex
// facades. Safe for concurrent use.
type Client struct {
	apiClient    *api.Client
	endpoints    api.Endpoints
	httpClient   *http.Client
	logger       log.Logger
	uploadConfig upload.Config
	pathChecker  pathutil.PathChecker
	pathModifier pathutil.PathModifier
}

// New creates a client. The API key resolves from the explicit option first,
// then the ONECONTEXT_API_KEY environment variable; if neither is set a
// ConfigurationError is returned before any network call. The base URL
// resolves the same way, falling back to DefaultBaseURL.
func New(options ...Option) (*Client, error) {
	cfg := clientConfig{
		logger:  log.NewLogger(),
		envRepo: env.NewRepository(),
	}
	for _, option := range options {
		option(&cfg)
	}
	if cfg.verbose {
		cfg.logger.EnableDebugLog(true)
	}

	apiKey := cfg.apiKey
	if apiKey == "" {
		apiKey = cfg.envRepo.Get(APIKeyEnv)
	}
	if apiKey == "" {
		return nil, &ConfigurationError{
			msg: fmt.Sprintf("no API key detected: pass one explicitly or set the %s environment variable", APIKeyEnv),
		}
	}

	baseURL := cfg.baseURL
	if baseURL == "" {
		baseURL = cfg.envRepo.Get(BaseURLEnv)
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = api.DefaultHTTPClient()
	}

	return &Client{
		apiClient:    api.NewClient(httpClient, apiKey, cfg.extraHeaders, cfg.logger),
		endpoints:    api.NewEndpoints(baseURL),
		httpClient:   httpClient,
		logger:       cfg.logger,
		uploadConfig: cfg.uploadConfig,
		pathChecker:  pathutil.NewPathChecker(),
		pathModifier: pathutil.NewPathModifier(),
	}, nil
}

// BaseURL returns the resolved API base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.endpoints.BaseURL()
}

type contextRecord struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	UserID      string     `json:"user_id"`
	DateCreated *time.Time `json:"date_created"`
}

// Context returns a facade for an existing context without calling the API.
func (c *Client) Context(name string) *Context {
	return &Context{Name: name, client: c}
}

// CreateContext creates a new named context.
func (c *Client) CreateContext(ctx context.Context, name string) (*Context, error) {
	if name == "" {
		return nil, fmt.Errorf("context name must not be empty")
	}

	raw, err := c.apiClient.Post(ctx, c.endpoints.Contexts(), map[string]string{"name": name})
	if err != nil {
		return nil, err
	}

	var record contextRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("parse context response: %w", err)
	}

	return &Context{
		Name:        name,
		ID:          record.ID,
		UserID:      record.UserID,
		DateCreated: record.DateCreated,
		client:      c,
	}, nil
}

// ListContexts returns the caller's contexts.
func (c *Client) ListContexts(ctx context.Context) ([]*Context, error) {
	raw, err := c.apiClient.Get(ctx, c.endpoints.Contexts(), nil)
	if err != nil {
		return nil, err
	}

	var records []contextRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("parse context list: %w", err)
	}

	contexts := make([]*Context, 0, len(records))
	for _, record := range records {
		contexts = append(contexts, &Context{
			Name:        record.Name,
			ID:          record.ID,
			UserID:      record.UserID,
			DateCreated: record.DateCreated,
			client:      c,
		})
	}
	return contexts, nil
}

// DeleteContext deletes a context and all of its files and chunks.
func (c *Client) DeleteContext(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("context name must not be empty")
	}
	_, err := c.apiClient.Delete(ctx, c.endpoints.ContextByName(name), nil)
	return err
}
