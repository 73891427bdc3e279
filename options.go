package onecontext

import (
	"net/http"

	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"

	"github.com/onecontext/onecontext-go/upload"
)

type clientConfig struct {
	apiKey       string
	baseURL      string
	extraHeaders map[string]string
	httpClient   *http.Client
	logger       log.Logger
	envRepo      env.Repository
	verbose      bool
	uploadConfig upload.Config
}

// Option configures the client.
type Option func(*clientConfig)

// WithAPIKey sets the API key explicitly, taking precedence over the
// ONECONTEXT_API_KEY environment variable.
func WithAPIKey(apiKey string) Option {
	return func(c *clientConfig) {
		c.apiKey = apiKey
	}
}

// WithBaseURL overrides the API base URL, taking precedence over the
// ONECONTEXT_BASE_URL environment variable and the hardcoded default.
func WithBaseURL(baseURL string) Option {
	return func(c *clientConfig) {
		c.baseURL = baseURL
	}
}

// WithExtraHeaders attaches additional headers to every API request.
func WithExtraHeaders(headers map[string]string) Option {
	return func(c *clientConfig) {
		c.extraHeaders = headers
	}
}

// WithHTTPClient replaces the shared HTTP client used for API calls, file
// transfers and downloads.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = httpClient
	}
}

// WithLogger replaces the default logger.
func WithLogger(logger log.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithEnvRepository replaces the process environment lookup. Mostly useful
// in tests.
func WithEnvRepository(envRepo env.Repository) Option {
	return func(c *clientConfig) {
		c.envRepo = envRepo
	}
}

// WithVerbose enables debug logging.
func WithVerbose() Option {
	return func(c *clientConfig) {
		c.verbose = true
	}
}

// WithUploadConfig tunes the upload pipeline (concurrency, retry attempts,
// batch size, metadata flattening, direct S3 transfers).
func WithUploadConfig(config upload.Config) Option {
	return func(c *clientConfig) {
		c.uploadConfig = config
	}
}
