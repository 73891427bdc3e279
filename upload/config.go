package upload

import (
	"context"
	"net/http"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/retryhttp"
	"github.com/hashicorp/go-retryablehttp"
)

const (
	// DefaultConcurrency is the width of the worker pool used for parallel
	// file transfers and metadata commit batches.
	DefaultConcurrency = 10

	// DefaultMaxAttempts is the per-file transfer attempt limit, including
	// the first attempt.
	DefaultMaxAttempts = 3

	// DefaultMaxBatchBytes caps the JSON-serialized size of a single
	// registration batch. The registration endpoint enforces a request-size
	// ceiling.
	DefaultMaxBatchBytes = 3 << 20

	// DefaultMaxFileCount is the maximum number of files per upload call.
	DefaultMaxFileCount = 15000
)

// Config holds upload pipeline settings. The zero value uses the defaults
// above.
type Config struct {
	// Concurrency is the maximum number of parallel transfers.
	Concurrency int

	// MaxAttempts is the attempt limit per file transfer. Only 502, 503 and
	// 504 responses are retried.
	MaxAttempts int

	// MaxBatchBytes caps the serialized size of a metadata commit batch.
	MaxBatchBytes int64

	// MaxFileCount caps the number of files per upload call.
	MaxFileCount int

	// FlattenMetadata collapses nested metadata objects into top-level
	// underscore-joined keys so every key becomes filterable.
	FlattenMetadata bool

	// S3 enables direct storage transfers with the AWS SDK for slots whose
	// storage URI points at an S3 bucket. When nil (the default), bytes are
	// PUT to the slot's presigned URL.
	S3 *S3Params

	// TransferClient overrides the retrying HTTP client used for presigned
	// storage PUTs. Mostly useful in tests.
	TransferClient *retryablehttp.Client
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.MaxBatchBytes <= 0 {
		c.MaxBatchBytes = DefaultMaxBatchBytes
	}
	if c.MaxFileCount <= 0 {
		c.MaxFileCount = DefaultMaxFileCount
	}
	return c
}

// NewTransferClient creates the retrying HTTP client used for direct storage
// PUTs: maxAttempts attempts with exponential backoff, retrying only on
// transient gateway statuses. Everything else, including connection errors,
// fails the transfer immediately.
func NewTransferClient(maxAttempts int, logger log.Logger) *retryablehttp.Client {
	client := retryhttp.NewClient(logger)
	client.RetryMax = maxAttempts - 1
	client.CheckRetry = checkTransientStatus
	return client
}

func checkTransientStatus(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return false, err
	}
	switch resp.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true, nil
	}
	return false, nil
}
