package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/bitrise-io/go-utils/retry"
	"github.com/bitrise-io/go-utils/v2/log"
)

// S3Params configures direct storage transfers for deployments where the
// client holds bucket credentials and the service issues s3:// storage URIs.
// When AccessKeyID/SecretAccessKey are empty, the default AWS credential
// chain is used.
type S3Params struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string

	// NumFullRetries is the retry count around a whole object write.
	// Defaults to 3.
	NumFullRetries int
}

type s3Transfer struct {
	params S3Params
	logger log.Logger

	initOnce sync.Once
	uploader *manager.Uploader
	initErr  error
}

func newS3Transfer(params S3Params, logger log.Logger) *s3Transfer {
	if params.NumFullRetries <= 0 {
		params.NumFullRetries = 3
	}
	return &s3Transfer{params: params, logger: logger}
}

func isS3URI(uri string) bool {
	return strings.HasPrefix(uri, "s3://")
}

// isTransientS3Error reports whether a service-side failure is worth another
// attempt. Credential and bucket problems never resolve on retry.
func isTransientS3Error(apiError smithy.APIError) bool {
	switch apiError.ErrorCode() {
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "NoSuchBucket":
		return false
	}
	return true
}

func parseS3URI(uri string) (bucket, key string, err error) {
	trimmed := strings.TrimPrefix(uri, "s3://")
	bucket, key, found := strings.Cut(trimmed, "/")
	if !found || bucket == "" || key == "" {
		return "", "", fmt.Errorf("malformed s3 storage URI: %s", uri)
	}
	return bucket, key, nil
}

func (t *s3Transfer) init(ctx context.Context) error {
	t.initOnce.Do(func() {
		if t.params.Region == "" {
			t.initErr = fmt.Errorf("region must not be empty")
			return
		}

		opts := []func(*awsconfig.LoadOptions) error{
			awsconfig.WithRegion(t.params.Region),
		}
		if t.params.AccessKeyID != "" && t.params.SecretAccessKey != "" {
			t.logger.Debugf("aws credentials provided, using them...")
			opts = append(opts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(t.params.AccessKeyID, t.params.SecretAccessKey, "")))
		}

		cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			t.initErr = fmt.Errorf("load aws config: %w", err)
			return
		}
		t.uploader = manager.NewUploader(s3.NewFromConfig(cfg))
	})
	return t.initErr
}

// put writes a unit's bytes straight to the slot's storage key, bypassing
// the presigned URL.
func (t *s3Transfer) put(ctx context.Context, slot Slot, unit Unit, data []byte) error {
	if err := t.init(ctx); err != nil {
		return &TransferError{FileName: unit.Name, Err: err}
	}

	bucket, key, err := parseS3URI(slot.StorageURI)
	if err != nil {
		return &TransferError{FileName: unit.Name, Err: err}
	}

	t.logger.Debugf("Writing %s to s3://%s/%s", unit.Name, bucket, key)

	err = retry.Times(uint(t.params.NumFullRetries)).Wait(5 * time.Second).TryWithAbort(func(attempt uint) (error, bool) {
		if attempt > 0 {
			t.logger.Warnf("Retrying s3 write of %s (attempt %d)", unit.Name, attempt+1)
		}
		_, err := t.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(unit.ContentType),
		})
		if err != nil {
			var apiError smithy.APIError
			if errors.As(err, &apiError) && !isTransientS3Error(apiError) {
				return err, true
			}
			return err, false
		}
		return nil, false
	})
	if err != nil {
		return &TransferError{FileName: unit.Name, Err: fmt.Errorf("s3 write: %w", err)}
	}

	return nil
}
