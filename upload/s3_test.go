package upload

import (
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_isS3URI(t *testing.T) {
	assert.True(t, isS3URI("s3://bucket/key"))
	assert.False(t, isS3URI("gs://bucket/key"))
	assert.False(t, isS3URI("https://storage.example.com/signed"))
}

func Test_parseS3URI(t *testing.T) {
	t.Run("bucket and key", func(t *testing.T) {
		bucket, key, err := parseS3URI("s3://my-bucket/users/u-1/report.pdf")

		require.NoError(t, err)
		assert.Equal(t, "my-bucket", bucket)
		assert.Equal(t, "users/u-1/report.pdf", key)
	})

	t.Run("malformed URIs", func(t *testing.T) {
		for _, uri := range []string{"s3://", "s3://bucket", "s3://bucket/", "s3:///key"} {
			_, _, err := parseS3URI(uri)
			assert.Error(t, err, uri)
		}
	})
}

func Test_isTransientS3Error(t *testing.T) {
	tests := []struct {
		code          string
		wantTransient bool
	}{
		{code: "AccessDenied", wantTransient: false},
		{code: "InvalidAccessKeyId", wantTransient: false},
		{code: "SignatureDoesNotMatch", wantTransient: false},
		{code: "NoSuchBucket", wantTransient: false},
		{code: "SlowDown", wantTransient: true},
		{code: "InternalError", wantTransient: true},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			apiError := &smithy.GenericAPIError{Code: tt.code, Message: "test"}
			assert.Equal(t, tt.wantTransient, isTransientS3Error(apiError))
		})
	}
}
