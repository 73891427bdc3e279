package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEndpoints_trailingSlash(t *testing.T) {
	withSlash := NewEndpoints("https://example.com/api/v5/")
	withoutSlash := NewEndpoints("https://example.com/api/v5")

	assert.Equal(t, withSlash.Contexts(), withoutSlash.Contexts())
	assert.Equal(t, "https://example.com/api/v5", withSlash.BaseURL())
}

func TestEndpoints_paths(t *testing.T) {
	e := NewEndpoints("https://example.com/api/v5")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{name: "contexts", got: e.Contexts(), want: "https://example.com/api/v5/context"},
		{name: "context by name", got: e.ContextByName("my-context"), want: "https://example.com/api/v5/context/my-context"},
		{name: "context files", got: e.ContextFiles(), want: "https://example.com/api/v5/context/file"},
		{name: "file by id", got: e.ContextFileByID("abc-123"), want: "https://example.com/api/v5/context/file/abc-123"},
		{name: "file metadata", got: e.ContextFileMetadata("abc-123"), want: "https://example.com/api/v5/context/file/abc-123/metadata"},
		{name: "presigned upload", got: e.PresignedUploadURL(), want: "https://example.com/api/v5/context/file/presigned-upload-url/"},
		{name: "presigned download", got: e.PresignedDownloadURL(), want: "https://example.com/api/v5/context/file/presigned-download-url/"},
		{name: "process uploaded", got: e.ProcessUploaded(), want: "https://example.com/api/v5/context/file/process-uploaded/"},
		{name: "chunks", got: e.ContextChunks(), want: "https://example.com/api/v5/context/chunk/"},
		{name: "chunks by ids", got: e.ContextChunksByIDs(), want: "https://example.com/api/v5/context/chunk/byids/"},
		{name: "search", got: e.ContextSearch(), want: "https://example.com/api/v5/context/chunk/search"},
		{name: "knowledge bases", got: e.KnowledgeBases(), want: "https://example.com/api/v5/knowledgebase"},
		{name: "knowledge base upload", got: e.KnowledgeBaseUpload(), want: "https://example.com/api/v5/knowledgebase/files/upload"},
		{name: "pipelines", got: e.Pipelines(), want: "https://example.com/api/v5/pipeline"},
		{name: "pipeline run", got: e.PipelineRun(), want: "https://example.com/api/v5/pipeline/run"},
		{name: "run results", got: e.RunResults(), want: "https://example.com/api/v5/run/results"},
		{name: "indexes", got: e.Indexes(), want: "https://example.com/api/v5/index"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestEndpoints_pathParametersAreEscaped(t *testing.T) {
	e := NewEndpoints("https://example.com/api/v5")

	assert.Equal(t,
		"https://example.com/api/v5/context/my%20context%2Fprod",
		e.ContextByName("my context/prod"))
}
