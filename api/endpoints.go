package api

import (
	"net/url"
	"strings"
)

// Endpoints maps logical API operations to fully qualified URLs by joining
// the configured base URL with the relative path of each operation. It is
// stateless and performs no network I/O.
type Endpoints struct {
	baseURL string
}

// NewEndpoints creates an endpoint registry for the given base URL.
// A trailing slash on the base URL is optional.
func NewEndpoints(baseURL string) Endpoints {
	return Endpoints{baseURL: strings.TrimSuffix(baseURL, "/")}
}

// BaseURL returns the normalized base URL without a trailing slash.
func (e Endpoints) BaseURL() string {
	return e.baseURL
}

func (e Endpoints) join(parts ...string) string {
	escaped := make([]string, 0, len(parts)+1)
	escaped = append(escaped, e.baseURL)
	for _, part := range parts {
		escaped = append(escaped, url.PathEscape(part))
	}
	return strings.Join(escaped, "/")
}

// Contexts is used to create (POST) and list (GET) contexts.
func (e Endpoints) Contexts() string {
	return e.join("context")
}

// ContextByName is used to delete a single context.
func (e Endpoints) ContextByName(name string) string {
	return e.join("context", name)
}

// ContextFiles is used to list files in a context.
func (e Endpoints) ContextFiles() string {
	return e.join("context", "file")
}

// ContextFileByID is used to delete a single file.
func (e Endpoints) ContextFileByID(id string) string {
	return e.join("context", "file", id)
}

// ContextFileMetadata is used to update (POST) and clear (DELETE) the
// metadata of a single file.
func (e Endpoints) ContextFileMetadata(id string) string {
	return e.join("context", "file", id, "metadata")
}

// PresignedUploadURL is used to request one upload slot per file name.
func (e Endpoints) PresignedUploadURL() string {
	return e.join("context", "file", "presigned-upload-url") + "/"
}

// PresignedDownloadURL is used to resolve a time-limited download URL for a
// single file.
func (e Endpoints) PresignedDownloadURL() string {
	return e.join("context", "file", "presigned-download-url") + "/"
}

// ProcessUploaded is used to register uploaded files and their metadata.
func (e Endpoints) ProcessUploaded() string {
	return e.join("context", "file", "process-uploaded") + "/"
}

// ContextChunks is used to list chunks.
func (e Endpoints) ContextChunks() string {
	return e.join("context", "chunk") + "/"
}

// ContextChunksByIDs is used to fetch specific chunks by ID.
func (e Endpoints) ContextChunksByIDs() string {
	return e.join("context", "chunk", "byids") + "/"
}

// ContextSearch is used to run a hybrid search against a context.
func (e Endpoints) ContextSearch() string {
	return e.join("context", "chunk", "search")
}

// KnowledgeBases is used to create (POST) and list (GET) knowledge bases.
func (e Endpoints) KnowledgeBases() string {
	return e.join("knowledgebase")
}

// KnowledgeBaseByName is used to delete a single knowledge base.
func (e Endpoints) KnowledgeBaseByName(name string) string {
	return e.join("knowledgebase", name)
}

// KnowledgeBaseFiles is used to list (POST) and delete (DELETE) knowledge
// base files.
func (e Endpoints) KnowledgeBaseFiles() string {
	return e.join("knowledgebase", "files")
}

// KnowledgeBaseUpload is the legacy multipart upload endpoint.
func (e Endpoints) KnowledgeBaseUpload() string {
	return e.join("knowledgebase", "files", "upload")
}

// Pipelines is used to deploy (POST) and list (GET) pipelines.
func (e Endpoints) Pipelines() string {
	return e.join("pipeline")
}

// PipelineByName is used to delete a single pipeline.
func (e Endpoints) PipelineByName(name string) string {
	return e.join("pipeline", name)
}

// PipelineRun is used to run a deployed pipeline.
func (e Endpoints) PipelineRun() string {
	return e.join("pipeline", "run")
}

// RunResults is used to list pipeline runs.
func (e Endpoints) RunResults() string {
	return e.join("run", "results")
}

// Indexes is used to create (POST) and list (GET) vector indexes.
func (e Endpoints) Indexes() string {
	return e.join("index")
}

// IndexByName is used to delete a single vector index.
func (e Endpoints) IndexByName(name string) string {
	return e.join("index", name)
}
