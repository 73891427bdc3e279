package onecontext

import "time"

// File is a unit of uploaded content in a context. Status is server-defined
// (for example PENDING, PROCESSING, COMPLETED, FAILED).
type File struct {
	ID          string                 `json:"id"`
	UserID      string                 `json:"user_id"`
	Path        string                 `json:"path"`
	ContextName string                 `json:"context_name"`
	ContextID   string                 `json:"context_id"`
	Name        string                 `json:"name"`
	Status      string                 `json:"status"`
	DateCreated *time.Time             `json:"date_created,omitempty"`
	Metadata    map[string]interface{} `json:"metadata_json,omitempty"`
	DownloadURL string                 `json:"download_url,omitempty"`
}

// Chunk is a span of a file's content after server-side splitting and
// embedding. The relevance scores are only set on search results; the
// embedding is only set when explicitly requested.
type Chunk struct {
	ID            string                 `json:"id"`
	Content       string                 `json:"content"`
	UserID        string                 `json:"user_id"`
	FileID        string                 `json:"file_id"`
	ContextID     string                 `json:"context_id"`
	ContextName   string                 `json:"context_name,omitempty"`
	FileName      string                 `json:"file_name,omitempty"`
	Metadata      map[string]interface{} `json:"metadata_json,omitempty"`
	Embedding     []float64              `json:"embedding,omitempty"`
	SemanticScore *float64               `json:"semantic_score,omitempty"`
	FulltextScore *float64               `json:"fulltext_score,omitempty"`
	CombinedScore *float64               `json:"combined_score,omitempty"`
	DateCreated   *time.Time             `json:"date_created,omitempty"`
}

// Run is a single pipeline run record.
type Run struct {
	ID          string     `json:"id"`
	PipelineID  string     `json:"pipeline_id,omitempty"`
	Status      string     `json:"status"`
	DateCreated *time.Time `json:"date_created,omitempty"`
}
