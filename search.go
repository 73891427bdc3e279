package onecontext

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	defaultTopK           = 10
	defaultSemanticWeight = 0.5
	defaultFullTextWeight = 0.5
	defaultRRFK           = 60
)

// SchemaSource supplies a JSON schema for structured extraction. Use
// RawSchema for a literal schema, or implement the interface on any type
// that can produce one.
type SchemaSource interface {
	JSONSchema() (map[string]interface{}, error)
}

// RawSchema is a literal JSON schema.
type RawSchema map[string]interface{}

// JSONSchema returns the schema itself.
func (s RawSchema) JSONSchema() (map[string]interface{}, error) {
	return s, nil
}

// SearchResult holds the ranked chunks of a hybrid search, plus the
// structured-extraction payload when extraction was requested.
type SearchResult struct {
	Chunks           []Chunk
	StructuredOutput json.RawMessage
}

type searchOptions struct {
	topK             int
	semanticWeight   float64
	fullTextWeight   float64
	rrfK             int
	includeEmbedding bool
	metadataFilter   map[string]interface{}
	schema           SchemaSource
	extractionPrompt string
}

// SearchOption tunes a single search call.
type SearchOption func(*searchOptions)

// WithTopK sets the number of results to return. Default 10.
func WithTopK(topK int) SearchOption {
	return func(o *searchOptions) {
		o.topK = topK
	}
}

// WithWeights sets the semantic and full-text ranking weights. Both must be
// within [0, 1] and they must not both be zero. Defaults 0.5/0.5.
func WithWeights(semantic, fullText float64) SearchOption {
	return func(o *searchOptions) {
		o.semanticWeight = semantic
		o.fullTextWeight = fullText
	}
}

// WithRRFK sets the reciprocal rank fusion parameter used to combine the
// semantic and full-text rankings. Default 60.
func WithRRFK(rrfK int) SearchOption {
	return func(o *searchOptions) {
		o.rrfK = rrfK
	}
}

// WithEmbeddings includes each chunk's embedding vector in the results.
func WithEmbeddings() SearchOption {
	return func(o *searchOptions) {
		o.includeEmbedding = true
	}
}

// WithMetadataFilter constrains results with a metadata query-operator tree,
// for example map[string]interface{}{"author": map[string]interface{}{"$eq": "jane"}}.
func WithMetadataFilter(filter map[string]interface{}) SearchOption {
	return func(o *searchOptions) {
		o.metadataFilter = filter
	}
}

// WithStructuredExtraction asks the service to extract a structured object
// from the matching chunks, guided by the given schema and optional prompt.
func WithStructuredExtraction(schema SchemaSource, prompt string) SearchOption {
	return func(o *searchOptions) {
		o.schema = schema
		o.extractionPrompt = prompt
	}
}

type structuredOutputRequest struct {
	Schema map[string]interface{} `json:"schema"`
	Prompt string                 `json:"prompt,omitempty"`
}

type searchRequest struct {
	Query            string                   `json:"query"`
	ContextName      string                   `json:"contextName"`
	SemanticWeight   float64                  `json:"semanticWeight"`
	FullTextWeight   float64                  `json:"fullTextWeight"`
	RRFK             int                      `json:"rrfK"`
	TopK             int                      `json:"topK"`
	IncludeEmbedding bool                     `json:"includeEmbedding"`
	MetadataFilter   map[string]interface{}   `json:"metadataJson,omitempty"`
	StructuredOutput *structuredOutputRequest `json:"structuredOutputRequest,omitempty"`
}

// Search runs a hybrid semantic/full-text query against the context and
// returns the top chunks ranked by weighted reciprocal rank fusion.
func (c *Context) Search(ctx context.Context, query string, options ...SearchOption) (*SearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("the query string must not be empty")
	}

	opts := searchOptions{
		topK:           defaultTopK,
		semanticWeight: defaultSemanticWeight,
		fullTextWeight: defaultFullTextWeight,
		rrfK:           defaultRRFK,
	}
	for _, option := range options {
		option(&opts)
	}

	if opts.semanticWeight < 0 || opts.semanticWeight > 1 {
		return nil, fmt.Errorf("semantic weight must be between 0 and 1")
	}
	if opts.fullTextWeight < 0 || opts.fullTextWeight > 1 {
		return nil, fmt.Errorf("full-text weight must be between 0 and 1")
	}
	if opts.semanticWeight == 0 && opts.fullTextWeight == 0 {
		return nil, fmt.Errorf("semantic and full-text weights must not both be zero")
	}

	request := searchRequest{
		Query:            query,
		ContextName:      c.Name,
		SemanticWeight:   opts.semanticWeight,
		FullTextWeight:   opts.fullTextWeight,
		RRFK:             opts.rrfK,
		TopK:             opts.topK,
		IncludeEmbedding: opts.includeEmbedding,
		MetadataFilter:   opts.metadataFilter,
	}
	if opts.schema != nil {
		schema, err := opts.schema.JSONSchema()
		if err != nil {
			return nil, fmt.Errorf("resolve extraction schema: %w", err)
		}
		request.StructuredOutput = &structuredOutputRequest{
			Schema: schema,
			Prompt: opts.extractionPrompt,
		}
	}

	raw, err := c.client.apiClient.Post(ctx, c.client.endpoints.ContextSearch(), request)
	if err != nil {
		return nil, err
	}

	var response struct {
		Data   []Chunk         `json:"data"`
		Output json.RawMessage `json:"output"`
	}
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}

	return &SearchResult{
		Chunks:           response.Data,
		StructuredOutput: response.Output,
	}, nil
}
