package onecontext

import (
	"context"
	"encoding/json"
	"fmt"
)

// VectorIndex is a facade over a named vector index, the embedding store
// that backs semantic search.
type VectorIndex struct {
	Name      string
	ModelName string

	client *Client
}

type indexRecord struct {
	Name      string `json:"name"`
	ModelName string `json:"model_name"`
}

// VectorIndex returns a facade for an existing index without calling the
// API.
func (c *Client) VectorIndex(name, modelName string) *VectorIndex {
	return &VectorIndex{Name: name, ModelName: modelName, client: c}
}

// CreateIndex creates a vector index backed by the given embedding model,
// for example "BAAI/bge-base-en-v1.5".
func (c *Client) CreateIndex(ctx context.Context, name, modelName string) (*VectorIndex, error) {
	if name == "" {
		return nil, fmt.Errorf("index name must not be empty")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name must not be empty")
	}

	raw, err := c.apiClient.Post(ctx, c.endpoints.Indexes(), map[string]string{
		"name":      name,
		"modelName": modelName,
	})
	if err != nil {
		return nil, err
	}

	var record indexRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("parse index response: %w", err)
	}
	return &VectorIndex{Name: name, ModelName: record.ModelName, client: c}, nil
}

// ListIndexes returns the caller's vector indexes.
func (c *Client) ListIndexes(ctx context.Context) ([]*VectorIndex, error) {
	raw, err := c.apiClient.Get(ctx, c.endpoints.Indexes(), nil)
	if err != nil {
		return nil, err
	}

	var records []indexRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("parse index list: %w", err)
	}

	indexes := make([]*VectorIndex, 0, len(records))
	for _, record := range records {
		indexes = append(indexes, &VectorIndex{Name: record.Name, ModelName: record.ModelName, client: c})
	}
	return indexes, nil
}

// DeleteIndex deletes a vector index by name.
func (c *Client) DeleteIndex(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("index name must not be empty")
	}
	_, err := c.apiClient.Delete(ctx, c.endpoints.IndexByName(name), nil)
	return err
}

// ListChunks lists the chunks stored in the index.
func (v *VectorIndex) ListChunks(ctx context.Context, opts ListChunksOptions) ([]Chunk, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	request := newListChunksRequest(opts)
	request.VectorIndexes = []string{v.Name}

	raw, err := v.client.apiClient.Post(ctx, v.client.endpoints.ContextChunks(), request)
	if err != nil {
		return nil, err
	}
	return parseChunkData(raw)
}

// ListFiles lists the files whose chunks are stored in the index.
func (v *VectorIndex) ListFiles(ctx context.Context, opts ListFilesOptions) ([]File, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	request := newListFilesRequest(opts)
	request.VectorIndexes = []string{v.Name}

	raw, err := v.client.apiClient.Post(ctx, v.client.endpoints.ContextFiles(), request)
	if err != nil {
		return nil, err
	}

	var response struct {
		Files []File `json:"files"`
	}
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, fmt.Errorf("parse file list: %w", err)
	}
	return response.Files, nil
}
