package onecontext

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
)

// Pipeline is a facade over a deployed ingestion/query pipeline.
type Pipeline struct {
	Name       string
	ID         string
	YAMLConfig string
	RunID      string

	client *Client
}

type pipelineRecord struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	YAMLConfig string `json:"yaml_config"`
	RunID      string `json:"run_id"`
}

// DeployPipelineOptions carries the pipeline configuration: either a literal
// YAML string or the path of a .yaml/.yml file, not both.
type DeployPipelineOptions struct {
	YAML     string
	YAMLPath string
}

// Pipeline returns a facade for an existing pipeline without calling the
// API.
func (c *Client) Pipeline(name string) *Pipeline {
	return &Pipeline{Name: name, client: c}
}

// DeployPipeline deploys a pipeline from a YAML configuration.
func (c *Client) DeployPipeline(ctx context.Context, name string, opts DeployPipelineOptions) (*Pipeline, error) {
	if name == "" {
		return nil, fmt.Errorf("pipeline name must not be empty")
	}
	if opts.YAML != "" && opts.YAMLPath != "" {
		return nil, fmt.Errorf("provide a YAML string or a YAML path, not both")
	}

	yamlConfig := opts.YAML
	if opts.YAMLPath != "" {
		ext := filepath.Ext(opts.YAMLPath)
		if ext != ".yaml" && ext != ".yml" {
			return nil, fmt.Errorf("expected a .yaml or .yml file, got %s", opts.YAMLPath)
		}
		content, err := os.ReadFile(opts.YAMLPath)
		if err != nil {
			return nil, fmt.Errorf("read pipeline config: %w", err)
		}
		yamlConfig = string(content)
	}
	if yamlConfig == "" {
		return nil, fmt.Errorf("provide a YAML string or a YAML path")
	}

	raw, err := c.apiClient.Post(ctx, c.endpoints.Pipelines(), map[string]string{
		"name":       name,
		"yamlConfig": yamlConfig,
	})
	if err != nil {
		return nil, err
	}

	var record pipelineRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("parse pipeline response: %w", err)
	}
	return &Pipeline{
		Name:       name,
		ID:         record.ID,
		YAMLConfig: record.YAMLConfig,
		RunID:      record.RunID,
		client:     c,
	}, nil
}

// ListPipelines returns the caller's deployed pipelines.
func (c *Client) ListPipelines(ctx context.Context) ([]*Pipeline, error) {
	raw, err := c.apiClient.Get(ctx, c.endpoints.Pipelines(), nil)
	if err != nil {
		return nil, err
	}

	var records []pipelineRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("parse pipeline list: %w", err)
	}

	pipelines := make([]*Pipeline, 0, len(records))
	for _, record := range records {
		pipelines = append(pipelines, &Pipeline{
			Name:       record.Name,
			ID:         record.ID,
			YAMLConfig: record.YAMLConfig,
			RunID:      record.RunID,
			client:     c,
		})
	}
	return pipelines, nil
}

// DeletePipeline deletes a pipeline by name.
func (c *Client) DeletePipeline(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("pipeline name must not be empty")
	}
	_, err := c.apiClient.Delete(ctx, c.endpoints.PipelineByName(name), nil)
	return err
}

// ListRunsOptions filters and paginates pipeline run listings. Status is one
// of RUNNING, SUCCESSFUL or FAILED.
type ListRunsOptions struct {
	Status         string
	RunID          string
	Skip           int
	Limit          int
	Sort           string
	DateCreatedGTE string
	DateCreatedLTE string
}

// ListRuns lists pipeline runs across all pipelines.
func (c *Client) ListRuns(ctx context.Context, opts ListRunsOptions) ([]Run, error) {
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Sort == "" {
		opts.Sort = defaultSortField
	}

	params := url.Values{}
	params.Set("skip", strconv.Itoa(opts.Skip))
	params.Set("limit", strconv.Itoa(opts.Limit))
	params.Set("sort", opts.Sort)
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.RunID != "" {
		params.Set("run_id", opts.RunID)
	}
	if opts.DateCreatedGTE != "" {
		params.Set("date_created_gte", opts.DateCreatedGTE)
	}
	if opts.DateCreatedLTE != "" {
		params.Set("date_created_lte", opts.DateCreatedLTE)
	}

	raw, err := c.apiClient.Get(ctx, c.endpoints.RunResults(), params)
	if err != nil {
		return nil, err
	}

	var runs []Run
	if err := json.Unmarshal(raw, &runs); err != nil {
		return nil, fmt.Errorf("parse run list: %w", err)
	}
	return runs, nil
}

// Run executes the pipeline with optional per-step override arguments keyed
// by step name, and returns the resulting chunks.
func (p *Pipeline) Run(ctx context.Context, overrideArgs map[string]interface{}) ([]Chunk, error) {
	if overrideArgs == nil {
		overrideArgs = map[string]interface{}{}
	}

	raw, err := p.client.apiClient.Post(ctx, p.client.endpoints.PipelineRun(), map[string]interface{}{
		"pipelineName": p.Name,
		"overrideArgs": overrideArgs,
	})
	if err != nil {
		return nil, err
	}

	var response struct {
		Chunks []Chunk `json:"chunks"`
	}
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, fmt.Errorf("parse pipeline run response: %w", err)
	}
	return response.Chunks, nil
}
