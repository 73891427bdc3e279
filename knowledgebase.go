package onecontext

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/onecontext/onecontext-go/api"
	"github.com/onecontext/onecontext-go/upload"
)

// reserved in addition to the common metadata keys on the legacy knowledge
// base surface.
const knowledgeBaseReservedKey = "knowledge_base"

// KnowledgeBase is a facade over the legacy knowledge base surface, which
// proxies file bytes through the API as multipart uploads instead of
// presigned storage URLs.
type KnowledgeBase struct {
	Name string
	ID   string

	client *Client
}

type knowledgeBaseRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// KnowledgeBase returns a facade for an existing knowledge base without
// calling the API.
func (c *Client) KnowledgeBase(name string) *KnowledgeBase {
	return &KnowledgeBase{Name: name, client: c}
}

// CreateKnowledgeBase creates a new named knowledge base.
func (c *Client) CreateKnowledgeBase(ctx context.Context, name string) (*KnowledgeBase, error) {
	if name == "" {
		return nil, fmt.Errorf("knowledge base name must not be empty")
	}

	raw, err := c.apiClient.Post(ctx, c.endpoints.KnowledgeBases(), map[string]string{"name": name})
	if err != nil {
		return nil, err
	}

	var record knowledgeBaseRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("parse knowledge base response: %w", err)
	}
	return &KnowledgeBase{Name: name, ID: record.ID, client: c}, nil
}

// ListKnowledgeBases returns the caller's knowledge bases.
func (c *Client) ListKnowledgeBases(ctx context.Context) ([]*KnowledgeBase, error) {
	raw, err := c.apiClient.Get(ctx, c.endpoints.KnowledgeBases(), nil)
	if err != nil {
		return nil, err
	}

	var records []knowledgeBaseRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("parse knowledge base list: %w", err)
	}

	knowledgeBases := make([]*KnowledgeBase, 0, len(records))
	for _, record := range records {
		knowledgeBases = append(knowledgeBases, &KnowledgeBase{Name: record.Name, ID: record.ID, client: c})
	}
	return knowledgeBases, nil
}

// DeleteKnowledgeBase deletes a knowledge base by name.
func (c *Client) DeleteKnowledgeBase(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("knowledge base name must not be empty")
	}
	_, err := c.apiClient.Delete(ctx, c.endpoints.KnowledgeBaseByName(name), nil)
	return err
}

// ListFiles lists the files of the knowledge base.
func (kb *KnowledgeBase) ListFiles(ctx context.Context, opts ListFilesOptions) ([]File, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	request := newListFilesRequest(opts)
	request.KnowledgeBase = kb.Name

	raw, err := kb.client.apiClient.Post(ctx, kb.client.endpoints.KnowledgeBaseFiles(), request)
	if err != nil {
		return nil, err
	}

	// The legacy endpoint returns a bare array.
	var files []File
	if err := json.Unmarshal(raw, &files); err != nil {
		return nil, fmt.Errorf("parse file list: %w", err)
	}
	return files, nil
}

// DeleteFiles deletes knowledge base files by name.
func (kb *KnowledgeBase) DeleteFiles(ctx context.Context, fileNames []string) error {
	if len(fileNames) == 0 {
		return fmt.Errorf("file name list must not be empty")
	}

	params := url.Values{"knowledgebase_name": []string{kb.Name}}
	for _, name := range fileNames {
		params.Add("file_names", name)
	}
	_, err := kb.client.apiClient.Delete(ctx, kb.client.endpoints.KnowledgeBaseFiles(), params)
	return err
}

// UploadFile uploads a single local file as a multipart request and returns
// the IDs of the ingestion pipeline runs it triggered.
func (kb *KnowledgeBase) UploadFile(ctx context.Context, path string, metadata map[string]interface{}) ([]string, error) {
	var perFile []map[string]interface{}
	if metadata != nil {
		perFile = []map[string]interface{}{metadata}
	}
	units, err := upload.UnitsFromPaths([]string{path}, perFile, kb.client.pathChecker, kb.client.pathModifier)
	if err != nil {
		return nil, err
	}
	return kb.uploadUnit(ctx, units[0])
}

// UploadText uploads a UTF-8 text payload as a .txt file.
func (kb *KnowledgeBase) UploadText(ctx context.Context, text, fileName string, metadata map[string]interface{}) error {
	var perFile []map[string]interface{}
	if metadata != nil {
		perFile = []map[string]interface{}{metadata}
	}
	units, err := upload.UnitsFromTexts([]string{text}, []string{fileName}, perFile)
	if err != nil {
		return err
	}
	_, err = kb.uploadUnit(ctx, units[0])
	return err
}

// UploadFromDirectory uploads every supported file directly under dir, one
// multipart request per file. metadata may be nil, or one entry per file in
// lexical path order.
func (kb *KnowledgeBase) UploadFromDirectory(ctx context.Context, dir string, metadata []map[string]interface{}) error {
	absDir, err := kb.client.pathModifier.AbsPath(dir)
	if err != nil {
		return fmt.Errorf("resolve directory %s: %w", dir, err)
	}
	entries, err := os.ReadDir(absDir)
	if err != nil {
		return fmt.Errorf("read directory %s: %w", absDir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(absDir, entry.Name())
		if hasSupportedExtension(path) {
			paths = append(paths, path)
		}
	}
	if len(paths) == 0 {
		return fmt.Errorf("no supported files found in %s", absDir)
	}
	if metadata != nil && len(metadata) != len(paths) {
		return fmt.Errorf("metadata count (%d) does not match the number of files in the directory (%d)", len(metadata), len(paths))
	}

	for i, path := range paths {
		var entryMetadata map[string]interface{}
		if metadata != nil {
			entryMetadata = metadata[i]
		}
		if _, err := kb.UploadFile(ctx, path, entryMetadata); err != nil {
			return err
		}
	}
	return nil
}

func (kb *KnowledgeBase) uploadUnit(ctx context.Context, unit upload.Unit) ([]string, error) {
	fields := map[string]string{"knowledgebaseName": kb.Name}
	if unit.Metadata != nil {
		if _, reserved := unit.Metadata[knowledgeBaseReservedKey]; reserved {
			return nil, fmt.Errorf("%q is a reserved metadata key on knowledge bases", knowledgeBaseReservedKey)
		}
		if err := upload.ValidateMetadata(unit.Metadata); err != nil {
			return nil, err
		}
		metadataJSON, err := json.Marshal(unit.Metadata)
		if err != nil {
			return nil, fmt.Errorf("serialize metadata: %w", err)
		}
		fields["metadataJson"] = string(metadataJSON)
	}

	content := unit.Content
	if content == nil {
		var err error
		content, err = os.ReadFile(unit.Path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", unit.Path, err)
		}
	}

	raw, err := kb.client.apiClient.PostMultipart(ctx, kb.client.endpoints.KnowledgeBaseUpload(), fields, []api.FormFile{{
		FieldName:   "files",
		FileName:    unit.Name,
		ContentType: unit.ContentType,
		Content:     content,
	}})
	if err != nil {
		return nil, err
	}

	var runIDs []string
	if err := json.Unmarshal(raw, &runIDs); err != nil {
		// Some deployments return an empty object instead of run IDs.
		return nil, nil
	}
	return runIDs, nil
}
