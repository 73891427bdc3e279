package onecontext

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/onecontext/onecontext-go/upload"
)

// Context is a facade over a named server-side collection of files and
// their derived chunks. ID, UserID and DateCreated are only populated on
// values returned by CreateContext and ListContexts.
type Context struct {
	Name        string
	ID          string
	UserID      string
	DateCreated *time.Time

	client *Client
}

// ListFiles lists the files of the context with optional filtering, sorting
// and pagination.
func (c *Context) ListFiles(ctx context.Context, opts ListFilesOptions) ([]File, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	request := newListFilesRequest(opts)
	request.ContextName = c.Name

	raw, err := c.client.apiClient.Post(ctx, c.client.endpoints.ContextFiles(), request)
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

// UploadFiles uploads local files to the context and returns the assigned
// file IDs in the same order as paths. metadata may be nil; when provided,
// its length must equal the number of paths and entry i is attached to
// path i.
func (c *Context) UploadFiles(ctx context.Context, paths []string, metadata []map[string]interface{}) ([]string, error) {
	units, err := upload.UnitsFromPaths(paths, metadata, c.client.pathChecker, c.client.pathModifier)
	if err != nil {
		return nil, err
	}
	return c.uploader().Upload(ctx, c.Name, units)
}

// UploadTexts uploads UTF-8 text payloads as .txt files and returns the
// assigned file IDs in input order.
func (c *Context) UploadTexts(ctx context.Context, texts []string, fileNames []string, metadata []map[string]interface{}) ([]string, error) {
	units, err := upload.UnitsFromTexts(texts, fileNames, metadata)
	if err != nil {
		return nil, err
	}
	return c.uploader().Upload(ctx, c.Name, units)
}

// UploadFromDirectory uploads every supported file found under dir,
// recursively, applying the same metadata object to each file. When include
// patterns are given, only files whose dir-relative path matches at least
// one doublestar pattern (for example "reports/**/*.pdf") are uploaded.
// Files are uploaded in lexical path order.
func (c *Context) UploadFromDirectory(ctx context.Context, dir string, metadata map[string]interface{}, includePatterns ...string) ([]string, error) {
	absDir, err := c.client.pathModifier.AbsPath(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve directory %s: %w", dir, err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", absDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", absDir)
	}

	var paths []string
	err = filepath.WalkDir(absDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if !hasSupportedExtension(path) {
			return nil
		}
		if len(includePatterns) > 0 {
			relPath, err := filepath.Rel(absDir, path)
			if err != nil {
				return err
			}
			if !matchesAny(includePatterns, filepath.ToSlash(relPath)) {
				return nil
			}
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", absDir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no supported files found in %s", absDir)
	}
	sort.Strings(paths)

	var perFile []map[string]interface{}
	if metadata != nil {
		perFile = make([]map[string]interface{}, len(paths))
		for i := range perFile {
			perFile[i] = metadata
		}
	}
	return c.UploadFiles(ctx, paths, perFile)
}

// ListChunks lists the chunks of the context with optional filtering,
// sorting and pagination.
func (c *Context) ListChunks(ctx context.Context, opts ListChunksOptions) ([]Chunk, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	request := newListChunksRequest(opts)
	request.ContextName = c.Name

	raw, err := c.client.apiClient.Post(ctx, c.client.endpoints.ContextChunks(), request)
	if err != nil {
		return nil, err
	}
	return parseChunkData(raw)
}

// GetChunks fetches specific chunks by ID.
func (c *Context) GetChunks(ctx context.Context, chunkIDs []string) ([]Chunk, error) {
	if len(chunkIDs) == 0 {
		return nil, fmt.Errorf("chunk ID list must not be empty")
	}

	raw, err := c.client.apiClient.Post(ctx, c.client.endpoints.ContextChunksByIDs(), map[string]interface{}{
		"contextName": c.Name,
		"chunkIds":    chunkIDs,
	})
	if err != nil {
		return nil, err
	}
	return parseChunkData(raw)
}

// DeleteFile deletes a single file, and with it the file's chunks, by its
// server-assigned ID.
func (c *Context) DeleteFile(ctx context.Context, fileID string) error {
	if fileID == "" {
		return fmt.Errorf("file ID must not be empty")
	}
	_, err := c.client.apiClient.Delete(ctx, c.client.endpoints.ContextFileByID(fileID), nil)
	return err
}

// UpdateFileMetadata merges the given object into a file's metadata. The
// same validation rules apply as on upload.
func (c *Context) UpdateFileMetadata(ctx context.Context, fileID string, metadata map[string]interface{}) error {
	if fileID == "" {
		return fmt.Errorf("file ID must not be empty")
	}
	if err := upload.ValidateMetadata(metadata); err != nil {
		return err
	}
	_, err := c.client.apiClient.Post(ctx, c.client.endpoints.ContextFileMetadata(fileID), map[string]interface{}{
		"metadataJson": metadata,
	})
	return err
}

// ClearFileMetadata removes all user-supplied metadata from a file.
func (c *Context) ClearFileMetadata(ctx context.Context, fileID string) error {
	if fileID == "" {
		return fmt.Errorf("file ID must not be empty")
	}
	_, err := c.client.apiClient.Delete(ctx, c.client.endpoints.ContextFileMetadata(fileID), nil)
	return err
}

func (c *Context) uploader() *upload.Uploader {
	return upload.NewUploader(c.client.apiClient, c.client.endpoints, c.client.logger, c.client.uploadConfig)
}

func parseChunkData(raw json.RawMessage) ([]Chunk, error) {
	var response struct {
		Data []Chunk `json:"data"`
	}
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, fmt.Errorf("parse chunk list: %w", err)
	}
	return response.Data, nil
}

func hasSupportedExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, supported := range upload.SupportedFileTypes {
		if ext == supported {
			return true
		}
	}
	return false
}

func matchesAny(patterns []string, relPath string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, relPath); err == nil && ok {
			return true
		}
	}
	return false
}
