package onecontext

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/melbahja/got"
)

// GetDownloadURL resolves a time-limited, presigned URL for downloading a
// file's original bytes directly from storage.
func (c *Context) GetDownloadURL(ctx context.Context, fileID string) (string, error) {
	if fileID == "" {
		return "", fmt.Errorf("file ID must not be empty")
	}

	raw, err := c.client.apiClient.Post(ctx, c.client.endpoints.PresignedDownloadURL(), map[string]string{
		"fileId": fileID,
	})
	if err != nil {
		return "", err
	}

	var response struct {
		DownloadURL string `json:"downloadUrl"`
	}
	if err := json.Unmarshal(raw, &response); err != nil {
		return "", fmt.Errorf("parse download URL response: %w", err)
	}
	if response.DownloadURL == "" {
		return "", fmt.Errorf("the service returned no download URL for file %s", fileID)
	}
	return response.DownloadURL, nil
}

// DownloadFile fetches a file's original bytes to destPath via its presigned
// download URL.
func (c *Context) DownloadFile(ctx context.Context, fileID, destPath string) error {
	downloadURL, err := c.GetDownloadURL(ctx, fileID)
	if err != nil {
		return err
	}

	downloader := got.New()
	downloader.Client = c.client.httpClient

	if err := downloader.Do(got.NewDownload(ctx, downloadURL, destPath)); err != nil {
		return fmt.Errorf("download file %s: %w", fileID, err)
	}
	return nil
}
