package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/docker/go-units"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/onecontext/onecontext-go/api"
)

// Slot is a server-issued upload target for a single file: the presigned
// URL, the newly assigned file ID, and the storage URI the file will live
// at. Slots correlate 1:1 with units by list position.
type Slot struct {
	FileID       string `json:"fileId"`
	FileName     string `json:"fileName"`
	PresignedURL string `json:"presignedUrl"`
	StorageURI   string `json:"storageUri"`
}

type slotRequest struct {
	ContextName string   `json:"contextName"`
	FileNames   []string `json:"fileNames"`
}

type slotResponse struct {
	Files []Slot `json:"files"`
}

type commitItem struct {
	FileID      string                 `json:"fileId"`
	FileName    string                 `json:"fileName"`
	ContentType string                 `json:"contentType"`
	StorageURI  string                 `json:"storageUri"`
	Metadata    map[string]interface{} `json:"metadataJson,omitempty"`
}

type commitRequest struct {
	ContextName string       `json:"contextName"`
	Files       []commitItem `json:"files"`
}

// TransferError is a direct storage upload that failed after exhausting
// retries. It names the offending file; StatusCode is zero when the failure
// was not an HTTP response.
type TransferError struct {
	FileName   string
	StatusCode int
	Err        error
}

func (e *TransferError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upload %s: %s", e.FileName, e.Err)
	}
	return fmt.Sprintf("upload %s: HTTP %d", e.FileName, e.StatusCode)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// Uploader orchestrates the multi-file upload pipeline against a named
// context. Safe for concurrent use.
type Uploader struct {
	apiClient      *api.Client
	endpoints      api.Endpoints
	transferClient *retryablehttp.Client
	logger         log.Logger
	config         Config
	s3             *s3Transfer
}

// NewUploader creates an upload pipeline on top of the shared transport.
func NewUploader(apiClient *api.Client, endpoints api.Endpoints, logger log.Logger, config Config) *Uploader {
	config = config.withDefaults()

	transferClient := config.TransferClient
	if transferClient == nil {
		transferClient = NewTransferClient(config.MaxAttempts, logger)
	}

	uploader := &Uploader{
		apiClient:      apiClient,
		endpoints:      endpoints,
		transferClient: transferClient,
		logger:         logger,
		config:         config,
	}
	if config.S3 != nil {
		uploader.s3 = newS3Transfer(*config.S3, logger)
	}
	return uploader
}

// Upload runs the full pipeline for the given units and returns the
// server-assigned file IDs in the same order as the input, regardless of the
// completion order of individual transfers.
//
// Validation failures are reported before any network call. Transfer and
// commit failures fail the whole call; files already registered are not
// rolled back, so callers should treat any error as "state unknown" and
// re-verify via ListFiles.
func (u *Uploader) Upload(ctx context.Context, contextName string, units []Unit) ([]string, error) {
	if contextName == "" {
		return nil, fmt.Errorf("context name must not be empty")
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("no files to upload")
	}
	if len(units) > u.config.MaxFileCount {
		return nil, fmt.Errorf("too many files: %d provided, the limit is %d per call", len(units), u.config.MaxFileCount)
	}

	for i := range units {
		if units[i].Metadata == nil {
			continue
		}
		if err := ValidateMetadata(units[i].Metadata); err != nil {
			return nil, fmt.Errorf("invalid metadata for %s: %w", units[i].Name, err)
		}
	}

	// Flattening works on a copy so the caller's units are left untouched.
	if u.config.FlattenMetadata {
		flattened := make([]Unit, len(units))
		copy(flattened, units)
		for i := range flattened {
			if flattened[i].Metadata == nil {
				continue
			}
			metadata, err := Flatten(flattened[i].Metadata)
			if err != nil {
				return nil, fmt.Errorf("invalid metadata for %s: %w", flattened[i].Name, err)
			}
			flattened[i].Metadata = metadata
		}
		units = flattened
	}

	slots, err := u.acquireSlots(ctx, contextName, units)
	if err != nil {
		return nil, fmt.Errorf("acquire upload slots: %w", err)
	}

	startTime := time.Now()
	if err := u.transferAll(ctx, units, slots); err != nil {
		return nil, err
	}
	u.logger.Donef("Uploaded %d files in %s", len(units), time.Since(startTime).Round(time.Millisecond))

	if err := u.commitAll(ctx, contextName, units, slots); err != nil {
		return nil, err
	}

	fileIDs := make([]string, len(slots))
	for i, slot := range slots {
		fileIDs[i] = slot.FileID
	}
	return fileIDs, nil
}

func (u *Uploader) acquireSlots(ctx context.Context, contextName string, units []Unit) ([]Slot, error) {
	fileNames := make([]string, len(units))
	for i, unit := range units {
		fileNames[i] = unit.Name
	}

	raw, err := u.apiClient.Post(ctx, u.endpoints.PresignedUploadURL(), slotRequest{
		ContextName: contextName,
		FileNames:   fileNames,
	})
	if err != nil {
		return nil, err
	}

	var response slotResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, fmt.Errorf("parse slot response: %w", err)
	}
	if len(response.Files) != len(units) {
		return nil, fmt.Errorf("slot count mismatch: requested %d, got %d", len(units), len(response.Files))
	}

	return response.Files, nil
}

type transferResult struct {
	index int
	err   error
}

// transferAll uploads every unit's bytes to its slot in parallel. A failed
// transfer does not stop already-scheduled transfers, but any failure fails
// the whole call; every failure stays attributable to its file.
func (u *Uploader) transferAll(ctx context.Context, units []Unit, slots []Slot) error {
	resultChan := make(chan transferResult, len(units))
	semaphore := make(chan struct{}, u.config.Concurrency)

	for i := range units {
		go func(index int) {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			resultChan <- transferResult{
				index: index,
				err:   u.transfer(ctx, units[index], slots[index]),
			}
		}(i)
	}

	failures := make([]error, len(units))
	for completed := 0; completed < len(units); completed++ {
		result := <-resultChan
		failures[result.index] = result.err
	}

	return errors.Join(failures...)
}

func (u *Uploader) transfer(ctx context.Context, unit Unit, slot Slot) error {
	data, err := unit.bytes()
	if err != nil {
		return &TransferError{FileName: unit.Name, Err: err}
	}

	if u.s3 != nil && isS3URI(slot.StorageURI) {
		return u.s3.put(ctx, slot, unit, data)
	}

	u.logger.Debugf("Uploading %s (%s) to %s", unit.Name, units.HumanSize(float64(len(data))), slot.PresignedURL)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPut, slot.PresignedURL, data)
	if err != nil {
		return &TransferError{FileName: unit.Name, Err: err}
	}
	req.Header.Set("Content-Type", unit.ContentType)
	req.ContentLength = int64(len(data))

	resp, err := u.transferClient.Do(req)
	if err != nil {
		return &TransferError{FileName: unit.Name, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			u.logger.Warnf("close transfer response body: %s", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransferError{FileName: unit.Name, StatusCode: resp.StatusCode}
	}

	return nil
}

// commitAll registers the uploaded files with their metadata. The
// registration endpoint has a request-size ceiling, so entries are packed
// into size-bounded batches in input order and committed in parallel with
// the same pool width as the transfers.
func (u *Uploader) commitAll(ctx context.Context, contextName string, unitList []Unit, slots []Slot) error {
	items := make([]commitItem, len(unitList))
	for i := range unitList {
		items[i] = commitItem{
			FileID:      slots[i].FileID,
			FileName:    unitList[i].Name,
			ContentType: unitList[i].ContentType,
			StorageURI:  slots[i].StorageURI,
			Metadata:    unitList[i].Metadata,
		}
	}

	batches, err := batchBySize(items, u.config.MaxBatchBytes)
	if err != nil {
		return err
	}
	u.logger.Debugf("Registering %d files in %d batches (batch limit %s)",
		len(items), len(batches), units.HumanSize(float64(u.config.MaxBatchBytes)))

	resultChan := make(chan transferResult, len(batches))
	semaphore := make(chan struct{}, u.config.Concurrency)

	for i := range batches {
		go func(index int) {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			_, err := u.apiClient.Post(ctx, u.endpoints.ProcessUploaded(), commitRequest{
				ContextName: contextName,
				Files:       batches[index],
			})
			resultChan <- transferResult{index: index, err: err}
		}(i)
	}

	failures := make([]error, len(batches))
	for completed := 0; completed < len(batches); completed++ {
		result := <-resultChan
		if result.err != nil {
			failures[result.index] = fmt.Errorf("register batch %d of %d: %w", result.index+1, len(batches), result.err)
		}
	}

	return errors.Join(failures...)
}
