// Package upload implements the multi-file upload pipeline: input
// validation, presigned slot acquisition, parallel storage transfers with
// retry, and batched metadata registration.
package upload

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/bitrise-io/go-utils/v2/pathutil"
)

// SupportedFileTypes lists the file extensions accepted for upload. Only the
// extension matters for local validation; no file content is interpreted
// client-side.
var SupportedFileTypes = []string{
	".bmp", ".doc", ".docx", ".eml", ".epub", ".heic", ".html", ".jpeg",
	".jpg", ".md", ".msg", ".odt", ".pdf", ".png", ".ppt", ".pptx", ".rst",
	".rtf", ".tiff", ".txt", ".xml",
}

const fallbackContentType = "application/octet-stream"

// Unit is a single file queued for upload: the local bytes (a path or an
// in-memory payload), the guessed content type, and the per-file metadata.
// Units are transient; they are consumed by the pipeline and discarded.
type Unit struct {
	Name        string
	Path        string
	Content     []byte
	ContentType string
	Metadata    map[string]interface{}
}

func (u Unit) bytes() ([]byte, error) {
	if u.Content != nil {
		return u.Content, nil
	}
	data, err := os.ReadFile(u.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", u.Path, err)
	}
	return data, nil
}

// UnitsFromPaths builds upload units from local file paths and optional
// per-file metadata. Every path must exist and carry a supported extension.
// If metadata is provided its length must equal the number of paths; entry i
// belongs to path i.
func UnitsFromPaths(paths []string, metadata []map[string]interface{}, pathChecker pathutil.PathChecker, pathModifier pathutil.PathModifier) ([]Unit, error) {
	if metadata != nil && len(metadata) != len(paths) {
		return nil, fmt.Errorf("metadata count (%d) does not match file count (%d)", len(metadata), len(paths))
	}

	units := make([]Unit, 0, len(paths))
	for i, path := range paths {
		absPath, err := pathModifier.AbsPath(path)
		if err != nil {
			return nil, fmt.Errorf("resolve path %s: %w", path, err)
		}

		exists, err := pathChecker.IsPathExists(absPath)
		if err != nil {
			return nil, fmt.Errorf("check path %s: %w", absPath, err)
		}
		if !exists {
			return nil, fmt.Errorf("the file at %s does not exist", absPath)
		}

		ext := strings.ToLower(filepath.Ext(absPath))
		if !isSupportedExtension(ext) {
			return nil, fmt.Errorf("%s files are not supported, supported file types: %s", ext, strings.Join(SupportedFileTypes, ", "))
		}

		unit := Unit{
			Name:        filepath.Base(absPath),
			Path:        absPath,
			ContentType: contentTypeForExtension(ext),
		}
		if metadata != nil {
			unit.Metadata = metadata[i]
		}
		units = append(units, unit)
	}

	return units, nil
}

// UnitsFromTexts builds in-memory upload units from UTF-8 text payloads.
// Names that do not end in .txt are renamed to their first dot-separated
// segment plus a .txt extension.
func UnitsFromTexts(texts []string, names []string, metadata []map[string]interface{}) ([]Unit, error) {
	if len(names) != len(texts) {
		return nil, fmt.Errorf("file name count (%d) does not match text count (%d)", len(names), len(texts))
	}
	if metadata != nil && len(metadata) != len(texts) {
		return nil, fmt.Errorf("metadata count (%d) does not match text count (%d)", len(metadata), len(texts))
	}

	units := make([]Unit, 0, len(texts))
	for i, text := range texts {
		name := names[i]
		if name == "" {
			return nil, fmt.Errorf("file name at position %d is empty", i)
		}
		if !strings.HasSuffix(name, ".txt") {
			name = strings.SplitN(name, ".", 2)[0] + ".txt"
		}

		unit := Unit{
			Name:        name,
			Content:     []byte(text),
			ContentType: contentTypeForExtension(".txt"),
		}
		if metadata != nil {
			unit.Metadata = metadata[i]
		}
		units = append(units, unit)
	}

	return units, nil
}

func isSupportedExtension(ext string) bool {
	for _, supported := range SupportedFileTypes {
		if ext == supported {
			return true
		}
	}
	return false
}

func contentTypeForExtension(ext string) string {
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		return fallbackContentType
	}
	// Strip charset parameters some platforms attach to text types; storage
	// expects the bare media type.
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		return mediaType
	}
	return contentType
}
