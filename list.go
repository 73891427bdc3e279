package onecontext

import "fmt"

const (
	defaultFileListLimit  = 500
	defaultChunkListLimit = 200
	defaultSortField      = "date_created"
)

// ListFilesOptions filters and paginates file listings. FileIDs and
// FileNames are mutually exclusive. Date bounds use the ISO 8601 format,
// for example "2023-01-20T13:01:02Z". Prefix Sort with "-" to reverse.
type ListFilesOptions struct {
	Skip           int
	Limit          int
	Sort           string
	FileIDs        []string
	FileNames      []string
	MetadataFilter map[string]interface{}
	DateCreatedGTE string
	DateCreatedLTE string
}

func (o ListFilesOptions) validate() error {
	if len(o.FileIDs) > 0 && len(o.FileNames) > 0 {
		return fmt.Errorf("file IDs and file names are mutually exclusive filters, provide at most one")
	}
	return nil
}

// ListChunksOptions filters and paginates chunk listings. ChunkIDs, FileIDs
// and FileNames are mutually exclusive.
type ListChunksOptions struct {
	Skip             int
	Limit            int
	Sort             string
	ChunkIDs         []string
	FileIDs          []string
	FileNames        []string
	MetadataFilter   map[string]interface{}
	DateCreatedGTE   string
	DateCreatedLTE   string
	IncludeEmbedding bool
}

func (o ListChunksOptions) validate() error {
	filters := 0
	if len(o.ChunkIDs) > 0 {
		filters++
	}
	if len(o.FileIDs) > 0 {
		filters++
	}
	if len(o.FileNames) > 0 {
		filters++
	}
	if filters > 1 {
		return fmt.Errorf("chunk IDs, file IDs and file names are mutually exclusive filters, provide at most one")
	}
	return nil
}

type listFilesRequest struct {
	ContextName    string                 `json:"contextName,omitempty"`
	KnowledgeBase  string                 `json:"knowledgebaseName,omitempty"`
	VectorIndexes  []string               `json:"vectorIndexNames,omitempty"`
	Skip           int                    `json:"skip"`
	Limit          int                    `json:"limit"`
	Sort           string                 `json:"sort"`
	FileIDs        []string               `json:"fileIds,omitempty"`
	FileNames      []string               `json:"fileNames,omitempty"`
	MetadataFilter map[string]interface{} `json:"metadataJson,omitempty"`
	DateCreatedGTE string                 `json:"dateCreatedGte,omitempty"`
	DateCreatedLTE string                 `json:"dateCreatedLte,omitempty"`
}

func newListFilesRequest(opts ListFilesOptions) listFilesRequest {
	if opts.Limit <= 0 {
		opts.Limit = defaultFileListLimit
	}
	if opts.Sort == "" {
		opts.Sort = defaultSortField
	}
	return listFilesRequest{
		Skip:           opts.Skip,
		Limit:          opts.Limit,
		Sort:           opts.Sort,
		FileIDs:        opts.FileIDs,
		FileNames:      opts.FileNames,
		MetadataFilter: opts.MetadataFilter,
		DateCreatedGTE: opts.DateCreatedGTE,
		DateCreatedLTE: opts.DateCreatedLTE,
	}
}

type listChunksRequest struct {
	ContextName      string                 `json:"contextName,omitempty"`
	VectorIndexes    []string               `json:"vectorIndexNames,omitempty"`
	Skip             int                    `json:"skip"`
	Limit            int                    `json:"limit"`
	Sort             string                 `json:"sort"`
	ChunkIDs         []string               `json:"chunkIds,omitempty"`
	FileIDs          []string               `json:"fileIds,omitempty"`
	FileNames        []string               `json:"fileNames,omitempty"`
	MetadataFilter   map[string]interface{} `json:"metadataJson,omitempty"`
	DateCreatedGTE   string                 `json:"dateCreatedGte,omitempty"`
	DateCreatedLTE   string                 `json:"dateCreatedLte,omitempty"`
	IncludeEmbedding bool                   `json:"includeEmbedding"`
}

func newListChunksRequest(opts ListChunksOptions) listChunksRequest {
	if opts.Limit <= 0 {
		opts.Limit = defaultChunkListLimit
	}
	if opts.Sort == "" {
		opts.Sort = defaultSortField
	}
	return listChunksRequest{
		Skip:             opts.Skip,
		Limit:            opts.Limit,
		Sort:             opts.Sort,
		ChunkIDs:         opts.ChunkIDs,
		FileIDs:          opts.FileIDs,
		FileNames:        opts.FileNames,
		MetadataFilter:   opts.MetadataFilter,
		DateCreatedGTE:   opts.DateCreatedGTE,
		DateCreatedLTE:   opts.DateCreatedLTE,
		IncludeEmbedding: opts.IncludeEmbedding,
	}
}
