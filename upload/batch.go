package upload

import (
	"encoding/json"
	"fmt"
)

// batchBySize packs commit items into batches whose cumulative
// JSON-serialized size stays at or under maxBytes. Packing is greedy: a batch
// accumulates items until the next item would exceed the limit, then a new
// batch starts. Item order is preserved within and across batches.
func batchBySize(items []commitItem, maxBytes int64) ([][]commitItem, error) {
	var batches [][]commitItem
	var batch []commitItem
	var batchSize int64

	for _, item := range items {
		serialized, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("serialize registration entry for %s: %w", item.FileName, err)
		}
		itemSize := int64(len(serialized))

		if batchSize+itemSize > maxBytes && len(batch) > 0 {
			batches = append(batches, batch)
			batch = nil
			batchSize = 0
		}
		batch = append(batch, item)
		batchSize += itemSize
	}

	if len(batch) > 0 {
		batches = append(batches, batch)
	}

	return batches, nil
}
