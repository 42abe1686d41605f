package ingest

import (
	"context"

	"github.com/joseph-ayodele/contract-tracker/constants"
)

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath   string           `json:"source_path"`
	Format       constants.Format `json:"format,omitempty"`
	Size         int64            `json:"size,omitempty"`
	HashHex      string           `json:"sha256,omitempty"`
	Deduplicated bool             `json:"deduplicated"` // same content already queued from another path
	Err          string           `json:"error,omitempty"`
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32 `json:"scanned"`
	Matched      uint32 `json:"matched"`
	Succeeded    uint32 `json:"succeeded"`
	Deduplicated uint32 `json:"deduplicated"`
	Failed       uint32 `json:"failed"`
}

// Ingestor is the behavior the batch and watch commands depend on.
type Ingestor interface {
	// IngestPath validates and queues a single file.
	IngestPath(ctx context.Context, path string) (IngestionResult, error)
	// IngestDirectory queues all matching files under root.
	IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error)
}
