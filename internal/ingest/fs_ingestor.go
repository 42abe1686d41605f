package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joseph-ayodele/contract-tracker/constants"
	"github.com/joseph-ayodele/contract-tracker/internal/async"
	"github.com/joseph-ayodele/contract-tracker/internal/common"
	"github.com/joseph-ayodele/contract-tracker/internal/parse"
)

const headSize = 512

// FSIngestor reads contract files from the local filesystem and hands them
// to a queue. Files whose content was already queued are reported as
// deduplicated and skipped.
type FSIngestor struct {
	Queue  async.Queue
	Logger *slog.Logger

	mu   sync.Mutex
	seen map[string]string // sha256 hex -> first path
}

func NewFSIngestor(q async.Queue, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{Queue: q, Logger: logger, seen: map[string]string{}}
}

func (i *FSIngestor) IngestPath(ctx context.Context, path string) (IngestionResult, error) {
	var out IngestionResult

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, err
	}
	out.SourcePath = abs

	format, ok := constants.FormatForExt(filepath.Ext(abs))
	if !ok {
		return out, common.NewPipelineError(common.ErrUnsupportedFormat, "지원하지 않는 파일 형식입니다", nil)
	}
	out.Format = format

	f, err := os.Open(abs)
	if err != nil {
		i.Logger.Warn("ingest.open_failed", "path", abs, "error", err)
		return out, err
	}
	defer f.Close()

	head := make([]byte, headSize)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return out, fmt.Errorf("read head: %w", err)
	}
	if err := parse.CheckSignature(filepath.Ext(abs), head[:n]); err != nil {
		return out, err
	}

	h := sha256.New()
	h.Write(head[:n])
	rest, err := io.Copy(h, f)
	if err != nil {
		return out, fmt.Errorf("hash: %w", err)
	}
	out.Size = int64(n) + rest
	out.HashHex = hex.EncodeToString(h.Sum(nil))

	i.mu.Lock()
	first, dup := i.seen[out.HashHex]
	if !dup {
		i.seen[out.HashHex] = abs
	}
	i.mu.Unlock()
	if dup {
		out.Deduplicated = true
		i.Logger.Info("ingest.deduplicated", "path", abs, "same_as", first)
		return out, nil
	}

	if err := i.Queue.Enqueue(ctx, async.Job{Path: abs, RequestID: common.RequestIDFromContext(ctx)}); err != nil {
		i.forget(out.HashHex)
		return out, fmt.Errorf("enqueue: %w", err)
	}
	i.Logger.Info("ingest.queued", "path", abs, "format", format, "bytes", out.Size)
	return out, nil
}

func (i *FSIngestor) forget(hash string) {
	i.mu.Lock()
	delete(i.seen, hash)
	i.mu.Unlock()
}

// IngestDirectory walks root, skips hidden entries if requested, and calls
// IngestPath for each supported file. Returns per-file results and
// aggregate stats.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []IngestionResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		// Symlinked files may point outside root.
		if d.IsDir() || d.Type()&fs.ModeSymlink != 0 || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, path)
		if err != nil {
			r.Err = err.Error()
			results = append(results, r)
			stats.Failed++
			return nil
		}
		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	i.Logger.Info("ingest.directory.done", "root", root,
		"scanned", stats.Scanned, "matched", stats.Matched, "succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated, "failed", stats.Failed)
	return results, stats, nil
}
