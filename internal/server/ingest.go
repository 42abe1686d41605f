package server

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/contract-tracker/internal/common"
	"github.com/joseph-ayodele/contract-tracker/internal/ingest"
	"github.com/joseph-ayodele/contract-tracker/internal/logger"
)

type ingestRequest struct {
	Path       string `json:"path" binding:"required"`
	SkipHidden *bool  `json:"skip_hidden"`
}

var errOutsideRoots = common.NewAppError("PATH_OUTSIDE_ROOTS", "허용되지 않은 경로입니다", common.ErrForbidden)

// ingestRoots holds each configured root both as written (made absolute)
// and with symlinks resolved, so requests may name either form.
type ingestRoots struct {
	lexical  []string
	resolved []string
}

func newIngestRoots(roots []string) ingestRoots {
	var out ingestRoots
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		out.lexical = append(out.lexical, abs)
		if real, err := filepath.EvalSymlinks(abs); err == nil {
			out.resolved = append(out.resolved, real)
		} else {
			out.resolved = append(out.resolved, abs)
		}
	}
	return out
}

func within(roots []string, p string) bool {
	for _, root := range roots {
		rel, err := filepath.Rel(root, p)
		if err != nil || filepath.IsAbs(rel) {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// resolve returns the symlink-free form of p. Paths outside every root are
// rejected before the filesystem is consulted, so existence is not leaked.
func (r ingestRoots) resolve(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", common.NewAppError("INVALID_INPUT", "잘못된 경로입니다", common.ErrInvalidInput)
	}
	if !within(r.lexical, abs) && !within(r.resolved, abs) {
		return "", errOutsideRoots
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", common.NewAppError("NOT_FOUND", "경로를 찾을 수 없습니다", common.ErrNotFound)
	}
	if !within(r.resolved, real) {
		return "", errOutsideRoots
	}
	return real, nil
}

// ingestPath queues a server-side file or directory under one of roots for
// background extraction. Results land in the job table.
func ingestPath(ing ingest.Ingestor, roots ingestRoots, base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		log := logger.WithContext(ctx, base)

		var req ingestRequest
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Path) == "" {
			fail(c, common.NewAppError("INVALID_INPUT", "path는 필수입니다", common.ErrInvalidInput))
			return
		}
		skipHidden := req.SkipHidden == nil || *req.SkipHidden

		path, err := roots.resolve(req.Path)
		if err != nil {
			log.Warn("http.ingest.rejected", "path", req.Path, "err", err)
			fail(c, err)
			return
		}
		info, err := os.Stat(path)
		if err != nil {
			fail(c, common.NewAppError("NOT_FOUND", "경로를 찾을 수 없습니다", common.ErrNotFound))
			return
		}

		if !info.IsDir() {
			r, err := ing.IngestPath(ctx, path)
			if err != nil {
				log.Warn("http.ingest.file_failed", "path", path, "err", err)
				fail(c, err)
				return
			}
			c.JSON(http.StatusAccepted, gin.H{"results": []ingest.IngestionResult{r}})
			return
		}

		results, stats, err := ing.IngestDirectory(ctx, path, skipHidden)
		if err != nil {
			log.Error("http.ingest.walk_failed", "path", path, "err", err)
			fail(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"results": results, "stats": stats})
	}
}
