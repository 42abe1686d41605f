package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/contract-tracker/internal/common"
	"github.com/joseph-ayodele/contract-tracker/internal/entity"
	"github.com/joseph-ayodele/contract-tracker/internal/ingest"
	"github.com/joseph-ayodele/contract-tracker/internal/repository"
)

// Extractor is the upload pipeline behind POST /api/upload-and-extract.
type Extractor interface {
	ProcessUpload(ctx context.Context, r io.Reader, name string) (entity.ExtractionResult, error)
}

// Exporter renders a finished job as a spreadsheet.
type Exporter interface {
	ExportJobXLSX(ctx context.Context, jobID uuid.UUID) ([]byte, error)
}

// Deps are the collaborators behind the routes. Only Extractor is required;
// job, export and readiness routes are mounted when their collaborator is
// set. Ingest also needs at least one IngestRoots entry.
type Deps struct {
	Extractor Extractor
	Jobs      repository.ExtractJobRepository
	Exporter  Exporter
	Ingestor  ingest.Ingestor
	// IngestRoots are the directories POST /api/ingest may read from.
	IngestRoots []string
	DB          Pinger
	Logger      *slog.Logger
}

// NewRouter builds the gin engine with middleware and all routes.
func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	r := gin.New()
	r.Use(RequestID(), Recovery(d.Logger), RequestLogger(d.Logger))

	api := r.Group("/api")
	api.GET("/health", health)
	api.POST("/upload-and-extract", uploadAndExtract(d.Extractor, d.Logger))

	if d.DB != nil {
		api.GET("/ready", ready(d.DB, d.Logger))
	}
	if d.Jobs != nil {
		api.GET("/extractions", listJobs(d.Jobs))
		api.GET("/extractions/:id", getJob(d.Jobs))
	}
	if d.Exporter != nil {
		api.GET("/extractions/:id/export", exportJob(d.Exporter, d.Jobs, d.Logger))
	}
	if d.Ingestor != nil && len(d.IngestRoots) > 0 {
		api.POST("/ingest", ingestPath(d.Ingestor, newIngestRoots(d.IngestRoots), d.Logger))
	}
	return r
}

func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "서버가 정상 작동 중입니다."})
}

// fail writes the standard failure body for err.
func fail(c *gin.Context, err error) {
	c.AbortWithStatusJSON(common.HTTPStatus(err), gin.H{
		"success": false,
		"message": common.UserMessage(err),
		"code":    common.ErrorCode(err),
	})
}
