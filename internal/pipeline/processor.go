package pipeline

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/contract-tracker/constants"
	"github.com/joseph-ayodele/contract-tracker/internal/common"
	"github.com/joseph-ayodele/contract-tracker/internal/entity"
	"github.com/joseph-ayodele/contract-tracker/internal/logger"
	"github.com/joseph-ayodele/contract-tracker/internal/repository"
)

// Uploads is the inbound file store.
type Uploads interface {
	Save(ctx context.Context, r io.Reader, declaredName string) (string, error)
	Cleanup(path string)
}

// Archiver keeps a copy of the original upload.
type Archiver interface {
	Store(ctx context.Context, localPath, originalName string) (key, url string, err error)
}

// Processor coordinates parse (text or page images) then model extraction.
// Jobs and Archive are optional; their failures are logged and never fail a
// request.
type Processor struct {
	Logger    *slog.Logger
	Uploads   Uploads
	Parse     *ParseStage
	Extract   *ExtractStage
	Jobs      repository.ExtractJobRepository
	Archive   Archiver
	ModelName string
}

func NewProcessor(logger *slog.Logger, uploads Uploads, parse *ParseStage, extract *ExtractStage) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Logger: logger, Uploads: uploads, Parse: parse, Extract: extract}
}

// ProcessUpload saves r, processes it and always removes the saved file.
func (p *Processor) ProcessUpload(ctx context.Context, r io.Reader, name string) (entity.ExtractionResult, error) {
	ctx = common.WithFileName(ctx, name)
	log := logger.WithContext(ctx, p.Logger)

	path, err := p.Uploads.Save(ctx, r, name)
	if err != nil {
		log.Warn("processor.upload.rejected", "err", err)
		return entity.FailedResult(common.UserMessage(err)), err
	}
	defer p.Uploads.Cleanup(path)

	job := p.startJob(ctx, name)
	if p.Archive != nil {
		key, url, err := p.Archive.Store(ctx, path, name)
		if err != nil {
			log.Warn("processor.archive.failed", "err", err)
		} else if job != nil {
			if err := p.Jobs.AttachArchive(context.WithoutCancel(ctx), job.ID, key, url); err != nil {
				log.Warn("processor.job.archive_link_failed", "job_id", job.ID, "err", err)
			}
		}
	}
	return p.run(ctx, job, path)
}

// ProcessFile runs the pipeline over a file already on disk. The file is
// left in place.
func (p *Processor) ProcessFile(ctx context.Context, path string) (entity.ExtractionResult, error) {
	name := filepath.Base(path)
	ctx = common.WithFileName(ctx, name)
	return p.run(ctx, p.startJob(ctx, name), path)
}

func (p *Processor) run(ctx context.Context, job *entity.ExtractJob, path string) (entity.ExtractionResult, error) {
	parsed, err := p.Parse.Run(ctx, path)
	if err != nil {
		p.finishFailure(ctx, job, err)
		return entity.FailedResult(common.UserMessage(err)), err
	}

	ext, err := p.Extract.Run(ctx, parsed)
	if err != nil {
		p.finishFailure(ctx, job, err)
		return entity.FailedResult(common.UserMessage(err)), err
	}

	res := entity.NewExtractionResult(ext.Schedule, ext.Tasks, ext.RawText)
	if job != nil {
		res.JobID = job.ID.String()
		err := p.Jobs.FinishSuccess(context.WithoutCancel(ctx), job.ID, repository.SuccessDetails{
			UsedImages: parsed.HasImages(),
			ImageCount: len(parsed.Images),
			ModelName:  p.ModelName,
			Schedule:   ext.Schedule,
			Tasks:      ext.Tasks,
			RawText:    ext.RawText,
		})
		if err != nil {
			logger.WithContext(ctx, p.Logger).Warn("processor.job.finish_failed", "job_id", job.ID, "err", err)
		}
	}
	return res, nil
}

func (p *Processor) startJob(ctx context.Context, name string) *entity.ExtractJob {
	if p.Jobs == nil {
		return nil
	}
	format, ok := constants.FormatForExt(filepath.Ext(name))
	if !ok {
		return nil
	}
	job, err := p.Jobs.Start(context.WithoutCancel(ctx), name, format)
	if err != nil {
		logger.WithContext(ctx, p.Logger).Warn("processor.job.start_failed", "err", err)
		return nil
	}
	return job
}

func (p *Processor) finishFailure(ctx context.Context, job *entity.ExtractJob, cause error) {
	if job == nil {
		return
	}
	if err := p.Jobs.FinishFailure(context.WithoutCancel(ctx), job.ID, common.ErrorCode(cause), cause.Error()); err != nil {
		logger.WithContext(ctx, p.Logger).Warn("processor.job.finish_failed", "job_id", job.ID, "err", err)
	}
}

// JobID parses a job identifier from a request path.
func JobID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, common.NewAppError("INVALID_INPUT", "잘못된 작업 ID입니다", common.ErrInvalidInput)
	}
	return id, nil
}
