package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/contract-tracker/internal/entity"
	"github.com/joseph-ayodele/contract-tracker/internal/llm"
	"github.com/joseph-ayodele/contract-tracker/internal/logger"
	"github.com/joseph-ayodele/contract-tracker/internal/parse"
	"github.com/joseph-ayodele/contract-tracker/internal/upload"
)

// ParseStage turns a stored file into text and/or page images.
type ParseStage struct {
	Parser upload.Parser
	Logger *slog.Logger
}

func NewParseStage(parser upload.Parser, logger *slog.Logger) *ParseStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ParseStage{Parser: parser, Logger: logger}
}

func (s *ParseStage) Run(ctx context.Context, path string) (parse.ParseResult, error) {
	log := logger.WithContext(ctx, s.Logger)
	start := time.Now()
	res, err := s.Parser.Parse(ctx, path)
	if err != nil {
		log.Error("processor.parse.failed", "err", err, "elapsed_ms", time.Since(start).Milliseconds())
		return res, err
	}
	log.Info("processor.parse.ok",
		"method", res.Method,
		"pages", res.Pages,
		"text_len", len(res.Text),
		"images", len(res.Images),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// ExtractStage asks the model for the schedule.
type ExtractStage struct {
	Extractor llm.ScheduleExtractor
	Logger    *slog.Logger
}

func NewExtractStage(extractor llm.ScheduleExtractor, logger *slog.Logger) *ExtractStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractStage{Extractor: extractor, Logger: logger}
}

// Extraction is the model output plus the raw text surfaced to callers.
type Extraction struct {
	Schedule entity.ContractSchedule
	Tasks    []entity.TaskItem
	RawText  string
}

func (s *ExtractStage) Run(ctx context.Context, parsed parse.ParseResult) (Extraction, error) {
	log := logger.WithContext(ctx, s.Logger)
	schedule, tasks, raw, err := s.Extractor.ExtractSchedule(ctx, llm.ExtractRequest{
		Text:   parsed.Text,
		Images: parsed.Images,
	})
	if err != nil {
		log.Error("processor.extract.failed", "err", err)
		return Extraction{}, err
	}
	log.Info("processor.extract.ok", "schedules", len(schedule.Schedules), "tasks", len(tasks))
	return Extraction{Schedule: schedule, Tasks: tasks, RawText: raw}, nil
}
