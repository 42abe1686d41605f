package llm

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joseph-ayodele/contract-tracker/internal/common"
	"github.com/joseph-ayodele/contract-tracker/internal/entity"
)

const extractionFailedMsg = "계약서 일정 추출에 실패했습니다"

// OrchestratorConfig holds the request shaping knobs.
type OrchestratorConfig struct {
	Temperature        float32
	MaxTextChars       int
	MaxSupplementChars int
}

// DefaultOrchestratorConfig returns the production defaults.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		Temperature:        0.1,
		MaxTextChars:       12000,
		MaxSupplementChars: 4000,
	}
}

// OrchestratorConfigFrom lifts the LLM section of the app config.
func OrchestratorConfigFrom(c common.LLMConfig) OrchestratorConfig {
	out := DefaultOrchestratorConfig()
	if c.Temperature != nil {
		out.Temperature = *c.Temperature
	}
	if c.MaxTextChars > 0 {
		out.MaxTextChars = c.MaxTextChars
	}
	if c.MaxSupplementChars > 0 {
		out.MaxSupplementChars = c.MaxSupplementChars
	}
	return out
}

// Orchestrator turns parser output into one model call and a typed schedule.
type Orchestrator struct {
	gen    Generator
	cfg    OrchestratorConfig
	logger *slog.Logger
}

// NewOrchestrator wires a Generator.
func NewOrchestrator(gen Generator, cfg OrchestratorConfig, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{gen: gen, cfg: cfg, logger: logger}
}

// ExtractSchedule picks the text or multimodal path, calls the model and
// reconciles the answer. The returned raw text is the parser text when it
// is non-blank, otherwise the model's transcription.
func (o *Orchestrator) ExtractSchedule(ctx context.Context, req ExtractRequest) (entity.ContractSchedule, []entity.TaskItem, string, error) {
	rid := uuid.New().String()
	start := time.Now()

	mode := "text"
	var parts []Part
	if len(req.Images) > 0 {
		mode = "multimodal"
		parts = BuildMultimodalParts(req, o.cfg.MaxSupplementChars)
	} else {
		parts = BuildTextParts(req.Text, o.cfg.MaxTextChars)
	}

	o.logger.Info("llm.extract.start",
		"req_id", rid,
		"model", o.gen.Model(),
		"mode", mode,
		"text_len", len(req.Text),
		"images", len(req.Images),
		"temp", o.cfg.Temperature,
	)

	content, err := o.gen.Generate(ctx, GenerateRequest{
		Parts:       parts,
		Temperature: o.cfg.Temperature,
		JSON:        true,
	})
	if err != nil {
		o.logger.Error("llm.extract.generate_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.ContractSchedule{}, nil, "", common.NewPipelineError(common.ErrExtractionFailure, extractionFailedMsg, err)
	}

	schedule, tasks, modelRaw, err := Reconcile(content)
	if err != nil {
		o.logger.Error("llm.extract.reconcile_failed",
			"req_id", rid, "error", err,
			"content", truncateRunes(content, 1000),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.ContractSchedule{}, nil, "", common.NewPipelineError(common.ErrExtractionFailure, extractionFailedMsg, err)
	}

	rawText := req.Text
	if strings.TrimSpace(rawText) == "" {
		rawText = modelRaw
	}

	o.logger.Info("llm.extract.ok",
		"req_id", rid,
		"mode", mode,
		"schedules", len(schedule.Schedules),
		"tasks", len(tasks),
		"raw_text_len", len(rawText),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return schedule, tasks, rawText, nil
}
