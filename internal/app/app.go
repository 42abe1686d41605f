// Package app wires configuration into the running components shared by
// the server and the command-line tool.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/contract-tracker/internal/common"
	"github.com/joseph-ayodele/contract-tracker/internal/export"
	"github.com/joseph-ayodele/contract-tracker/internal/llm"
	"github.com/joseph-ayodele/contract-tracker/internal/llm/provider"
	"github.com/joseph-ayodele/contract-tracker/internal/parse"
	"github.com/joseph-ayodele/contract-tracker/internal/pipeline"
	"github.com/joseph-ayodele/contract-tracker/internal/repository"
	"github.com/joseph-ayodele/contract-tracker/internal/storage"
	"github.com/joseph-ayodele/contract-tracker/internal/upload"
)

// Options adjusts what New builds.
type Options struct {
	// WithLLM builds the model client and the processor. Without it only
	// parsing is available.
	WithLLM bool
	// Generator replaces the configured provider when set.
	Generator llm.Generator
	// Runner replaces the pdftoppm runner when set.
	Runner parse.Runner
}

// App holds the wired components. DB, Jobs, Archive and Export are nil when
// their configuration is absent; Processor is nil without an LLM.
type App struct {
	Config    *common.Config
	Logger    *slog.Logger
	Registry  *parse.Registry
	Uploads   *upload.Service
	Processor *pipeline.Processor
	DB        *repository.DB
	Jobs      repository.ExtractJobRepository
	Archive   *storage.Archive
	Export    *export.Service
}

func New(ctx context.Context, cfg *common.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(opts.WithLLM && opts.Generator == nil); err != nil {
		return nil, err
	}

	parseOpts := parse.OptionsFromConfig(cfg.Parse)
	parseOpts.Runner = opts.Runner
	a := &App{Config: cfg, Logger: logger}
	a.Registry = parse.NewRegistry(parseOpts, logger)
	a.Uploads = upload.NewService(upload.ConfigFrom(cfg.Upload), a.Registry, logger)

	if strings.TrimSpace(cfg.Database.DSN) != "" {
		db, err := repository.Open(ctx, repository.ConfigFrom(cfg.Database), logger)
		if err != nil {
			return nil, err
		}
		a.DB = db
		if err := db.Migrate(ctx); err != nil {
			a.Close()
			return nil, err
		}
		a.Jobs = repository.NewExtractJobRepository(db, logger)
		a.Export = export.NewService(a.Jobs, logger)
	}

	if strings.TrimSpace(cfg.Storage.Endpoint) != "" {
		archive, err := storage.NewArchive(cfg.Storage, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("archive bucket: %w", err)
		}
		a.Archive = archive
	}

	if !opts.WithLLM {
		return a, nil
	}
	gen := opts.Generator
	if gen == nil {
		g, err := provider.New(cfg.LLM, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		gen = g
	}
	orch := llm.NewOrchestrator(gen, llm.OrchestratorConfigFrom(cfg.LLM), logger)
	a.Processor = pipeline.NewProcessor(logger, a.Uploads,
		pipeline.NewParseStage(a.Registry, logger),
		pipeline.NewExtractStage(orch, logger))
	a.Processor.ModelName = gen.Model()
	if a.Jobs != nil {
		a.Processor.Jobs = a.Jobs
	}
	if a.Archive != nil {
		a.Processor.Archive = a.Archive
	}
	logger.Info("app.ready",
		"provider", cfg.LLM.Provider,
		"model", gen.Model(),
		"jobs", a.Jobs != nil,
		"archive", a.Archive != nil,
	)
	return a, nil
}

// Close releases the database connection.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
		a.DB = nil
	}
}
