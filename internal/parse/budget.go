package parse

import (
	"context"
	"log/slog"
)

// BudgetConfig bounds the images sent in one multimodal request.
type BudgetConfig struct {
	MaxPages      int
	MaxImageBytes int       // per page
	MaxTotalBytes int       // whole request
	Scales        []float64 // tried in order until a page fits MaxImageBytes
}

func DefaultBudgetConfig() BudgetConfig {
	return BudgetConfig{
		MaxPages:      20,
		MaxImageBytes: 4 << 20,
		MaxTotalBytes: 18 << 20,
		Scales:        []float64{2.0, 1.5, 1.0},
	}
}

// PageRenderer rasterises one 1-based page at the given scale (1.0 = 72 DPI) to PNG.
type PageRenderer interface {
	RenderPage(ctx context.Context, page int, scale float64) ([]byte, error)
}

// RenderSummary reports what the budget let through.
type RenderSummary struct {
	Requested  int
	Rendered   int
	Failed     int
	TotalBytes int
	Truncated  bool // stopped early on the total ceiling
}

// ImageBudget renders pages in order until the total ceiling would be crossed.
type ImageBudget struct {
	cfg    BudgetConfig
	logger *slog.Logger
}

func NewImageBudget(cfg BudgetConfig, logger *slog.Logger) *ImageBudget {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultBudgetConfig()
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = def.MaxPages
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = def.MaxImageBytes
	}
	if cfg.MaxTotalBytes <= 0 {
		cfg.MaxTotalBytes = def.MaxTotalBytes
	}
	if len(cfg.Scales) == 0 {
		cfg.Scales = def.Scales
	}
	return &ImageBudget{cfg: cfg, logger: logger}
}

// RenderPages renders up to MaxPages pages. A page that fails to render is
// skipped; the first page that would push the total over MaxTotalBytes ends
// the run, since later pages are of little use without the ones before them.
// Only context cancellation is returned as an error.
func (b *ImageBudget) RenderPages(ctx context.Context, r PageRenderer, pageCount int) ([][]byte, RenderSummary, error) {
	n := min(pageCount, b.cfg.MaxPages)
	sum := RenderSummary{Requested: n}
	images := make([][]byte, 0, n)

	for page := 1; page <= n; page++ {
		if err := ctx.Err(); err != nil {
			return nil, sum, err
		}

		data, err := b.renderFitted(ctx, r, page)
		if err != nil {
			if ctx.Err() != nil {
				return nil, sum, ctx.Err()
			}
			sum.Failed++
			b.logger.Warn("parse.render.page_failed", "page", page, "error", err)
			continue
		}

		if sum.TotalBytes+len(data) > b.cfg.MaxTotalBytes {
			sum.Truncated = true
			b.logger.Warn("parse.render.budget_exhausted",
				"page", page,
				"page_bytes", len(data),
				"total_bytes", sum.TotalBytes,
				"max_total_bytes", b.cfg.MaxTotalBytes,
				"pages_included", len(images),
			)
			break
		}

		sum.TotalBytes += len(data)
		images = append(images, data)
		b.logger.Debug("parse.render.page_ok", "page", page, "of", n, "bytes", len(data))
	}

	sum.Rendered = len(images)
	if sum.Rendered == 0 {
		b.logger.Error("parse.render.none", "requested", n, "failed", sum.Failed)
	} else {
		b.logger.Info("parse.render.done",
			"rendered", sum.Rendered,
			"requested", n,
			"failed", sum.Failed,
			"total_bytes", sum.TotalBytes,
			"truncated", sum.Truncated,
		)
	}
	return images, sum, nil
}

// renderFitted walks the scale ladder until the page fits MaxImageBytes. When
// even the last scale is too big the last attempt is returned anyway.
func (b *ImageBudget) renderFitted(ctx context.Context, r PageRenderer, page int) ([]byte, error) {
	var data []byte
	for i, scale := range b.cfg.Scales {
		out, err := r.RenderPage(ctx, page, scale)
		if err != nil {
			return nil, err
		}
		data = out
		if len(data) <= b.cfg.MaxImageBytes {
			return data, nil
		}
		if i < len(b.cfg.Scales)-1 {
			b.logger.Info("parse.render.downscale",
				"page", page,
				"bytes", len(data),
				"next_scale", b.cfg.Scales[i+1],
			)
		}
	}
	b.logger.Warn("parse.render.oversized", "page", page, "bytes", len(data), "max_bytes", b.cfg.MaxImageBytes)
	return data, nil
}
