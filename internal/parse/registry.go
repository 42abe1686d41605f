package parse

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/contract-tracker/constants"
	"github.com/joseph-ayodele/contract-tracker/internal/common"
	"github.com/joseph-ayodele/contract-tracker/internal/logger"
)

// Options bundles everything the parsers need from configuration.
type Options struct {
	Thresholds    Thresholds
	Budget        BudgetConfig
	Image         ImageConfig
	Pdftoppm      string
	RenderTimeout time.Duration
	Runner        Runner // nil runs real commands
}

// OptionsFromConfig maps the parse section of the application config.
func OptionsFromConfig(cfg common.ParseConfig) Options {
	return Options{
		Thresholds: Thresholds{
			MinTextLength:      cfg.MinTextLength,
			MinCharsPerPage:    cfg.MinCharsPerPage,
			MinMeaningfulRatio: cfg.MinMeaningfulRatio,
		},
		Budget: BudgetConfig{
			MaxPages:      cfg.MaxPages,
			MaxImageBytes: cfg.MaxImageBytes,
			MaxTotalBytes: cfg.MaxTotalImageBytes,
			Scales:        cfg.RenderScales,
		},
		Image: ImageConfig{
			MaxBytes:     cfg.MaxImageBytes,
			MaxDimension: cfg.MaxImageDimension,
		},
		Pdftoppm:      cfg.PDFRenderer,
		RenderTimeout: cfg.RenderTimeout,
	}
}

// Registry routes a file to the parser for its format family.
type Registry struct {
	pdf    *PDFParser
	docx   *DOCXParser
	hwp    *HWPParser
	image  *ImageParser
	logger *slog.Logger
}

func NewRegistry(opts Options, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		pdf: NewPDFParser(PDFConfig{
			Thresholds:    opts.Thresholds,
			Budget:        opts.Budget,
			Pdftoppm:      opts.Pdftoppm,
			RenderTimeout: opts.RenderTimeout,
		}, opts.Runner, logger),
		docx:   NewDOCXParser(logger),
		hwp:    NewHWPParser(logger),
		image:  NewImageParser(opts.Image, logger),
		logger: logger,
	}
}

// Parse dispatches on the file extension. A parse that yields neither text
// nor images is reported as ErrNoExtractableContent.
func (r *Registry) Parse(ctx context.Context, path string) (ParseResult, error) {
	log := logger.WithContext(ctx, r.logger)
	start := time.Now()

	ext := filepath.Ext(path)
	format, ok := constants.FormatForExt(ext)
	if !ok {
		return ParseResult{}, common.NewPipelineError(common.ErrUnsupportedFormat, "지원하지 않는 파일 형식입니다",
			fmt.Errorf("extension %q", ext))
	}

	var (
		res ParseResult
		err error
	)
	switch format {
	case constants.FormatPDF:
		res, err = r.pdf.Parse(ctx, path)
	case constants.FormatDOCX:
		res, err = r.docx.Parse(ctx, path)
	case constants.FormatHWP:
		res, err = r.hwp.Parse(ctx, path)
	case constants.FormatImage:
		res, err = r.image.Parse(ctx, path)
	default:
		err = fmt.Errorf("no parser for format %s", format)
	}
	if err != nil {
		log.Error("parse.failed", "path", path, "format", format, "error", err)
		return ParseResult{}, err
	}

	if !res.HasText() && !res.HasImages() {
		log.Warn("parse.empty", "path", path, "format", format, "method", res.Method)
		return ParseResult{}, common.NewPipelineError(common.ErrNoExtractableContent, "문서에서 내용을 추출할 수 없습니다", nil)
	}

	log.Info("parse.ok",
		"path", path,
		"format", format,
		"method", res.Method,
		"text_chars", len([]rune(res.Text)),
		"images", len(res.Images),
		"image_bytes", res.ImageBytes(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}
