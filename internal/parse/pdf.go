package parse

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"

	"github.com/joseph-ayodele/contract-tracker/internal/common"
)

var (
	imageArtifactRe = regexp.MustCompile(`<image:[^>]*>`)
	blankLinesRe    = regexp.MustCompile(`\n\s*\n`)
	pageMarkerRe    = regexp.MustCompile(`[-─━]+\s*페이지\s*\d*\s*[-─━]*`)
)

// PDFConfig configures the text-layer and raster paths.
type PDFConfig struct {
	Thresholds    Thresholds
	Budget        BudgetConfig
	Pdftoppm      string // binary name or absolute path; if empty -> "pdftoppm"
	RenderTimeout time.Duration
}

// PDFParser reads the text layer and falls back to page images when the
// text layer looks like a scan.
type PDFParser struct {
	cfg    PDFConfig
	budget *ImageBudget
	runner Runner
	logger *slog.Logger
}

func NewPDFParser(cfg PDFConfig, runner Runner, logger *slog.Logger) *PDFParser {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = execRunner{}
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.RenderTimeout <= 0 {
		cfg.RenderTimeout = 60 * time.Second
	}
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = DefaultThresholds()
	}
	return &PDFParser{
		cfg:    cfg,
		budget: NewImageBudget(cfg.Budget, logger),
		runner: runner,
		logger: logger,
	}
}

func (p *PDFParser) Parse(ctx context.Context, path string) (ParseResult, error) {
	pages, err := p.readPages(path)
	if err != nil {
		return ParseResult{}, common.NewPipelineError(common.ErrCorruptDocument, "PDF 파일을 열 수 없습니다", err)
	}

	var (
		parts      []string
		emptyPages int
	)
	for i, text := range pages {
		if text == "" {
			emptyPages++
			continue
		}
		parts = append(parts, fmt.Sprintf("--- 페이지 %d ---\n%s", i+1, text))
	}
	total := strings.Join(parts, "\n\n")
	clean := strings.TrimSpace(pageMarkerRe.ReplaceAllString(total, ""))

	scanned, reason := IsLikelyScanned(clean, len(pages), emptyPages, p.cfg.Thresholds)
	cleanLen := utf8.RuneCountInString(clean)
	if cleanLen >= p.cfg.Thresholds.MinTextLength && !scanned {
		p.logger.Info("parse.pdf.text_ok", "path", path, "pages", len(pages), "chars", cleanLen)
		return ParseResult{Text: total, Pages: len(pages), Method: "pdf-text"}, nil
	}

	p.logger.Info("parse.pdf.scan_detected",
		"path", path,
		"pages", len(pages),
		"empty_pages", emptyPages,
		"chars", cleanLen,
		"reason", reason,
	)

	images, err := p.renderImages(ctx, path, len(pages))
	if err != nil {
		return ParseResult{}, err
	}
	return ParseResult{Text: total, Images: images, Pages: len(pages), Method: "pdf-raster"}, nil
}

// readPages returns the cleaned text of every page; a page whose text layer
// cannot be decoded comes back empty.
func (p *PDFParser) readPages(path string) (pages []string, err error) {
	f, r, err := openPDF(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	n := 0
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("read page tree: %v", rec)
			}
		}()
		n = r.NumPage()
	}()
	if err != nil {
		return nil, err
	}

	pages = make([]string, n)
	for i := 1; i <= n; i++ {
		text, perr := pageText(r, i)
		if perr != nil {
			p.logger.Warn("parse.pdf.page_text_failed", "path", path, "page", i, "error", perr)
			continue
		}
		pages[i-1] = cleanPageText(text)
	}
	return pages, nil
}

func openPDF(path string) (f *os.File, r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if f != nil {
				f.Close()
			}
			f, r, err = nil, nil, fmt.Errorf("open pdf: %v", rec)
		}
	}()
	return pdf.Open(path)
}

func pageText(r *pdf.Reader, i int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("page %d: %v", i, rec)
		}
	}()
	page := r.Page(i)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

func cleanPageText(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFC.String(s)
	s = imageArtifactRe.ReplaceAllString(s, "")
	s = blankLinesRe.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}

func (p *PDFParser) renderImages(ctx context.Context, path string, pageCount int) ([]Image, error) {
	tmpDir, err := os.MkdirTemp("", "ct-pp-*")
	if err != nil {
		return nil, fmt.Errorf("create render dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			p.logger.Warn("parse.pdf.cleanup_failed", "dir", tmpDir, "error", err)
		}
	}()

	renderer := &pdftoppmRenderer{
		bin:     p.cfg.Pdftoppm,
		path:    path,
		dir:     tmpDir,
		timeout: p.cfg.RenderTimeout,
		runner:  p.runner,
		logger:  p.logger,
	}
	pngs, _, err := p.budget.RenderPages(ctx, renderer, pageCount)
	if err != nil {
		return nil, err
	}

	images := make([]Image, len(pngs))
	for i, data := range pngs {
		images[i] = Image{MIMEType: "image/png", Data: data}
	}
	return images, nil
}

// pdftoppmRenderer renders single pages with poppler's pdftoppm.
type pdftoppmRenderer struct {
	bin     string
	path    string
	dir     string
	timeout time.Duration
	runner  Runner
	logger  *slog.Logger
}

func (r *pdftoppmRenderer) RenderPage(ctx context.Context, page int, scale float64) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	dpi := int(math.Round(72 * scale))
	prefix := filepath.Join(r.dir, fmt.Sprintf("page-%d-%d", page, dpi))
	num := strconv.Itoa(page)

	// pdftoppm -f N -l N -r DPI -png -singlefile <in.pdf> <prefix>  => <prefix>.png
	_, errb, err := r.runner.Run(ctx, r.bin, r.logger,
		"-f", num, "-l", num, "-r", strconv.Itoa(dpi), "-png", "-singlefile", r.path, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm page %d: %w: %s", page, err, truncate(strings.TrimSpace(string(errb)), 512))
	}

	out := prefix + ".png"
	defer os.Remove(out)
	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("read rendered page %d: %w", page, err)
	}
	return data, nil
}
