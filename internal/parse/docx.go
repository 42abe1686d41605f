package parse

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/joseph-ayodele/contract-tracker/internal/common"
)

const docxBodyPart = "word/document.xml"

// DOCXParser extracts body paragraphs and renders tables as pipe-delimited rows.
type DOCXParser struct {
	logger *slog.Logger
}

func NewDOCXParser(logger *slog.Logger) *DOCXParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &DOCXParser{logger: logger}
}

func (p *DOCXParser) Parse(ctx context.Context, path string) (ParseResult, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return ParseResult{}, corruptDOCX(err)
	}
	defer zr.Close()

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == docxBodyPart {
			body = f
			break
		}
	}
	if body == nil {
		return ParseResult{}, corruptDOCX(fmt.Errorf("%s not found", docxBodyPart))
	}

	rc, err := body.Open()
	if err != nil {
		return ParseResult{}, corruptDOCX(err)
	}
	defer rc.Close()

	w := &docxWalker{}
	if err := w.walk(ctx, rc); err != nil {
		if ctx.Err() != nil {
			return ParseResult{}, ctx.Err()
		}
		if w.empty() {
			return ParseResult{}, corruptDOCX(err)
		}
		p.logger.Warn("parse.docx.partial",
			"path", path,
			"paragraphs", len(w.paragraphs),
			"tables", len(w.tables),
			"error", err,
		)
	}

	return ParseResult{Text: w.render(), Method: "docx"}, nil
}

func corruptDOCX(err error) error {
	return common.NewPipelineError(common.ErrCorruptDocument,
		"Word 문서를 읽을 수 없습니다. 구형 .doc 파일은 .docx로 변환 후 업로드해 주세요", err)
}

type docxCell struct {
	paras  []string
	span   int
	vMerge string // "", "restart" or "continue"
}

// docxWalker streams document.xml once. Body paragraphs and tables are
// collected separately; nested tables fold their text into the enclosing cell.
type docxWalker struct {
	paragraphs []string
	tables     [][][]string

	stack    []string
	tblDepth int
	para     strings.Builder
	inText   bool

	rows    [][]string
	prevRow []string
	row     []docxCell
	cell    *docxCell
}

func (w *docxWalker) empty() bool {
	return len(w.paragraphs) == 0 && len(w.tables) == 0
}

func (w *docxWalker) parent() string {
	if len(w.stack) < 2 {
		return ""
	}
	return w.stack[len(w.stack)-2]
}

func (w *docxWalker) walk(ctx context.Context, r io.Reader) error {
	dec := xml.NewDecoder(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			w.stack = append(w.stack, t.Name.Local)
			w.start(t)
		case xml.EndElement:
			w.end(t.Name.Local)
			if len(w.stack) > 0 {
				w.stack = w.stack[:len(w.stack)-1]
			}
		case xml.CharData:
			if w.inText {
				w.para.Write(t)
			}
		}
	}
}

func (w *docxWalker) start(t xml.StartElement) {
	switch t.Name.Local {
	case "p":
		if w.tblDepth == 0 && w.parent() == "body" {
			w.para.Reset()
		}
	case "t":
		w.inText = true
	case "tab":
		if w.parent() == "r" {
			w.para.WriteByte('\t')
		}
	case "br", "cr":
		if w.parent() == "r" {
			w.para.WriteByte('\n')
		}
	case "tbl":
		w.tblDepth++
		if w.tblDepth == 1 {
			w.rows = nil
			w.prevRow = nil
		}
	case "tr":
		if w.tblDepth == 1 {
			w.row = nil
		}
	case "tc":
		if w.tblDepth == 1 {
			w.cell = &docxCell{span: 1}
		}
	case "gridSpan":
		if w.tblDepth == 1 && w.cell != nil {
			if n, err := strconv.Atoi(attr(t, "val")); err == nil && n > 1 {
				w.cell.span = n
			}
		}
	case "vMerge":
		if w.tblDepth == 1 && w.cell != nil {
			w.cell.vMerge = attr(t, "val")
			if w.cell.vMerge == "" {
				w.cell.vMerge = "continue"
			}
		}
	}
}

func (w *docxWalker) end(local string) {
	switch local {
	case "t":
		w.inText = false
	case "p":
		text := norm.NFC.String(w.para.String())
		switch {
		case w.tblDepth > 0 && w.cell != nil:
			w.cell.paras = append(w.cell.paras, text)
			w.para.Reset()
		case w.tblDepth == 0 && w.parent() == "body":
			if strings.TrimSpace(text) != "" {
				w.paragraphs = append(w.paragraphs, text)
			}
			w.para.Reset()
		}
	case "tc":
		if w.tblDepth == 1 && w.cell != nil {
			w.row = append(w.row, *w.cell)
			w.cell = nil
		}
	case "tr":
		if w.tblDepth == 1 {
			w.closeRow()
		}
	case "tbl":
		if w.tblDepth == 1 {
			w.tables = append(w.tables, w.rows)
			w.rows = nil
		}
		w.tblDepth--
	}
}

// closeRow lays the row out on the grid the way merged cells are reported:
// a horizontally spanned cell repeats per grid column and a vertically
// continued cell repeats the text from the row above.
func (w *docxWalker) closeRow() {
	var grid []string
	for _, c := range w.row {
		text := strings.TrimSpace(strings.Join(c.paras, "\n"))
		if c.vMerge == "continue" && len(grid) < len(w.prevRow) {
			text = w.prevRow[len(grid)]
		}
		for i := 0; i < c.span; i++ {
			grid = append(grid, text)
		}
	}
	w.rows = append(w.rows, grid)
	w.prevRow = grid
	w.row = nil
}

func (w *docxWalker) render() string {
	parts := append([]string(nil), w.paragraphs...)
	for _, rows := range w.tables {
		if table := renderTable(rows); table != "" {
			parts = append(parts, "\n[표]\n"+table)
		}
	}
	return strings.Join(parts, "\n\n")
}

// renderTable collapses consecutive duplicate cells and joins them with " | ".
// A table without any non-empty cell renders as "".
func renderTable(rows [][]string) string {
	lines := make([]string, 0, len(rows))
	hasContent := false
	for _, cells := range rows {
		unique := make([]string, 0, len(cells))
		for i, c := range cells {
			if c != "" {
				hasContent = true
			}
			if i > 0 && c == cells[i-1] {
				continue
			}
			unique = append(unique, c)
		}
		lines = append(lines, strings.Join(unique, " | "))
	}
	if !hasContent {
		return ""
	}
	return strings.Join(lines, "\n")
}

func attr(t xml.StartElement, local string) string {
	for _, a := range t.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
