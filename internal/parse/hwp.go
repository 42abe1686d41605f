package parse

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"context"
	"encoding/binary"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/richardlehane/mscfb"

	"github.com/joseph-ayodele/contract-tracker/internal/common"
)

var (
	xmlnsDeclRe  = regexp.MustCompile(`\sxmlns[^"]*"[^"]*"`)
	tagPrefixRe  = regexp.MustCompile(`<(/?)[\w]+:`)
	hwpSectionRe = regexp.MustCompile(`^BodyText/Section(\d+)$`)
)

const (
	hwpHeaderStream    = "FileHeader"
	hwpCompressedByte  = 36
	hwpCompressedFlag  = 0x01
	maxHWPSectionBytes = 256 << 20
)

// HWPParser reads both HWP encodings: HWPX (zip of XML) and legacy HWP
// (OLE compound file with deflated BodyText sections).
type HWPParser struct {
	logger *slog.Logger
}

func NewHWPParser(logger *slog.Logger) *HWPParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &HWPParser{logger: logger}
}

func (p *HWPParser) Parse(ctx context.Context, path string) (ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ParseResult{}, fmt.Errorf("open hwp: %w", err)
	}
	defer f.Close()

	head := make([]byte, 8)
	n, _ := io.ReadFull(f, head)
	head = head[:n]

	switch {
	case isZip(head):
		text, err := p.parseHWPX(ctx, path)
		if err != nil {
			return ParseResult{}, err
		}
		return ParseResult{Text: text, Method: "hwpx"}, nil
	case isOLE(head):
		text, err := p.parseOLE(ctx, f)
		if err != nil {
			return ParseResult{}, err
		}
		return ParseResult{Text: text, Method: "hwp-ole"}, nil
	default:
		return ParseResult{}, corruptHWP(errors.New("neither an OLE compound file nor a zip container"))
	}
}

func corruptHWP(err error) error {
	return common.NewPipelineError(common.ErrCorruptDocument, "한글(HWP) 문서를 읽을 수 없습니다", err)
}

func (p *HWPParser) parseHWPX(ctx context.Context, path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", corruptHWP(err)
	}
	defer zr.Close()

	var sections []*zip.File
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "Contents/section") && strings.HasSuffix(f.Name, ".xml") {
			sections = append(sections, f)
		}
	}
	sort.Slice(sections, func(i, j int) bool { return sections[i].Name < sections[j].Name })

	var out []string
	for _, f := range sections {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := p.readHWPXSection(f)
		if err != nil {
			p.logger.Warn("parse.hwpx.section_failed", "section", f.Name, "error", err)
		}
		if strings.TrimSpace(text) != "" {
			out = append(out, text)
		}
	}
	return strings.Join(out, "\n\n"), nil
}

func (p *HWPParser) readHWPXSection(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return hwpxText(raw)
}

// hwpxText strips namespace declarations and prefixes, then joins every
// non-blank text node in document order with single spaces. On a decode
// error the text gathered so far is returned with the error.
func hwpxText(raw []byte) (string, error) {
	doc := xmlnsDeclRe.ReplaceAll(raw, nil)
	doc = tagPrefixRe.ReplaceAll(doc, []byte("<$1"))

	dec := xml.NewDecoder(bytes.NewReader(doc))
	var parts []string
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return strings.Join(parts, " "), err
		}
		if cd, ok := tok.(xml.CharData); ok {
			if s := strings.TrimSpace(string(cd)); s != "" {
				parts = append(parts, s)
			}
		}
	}
	return strings.Join(parts, " "), nil
}

func (p *HWPParser) parseOLE(ctx context.Context, ra io.ReaderAt) (string, error) {
	doc, err := mscfb.New(ra)
	if err != nil {
		return "", corruptHWP(err)
	}

	var header []byte
	sections := map[int][]byte{}
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if cerr := ctx.Err(); cerr != nil {
			return "", cerr
		}
		name := strings.Join(append(append([]string{}, entry.Path...), entry.Name), "/")
		switch {
		case name == hwpHeaderStream:
			data, rerr := io.ReadAll(io.LimitReader(entry, 1<<16))
			if rerr != nil {
				return "", corruptHWP(fmt.Errorf("read FileHeader: %w", rerr))
			}
			header = data
		case hwpSectionRe.MatchString(name):
			idx, _ := strconv.Atoi(hwpSectionRe.FindStringSubmatch(name)[1])
			data, rerr := io.ReadAll(io.LimitReader(entry, maxHWPSectionBytes))
			if rerr != nil {
				p.logger.Warn("parse.hwp.section_read_failed", "section", name, "error", rerr)
				continue
			}
			sections[idx] = data
		}
	}

	if len(header) <= hwpCompressedByte {
		return "", corruptHWP(errors.New("FileHeader stream missing or truncated"))
	}
	compressed := header[hwpCompressedByte]&hwpCompressedFlag != 0

	var out []string
	for i := 0; ; i++ {
		data, ok := sections[i]
		if !ok {
			break
		}
		if compressed {
			if inflated, err := inflateRaw(data); err == nil {
				data = inflated
			} else {
				p.logger.Warn("parse.hwp.inflate_failed", "section", i, "error", err)
			}
		}
		if text := decodeHWPText(data); strings.TrimSpace(text) != "" {
			out = append(out, text)
		}
	}
	return strings.Join(out, "\n\n"), nil
}

func inflateRaw(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	return io.ReadAll(io.LimitReader(r, maxHWPSectionBytes))
}

// decodeHWPText reads data as little-endian UTF-16 code units without
// following the record structure: printable units are kept, CR/LF become
// newlines, tab stays a tab and every other unit is dropped.
func decodeHWPText(data []byte) string {
	var b strings.Builder
	for i := 0; i+1 < len(data); i += 2 {
		c := binary.LittleEndian.Uint16(data[i : i+2])
		switch {
		case c >= 0x20 && c < 0xD800:
			b.WriteRune(rune(c))
		case c == 0x0D || c == 0x0A:
			b.WriteByte('\n')
		case c == 0x09:
			b.WriteByte('\t')
		}
	}
	return b.String()
}
