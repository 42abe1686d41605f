// Package testutil builds in-memory contract documents for tests.
package testutil

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
)

// BuildPDF returns a PDF with one page per entry. Non-empty pages carry a
// single text run in a Type0 font whose ToUnicode map covers every rune used,
// so text extraction round-trips Hangul. Empty strings become pages with no
// text layer at all.
func BuildPDF(pages ...string) []byte {
	codes := map[rune]uint16{}
	var runes []rune
	for _, p := range pages {
		for _, r := range p {
			if _, ok := codes[r]; !ok {
				codes[r] = 0
				runes = append(runes, r)
			}
		}
	}
	sort.Slice(runes, func(i, j int) bool { return runes[i] < runes[j] })
	for i, r := range runes {
		codes[r] = uint16(i + 1)
	}

	var objs []string
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 6+2*i)
	}
	objs = append(objs,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		"<< /Type /Font /Subtype /Type0 /BaseFont /TestGothic /Encoding /Identity-H /DescendantFonts [4 0 R] /ToUnicode 5 0 R >>",
		"<< /Type /Font /Subtype /CIDFontType2 /BaseFont /TestGothic /CIDSystemInfo << /Registry (Adobe) /Ordering (Identity) /Supplement 0 >> >>",
		stream(toUnicodeCMap(runes, codes)),
	)
	for i, p := range pages {
		objs = append(objs, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 7+2*i))
		content := "q Q"
		if p != "" {
			var hex strings.Builder
			for _, r := range p {
				fmt.Fprintf(&hex, "%04X", codes[r])
			}
			content = fmt.Sprintf("BT /F1 12 Tf 72 770 Td <%s> Tj ET", hex.String())
		}
		objs = append(objs, stream(content))
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objs)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func stream(data string) string {
	return fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(data), data)
}

func toUnicodeCMap(runes []rune, codes map[rune]uint16) string {
	var b strings.Builder
	b.WriteString("1 begincodespacerange\n<0000> <FFFF>\nendcodespacerange\n")
	for start := 0; start < len(runes); start += 100 {
		end := min(start+100, len(runes))
		fmt.Fprintf(&b, "%d beginbfchar\n", end-start)
		for _, r := range runes[start:end] {
			fmt.Fprintf(&b, "<%04X> <%04X>\n", codes[r], r)
		}
		b.WriteString("endbfchar\n")
	}
	return b.String()
}
