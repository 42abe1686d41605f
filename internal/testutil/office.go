package testutil

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"encoding/binary"
	"fmt"
	"sort"
	"unicode/utf16"
)

const wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// BuildDOCX wraps body (the children of w:body) into a minimal .docx.
func BuildDOCX(body string) []byte {
	doc := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="%s"><w:body>%s<w:sectPr/></w:body></w:document>`, wordNS, body)
	return buildZip(map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`,
		"word/document.xml":   doc,
	})
}

// Para renders a w:p with a single run.
func Para(text string) string {
	return fmt.Sprintf(`<w:p><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p>`, text)
}

// BuildHWPX builds an HWPX container from section member name to XML body.
func BuildHWPX(sections map[string]string) []byte {
	files := map[string]string{
		"mimetype":              "application/hwp+zip",
		"Contents/content.hpf":  `<?xml version="1.0"?><opf:package xmlns:opf="http://www.idpf.org/2007/opf/"/>`,
		"META-INF/manifest.xml": `<?xml version="1.0"?><manifest/>`,
	}
	for name, body := range sections {
		files[name] = body
	}
	return buildZip(files)
}

func buildZip(files map[string]string) []byte {
	names := make([]string, 0, len(files))
	for n := range files {
		names = append(names, n)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, n := range names {
		w, err := zw.Create(n)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write([]byte(files[n])); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// HWPBodyText encodes text as the UTF-16LE code units a BodyText section
// carries, with a few control units mixed in ahead of it.
func HWPBodyText(text string) []byte {
	var buf bytes.Buffer
	// record header plus inline control units that the decoder must drop
	binary.Write(&buf, binary.LittleEndian, []uint16{0x0015, 0x0000, 0x0002, 0x0003})
	binary.Write(&buf, binary.LittleEndian, utf16.Encode([]rune(text)))
	return buf.Bytes()
}

// Deflate compresses data as a raw deflate stream, as compressed HWP does.
func Deflate(data []byte) []byte {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		panic(err)
	}
	w.Write(data)
	w.Close()
	return buf.Bytes()
}
