package parse

import "strings"

// Image is one page-sized picture handed to the multimodal model.
type Image struct {
	MIMEType string
	Data     []byte
}

// ParseResult is what a format parser produces for one file. It is owned by
// the caller that asked for it and is never shared.
type ParseResult struct {
	Text   string
	Images []Image

	Pages  int    // source pages, when the format has them
	Method string // e.g. "pdf-text", "pdf-raster", "docx", "hwpx", "hwp-ole", "image"
}

func (r ParseResult) HasText() bool {
	return strings.TrimSpace(r.Text) != ""
}

func (r ParseResult) HasImages() bool {
	return len(r.Images) > 0
}

// ImageBytes sums the size of every image payload.
func (r ParseResult) ImageBytes() int {
	n := 0
	for _, img := range r.Images {
		n += len(img.Data)
	}
	return n
}
