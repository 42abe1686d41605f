package constants

import (
	"sort"
	"strings"
)

// Format is the parser family a contract file is routed to.
type Format string

const (
	FormatPDF   Format = "PDF"
	FormatDOCX  Format = "DOCX"
	FormatHWP   Format = "HWP"
	FormatImage Format = "IMAGE"
)

// Formats lists every parser family, in dispatch order.
var Formats = []Format{FormatPDF, FormatDOCX, FormatHWP, FormatImage}

// AllowedExtensions maps every accepted upload extension to its parser family.
// Legacy .doc goes through the DOCX parser.
var AllowedExtensions = map[string]Format{
	"pdf":  FormatPDF,
	"docx": FormatDOCX,
	"doc":  FormatDOCX,
	"hwp":  FormatHWP,
	"hwpx": FormatHWP,
	"jpg":  FormatImage,
	"jpeg": FormatImage,
	"png":  FormatImage,
	"tif":  FormatImage,
	"tiff": FormatImage,
	"bmp":  FormatImage,
	"webp": FormatImage,
}

var mimeTypes = map[string]string{
	"pdf":  "application/pdf",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"doc":  "application/msword",
	"hwp":  "application/x-hwp",
	"hwpx": "application/hwp+zip",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
	"bmp":  "image/bmp",
	"webp": "image/webp",
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// FormatForExt returns the parser family for ext (with or without the dot).
func FormatForExt(ext string) (Format, bool) {
	f, ok := AllowedExtensions[NormalizeExt(ext)]
	return f, ok
}

// MIMEType returns the content type for ext, falling back to image/png.
func MIMEType(ext string) string {
	if m, ok := mimeTypes[NormalizeExt(ext)]; ok {
		return m
	}
	return "image/png"
}

// SupportedExtensions returns the accepted extensions, dotted and sorted.
func SupportedExtensions() []string {
	out := make([]string, 0, len(AllowedExtensions))
	for ext := range AllowedExtensions {
		out = append(out, "."+ext)
	}
	sort.Strings(out)
	return out
}
