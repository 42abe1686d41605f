package parse

import (
	"bytes"

	"github.com/joseph-ayodele/contract-tracker/constants"
	"github.com/joseph-ayodele/contract-tracker/internal/common"
)

// SniffLen is how many leading bytes CheckSignature needs to decide.
const SniffLen = 12

var (
	magicPDF  = []byte("%PDF")
	magicZip  = []byte("PK\x03\x04")
	magicOLE  = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	magicJPEG = []byte{0xFF, 0xD8, 0xFF}
	magicPNG  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}
	magicTIFF = [][]byte{[]byte("II*\x00"), []byte("MM\x00*")}
	magicBMP  = []byte("BM")
)

type matcher func(head []byte) bool

func prefix(sigs ...[]byte) matcher {
	return func(head []byte) bool {
		for _, sig := range sigs {
			if bytes.HasPrefix(head, sig) {
				return true
			}
		}
		return false
	}
}

func isWebP(head []byte) bool {
	return len(head) >= 12 && bytes.Equal(head[:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WEBP"))
}

var signatures = map[string]matcher{
	"pdf":  prefix(magicPDF),
	"docx": prefix(magicZip),
	"hwpx": prefix(magicZip),
	"hwp":  prefix(magicOLE, magicZip),
	"doc":  prefix(magicOLE, magicZip),
	"jpg":  prefix(magicJPEG),
	"jpeg": prefix(magicJPEG),
	"png":  prefix(magicPNG),
	"tif":  prefix(magicTIFF...),
	"tiff": prefix(magicTIFF...),
	"bmp":  prefix(magicBMP),
	"webp": isWebP,
}

// CheckSignature confirms that head (the first bytes of the file) carries the
// magic signature expected for ext. Unsupported extensions are rejected
// before any byte is looked at.
func CheckSignature(ext string, head []byte) error {
	ext = constants.NormalizeExt(ext)
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		return common.NewPipelineError(common.ErrUnsupportedFormat, "지원하지 않는 파일 형식입니다", nil)
	}
	match, ok := signatures[ext]
	if !ok || !match(head) {
		return common.NewPipelineError(common.ErrFormatMismatch, "파일 내용이 확장자와 일치하지 않습니다", nil)
	}
	return nil
}

func isZip(head []byte) bool { return bytes.HasPrefix(head, magicZip) }

func isOLE(head []byte) bool { return bytes.HasPrefix(head, magicOLE) }
