package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/contract-tracker/constants"
)

// AllowedExt checks if a file extension is one of the accepted contract formats.
func AllowedExt(ext string) bool {
	_, ok := constants.FormatForExt(ext)
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
