package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/docflow/constants"
)

// AllowedExt checks if a file extension is in the allowed set.
func AllowedExt(ext string) bool {
	ext = constants.NormalizeExt(ext)
	_, ok := constants.AllowedExtensions[ext]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

// FileURL turns an absolute path into the file:// content ref stored on documents.
func FileURL(abs string) string {
	return "file://" + filepath.ToSlash(abs)
}
