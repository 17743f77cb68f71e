package constants

import (
	"mime"
	"path/filepath"
	"strings"
)

// Common MIME types the extractor distinguishes.
const (
	MimePDF      = "application/pdf"
	MimeText     = "text/plain"
	MimeMarkdown = "text/markdown"
	MimeJSON     = "application/json"
	MimeJS       = "application/javascript"
	MimeOctet    = "application/octet-stream"
)

// AllowedExtensions holds the default allowed file extensions for local ingestion.
var AllowedExtensions = map[string]string{
	"pdf":  MimePDF,
	"txt":  MimeText,
	"md":   MimeMarkdown,
	"json": MimeJSON,
	"js":   MimeJS,
	"csv":  "text/csv",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MimeForPath resolves a MIME type from a file path's extension.
func MimeForPath(path string) string {
	ext := NormalizeExt(filepath.Ext(path))
	if m, ok := AllowedExtensions[ext]; ok {
		return m
	}
	if m := mime.TypeByExtension("." + ext); m != "" {
		if i := strings.Index(m, ";"); i >= 0 {
			m = m[:i]
		}
		return m
	}
	return MimeOctet
}

// IsPDF reports whether a MIME string denotes a PDF.
func IsPDF(fileType string) bool {
	return strings.Contains(strings.ToLower(fileType), "pdf")
}

// IsTextLike reports whether a MIME string is returned verbatim by extraction.
func IsTextLike(fileType string) bool {
	ft := strings.ToLower(fileType)
	for _, marker := range []string{"text", "json", "javascript", "markdown"} {
		if strings.Contains(ft, marker) {
			return true
		}
	}
	return false
}
