package extract

import (
	"context"
)

// TextExtractor turns raw document bytes into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, fileType string) (Result, error)
}

// Result is the outcome of a single extraction.
type Result struct {
	Text           string
	Method         string // "verbatim" | "pdf-heuristic" | "pdf-parser" | "printable"
	PageCount      int    // 0 when unknown
	NoReadableText bool   // Text holds the "no readable text" sentinel
}

// Extraction methods.
const (
	MethodVerbatim     = "verbatim"
	MethodPDFHeuristic = "pdf-heuristic"
	MethodPDFParser    = "pdf-parser"
	MethodPrintable    = "printable"
)

// PDF strategies.
const (
	StrategyHeuristic = "heuristic"
	StrategyParser    = "parser"
)
