package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/docflow/constants"
	"github.com/joseph-ayodele/docflow/internal/common"
)

// Config selects how PDFs are read.
type Config struct {
	PDFStrategy string // StrategyHeuristic (default) | StrategyParser
}

// Extractor implements TextExtractor over the MIME families the pipeline accepts.
type Extractor struct {
	cfg    Config
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if cfg.PDFStrategy == "" {
		cfg.PDFStrategy = StrategyHeuristic
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{cfg: cfg, logger: logger}
}

// Extract dispatches on fileType. A PDF that yields no text is not an error;
// the result carries the NoReadableTextPDF sentinel instead. Types that are
// neither text nor PDF fail with EXTRACTION_FAILURE when nothing printable remains.
func (e *Extractor) Extract(ctx context.Context, data []byte, fileType string) (Result, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var res Result
	switch {
	case constants.IsPDF(fileType):
		res = e.extractPDF(data)
	case constants.IsTextLike(fileType):
		res = Result{Text: string(data), Method: MethodVerbatim}
	default:
		text := strings.TrimSpace(keepPrintable(data, false))
		if text == "" {
			e.logger.Warn("extract.unsupported.empty", "file_type", fileType, "bytes", len(data))
			return Result{}, common.NewAppError(common.CodeExtractionFailure,
				fmt.Sprintf("no printable content in %q", fileType), common.ErrInvalidInput)
		}
		res = Result{Text: text, Method: MethodPrintable}
	}

	e.logger.Debug("extract.ok",
		"file_type", fileType,
		"method", res.Method,
		"bytes", len(data),
		"text_len", len(res.Text),
		"pages", res.PageCount,
		"no_readable_text", res.NoReadableText,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (e *Extractor) extractPDF(data []byte) Result {
	pages, err := PageCount(data)
	if err != nil {
		e.logger.Debug("extract.pdf.page_count_unavailable", "error", err)
	}

	if e.cfg.PDFStrategy == StrategyParser {
		text, perr := ParsePDFText(data)
		text = strings.TrimSpace(reWhitespace.ReplaceAllString(keepPrintable([]byte(text), false), " "))
		if perr == nil && text != "" {
			return Result{Text: text, Method: MethodPDFParser, PageCount: pages}
		}
		e.logger.Info("extract.pdf.parser_fallback", "error", perr)
	}

	text := ExtractPDFText(data)
	return Result{
		Text:           text,
		Method:         MethodPDFHeuristic,
		PageCount:      pages,
		NoReadableText: text == NoReadableTextPDF,
	}
}
