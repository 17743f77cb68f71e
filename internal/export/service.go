package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docflow/internal/common"
	"github.com/joseph-ayodele/docflow/internal/repository"
)

const (
	VersionsSheet = "Versions"
	ActivitySheet = "Activity"

	excerptLength = 140
)

// Service is a tiny façade over repositories that produces XLSX bytes for exports.
type Service struct {
	store  *repository.Store
	logger *slog.Logger
}

func NewService(store *repository.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// ExportDocumentXLSX returns a workbook with the document's version history
// and activity log, oldest first.
func (s *Service) ExportDocumentXLSX(ctx context.Context, documentID string) ([]byte, error) {
	start := time.Now()
	if err := common.ValidateDocumentID(documentID); err != nil {
		return nil, err
	}

	if _, err := s.store.Documents.Get(ctx, documentID); err != nil {
		return nil, err
	}
	versions, err := s.store.Versions.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("query versions: %w", err)
	}
	activities, err := s.store.Activities.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// Rename the default sheet rather than leaving an empty "Sheet1" behind.
	if err := f.SetSheetName(f.GetSheetName(0), VersionsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(ActivitySheet); err != nil {
		return nil, err
	}
	idx, _ := f.GetSheetIndex(VersionsSheet)
	f.SetActiveSheet(idx)

	writeRow(f, VersionsSheet, 1, "Created At", "Changes", "Content Length", "Excerpt")
	for i, v := range versions {
		writeRow(f, VersionsSheet, i+2,
			v.CreatedAt.UTC().Format(time.RFC3339),
			v.Changes,
			utf8.RuneCountInString(v.Content),
			truncate(v.Content, excerptLength),
		)
	}

	writeRow(f, ActivitySheet, 1, "Timestamp", "Action", "User", "Details")
	for i, a := range activities {
		details := ""
		if len(a.Details) > 0 {
			b, err := json.Marshal(a.Details)
			if err != nil {
				s.logger.Warn("export.details.marshal_failed", "activity_id", a.ID, "err", err)
			} else {
				details = string(b)
			}
		}
		writeRow(f, ActivitySheet, i+2,
			a.CreatedAt.UTC().Format(time.RFC3339),
			string(a.Action),
			a.UserID,
			details,
		)
	}

	_ = f.SetColWidth(VersionsSheet, "A", "A", 22)
	_ = f.SetColWidth(VersionsSheet, "B", "B", 24)
	_ = f.SetColWidth(VersionsSheet, "C", "C", 14)
	_ = f.SetColWidth(VersionsSheet, "D", "D", 60)
	_ = f.SetColWidth(ActivitySheet, "A", "A", 22)
	_ = f.SetColWidth(ActivitySheet, "B", "C", 14)
	_ = f.SetColWidth(ActivitySheet, "D", "D", 80)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"document_id", documentID,
		"versions", len(versions),
		"activities", len(activities),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
