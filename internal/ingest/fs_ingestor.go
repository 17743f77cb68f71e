package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/docflow/constants"
	"github.com/joseph-ayodele/docflow/internal/common"
	"github.com/joseph-ayodele/docflow/internal/entity"
	"github.com/joseph-ayodele/docflow/internal/repository"
)

// HashDetail is the UPLOAD activity detail holding the file's sha256.
const HashDetail = "sha256"

// FSIngestor reads from the local filesystem.
type FSIngestor struct {
	store  *repository.Store
	logger *slog.Logger
}

func NewFSIngestor(store *repository.Store, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{store: store, logger: logger}
}

// IngestPath hashes the file and creates a pending document pointing at it.
// A file already ingested for the user with the same content is reported as
// deduplicated and returns the existing document.
func (i *FSIngestor) IngestPath(ctx context.Context, userID, path string) (IngestionResult, error) {
	var out IngestionResult

	if err := common.ValidateRequired("user_id", userID, "path", path); err != nil {
		return out, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}

	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext) {
		i.logger.Warn("ingest.unsupported_extension", "path", abs, "ext", ext)
		return out, common.NewValidationError(fmt.Sprintf("unsupported or missing extension: %q", ext), nil)
	}

	sum, size, err := hashFile(abs)
	if err != nil {
		i.logger.Error("ingest.hash.failed", "path", abs, "error", err)
		return out, err
	}
	hexSum := hex.EncodeToString(sum)
	ref := FileURL(abs)

	existing, err := i.findDuplicate(ctx, userID, ref, hexSum)
	if err != nil {
		return out, err
	}
	if existing != nil {
		i.logger.Info("ingest.deduplicated", "path", abs, "document_id", existing.ID)
		return IngestionResult{
			SourcePath:   abs,
			DocumentID:   existing.ID,
			Deduplicated: true,
			HashHex:      hexSum,
			FileType:     existing.FileType,
			FileSize:     existing.FileSize,
			CreatedAt:    existing.CreatedAt,
		}, nil
	}

	doc, err := i.store.Documents.Create(ctx, entity.Document{
		UserID:     userID,
		Title:      filepath.Base(abs),
		ContentRef: ref,
		FileType:   constants.MimeForPath(abs),
		FileSize:   size,
		Status:     constants.StatusPending,
	})
	if err != nil {
		return out, err
	}
	if _, err := i.store.Activities.Append(ctx, entity.Activity{
		DocumentID: doc.ID,
		UserID:     userID,
		Action:     constants.ActionUpload,
		Details: map[string]any{
			"fileName": doc.Title,
			"fileType": doc.FileType,
			"fileSize": size,
			HashDetail: hexSum,
		},
	}); err != nil {
		return out, err
	}

	i.logger.Info("ingest.created", "path", abs, "document_id", doc.ID, "file_type", doc.FileType, "size", size)
	return IngestionResult{
		SourcePath: abs,
		DocumentID: doc.ID,
		HashHex:    hexSum,
		FileType:   doc.FileType,
		FileSize:   size,
		CreatedAt:  doc.CreatedAt,
	}, nil
}

func (i *FSIngestor) findDuplicate(ctx context.Context, userID, ref, hexSum string) (*entity.Document, error) {
	docs, err := i.store.Documents.List(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		if d.ContentRef != ref {
			continue
		}
		up, err := i.store.Activities.LatestOf(ctx, d.ID, constants.ActionUpload)
		if err != nil {
			return nil, err
		}
		if up.DetailString(HashDetail) == hexSum {
			return d, nil
		}
	}
	return nil, nil
}

func hashFile(path string) ([]byte, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return nil, 0, fmt.Errorf("hash: %w", err)
	}
	return h.Sum(nil), n, nil
}

// IngestDirectory walks root, skips hidden if requested,
// and calls IngestPath for each file. Returns per-file results + aggregate stats.
func (i *FSIngestor) IngestDirectory(ctx context.Context, userID, root string, skipHidden bool) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, common.NewValidationError("root_path is required", nil)
	}

	var results []IngestionResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, userID, path)
		if err != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: err.Error()})
			stats.Failed++
			return nil
		}

		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})

	i.logger.Info("ingest.directory.done", "root", root, "scanned", stats.Scanned, "matched", stats.Matched,
		"succeeded", stats.Succeeded, "deduplicated", stats.Deduplicated, "failed", stats.Failed)
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}
