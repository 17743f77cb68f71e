package repository

import (
	"context"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/docflow/constants"
	"github.com/joseph-ayodele/docflow/internal/entity"
)

type DocumentRepository interface {
	Create(ctx context.Context, doc entity.Document) (*entity.Document, error)
	Get(ctx context.Context, id string) (*entity.Document, error)
	UpdateStatus(ctx context.Context, id string, status constants.DocumentStatus) error
	List(ctx context.Context, userID string, limit int) ([]*entity.Document, error)
}

type documentRepo struct {
	drv    *entsql.Driver
	logger *slog.Logger
}

func NewDocumentRepository(drv *entsql.Driver, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepo{drv: drv, logger: logger}
}

var documentColumns = []string{"id", "user_id", "title", "content_ref", "file_type", "file_size", "status", "created_at", "updated_at"}

// Create inserts doc, assigning an id, timestamps and the pending status when unset.
func (r *documentRepo) Create(ctx context.Context, doc entity.Document) (*entity.Document, error) {
	now := time.Now().UTC()
	if doc.ID == "" {
		doc.ID = newID()
	}
	if doc.Status == "" {
		doc.Status = constants.StatusPending
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = doc.CreatedAt

	query, args := entsql.Dialect(r.drv.Dialect()).
		Insert(documentsTable).
		Columns(documentColumns...).
		Values(doc.ID, doc.UserID, doc.Title, doc.ContentRef, doc.FileType, doc.FileSize, string(doc.Status), doc.CreatedAt, doc.UpdatedAt).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		r.logger.Error("failed to create document", "document_id", doc.ID, "user_id", doc.UserID, "error", err)
		return nil, dbError("create document", err)
	}
	r.logger.Debug("document created", "document_id", doc.ID, "status", doc.Status)
	return &doc, nil
}

func (r *documentRepo) Get(ctx context.Context, id string) (*entity.Document, error) {
	query, args := entsql.Dialect(r.drv.Dialect()).
		Select(documentColumns...).
		From(entsql.Table(documentsTable)).
		Where(entsql.EQ("id", id)).
		Query()
	docs, err := r.query(ctx, query, args)
	if err != nil {
		r.logger.Error("failed to get document", "document_id", id, "error", err)
		return nil, dbError("get document", err)
	}
	if len(docs) == 0 {
		return nil, notFoundError("document", id)
	}
	return docs[0], nil
}

func (r *documentRepo) UpdateStatus(ctx context.Context, id string, status constants.DocumentStatus) error {
	query, args := entsql.Dialect(r.drv.Dialect()).
		Update(documentsTable).
		Set("status", string(status)).
		Set("updated_at", time.Now().UTC()).
		Where(entsql.EQ("id", id)).
		Query()
	var res sqlResult
	if err := r.drv.Exec(ctx, query, args, &res); err != nil {
		r.logger.Error("failed to update document status", "document_id", id, "status", status, "error", err)
		return dbError("update document status", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFoundError("document", id)
	}
	return nil
}

// List returns a user's documents, newest first. limit <= 0 means no limit.
func (r *documentRepo) List(ctx context.Context, userID string, limit int) ([]*entity.Document, error) {
	sel := entsql.Dialect(r.drv.Dialect()).
		Select(documentColumns...).
		From(entsql.Table(documentsTable)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("created_at"))
	if limit > 0 {
		sel.Limit(limit)
	}
	query, args := sel.Query()
	docs, err := r.query(ctx, query, args)
	if err != nil {
		r.logger.Error("failed to list documents", "user_id", userID, "error", err)
		return nil, dbError("list documents", err)
	}
	return docs, nil
}

func (r *documentRepo) query(ctx context.Context, query string, args []any) ([]*entity.Document, error) {
	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.Document
	for rows.Next() {
		var (
			d      entity.Document
			status string
		)
		if err := rows.Scan(&d.ID, &d.UserID, &d.Title, &d.ContentRef, &d.FileType, &d.FileSize, &status, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		d.Status = constants.DocumentStatus(status)
		out = append(out, &d)
	}
	return out, rows.Err()
}
