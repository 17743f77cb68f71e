package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/docflow/internal/entity"
)

type sqlResult = sql.Result

type VersionRepository interface {
	Create(ctx context.Context, documentID, content, changes string) (*entity.Version, error)
	ListByDocument(ctx context.Context, documentID string) ([]*entity.Version, error)
	Latest(ctx context.Context, documentID string) (*entity.Version, error)
}

type versionRepo struct {
	drv    *entsql.Driver
	logger *slog.Logger
}

func NewVersionRepository(drv *entsql.Driver, logger *slog.Logger) VersionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &versionRepo{drv: drv, logger: logger}
}

var versionColumns = []string{"id", "document_id", "content", "changes", "created_at"}

func (r *versionRepo) Create(ctx context.Context, documentID, content, changes string) (*entity.Version, error) {
	v := entity.Version{
		ID:         newID(),
		DocumentID: documentID,
		Content:    content,
		Changes:    changes,
		CreatedAt:  time.Now().UTC(),
	}
	query, args := entsql.Dialect(r.drv.Dialect()).
		Insert(versionsTable).
		Columns(versionColumns...).
		Values(v.ID, v.DocumentID, v.Content, v.Changes, v.CreatedAt).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		r.logger.Error("failed to create version", "document_id", documentID, "error", err)
		return nil, dbError("create version", err)
	}
	r.logger.Info("version created", "document_id", documentID, "version_id", v.ID, "content_len", len(content))
	return &v, nil
}

// ListByDocument returns versions oldest first.
func (r *versionRepo) ListByDocument(ctx context.Context, documentID string) ([]*entity.Version, error) {
	query, args := entsql.Dialect(r.drv.Dialect()).
		Select(versionColumns...).
		From(entsql.Table(versionsTable)).
		Where(entsql.EQ("document_id", documentID)).
		OrderBy("created_at", "id").
		Query()
	out, err := r.query(ctx, query, args)
	if err != nil {
		r.logger.Error("failed to list versions", "document_id", documentID, "error", err)
		return nil, dbError("list versions", err)
	}
	return out, nil
}

func (r *versionRepo) Latest(ctx context.Context, documentID string) (*entity.Version, error) {
	query, args := entsql.Dialect(r.drv.Dialect()).
		Select(versionColumns...).
		From(entsql.Table(versionsTable)).
		Where(entsql.EQ("document_id", documentID)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id")).
		Limit(1).
		Query()
	out, err := r.query(ctx, query, args)
	if err != nil {
		r.logger.Error("failed to get latest version", "document_id", documentID, "error", err)
		return nil, dbError("latest version", err)
	}
	if len(out) == 0 {
		return nil, notFoundError("version for document", documentID)
	}
	return out[0], nil
}

func (r *versionRepo) query(ctx context.Context, query string, args []any) ([]*entity.Version, error) {
	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.Version
	for rows.Next() {
		var (
			v       entity.Version
			changes sql.NullString
		)
		if err := rows.Scan(&v.ID, &v.DocumentID, &v.Content, &changes, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.Changes = changes.String
		out = append(out, &v)
	}
	return out, rows.Err()
}
