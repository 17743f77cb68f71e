package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/docflow/constants"
	"github.com/joseph-ayodele/docflow/internal/entity"
)

type ActivityRepository interface {
	Append(ctx context.Context, a entity.Activity) (*entity.Activity, error)
	ListByDocument(ctx context.Context, documentID string) ([]*entity.Activity, error)
	LatestOf(ctx context.Context, documentID string, actions ...constants.ActivityAction) (*entity.Activity, error)
}

type activityRepo struct {
	drv    *entsql.Driver
	logger *slog.Logger
}

func NewActivityRepository(drv *entsql.Driver, logger *slog.Logger) ActivityRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &activityRepo{drv: drv, logger: logger}
}

var activityColumns = []string{"id", "document_id", "user_id", "action", "details", "created_at"}

func (r *activityRepo) Append(ctx context.Context, a entity.Activity) (*entity.Activity, error) {
	if a.ID == "" {
		a.ID = newID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	var details any
	if a.Details != nil {
		b, err := json.Marshal(a.Details)
		if err != nil {
			return nil, dbError("encode activity details", err)
		}
		details = string(b)
	}

	query, args := entsql.Dialect(r.drv.Dialect()).
		Insert(activitiesTable).
		Columns(activityColumns...).
		Values(a.ID, a.DocumentID, a.UserID, string(a.Action), details, a.CreatedAt).
		Query()
	if err := r.drv.Exec(ctx, query, args, nil); err != nil {
		r.logger.Error("failed to append activity", "document_id", a.DocumentID, "action", a.Action, "error", err)
		return nil, dbError("append activity", err)
	}
	r.logger.Debug("activity appended", "document_id", a.DocumentID, "action", a.Action)
	return &a, nil
}

// ListByDocument returns activities oldest first.
func (r *activityRepo) ListByDocument(ctx context.Context, documentID string) ([]*entity.Activity, error) {
	query, args := entsql.Dialect(r.drv.Dialect()).
		Select(activityColumns...).
		From(entsql.Table(activitiesTable)).
		Where(entsql.EQ("document_id", documentID)).
		OrderBy("created_at", "id").
		Query()
	out, err := r.query(ctx, query, args)
	if err != nil {
		r.logger.Error("failed to list activities", "document_id", documentID, "error", err)
		return nil, dbError("list activities", err)
	}
	return out, nil
}

// LatestOf returns the newest activity whose action is one of actions, or
// (nil, nil) when there is none.
func (r *activityRepo) LatestOf(ctx context.Context, documentID string, actions ...constants.ActivityAction) (*entity.Activity, error) {
	pred := entsql.EQ("document_id", documentID)
	if len(actions) > 0 {
		vals := make([]any, 0, len(actions))
		for _, a := range actions {
			vals = append(vals, string(a))
		}
		pred = entsql.And(pred, entsql.In("action", vals...))
	}
	query, args := entsql.Dialect(r.drv.Dialect()).
		Select(activityColumns...).
		From(entsql.Table(activitiesTable)).
		Where(pred).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id")).
		Limit(1).
		Query()
	out, err := r.query(ctx, query, args)
	if err != nil {
		r.logger.Error("failed to get latest activity", "document_id", documentID, "error", err)
		return nil, dbError("latest activity", err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *activityRepo) query(ctx context.Context, query string, args []any) ([]*entity.Activity, error) {
	rows := &entsql.Rows{}
	if err := r.drv.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.Activity
	for rows.Next() {
		var (
			a       entity.Activity
			action  string
			details []byte
		)
		if err := rows.Scan(&a.ID, &a.DocumentID, &a.UserID, &action, &details, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Action = constants.ActivityAction(action)
		if len(details) > 0 {
			if err := json.Unmarshal(details, &a.Details); err != nil {
				return nil, fmt.Errorf("decode activity %s details: %w", a.ID, err)
			}
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
