package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/docflow/constants"
	"github.com/joseph-ayodele/docflow/internal/entity"
)

// Firestore collection names.
const (
	DocumentsCollection  = "documents"
	VersionsCollection   = "versions"
	ActivitiesCollection = "activities"
)

// NewFirestoreClient creates a Firestore client for projectID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	return client, nil
}

// NewFirestoreStore backs the repositories with Firestore collections. Version
// and activity queries filter on documentId and order by createdAt, which
// needs the matching composite indexes in the project.
func NewFirestoreStore(client *firestore.Client, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	fs := &firestoreRepo{client: client, logger: logger}
	return &Store{
		Documents:  firestoreDocuments{fs},
		Versions:   firestoreVersions{fs},
		Activities: firestoreActivities{fs},
	}
}

type firestoreRepo struct {
	client *firestore.Client
	logger *slog.Logger
}

type firestoreDocuments struct{ *firestoreRepo }

func (r firestoreDocuments) Create(ctx context.Context, doc entity.Document) (*entity.Document, error) {
	if doc.ID == "" {
		doc.ID = newID()
	}
	if doc.Status == "" {
		doc.Status = constants.StatusPending
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	doc.UpdatedAt = doc.CreatedAt
	if _, err := r.client.Collection(DocumentsCollection).Doc(doc.ID).Create(ctx, doc); err != nil {
		r.logger.Error("failed to create document", "document_id", doc.ID, "error", err)
		return nil, dbError("create document", err)
	}
	return &doc, nil
}

func (r firestoreDocuments) Get(ctx context.Context, id string) (*entity.Document, error) {
	snap, err := r.client.Collection(DocumentsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, notFoundError("document", id)
		}
		r.logger.Error("failed to get document", "document_id", id, "error", err)
		return nil, dbError("get document", err)
	}
	var d entity.Document
	if err := snap.DataTo(&d); err != nil {
		return nil, dbError("decode document", err)
	}
	d.ID = snap.Ref.ID
	return &d, nil
}

func (r firestoreDocuments) UpdateStatus(ctx context.Context, id string, s constants.DocumentStatus) error {
	_, err := r.client.Collection(DocumentsCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "status", Value: string(s)},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return notFoundError("document", id)
		}
		r.logger.Error("failed to update document status", "document_id", id, "status", s, "error", err)
		return dbError("update document status", err)
	}
	return nil
}

func (r firestoreDocuments) List(ctx context.Context, userID string, limit int) ([]*entity.Document, error) {
	q := r.client.Collection(DocumentsCollection).
		Where("userId", "==", userID).
		OrderBy("createdAt", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*entity.Document
	err := collect(ctx, q, func(snap *firestore.DocumentSnapshot) error {
		var d entity.Document
		if err := snap.DataTo(&d); err != nil {
			return err
		}
		d.ID = snap.Ref.ID
		out = append(out, &d)
		return nil
	})
	if err != nil {
		return nil, dbError("list documents", err)
	}
	return out, nil
}

type firestoreVersions struct{ *firestoreRepo }

func (r firestoreVersions) Create(ctx context.Context, documentID, content, changes string) (*entity.Version, error) {
	v := entity.Version{
		ID:         newID(),
		DocumentID: documentID,
		Content:    content,
		Changes:    changes,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := r.client.Collection(VersionsCollection).Doc(v.ID).Create(ctx, v); err != nil {
		r.logger.Error("failed to create version", "document_id", documentID, "error", err)
		return nil, dbError("create version", err)
	}
	return &v, nil
}

func (r firestoreVersions) ListByDocument(ctx context.Context, documentID string) ([]*entity.Version, error) {
	return r.list(ctx, r.byDocument(documentID).OrderBy("createdAt", firestore.Asc))
}

func (r firestoreVersions) Latest(ctx context.Context, documentID string) (*entity.Version, error) {
	out, err := r.list(ctx, r.byDocument(documentID).OrderBy("createdAt", firestore.Desc).Limit(1))
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, notFoundError("version for document", documentID)
	}
	return out[0], nil
}

func (r firestoreVersions) byDocument(documentID string) firestore.Query {
	return r.client.Collection(VersionsCollection).Where("documentId", "==", documentID)
}

func (r firestoreVersions) list(ctx context.Context, q firestore.Query) ([]*entity.Version, error) {
	var out []*entity.Version
	err := collect(ctx, q, func(snap *firestore.DocumentSnapshot) error {
		var v entity.Version
		if err := snap.DataTo(&v); err != nil {
			return err
		}
		out = append(out, &v)
		return nil
	})
	if err != nil {
		return nil, dbError("list versions", err)
	}
	return out, nil
}

type firestoreActivities struct{ *firestoreRepo }

func (r firestoreActivities) Append(ctx context.Context, a entity.Activity) (*entity.Activity, error) {
	if a.ID == "" {
		a.ID = newID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if _, err := r.client.Collection(ActivitiesCollection).Doc(a.ID).Create(ctx, a); err != nil {
		r.logger.Error("failed to append activity", "document_id", a.DocumentID, "action", a.Action, "error", err)
		return nil, dbError("append activity", err)
	}
	return &a, nil
}

func (r firestoreActivities) ListByDocument(ctx context.Context, documentID string) ([]*entity.Activity, error) {
	return r.list(ctx, r.client.Collection(ActivitiesCollection).
		Where("documentId", "==", documentID).
		OrderBy("createdAt", firestore.Asc))
}

func (r firestoreActivities) LatestOf(ctx context.Context, documentID string, actions ...constants.ActivityAction) (*entity.Activity, error) {
	q := r.client.Collection(ActivitiesCollection).Where("documentId", "==", documentID)
	if len(actions) > 0 {
		vals := make([]string, 0, len(actions))
		for _, a := range actions {
			vals = append(vals, string(a))
		}
		q = q.Where("action", "in", vals)
	}
	out, err := r.list(ctx, q.OrderBy("createdAt", firestore.Desc).Limit(1))
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return out[0], nil
}

func (r firestoreActivities) list(ctx context.Context, q firestore.Query) ([]*entity.Activity, error) {
	var out []*entity.Activity
	err := collect(ctx, q, func(snap *firestore.DocumentSnapshot) error {
		var a entity.Activity
		if err := snap.DataTo(&a); err != nil {
			return err
		}
		out = append(out, &a)
		return nil
	})
	if err != nil {
		return nil, dbError("list activities", err)
	}
	return out, nil
}

func collect(ctx context.Context, q firestore.Query, fn func(*firestore.DocumentSnapshot) error) error {
	it := q.Documents(ctx)
	defer it.Stop()
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(snap); err != nil {
			return err
		}
	}
}
