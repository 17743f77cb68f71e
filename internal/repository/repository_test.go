package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docflow/constants"
	"github.com/joseph-ayodele/docflow/internal/common"
	"github.com/joseph-ayodele/docflow/internal/entity"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := OpenSQLite(ctx, "", nil)
	require.NoError(t, err)
	t.Cleanup(func() { Close(db, nil) })
	require.NoError(t, Migrate(ctx, db))
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, Migrate(t.Context(), db))
	require.NoError(t, HealthCheck(t.Context(), db, time.Second, nil))
}

func TestDocumentLifecycle(t *testing.T) {
	store := NewStore(newTestDB(t), nil)
	ctx := t.Context()

	doc, err := store.Documents.Create(ctx, entity.Document{
		UserID:     "user-1",
		Title:      "report.pdf",
		ContentRef: "file:///tmp/report.pdf",
		FileType:   constants.MimePDF,
		FileSize:   1234,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, constants.StatusPending, doc.Status)

	got, err := store.Documents.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Title, got.Title)
	assert.Equal(t, doc.ContentRef, got.ContentRef)
	assert.Equal(t, int64(1234), got.FileSize)
	assert.Equal(t, constants.StatusPending, got.Status)

	require.NoError(t, store.Documents.UpdateStatus(ctx, doc.ID, constants.StatusProcessing))
	got, err = store.Documents.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusProcessing, got.Status)

	list, err := store.Documents.List(ctx, "user-1", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, doc.ID, list[0].ID)
}

func TestDocumentNotFound(t *testing.T) {
	store := NewStore(newTestDB(t), nil)

	_, err := store.Documents.Get(t.Context(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)

	err = store.Documents.UpdateStatus(t.Context(), "missing", constants.StatusError)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestVersionsAndActivities(t *testing.T) {
	store := NewStore(newTestDB(t), nil)
	ctx := t.Context()

	doc, err := store.Documents.Create(ctx, entity.Document{UserID: "u", Title: "notes.txt", FileType: constants.MimeText})
	require.NoError(t, err)

	_, err = store.Versions.Latest(ctx, doc.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	v1, err := store.Versions.Create(ctx, doc.ID, "first", "Initial processing")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	v2, err := store.Versions.Create(ctx, doc.ID, "second", "")
	require.NoError(t, err)

	versions, err := store.Versions.ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, v1.ID, versions[0].ID)
	assert.Equal(t, "Initial processing", versions[0].Changes)

	latest, err := store.Versions.Latest(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, v2.ID, latest.ID)

	none, err := store.Activities.LatestOf(ctx, doc.ID, constants.ActionError, constants.ActionProcessed)
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = store.Activities.Append(ctx, entity.Activity{DocumentID: doc.ID, UserID: "u", Action: constants.ActionUpload})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = store.Activities.Append(ctx, entity.Activity{
		DocumentID: doc.ID, UserID: "u", Action: constants.ActionError,
		Details: map[string]any{"error": "fetch failed", "attempts": 3},
	})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = store.Activities.Append(ctx, entity.Activity{DocumentID: doc.ID, UserID: "u", Action: constants.ActionUpload})
	require.NoError(t, err)

	latestErr, err := store.Activities.LatestOf(ctx, doc.ID, constants.ActionError, constants.ActionProcessed)
	require.NoError(t, err)
	require.NotNil(t, latestErr)
	assert.Equal(t, constants.ActionError, latestErr.Action)
	assert.Equal(t, "fetch failed", latestErr.DetailString("error"))
	assert.EqualValues(t, 3, latestErr.Details["attempts"])

	all, err := store.Activities.ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestVersionRequiresDocument(t *testing.T) {
	store := NewStore(newTestDB(t), nil)
	_, err := store.Versions.Create(t.Context(), "no-such-doc", "x", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDatabase)
	assert.Equal(t, common.CodePersistence, common.CodeOf(err))
}
