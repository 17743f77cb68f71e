package export

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/docflow/constants"
	"github.com/joseph-ayodele/docflow/internal/common"
	"github.com/joseph-ayodele/docflow/internal/entity"
	"github.com/joseph-ayodele/docflow/internal/repository"
)

func newStore(t *testing.T) *repository.Store {
	t.Helper()
	ctx := context.Background()
	db, err := repository.OpenSQLite(ctx, "", nil)
	require.NoError(t, err)
	t.Cleanup(func() { repository.Close(db, nil) })
	require.NoError(t, repository.Migrate(ctx, db))
	return repository.NewStore(db, nil)
}

func TestExportDocumentXLSX(t *testing.T) {
	store := newStore(t)
	ctx := t.Context()

	doc, err := store.Documents.Create(ctx, entity.Document{
		UserID: "user-1", Title: "a.txt", ContentRef: "file:///tmp/a.txt", FileType: constants.MimeText,
	})
	require.NoError(t, err)
	_, err = store.Activities.Append(ctx, entity.Activity{DocumentID: doc.ID, UserID: "user-1", Action: constants.ActionUpload})
	require.NoError(t, err)
	_, err = store.Versions.Create(ctx, doc.ID, strings.Repeat("x", 500), "Initial processing")
	require.NoError(t, err)
	_, err = store.Activities.Append(ctx, entity.Activity{
		DocumentID: doc.ID, UserID: "user-1", Action: constants.ActionProcessed,
		Details: map[string]any{"method": "text"},
	})
	require.NoError(t, err)

	out, err := NewService(store, nil).ExportDocumentXLSX(ctx, doc.ID)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{VersionsSheet, ActivitySheet}, f.GetSheetList())

	vrows, err := f.GetRows(VersionsSheet)
	require.NoError(t, err)
	require.Len(t, vrows, 2)
	assert.Equal(t, "Initial processing", vrows[1][1])
	assert.Equal(t, "500", vrows[1][2])
	assert.Len(t, []rune(vrows[1][3]), excerptLength)

	arows, err := f.GetRows(ActivitySheet)
	require.NoError(t, err)
	require.Len(t, arows, 3)
	assert.Equal(t, "UPLOAD", arows[1][1])
	assert.Equal(t, "PROCESSED", arows[2][1])
	assert.JSONEq(t, `{"method":"text"}`, arows[2][3])
}

func TestExportUnknownDocument(t *testing.T) {
	_, err := NewService(newStore(t), nil).ExportDocumentXLSX(t.Context(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
	assert.Equal(t, "é", truncate("éé", 1))
}
