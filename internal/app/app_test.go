package app

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docflow/constants"
	"github.com/joseph-ayodele/docflow/internal/common"
	"github.com/joseph-ayodele/docflow/internal/entity"
)

func sqliteConfig() *common.Config {
	cfg := common.DefaultConfig()
	cfg.Database.Driver = "sqlite"
	cfg.LLM.Providers = []string{"groq", "gemini"}
	cfg.LLM.Groq.APIKey = ""
	cfg.LLM.Gemini.Project = ""
	return cfg
}

func TestNewSQLiteProcessesDocument(t *testing.T) {
	a, err := New(t.Context(), sqliteConfig(), nil, WithoutLLM())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	assert.Nil(t, a.LLM)

	doc, err := a.Store.Documents.Create(t.Context(), entity.Document{
		UserID:     "u",
		Title:      "t",
		ContentRef: "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte("content")),
		FileType:   constants.MimeText,
	})
	require.NoError(t, err)

	res := a.Processor.ProcessDocument(t.Context(), doc.ID)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "content", res.Content)
}

func TestUnbuildableProvidersAreSkipped(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	a, err := New(t.Context(), sqliteConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	require.NotNil(t, a.LLM)
	assert.Empty(t, a.LLM.Limits().Providers())
	_, err = a.LLM.Complete(t.Context(), "hi", "")
	assert.True(t, common.HasCode(err, common.CodeConfig))
}

func TestCloseIsIdempotent(t *testing.T) {
	a, err := New(t.Context(), sqliteConfig(), nil, WithoutLLM())
	require.NoError(t, err)
	assert.NoError(t, a.Close())
	assert.NoError(t, a.Close())
}
