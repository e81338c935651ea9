package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strategy-logic-go/internal/models"
)

func sampleDraft(sessionID string) *models.Draft {
	tree := models.NewTree()
	tree.Values["rsi"] = models.ValueRef{IndicatorID: "rsi-1", Timeframe: "1h", OutputChannel: "value", Params: []float64{14}}
	tree.Entry.Long.Containers = []models.ContainerNode{{ID: "c1", Name: "filters", Enabled: true, Groups: []models.GroupNode{}}}
	return &models.Draft{
		SessionID:      sessionID,
		Version:        models.DraftVersion,
		Revision:       3,
		Tree:           tree,
		LastUpdateTime: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestBadgerRepositoryOnDisk(t *testing.T) {
	dir := t.TempDir()

	repo, err := NewBadgerRepository(dir)
	require.NoError(t, err)
	require.NoError(t, repo.SaveDraft(sampleDraft("s1")))
	require.NoError(t, repo.Close())

	// reopen: the draft survives a restart
	repo, err = NewBadgerRepository(dir)
	require.NoError(t, err)
	defer repo.Close()

	loaded, err := repo.LoadDraft("s1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, int64(3), loaded.Revision)
	assert.Equal(t, "filters", loaded.Tree.Entry.Long.Containers[0].Name)
	assert.Equal(t, []float64{14}, loaded.Tree.Values["rsi"].Params)
}

func TestBadgerRepositoryInMemory(t *testing.T) {
	repo, err := NewBadgerRepository("")
	require.NoError(t, err)
	defer repo.Close()

	missing, err := repo.LoadDraft("nobody")
	require.NoError(t, err)
	assert.Nil(t, missing, "a missing draft is (nil, nil)")

	require.NoError(t, repo.SaveDraft(sampleDraft("s1")))
	require.NoError(t, repo.SaveDraft(sampleDraft("s2")))

	d := sampleDraft("s1")
	d.Revision = 4
	require.NoError(t, repo.SaveDraft(d))

	loaded, err := repo.LoadDraft("s1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), loaded.Revision, "saving replaces the previous draft")

	require.NoError(t, repo.DeleteDraft("s1"))
	gone, err := repo.LoadDraft("s1")
	require.NoError(t, err)
	assert.Nil(t, gone)

	other, err := repo.LoadDraft("s2")
	require.NoError(t, err)
	assert.NotNil(t, other, "drafts are keyed per session")

	assert.NoError(t, repo.DeleteDraft("never-saved"))
	assert.ErrorIs(t, repo.SaveDraft(&models.Draft{}), ErrEmptySessionID)
}
