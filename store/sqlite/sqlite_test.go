package sqlite_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dealforge/docfin/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func readyDoc(id, deal string, created time.Time) sqlite.Document {
	return sqlite.Document{
		ID:        id,
		DealID:    deal,
		Kind:      "promissory_note",
		Title:     "Promissory Note",
		Format:    "markdown",
		Status:    sqlite.StatusReady,
		BlobKey:   "documents/" + id + ".md",
		SizeBytes: 1024,
		TermsJSON: `{"id":"` + deal + `"}`,
		CreatedAt: created,
	}
}

func TestSaveAndGetDocument(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	created := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveDocument(ctx, readyDoc("doc-1", "loan-1", created)))

	got, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "loan-1", got.DealID)
	assert.Equal(t, sqlite.StatusReady, got.Status)
	assert.Equal(t, "documents/doc-1.md", got.BlobKey)
	assert.Equal(t, 1, got.Version)
	assert.True(t, got.CreatedAt.Equal(created))
	assert.Empty(t, got.Error)

	_, err = store.GetDocument(ctx, "nope")
	assert.ErrorIs(t, err, sqlite.ErrDocumentNotFound)
	assert.True(t, sqlite.IsNotFound(err))
}

func TestListDocuments_NewestFirstByDeal(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.SaveDocument(ctx, readyDoc("a", "loan-1", base)))
	require.NoError(t, store.SaveDocument(ctx, readyDoc("b", "loan-1", base.Add(90*time.Millisecond))))
	require.NoError(t, store.SaveDocument(ctx, readyDoc("c", "loan-2", base.Add(time.Hour))))

	docs, err := store.ListDocuments(ctx, "loan-1", 0)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "b", docs[0].ID)
	assert.Equal(t, "a", docs[1].ID)

	all, err := store.ListDocuments(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "c", all[0].ID)
}

func TestDeleteDocument(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, readyDoc("a", "loan-1", time.Now())))
	require.NoError(t, store.DeleteDocument(ctx, "a"))
	assert.ErrorIs(t, store.DeleteDocument(ctx, "a"), sqlite.ErrDocumentNotFound)
}

func TestRegeneration_Lifecycle(t *testing.T) {
	// GIVEN: A ready document
	// WHEN: Regenerating it successfully
	// THEN: It passes through generating and comes back ready at version 2

	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveDocument(ctx, readyDoc("doc-1", "loan-1", time.Now())))

	prev, err := store.BeginRegeneration(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, sqlite.StatusReady, prev.Status)

	mid, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, sqlite.StatusGenerating, mid.Status)

	require.NoError(t, store.CompleteRegeneration(ctx, "doc-1", "documents/doc-1-v2.md", 2048))

	done, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, sqlite.StatusReady, done.Status)
	assert.Equal(t, 2, done.Version)
	assert.Equal(t, "documents/doc-1-v2.md", done.BlobKey)
	assert.Equal(t, int64(2048), done.SizeBytes)

	assert.Error(t, store.CompleteRegeneration(ctx, "doc-1", "x", 1), "not generating any more")
}

func TestRegeneration_GuardRejectsSecondCaller(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveDocument(ctx, readyDoc("doc-1", "loan-1", time.Now())))

	_, err := store.BeginRegeneration(ctx, "doc-1")
	require.NoError(t, err)

	_, err = store.BeginRegeneration(ctx, "doc-1")
	assert.ErrorIs(t, err, sqlite.ErrGenerationInProgress)

	_, err = store.BeginRegeneration(ctx, "missing")
	assert.ErrorIs(t, err, sqlite.ErrDocumentNotFound)
}

func TestRegeneration_ConcurrentCallersOnlyOneWins(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveDocument(ctx, readyDoc("doc-1", "loan-1", time.Now())))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		rejected int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.BeginRegeneration(ctx, "doc-1")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else if assert.ErrorIs(t, err, sqlite.ErrGenerationInProgress) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, 9, rejected)
}

func TestRollbackRegeneration_RestoresPreviousStatus(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveDocument(ctx, readyDoc("doc-1", "loan-1", time.Now())))

	prev, err := store.BeginRegeneration(ctx, "doc-1")
	require.NoError(t, err)

	require.NoError(t, store.RollbackRegeneration(ctx, "doc-1", prev.Status, "narrator timed out"))

	got, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, sqlite.StatusReady, got.Status)
	assert.Equal(t, "narrator timed out", got.Error)
	assert.Equal(t, 1, got.Version)

	_, err = store.BeginRegeneration(ctx, "doc-1")
	assert.NoError(t, err, "guard released after rollback")
}

func TestFailStaleGenerations_OnlyTouchesOldGeneratingRows(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.SaveDocument(ctx, readyDoc("doc-gen", "deal-1", now)))
	require.NoError(t, store.SaveDocument(ctx, readyDoc("doc-ready", "deal-1", now)))
	_, err := store.BeginRegeneration(ctx, "doc-gen")
	require.NoError(t, err)

	n, err := store.FailStaleGenerations(ctx, now.Add(-time.Minute), "stale")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = store.FailStaleGenerations(ctx, now.Add(time.Minute), "stale")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	gen, err := store.GetDocument(ctx, "doc-gen")
	require.NoError(t, err)
	assert.Equal(t, sqlite.StatusFailed, gen.Status)
	assert.Equal(t, "stale", gen.Error)

	ready, err := store.GetDocument(ctx, "doc-ready")
	require.NoError(t, err)
	assert.Equal(t, sqlite.StatusReady, ready.Status)
}

func TestNew_ReopensMigratedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docfin.db")
	ctx := context.Background()

	first, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, first.SaveDocument(ctx, readyDoc("doc-1", "deal-1", time.Now().UTC())))
	require.NoError(t, first.Close())

	second, err := sqlite.New(path)
	require.NoError(t, err)
	defer second.Close()

	doc, err := second.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "deal-1", doc.DealID)
}
