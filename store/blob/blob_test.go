package blob_test

import (
	"context"
	"testing"

	"github.com/dealforge/docfin/store/blob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "documents/loan-1/doc-9-v3.md", blob.Key("loan-1", "doc-9", 3, "md"))
}

func TestMemoryStore_PutGet(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemoryStore()

	body := []byte("# Promissory Note")
	require.NoError(t, store.Put(ctx, "k", "text/markdown", body))

	// caller mutations must not leak into the store
	body[0] = 'X'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "# Promissory Note", string(got))
	assert.Equal(t, "text/markdown", store.ContentType("k"))

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, blob.ErrNotFound)
}

func TestNewS3Store_RequiresBucket(t *testing.T) {
	_, err := blob.NewS3Store(blob.S3Config{Region: "us-east-1"})
	assert.Error(t, err)

	store, err := blob.NewS3Store(blob.S3Config{Bucket: "docs", Region: "nyc3", Endpoint: "https://nyc3.digitaloceanspaces.com"})
	require.NoError(t, err)
	assert.NotNil(t, store)
}
