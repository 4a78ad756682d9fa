package blobstore

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tearleads/rapidvault/internal/common"
)

func sampleRef(path string) *BlobRef {
	return &BlobRef{
		Path:        path,
		InstanceID:  "instance-a",
		ContentHash: strings.Repeat("c", 64),
		Size:        42,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestSQLiteIndexRepository_TryInsert_FirstWins(t *testing.T) {
	db := setupIndexDB(t, "idx_first")
	repo := NewSQLiteIndexRepository(db)
	ctx := context.Background()
	path := strings.Repeat("a", pathLen)

	inserted, err := repo.TryInsert(ctx, sampleRef(path))
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.TryInsert(ctx, sampleRef(path))
	require.NoError(t, err)
	assert.False(t, inserted, "second insert for the same path must be ignored")
}

func TestSQLiteIndexRepository_Exists(t *testing.T) {
	db := setupIndexDB(t, "idx_exists")
	repo := NewSQLiteIndexRepository(db)
	ctx := context.Background()
	path := strings.Repeat("b", pathLen)

	ok, err := repo.Exists(ctx, path)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.TryInsert(ctx, sampleRef(path))
	require.NoError(t, err)

	ok, err = repo.Exists(ctx, path)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSQLiteIndexRepository_GetByPath(t *testing.T) {
	db := setupIndexDB(t, "idx_get")
	repo := NewSQLiteIndexRepository(db)
	ctx := context.Background()
	path := strings.Repeat("d", pathLen)

	_, err := repo.GetByPath(ctx, path)
	assert.True(t, errors.Is(err, common.ErrNotFound))

	ref := sampleRef(path)
	_, err = repo.TryInsert(ctx, ref)
	require.NoError(t, err)

	got, err := repo.GetByPath(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, ref.Path, got.Path)
	assert.Equal(t, ref.InstanceID, got.InstanceID)
	assert.Equal(t, ref.ContentHash, got.ContentHash)
	assert.EqualValues(t, 42, got.Size)
}

func TestSQLiteIndexRepository_DeleteByPath(t *testing.T) {
	db := setupIndexDB(t, "idx_delete")
	repo := NewSQLiteIndexRepository(db)
	ctx := context.Background()
	path := strings.Repeat("e", pathLen)

	_, err := repo.TryInsert(ctx, sampleRef(path))
	require.NoError(t, err)

	require.NoError(t, repo.DeleteByPath(ctx, path))

	ok, err := repo.Exists(ctx, path)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteIndexRepository_StatsByInstance(t *testing.T) {
	db := setupIndexDB(t, "idx_stats")
	repo := NewSQLiteIndexRepository(db)
	ctx := context.Background()

	count, size, err := repo.StatsByInstance(ctx, "instance-a")
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
	assert.EqualValues(t, 0, size)

	refA := sampleRef(strings.Repeat("1", pathLen))
	refB := sampleRef(strings.Repeat("2", pathLen))
	refB.Size = 8
	refOther := sampleRef(strings.Repeat("3", pathLen))
	refOther.InstanceID = "instance-b"

	for _, ref := range []*BlobRef{refA, refB, refOther} {
		_, err = repo.TryInsert(ctx, ref)
		require.NoError(t, err)
	}

	count, size, err = repo.StatsByInstance(ctx, "instance-a")
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
	assert.EqualValues(t, 50, size)
}
