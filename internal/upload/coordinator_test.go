package upload

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tearleads/rapidvault/internal/blobstore"
	"github.com/tearleads/rapidvault/internal/common"
	"github.com/tearleads/rapidvault/internal/cryptox"
	"github.com/tearleads/rapidvault/internal/keyring"
	"github.com/tearleads/rapidvault/internal/logging"
	"github.com/tearleads/rapidvault/internal/metadata"
	"github.com/tearleads/rapidvault/internal/thumbs"
	_ "modernc.org/sqlite"
)

type env struct {
	coordinator *Coordinator
	store       *blobstore.Store
	files       metadata.Repository
	keys        *keyring.Keyring
}

func setupEnv(t *testing.T) *env {
	t.Helper()

	db, err := sql.Open("sqlite", "file:upload_tests?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS blobs (
  path         TEXT PRIMARY KEY,
  instance_id  TEXT NOT NULL,
  content_hash TEXT NOT NULL,
  size         INTEGER NOT NULL,
  created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS files (
  id             TEXT PRIMARY KEY,
  name           TEXT NOT NULL,
  size           INTEGER NOT NULL,
  mime_type      TEXT NOT NULL,
  upload_date    TIMESTAMP NOT NULL,
  storage_path   TEXT NOT NULL,
  thumbnail_path TEXT,
  deleted        INTEGER NOT NULL DEFAULT 0
);
DELETE FROM blobs;
DELETE FROM files;
`)
	require.NoError(t, err)

	fileStore, err := blobstore.NewFileStore(t.TempDir())
	require.NoError(t, err)

	keys := keyring.New()
	key := common.GenerateRandByteArray(cryptox.KeySize)
	keys.Unlock(key, "instance-a")

	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	store := blobstore.New(fileStore, blobstore.NewSQLiteIndexRepository(db), keys, log)
	require.NoError(t, store.Initialize(key, "instance-a"))

	files := metadata.NewSQLiteRepository(db)
	coordinator := NewCoordinator(store, thumbs.New(store, 64), files, log)

	return &env{coordinator: coordinator, store: store, files: files, keys: keys}
}

func makePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 7, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestUploadFile_FreshUpload(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	var ticks []int
	obs := ProgressFunc(func(p int) { ticks = append(ticks, p) })

	result, err := e.coordinator.UploadFile(ctx, "notes.txt", []byte{1, 2, 3}, obs)
	require.NoError(t, err)

	assert.NotEmpty(t, result.ID)
	assert.False(t, result.IsDuplicate)

	require.NotEmpty(t, ticks)
	assert.Equal(t, 0, ticks[0])
	assert.Equal(t, 100, ticks[len(ticks)-1])
	for i := 1; i < len(ticks); i++ {
		assert.GreaterOrEqual(t, ticks[i], ticks[i-1], "progress must be monotonic")
	}

	// round-trip through the store
	got, err := e.store.Retrieve(ctx, result.Path)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)

	// record persisted
	rec, err := e.files.GetByID(ctx, result.ID)
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", rec.Name)
	assert.Equal(t, result.Path, rec.StoragePath)

	task, ok := e.coordinator.Task(result.ID)
	require.True(t, ok)
	assert.Equal(t, StatusComplete, task.Status)
	assert.Equal(t, 100, task.Progress)
}

func TestUploadFile_ReUploadIsDuplicate(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	payload := []byte("same bytes again")

	first, err := e.coordinator.UploadFile(ctx, "a.bin", payload, nil)
	require.NoError(t, err)
	require.False(t, first.IsDuplicate)

	second, err := e.coordinator.UploadFile(ctx, "b.bin", payload, nil)
	require.NoError(t, err)

	assert.True(t, second.IsDuplicate)
	assert.Equal(t, first.Path, second.Path)
	assert.NotEqual(t, first.ID, second.ID, "each upload gets its own record")

	task, ok := e.coordinator.Task(second.ID)
	require.True(t, ok)
	assert.Equal(t, StatusDuplicate, task.Status)

	// both records reference the single blob
	recs, err := e.files.FindByStoragePath(ctx, first.Path)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestUploadFile_ImageGetsThumbnail(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()

	result, err := e.coordinator.UploadFile(ctx, "photo.png", makePNG(t, 320, 240), nil)
	require.NoError(t, err)

	thumbPath, ok := result.Thumbnail.Path()
	require.True(t, ok, "image upload must produce a thumbnail")
	assert.NotEqual(t, result.Path, thumbPath)

	thumbBytes, err := e.store.Retrieve(ctx, thumbPath)
	require.NoError(t, err)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(thumbBytes))
	require.NoError(t, err)
	assert.LessOrEqual(t, cfg.Width, 64)
	assert.LessOrEqual(t, cfg.Height, 64)
}

func TestUploadFile_NonImageHasNoThumbnail(t *testing.T) {
	e := setupEnv(t)

	result, err := e.coordinator.UploadFile(context.Background(), "doc.txt", []byte("plain text content"), nil)
	require.NoError(t, err)

	_, ok := result.Thumbnail.Path()
	assert.False(t, ok)
}

func TestUploadFile_ThumbnailFailureIsNonFatal(t *testing.T) {
	e := setupEnv(t)

	// valid PNG magic so DetectContentType says image/png, but a truncated
	// body the decoder rejects
	payload := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

	result, err := e.coordinator.UploadFile(context.Background(), "broken.png", payload, nil)
	require.NoError(t, err, "thumbnail failure must not fail the upload")

	_, ok := result.Thumbnail.Path()
	assert.False(t, ok)

	task, taskOK := e.coordinator.Task(result.ID)
	require.True(t, taskOK)
	assert.Equal(t, StatusComplete, task.Status)
}

func TestUploadFile_EmptyPayload(t *testing.T) {
	e := setupEnv(t)

	_, err := e.coordinator.UploadFile(context.Background(), "empty", nil, nil)
	assert.True(t, errors.Is(err, common.ErrEmptyPayload))
}

func TestUploadFile_LockedVault(t *testing.T) {
	e := setupEnv(t)
	e.keys.Lock()

	_, err := e.coordinator.UploadFile(context.Background(), "x.bin", []byte{1}, nil)
	assert.True(t, errors.Is(err, common.ErrNotUnlocked))

	// the failed task is terminal with a message, not stuck uploading
	tasks := e.coordinator.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, StatusError, tasks[0].Status)
	assert.NotEmpty(t, tasks[0].Error)
}

func TestUploadFile_ConcurrentIdenticalContent(t *testing.T) {
	e := setupEnv(t)
	ctx := context.Background()
	payload := []byte("dropped the same file five times")

	const n = 5
	results := make([]*Result, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = e.coordinator.UploadFile(ctx, "multi.bin", payload, nil)
		}(i)
	}
	wg.Wait()

	fresh := 0
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].Path, results[i].Path)
		if !results[i].IsDuplicate {
			fresh++
		}
	}
	assert.Equal(t, 1, fresh, "exactly one concurrent upload may report a fresh write")
}

func TestClearTask(t *testing.T) {
	e := setupEnv(t)

	result, err := e.coordinator.UploadFile(context.Background(), "x", []byte{1}, nil)
	require.NoError(t, err)

	e.coordinator.ClearTask(result.ID)

	_, ok := e.coordinator.Task(result.ID)
	assert.False(t, ok)
}
