package thumbs

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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tearleads/rapidvault/internal/blobstore"
	"github.com/tearleads/rapidvault/internal/common"
	"github.com/tearleads/rapidvault/internal/cryptox"
	"github.com/tearleads/rapidvault/internal/keyring"
	"github.com/tearleads/rapidvault/internal/logging"
	_ "modernc.org/sqlite"
)

func newTestStore(t *testing.T) *blobstore.Store {
	t.Helper()

	db, err := sql.Open("sqlite", "file:thumbs_tests?mode=memory&cache=shared")
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
DELETE FROM blobs;
`)
	require.NoError(t, err)

	files, err := blobstore.NewFileStore(t.TempDir())
	require.NoError(t, err)

	keys := keyring.New()
	key := common.GenerateRandByteArray(cryptox.KeySize)
	keys.Unlock(key, "instance-a")

	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	store := blobstore.New(files, blobstore.NewSQLiteIndexRepository(db), keys, log)
	require.NoError(t, store.Initialize(key, "instance-a"))
	return store
}

func makePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestPipeline_DeriveAndStore_Downscales(t *testing.T) {
	store := newTestStore(t)
	p := New(store, 64)
	ctx := context.Background()

	original := makePNG(t, 640, 480)

	path, err := p.DeriveAndStore(ctx, original, "image/png")
	require.NoError(t, err)
	require.NotEmpty(t, path)

	thumbBytes, err := store.Retrieve(ctx, path)
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(thumbBytes))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 64, cfg.Width)
	assert.Equal(t, 48, cfg.Height)
}

func TestPipeline_DeriveAndStore_PortraitAspect(t *testing.T) {
	store := newTestStore(t)
	p := New(store, 64)

	path, err := p.DeriveAndStore(context.Background(), makePNG(t, 100, 400), "image/png")
	require.NoError(t, err)

	thumbBytes, err := store.Retrieve(context.Background(), path)
	require.NoError(t, err)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(thumbBytes))
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Width)
	assert.Equal(t, 64, cfg.Height)
}

func TestPipeline_DeriveAndStore_SmallImageKeptAsIs(t *testing.T) {
	store := newTestStore(t)
	p := New(store, 256)

	path, err := p.DeriveAndStore(context.Background(), makePNG(t, 32, 20), "image/png")
	require.NoError(t, err)

	thumbBytes, err := store.Retrieve(context.Background(), path)
	require.NoError(t, err)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(thumbBytes))
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Width)
	assert.Equal(t, 20, cfg.Height)
}

func TestPipeline_DeriveAndStore_Dedups(t *testing.T) {
	store := newTestStore(t)
	p := New(store, 64)
	ctx := context.Background()

	original := makePNG(t, 640, 480)

	path1, err := p.DeriveAndStore(ctx, original, "image/png")
	require.NoError(t, err)
	path2, err := p.DeriveAndStore(ctx, original, "image/png")
	require.NoError(t, err)

	assert.Equal(t, path1, path2, "identical originals must yield one thumbnail blob")
}

func TestPipeline_DeriveAndStore_NonImageMime(t *testing.T) {
	store := newTestStore(t)
	p := New(store, 64)

	_, err := p.DeriveAndStore(context.Background(), []byte("plain text"), "text/plain")
	assert.True(t, errors.Is(err, ErrUnsupportedMedia))
}

func TestPipeline_DeriveAndStore_CorruptImage(t *testing.T) {
	store := newTestStore(t)
	p := New(store, 64)

	_, err := p.DeriveAndStore(context.Background(), []byte("not an image"), "image/png")
	assert.True(t, errors.Is(err, ErrUnsupportedMedia))
}

func TestNew_DefaultMaxPx(t *testing.T) {
	store := newTestStore(t)
	p := New(store, 0)
	assert.Equal(t, DefaultMaxPx, p.maxPx)
}
