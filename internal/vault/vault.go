// Package vault ties the storage core together behind one explicit handle.
// A Vault is constructed at unlock time and threaded through call sites;
// there are no ambient singletons. Switching instances means closing the
// handle and opening another one.
package vault

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/tearleads/rapidvault/internal/blobstore"
	"github.com/tearleads/rapidvault/internal/common"
	"github.com/tearleads/rapidvault/internal/config"
	"github.com/tearleads/rapidvault/internal/cryptox"
	"github.com/tearleads/rapidvault/internal/dbx"
	"github.com/tearleads/rapidvault/internal/display"
	"github.com/tearleads/rapidvault/internal/filex"
	"github.com/tearleads/rapidvault/internal/keyring"
	"github.com/tearleads/rapidvault/internal/logging"
	"github.com/tearleads/rapidvault/internal/metadata"
	"github.com/tearleads/rapidvault/internal/telemetry"
	"github.com/tearleads/rapidvault/internal/thumbs"
	"github.com/tearleads/rapidvault/internal/upload"
)

// Vault is the unlocked handle over one instance: the blob engine, the
// metadata repository, the upload coordinator, and the retrieval telemetry
// buffer. All fields are bound to a single instance key for the lifetime
// of the handle.
type Vault struct {
	InstanceID string
	Files      metadata.Repository
	Uploads    *upload.Coordinator
	Store      *blobstore.Store

	db      *sql.DB
	keys    *keyring.Keyring
	log     logging.Logger
	metrics *telemetry.MemorySink
	sink    telemetry.Sink
}

// Open unlocks (or creates) the vault in cfg.DataDir with the given
// passphrase. On first open a fresh instance is provisioned: a random KDF
// salt, a random instance identifier, and a key verifier are persisted.
// Later opens re-derive the key and reject a wrong passphrase with
// common.ErrInvalidPassphrase before any store operation can run.
func Open(ctx context.Context, cfg *config.Config, log logging.Logger, passphrase []byte) (*Vault, error) {
	dataDir, err := filex.EnsureDir(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	db, err := InitDatabase(ctx, filepath.Join(dataDir, "vault.db"))
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	key, instanceID, err := unlockInstance(ctx, db, passphrase)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	defer common.WipeByteArray(key)

	blobDir, err := filex.EnsureSubDir(dataDir, "blobs")
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	fileStore, err := blobstore.NewFileStore(blobDir)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	keys := keyring.New()
	keys.Unlock(key, instanceID)

	store := blobstore.New(fileStore, blobstore.NewSQLiteIndexRepository(db), keys, log.With("component", "blobstore"))
	if err := store.Initialize(key, instanceID); err != nil {
		keys.Lock()
		_ = db.Close()
		return nil, err
	}

	files := metadata.NewSQLiteRepository(db)
	pipeline := thumbs.New(store, cfg.ThumbnailMaxPx)
	metrics := telemetry.NewMemorySink(0)

	v := &Vault{
		InstanceID: instanceID,
		Files:      files,
		Uploads:    upload.NewCoordinator(store, pipeline, files, log.With("component", "upload")),
		Store:      store,
		db:         db,
		keys:       keys,
		log:        log,
		metrics:    metrics,
		sink:       telemetry.MultiSink{metrics, telemetry.NewLogSink(log.With("component", "retrieval"))},
	}
	return v, nil
}

// unlockInstance loads or provisions the instance rows and returns the
// derived master key and instance id.
func unlockInstance(ctx context.Context, db *sql.DB, passphrase []byte) ([]byte, string, error) {
	meta := newMetaRepository(db)

	salt, err := meta.Get(ctx, metaKeySalt)
	switch {
	case errors.Is(err, common.ErrNotFound):
		return provisionInstance(ctx, db, passphrase)
	case err != nil:
		return nil, "", err
	}

	key := cryptox.DeriveMasterKey(passphrase, salt)

	verifier, err := meta.Get(ctx, metaKeyVerifier)
	if err != nil {
		return nil, "", err
	}
	if !bytes.Equal(verifier, cryptox.MakeVerifier(key)) {
		common.WipeByteArray(key)
		return nil, "", common.ErrInvalidPassphrase
	}

	id, err := meta.Get(ctx, metaKeyInstanceID)
	if err != nil {
		return nil, "", err
	}

	return key, string(id), nil
}

// provisionInstance writes the salt, verifier and instance id in one
// transaction so a half-provisioned vault cannot exist on disk.
func provisionInstance(ctx context.Context, db *sql.DB, passphrase []byte) ([]byte, string, error) {
	salt := common.GenerateRandByteArray(32)
	instanceID, err := common.MakeRandHexString(16)
	if err != nil {
		return nil, "", err
	}

	key := cryptox.DeriveMasterKey(passphrase, salt)

	err = dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		meta := newMetaRepository(tx)
		if err := meta.Set(ctx, metaKeySalt, salt); err != nil {
			return err
		}
		if err := meta.Set(ctx, metaKeyVerifier, cryptox.MakeVerifier(key)); err != nil {
			return err
		}
		return meta.Set(ctx, metaKeyInstanceID, []byte(instanceID))
	})
	if err != nil {
		common.WipeByteArray(key)
		return nil, "", err
	}

	return key, instanceID, nil
}

// Close locks the keyring, unbinds the store, and closes the database.
// The handle must not be used afterwards.
func (v *Vault) Close() error {
	v.Store.Close()
	v.keys.Lock()
	return v.db.Close()
}

// Retrieve loads and decrypts the primary blob of a record, with
// telemetry.
func (v *Vault) Retrieve(ctx context.Context, rec *metadata.FileRecord) ([]byte, error) {
	return v.Store.MeasureRetrieve(ctx, rec.StoragePath, v.sink)
}

// OpenDisplay retrieves a record's content and wraps it in a
// reference-counted display handle. The caller owns the initial reference
// and must release it on every exit path.
func (v *Vault) OpenDisplay(ctx context.Context, rec *metadata.FileRecord) (*display.Handle, error) {
	plaintext, err := v.Retrieve(ctx, rec)
	if err != nil {
		return nil, err
	}
	return display.NewHandle(plaintext), nil
}

// LoadThumbnail returns a record's thumbnail bytes for gallery rendering.
// ok is false when the record has no thumbnail or the thumbnail blob is
// gone, in which case the caller falls back to a generic icon; a missing
// blob is logged as a warning naming the item, never escalated. Any other
// failure (decryption, I/O) surfaces as an error.
func (v *Vault) LoadThumbnail(ctx context.Context, rec *metadata.FileRecord) (data []byte, ok bool, err error) {
	path, has := rec.Thumbnail.Path()
	if !has {
		return nil, false, nil
	}

	data, err = v.Store.MeasureRetrieve(ctx, path, v.sink)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			v.log.Warn(ctx, "thumbnail blob missing, using placeholder",
				"file_id", rec.ID, "name", rec.Name, "path", path)
			return nil, false, nil
		}
		return nil, false, err
	}

	return data, true, nil
}

// RetrievalEvents returns the buffered telemetry events for this session.
func (v *Vault) RetrievalEvents() []telemetry.Event {
	return v.metrics.Events()
}

// Stats reports blob count and total content size for the instance.
func (v *Vault) Stats(ctx context.Context) (count int64, size int64, err error) {
	return v.Store.Stats(ctx)
}
