// Package blobstore implements the encrypted, deduplicating,
// content-addressable blob engine.
//
// A blob's storage path is derived from the SHA-256 hash of its plaintext,
// salted with the instance identifier, so byte-identical content within one
// instance always resolves to the same path while two instances never
// collide. Blob files hold an AES-GCM nonce followed by the ciphertext; the
// dedup index in SQLite is the arbiter that makes concurrent writes for the
// same content converge on exactly one stored blob.
package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tearleads/rapidvault/internal/common"
	"github.com/tearleads/rapidvault/internal/cryptox"
	"github.com/tearleads/rapidvault/internal/keyring"
	"github.com/tearleads/rapidvault/internal/logging"
	"github.com/tearleads/rapidvault/internal/telemetry"
)

// Store is the blob engine. It is bound to exactly one instance between
// Initialize and Close; the master key itself stays in the keyring and is
// fetched per operation, so a locked vault fails fast before any I/O.
//
// Store and Retrieve are safe for concurrent use. Writers racing on the
// same path serialize on a per-path lock; everything else runs in parallel.
type Store struct {
	keys  *keyring.Keyring
	files *FileStore
	index IndexRepository
	log   logging.Logger
	locks *pathLocks

	mu          sync.RWMutex
	instanceID  string
	initialized bool
}

// New creates an unbound Store. Initialize must be called before any
// read/write operation.
func New(files *FileStore, index IndexRepository, keys *keyring.Keyring, log logging.Logger) *Store {
	return &Store{
		keys:  keys,
		files: files,
		index: index,
		log:   log,
		locks: newPathLocks(),
	}
}

// PathFor derives the storage path for a content hash within an instance.
// The instance identifier salts the derivation so identical plaintext under
// different instances maps to different paths.
func PathFor(instanceID string, contentHash []byte) string {
	h := sha256.New()
	h.Write([]byte(instanceID))
	h.Write([]byte{0x00})
	h.Write(contentHash)
	return hex.EncodeToString(h.Sum(nil))
}

// Initialize binds the store to an instance. It is idempotent for the same
// instance; rebinding to a different instance without Close is
// common.ErrInstanceMismatch, because mixing keys across an open handle
// would corrupt dedup lookups.
func (s *Store) Initialize(key []byte, instanceID string) error {
	if len(key) != cryptox.KeySize {
		return fmt.Errorf("invalid key length %d: want %d", len(key), cryptox.KeySize)
	}
	if instanceID == "" {
		return errors.New("empty instance id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		if s.instanceID == instanceID {
			return nil
		}
		return fmt.Errorf("%w: bound to %q, got %q", common.ErrInstanceMismatch, s.instanceID, instanceID)
	}

	s.instanceID = instanceID
	s.initialized = true
	return nil
}

// IsInitialized reports whether the store is bound to an instance.
func (s *Store) IsInitialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// Close unbinds the store. A later Initialize may bind a different
// instance; this is the only supported way to switch instances.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instanceID = ""
	s.initialized = false
}

// session snapshots the binding and fetches the current key. Every
// operation goes through it so precondition failures surface before any
// encryption or storage work.
func (s *Store) session() (key []byte, instanceID string, err error) {
	s.mu.RLock()
	instanceID = s.instanceID
	initialized := s.initialized
	s.mu.RUnlock()

	if !initialized {
		return nil, "", common.ErrNotInitialized
	}

	current, err := s.keys.InstanceID()
	if err != nil {
		return nil, "", err
	}
	if current != instanceID {
		return nil, "", fmt.Errorf("%w: store bound to %q, key belongs to %q",
			common.ErrInstanceMismatch, instanceID, current)
	}

	key, err = s.keys.CurrentKey()
	if err != nil {
		return nil, "", err
	}
	return key, instanceID, nil
}

// Store persists plaintext under its content address and returns the
// storage path. isDuplicate reports that the content already existed and no
// new ciphertext was written.
func (s *Store) Store(ctx context.Context, plaintext []byte) (path string, isDuplicate bool, err error) {
	key, instanceID, err := s.session()
	if err != nil {
		return "", false, err
	}
	defer common.WipeByteArray(key)

	hash := cryptox.ContentHash(plaintext)
	path = PathFor(instanceID, hash)

	release := s.locks.acquire(path)
	defer release()

	ref := &BlobRef{
		Path:        path,
		InstanceID:  instanceID,
		ContentHash: hex.EncodeToString(hash),
		Size:        int64(len(plaintext)),
		CreatedAt:   time.Now().UTC(),
	}

	inserted, err := s.index.TryInsert(ctx, ref)
	if err != nil {
		return "", false, fmt.Errorf("dedup index: %w", err)
	}

	if !inserted {
		// Dedup short-circuit. The blob file normally exists already; a
		// missing file means a previous run crashed between index commit
		// and blob write, so heal it from the plaintext we hold anyway.
		ok, err := s.files.Has(path)
		if err != nil {
			return "", false, err
		}
		if !ok {
			s.log.Warn(ctx, "blob file missing for indexed path, rewriting", "path", path)
			if err := s.encryptAndWrite(path, plaintext, key); err != nil {
				return "", false, err
			}
		}
		return path, true, nil
	}

	if err := s.encryptAndWrite(path, plaintext, key); err != nil {
		// Roll back the reservation so the path does not dangle.
		if delErr := s.index.DeleteByPath(ctx, path); delErr != nil {
			s.log.Error(ctx, "failed to roll back blob index entry", "path", path, "error", delErr)
		}
		return "", false, err
	}

	return path, false, nil
}

func (s *Store) encryptAndWrite(path string, plaintext, key []byte) error {
	ciphertext, nonce, err := cryptox.Encrypt(plaintext, key)
	if err != nil {
		return fmt.Errorf("encrypt blob: %w", err)
	}

	blob := make([]byte, 0, len(nonce)+len(ciphertext))
	blob = append(blob, nonce...)
	blob = append(blob, ciphertext...)

	return s.files.Write(path, blob)
}

// Retrieve loads the blob at path and returns the decrypted plaintext.
// Fails with common.ErrNotFound when no blob exists at path and with
// common.ErrDecryptionFailed when the stored bytes do not authenticate
// under the current key.
func (s *Store) Retrieve(ctx context.Context, path string) ([]byte, error) {
	key, _, err := s.session()
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	blob, err := s.files.Read(path)
	if err != nil {
		return nil, err
	}

	if len(blob) < cryptox.NonceSize {
		return nil, fmt.Errorf("%w: blob shorter than nonce", common.ErrDecryptionFailed)
	}
	nonce, ciphertext := blob[:cryptox.NonceSize], blob[cryptox.NonceSize:]

	plaintext, err := cryptox.Decrypt(ciphertext, nonce, key)
	if err != nil {
		return nil, err
	}

	return plaintext, nil
}

// MeasureRetrieve behaves exactly like Retrieve but emits one telemetry
// event per call, success or failure, to the supplied sink. Callers on hot
// paths (thumbnail loading in list views) use this instead of duplicating
// timing code.
func (s *Store) MeasureRetrieve(ctx context.Context, path string, sink telemetry.Sink) ([]byte, error) {
	start := time.Now()
	plaintext, err := s.Retrieve(ctx, path)

	ev := telemetry.Event{
		Path:     path,
		Duration: time.Since(start),
		Outcome:  classifyOutcome(err),
	}
	sink.Record(ctx, ev)

	return plaintext, err
}

func classifyOutcome(err error) telemetry.Outcome {
	switch {
	case err == nil:
		return telemetry.OutcomeSuccess
	case errors.Is(err, common.ErrNotFound):
		return telemetry.OutcomeNotFound
	case errors.Is(err, common.ErrDecryptionFailed):
		return telemetry.OutcomeDecryptionFailed
	default:
		return telemetry.OutcomeError
	}
}

// Stats returns the number of blobs and total ciphertext bytes stored for
// the bound instance.
func (s *Store) Stats(ctx context.Context) (count int64, size int64, err error) {
	key, instanceID, err := s.session()
	if err != nil {
		return 0, 0, err
	}
	common.WipeByteArray(key)
	return s.index.StatsByInstance(ctx, instanceID)
}
