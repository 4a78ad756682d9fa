package blobstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tearleads/rapidvault/internal/common"
)

// pathLen is the length of a storage path: hex-encoded SHA-256, 64 chars.
const pathLen = 64

// FileStore persists blob files on the local filesystem. A blob lives at
// {baseDir}/{path[:2]}/{path}, the two-character prefix acting as a shard
// directory. Blob files hold nonce || ciphertext and are written atomically
// via a temp file and rename, so readers never observe a partial blob.
type FileStore struct {
	baseDir string
}

// NewFileStore creates a file-backed blob store rooted at baseDir,
// creating the directory if needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		return nil, errors.New("empty base dir")
	}
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStoreIO, err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func validatePath(path string) error {
	if len(path) != pathLen {
		return fmt.Errorf("invalid storage path %q: want %d hex chars", path, pathLen)
	}
	for _, c := range path {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return fmt.Errorf("invalid storage path %q: non-hex character", path)
		}
	}
	return nil
}

func (fs *FileStore) filePath(path string) string {
	return filepath.Join(fs.baseDir, path[:2], path)
}

// Write stores data at path, replacing nothing: the engine guarantees each
// path is written at most once per instance lifetime.
func (fs *FileStore) Write(path string, data []byte) error {
	if err := validatePath(path); err != nil {
		return err
	}

	shard := filepath.Join(fs.baseDir, path[:2])
	if err := os.MkdirAll(shard, 0o700); err != nil {
		return fmt.Errorf("%w: %v", common.ErrStoreIO, err)
	}

	tmp, err := os.CreateTemp(shard, "."+path[:8]+"-*")
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrStoreIO, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %v", common.ErrStoreIO, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %v", common.ErrStoreIO, err)
	}

	if err := os.Rename(tmpName, fs.filePath(path)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: %v", common.ErrStoreIO, err)
	}

	return nil
}

// Read returns the raw blob bytes stored at path, or common.ErrNotFound.
func (fs *FileStore) Read(path string) ([]byte, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(fs.filePath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", common.ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: %v", common.ErrStoreIO, err)
	}

	return data, nil
}

// Has reports whether a blob file exists at path.
func (fs *FileStore) Has(path string) (bool, error) {
	if err := validatePath(path); err != nil {
		return false, err
	}

	_, err := os.Stat(fs.filePath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", common.ErrStoreIO, err)
	}
	return true, nil
}

// Remove deletes the blob file at path, if present.
func (fs *FileStore) Remove(path string) error {
	if err := validatePath(path); err != nil {
		return err
	}

	if err := os.Remove(fs.filePath(path)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", common.ErrStoreIO, err)
	}
	return nil
}
