package blobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tearleads/rapidvault/internal/common"
	"github.com/tearleads/rapidvault/internal/dbx"
)

// BlobRef is one row of the dedup index: the durable record that a blob
// exists at a storage path.
type BlobRef struct {
	Path        string
	InstanceID  string
	ContentHash string
	Size        int64
	CreatedAt   time.Time
}

// IndexRepository is the dedup index over storage paths. TryInsert is the
// arbiter for racing writers: exactly one concurrent insert for a path wins.
type IndexRepository interface {
	// TryInsert records the ref unless a row for its path already exists.
	// Returns true if this call inserted the row.
	TryInsert(ctx context.Context, ref *BlobRef) (bool, error)

	// Exists reports whether a row exists for the path.
	Exists(ctx context.Context, path string) (bool, error)

	// GetByPath returns the ref for a path, or common.ErrNotFound.
	GetByPath(ctx context.Context, path string) (*BlobRef, error)

	// DeleteByPath removes the row for a path. Used to roll back an index
	// reservation whose blob write failed.
	DeleteByPath(ctx context.Context, path string) error

	// StatsByInstance returns blob count and total ciphertext size for an
	// instance.
	StatsByInstance(ctx context.Context, instanceID string) (count int64, size int64, err error)
}

// SQLiteIndexRepository implements IndexRepository on a local SQLite
// database. INSERT OR IGNORE makes the check-then-insert atomic.
type SQLiteIndexRepository struct {
	db dbx.DBTX
}

func NewSQLiteIndexRepository(db dbx.DBTX) *SQLiteIndexRepository {
	return &SQLiteIndexRepository{db: db}
}

func (r *SQLiteIndexRepository) TryInsert(ctx context.Context, ref *BlobRef) (bool, error) {
	query := `INSERT OR IGNORE INTO blobs (path, instance_id, content_hash, size, created_at)
			VALUES (?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, query,
		ref.Path, ref.InstanceID, ref.ContentHash, ref.Size, ref.CreatedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to insert blob ref: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

func (r *SQLiteIndexRepository) Exists(ctx context.Context, path string) (bool, error) {
	query := `SELECT COUNT(*) FROM blobs WHERE path = ?`
	var n int
	if err := r.db.QueryRowContext(ctx, query, path).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check blob ref: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteIndexRepository) GetByPath(ctx context.Context, path string) (*BlobRef, error) {
	query := `SELECT path, instance_id, content_hash, size, created_at FROM blobs WHERE path = ?`
	row := r.db.QueryRowContext(ctx, query, path)

	ref := &BlobRef{}
	err := row.Scan(&ref.Path, &ref.InstanceID, &ref.ContentHash, &ref.Size, &ref.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", common.ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to get blob ref: %w", err)
	}

	return ref, nil
}

func (r *SQLiteIndexRepository) DeleteByPath(ctx context.Context, path string) error {
	query := `DELETE FROM blobs WHERE path = ?`
	if _, err := r.db.ExecContext(ctx, query, path); err != nil {
		return fmt.Errorf("failed to delete blob ref: %w", err)
	}
	return nil
}

func (r *SQLiteIndexRepository) StatsByInstance(ctx context.Context, instanceID string) (int64, int64, error) {
	query := `SELECT COUNT(*), COALESCE(SUM(size), 0) FROM blobs WHERE instance_id = ?`
	var count, size int64
	if err := r.db.QueryRowContext(ctx, query, instanceID).Scan(&count, &size); err != nil {
		return 0, 0, fmt.Errorf("failed to get blob stats: %w", err)
	}
	return count, size, nil
}
