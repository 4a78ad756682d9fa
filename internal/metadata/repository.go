package metadata

import "context"

// Repository describes CRUD operations for FileRecord rows.
// Implementations are backed by the local SQLite database.
type Repository interface {
	// Insert stores a new file record.
	Insert(ctx context.Context, rec *FileRecord) error

	// GetByID returns the record with the given ID, deleted or not.
	GetByID(ctx context.Context, id string) (*FileRecord, error)

	// List returns all records not marked deleted, newest upload first.
	List(ctx context.Context) ([]*FileRecord, error)

	// SoftDeleteByID marks the record deleted without touching blobs.
	SoftDeleteByID(ctx context.Context, id string) error

	// FindByStoragePath returns undeleted records referencing a storage
	// path. More than one record may share a path after a dedup hit.
	FindByStoragePath(ctx context.Context, path string) ([]*FileRecord, error)
}
