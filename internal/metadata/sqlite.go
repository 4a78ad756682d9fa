package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tearleads/rapidvault/internal/common"
	"github.com/tearleads/rapidvault/internal/dbx"
)

// SQLiteRepository implements Repository on a local SQLite database.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, rec *FileRecord) error {
	query := `INSERT INTO files (id, name, size, mime_type, upload_date, storage_path, thumbnail_path, deleted)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	var thumb sql.NullString
	if path, ok := rec.Thumbnail.Path(); ok {
		thumb = sql.NullString{String: path, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Name, rec.Size, rec.MimeType, rec.UploadDate.UTC(),
		rec.StoragePath, thumb, rec.Deleted)
	if err != nil {
		return fmt.Errorf("failed to insert file record: %w", err)
	}

	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*FileRecord, error) {
	query := `SELECT id, name, size, mime_type, upload_date, storage_path, thumbnail_path, deleted
			FROM files WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	rec, err := scanRecord(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: file %s", common.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get file record: %w", err)
	}

	return rec, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*FileRecord, error) {
	query := `SELECT id, name, size, mime_type, upload_date, storage_path, thumbnail_path, deleted
			FROM files WHERE deleted = 0 ORDER BY upload_date DESC, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list file records: %w", err)
	}
	defer rows.Close()

	var result []*FileRecord
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *SQLiteRepository) SoftDeleteByID(ctx context.Context, id string) error {
	query := `UPDATE files SET deleted = 1 WHERE id = ? AND deleted = 0`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete file record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected != 1 {
		return fmt.Errorf("%w: file %s", common.ErrNotFound, id)
	}

	return nil
}

func (r *SQLiteRepository) FindByStoragePath(ctx context.Context, path string) ([]*FileRecord, error) {
	query := `SELECT id, name, size, mime_type, upload_date, storage_path, thumbnail_path, deleted
			FROM files WHERE storage_path = ? AND deleted = 0`
	rows, err := r.db.QueryContext(ctx, query, path)
	if err != nil {
		return nil, fmt.Errorf("failed to find file records: %w", err)
	}
	defer rows.Close()

	var result []*FileRecord
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func scanRecord(scan func(dest ...any) error) (*FileRecord, error) {
	rec := &FileRecord{}
	var thumb sql.NullString

	err := scan(&rec.ID, &rec.Name, &rec.Size, &rec.MimeType, &rec.UploadDate,
		&rec.StoragePath, &thumb, &rec.Deleted)
	if err != nil {
		return nil, err
	}

	if thumb.Valid {
		rec.Thumbnail = ThumbnailAt(thumb.String)
	} else {
		rec.Thumbnail = NoThumbnail()
	}

	return rec, nil
}
