package vault

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tearleads/rapidvault/internal/common"
	"github.com/tearleads/rapidvault/internal/dbx"
)

// Keys into the instance_meta table.
const (
	metaKeySalt       = "kdf_salt"
	metaKeyVerifier   = "key_verifier"
	metaKeyInstanceID = "instance_id"
)

// metaRepository reads and writes the per-instance key/value rows: the KDF
// salt, the key verifier, and the instance identifier.
type metaRepository struct {
	db dbx.DBTX
}

func newMetaRepository(db dbx.DBTX) *metaRepository {
	return &metaRepository{db: db}
}

func (r *metaRepository) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT value FROM instance_meta WHERE key = ?`

	var value []byte
	err := r.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: meta %s", common.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to get meta %s: %w", key, err)
	}

	return value, nil
}

func (r *metaRepository) Set(ctx context.Context, key string, value []byte) error {
	query := `INSERT INTO instance_meta (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`

	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set meta %s: %w", key, err)
	}
	return nil
}
