package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/iudanet/paysync/internal/client/storage"
)

// metadata implements storage.MetadataCollection
type metadata struct {
	t *tx
}

func (m *metadata) Get(key string) ([]byte, error) {
	var value []byte
	err := m.t.tx.QueryRowContext(m.t.ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata %s: %w", key, err)
	}
	return value, nil
}

func (m *metadata) Put(key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	if _, err := m.t.exec(`INSERT OR REPLACE INTO metadata (key, value) VALUES (?, ?)`, key, value); err != nil {
		return fmt.Errorf("failed to save metadata %s: %w", key, err)
	}
	return nil
}

var _ storage.MetadataCollection = (*metadata)(nil)
