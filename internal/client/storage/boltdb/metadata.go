package boltdb

import (
	"bytes"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/paysync/internal/client/storage"
)

// metadata implements storage.MetadataCollection
type metadata struct {
	tx *bbolt.Tx
}

func (m *metadata) Get(key string) ([]byte, error) {
	bucket, err := getBucket(m.tx, bucketMetadata)
	if err != nil {
		return nil, err
	}

	value := bucket.Get([]byte(key))
	if value == nil {
		return nil, storage.ErrNotFound
	}
	// значение из bbolt действительно только внутри транзакции
	return bytes.Clone(value), nil
}

func (m *metadata) Put(key string, value []byte) error {
	if !m.tx.Writable() {
		return storage.ErrReadOnly
	}

	bucket, err := getBucket(m.tx, bucketMetadata)
	if err != nil {
		return err
	}
	if err := bucket.Put([]byte(key), value); err != nil {
		return fmt.Errorf("failed to save metadata %s: %w", key, err)
	}
	return nil
}

var _ storage.MetadataCollection = (*metadata)(nil)
