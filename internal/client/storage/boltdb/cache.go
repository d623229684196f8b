package boltdb

import (
	"bytes"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/paysync/internal/client/storage"
	"github.com/iudanet/paysync/internal/models"
)

func newCacheCollection(btx *bbolt.Tx) *collection[models.CacheEntry] {
	return &collection[models.CacheEntry]{
		tx:     btx,
		bucket: bucketCache,
		id:     func(c *models.CacheEntry) string { return c.Key },
		indexes: []index[models.CacheEntry]{
			// бессрочные записи в индекс не попадают
			{bucket: bucketCacheByExpiry, keys: func(c *models.CacheEntry) [][]byte {
				if c.ExpiresAt.IsZero() {
					return nil
				}
				return single(key(millis(c.ExpiresAt), []byte(c.Key)))
			}},
		},
	}
}

// cache implements storage.CacheCollection
type cache struct {
	c *collection[models.CacheEntry]
}

func (s *cache) Put(c *models.CacheEntry) error { return s.c.put(c) }
func (s *cache) Delete(key string) error        { return s.c.delete(key) }

func (s *cache) Get(key string, now time.Time) (*models.CacheEntry, error) {
	c, err := s.c.get(key)
	if err != nil {
		return nil, err
	}
	if c.Expired(now) {
		return nil, storage.ErrNotFound
	}
	return c, nil
}

func (s *cache) PurgeExpired(now time.Time) (int, error) {
	if err := s.c.writable(); err != nil {
		return 0, err
	}

	limit := millis(now)
	expired, err := s.c.scan(bucketCacheByExpiry, nil, func(k []byte) bool {
		return bytes.Compare(k[:8], limit) <= 0
	})
	if err != nil {
		return 0, err
	}

	// удаляем после обхода: курсор не должен видеть изменения bucket
	n := 0
	for _, c := range expired {
		if !c.Expired(now) {
			continue
		}
		if err := s.c.delete(c.Key); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

var _ storage.CacheCollection = (*cache)(nil)
