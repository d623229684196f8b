package sqlite

import (
	"fmt"
	"time"

	"github.com/iudanet/paysync/internal/client/storage"
	"github.com/iudanet/paysync/internal/models"
)

// cache implements storage.CacheCollection.
// expires_at = 0 означает бессрочную запись.
type cache struct {
	t *tx
}

func scanCache(row scanner) (*models.CacheEntry, error) {
	var (
		c           models.CacheEntry
		ts, expires int64
	)
	if err := row.Scan(&c.Key, &c.Data, &c.ETag, &ts, &expires); err != nil {
		return nil, err
	}
	c.Timestamp = fromMS(ts)
	c.ExpiresAt = fromMS(expires)
	return &c, nil
}

func (s *cache) Put(c *models.CacheEntry) error {
	_, err := s.t.exec(`INSERT OR REPLACE INTO cache (key, data, etag, timestamp, expires_at) VALUES (?, ?, ?, ?, ?)`,
		c.Key, c.Data, c.ETag, ms(c.Timestamp), ms(c.ExpiresAt))
	if err != nil {
		return fmt.Errorf("failed to save cache entry %s: %w", c.Key, err)
	}
	return nil
}

func (s *cache) Get(key string, now time.Time) (*models.CacheEntry, error) {
	c, err := queryOne(s.t, scanCache, `SELECT key, data, etag, timestamp, expires_at FROM cache WHERE key = ?`, key)
	if err != nil {
		return nil, err
	}
	if c.Expired(now) {
		return nil, storage.ErrNotFound
	}
	return c, nil
}

func (s *cache) Delete(key string) error {
	return s.t.deleteByID(tableCache, key)
}

func (s *cache) PurgeExpired(now time.Time) (int, error) {
	res, err := s.t.exec(`DELETE FROM cache WHERE expires_at > 0 AND expires_at <= ?`, ms(now))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

var _ storage.CacheCollection = (*cache)(nil)
