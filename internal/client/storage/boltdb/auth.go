package boltdb

import (
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/paysync/internal/client/storage"
	"github.com/iudanet/paysync/internal/models"
)

func newAuthCollection(btx *bbolt.Tx) *collection[models.AuthToken] {
	return &collection[models.AuthToken]{
		tx:     btx,
		bucket: bucketAuth,
		id:     func(a *models.AuthToken) string { return a.Key },
	}
}

// auth implements storage.AuthCollection
type auth struct {
	c *collection[models.AuthToken]
}

func (s *auth) Put(a *models.AuthToken) error { return s.c.put(a) }
func (s *auth) Delete(key string) error       { return s.c.delete(key) }

// Get returns storage.ErrNotFound for expired tokens as well as for missing ones.
func (s *auth) Get(key string, now time.Time) (*models.AuthToken, error) {
	a, err := s.c.get(key)
	if err != nil {
		return nil, err
	}
	if a.Expired(now) {
		return nil, storage.ErrNotFound
	}
	return a, nil
}

func (s *auth) Clear() error {
	if err := s.c.writable(); err != nil {
		return err
	}

	// Пересоздаем bucket целиком: токенов мало, индексов нет
	if err := s.c.tx.DeleteBucket(bucketAuth); err != nil {
		return err
	}
	_, err := s.c.tx.CreateBucket(bucketAuth)
	return err
}

var _ storage.AuthCollection = (*auth)(nil)
