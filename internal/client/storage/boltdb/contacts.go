package boltdb

import (
	"go.etcd.io/bbolt"

	"github.com/iudanet/paysync/internal/client/storage"
	"github.com/iudanet/paysync/internal/models"
)

func newContactCollection(btx *bbolt.Tx) *collection[models.Contact] {
	return &collection[models.Contact]{
		tx:     btx,
		bucket: bucketContacts,
		id:     func(c *models.Contact) string { return c.ID },
		indexes: []index[models.Contact]{
			{bucket: bucketContactsByName, keys: func(c *models.Contact) [][]byte {
				return single(key(term(c.Name), []byte(c.ID)))
			}},
			{bucket: bucketContactsFav, keys: func(c *models.Contact) [][]byte {
				if !c.Favorite {
					return nil
				}
				return single(key(term(c.Name), []byte(c.ID)))
			}},
		},
	}
}

// contacts implements storage.ContactCollection
type contacts struct {
	c *collection[models.Contact]
}

func (s *contacts) Put(c *models.Contact) error { return s.c.put(c) }
func (s *contacts) Delete(id string) error      { return s.c.delete(id) }

func (s *contacts) Get(id string) (*models.Contact, error) {
	return s.c.get(id)
}

func (s *contacts) List() ([]*models.Contact, error) {
	return s.c.scanPrefix(bucketContactsByName, nil)
}

func (s *contacts) Favorites() ([]*models.Contact, error) {
	return s.c.scanPrefix(bucketContactsFav, nil)
}

var _ storage.ContactCollection = (*contacts)(nil)
