package boltdb

import (
	"go.etcd.io/bbolt"

	"github.com/iudanet/paysync/internal/client/storage"
	"github.com/iudanet/paysync/internal/models"
)

func newProfileCollection(btx *bbolt.Tx) *collection[models.ProfileUpdate] {
	return &collection[models.ProfileUpdate]{
		tx:     btx,
		bucket: bucketProfiles,
		id:     func(p *models.ProfileUpdate) string { return p.ID },
		indexes: []index[models.ProfileUpdate]{
			{bucket: bucketProfileBySynced, keys: func(p *models.ProfileUpdate) [][]byte {
				return single(key(flag(p.Synced), millis(p.Timestamp), []byte(p.ID)))
			}},
			{bucket: bucketProfileFailed, keys: func(p *models.ProfileUpdate) [][]byte {
				if !p.Failed {
					return nil
				}
				return single(key(millis(p.Timestamp), []byte(p.ID)))
			}},
		},
	}
}

// profiles implements storage.ProfileCollection
type profiles struct {
	c *collection[models.ProfileUpdate]
}

func (s *profiles) Add(p *models.ProfileUpdate) error { return s.c.add(p) }
func (s *profiles) Put(p *models.ProfileUpdate) error { return s.c.put(p) }
func (s *profiles) Delete(id string) error            { return s.c.delete(id) }

func (s *profiles) Get(id string) (*models.ProfileUpdate, error) {
	return s.c.get(id)
}

func (s *profiles) BySynced(synced bool) ([]*models.ProfileUpdate, error) {
	return s.c.scanPrefix(bucketProfileBySynced, flag(synced))
}

func (s *profiles) Failed() ([]*models.ProfileUpdate, error) {
	return s.c.scanPrefix(bucketProfileFailed, nil)
}

var _ storage.ProfileCollection = (*profiles)(nil)
