package boltdb

import (
	"bytes"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/paysync/internal/client/storage"
	"github.com/iudanet/paysync/internal/models"
)

func newTransactionCollection(btx *bbolt.Tx) *collection[models.Transaction] {
	return &collection[models.Transaction]{
		tx:     btx,
		bucket: bucketTransactions,
		id:     func(t *models.Transaction) string { return t.ID },
		indexes: []index[models.Transaction]{
			{bucket: bucketTxByStatus, keys: func(t *models.Transaction) [][]byte {
				return single(key(term(string(t.Status)), millis(t.Timestamp), []byte(t.ID)))
			}},
			{bucket: bucketTxBySynced, keys: func(t *models.Transaction) [][]byte {
				return single(key(flag(t.Synced), millis(t.Timestamp), []byte(t.ID)))
			}},
			{bucket: bucketTxByTime, keys: func(t *models.Transaction) [][]byte {
				return single(key(millis(t.Timestamp), []byte(t.ID)))
			}},
		},
	}
}

// transactions implements storage.TransactionCollection
type transactions struct {
	c *collection[models.Transaction]
}

func (s *transactions) Add(t *models.Transaction) error { return s.c.add(t) }
func (s *transactions) Put(t *models.Transaction) error { return s.c.put(t) }
func (s *transactions) Delete(id string) error          { return s.c.delete(id) }
func (s *transactions) Count() (int, error)             { return s.c.count() }

func (s *transactions) Get(id string) (*models.Transaction, error) {
	return s.c.get(id)
}

func (s *transactions) ByStatus(status models.TransactionStatus) ([]*models.Transaction, error) {
	return s.c.scanPrefix(bucketTxByStatus, term(string(status)))
}

func (s *transactions) BySynced(synced bool) ([]*models.Transaction, error) {
	return s.c.scanPrefix(bucketTxBySynced, flag(synced))
}

func (s *transactions) ByTimestampRange(from, to time.Time) ([]*models.Transaction, error) {
	end := millis(to)
	return s.c.scan(bucketTxByTime, millis(from), func(k []byte) bool {
		return bytes.Compare(k[:8], end) < 0
	})
}

var _ storage.TransactionCollection = (*transactions)(nil)
