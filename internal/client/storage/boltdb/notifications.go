package boltdb

import (
	"go.etcd.io/bbolt"

	"github.com/iudanet/paysync/internal/client/storage"
	"github.com/iudanet/paysync/internal/models"
)

func newNotificationCollection(btx *bbolt.Tx) *collection[models.Notification] {
	return &collection[models.Notification]{
		tx:     btx,
		bucket: bucketNotifications,
		id:     func(n *models.Notification) string { return n.ID },
		indexes: []index[models.Notification]{
			{bucket: bucketNotifByTime, keys: func(n *models.Notification) [][]byte {
				return single(key(millis(n.Timestamp), []byte(n.ID)))
			}},
			{bucket: bucketNotifUnread, keys: func(n *models.Notification) [][]byte {
				if n.Read {
					return nil
				}
				return single(key(millis(n.Timestamp), []byte(n.ID)))
			}},
		},
	}
}

// notifications implements storage.NotificationCollection
type notifications struct {
	c *collection[models.Notification]
}

func (s *notifications) Add(n *models.Notification) error { return s.c.add(n) }

func (s *notifications) Get(id string) (*models.Notification, error) {
	return s.c.get(id)
}

func (s *notifications) MarkRead(id string) error {
	n, err := s.c.get(id)
	if err != nil {
		return err
	}
	if n.Read {
		return nil
	}
	n.Read = true
	return s.c.put(n)
}

// List returns notifications newest first.
func (s *notifications) List() ([]*models.Notification, error) {
	return s.c.scanReverse(bucketNotifByTime)
}

func (s *notifications) Unread() ([]*models.Notification, error) {
	return s.c.scanReverse(bucketNotifUnread)
}

var _ storage.NotificationCollection = (*notifications)(nil)
