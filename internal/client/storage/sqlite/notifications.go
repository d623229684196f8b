package sqlite

import (
	"github.com/iudanet/paysync/internal/client/storage"
	"github.com/iudanet/paysync/internal/models"
)

const notificationColumns = `id, title, message, severity, timestamp, read`

// notifications implements storage.NotificationCollection
type notifications struct {
	t *tx
}

func scanNotification(row scanner) (*models.Notification, error) {
	var (
		n    models.Notification
		ts   int64
		read int
	)
	if err := row.Scan(&n.ID, &n.Title, &n.Message, &n.Severity, &ts, &read); err != nil {
		return nil, err
	}
	n.Timestamp = fromMS(ts)
	n.Read = read == 1
	return &n, nil
}

func (s *notifications) Add(n *models.Notification) error {
	return s.t.insert(tableNotifications, n.ID,
		`INSERT INTO notifications (`+notificationColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.Title, n.Message, n.Severity, ms(n.Timestamp), boolToInt(n.Read))
}

func (s *notifications) Get(id string) (*models.Notification, error) {
	return queryOne(s.t, scanNotification, `SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, id)
}

func (s *notifications) MarkRead(id string) error {
	res, err := s.t.exec(`UPDATE notifications SET read = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *notifications) List() ([]*models.Notification, error) {
	return queryAll(s.t, scanNotification,
		`SELECT `+notificationColumns+` FROM notifications ORDER BY timestamp DESC, id DESC`)
}

func (s *notifications) Unread() ([]*models.Notification, error) {
	return queryAll(s.t, scanNotification,
		`SELECT `+notificationColumns+` FROM notifications WHERE read = 0 ORDER BY timestamp DESC, id DESC`)
}

var _ storage.NotificationCollection = (*notifications)(nil)
