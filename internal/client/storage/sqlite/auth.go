package sqlite

import (
	"fmt"
	"time"

	"github.com/iudanet/paysync/internal/client/storage"
	"github.com/iudanet/paysync/internal/models"
)

// auth implements storage.AuthCollection
type auth struct {
	t *tx
}

func scanAuth(row scanner) (*models.AuthToken, error) {
	var (
		a           models.AuthToken
		ts, expires int64
	)
	if err := row.Scan(&a.Key, &a.Token, &a.RefreshToken, &ts, &expires); err != nil {
		return nil, err
	}
	a.Timestamp = fromMS(ts)
	a.ExpiresAt = fromMS(expires)
	return &a, nil
}

func (s *auth) Put(a *models.AuthToken) error {
	_, err := s.t.exec(`INSERT OR REPLACE INTO auth (key, token, refresh_token, timestamp, expires_at) VALUES (?, ?, ?, ?, ?)`,
		a.Key, a.Token, a.RefreshToken, ms(a.Timestamp), ms(a.ExpiresAt))
	if err != nil {
		return fmt.Errorf("failed to save auth token %s: %w", a.Key, err)
	}
	return nil
}

func (s *auth) Get(key string, now time.Time) (*models.AuthToken, error) {
	a, err := queryOne(s.t, scanAuth, `SELECT key, token, refresh_token, timestamp, expires_at FROM auth WHERE key = ?`, key)
	if err != nil {
		return nil, err
	}
	if a.Expired(now) {
		return nil, storage.ErrNotFound
	}
	return a, nil
}

func (s *auth) Delete(key string) error {
	return s.t.deleteByID(tableAuth, key)
}

func (s *auth) Clear() error {
	_, err := s.t.exec(`DELETE FROM auth`)
	return err
}

var _ storage.AuthCollection = (*auth)(nil)
