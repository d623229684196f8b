package sqlite

import (
	"fmt"

	"github.com/iudanet/paysync/internal/client/storage"
	"github.com/iudanet/paysync/internal/models"
)

const profileColumns = `id, field, value, timestamp, last_sync_attempt, sync_attempts, last_error, synced, failed`

// profiles implements storage.ProfileCollection
type profiles struct {
	t *tx
}

func profileArgs(p *models.ProfileUpdate) []any {
	return []any{
		p.ID, p.Field, p.Value, ms(p.Timestamp), ms(p.LastSyncAttempt), p.SyncAttempts, p.LastError,
		boolToInt(p.Synced), boolToInt(p.Failed),
	}
}

func scanProfile(row scanner) (*models.ProfileUpdate, error) {
	var (
		p              models.ProfileUpdate
		ts, lastSync   int64
		synced, failed int
	)
	err := row.Scan(&p.ID, &p.Field, &p.Value, &ts, &lastSync, &p.SyncAttempts, &p.LastError, &synced, &failed)
	if err != nil {
		return nil, err
	}
	p.Timestamp = fromMS(ts)
	p.LastSyncAttempt = fromMS(lastSync)
	p.Synced = synced == 1
	p.Failed = failed == 1
	return &p, nil
}

func (s *profiles) Add(p *models.ProfileUpdate) error {
	return s.t.insert(tableProfiles, p.ID,
		`INSERT INTO profile_updates (`+profileColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		profileArgs(p)...)
}

func (s *profiles) Put(p *models.ProfileUpdate) error {
	_, err := s.t.exec(
		`INSERT OR REPLACE INTO profile_updates (`+profileColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		profileArgs(p)...)
	if err != nil {
		return fmt.Errorf("failed to save profile update %s: %w", p.ID, err)
	}
	return nil
}

func (s *profiles) Get(id string) (*models.ProfileUpdate, error) {
	return queryOne(s.t, scanProfile, `SELECT `+profileColumns+` FROM profile_updates WHERE id = ?`, id)
}

func (s *profiles) Delete(id string) error {
	return s.t.deleteByID(tableProfiles, id)
}

func (s *profiles) BySynced(synced bool) ([]*models.ProfileUpdate, error) {
	return queryAll(s.t, scanProfile,
		`SELECT `+profileColumns+` FROM profile_updates WHERE synced = ? ORDER BY timestamp, id`, boolToInt(synced))
}

func (s *profiles) Failed() ([]*models.ProfileUpdate, error) {
	return queryAll(s.t, scanProfile,
		`SELECT `+profileColumns+` FROM profile_updates WHERE failed = 1 ORDER BY timestamp, id`)
}

var _ storage.ProfileCollection = (*profiles)(nil)
