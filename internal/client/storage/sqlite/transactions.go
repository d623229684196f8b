package sqlite

import (
	"fmt"
	"time"

	"github.com/iudanet/paysync/internal/client/storage"
	"github.com/iudanet/paysync/internal/models"
)

const transactionColumns = `id, kind, amount, currency, counterpart, description, status,
	timestamp, last_sync_attempt, sync_attempts, last_error, synced`

// transactions implements storage.TransactionCollection
type transactions struct {
	t *tx
}

func transactionArgs(tr *models.Transaction) []any {
	return []any{
		tr.ID, tr.Kind, tr.Amount.String(), tr.Currency, tr.Counterpart, tr.Description, tr.Status,
		ms(tr.Timestamp), ms(tr.LastSyncAttempt), tr.SyncAttempts, tr.LastError, boolToInt(tr.Synced),
	}
}

func scanTransaction(row scanner) (*models.Transaction, error) {
	var (
		tr           models.Transaction
		ts, lastSync int64
		synced       int
	)
	err := row.Scan(&tr.ID, &tr.Kind, &tr.Amount, &tr.Currency, &tr.Counterpart, &tr.Description, &tr.Status,
		&ts, &lastSync, &tr.SyncAttempts, &tr.LastError, &synced)
	if err != nil {
		return nil, err
	}
	tr.Timestamp = fromMS(ts)
	tr.LastSyncAttempt = fromMS(lastSync)
	tr.Synced = synced == 1
	return &tr, nil
}

func (s *transactions) Add(tr *models.Transaction) error {
	return s.t.insert(tableTransactions, tr.ID,
		`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		transactionArgs(tr)...)
}

func (s *transactions) Put(tr *models.Transaction) error {
	_, err := s.t.exec(
		`INSERT OR REPLACE INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		transactionArgs(tr)...)
	if err != nil {
		return fmt.Errorf("failed to save transaction %s: %w", tr.ID, err)
	}
	return nil
}

func (s *transactions) Get(id string) (*models.Transaction, error) {
	return queryOne(s.t, scanTransaction,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
}

func (s *transactions) Delete(id string) error {
	return s.t.deleteByID(tableTransactions, id)
}

func (s *transactions) ByStatus(status models.TransactionStatus) ([]*models.Transaction, error) {
	return queryAll(s.t, scanTransaction,
		`SELECT `+transactionColumns+` FROM transactions WHERE status = ? ORDER BY timestamp, id`, status)
}

func (s *transactions) BySynced(synced bool) ([]*models.Transaction, error) {
	return queryAll(s.t, scanTransaction,
		`SELECT `+transactionColumns+` FROM transactions WHERE synced = ? ORDER BY timestamp, id`, boolToInt(synced))
}

func (s *transactions) ByTimestampRange(from, to time.Time) ([]*models.Transaction, error) {
	return queryAll(s.t, scanTransaction,
		`SELECT `+transactionColumns+` FROM transactions
		WHERE timestamp >= ? AND timestamp < ? ORDER BY timestamp, id`, ms(from), ms(to))
}

func (s *transactions) Count() (int, error) {
	return s.t.count(tableTransactions)
}

var _ storage.TransactionCollection = (*transactions)(nil)
