package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/paysync/internal/client/storage"
)

// tx implements storage.Tx over a single *sql.Tx
type tx struct {
	ctx      context.Context
	tx       *sql.Tx
	readOnly bool
}

func (t *tx) Transactions() storage.TransactionCollection   { return &transactions{t} }
func (t *tx) Profiles() storage.ProfileCollection           { return &profiles{t} }
func (t *tx) Outbox() storage.OutboxCollection              { return &outbox{t} }
func (t *tx) Cache() storage.CacheCollection                { return &cache{t} }
func (t *tx) Auth() storage.AuthCollection                  { return &auth{t} }
func (t *tx) Contacts() storage.ContactCollection           { return &contacts{t} }
func (t *tx) Notifications() storage.NotificationCollection { return &notifications{t} }
func (t *tx) Metadata() storage.MetadataCollection          { return &metadata{t} }

// scanner общий интерфейс *sql.Row и *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

// exec выполняет изменяющий запрос; в View возвращает storage.ErrReadOnly
func (t *tx) exec(query string, args ...any) (sql.Result, error) {
	if t.readOnly {
		return nil, storage.ErrReadOnly
	}
	return t.tx.ExecContext(t.ctx, query, args...)
}

// insert выполняет INSERT и переводит конфликт первичного ключа в storage.ErrAlreadyExists
func (t *tx) insert(table, id, query string, args ...any) error {
	if t.readOnly {
		return storage.ErrReadOnly
	}

	exists, err := t.exists(table, id)
	if err != nil {
		return err
	}
	if exists {
		return storage.ErrAlreadyExists
	}

	if _, err := t.exec(query, args...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return nil
}

func (t *tx) exists(table, id string) (bool, error) {
	var one int
	// имя таблицы берется только из констант пакета
	err := t.tx.QueryRowContext(t.ctx, "SELECT 1 FROM "+table+" WHERE "+pkColumn(table)+" = ?", id).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("failed to check %s/%s: %w", table, id, err)
	}
	return true, nil
}

// deleteByID удаляет запись; storage.ErrNotFound если ее нет
func (t *tx) deleteByID(table, id string) error {
	res, err := t.exec("DELETE FROM "+table+" WHERE "+pkColumn(table)+" = ?", id)
	if err != nil {
		if errors.Is(err, storage.ErrReadOnly) {
			return err
		}
		return fmt.Errorf("failed to delete %s/%s: %w", table, id, err)
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

func (t *tx) count(table string) (int, error) {
	var n int
	if err := t.tx.QueryRowContext(t.ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

func pkColumn(table string) string {
	switch table {
	case tableCache, tableAuth, tableMetadata:
		return "key"
	}
	return "id"
}

// queryOne выполняет запрос одной записи; sql.ErrNoRows превращается в storage.ErrNotFound
func queryOne[T any](t *tx, scan func(scanner) (*T, error), query string, args ...any) (*T, error) {
	v, err := scan(t.tx.QueryRowContext(t.ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func queryAll[T any](t *tx, scan func(scanner) (*T, error), query string, args ...any) ([]*T, error) {
	rows, err := t.tx.QueryContext(t.ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var out []*T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return out, nil
}

const (
	tableTransactions  = "transactions"
	tableProfiles      = "profile_updates"
	tableOutbox        = "sync_queue"
	tableCache         = "cache"
	tableAuth          = "auth"
	tableContacts      = "contacts"
	tableNotifications = "notifications"
	tableMetadata      = "metadata"
)

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func ms(t time.Time) int64 {
	return storage.UnixMilli(t)
}

func fromMS(v int64) time.Time {
	return storage.FromUnixMilli(v)
}
