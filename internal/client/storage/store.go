// Package storage defines the persistent local store of the client: the
// record collections, their secondary-index queries and the transaction
// boundary that makes multi-record writes atomic.
//
// Implementations live in the boltdb and sqlite subpackages; both must pass
// the storagetest contract suite.
package storage

import (
	"context"
	"time"

	"github.com/iudanet/paysync/internal/models"
)

// Store is a transactional on-device store.
//
// Every read and write happens inside a transaction. If fn returns an error
// from Update, nothing fn wrote is persisted: a crash or an error halfway
// through "write domain record + enqueue outbox entry" leaves neither.
type Store interface {
	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(tx Tx) error) error

	// Update runs fn in a read-write transaction and commits if fn returns nil.
	Update(ctx context.Context, fn func(tx Tx) error) error

	// Close releases the underlying database. Further calls return ErrStorageClosed.
	Close() error
}

// Tx gives access to every collection within one transaction.
// A Tx must not be used after the callback that received it returns.
type Tx interface {
	Transactions() TransactionCollection
	Profiles() ProfileCollection
	Outbox() OutboxCollection
	Cache() CacheCollection
	Auth() AuthCollection
	Contacts() ContactCollection
	Notifications() NotificationCollection
	Metadata() MetadataCollection
}

// TransactionCollection stores transaction records.
// List queries return records ordered by Timestamp, then ID.
type TransactionCollection interface {
	// Add inserts t; returns ErrAlreadyExists if the id is taken.
	Add(t *models.Transaction) error
	// Put inserts or replaces t.
	Put(t *models.Transaction) error
	// Get returns ErrNotFound if there is no record with id.
	Get(id string) (*models.Transaction, error)
	Delete(id string) error

	ByStatus(status models.TransactionStatus) ([]*models.Transaction, error)
	BySynced(synced bool) ([]*models.Transaction, error)
	// ByTimestampRange returns records with from <= Timestamp < to.
	ByTimestampRange(from, to time.Time) ([]*models.Transaction, error)
	Count() (int, error)
}

// ProfileCollection stores profile update records.
// List queries return records ordered by Timestamp, then ID.
type ProfileCollection interface {
	Add(p *models.ProfileUpdate) error
	Put(p *models.ProfileUpdate) error
	Get(id string) (*models.ProfileUpdate, error)
	Delete(id string) error

	BySynced(synced bool) ([]*models.ProfileUpdate, error)
	Failed() ([]*models.ProfileUpdate, error)
}

// OutboxCollection stores sync queue entries.
// List queries return entries in processing order: priority high to low,
// then NextRetry ascending, then ID.
type OutboxCollection interface {
	Add(e *models.OutboxEntry) error
	Put(e *models.OutboxEntry) error
	Get(id string) (*models.OutboxEntry, error)
	Delete(id string) error

	// Due returns entries with NextRetry <= now.
	Due(now time.Time) ([]*models.OutboxEntry, error)
	ByPriority(p models.Priority) ([]*models.OutboxEntry, error)
	// ByRecordID returns entries created for the given domain record.
	ByRecordID(recordID string) ([]*models.OutboxEntry, error)
	All() ([]*models.OutboxEntry, error)
	Count() (int, error)
}

// CacheCollection stores generic cache entries. Expired entries are
// invisible to Get and are removed by PurgeExpired.
type CacheCollection interface {
	Put(c *models.CacheEntry) error
	Get(key string, now time.Time) (*models.CacheEntry, error)
	Delete(key string) error
	// PurgeExpired deletes entries expired at now and returns how many were removed.
	PurgeExpired(now time.Time) (int, error)
}

// AuthCollection stores auth tokens. Expired tokens are invisible to Get.
type AuthCollection interface {
	Put(a *models.AuthToken) error
	Get(key string, now time.Time) (*models.AuthToken, error)
	Delete(key string) error
	// Clear removes every stored token (logout).
	Clear() error
}

// ContactCollection stores contacts ordered by Name, then ID.
type ContactCollection interface {
	Put(c *models.Contact) error
	Get(id string) (*models.Contact, error)
	Delete(id string) error
	List() ([]*models.Contact, error)
	Favorites() ([]*models.Contact, error)
}

// NotificationCollection stores notifications, newest first.
type NotificationCollection interface {
	Add(n *models.Notification) error
	Get(id string) (*models.Notification, error)
	// MarkRead sets Read on the notification; returns ErrNotFound if absent.
	MarkRead(id string) error
	List() ([]*models.Notification, error)
	Unread() ([]*models.Notification, error)
}

// MetadataCollection stores small client-wide values (device salt,
// last successful sync time).
type MetadataCollection interface {
	// Get returns ErrNotFound if key was never set.
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
}

// Well-known metadata keys
const (
	MetaDeviceSalt   = "device_salt"
	MetaLastSyncTime = "last_sync_time"
)
