package boltdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/paysync/internal/client/storage"
)

var (
	// BoltDB bucket names: данные коллекций
	bucketTransactions  = []byte("transactions")
	bucketProfiles      = []byte("profile_updates")
	bucketOutbox        = []byte("sync_queue")
	bucketCache         = []byte("cache")
	bucketAuth          = []byte("auth")
	bucketContacts      = []byte("contacts")
	bucketNotifications = []byte("notifications")
	bucketMetadata      = []byte("metadata")

	// индексные buckets: ключ = значение индекса + id, значение = id
	bucketTxByStatus      = []byte("transactions_by_status")
	bucketTxBySynced      = []byte("transactions_by_synced")
	bucketTxByTime        = []byte("transactions_by_timestamp")
	bucketProfileBySynced = []byte("profile_updates_by_synced")
	bucketProfileFailed   = []byte("profile_updates_failed")
	bucketOutboxByDue     = []byte("sync_queue_by_priority_due")
	bucketOutboxByRecord  = []byte("sync_queue_by_record")
	bucketCacheByExpiry   = []byte("cache_by_expiry")
	bucketContactsByName  = []byte("contacts_by_name")
	bucketContactsFav     = []byte("contacts_favorite")
	bucketNotifByTime     = []byte("notifications_by_timestamp")
	bucketNotifUnread     = []byte("notifications_unread")
)

var allBuckets = [][]byte{
	bucketTransactions, bucketProfiles, bucketOutbox, bucketCache,
	bucketAuth, bucketContacts, bucketNotifications, bucketMetadata,
	bucketTxByStatus, bucketTxBySynced, bucketTxByTime,
	bucketProfileBySynced, bucketProfileFailed,
	bucketOutboxByDue, bucketOutboxByRecord,
	bucketCacheByExpiry,
	bucketContactsByName, bucketContactsFav,
	bucketNotifByTime, bucketNotifUnread,
}

// Storage represents BoltDB storage implementation for client
type Storage struct {
	db *bbolt.DB
	mu sync.RWMutex
}

// Compile-time check that Storage implements storage.Store
var _ storage.Store = (*Storage)(nil)

// New creates a new BoltDB storage instance
// dbPath is the path to the BoltDB database file
func New(ctx context.Context, dbPath string) (*Storage, error) {
	// Открываем BoltDB; таймаут не дает зависнуть, если файл залочен другим процессом
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	s := &Storage{db: db}

	// Инициализируем buckets
	if err := s.initBuckets(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return s, nil
}

// Close closes the database connection. Calling Close twice is a no-op.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// View runs fn in a read-only BoltDB transaction.
func (s *Storage) View(ctx context.Context, fn func(tx storage.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.View(func(btx *bbolt.Tx) error {
		return fn(&tx{tx: btx})
	})
}

// Update runs fn in a read-write BoltDB transaction. Any error returned by
// fn rolls the whole transaction back.
func (s *Storage) Update(ctx context.Context, fn func(tx storage.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(btx *bbolt.Tx) error {
		return fn(&tx{tx: btx})
	})
}

// initBuckets создает необходимые buckets если они не существуют
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}
