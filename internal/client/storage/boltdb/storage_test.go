package boltdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/iudanet/paysync/internal/client/storage"
	"github.com/iudanet/paysync/internal/client/storage/storagetest"
	"github.com/iudanet/paysync/internal/models"
)

// createTestStorage создает временное BoltDB хранилище и инициализирует buckets
func createTestStorage(t *testing.T) (*Storage, func()) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "paysync_test.db")

	store, err := New(context.Background(), dbPath)
	require.NoError(t, err)
	require.NotNil(t, store)

	cleanup := func() {
		require.NoError(t, store.Close())
	}
	return store, cleanup
}

func TestStoreContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		store, _ := createTestStorage(t)
		return store
	})
}

func TestNew_Success(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "testdb.db")

	store, err := New(context.Background(), dbPath)
	require.NoError(t, err)
	require.NotNil(t, store)
	defer func() {
		require.NoError(t, store.Close())
	}()

	// Проверяем что файл БД действительно создан
	info, err := os.Stat(dbPath)
	require.NoError(t, err)
	assert.False(t, info.IsDir())

	// Проверяем, что все бакеты существуют
	err = store.db.View(func(tx *bbolt.Tx) error {
		for _, b := range allBuckets {
			if tx.Bucket(b) == nil {
				return os.ErrNotExist
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestNew_InvalidPath(t *testing.T) {
	// Путь с нулевым символом недопустим
	store, err := New(context.Background(), string([]byte{0}))
	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestClose(t *testing.T) {
	store, _ := createTestStorage(t)

	require.NoError(t, store.Close())
	// После закрытия поле db должно стать nil
	assert.Nil(t, store.db)
	// Второй вызов Close ничего не делает
	assert.NoError(t, store.Close())
}

func TestInitBuckets_CreatesBuckets(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "testdb.db")

	// Открываем БД вручную без создания бакетов
	db, err := bbolt.Open(dbPath, 0600, nil)
	require.NoError(t, err)
	defer db.Close()

	store := &Storage{db: db}
	require.NoError(t, store.initBuckets())
	// Повторная инициализация не ломает существующие бакеты
	require.NoError(t, store.initBuckets())

	err = db.View(func(tx *bbolt.Tx) error {
		for _, b := range allBuckets {
			if tx.Bucket(b) == nil {
				return os.ErrNotExist
			}
		}
		return nil
	})
	assert.NoError(t, err)
}

func TestReopen_KeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	store, err := New(ctx, dbPath)
	require.NoError(t, err)
	err = store.Update(ctx, func(tx storage.Tx) error {
		return tx.Outbox().Add(&models.OutboxEntry{
			ID:        "custom-1",
			Type:      models.SyncTypeCustom,
			Payload:   &models.CustomPayload{Data: []byte(`{}`)},
			Priority:  models.PriorityLow,
			Timestamp: ts,
			NextRetry: ts,
		})
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Запись outbox переживает перезапуск процесса
	store, err = New(ctx, dbPath)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, store.Close())
	}()

	err = store.View(ctx, func(tx storage.Tx) error {
		due, err := tx.Outbox().Due(ts)
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, "custom-1", due[0].ID)
		return nil
	})
	require.NoError(t, err)
}

func TestOutboxDue_SubMillisecond(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	next := time.Date(2026, 3, 1, 0, 0, 0, 500_000, time.UTC)
	err := store.Update(ctx, func(tx storage.Tx) error {
		return tx.Outbox().Add(&models.OutboxEntry{
			ID:        "custom-1",
			Type:      models.SyncTypeCustom,
			Payload:   &models.CustomPayload{},
			Priority:  models.PriorityHigh,
			NextRetry: next,
		})
	})
	require.NoError(t, err)

	err = store.View(ctx, func(tx storage.Tx) error {
		// индекс совпадает по миллисекундам, но запись еще не готова
		due, err := tx.Outbox().Due(next.Add(-time.Microsecond))
		require.NoError(t, err)
		assert.Empty(t, due)

		due, err = tx.Outbox().Due(next)
		require.NoError(t, err)
		assert.Len(t, due, 1)
		return nil
	})
	require.NoError(t, err)
}

func TestIndexKeys(t *testing.T) {
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 0}, u64(-5))
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 1, 0}, u64(256))
	assert.Equal(t, []byte("ab\x00"), term("ab"))
	assert.Equal(t, []byte{1, 'x'}, key(flag(true), []byte("x")))
	assert.Less(t, string(key(term("ab"), []byte("z"))), string(key(term("abc"), []byte("a"))))
}
