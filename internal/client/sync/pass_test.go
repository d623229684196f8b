package sync

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/paysync/internal/client/api"
	"github.com/iudanet/paysync/internal/client/storage"
	"github.com/iudanet/paysync/internal/models"
	"github.com/iudanet/paysync/internal/retry"
)

func TestTriggerSync_ServerErrorsExhaustAttempts(t *testing.T) {
	f := newFixture(t, true, respond(http.StatusInternalServerError))
	ctx := context.Background()

	tx := newTransaction(100)
	require.NoError(t, f.manager.QueueTransaction(ctx, tx))

	ok, err := f.manager.TriggerSync(ctx, false)
	require.NoError(t, err)
	assert.False(t, ok)

	// после первой неудачи запись отложена на BaseDelay
	entries := f.outbox(t)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Attempts)
	assert.True(t, start.Add(time.Second).Equal(entries[0].NextRetry))
	assert.Contains(t, entries[0].LastError, "SERVER_ERROR")
	assert.Equal(t, 1, f.transaction(t, tx.ID).SyncAttempts)

	for attempt := 2; attempt <= 5; attempt++ {
		f.clock.Advance(time.Minute)
		ok, err := f.manager.TriggerSync(ctx, false)
		require.NoError(t, err)
		assert.False(t, ok)
	}

	assert.Empty(t, f.outbox(t))
	assert.Len(t, f.transport.DoCalls(), 5)

	got := f.transaction(t, tx.ID)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, 5, got.SyncAttempts)
	assert.False(t, got.Synced)
	assert.NotEmpty(t, got.LastError)

	failed, err := f.manager.FailedTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, tx.ID, failed[0].ID)

	// пользователь получает уведомление о неотправленном платеже
	require.NoError(t, f.store.View(ctx, func(stx storage.Tx) error {
		unread, err := stx.Notifications().Unread()
		require.NoError(t, err)
		require.Len(t, unread, 1)
		assert.Equal(t, models.SeverityError, unread[0].Severity)
		assert.Contains(t, unread[0].Message, "100 HTG")
		return nil
	}))

	last, err := f.manager.LastSyncTime(ctx)
	require.NoError(t, err)
	assert.True(t, start.Add(4*time.Minute).Equal(last))
}

func TestTriggerSync_BackoffGrows(t *testing.T) {
	f := newFixture(t, true, respond(http.StatusBadGateway))
	ctx := context.Background()

	require.NoError(t, f.manager.QueueTransaction(ctx, newTransaction(10)))

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}
	for _, delay := range want {
		now := f.clock.Now()
		_, err := f.manager.TriggerSync(ctx, false)
		require.NoError(t, err)

		entries := f.outbox(t)
		require.Len(t, entries, 1)
		assert.True(t, now.Add(delay).Equal(entries[0].NextRetry), "want next retry after %s", delay)

		// до срока запись не отправляется
		f.clock.Advance(delay - time.Millisecond)
		_, err = f.manager.TriggerSync(ctx, false)
		require.NoError(t, err)
		f.clock.Advance(time.Millisecond)
	}
	assert.Len(t, f.transport.DoCalls(), len(want))
}

func TestTriggerSync_ValidationErrorFailsImmediately(t *testing.T) {
	f := newFixture(t, true, func(ctx context.Context, req *api.Request) (*api.Response, error) {
		return &api.Response{
			StatusCode: http.StatusUnprocessableEntity,
			Body:       []byte(`{"error":"invalid","message":"unknown counterpart"}`),
		}, nil
	})
	ctx := context.Background()

	tx := newTransaction(100)
	require.NoError(t, f.manager.QueueTransaction(ctx, tx))

	ok, err := f.manager.TriggerSync(ctx, false)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Empty(t, f.outbox(t))
	got := f.transaction(t, tx.ID)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, 1, got.SyncAttempts)
	assert.Contains(t, got.LastError, "unknown counterpart")
}

func TestTriggerSync_AuthenticationErrorFailsImmediately(t *testing.T) {
	f := newFixture(t, true, respond(http.StatusUnauthorized))
	ctx := context.Background()

	tx := newTransaction(100)
	require.NoError(t, f.manager.QueueTransaction(ctx, tx))

	_, err := f.manager.TriggerSync(ctx, false)
	require.NoError(t, err)

	assert.Empty(t, f.outbox(t))
	assert.Equal(t, models.StatusFailed, f.transaction(t, tx.ID).Status)
	assert.Len(t, f.transport.DoCalls(), 1)
}

func TestTriggerSync_NetworkErrorDefers(t *testing.T) {
	f := newFixture(t, true, func(ctx context.Context, req *api.Request) (*api.Response, error) {
		return nil, &retry.Error{Category: retry.CategoryNetwork, Err: errors.New("connection refused")}
	})
	ctx := context.Background()

	tx := newTransaction(100)
	require.NoError(t, f.manager.QueueTransaction(ctx, tx))

	ok, err := f.manager.TriggerSync(ctx, false)
	require.NoError(t, err)
	assert.False(t, ok)

	entries := f.outbox(t)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Attempts)
	assert.Contains(t, entries[0].LastError, "connection refused")

	pending, err := f.manager.PendingTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].SyncAttempts)
	assert.Equal(t, models.StatusPending, pending[0].Status)

	failed, err := f.manager.FailedTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, failed)
}

func TestTriggerSync_RetryAfterIsFloor(t *testing.T) {
	calls := 0
	f := newFixture(t, true, func(ctx context.Context, req *api.Request) (*api.Response, error) {
		calls++
		if calls == 1 {
			return &api.Response{StatusCode: http.StatusTooManyRequests, RetryAfter: 90 * time.Second}, nil
		}
		return &api.Response{StatusCode: http.StatusCreated}, nil
	})
	ctx := context.Background()

	tx := newTransaction(100)
	require.NoError(t, f.manager.QueueTransaction(ctx, tx))

	ok, err := f.manager.TriggerSync(ctx, false)
	require.NoError(t, err)
	assert.False(t, ok)

	entries := f.outbox(t)
	require.Len(t, entries, 1)
	assert.True(t, start.Add(90*time.Second).Equal(entries[0].NextRetry))

	f.clock.Advance(89 * time.Second)
	ok, err = f.manager.TriggerSync(ctx, false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, calls)

	f.clock.Advance(time.Second)
	ok, err = f.manager.TriggerSync(ctx, false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, calls)
	assert.True(t, f.transaction(t, tx.ID).Synced)
}

func TestTriggerSync_ProcessingOrder(t *testing.T) {
	f := newFixture(t, false, respond(http.StatusOK))
	ctx := context.Background()

	customID, err := f.manager.QueueCustomSync(ctx, "/api/v1/events", http.MethodPost, []byte(`{"a":1}`), models.PriorityLow)
	require.NoError(t, err)

	profile := &models.ProfileUpdate{Field: "phone", Value: "+50937001122"}
	require.NoError(t, f.manager.QueueProfileUpdate(ctx, profile))

	early := newTransaction(1)
	require.NoError(t, f.manager.QueueTransaction(ctx, early))

	f.clock.Advance(time.Second)
	late := newTransaction(2)
	require.NoError(t, f.manager.QueueTransaction(ctx, late))

	ok, err := f.manager.TriggerSync(ctx, true)
	require.NoError(t, err)
	assert.True(t, ok)

	var keys []string
	for _, c := range f.transport.DoCalls() {
		keys = append(keys, c.Req.Header["Idempotency-Key"])
	}
	assert.Equal(t, []string{
		"transaction:" + early.ID,
		"transaction:" + late.ID,
		"profile:" + profile.ID,
		customID,
	}, keys)
}

func TestTriggerSync_Progress(t *testing.T) {
	calls := 0
	f := newFixture(t, true, func(ctx context.Context, req *api.Request) (*api.Response, error) {
		calls++
		if calls == 1 {
			return &api.Response{StatusCode: http.StatusCreated}, nil
		}
		return &api.Response{StatusCode: http.StatusInternalServerError}, nil
	})
	ctx := context.Background()

	require.NoError(t, f.manager.QueueTransaction(ctx, newTransaction(1)))
	require.NoError(t, f.manager.QueueTransaction(ctx, newTransaction(2)))

	// паникующий наблюдатель не мешает остальным
	f.manager.SubscribeToProgress(func(Progress) { panic("observer bug") })

	var snapshots []Progress
	unsubscribe := f.manager.SubscribeToProgress(func(p Progress) {
		snapshots = append(snapshots, p)
	})

	ok, err := f.manager.TriggerSync(ctx, false)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, []Progress{
		{Total: 2},
		{Total: 2, Completed: 1},
		{Total: 2, Completed: 1, Deferred: 1},
	}, snapshots)

	unsubscribe()
	unsubscribe()
	f.clock.Advance(time.Minute)
	_, err = f.manager.TriggerSync(ctx, false)
	require.NoError(t, err)
	assert.Len(t, snapshots, 3)
}

func TestTriggerSync_AlreadyRunning(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	f := newFixture(t, true, func(ctx context.Context, req *api.Request) (*api.Response, error) {
		entered <- struct{}{}
		<-release
		return &api.Response{StatusCode: http.StatusCreated}, nil
	})
	ctx := context.Background()

	require.NoError(t, f.manager.QueueTransaction(ctx, newTransaction(100)))

	result := make(chan bool, 1)
	go func() {
		ok, err := f.manager.TriggerSync(ctx, true)
		assert.NoError(t, err)
		result <- ok
	}()

	<-entered
	assert.True(t, f.manager.Syncing())

	ok, err := f.manager.TriggerSync(ctx, true)
	assert.ErrorIs(t, err, ErrSyncInProgress)
	assert.False(t, ok)

	close(release)
	assert.True(t, <-result)
	assert.False(t, f.manager.Syncing())
}

func TestTriggerSync_AbortLeavesEntryUntouched(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newFixture(t, true, func(reqCtx context.Context, req *api.Request) (*api.Response, error) {
		cancel()
		return nil, &retry.Error{Category: retry.Classify(reqCtx.Err()), Err: reqCtx.Err()}
	})

	require.NoError(t, f.manager.QueueTransaction(context.Background(), newTransaction(100)))

	ok, err := f.manager.TriggerSync(ctx, true)
	assert.False(t, ok)
	assert.ErrorIs(t, err, retry.ErrAborted)
	assert.Equal(t, retry.CategoryAborted, retry.Classify(err))

	entries := f.outbox(t)
	require.Len(t, entries, 1)
	assert.Zero(t, entries[0].Attempts)
	assert.True(t, start.Equal(entries[0].NextRetry))
}

func TestTriggerSync_PurgesExpiredCache(t *testing.T) {
	f := newFixture(t, true, respond(http.StatusOK))
	ctx := context.Background()

	require.NoError(t, f.store.Update(ctx, func(tx storage.Tx) error {
		if err := tx.Cache().Put(&models.CacheEntry{
			Key:       "expired",
			Data:      []byte("old"),
			ExpiresAt: start.Add(-time.Minute),
		}); err != nil {
			return err
		}
		return tx.Cache().Put(&models.CacheEntry{
			Key:       "fresh",
			Data:      []byte("new"),
			ExpiresAt: start.Add(time.Hour),
		})
	}))

	ok, err := f.manager.TriggerSync(ctx, false)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, f.store.View(ctx, func(tx storage.Tx) error {
		// запрос с более ранним временем нашел бы запись, если бы она осталась
		_, err := tx.Cache().Get("expired", start.Add(-time.Hour))
		assert.ErrorIs(t, err, storage.ErrNotFound)

		fresh, err := tx.Cache().Get("fresh", start)
		require.NoError(t, err)
		assert.Equal(t, []byte("new"), fresh.Data)
		return nil
	}))
}

func TestTriggerSync_StoreFailureAbortsPass(t *testing.T) {
	f := newFixture(t, true, respond(http.StatusOK))
	ctx := context.Background()

	require.NoError(t, f.manager.QueueTransaction(ctx, newTransaction(100)))
	require.NoError(t, f.store.Close())

	ok, err := f.manager.TriggerSync(ctx, false)
	assert.False(t, ok)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
	assert.Empty(t, f.transport.DoCalls())
	assert.False(t, f.manager.Syncing())
}
