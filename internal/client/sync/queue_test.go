package sync

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/paysync/internal/client/api"
	"github.com/iudanet/paysync/internal/client/storage"
	"github.com/iudanet/paysync/internal/models"
	"github.com/iudanet/paysync/internal/validation"
)

func TestQueueTransaction_CreatesRecordAndEntry(t *testing.T) {
	f := newFixture(t, false, respond(http.StatusCreated))
	ctx := context.Background()

	tx := newTransaction(250)
	require.NoError(t, f.manager.QueueTransaction(ctx, tx))

	assert.NotEmpty(t, tx.ID)
	assert.True(t, start.Equal(tx.Timestamp))
	assert.Equal(t, models.StatusPending, tx.Status)

	stored := f.transaction(t, tx.ID)
	assert.True(t, decimal.NewFromInt(250).Equal(stored.Amount))
	assert.False(t, stored.Synced)

	entries := f.outbox(t)
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, "transaction:"+tx.ID, entry.ID)
	assert.Equal(t, models.SyncTypeTransaction, entry.Type)
	assert.Equal(t, models.PriorityHigh, entry.Priority)
	assert.Equal(t, http.MethodPost, entry.Method)
	assert.Equal(t, "/api/v1/transactions", entry.Endpoint)
	assert.Equal(t, tx.ID, entry.RecordID())
	assert.Zero(t, entry.Attempts)
	assert.True(t, start.Equal(entry.NextRetry))

	// повторная постановка той же операции не создает дубликатов
	err := f.manager.QueueTransaction(ctx, tx)
	require.Error(t, err)
	assert.True(t, IsDuplicate(err))
	assert.Equal(t, 1, f.pendingCount(t))

	var total int
	require.NoError(t, f.store.View(ctx, func(stx storage.Tx) error {
		var err error
		total, err = stx.Transactions().Count()
		return err
	}))
	assert.Equal(t, 1, total)
}

func TestQueueTransaction_Invalid(t *testing.T) {
	f := newFixture(t, false, respond(http.StatusCreated))
	ctx := context.Background()

	tests := []struct {
		tx   *models.Transaction
		name string
	}{
		{name: "nil", tx: nil},
		{name: "negative amount", tx: &models.Transaction{Kind: models.KindTopUp, Amount: decimal.NewFromInt(-5), Currency: "HTG"}},
		{name: "bad currency", tx: &models.Transaction{Kind: models.KindTopUp, Amount: decimal.NewFromInt(5), Currency: "gourde"}},
		{name: "not pending", tx: &models.Transaction{Kind: models.KindTopUp, Amount: decimal.NewFromInt(5), Currency: "HTG", Status: models.StatusCompleted}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.manager.QueueTransaction(ctx, tt.tx)
			assert.ErrorIs(t, err, validation.ErrInvalid)
		})
	}
	assert.Zero(t, f.pendingCount(t))
}

func TestQueueProfileUpdate(t *testing.T) {
	f := newFixture(t, true, func(ctx context.Context, req *api.Request) (*api.Response, error) {
		if req.Header["Idempotency-Key"] == "profile:email-1" {
			return &api.Response{StatusCode: http.StatusUnprocessableEntity}, nil
		}
		return &api.Response{StatusCode: http.StatusOK}, nil
	})
	ctx := context.Background()

	err := f.manager.QueueProfileUpdate(ctx, &models.ProfileUpdate{Field: "Phone!", Value: "1"})
	assert.ErrorIs(t, err, validation.ErrInvalid)

	phone := &models.ProfileUpdate{Field: "phone", Value: "+50937001122"}
	require.NoError(t, f.manager.QueueProfileUpdate(ctx, phone))
	email := &models.ProfileUpdate{ID: "email-1", Field: "email", Value: "jean@example.ht"}
	require.NoError(t, f.manager.QueueProfileUpdate(ctx, email))

	pending, err := f.manager.PendingProfileUpdates(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	entries := f.outbox(t)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, models.PriorityMedium, e.Priority)
		assert.Equal(t, http.MethodPatch, e.Method)
	}

	ok, err := f.manager.TriggerSync(ctx, false)
	require.NoError(t, err)
	assert.False(t, ok)

	pending, err = f.manager.PendingProfileUpdates(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	failed, err := f.manager.FailedProfileUpdates(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "email-1", failed[0].ID)
	assert.True(t, failed[0].Failed)
	assert.Equal(t, 1, failed[0].SyncAttempts)

	require.NoError(t, f.store.View(ctx, func(tx storage.Tx) error {
		got, err := tx.Profiles().Get(phone.ID)
		require.NoError(t, err)
		assert.True(t, got.Synced)
		assert.False(t, got.Failed)
		assert.True(t, start.Equal(got.LastSyncAttempt))
		return nil
	}))
	assert.Empty(t, f.outbox(t))
}

func TestQueueCustomSync(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusAccepted)
	f := newFixture(t, true, func(ctx context.Context, req *api.Request) (*api.Response, error) {
		return &api.Response{StatusCode: int(status.Load())}, nil
	})
	ctx := context.Background()

	_, err := f.manager.QueueCustomSync(ctx, "/api/v1/events", http.MethodGet, nil, models.PriorityLow)
	assert.ErrorIs(t, err, validation.ErrInvalid)
	_, err = f.manager.QueueCustomSync(ctx, "/api/v1/events", http.MethodPost, []byte("{oops"), models.PriorityLow)
	assert.ErrorIs(t, err, validation.ErrInvalid)
	_, err = f.manager.QueueCustomSync(ctx, "/api/v1/events", http.MethodPost, nil, models.Priority("urgent"))
	assert.ErrorIs(t, err, validation.ErrInvalid)

	data := []byte(`{"device":"pos-7","battery":42}`)
	id, err := f.manager.QueueCustomSync(ctx, "/api/v1/devices/pos-7", http.MethodPut, data, models.PriorityMedium)
	require.NoError(t, err)

	entries := f.outbox(t)
	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].ID)
	assert.Empty(t, entries[0].RecordID())

	ok, err := f.manager.TriggerSync(ctx, false)
	require.NoError(t, err)
	assert.True(t, ok)

	calls := f.transport.DoCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodPut, calls[0].Req.Method)
	assert.Equal(t, "/api/v1/devices/pos-7", calls[0].Req.Endpoint)
	assert.Equal(t, data, calls[0].Req.Body)
	assert.Equal(t, id, calls[0].Req.Header["Idempotency-Key"])
	assert.Empty(t, f.outbox(t))

	// отклоненный запрос просто удаляется из очереди
	status.Store(http.StatusBadRequest)
	_, err = f.manager.QueueCustomSync(ctx, "/api/v1/events", http.MethodPost, nil, models.PriorityLow)
	require.NoError(t, err)

	ok, err = f.manager.TriggerSync(ctx, false)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, f.outbox(t))
}

func TestRetryFailedSync(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusBadRequest)
	f := newFixture(t, true, func(ctx context.Context, req *api.Request) (*api.Response, error) {
		return &api.Response{StatusCode: int(status.Load())}, nil
	})
	ctx := context.Background()

	tx := newTransaction(75)
	require.NoError(t, f.manager.QueueTransaction(ctx, tx))

	ok, err := f.manager.TriggerSync(ctx, false)
	require.NoError(t, err)
	assert.False(t, ok)
	require.Equal(t, models.StatusFailed, f.transaction(t, tx.ID).Status)

	status.Store(http.StatusCreated)
	ok, err = f.manager.RetryFailedSync(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	got := f.transaction(t, tx.ID)
	assert.True(t, got.Synced)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Zero(t, got.SyncAttempts)
	assert.Empty(t, got.LastError)

	calls := f.transport.DoCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, calls[0].Req.Header["Idempotency-Key"], calls[1].Req.Header["Idempotency-Key"])
	assert.Empty(t, f.outbox(t))

	failed, err := f.manager.FailedTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, failed)
}

func TestRetryFailedSync_RequeuesAtHighPriority(t *testing.T) {
	f := newFixture(t, false, respond(http.StatusBadRequest))
	ctx := context.Background()

	tx := newTransaction(75)
	require.NoError(t, f.manager.QueueTransaction(ctx, tx))
	_, err := f.manager.TriggerSync(ctx, true)
	require.NoError(t, err)

	// пока проход идет, повторная постановка не запускает второй
	f.manager.syncing.Store(true)
	ok, err := f.manager.RetryFailedSync(ctx)
	assert.ErrorIs(t, err, ErrSyncInProgress)
	assert.False(t, ok)
	f.manager.syncing.Store(false)

	got := f.transaction(t, tx.ID)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Zero(t, got.SyncAttempts)

	entries := f.outbox(t)
	require.Len(t, entries, 1)
	assert.Equal(t, models.PriorityHigh, entries[0].Priority)
	assert.Equal(t, tx.ID, entries[0].RecordID())

	// повторный вызов не создает второй записи для той же транзакции
	require.NoError(t, f.store.Update(ctx, func(stx storage.Tx) error {
		got.Status = models.StatusFailed
		return stx.Transactions().Put(got)
	}))
	f.manager.syncing.Store(true)
	_, _ = f.manager.RetryFailedSync(ctx)
	f.manager.syncing.Store(false)
	assert.Len(t, f.outbox(t), 1)
}
