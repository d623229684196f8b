// Package storagetest is the behavioural contract every storage.Store
// implementation must satisfy. Backends call Run from their own tests.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/paysync/internal/client/storage"
	"github.com/iudanet/paysync/internal/models"
)

// Opener returns a fresh, empty store. The store is closed by the suite.
type Opener func(t *testing.T) storage.Store

// base время, выровненное по миллисекундам: хранилища сохраняют время с точностью до мс
var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// Run executes the whole contract suite against stores produced by open.
func Run(t *testing.T, open Opener) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Store)
	}{
		{"TransactionsCRUD", testTransactionsCRUD},
		{"TransactionQueries", testTransactionQueries},
		{"Profiles", testProfiles},
		{"OutboxRoundTrip", testOutboxRoundTrip},
		{"OutboxDueOrder", testOutboxDueOrder},
		{"OutboxByRecordID", testOutboxByRecordID},
		{"Cache", testCache},
		{"Auth", testAuth},
		{"Contacts", testContacts},
		{"Notifications", testNotifications},
		{"Metadata", testMetadata},
		{"UpdateRollback", testUpdateRollback},
		{"ViewIsReadOnly", testViewIsReadOnly},
		{"Closed", testClosed},
		{"CanceledContext", testCanceledContext},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := open(t)
			defer func() {
				_ = s.Close()
			}()
			tt.fn(t, s)
		})
	}
}

func update(t *testing.T, s storage.Store, fn func(tx storage.Tx) error) {
	t.Helper()
	require.NoError(t, s.Update(context.Background(), fn))
}

func view(t *testing.T, s storage.Store, fn func(tx storage.Tx) error) {
	t.Helper()
	require.NoError(t, s.View(context.Background(), fn))
}

func newTransaction(id string, ts time.Time) *models.Transaction {
	return &models.Transaction{
		ID:          id,
		Kind:        models.KindSend,
		Amount:      decimal.RequireFromString("150.25"),
		Currency:    "HTG",
		Counterpart: "+50912345678",
		Description: "lunch",
		Status:      models.StatusPending,
		Timestamp:   ts,
	}
}

func transactionIDs(list []*models.Transaction) []string {
	ids := make([]string, 0, len(list))
	for _, tr := range list {
		ids = append(ids, tr.ID)
	}
	return ids
}

func entryIDs(list []*models.OutboxEntry) []string {
	ids := make([]string, 0, len(list))
	for _, e := range list {
		ids = append(ids, e.ID)
	}
	return ids
}

func testTransactionsCRUD(t *testing.T, s storage.Store) {
	tr := newTransaction("tx-1", base)

	update(t, s, func(tx storage.Tx) error {
		return tx.Transactions().Add(tr)
	})

	// повторный Add с тем же id запрещен
	err := s.Update(context.Background(), func(tx storage.Tx) error {
		return tx.Transactions().Add(tr)
	})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	view(t, s, func(tx storage.Tx) error {
		got, err := tx.Transactions().Get("tx-1")
		require.NoError(t, err)
		assert.Equal(t, tr.ID, got.ID)
		assert.Equal(t, tr.Kind, got.Kind)
		assert.True(t, tr.Amount.Equal(got.Amount))
		assert.Equal(t, tr.Currency, got.Currency)
		assert.Equal(t, tr.Counterpart, got.Counterpart)
		assert.True(t, tr.Timestamp.Equal(got.Timestamp))
		assert.True(t, got.LastSyncAttempt.IsZero())
		return nil
	})

	tr.Synced = true
	tr.SyncAttempts = 2
	tr.LastSyncAttempt = base.Add(time.Minute)
	update(t, s, func(tx storage.Tx) error {
		return tx.Transactions().Put(tr)
	})

	view(t, s, func(tx storage.Tx) error {
		got, err := tx.Transactions().Get("tx-1")
		require.NoError(t, err)
		assert.True(t, got.Synced)
		assert.Equal(t, 2, got.SyncAttempts)
		assert.True(t, tr.LastSyncAttempt.Equal(got.LastSyncAttempt))

		n, err := tx.Transactions().Count()
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, err = tx.Transactions().Get("missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		return nil
	})

	update(t, s, func(tx storage.Tx) error {
		return tx.Transactions().Delete("tx-1")
	})
	err = s.Update(context.Background(), func(tx storage.Tx) error {
		return tx.Transactions().Delete("tx-1")
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testTransactionQueries(t *testing.T, s storage.Store) {
	t1 := newTransaction("b", base)
	t2 := newTransaction("a", base) // тот же timestamp, порядок по id
	t3 := newTransaction("c", base.Add(time.Hour))
	t3.Status = models.StatusFailed
	t4 := newTransaction("d", base.Add(2*time.Hour))
	t4.Synced = true
	t4.Status = models.StatusCompleted

	update(t, s, func(tx storage.Tx) error {
		for _, tr := range []*models.Transaction{t3, t1, t4, t2} {
			if err := tx.Transactions().Add(tr); err != nil {
				return err
			}
		}
		return nil
	})

	view(t, s, func(tx storage.Tx) error {
		col := tx.Transactions()

		pending, err := col.ByStatus(models.StatusPending)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, transactionIDs(pending))

		failed, err := col.ByStatus(models.StatusFailed)
		require.NoError(t, err)
		assert.Equal(t, []string{"c"}, transactionIDs(failed))

		unsynced, err := col.BySynced(false)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, transactionIDs(unsynced))

		synced, err := col.BySynced(true)
		require.NoError(t, err)
		assert.Equal(t, []string{"d"}, transactionIDs(synced))

		rng, err := col.ByTimestampRange(base, base.Add(2*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, transactionIDs(rng), "upper bound is exclusive")

		empty, err := col.ByStatus(models.StatusCancelled)
		require.NoError(t, err)
		assert.Empty(t, empty)
		return nil
	})

	// смена статуса переносит запись между индексами
	t3.Status = models.StatusPending
	update(t, s, func(tx storage.Tx) error {
		return tx.Transactions().Put(t3)
	})
	view(t, s, func(tx storage.Tx) error {
		failed, err := tx.Transactions().ByStatus(models.StatusFailed)
		require.NoError(t, err)
		assert.Empty(t, failed)

		pending, err := tx.Transactions().ByStatus(models.StatusPending)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, transactionIDs(pending))
		return nil
	})
}

func testProfiles(t *testing.T, s storage.Store) {
	p1 := &models.ProfileUpdate{ID: "p-1", Field: "phone", Value: "+50911111111", Timestamp: base}
	p2 := &models.ProfileUpdate{ID: "p-2", Field: "email", Value: "a@b.ht", Timestamp: base.Add(time.Second)}

	update(t, s, func(tx storage.Tx) error {
		if err := tx.Profiles().Add(p1); err != nil {
			return err
		}
		return tx.Profiles().Add(p2)
	})

	p2.Failed = true
	p2.SyncAttempts = 5
	p2.LastError = "server error (500)"
	p1.Synced = true
	update(t, s, func(tx storage.Tx) error {
		if err := tx.Profiles().Put(p1); err != nil {
			return err
		}
		return tx.Profiles().Put(p2)
	})

	view(t, s, func(tx storage.Tx) error {
		got, err := tx.Profiles().Get("p-2")
		require.NoError(t, err)
		assert.Equal(t, "email", got.Field)
		assert.Equal(t, 5, got.SyncAttempts)
		assert.Equal(t, "server error (500)", got.LastError)

		failed, err := tx.Profiles().Failed()
		require.NoError(t, err)
		require.Len(t, failed, 1)
		assert.Equal(t, "p-2", failed[0].ID)

		unsynced, err := tx.Profiles().BySynced(false)
		require.NoError(t, err)
		require.Len(t, unsynced, 1)
		assert.Equal(t, "p-2", unsynced[0].ID)

		synced, err := tx.Profiles().BySynced(true)
		require.NoError(t, err)
		require.Len(t, synced, 1)
		assert.Equal(t, "p-1", synced[0].ID)
		return nil
	})

	update(t, s, func(tx storage.Tx) error {
		return tx.Profiles().Delete("p-2")
	})
	view(t, s, func(tx storage.Tx) error {
		failed, err := tx.Profiles().Failed()
		require.NoError(t, err)
		assert.Empty(t, failed)
		return nil
	})
}

func testOutboxRoundTrip(t *testing.T, s storage.Store) {
	tr := newTransaction("tx-1", base)
	entry := &models.OutboxEntry{
		ID:        models.OutboxID(models.SyncTypeTransaction, tr.ID),
		Type:      models.SyncTypeTransaction,
		Payload:   tr.Payload(),
		Endpoint:  "/api/v1/transactions",
		Method:    "POST",
		Headers:   map[string]string{"X-Device": "d-1"},
		Priority:  models.PriorityHigh,
		Timestamp: base,
		NextRetry: base,
	}
	custom := &models.OutboxEntry{
		ID:        "custom-1",
		Type:      models.SyncTypeCustom,
		Payload:   &models.CustomPayload{Data: []byte(`{"x":1}`)},
		Endpoint:  "/api/v1/feedback",
		Method:    "POST",
		Priority:  models.PriorityLow,
		Timestamp: base,
		NextRetry: base,
	}

	update(t, s, func(tx storage.Tx) error {
		if err := tx.Outbox().Add(entry); err != nil {
			return err
		}
		return tx.Outbox().Add(custom)
	})

	view(t, s, func(tx storage.Tx) error {
		got, err := tx.Outbox().Get(entry.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SyncTypeTransaction, got.Type)
		assert.Equal(t, "POST", got.Method)
		assert.Equal(t, "/api/v1/transactions", got.Endpoint)
		assert.Equal(t, "d-1", got.Headers["X-Device"])
		assert.Equal(t, models.PriorityHigh, got.Priority)

		p, ok := got.Payload.(*models.TransactionPayload)
		require.True(t, ok, "payload type survives storage")
		assert.Equal(t, "tx-1", p.TransactionID)
		assert.True(t, tr.Amount.Equal(p.Amount))

		gotCustom, err := tx.Outbox().Get("custom-1")
		require.NoError(t, err)
		cp, ok := gotCustom.Payload.(*models.CustomPayload)
		require.True(t, ok)
		assert.JSONEq(t, `{"x":1}`, string(cp.Data))

		n, err := tx.Outbox().Count()
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		return nil
	})

	entry.Attempts = 3
	entry.LastError = "timeout"
	entry.NextRetry = base.Add(4 * time.Second)
	update(t, s, func(tx storage.Tx) error {
		return tx.Outbox().Put(entry)
	})
	view(t, s, func(tx storage.Tx) error {
		got, err := tx.Outbox().Get(entry.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, got.Attempts)
		assert.Equal(t, "timeout", got.LastError)
		assert.True(t, entry.NextRetry.Equal(got.NextRetry))
		return nil
	})

	err := s.Update(context.Background(), func(tx storage.Tx) error {
		return tx.Outbox().Add(&models.OutboxEntry{ID: "no-payload", Type: models.SyncTypeCustom})
	})
	assert.ErrorIs(t, err, models.ErrInvalidPayload)
}

func testOutboxDueOrder(t *testing.T, s storage.Store) {
	mk := func(id string, p models.Priority, next time.Time) *models.OutboxEntry {
		return &models.OutboxEntry{
			ID:        id,
			Type:      models.SyncTypeCustom,
			Payload:   &models.CustomPayload{Data: []byte(`{}`)},
			Endpoint:  "/api/v1/custom",
			Method:    "POST",
			Priority:  p,
			Timestamp: base,
			NextRetry: next,
		}
	}

	entries := []*models.OutboxEntry{
		mk("low-1", models.PriorityLow, base.Add(-time.Minute)),
		mk("med-2", models.PriorityMedium, base),
		mk("high-late", models.PriorityHigh, base.Add(time.Minute)),
		mk("med-1", models.PriorityMedium, base.Add(-time.Second)),
		mk("high-1", models.PriorityHigh, base.Add(-time.Hour)),
	}
	update(t, s, func(tx storage.Tx) error {
		for _, e := range entries {
			if err := tx.Outbox().Add(e); err != nil {
				return err
			}
		}
		return nil
	})

	view(t, s, func(tx storage.Tx) error {
		due, err := tx.Outbox().Due(base)
		require.NoError(t, err)
		assert.Equal(t, []string{"high-1", "med-1", "med-2", "low-1"}, entryIDs(due))

		all, err := tx.Outbox().All()
		require.NoError(t, err)
		assert.Equal(t, []string{"high-1", "high-late", "med-1", "med-2", "low-1"}, entryIDs(all))

		medium, err := tx.Outbox().ByPriority(models.PriorityMedium)
		require.NoError(t, err)
		assert.Equal(t, []string{"med-1", "med-2"}, entryIDs(medium))

		later, err := tx.Outbox().Due(base.Add(time.Minute))
		require.NoError(t, err)
		assert.Len(t, later, 5)
		return nil
	})
}

func testOutboxByRecordID(t *testing.T, s storage.Store) {
	tr := newTransaction("tx-7", base)
	upd := &models.ProfileUpdate{ID: "p-7", Field: "name", Value: "Jean", Timestamp: base}

	update(t, s, func(tx storage.Tx) error {
		if err := tx.Outbox().Add(&models.OutboxEntry{
			ID: models.OutboxID(models.SyncTypeTransaction, tr.ID), Type: models.SyncTypeTransaction,
			Payload: tr.Payload(), Priority: models.PriorityHigh, Timestamp: base, NextRetry: base,
		}); err != nil {
			return err
		}
		return tx.Outbox().Add(&models.OutboxEntry{
			ID: models.OutboxID(models.SyncTypeProfile, upd.ID), Type: models.SyncTypeProfile,
			Payload: upd.Payload(), Priority: models.PriorityMedium, Timestamp: base, NextRetry: base,
		})
	})

	view(t, s, func(tx storage.Tx) error {
		got, err := tx.Outbox().ByRecordID("tx-7")
		require.NoError(t, err)
		assert.Equal(t, []string{"transaction:tx-7"}, entryIDs(got))

		got, err = tx.Outbox().ByRecordID("p-7")
		require.NoError(t, err)
		assert.Equal(t, []string{"profile:p-7"}, entryIDs(got))

		got, err = tx.Outbox().ByRecordID("tx")
		require.NoError(t, err)
		assert.Empty(t, got, "record id match is exact")
		return nil
	})

	update(t, s, func(tx storage.Tx) error {
		return tx.Outbox().Delete("transaction:tx-7")
	})
	view(t, s, func(tx storage.Tx) error {
		got, err := tx.Outbox().ByRecordID("tx-7")
		require.NoError(t, err)
		assert.Empty(t, got)
		return nil
	})
}

func testCache(t *testing.T, s storage.Store) {
	update(t, s, func(tx storage.Tx) error {
		for _, c := range []*models.CacheEntry{
			{Key: "balance", Data: []byte(`{"amount":"10"}`), ETag: `"v1"`, Timestamp: base, ExpiresAt: base.Add(time.Minute)},
			{Key: "rates", Data: []byte(`[]`), Timestamp: base, ExpiresAt: base.Add(-time.Second)},
			{Key: "forever", Data: []byte(`1`), Timestamp: base},
		} {
			if err := tx.Cache().Put(c); err != nil {
				return err
			}
		}
		return nil
	})

	view(t, s, func(tx storage.Tx) error {
		got, err := tx.Cache().Get("balance", base)
		require.NoError(t, err)
		assert.Equal(t, `"v1"`, got.ETag)
		assert.Equal(t, []byte(`{"amount":"10"}`), got.Data)

		_, err = tx.Cache().Get("rates", base)
		assert.ErrorIs(t, err, storage.ErrNotFound, "expired entry is invisible")

		_, err = tx.Cache().Get("forever", base.Add(24*365*time.Hour))
		assert.NoError(t, err)
		return nil
	})

	var purged int
	update(t, s, func(tx storage.Tx) error {
		var err error
		purged, err = tx.Cache().PurgeExpired(base.Add(time.Minute))
		return err
	})
	assert.Equal(t, 2, purged)

	view(t, s, func(tx storage.Tx) error {
		_, err := tx.Cache().Get("forever", base)
		assert.NoError(t, err)
		_, err = tx.Cache().Get("balance", base)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		return nil
	})

	update(t, s, func(tx storage.Tx) error {
		return tx.Cache().Delete("forever")
	})
}

func testAuth(t *testing.T, s storage.Store) {
	update(t, s, func(tx storage.Tx) error {
		if err := tx.Auth().Put(&models.AuthToken{
			Key: "session", Token: "sealed-token", RefreshToken: "sealed-refresh",
			Timestamp: base, ExpiresAt: base.Add(time.Hour),
		}); err != nil {
			return err
		}
		return tx.Auth().Put(&models.AuthToken{Key: "old", Token: "x", Timestamp: base, ExpiresAt: base})
	})

	view(t, s, func(tx storage.Tx) error {
		got, err := tx.Auth().Get("session", base)
		require.NoError(t, err)
		assert.Equal(t, "sealed-token", got.Token)
		assert.Equal(t, "sealed-refresh", got.RefreshToken)

		_, err = tx.Auth().Get("session", base.Add(time.Hour))
		assert.ErrorIs(t, err, storage.ErrNotFound)

		_, err = tx.Auth().Get("old", base)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		return nil
	})

	update(t, s, func(tx storage.Tx) error {
		return tx.Auth().Clear()
	})
	view(t, s, func(tx storage.Tx) error {
		_, err := tx.Auth().Get("session", base)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		return nil
	})
}

func testContacts(t *testing.T, s storage.Store) {
	update(t, s, func(tx storage.Tx) error {
		for _, c := range []*models.Contact{
			{ID: "3", Name: "Marie", Phone: "+50933333333", Favorite: true},
			{ID: "1", Name: "Jean", Phone: "+50911111111"},
			{ID: "2", Name: "Anne", Email: "anne@example.ht", Favorite: true, LastTransaction: base},
		} {
			if err := tx.Contacts().Put(c); err != nil {
				return err
			}
		}
		return nil
	})

	names := func(list []*models.Contact) []string {
		out := make([]string, 0, len(list))
		for _, c := range list {
			out = append(out, c.Name)
		}
		return out
	}

	view(t, s, func(tx storage.Tx) error {
		all, err := tx.Contacts().List()
		require.NoError(t, err)
		assert.Equal(t, []string{"Anne", "Jean", "Marie"}, names(all))

		fav, err := tx.Contacts().Favorites()
		require.NoError(t, err)
		assert.Equal(t, []string{"Anne", "Marie"}, names(fav))

		got, err := tx.Contacts().Get("2")
		require.NoError(t, err)
		assert.True(t, base.Equal(got.LastTransaction))
		return nil
	})

	// переименование перестраивает индекс по имени
	update(t, s, func(tx storage.Tx) error {
		return tx.Contacts().Put(&models.Contact{ID: "1", Name: "Zoe"})
	})
	view(t, s, func(tx storage.Tx) error {
		all, err := tx.Contacts().List()
		require.NoError(t, err)
		assert.Equal(t, []string{"Anne", "Marie", "Zoe"}, names(all))
		return nil
	})

	update(t, s, func(tx storage.Tx) error {
		return tx.Contacts().Delete("3")
	})
	view(t, s, func(tx storage.Tx) error {
		fav, err := tx.Contacts().Favorites()
		require.NoError(t, err)
		assert.Equal(t, []string{"Anne"}, names(fav))
		return nil
	})
}

func testNotifications(t *testing.T, s storage.Store) {
	update(t, s, func(tx storage.Tx) error {
		for i, id := range []string{"n-1", "n-2", "n-3"} {
			if err := tx.Notifications().Add(&models.Notification{
				ID:        id,
				Title:     "Payment",
				Message:   "sent",
				Severity:  models.SeveritySuccess,
				Timestamp: base.Add(time.Duration(i) * time.Minute),
			}); err != nil {
				return err
			}
		}
		return nil
	})

	update(t, s, func(tx storage.Tx) error {
		return tx.Notifications().MarkRead("n-2")
	})

	ids := func(list []*models.Notification) []string {
		out := make([]string, 0, len(list))
		for _, n := range list {
			out = append(out, n.ID)
		}
		return out
	}

	view(t, s, func(tx storage.Tx) error {
		all, err := tx.Notifications().List()
		require.NoError(t, err)
		assert.Equal(t, []string{"n-3", "n-2", "n-1"}, ids(all))

		unread, err := tx.Notifications().Unread()
		require.NoError(t, err)
		assert.Equal(t, []string{"n-3", "n-1"}, ids(unread))

		got, err := tx.Notifications().Get("n-2")
		require.NoError(t, err)
		assert.True(t, got.Read)
		assert.Equal(t, models.SeveritySuccess, got.Severity)
		return nil
	})

	err := s.Update(context.Background(), func(tx storage.Tx) error {
		return tx.Notifications().MarkRead("missing")
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testMetadata(t *testing.T, s storage.Store) {
	view(t, s, func(tx storage.Tx) error {
		_, err := tx.Metadata().Get(storage.MetaLastSyncTime)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		return nil
	})

	update(t, s, func(tx storage.Tx) error {
		if err := tx.Metadata().Put(storage.MetaDeviceSalt, []byte{1, 2, 3}); err != nil {
			return err
		}
		if err := tx.Metadata().Put(storage.MetaLastSyncTime, []byte("1")); err != nil {
			return err
		}
		return tx.Metadata().Put(storage.MetaLastSyncTime, []byte("2"))
	})

	view(t, s, func(tx storage.Tx) error {
		salt, err := tx.Metadata().Get(storage.MetaDeviceSalt)
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3}, salt)

		last, err := tx.Metadata().Get(storage.MetaLastSyncTime)
		require.NoError(t, err)
		assert.Equal(t, "2", string(last))
		return nil
	})
}

func testUpdateRollback(t *testing.T, s storage.Store) {
	boom := errors.New("boom")

	// запись транзакции и outbox должны откатиться вместе
	err := s.Update(context.Background(), func(tx storage.Tx) error {
		tr := newTransaction("tx-rb", base)
		if err := tx.Transactions().Add(tr); err != nil {
			return err
		}
		if err := tx.Outbox().Add(&models.OutboxEntry{
			ID: models.OutboxID(models.SyncTypeTransaction, tr.ID), Type: models.SyncTypeTransaction,
			Payload: tr.Payload(), Priority: models.PriorityHigh, Timestamp: base, NextRetry: base,
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	view(t, s, func(tx storage.Tx) error {
		_, err := tx.Transactions().Get("tx-rb")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		n, err := tx.Outbox().Count()
		require.NoError(t, err)
		assert.Zero(t, n)

		due, err := tx.Outbox().Due(base)
		require.NoError(t, err)
		assert.Empty(t, due)
		return nil
	})
}

func testViewIsReadOnly(t *testing.T, s storage.Store) {
	err := s.View(context.Background(), func(tx storage.Tx) error {
		return tx.Transactions().Add(newTransaction("tx-ro", base))
	})
	assert.ErrorIs(t, err, storage.ErrReadOnly)

	err = s.View(context.Background(), func(tx storage.Tx) error {
		return tx.Metadata().Put("k", []byte("v"))
	})
	assert.ErrorIs(t, err, storage.ErrReadOnly)

	err = s.View(context.Background(), func(tx storage.Tx) error {
		_, err := tx.Cache().PurgeExpired(base)
		return err
	})
	assert.ErrorIs(t, err, storage.ErrReadOnly)
}

func testClosed(t *testing.T, s storage.Store) {
	require.NoError(t, s.Close())
	assert.NoError(t, s.Close(), "second Close is a no-op")

	err := s.View(context.Background(), func(storage.Tx) error { return nil })
	assert.ErrorIs(t, err, storage.ErrStorageClosed)

	err = s.Update(context.Background(), func(storage.Tx) error { return nil })
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func testCanceledContext(t *testing.T, s storage.Store) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.Update(ctx, func(storage.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
