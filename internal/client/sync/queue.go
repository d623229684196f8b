package sync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/paysync/internal/client/storage"
	"github.com/iudanet/paysync/internal/models"
	"github.com/iudanet/paysync/internal/validation"
	pkgapi "github.com/iudanet/paysync/pkg/api"
)

// QueueTransaction validates t, stores it together with its outbox entry in
// one transaction and schedules a pass if online. Missing ID, Timestamp and
// Status are filled in; the caller sees them in t.
func (m *Manager) QueueTransaction(ctx context.Context, t *models.Transaction) error {
	entry, err := m.prepareTransaction(t)
	if err != nil {
		return err
	}

	if err := m.store.Update(ctx, func(tx storage.Tx) error {
		if err := tx.Transactions().Add(t); err != nil {
			return err
		}
		return tx.Outbox().Add(entry)
	}); err != nil {
		return wrap("queue transaction", err)
	}

	m.logger.Info("Transaction queued",
		"transaction_id", t.ID,
		"kind", t.Kind,
		"amount", t.Amount.String(),
		"currency", t.Currency)
	m.schedule()
	return nil
}

// QueueProfileUpdate validates p, stores it with its outbox entry and
// schedules a pass if online.
func (m *Manager) QueueProfileUpdate(ctx context.Context, p *models.ProfileUpdate) error {
	now := m.clock.Now()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = now
	}
	p.Synced = false
	p.Failed = false

	if err := validation.ValidateProfileUpdate(p); err != nil {
		return err
	}

	entry := &models.OutboxEntry{
		ID:        models.OutboxID(models.SyncTypeProfile, p.ID),
		Type:      models.SyncTypeProfile,
		Endpoint:  pkgapi.ProfilePath,
		Method:    http.MethodPatch,
		Payload:   p.Payload(),
		Priority:  models.PriorityMedium,
		Timestamp: now,
		NextRetry: now,
	}

	if err := m.store.Update(ctx, func(tx storage.Tx) error {
		if err := tx.Profiles().Add(p); err != nil {
			return err
		}
		return tx.Outbox().Add(entry)
	}); err != nil {
		return wrap("queue profile update", err)
	}

	m.logger.Info("Profile update queued", "update_id", p.ID, "field", p.Field)
	m.schedule()
	return nil
}

// QueueCustomSync queues an arbitrary JSON request and returns the id of
// its outbox entry.
func (m *Manager) QueueCustomSync(ctx context.Context, endpoint, method string, data []byte, priority models.Priority) (string, error) {
	if err := validation.ValidateCustomSync(endpoint, method, data, priority); err != nil {
		return "", err
	}

	now := m.clock.Now()
	entry := &models.OutboxEntry{
		ID:        models.OutboxID(models.SyncTypeCustom, uuid.NewString()),
		Type:      models.SyncTypeCustom,
		Endpoint:  endpoint,
		Method:    method,
		Payload:   &models.CustomPayload{Data: data},
		Priority:  priority,
		Timestamp: now,
		NextRetry: now,
	}

	if err := m.store.Update(ctx, func(tx storage.Tx) error {
		return tx.Outbox().Add(entry)
	}); err != nil {
		return "", wrap("queue custom sync", err)
	}

	m.logger.Info("Custom sync queued",
		"entry_id", entry.ID,
		"method", method,
		"endpoint", endpoint,
		"priority", priority)
	m.schedule()
	return entry.ID, nil
}

// RetryFailedSync resets every failed transaction to pending with zero
// attempts, queues it at high priority and forces a pass. It returns the
// result of that pass; ErrSyncInProgress means the reset entries will be
// picked up by the next pass.
func (m *Manager) RetryFailedSync(ctx context.Context) (bool, error) {
	now := m.clock.Now()
	var requeued int

	err := m.store.Update(ctx, func(tx storage.Tx) error {
		failed, err := tx.Transactions().ByStatus(models.StatusFailed)
		if err != nil {
			return err
		}

		for _, t := range failed {
			t.Status = models.StatusPending
			t.SyncAttempts = 0
			t.LastError = ""
			t.Synced = false
			if err := tx.Transactions().Put(t); err != nil {
				return err
			}

			existing, err := tx.Outbox().ByRecordID(t.ID)
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				continue
			}

			entry := transactionEntry(t, models.PriorityHigh, now)
			if err := tx.Outbox().Add(entry); err != nil {
				return err
			}
			requeued++
		}
		return nil
	})
	if err != nil {
		return false, wrap("requeue failed transactions", err)
	}

	m.logger.Info("Failed transactions requeued", "count", requeued)
	return m.TriggerSync(ctx, true)
}

// PendingCount returns the number of outbox entries, due or not.
func (m *Manager) PendingCount(ctx context.Context) (int, error) {
	var n int
	err := m.store.View(ctx, func(tx storage.Tx) error {
		var err error
		n, err = tx.Outbox().Count()
		return err
	})
	return n, wrap("count pending entries", err)
}

// PendingTransactions returns transactions not yet confirmed by the server
// and not dead-lettered.
func (m *Manager) PendingTransactions(ctx context.Context) ([]*models.Transaction, error) {
	var out []*models.Transaction
	err := m.store.View(ctx, func(tx storage.Tx) error {
		unsynced, err := tx.Transactions().BySynced(false)
		if err != nil {
			return err
		}
		for _, t := range unsynced {
			if t.Status == models.StatusPending {
				out = append(out, t)
			}
		}
		return nil
	})
	return out, wrap("list pending transactions", err)
}

// FailedTransactions returns dead-lettered transactions.
func (m *Manager) FailedTransactions(ctx context.Context) ([]*models.Transaction, error) {
	var out []*models.Transaction
	err := m.store.View(ctx, func(tx storage.Tx) error {
		var err error
		out, err = tx.Transactions().ByStatus(models.StatusFailed)
		return err
	})
	return out, wrap("list failed transactions", err)
}

// PendingProfileUpdates returns profile updates waiting for delivery.
func (m *Manager) PendingProfileUpdates(ctx context.Context) ([]*models.ProfileUpdate, error) {
	var out []*models.ProfileUpdate
	err := m.store.View(ctx, func(tx storage.Tx) error {
		unsynced, err := tx.Profiles().BySynced(false)
		if err != nil {
			return err
		}
		for _, u := range unsynced {
			if !u.Failed {
				out = append(out, u)
			}
		}
		return nil
	})
	return out, wrap("list pending profile updates", err)
}

// FailedProfileUpdates returns profile updates that were rejected or ran
// out of attempts.
func (m *Manager) FailedProfileUpdates(ctx context.Context) ([]*models.ProfileUpdate, error) {
	var out []*models.ProfileUpdate
	err := m.store.View(ctx, func(tx storage.Tx) error {
		var err error
		out, err = tx.Profiles().Failed()
		return err
	})
	return out, wrap("list failed profile updates", err)
}

// prepareTransaction заполняет значения по умолчанию, проверяет
// транзакцию и строит для нее запись outbox
func (m *Manager) prepareTransaction(t *models.Transaction) (*models.OutboxEntry, error) {
	if t == nil {
		return nil, validation.ValidateTransaction(nil)
	}

	now := m.clock.Now()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Timestamp.IsZero() {
		t.Timestamp = now
	}
	if t.Status == "" {
		t.Status = models.StatusPending
	}
	if t.Status != models.StatusPending {
		return nil, fmt.Errorf("%w: new transaction must be pending, got %q", validation.ErrInvalid, t.Status)
	}
	t.Synced = false

	if err := validation.ValidateTransaction(t); err != nil {
		return nil, err
	}
	return transactionEntry(t, models.PriorityHigh, now), nil
}

func transactionEntry(t *models.Transaction, priority models.Priority, now time.Time) *models.OutboxEntry {
	return &models.OutboxEntry{
		ID:        models.OutboxID(models.SyncTypeTransaction, t.ID),
		Type:      models.SyncTypeTransaction,
		Endpoint:  pkgapi.TransactionsPath,
		Method:    http.MethodPost,
		Payload:   t.Payload(),
		Priority:  priority,
		Timestamp: now,
		NextRetry: now,
	}
}

// IsDuplicate reports whether err means the record was already queued.
func IsDuplicate(err error) bool {
	return errors.Is(err, storage.ErrAlreadyExists)
}
