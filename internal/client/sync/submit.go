package sync

import (
	"context"
	"errors"
	"time"

	"github.com/iudanet/paysync/internal/client/storage"
	"github.com/iudanet/paysync/internal/models"
	"github.com/iudanet/paysync/internal/retry"
)

// SubmitTransaction is the online-first path for payments. The transaction
// and its outbox entry are stored first, so the payment survives a crash;
// delivery is then attempted right away under the payment policy and its
// circuit breaker.
//
// It returns true if the server accepted the transaction. On a transient
// failure or an open breaker the entry stays in the outbox for the
// background passes and SubmitTransaction returns (false, nil). A permanent
// rejection marks the transaction failed and returns the classified error.
func (m *Manager) SubmitTransaction(ctx context.Context, t *models.Transaction) (bool, error) {
	entry, err := m.prepareTransaction(t)
	if err != nil {
		return false, err
	}

	policy := retry.PaymentPolicy(m.breakers)
	policy.Logger = m.logger

	// последняя ошибка попытки, дошедшей до сервера
	var networkErr error
	policy.OnRetry = func(_ int, err error, _ time.Duration) {
		networkErr = err
	}

	// фоновый проход не должен забрать запись, пока идет немедленная отправка
	entry.NextRetry = storage.CeilMilli(entry.NextRetry.Add(policy.MaxDelay))

	if err := m.store.Update(ctx, func(tx storage.Tx) error {
		if err := tx.Transactions().Add(t); err != nil {
			return err
		}
		return tx.Outbox().Add(entry)
	}); err != nil {
		return false, wrap("store transaction", err)
	}

	_, sendErr := retry.Do(ctx, m.clock, policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, m.deliver(ctx, entry)
	})
	if retry.Classify(sendErr) == retry.CategoryAborted {
		// запись сохранена и будет отправлена фоновым проходом
		return false, sendErr
	}

	if errors.Is(sendErr, retry.ErrCircuitOpen) {
		if networkErr == nil {
			// попытки не было: возвращаем запись в очередь без штрафа
			if err := m.release(ctx, entry); err != nil {
				m.logger.Error("Failed to release outbox entry", "entry_id", entry.ID, "error", err)
			}
			m.logger.Warn("Payment circuit is open, transaction queued", "transaction_id", t.ID)
			m.schedule()
			return false, nil
		}
		// предохранитель сработал после неудачных попыток, они засчитываются
		sendErr = networkErr
	}

	switch m.settle(ctx, entry, sendErr) {
	case outcomeSynced:
		m.logger.Info("Transaction submitted", "transaction_id", t.ID)
		return true, nil
	case outcomeDeadLettered:
		return false, sendErr
	}

	m.logger.Warn("Transaction queued for background sync",
		"transaction_id", t.ID,
		"category", string(retry.Classify(sendErr)),
		"error", sendErr)
	m.schedule()
	return false, nil
}

// release делает запись готовой к отправке немедленно
func (m *Manager) release(ctx context.Context, entry *models.OutboxEntry) error {
	entry.NextRetry = storage.CeilMilli(m.clock.Now())
	return m.store.Update(ctx, func(tx storage.Tx) error {
		return tx.Outbox().Put(entry)
	})
}
