package sync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/paysync/internal/client/storage"
	"github.com/iudanet/paysync/internal/models"
	"github.com/iudanet/paysync/internal/retry"
)

// outcome итог обработки одной записи outbox
type outcome int

const (
	outcomeSynced outcome = iota
	outcomeDeferred
	outcomeDeadLettered
	outcomeAborted
)

// TriggerSync runs one pass over the due outbox entries and reports whether
// every processed entry was delivered. Without force the pass is skipped
// with ErrOffline while offline. A call made while another pass runs
// returns ErrSyncInProgress.
func (m *Manager) TriggerSync(ctx context.Context, force bool) (bool, error) {
	if !force && !m.online.Load() {
		return false, ErrOffline
	}
	if !m.syncing.CompareAndSwap(false, true) {
		return false, ErrSyncInProgress
	}
	defer m.syncing.Store(false)

	return m.drain(ctx)
}

// drain выполняет один проход синхронизации
func (m *Manager) drain(ctx context.Context) (bool, error) {
	start := m.clock.Now()

	var due []*models.OutboxEntry
	err := m.store.View(ctx, func(tx storage.Tx) error {
		var err error
		due, err = tx.Outbox().Due(start)
		return err
	})
	if err != nil {
		// хранилище недоступно: проход повторится по таймеру
		m.logger.Error("Failed to read sync queue", "error", err)
		return false, fmt.Errorf("failed to read sync queue: %w", err)
	}

	progress := Progress{Total: len(due)}
	m.emit(progress)

	if len(due) > 0 {
		m.logger.Info("Starting sync pass", "due", len(due))
	}

	for _, entry := range due {
		switch m.process(ctx, entry) {
		case outcomeSynced:
			progress.Completed++
		case outcomeDeferred:
			progress.Deferred++
		case outcomeDeadLettered:
			progress.Failed++
		case outcomeAborted:
			m.logger.Info("Sync pass aborted",
				"completed", progress.Completed,
				"remaining", progress.Total-progress.Processed())
			return false, &retry.Error{
				Category: retry.CategoryAborted,
				Err:      fmt.Errorf("%w: %w", retry.ErrAborted, context.Cause(ctx)),
			}
		}
		m.emit(progress)
	}

	m.purgeCache(ctx)
	m.saveLastSync(ctx, start)

	if len(due) > 0 {
		m.logger.Info("Sync pass completed",
			"total", progress.Total,
			"completed", progress.Completed,
			"deferred", progress.Deferred,
			"failed", progress.Failed,
			"duration", m.clock.Now().Sub(start))
	}

	return progress.Failed == 0 && progress.Deferred == 0, nil
}

// process отправляет одну запись и фиксирует результат в хранилище
func (m *Manager) process(ctx context.Context, entry *models.OutboxEntry) outcome {
	err := m.deliver(ctx, entry)
	if ctx.Err() != nil || retry.Classify(err) == retry.CategoryAborted {
		// запись не тронута и будет отправлена в следующий раз
		return outcomeAborted
	}
	return m.settle(ctx, entry, err)
}

// deliver отправляет запись на сервер; nil только для ответа 2xx
func (m *Manager) deliver(ctx context.Context, entry *models.OutboxEntry) error {
	req, err := buildRequest(entry)
	if err != nil {
		return err
	}

	m.logger.Debug("Sending outbox entry",
		"entry_id", entry.ID,
		"method", req.Method,
		"endpoint", req.Endpoint,
		"attempts", entry.Attempts)

	resp, err := m.transport.Do(ctx, req)
	if err != nil {
		return err
	}
	return resp.Err()
}

// settle применяет результат отправки: удаляет запись, переносит ее
// на потом или переводит доменную запись в failed
func (m *Manager) settle(ctx context.Context, entry *models.OutboxEntry, sendErr error) outcome {
	var (
		result outcome
		err    error
	)

	switch {
	case sendErr == nil:
		result, err = outcomeSynced, m.complete(ctx, entry)

	case !retry.Retryable(sendErr):
		m.logger.Error("Outbox entry rejected",
			"entry_id", entry.ID,
			"category", string(retry.Classify(sendErr)),
			"status", retry.StatusCode(sendErr),
			"error", sendErr)
		result, err = outcomeDeadLettered, m.deadLetter(ctx, entry, entry.Attempts+1, sendErr)

	case entry.Attempts+1 >= m.cfg.MaxRetries:
		m.logger.Error("Outbox entry exhausted retries",
			"entry_id", entry.ID,
			"attempts", entry.Attempts+1,
			"error", sendErr)
		result, err = outcomeDeadLettered, m.deadLetter(ctx, entry, entry.Attempts+1, sendErr)

	default:
		result, err = outcomeDeferred, m.reschedule(ctx, entry, sendErr)
	}

	if err != nil {
		// запись осталась в очереди как была; считаем попытку неудачной
		m.logger.Error("Failed to record sync outcome", "entry_id", entry.ID, "error", err)
		return outcomeDeferred
	}
	return result
}

// complete удаляет запись outbox и отмечает доменную запись синхронизированной
func (m *Manager) complete(ctx context.Context, entry *models.OutboxEntry) error {
	now := m.clock.Now()

	return m.store.Update(ctx, func(tx storage.Tx) error {
		if err := deleteEntry(tx, entry.ID); err != nil {
			return err
		}

		switch p := entry.Payload.(type) {
		case *models.TransactionPayload:
			return updateTransaction(tx, p.TransactionID, func(t *models.Transaction) {
				t.Synced = true
				t.LastSyncAttempt = now
				t.LastError = ""
				if t.Status == models.StatusPending {
					t.Status = models.StatusCompleted
				}
			})
		case *models.ProfilePayload:
			return updateProfile(tx, p.UpdateID, func(u *models.ProfileUpdate) {
				u.Synced = true
				u.Failed = false
				u.LastSyncAttempt = now
				u.LastError = ""
			})
		case *models.CustomPayload:
			// у произвольного запроса нет доменной записи
		}
		return nil
	})
}

// deadLetter удаляет запись outbox и помечает доменную запись как failed
func (m *Manager) deadLetter(ctx context.Context, entry *models.OutboxEntry, attempts int, cause error) error {
	now := m.clock.Now()
	message := cause.Error()

	return m.store.Update(ctx, func(tx storage.Tx) error {
		if err := deleteEntry(tx, entry.ID); err != nil {
			return err
		}

		switch p := entry.Payload.(type) {
		case *models.TransactionPayload:
			if err := updateTransaction(tx, p.TransactionID, func(t *models.Transaction) {
				t.Status = models.StatusFailed
				t.SyncAttempts = attempts
				t.LastSyncAttempt = now
				t.LastError = message
			}); err != nil {
				return err
			}
			return tx.Notifications().Add(&models.Notification{
				ID:        uuid.NewString(),
				Title:     "Transaction not sent",
				Message:   fmt.Sprintf("%s %s %s: %s", p.Kind, p.Amount, p.Currency, message),
				Severity:  models.SeverityError,
				Timestamp: now,
			})
		case *models.ProfilePayload:
			return updateProfile(tx, p.UpdateID, func(u *models.ProfileUpdate) {
				u.Failed = true
				u.SyncAttempts = attempts
				u.LastSyncAttempt = now
				u.LastError = message
			})
		case *models.CustomPayload:
			m.logger.Warn("Custom sync request dropped",
				"entry_id", entry.ID,
				"endpoint", entry.Endpoint,
				"method", entry.Method)
		}
		return nil
	})
}

// reschedule увеличивает счетчик попыток и переносит запись на потом.
// Подсказка Retry-After - нижняя граница задержки.
func (m *Manager) reschedule(ctx context.Context, entry *models.OutboxEntry, cause error) error {
	now := m.clock.Now()
	attempts := entry.Attempts + 1

	delay := m.cfg.Backoff.NextDelay(attempts)
	if hint := retry.RetryAfter(cause); hint > delay {
		delay = hint
	}

	updated := *entry
	updated.Attempts = attempts
	updated.LastError = cause.Error()
	// округляем вверх: запись не должна стать готовой раньше срока
	updated.NextRetry = storage.CeilMilli(now.Add(delay))

	err := m.store.Update(ctx, func(tx storage.Tx) error {
		if err := tx.Outbox().Put(&updated); err != nil {
			return err
		}

		switch p := entry.Payload.(type) {
		case *models.TransactionPayload:
			return updateTransaction(tx, p.TransactionID, func(t *models.Transaction) {
				t.SyncAttempts = attempts
				t.LastSyncAttempt = now
				t.LastError = updated.LastError
			})
		case *models.ProfilePayload:
			return updateProfile(tx, p.UpdateID, func(u *models.ProfileUpdate) {
				u.SyncAttempts = attempts
				u.LastSyncAttempt = now
				u.LastError = updated.LastError
			})
		case *models.CustomPayload:
		}
		return nil
	})
	if err != nil {
		return err
	}

	*entry = updated
	m.logger.Warn("Outbox entry rescheduled",
		"entry_id", entry.ID,
		"attempts", attempts,
		"category", string(retry.Classify(cause)),
		"next_retry", updated.NextRetry,
		"error", cause)
	return nil
}

// saveLastSync запоминает время последнего завершенного прохода
func (m *Manager) saveLastSync(ctx context.Context, at time.Time) {
	value := []byte(strconv.FormatInt(storage.UnixMilli(at), 10))
	if err := m.store.Update(ctx, func(tx storage.Tx) error {
		return tx.Metadata().Put(storage.MetaLastSyncTime, value)
	}); err != nil {
		m.logger.Warn("Failed to save last sync time", "error", err)
	}
}

// LastSyncTime returns the start time of the last completed pass, or the
// zero time if none completed yet.
func (m *Manager) LastSyncTime(ctx context.Context) (time.Time, error) {
	var value []byte
	err := m.store.View(ctx, func(tx storage.Tx) error {
		var err error
		value, err = tx.Metadata().Get(storage.MetaLastSyncTime)
		return err
	})
	if errors.Is(err, storage.ErrNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read last sync time: %w", err)
	}

	ms, err := strconv.ParseInt(string(value), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid last sync time %q: %w", value, err)
	}
	return storage.FromUnixMilli(ms), nil
}

// deleteEntry удаляет запись outbox; отсутствие записи не ошибка
func deleteEntry(tx storage.Tx, id string) error {
	if err := tx.Outbox().Delete(id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return nil
}

// updateTransaction изменяет транзакцию; отсутствующая запись пропускается
func updateTransaction(tx storage.Tx, id string, fn func(t *models.Transaction)) error {
	t, err := tx.Transactions().Get(id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	fn(t)
	return tx.Transactions().Put(t)
}

// updateProfile изменяет запись изменения профиля; отсутствующая запись пропускается
func updateProfile(tx storage.Tx, id string, fn func(u *models.ProfileUpdate)) error {
	u, err := tx.Profiles().Get(id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	fn(u)
	return tx.Profiles().Put(u)
}
