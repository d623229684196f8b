package sqlite

import (
	"fmt"
	"time"

	"github.com/iudanet/paysync/internal/client/storage"
	"github.com/iudanet/paysync/internal/codec"
	"github.com/iudanet/paysync/internal/models"
)

const outboxColumns = `id, type, endpoint, method, headers, payload, priority,
	attempts, last_error, timestamp, next_retry`

// порядок обработки: приоритет, затем next_retry
const outboxOrder = ` ORDER BY priority_rank, next_retry, id`

// outbox implements storage.OutboxCollection
type outbox struct {
	t *tx
}

// outboxArgs кодирует заголовки и payload в CBOR
func outboxArgs(e *models.OutboxEntry) ([]any, error) {
	if e.Payload == nil {
		return nil, fmt.Errorf("outbox entry %s: %w", e.ID, models.ErrInvalidPayload)
	}
	payload, err := codec.Marshal(models.WrapPayload(e.Payload))
	if err != nil {
		return nil, err
	}
	headers, err := codec.Marshal(e.Headers)
	if err != nil {
		return nil, err
	}
	return []any{
		e.ID, e.Type, e.Endpoint, e.Method, headers, payload, e.Priority,
		e.Attempts, e.LastError, ms(e.Timestamp), ms(e.NextRetry),
		e.RecordID(), e.Priority.Rank(),
	}, nil
}

func scanOutbox(row scanner) (*models.OutboxEntry, error) {
	var (
		e                models.OutboxEntry
		headers, payload []byte
		ts, next         int64
	)
	err := row.Scan(&e.ID, &e.Type, &e.Endpoint, &e.Method, &headers, &payload, &e.Priority,
		&e.Attempts, &e.LastError, &ts, &next)
	if err != nil {
		return nil, err
	}

	var env models.PayloadEnvelope
	if err := codec.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("outbox entry %s: %w", e.ID, err)
	}
	if e.Payload, err = env.Unwrap(); err != nil {
		return nil, fmt.Errorf("outbox entry %s: %w", e.ID, err)
	}
	if len(headers) > 0 {
		if err := codec.Unmarshal(headers, &e.Headers); err != nil {
			return nil, fmt.Errorf("outbox entry %s headers: %w", e.ID, err)
		}
	}

	e.Timestamp = fromMS(ts)
	e.NextRetry = fromMS(next)
	return &e, nil
}

const outboxInsert = `INTO sync_queue (` + outboxColumns + `, record_id, priority_rank)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (s *outbox) Add(e *models.OutboxEntry) error {
	args, err := outboxArgs(e)
	if err != nil {
		return err
	}
	return s.t.insert(tableOutbox, e.ID, `INSERT `+outboxInsert, args...)
}

func (s *outbox) Put(e *models.OutboxEntry) error {
	args, err := outboxArgs(e)
	if err != nil {
		return err
	}
	if _, err := s.t.exec(`INSERT OR REPLACE `+outboxInsert, args...); err != nil {
		return fmt.Errorf("failed to save outbox entry %s: %w", e.ID, err)
	}
	return nil
}

func (s *outbox) Get(id string) (*models.OutboxEntry, error) {
	return queryOne(s.t, scanOutbox, `SELECT `+outboxColumns+` FROM sync_queue WHERE id = ?`, id)
}

func (s *outbox) Delete(id string) error {
	return s.t.deleteByID(tableOutbox, id)
}

func (s *outbox) Due(now time.Time) ([]*models.OutboxEntry, error) {
	entries, err := queryAll(s.t, scanOutbox,
		`SELECT `+outboxColumns+` FROM sync_queue WHERE next_retry <= ?`+outboxOrder, ms(now))
	if err != nil {
		return nil, err
	}

	out := entries[:0]
	for _, e := range entries {
		if e.IsDue(now) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *outbox) ByPriority(p models.Priority) ([]*models.OutboxEntry, error) {
	return queryAll(s.t, scanOutbox,
		`SELECT `+outboxColumns+` FROM sync_queue WHERE priority_rank = ?`+outboxOrder, p.Rank())
}

func (s *outbox) ByRecordID(recordID string) ([]*models.OutboxEntry, error) {
	return queryAll(s.t, scanOutbox,
		`SELECT `+outboxColumns+` FROM sync_queue WHERE record_id = ? AND record_id <> ''`+outboxOrder, recordID)
}

func (s *outbox) All() ([]*models.OutboxEntry, error) {
	return queryAll(s.t, scanOutbox, `SELECT `+outboxColumns+` FROM sync_queue`+outboxOrder)
}

func (s *outbox) Count() (int, error) {
	return s.t.count(tableOutbox)
}

var _ storage.OutboxCollection = (*outbox)(nil)
