package boltdb

import (
	"bytes"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/paysync/internal/client/storage"
	"github.com/iudanet/paysync/internal/models"
)

// outboxRecord хранимая форма записи outbox: Payload заменен на envelope
type outboxRecord struct {
	models.OutboxEntry
	Envelope models.PayloadEnvelope `json:"payload"`
}

func toOutboxRecord(e *models.OutboxEntry) (*outboxRecord, error) {
	if e.Payload == nil {
		return nil, fmt.Errorf("outbox entry %s: %w", e.ID, models.ErrInvalidPayload)
	}
	return &outboxRecord{OutboxEntry: *e, Envelope: models.WrapPayload(e.Payload)}, nil
}

func (r *outboxRecord) entry() (*models.OutboxEntry, error) {
	p, err := r.Envelope.Unwrap()
	if err != nil {
		return nil, fmt.Errorf("outbox entry %s: %w", r.ID, err)
	}
	e := r.OutboxEntry
	e.Payload = p
	return &e, nil
}

func dueKeyPrefix(p models.Priority) []byte {
	return []byte{byte(p.Rank())}
}

func newOutboxCollection(btx *bbolt.Tx) *collection[outboxRecord] {
	return &collection[outboxRecord]{
		tx:     btx,
		bucket: bucketOutbox,
		id:     func(r *outboxRecord) string { return r.ID },
		indexes: []index[outboxRecord]{
			// rank(1) + next_retry(8) + id: обход курсором дает порядок обработки
			{bucket: bucketOutboxByDue, keys: func(r *outboxRecord) [][]byte {
				return single(key(dueKeyPrefix(r.Priority), millis(r.NextRetry), []byte(r.ID)))
			}},
			{bucket: bucketOutboxByRecord, keys: func(r *outboxRecord) [][]byte {
				e, err := r.entry()
				if err != nil || e.RecordID() == "" {
					return nil
				}
				return single(key(term(e.RecordID()), []byte(r.ID)))
			}},
		},
	}
}

// outbox implements storage.OutboxCollection
type outbox struct {
	c *collection[outboxRecord]
}

func (s *outbox) Add(e *models.OutboxEntry) error {
	r, err := toOutboxRecord(e)
	if err != nil {
		return err
	}
	return s.c.add(r)
}

func (s *outbox) Put(e *models.OutboxEntry) error {
	r, err := toOutboxRecord(e)
	if err != nil {
		return err
	}
	return s.c.put(r)
}

func (s *outbox) Get(id string) (*models.OutboxEntry, error) {
	r, err := s.c.get(id)
	if err != nil {
		return nil, err
	}
	return r.entry()
}

func (s *outbox) Delete(id string) error { return s.c.delete(id) }
func (s *outbox) Count() (int, error)    { return s.c.count() }

// Due обходит индекс по каждому приоритету и останавливается на первой
// записи с next_retry > now
func (s *outbox) Due(now time.Time) ([]*models.OutboxEntry, error) {
	limit := millis(now)

	var out []*models.OutboxEntry
	for _, p := range models.Priorities {
		prefix := dueKeyPrefix(p)
		recs, err := s.c.scan(bucketOutboxByDue, prefix, func(k []byte) bool {
			return bytes.HasPrefix(k, prefix) && bytes.Compare(k[1:9], limit) <= 0
		})
		if err != nil {
			return nil, err
		}
		entries, err := toEntries(recs)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			// индекс хранит миллисекунды, проверяем точное значение
			if e.IsDue(now) {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

func (s *outbox) ByPriority(p models.Priority) ([]*models.OutboxEntry, error) {
	recs, err := s.c.scanPrefix(bucketOutboxByDue, dueKeyPrefix(p))
	if err != nil {
		return nil, err
	}
	return toEntries(recs)
}

func (s *outbox) ByRecordID(recordID string) ([]*models.OutboxEntry, error) {
	recs, err := s.c.scanPrefix(bucketOutboxByRecord, term(recordID))
	if err != nil {
		return nil, err
	}
	return toEntries(recs)
}

func (s *outbox) All() ([]*models.OutboxEntry, error) {
	recs, err := s.c.scanPrefix(bucketOutboxByDue, nil)
	if err != nil {
		return nil, err
	}
	return toEntries(recs)
}

func toEntries(recs []*outboxRecord) ([]*models.OutboxEntry, error) {
	out := make([]*models.OutboxEntry, 0, len(recs))
	for _, r := range recs {
		e, err := r.entry()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

var _ storage.OutboxCollection = (*outbox)(nil)
