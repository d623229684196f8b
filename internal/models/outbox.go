package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SyncType тип записи outbox
type SyncType string

const (
	SyncTypeTransaction SyncType = "transaction"
	SyncTypeProfile     SyncType = "profile"
	SyncTypeCustom      SyncType = "custom"
)

// Priority приоритет обработки записи outbox
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Priorities lists priorities in processing order.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// Rank returns the processing rank of p: 0 is processed first.
// Unknown priorities are ranked as low.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// Payload is the closed set of outbox payloads. Only the types declared in
// this file implement it, so a type switch over Payload is exhaustive.
type Payload interface {
	SyncType() SyncType
	isPayload()
}

// TransactionPayload snapshot of a transaction taken at enqueue time.
type TransactionPayload struct {
	Timestamp     time.Time       `json:"timestamp"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transaction_id"`
	Kind          TransactionKind `json:"kind"`
	Currency      string          `json:"currency"`
	Counterpart   string          `json:"counterpart"`
	Description   string          `json:"description"`
}

// ProfilePayload snapshot of a single profile field change.
type ProfilePayload struct {
	Timestamp time.Time `json:"timestamp"`
	UpdateID  string    `json:"update_id"`
	Field     string    `json:"field"`
	Value     string    `json:"value"`
}

// CustomPayload arbitrary request body supplied by the caller (JSON).
type CustomPayload struct {
	Data []byte `json:"data"`
}

func (*TransactionPayload) SyncType() SyncType { return SyncTypeTransaction }
func (*ProfilePayload) SyncType() SyncType     { return SyncTypeProfile }
func (*CustomPayload) SyncType() SyncType      { return SyncTypeCustom }

func (*TransactionPayload) isPayload() {}
func (*ProfilePayload) isPayload()     {}
func (*CustomPayload) isPayload()      {}

// PayloadEnvelope persisted form of Payload: exactly one field is set.
type PayloadEnvelope struct {
	Transaction *TransactionPayload `json:"transaction,omitempty"`
	Profile     *ProfilePayload     `json:"profile,omitempty"`
	Custom      *CustomPayload      `json:"custom,omitempty"`
}

// ErrInvalidPayload is returned when an envelope does not hold exactly one payload.
var ErrInvalidPayload = errors.New("invalid outbox payload")

// WrapPayload converts p to its persisted form.
func WrapPayload(p Payload) PayloadEnvelope {
	switch v := p.(type) {
	case *TransactionPayload:
		return PayloadEnvelope{Transaction: v}
	case *ProfilePayload:
		return PayloadEnvelope{Profile: v}
	case *CustomPayload:
		return PayloadEnvelope{Custom: v}
	}
	return PayloadEnvelope{}
}

// Unwrap returns the payload held by the envelope.
func (e PayloadEnvelope) Unwrap() (Payload, error) {
	var (
		p   Payload
		set int
	)
	if e.Transaction != nil {
		p = e.Transaction
		set++
	}
	if e.Profile != nil {
		p = e.Profile
		set++
	}
	if e.Custom != nil {
		p = e.Custom
		set++
	}
	if set != 1 {
		return nil, fmt.Errorf("%w: %d variants set", ErrInvalidPayload, set)
	}
	return p, nil
}

// OutboxEntry запись очереди синхронизации (outbox). Существует ровно одна
// запись на каждое еще не синхронизированное изменение доменной записи.
// Запись "готова" к отправке, если NextRetry <= now.
type OutboxEntry struct {
	Timestamp time.Time         `json:"timestamp"`  // Timestamp время постановки в очередь
	NextRetry time.Time         `json:"next_retry"` // NextRetry не раньше этого момента запись будет отправлена
	Payload   Payload           `json:"-"`          // Payload содержимое (закрытый набор вариантов)
	Headers   map[string]string `json:"headers"`    // Headers дополнительные HTTP заголовки
	ID        string            `json:"id"`         // ID идентификатор записи, также Idempotency-Key
	Type      SyncType          `json:"type"`       // Type тип записи
	Endpoint  string            `json:"endpoint"`   // Endpoint путь на сервере, например "/api/v1/transactions"
	Method    string            `json:"method"`     // Method HTTP метод
	Priority  Priority          `json:"priority"`   // Priority приоритет обработки
	LastError string            `json:"last_error"` // LastError текст последней ошибки
	Attempts  int               `json:"attempts"`   // Attempts количество неудачных попыток (не убывает)
}

// IsDue reports whether the entry may be processed at now.
func (e *OutboxEntry) IsDue(now time.Time) bool {
	return !e.NextRetry.After(now)
}

// RecordID returns the id of the domain record the entry was created for.
// Custom entries have no domain record and return "".
func (e *OutboxEntry) RecordID() string {
	switch p := e.Payload.(type) {
	case *TransactionPayload:
		return p.TransactionID
	case *ProfilePayload:
		return p.UpdateID
	case *CustomPayload:
		return ""
	}
	return ""
}

// OutboxID returns the deterministic outbox id for a domain record, so that
// the same mutation can never be enqueued twice.
func OutboxID(t SyncType, recordID string) string {
	return string(t) + ":" + recordID
}
