package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind тип денежной операции
type TransactionKind string

const (
	KindSend    TransactionKind = "send"    // перевод контрагенту
	KindReceive TransactionKind = "receive" // входящий перевод
	KindTopUp   TransactionKind = "topup"   // пополнение кошелька
	KindPayment TransactionKind = "payment" // оплата счета/мерчанта
)

// Valid reports whether k is one of the known kinds.
func (k TransactionKind) Valid() bool {
	switch k {
	case KindSend, KindReceive, KindTopUp, KindPayment:
		return true
	}
	return false
}

// TransactionStatus состояние транзакции с точки зрения клиента
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
	StatusCancelled TransactionStatus = "cancelled"
)

// Transaction представляет денежную операцию, созданную на устройстве до
// подтверждения сервером. Запись никогда не удаляется физически: она остается
// в локальной истории, а синхронизация меняет только поля Synced,
// SyncAttempts, LastSyncAttempt и Status (failed).
type Transaction struct {
	Timestamp       time.Time         `json:"timestamp"`         // Timestamp время создания операции
	LastSyncAttempt time.Time         `json:"last_sync_attempt"` // LastSyncAttempt время последней попытки отправки
	Amount          decimal.Decimal   `json:"amount"`            // Amount сумма операции (в единицах валюты)
	ID              string            `json:"id"`                // ID уникальный идентификатор (UUID)
	Kind            TransactionKind   `json:"kind"`              // Kind тип операции
	Currency        string            `json:"currency"`          // Currency код валюты ISO-4217, например "HTG"
	Counterpart     string            `json:"counterpart"`       // Counterpart получатель/отправитель
	Description     string            `json:"description"`       // Description произвольный комментарий
	Status          TransactionStatus `json:"status"`            // Status текущий статус
	LastError       string            `json:"last_error"`        // LastError текст последней ошибки синхронизации
	SyncAttempts    int               `json:"sync_attempts"`     // SyncAttempts количество неудачных попыток
	Synced          bool              `json:"synced"`            // Synced подтверждена сервером
}

// Payload returns the outbox payload describing this transaction.
func (t *Transaction) Payload() *TransactionPayload {
	return &TransactionPayload{
		TransactionID: t.ID,
		Kind:          t.Kind,
		Amount:        t.Amount,
		Currency:      t.Currency,
		Counterpart:   t.Counterpart,
		Description:   t.Description,
		Timestamp:     t.Timestamp,
	}
}
