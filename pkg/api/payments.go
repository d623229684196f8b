package api

import (
	"time"

	"github.com/shopspring/decimal"
)

// Пути API, на которые отправляются записи outbox
const (
	TransactionsPath = "/api/v1/transactions"
	ProfilePath      = "/api/v1/profile"
	HealthPath       = "/health"
)

// IdempotencyKeyHeader заголовок, по которому сервер отбрасывает повторные доставки
const IdempotencyKeyHeader = "Idempotency-Key"

// TransactionRequest тело POST /api/v1/transactions
type TransactionRequest struct {
	Timestamp   time.Time       `json:"timestamp"`
	Amount      decimal.Decimal `json:"amount"` // сериализуется строкой, без потери точности
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	Currency    string          `json:"currency"`
	Counterpart string          `json:"counterpart,omitempty"`
	Description string          `json:"description,omitempty"`
}

// ProfileUpdateRequest тело PATCH /api/v1/profile
type ProfileUpdateRequest struct {
	Timestamp time.Time `json:"timestamp"`
	UpdateID  string    `json:"update_id"`
	Field     string    `json:"field"`
	Value     string    `json:"value"`
}
