package models

import "time"

// Severity уровень важности уведомления
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification уведомление для пользователя. После создания меняется только флаг Read.
type Notification struct {
	Timestamp time.Time `json:"timestamp"`
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	Read      bool      `json:"read"`
}
