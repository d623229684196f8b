package models

import "time"

// ProfileUpdate одно изменение поля профиля пользователя.
// Каждое изменение синхронизируется независимо от остальных.
type ProfileUpdate struct {
	Timestamp       time.Time `json:"timestamp"`         // Timestamp время изменения
	LastSyncAttempt time.Time `json:"last_sync_attempt"` // LastSyncAttempt время последней попытки отправки
	ID              string    `json:"id"`                // ID уникальный идентификатор изменения
	Field           string    `json:"field"`             // Field имя поля профиля, например "phone"
	Value           string    `json:"value"`             // Value новое значение
	LastError       string    `json:"last_error"`        // LastError текст последней ошибки синхронизации
	SyncAttempts    int       `json:"sync_attempts"`     // SyncAttempts количество неудачных попыток
	Synced          bool      `json:"synced"`            // Synced подтверждено сервером
	Failed          bool      `json:"failed"`            // Failed изменение отклонено или исчерпало попытки
}

// Payload returns the outbox payload describing this update.
func (p *ProfileUpdate) Payload() *ProfilePayload {
	return &ProfilePayload{
		UpdateID:  p.ID,
		Field:     p.Field,
		Value:     p.Value,
		Timestamp: p.Timestamp,
	}
}
