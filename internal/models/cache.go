package models

import "time"

// CacheEntry произвольные закешированные данные (например, ответ API).
// Запись с ExpiresAt в прошлом считается отсутствующей.
type CacheEntry struct {
	Timestamp time.Time `json:"timestamp"`  // Timestamp время записи
	ExpiresAt time.Time `json:"expires_at"` // ExpiresAt срок жизни; нулевое значение - бессрочно
	Key       string    `json:"key"`        // Key уникальный ключ
	ETag      string    `json:"etag"`       // ETag значение ETag ответа сервера
	Data      []byte    `json:"data"`       // Data закешированные данные
}

// Expired reports whether the entry is past its expiry at now.
func (c *CacheEntry) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !c.ExpiresAt.After(now)
}
