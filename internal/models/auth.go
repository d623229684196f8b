package models

import "time"

// AuthToken сохраненный токен доступа.
// Token и RefreshToken хранятся в зашифрованном виде (см. auth.Store).
type AuthToken struct {
	ExpiresAt    time.Time `json:"expires_at"`    // ExpiresAt момент истечения access токена
	Timestamp    time.Time `json:"timestamp"`     // Timestamp время сохранения
	Key          string    `json:"key"`           // Key ключ записи, например "session"
	Token        string    `json:"token"`         // Token access токен
	RefreshToken string    `json:"refresh_token"` // RefreshToken опциональный refresh токен
}

// Expired reports whether the token is no longer usable at now.
func (a *AuthToken) Expired(now time.Time) bool {
	return !a.ExpiresAt.After(now)
}
