package api

// TokenResponse представляет ответ с токенами доступа
type TokenResponse struct {
	AccessToken  string `json:"access_token"`  // JWT access token
	RefreshToken string `json:"refresh_token"` // refresh token
	ExpiresIn    int64  `json:"expires_in"`    // время жизни access token в секундах
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}

// HealthStatusOK статус работающего сервера
const HealthStatusOK = "ok"

// HealthResponse ответ GET /health
type HealthResponse struct {
	Status string `json:"status"` // "ok" или причина недоступности, например "maintenance"
}
