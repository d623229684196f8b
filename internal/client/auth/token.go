// Package auth keeps the bearer token used by the sync transport. Tokens are
// sealed with a key derived from the device passphrase before they reach the
// local store.
package auth

import (
	"context"
	"errors"
	"time"
)

// SessionKey ключ записи с текущим токеном в коллекции auth
const SessionKey = "session"

var (
	// ErrNoToken is returned when there is no usable (present and unexpired) token.
	ErrNoToken = errors.New("no auth token")

	// ErrWrongPassphrase is returned when the passphrase does not match the
	// one the stored tokens were sealed with.
	ErrWrongPassphrase = errors.New("wrong device passphrase")
)

// Token is a decrypted access token.
type Token struct {
	ExpiresAt    time.Time
	AccessToken  string
	RefreshToken string
}

// TokenProvider supplies the bearer token for outgoing requests.
//
//go:generate moq -out token_provider_mock.go . TokenProvider
type TokenProvider interface {
	// CurrentToken returns ErrNoToken if no token is stored or it has expired.
	CurrentToken(ctx context.Context) (*Token, error)
}
