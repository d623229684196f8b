package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iudanet/paysync/internal/client/storage"
	"github.com/iudanet/paysync/internal/clock"
	"github.com/iudanet/paysync/internal/crypto"
	"github.com/iudanet/paysync/internal/models"
	"github.com/iudanet/paysync/pkg/api"
)

// metaKeyFingerprint отпечаток ключа, которым запечатаны токены
const metaKeyFingerprint = "token_key_fingerprint"

// Store implements TokenProvider over the auth collection of the local store.
// It seals tokens before saving them and opens them when reading.
type Store struct {
	store  storage.Store
	clock  clock.Clock
	logger *slog.Logger
	key    []byte
}

// Compile-time check that Store implements TokenProvider
var _ TokenProvider = (*Store)(nil)

// NewStore derives the sealing key from passphrase and the device salt.
// The salt is created on first use and kept in metadata. Returns
// ErrWrongPassphrase if tokens were already sealed with another passphrase.
func NewStore(ctx context.Context, st storage.Store, passphrase string, clk clock.Clock, logger *slog.Logger) (*Store, error) {
	var key []byte

	err := st.Update(ctx, func(tx storage.Tx) error {
		salt, err := tx.Metadata().Get(storage.MetaDeviceSalt)
		if errors.Is(err, storage.ErrNotFound) {
			// Первый запуск на устройстве: создаем соль
			if salt, err = crypto.GenerateSalt(); err != nil {
				return err
			}
			if err := tx.Metadata().Put(storage.MetaDeviceSalt, salt); err != nil {
				return err
			}
		} else if err != nil {
			return fmt.Errorf("failed to read device salt: %w", err)
		}

		if key, err = crypto.DeriveKey(passphrase, salt); err != nil {
			return err
		}

		fingerprint, err := tx.Metadata().Get(metaKeyFingerprint)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			fp, err := crypto.Fingerprint(key)
			if err != nil {
				return err
			}
			return tx.Metadata().Put(metaKeyFingerprint, []byte(fp))
		case err != nil:
			return fmt.Errorf("failed to read key fingerprint: %w", err)
		}

		if err := crypto.VerifyFingerprint(key, string(fingerprint)); err != nil {
			return ErrWrongPassphrase
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token store: %w", err)
	}

	return &Store{store: st, key: key, clock: clk, logger: logger}, nil
}

// SaveToken seals and stores the session token. A zero expiresAt is taken
// from the "exp" claim of the access token.
func (s *Store) SaveToken(ctx context.Context, accessToken, refreshToken string, expiresAt time.Time) error {
	if accessToken == "" {
		return fmt.Errorf("access token cannot be empty")
	}

	if expiresAt.IsZero() {
		exp, err := TokenExpiry(accessToken)
		if err != nil {
			return err
		}
		expiresAt = exp
	}

	sealedAccess, err := crypto.SealToBase64([]byte(accessToken), s.key, []byte(SessionKey))
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}

	// refresh токен необязателен
	var sealedRefresh string
	if refreshToken != "" {
		if sealedRefresh, err = crypto.SealToBase64([]byte(refreshToken), s.key, []byte(SessionKey)); err != nil {
			return fmt.Errorf("failed to encrypt refresh token: %w", err)
		}
	}

	record := &models.AuthToken{
		Key:          SessionKey,
		Token:        sealedAccess,
		RefreshToken: sealedRefresh,
		ExpiresAt:    expiresAt,
		Timestamp:    s.clock.Now(),
	}
	if err := s.store.Update(ctx, func(tx storage.Tx) error {
		return tx.Auth().Put(record)
	}); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	s.logger.Info("Auth token saved", "expires_at", expiresAt)
	return nil
}

// SaveTokenResponse stores a token issued by the server.
func (s *Store) SaveTokenResponse(ctx context.Context, resp *api.TokenResponse) error {
	var expiresAt time.Time
	if resp.ExpiresIn > 0 {
		expiresAt = s.clock.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return s.SaveToken(ctx, resp.AccessToken, resp.RefreshToken, expiresAt)
}

// CurrentToken implements TokenProvider.
func (s *Store) CurrentToken(ctx context.Context) (*Token, error) {
	var record *models.AuthToken
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		record, err = tx.Auth().Get(SessionKey, s.clock.Now())
		return err
	})
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}

	access, err := crypto.OpenBase64(record.Token, s.key, []byte(SessionKey))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt access token: %w", err)
	}

	token := &Token{AccessToken: string(access), ExpiresAt: record.ExpiresAt}
	if record.RefreshToken != "" {
		refresh, err := crypto.OpenBase64(record.RefreshToken, s.key, []byte(SessionKey))
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt refresh token: %w", err)
		}
		token.RefreshToken = string(refresh)
	}
	return token, nil
}

// IsAuthenticated reports whether a usable token is stored.
func (s *Store) IsAuthenticated(ctx context.Context) (bool, error) {
	_, err := s.CurrentToken(ctx)
	switch {
	case errors.Is(err, ErrNoToken):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// Clear removes every stored token (logout).
func (s *Store) Clear(ctx context.Context) error {
	if err := s.store.Update(ctx, func(tx storage.Tx) error {
		return tx.Auth().Clear()
	}); err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}
	s.logger.Info("Auth tokens cleared")
	return nil
}

// TokenExpiry returns the "exp" claim of a JWT without verifying its
// signature: the client only needs to know when to stop using the token.
func TokenExpiry(accessToken string) (time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}, fmt.Errorf("failed to parse access token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("access token has no exp claim")
	}
	return claims.ExpiresAt.Time, nil
}
