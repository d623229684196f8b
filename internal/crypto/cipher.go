package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// NonceSize - размер nonce XChaCha20-Poly1305 (24 bytes)
const NonceSize = chacha20poly1305.NonceSizeX

// ErrKeyMismatch is returned by VerifyFingerprint when the key differs from
// the one the fingerprint was made from.
var ErrKeyMismatch = errors.New("key does not match fingerprint")

// Seal шифрует данные с использованием XChaCha20-Poly1305.
// Формат результата: nonce (24 bytes) + ciphertext + auth_tag (16 bytes).
// additional связывает шифротекст с контекстом (например, ключом записи).
func Seal(plaintext, key, additional []byte) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("plaintext cannot be empty")
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d: %w", KeySize, len(key), err)
	}

	// Случайный 24-байтовый nonce: коллизии не возникают на практике
	nonce := make([]byte, NonceSize, NonceSize+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, plaintext, additional), nil
}

// Open расшифровывает данные, зашифрованные с помощью Seal
func Open(sealed, key, additional []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d: %w", KeySize, len(key), err)
	}
	if len(sealed) < NonceSize+aead.Overhead() {
		return nil, fmt.Errorf("sealed data too short")
	}

	nonce, ciphertext := sealed[:NonceSize], sealed[NonceSize:]
	plaintext, err := aead.Open(nil, nonce, ciphertext, additional)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: authentication failed or corrupted data: %w", err)
	}
	return plaintext, nil
}

// SealToBase64 шифрует данные и возвращает результат в Base64
func SealToBase64(plaintext, key, additional []byte) (string, error) {
	sealed, err := Seal(plaintext, key, additional)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// OpenBase64 расшифровывает данные из Base64
func OpenBase64(sealedBase64 string, key, additional []byte) ([]byte, error) {
	sealed, err := base64.StdEncoding.DecodeString(sealedBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	return Open(sealed, key, additional)
}

// Fingerprint returns a hex SHA-256 of the key, stored next to sealed data
// so a wrong passphrase is reported instead of a decryption failure.
func Fingerprint(key []byte) (string, error) {
	if len(key) == 0 {
		return "", fmt.Errorf("key cannot be empty")
	}
	sum := sha256.Sum256(key)
	return hex.EncodeToString(sum[:]), nil
}

// VerifyFingerprint проверяет, что key соответствует сохраненному отпечатку
func VerifyFingerprint(key []byte, fingerprint string) error {
	got, err := Fingerprint(key)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(got), []byte(fingerprint)) != 1 {
		return ErrKeyMismatch
	}
	return nil
}
