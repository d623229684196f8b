// Package validation checks records before they are stored and queued.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/iudanet/paysync/internal/models"
)

// ErrInvalid wraps every validation failure
var ErrInvalid = errors.New("validation failed")

var (
	// CurrencyPattern код валюты ISO-4217: три заглавные латинские буквы
	CurrencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
	// PhonePattern номер в формате E.164, "+" необязателен
	PhonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
	// EmailPattern упрощенная проверка адреса
	EmailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	// FieldPattern имя поля профиля
	FieldPattern = regexp.MustCompile(`^[a-z][a-z_]{0,31}$`)
)

const (
	// MaxDescriptionLen максимальная длина комментария к операции
	MaxDescriptionLen = 140
	// MaxProfileValueLen максимальная длина значения поля профиля
	MaxProfileValueLen = 256
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// ValidateTransaction проверяет транзакцию перед постановкой в очередь
func ValidateTransaction(t *models.Transaction) error {
	if t == nil {
		return invalid("transaction is required")
	}
	if !t.Kind.Valid() {
		return invalid("unknown transaction kind %q", t.Kind)
	}
	if !t.Amount.IsPositive() {
		return invalid("amount must be positive, got %s", t.Amount)
	}
	if !CurrencyPattern.MatchString(t.Currency) {
		return invalid("currency must be a 3-letter ISO code, got %q", t.Currency)
	}
	// перевод и оплата всегда адресованы контрагенту
	if (t.Kind == models.KindSend || t.Kind == models.KindPayment) && strings.TrimSpace(t.Counterpart) == "" {
		return invalid("counterpart is required for %s", t.Kind)
	}
	if len(t.Description) > MaxDescriptionLen {
		return invalid("description must not exceed %d characters", MaxDescriptionLen)
	}
	return nil
}

// ValidateProfileUpdate проверяет изменение поля профиля
func ValidateProfileUpdate(p *models.ProfileUpdate) error {
	if p == nil {
		return invalid("profile update is required")
	}
	if !FieldPattern.MatchString(p.Field) {
		return invalid("invalid profile field %q", p.Field)
	}
	if len(p.Value) > MaxProfileValueLen {
		return invalid("value must not exceed %d characters", MaxProfileValueLen)
	}

	switch p.Field {
	case "phone":
		if !PhonePattern.MatchString(p.Value) {
			return invalid("invalid phone number %q", p.Value)
		}
	case "email":
		if !EmailPattern.MatchString(p.Value) {
			return invalid("invalid email %q", p.Value)
		}
	}
	return nil
}

// ValidateCustomSync проверяет параметры произвольного запроса
func ValidateCustomSync(endpoint, method string, data []byte, priority models.Priority) error {
	if !strings.HasPrefix(endpoint, "/") {
		return invalid("endpoint must be an absolute path, got %q", endpoint)
	}
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return invalid("unsupported method %q", method)
	}
	if len(data) > 0 && !json.Valid(data) {
		return invalid("data must be valid JSON")
	}
	if !priority.Valid() {
		return invalid("unknown priority %q", priority)
	}
	return nil
}
