package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"
)

// Category classifies a failed operation.
type Category string

const (
	CategoryNetwork        Category = "NETWORK"
	CategoryTimeout        Category = "TIMEOUT"
	CategoryServerError    Category = "SERVER_ERROR"
	CategoryRateLimit      Category = "RATE_LIMIT"
	CategoryAuthentication Category = "AUTHENTICATION"
	CategoryValidation     Category = "VALIDATION"
	CategoryUnknown        Category = "UNKNOWN"
	CategoryAborted        Category = "ABORTED"
)

// Transient reports whether failures of this category are retried by default.
func (c Category) Transient() bool {
	switch c {
	case CategoryNetwork, CategoryTimeout, CategoryServerError, CategoryRateLimit:
		return true
	}
	return false
}

var (
	// ErrCircuitOpen is returned without calling the operation while a breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrAborted is returned when the caller's context is done. An aborted
	// call is not counted as an attempt.
	ErrAborted = errors.New("operation aborted")
)

// Error is a classified failure.
type Error struct {
	Err        error
	Category   Category
	StatusCode int           // HTTP статус, 0 если ответа не было
	RetryAfter time.Duration // подсказка сервера (Retry-After), 0 если нет
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d): %v", e.Category, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Category, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewStatusError builds a classified error for a non-2xx HTTP response.
func NewStatusError(code int, retryAfter time.Duration, message string) *Error {
	if message == "" {
		message = http.StatusText(code)
	}
	return &Error{
		Category:   ClassifyStatus(code),
		StatusCode: code,
		RetryAfter: retryAfter,
		Err:        fmt.Errorf("server error (%d): %s", code, message),
	}
}

// ClassifyStatus maps an HTTP status code to a category.
// 408 is a timeout; 4xx other than 401, 403, 408 and 429 is a client error
// that will not succeed on retry.
func ClassifyStatus(code int) Category {
	switch {
	case code == http.StatusRequestTimeout:
		return CategoryTimeout
	case code == http.StatusTooManyRequests:
		return CategoryRateLimit
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return CategoryAuthentication
	case code >= 400 && code < 500:
		return CategoryValidation
	case code >= 500:
		return CategoryServerError
	}
	return CategoryUnknown
}

// Classify returns the category of err.
func Classify(err error) Category {
	if err == nil {
		return CategoryUnknown
	}

	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.Category
	}

	switch {
	case errors.Is(err, ErrAborted), errors.Is(err, context.Canceled):
		return CategoryAborted
	case errors.Is(err, ErrCircuitOpen):
		// зависимость заведомо недоступна
		return CategoryServerError
	case errors.Is(err, context.DeadlineExceeded):
		return CategoryTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return CategoryTimeout
		}
		return CategoryNetwork
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return CategoryNetwork
	}

	return CategoryUnknown
}

// Retryable is the default retry predicate: transient categories are
// retried, an open circuit and an abort are not.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrAborted) {
		return false
	}
	return Classify(err).Transient()
}

// RetryAfter returns the server's retry hint carried by err, or 0.
func RetryAfter(err error) time.Duration {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.RetryAfter
	}
	return 0
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.StatusCode
	}
	return 0
}
