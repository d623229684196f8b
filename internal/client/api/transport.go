package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/iudanet/paysync/internal/retry"
	"github.com/iudanet/paysync/pkg/api"
)

//go:generate moq -out transport_mock.go . Transport

// Transport delivers a single request to the remote service.
//
// A non-2xx answer is not an error: it is returned as a Response and the
// caller decides how to classify it (see Response.Err). An error is returned
// only when no response was received; it is a classified *retry.Error.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Request описывает один вызов сервера
type Request struct {
	Header   map[string]string // дополнительные заголовки
	Method   string
	Endpoint string // путь относительно адреса сервера
	Body     []byte // JSON, может быть пустым
}

// Response ответ сервера
type Response struct {
	Header     http.Header
	Body       []byte
	StatusCode int
	RetryAfter time.Duration // из заголовка Retry-After, 0 если его нет
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Err returns nil for a 2xx response and a classified *retry.Error otherwise.
// The message is taken from the JSON error body when the server sent one.
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}

	var message string
	var errResp api.ErrorResponse
	if err := json.Unmarshal(r.Body, &errResp); err == nil {
		message = errResp.Message
		if message == "" {
			message = errResp.Error
		}
	}
	return retry.NewStatusError(r.StatusCode, r.RetryAfter, message)
}
