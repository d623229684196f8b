package sync

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/iudanet/paysync/internal/client/api"
	"github.com/iudanet/paysync/internal/models"
	"github.com/iudanet/paysync/internal/retry"
	pkgapi "github.com/iudanet/paysync/pkg/api"
)

// buildRequest формирует HTTP запрос для записи outbox.
// Id записи передается как Idempotency-Key: повторная доставка
// той же записи не создаст дубликат на сервере.
func buildRequest(e *models.OutboxEntry) (*api.Request, error) {
	var body []byte
	var err error

	switch p := e.Payload.(type) {
	case *models.TransactionPayload:
		body, err = json.Marshal(pkgapi.TransactionRequest{
			ID:          p.TransactionID,
			Kind:        string(p.Kind),
			Amount:      p.Amount,
			Currency:    p.Currency,
			Counterpart: p.Counterpart,
			Description: p.Description,
			Timestamp:   p.Timestamp,
		})
	case *models.ProfilePayload:
		body, err = json.Marshal(pkgapi.ProfileUpdateRequest{
			UpdateID:  p.UpdateID,
			Field:     p.Field,
			Value:     p.Value,
			Timestamp: p.Timestamp,
		})
	case *models.CustomPayload:
		body = p.Data
	default:
		err = models.ErrInvalidPayload
	}
	if err != nil {
		// такая запись не станет корректной при повторе
		return nil, &retry.Error{
			Category: retry.CategoryValidation,
			Err:      fmt.Errorf("failed to encode %s payload: %w", e.Type, err),
		}
	}

	header := make(map[string]string, len(e.Headers)+1)
	maps.Copy(header, e.Headers)
	header[pkgapi.IdempotencyKeyHeader] = e.ID

	return &api.Request{
		Method:   e.Method,
		Endpoint: e.Endpoint,
		Header:   header,
		Body:     body,
	}, nil
}
