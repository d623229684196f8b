package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/iudanet/paysync/internal/models"
)

func TestValidateTransaction(t *testing.T) {
	valid := func() *models.Transaction {
		return &models.Transaction{
			Kind:        models.KindSend,
			Amount:      decimal.NewFromInt(100),
			Currency:    "HTG",
			Counterpart: "+50912345678",
		}
	}

	tests := []struct {
		modify  func(t *models.Transaction)
		name    string
		errMsg  string
		wantErr bool
	}{
		{name: "valid send", modify: func(*models.Transaction) {}},
		{name: "topup without counterpart", modify: func(t *models.Transaction) {
			t.Kind = models.KindTopUp
			t.Counterpart = ""
		}},
		{name: "unknown kind", modify: func(t *models.Transaction) { t.Kind = "gift" }, wantErr: true, errMsg: "unknown transaction kind"},
		{name: "zero amount", modify: func(t *models.Transaction) { t.Amount = decimal.Zero }, wantErr: true, errMsg: "amount must be positive"},
		{name: "negative amount", modify: func(t *models.Transaction) { t.Amount = decimal.NewFromInt(-5) }, wantErr: true, errMsg: "amount must be positive"},
		{name: "lowercase currency", modify: func(t *models.Transaction) { t.Currency = "htg" }, wantErr: true, errMsg: "currency"},
		{name: "send without counterpart", modify: func(t *models.Transaction) { t.Counterpart = " " }, wantErr: true, errMsg: "counterpart is required"},
		{name: "long description", modify: func(t *models.Transaction) {
			t.Description = string(make([]byte, MaxDescriptionLen+1))
		}, wantErr: true, errMsg: "description"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := valid()
			tt.modify(tr)
			err := ValidateTransaction(tr)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalid)
				assert.ErrorContains(t, err, tt.errMsg)
				return
			}
			assert.NoError(t, err)
		})
	}

	assert.ErrorIs(t, ValidateTransaction(nil), ErrInvalid)
}

func TestValidateProfileUpdate(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		value   string
		wantErr bool
	}{
		{name: "phone", field: "phone", value: "+50937001122"},
		{name: "email", field: "email", value: "jean@example.ht"},
		{name: "free text", field: "display_name", value: "Jean Baptiste"},
		{name: "bad phone", field: "phone", value: "call me", wantErr: true},
		{name: "bad email", field: "email", value: "jean@", wantErr: true},
		{name: "bad field", field: "Display-Name", value: "x", wantErr: true},
		{name: "empty field", field: "", value: "x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProfileUpdate(&models.ProfileUpdate{Field: tt.field, Value: tt.value})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalid)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateCustomSync(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		method   string
		priority models.Priority
		data     []byte
		wantErr  bool
	}{
		{name: "valid", endpoint: "/api/v1/feedback", method: "POST", data: []byte(`{"rating":5}`), priority: models.PriorityLow},
		{name: "no body", endpoint: "/api/v1/devices/1", method: "DELETE", priority: models.PriorityMedium},
		{name: "relative endpoint", endpoint: "api/v1", method: "POST", priority: models.PriorityLow, wantErr: true},
		{name: "GET not allowed", endpoint: "/api/v1/x", method: "GET", priority: models.PriorityLow, wantErr: true},
		{name: "bad json", endpoint: "/api/v1/x", method: "PUT", data: []byte(`{`), priority: models.PriorityLow, wantErr: true},
		{name: "bad priority", endpoint: "/api/v1/x", method: "PUT", priority: "urgent", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCustomSync(tt.endpoint, tt.method, tt.data, tt.priority)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalid)
				return
			}
			assert.NoError(t, err)
		})
	}
}
