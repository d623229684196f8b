package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriority_Rank(t *testing.T) {
	assert.Equal(t, 0, PriorityHigh.Rank())
	assert.Equal(t, 1, PriorityMedium.Rank())
	assert.Equal(t, 2, PriorityLow.Rank())
	assert.Equal(t, 2, Priority("unknown").Rank())

	assert.True(t, PriorityMedium.Valid())
	assert.False(t, Priority("urgent").Valid())
}

func TestPayloadEnvelope_WrapUnwrap(t *testing.T) {
	tx := &Transaction{
		ID:       "tx-1",
		Kind:     KindSend,
		Amount:   decimal.NewFromInt(100),
		Currency: "HTG",
	}

	tests := []struct {
		payload Payload
		name    string
		want    SyncType
	}{
		{name: "transaction", payload: tx.Payload(), want: SyncTypeTransaction},
		{name: "profile", payload: &ProfilePayload{UpdateID: "p-1", Field: "phone"}, want: SyncTypeProfile},
		{name: "custom", payload: &CustomPayload{Data: []byte(`{"a":1}`)}, want: SyncTypeCustom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := WrapPayload(tt.payload)
			got, err := env.Unwrap()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.SyncType())
			assert.Same(t, tt.payload, got)
		})
	}
}

func TestPayloadEnvelope_UnwrapInvalid(t *testing.T) {
	_, err := PayloadEnvelope{}.Unwrap()
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = PayloadEnvelope{
		Profile: &ProfilePayload{},
		Custom:  &CustomPayload{},
	}.Unwrap()
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestOutboxEntry_RecordIDAndDue(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	entry := &OutboxEntry{
		ID:        OutboxID(SyncTypeTransaction, "tx-9"),
		Payload:   &TransactionPayload{TransactionID: "tx-9"},
		NextRetry: now,
	}
	assert.Equal(t, "transaction:tx-9", entry.ID)
	assert.Equal(t, "tx-9", entry.RecordID())
	assert.True(t, entry.IsDue(now))
	assert.False(t, entry.IsDue(now.Add(-time.Millisecond)))

	entry.Payload = &ProfilePayload{UpdateID: "p-1"}
	assert.Equal(t, "p-1", entry.RecordID())

	entry.Payload = &CustomPayload{}
	assert.Empty(t, entry.RecordID())
}

func TestCacheEntry_Expired(t *testing.T) {
	now := time.Now()

	assert.False(t, (&CacheEntry{}).Expired(now), "zero ExpiresAt never expires")
	assert.True(t, (&CacheEntry{ExpiresAt: now.Add(-time.Second)}).Expired(now))
	assert.True(t, (&CacheEntry{ExpiresAt: now}).Expired(now))
	assert.False(t, (&CacheEntry{ExpiresAt: now.Add(time.Second)}).Expired(now))
}

func TestAuthToken_Expired(t *testing.T) {
	now := time.Now()

	assert.True(t, (&AuthToken{}).Expired(now))
	assert.True(t, (&AuthToken{ExpiresAt: now.Add(-time.Minute)}).Expired(now))
	assert.False(t, (&AuthToken{ExpiresAt: now.Add(time.Minute)}).Expired(now))
}
