package codec

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/paysync/internal/models"
)

func TestRoundTrip_Transaction(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 30, 0, 123456789, time.UTC)
	amount, err := decimal.NewFromString("250.75")
	require.NoError(t, err)

	in := models.Transaction{
		ID:           "tx-1",
		Kind:         models.KindPayment,
		Amount:       amount,
		Currency:     "HTG",
		Counterpart:  "merchant-42",
		Timestamp:    ts,
		Status:       models.StatusPending,
		SyncAttempts: 2,
	}

	data, err := Marshal(in)
	require.NoError(t, err)

	var out models.Transaction
	require.NoError(t, Unmarshal(data, &out))

	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.Kind, out.Kind)
	assert.True(t, in.Amount.Equal(out.Amount), "amount %s != %s", in.Amount, out.Amount)
	assert.True(t, ts.Equal(out.Timestamp), "nanoseconds must survive round-trip")
	assert.True(t, out.LastSyncAttempt.IsZero())
	assert.Equal(t, 2, out.SyncAttempts)
}

func TestMarshal_Deterministic(t *testing.T) {
	v := map[string]int{"b": 2, "a": 1, "c": 3}

	first, err := Marshal(v)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Marshal(v)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestUnmarshal_Garbage(t *testing.T) {
	var out models.CacheEntry
	err := Unmarshal([]byte{0xff, 0x00, 0x13}, &out)
	assert.Error(t, err)
}
