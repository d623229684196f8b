package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/paysync/internal/clock"
)

var errDown = NewStatusError(503, 0, "down")

func failing(context.Context) error { return errDown }
func succeeding(context.Context) error { return nil }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	clk := clock.NewFake(start)
	b := NewBreaker("payments", 3, time.Minute, clk)

	for i := 0; i < 2; i++ {
		require.ErrorIs(t, b.Execute(context.Background(), failing), errDown)
		assert.Equal(t, StateClosed, b.State())
	}
	require.ErrorIs(t, b.Execute(context.Background(), failing), errDown)
	assert.Equal(t, StateOpen, b.State())

	// в состоянии OPEN операция не вызывается
	called := false
	err := b.Execute(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreaker_HalfOpenSuccessCloses(t *testing.T) {
	clk := clock.NewFake(start)
	b := NewBreaker("payments", 3, time.Minute, clk)
	for i := 0; i < 3; i++ {
		_ = b.Execute(context.Background(), failing)
	}
	require.Equal(t, StateOpen, b.State())

	clk.Advance(59 * time.Second)
	assert.ErrorIs(t, b.Execute(context.Background(), succeeding), ErrCircuitOpen)

	clk.Advance(time.Second)
	assert.Equal(t, StateHalfOpen, b.State())

	require.NoError(t, b.Execute(context.Background(), succeeding))
	assert.Equal(t, StateClosed, b.State())

	// счетчик сброшен: снова нужно три ошибки подряд
	_ = b.Execute(context.Background(), failing)
	_ = b.Execute(context.Background(), failing)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	clk := clock.NewFake(start)
	b := NewBreaker("payments", 1, time.Minute, clk)

	_ = b.Execute(context.Background(), failing)
	require.Equal(t, StateOpen, b.State())

	clk.Advance(time.Minute)
	require.ErrorIs(t, b.Execute(context.Background(), failing), errDown)
	assert.Equal(t, StateOpen, b.State())

	// таймаут отсчитывается заново от последней ошибки
	clk.Advance(30 * time.Second)
	assert.ErrorIs(t, b.Execute(context.Background(), succeeding), ErrCircuitOpen)
	clk.Advance(30 * time.Second)
	assert.NoError(t, b.Execute(context.Background(), succeeding))
}

func TestBreaker_HalfOpenSingleTrial(t *testing.T) {
	clk := clock.NewFake(start)
	b := NewBreaker("payments", 1, time.Minute, clk)
	_ = b.Execute(context.Background(), failing)
	clk.Advance(time.Minute)

	var inner error
	err := b.Execute(context.Background(), func(ctx context.Context) error {
		// второй вызов во время пробного отклоняется
		inner = b.Execute(ctx, succeeding)
		return nil
	})
	require.NoError(t, err)
	assert.ErrorIs(t, inner, ErrCircuitOpen)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_PermanentErrorsDoNotTrip(t *testing.T) {
	clk := clock.NewFake(start)
	b := NewBreaker("payments", 2, time.Minute, clk)

	invalid := func(context.Context) error { return NewStatusError(400, 0, "bad request") }
	unauthorized := func(context.Context) error { return NewStatusError(401, 0, "expired") }

	for i := 0; i < 5; i++ {
		_ = b.Execute(context.Background(), invalid)
		_ = b.Execute(context.Background(), unauthorized)
	}
	assert.Equal(t, StateClosed, b.State())

	// постоянная ошибка между временными прерывает серию
	_ = b.Execute(context.Background(), failing)
	_ = b.Execute(context.Background(), invalid)
	_ = b.Execute(context.Background(), failing)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_AbortDoesNotCount(t *testing.T) {
	clk := clock.NewFake(start)
	b := NewBreaker("payments", 1, time.Minute, clk)

	ctx, cancel := context.WithCancel(context.Background())
	err := b.Execute(ctx, func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakers_Registry(t *testing.T) {
	clk := clock.NewFake(start)
	r := NewBreakers(clk)

	a := r.Register("payment-operations", 1, time.Minute)
	assert.Same(t, a, r.Get("payment-operations"))
	assert.NotSame(t, a, r.Get("profile"))

	_ = a.Execute(context.Background(), failing)
	assert.Equal(t, map[string]State{
		"payment-operations": StateOpen,
		"profile":            StateClosed,
	}, r.States())

	assert.Equal(t, "HALF_OPEN", StateHalfOpen.String())
}
