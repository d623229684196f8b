package retry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/paysync/internal/clock"
)

var start = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// runWithClock выполняет fn, продвигая фейковые часы, пока fn ждет таймер
func runWithClock(clk *clock.Fake, fn func()) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()

	for {
		select {
		case <-done:
			return
		default:
		}
		if clk.Pending() > 0 {
			clk.Advance(time.Minute)
			continue
		}
		time.Sleep(time.Millisecond)
	}
}

func testPolicy() Policy {
	return Policy{
		Name:        "test",
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		Multiplier:  2,
	}
}

func TestPolicy_Delay(t *testing.T) {
	p := Policy{BaseDelay: time.Second, MaxDelay: 30 * time.Second, Multiplier: 2}

	want := []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second,
		30 * time.Second, 30 * time.Second,
	}
	for i, w := range want {
		assert.Equal(t, w, p.Delay(i+1), "attempt %d", i+1)
	}

	assert.Equal(t, time.Second, p.Delay(0), "attempt below 1 is treated as 1")
	assert.Equal(t, 30*time.Second, p.Delay(500), "large attempt numbers do not overflow")
}

func TestPolicy_NextDelayJitter(t *testing.T) {
	p := Policy{BaseDelay: time.Second, MaxDelay: 30 * time.Second, Multiplier: 2, Jitter: true}

	for i := 0; i < 200; i++ {
		d := p.NextDelay(3)
		assert.GreaterOrEqual(t, d, 3*time.Second)
		assert.LessOrEqual(t, d, 5*time.Second)
	}

	p.Jitter = false
	assert.Equal(t, 4*time.Second, p.NextDelay(3))
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	clk := clock.NewFake(start)
	p := testPolicy()

	var delays []time.Duration
	p.OnRetry = func(_ int, _ error, d time.Duration) {
		delays = append(delays, d)
	}
	p.OnFailure = func(int, error) {
		t.Error("OnFailure must not be called on success")
	}

	calls := 0
	var (
		got string
		err error
	)
	runWithClock(clk, func() {
		got, err = Do(context.Background(), clk, p, func(context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", NewStatusError(503, 0, "unavailable")
			}
			return "ok", nil
		})
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
}

func TestDo_NonRetryableFailsFast(t *testing.T) {
	clk := clock.NewFake(start)
	p := testPolicy()

	var failedAfter int
	p.OnFailure = func(attempts int, _ error) { failedAfter = attempts }

	calls := 0
	_, err := Do(context.Background(), clk, p, func(context.Context) (int, error) {
		calls++
		return 0, NewStatusError(422, 0, "bad amount")
	})

	require.Error(t, err)
	assert.Equal(t, CategoryValidation, Classify(err))
	assert.Equal(t, 422, StatusCode(err))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, failedAfter)
	assert.Zero(t, clk.Pending(), "no backoff for permanent errors")
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	clk := clock.NewFake(start)
	p := testPolicy()

	var (
		failedAfter int
		failErr     error
	)
	p.OnFailure = func(attempts int, err error) {
		failedAfter = attempts
		failErr = err
	}

	calls := 0
	var err error
	runWithClock(clk, func() {
		_, err = Do(context.Background(), clk, p, func(context.Context) (int, error) {
			calls++
			return 0, NewStatusError(500, 0, "boom")
		})
	})

	require.Error(t, err)
	assert.Equal(t, CategoryServerError, Classify(err))
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, failedAfter)
	assert.Same(t, err, failErr)
}

func TestDo_RetryAfterIsFloor(t *testing.T) {
	clk := clock.NewFake(start)
	p := testPolicy()
	p.MaxAttempts = 2

	var delay time.Duration
	p.OnRetry = func(_ int, _ error, d time.Duration) { delay = d }

	calls := 0
	var err error
	runWithClock(clk, func() {
		_, err = Do(context.Background(), clk, p, func(context.Context) (int, error) {
			calls++
			if calls == 1 {
				return 0, NewStatusError(429, 5*time.Second, "slow down")
			}
			return 1, nil
		})
	})

	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, delay)
}

func TestDo_AbortedBeforeStart(t *testing.T) {
	clk := clock.NewFake(start)
	p := testPolicy()
	p.OnFailure = func(int, error) { t.Error("OnFailure must not be called on abort") }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := Do(ctx, clk, p, func(context.Context) (int, error) {
		called = true
		return 0, nil
	})

	assert.ErrorIs(t, err, ErrAborted)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, CategoryAborted, Classify(err))
	assert.False(t, Retryable(err))
	assert.False(t, called)
}

func TestDo_AbortedDuringBackoff(t *testing.T) {
	clk := clock.NewFake(start)
	p := testPolicy()
	p.OnFailure = func(int, error) { t.Error("OnFailure must not be called on abort") }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// отменяем во время ожидания перед второй попыткой
	p.OnRetry = func(int, error, time.Duration) { cancel() }

	calls := 0
	_, err := Do(ctx, clk, p, func(context.Context) (int, error) {
		calls++
		return 0, NewStatusError(502, 0, "bad gateway")
	})

	assert.ErrorIs(t, err, ErrAborted)
	assert.Equal(t, 1, calls)
}

func TestDo_AbortedInsideOperation(t *testing.T) {
	clk := clock.NewFake(start)
	p := testPolicy()
	p.OnFailure = func(int, error) { t.Error("OnFailure must not be called on abort") }

	ctx, cancel := context.WithCancel(context.Background())
	_, err := Do(ctx, clk, p, func(ctx context.Context) (int, error) {
		cancel()
		return 0, ctx.Err()
	})

	assert.ErrorIs(t, err, ErrAborted)
}

func TestDo_CustomPredicate(t *testing.T) {
	clk := clock.NewFake(start)
	p := testPolicy()
	p.IsRetryable = func(error) bool { return false }

	calls := 0
	_, err := Do(context.Background(), clk, p, func(context.Context) (int, error) {
		calls++
		return 0, NewStatusError(500, 0, "boom")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_BreakerShortCircuits(t *testing.T) {
	clk := clock.NewFake(start)
	p := testPolicy()
	p.MaxAttempts = 1
	p.Breaker = NewBreaker("payments", 2, time.Minute, clk)

	fail := func(context.Context) (int, error) {
		return 0, NewStatusError(500, 0, "down")
	}
	for i := 0; i < 2; i++ {
		_, err := Do(context.Background(), clk, p, fail)
		require.Error(t, err)
	}
	require.Equal(t, StateOpen, p.Breaker.State())

	called := false
	_, err := Do(context.Background(), clk, p, func(context.Context) (int, error) {
		called = true
		return 1, nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, Retryable(err))
	assert.False(t, called)
}

func TestPresets(t *testing.T) {
	clk := clock.NewFake(start)
	breakers := NewBreakers(clk)

	pay := PaymentPolicy(breakers)
	assert.Equal(t, 3, pay.MaxAttempts)
	assert.Equal(t, time.Second, pay.BaseDelay)
	assert.Equal(t, 10*time.Second, pay.MaxDelay)
	assert.False(t, pay.Jitter)
	require.NotNil(t, pay.Breaker)
	assert.Equal(t, PaymentBreaker, pay.Breaker.Name())
	assert.Same(t, pay.Breaker, PaymentPolicy(breakers).Breaker, "breaker is shared by name")
	assert.Same(t, pay.Breaker, breakers.Get(PaymentBreaker))

	api := APIPolicy()
	assert.Equal(t, 5, api.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, api.BaseDelay)
	assert.Equal(t, 30*time.Second, api.MaxDelay)
	assert.True(t, api.Jitter)
	assert.Nil(t, api.Breaker)
}

func TestDo_ConcurrentCallsShareBreaker(t *testing.T) {
	clk := clock.NewFake(start)
	p := testPolicy()
	p.MaxAttempts = 1
	p.Breaker = NewBreaker("shared", 100, time.Minute, clk)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = Do(context.Background(), clk, p, func(context.Context) (int, error) {
				return 0, errors.New("unclassified")
			})
		}()
	}
	wg.Wait()

	// неклассифицированные ошибки не открывают breaker
	assert.Equal(t, StateClosed, p.Breaker.State())
}
