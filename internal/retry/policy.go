package retry

import (
	"log/slog"
	"math"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

// jitterPercent is the spread of jittered delays: ±25%.
const jitterPercent = 25

// Policy configures Do.
type Policy struct {
	// IsRetryable decides whether a failed attempt is retried.
	// nil means Retryable.
	IsRetryable func(err error) bool

	// OnRetry is called before sleeping for delay after failed attempt n.
	OnRetry func(attempt int, err error, delay time.Duration)

	// OnFailure is called once with the terminal error. It is not called
	// when the caller aborts.
	OnFailure func(attempts int, err error)

	// Breaker, when set, guards every attempt.
	Breaker *Breaker

	// Logger, when set, receives retry and failure events.
	Logger *slog.Logger

	// Name identifies the operation class in logs.
	Name string

	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	Jitter      bool
}

// Delay returns the pre-jitter delay after failed attempt n (n >= 1):
// min(BaseDelay * Multiplier^(n-1), MaxDelay).
func (p Policy) Delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	mult := p.Multiplier
	if mult <= 0 {
		mult = 1
	}

	d := float64(p.BaseDelay) * math.Pow(mult, float64(n-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	if d >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// NextDelay returns the delay after failed attempt n with jitter applied
// when the policy enables it.
func (p Policy) NextDelay(n int) time.Duration {
	d := p.Delay(n)
	if !p.Jitter {
		return d
	}
	next, _ := goretry.WithJitterPercent(jitterPercent, constant(d)).Next()
	return next
}

// backoff returns the sequence of delays between attempts of one Do call.
// It stops after MaxAttempts-1 delays.
func (p Policy) backoff() goretry.Backoff {
	n := 0
	var b goretry.Backoff = goretry.BackoffFunc(func() (time.Duration, bool) {
		n++
		return p.Delay(n), false
	})
	if p.MaxDelay > 0 {
		b = goretry.WithCappedDuration(p.MaxDelay, b)
	}
	if p.Jitter {
		b = goretry.WithJitterPercent(jitterPercent, b)
	}
	return goretry.WithMaxRetries(uint64(p.maxAttempts()-1), b)
}

func (p Policy) maxAttempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p Policy) retryable(err error) bool {
	if p.IsRetryable != nil {
		return p.IsRetryable(err)
	}
	return Retryable(err)
}

func constant(d time.Duration) goretry.Backoff {
	return goretry.BackoffFunc(func() (time.Duration, bool) {
		return d, false
	})
}

// PaymentBreaker is the breaker name shared by payment-class operations.
const PaymentBreaker = "payment-operations"

// PaymentPolicy is the conservative policy for payment-class calls: few
// attempts, no jitter, guarded by the shared payment breaker.
func PaymentPolicy(breakers *Breakers) Policy {
	return Policy{
		Name:        "payment",
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    10 * time.Second,
		Multiplier:  2,
		Jitter:      false,
		Breaker:     breakers.Register(PaymentBreaker, 5, time.Minute),
	}
}

// APIPolicy is the policy for ordinary API reads.
func APIPolicy() Policy {
	return Policy{
		Name:        "api",
		MaxAttempts: 5,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    30 * time.Second,
		Multiplier:  2,
		Jitter:      true,
	}
}
