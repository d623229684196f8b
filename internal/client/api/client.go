package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/iudanet/paysync/internal/client/auth"
	"github.com/iudanet/paysync/internal/clock"
	"github.com/iudanet/paysync/internal/retry"
)

const (
	// DefaultTimeout таймаут одного HTTP запроса
	DefaultTimeout = 30 * time.Second

	// maxResponseBody ограничение на размер читаемого тела ответа
	maxResponseBody = 1 << 20
)

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	tokens     auth.TokenProvider
	limiter    *rate.Limiter
	clock      clock.Clock
	logger     *slog.Logger
	baseURL    string
}

// Compile-time check that Client implements Transport
var _ Transport = (*Client)(nil)

// Option настраивает Client
type Option func(*Client)

// WithTokenProvider attaches "Authorization: Bearer <token>" to every request.
func WithTokenProvider(p auth.TokenProvider) Option {
	return func(c *Client) { c.tokens = p }
}

// WithRateLimit paces outgoing requests to rps per second with the given burst.
// rps <= 0 disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithClock sets the clock used to resolve HTTP-date Retry-After values.
func WithClock(clk clock.Clock) Option {
	return func(c *Client) { c.clock = clk }
}

// NewClient создает новый API клиент
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			// Настройка обработки редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
		clock:  clock.Real(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do implements Transport.
func (c *Client) Do(ctx context.Context, r *Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, transportError(fmt.Errorf("rate limiter: %w", err))
		}
	}

	var bodyReader io.Reader
	if len(r.Body) > 0 {
		bodyReader = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, c.baseURL+r.Endpoint, bodyReader)
	if err != nil {
		return nil, &retry.Error{
			Category: retry.CategoryValidation,
			Err:      fmt.Errorf("failed to create request: %w", err),
		}
	}

	if len(r.Body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range r.Header {
		req.Header.Set(k, v)
	}

	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}

	start := c.clock.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(fmt.Errorf("request failed: %w", err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Читаем тело ответа
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, transportError(fmt.Errorf("failed to read response body: %w", err))
	}

	out := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
		RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After"), c.clock.Now()),
	}

	c.logger.Debug("Request completed",
		"method", r.Method,
		"endpoint", r.Endpoint,
		"status", resp.StatusCode,
		"duration", c.clock.Now().Sub(start))

	return out, nil
}

// authorize добавляет bearer токен, если он есть
func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	if c.tokens == nil {
		return nil
	}

	token, err := c.tokens.CurrentToken(ctx)
	switch {
	case errors.Is(err, auth.ErrNoToken):
		// запрос уйдет без токена, сервер ответит 401
		return nil
	case err != nil:
		return &retry.Error{
			Category: retry.CategoryAuthentication,
			Err:      fmt.Errorf("failed to get token: %w", err),
		}
	}

	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	return nil
}

func transportError(err error) *retry.Error {
	return &retry.Error{Category: retry.Classify(err), Err: err}
}

// ParseRetryAfter parses a Retry-After header given either as delay seconds
// or as an HTTP date. Returns 0 for an empty, invalid or past value.
func ParseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}

	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}

	t, err := http.ParseTime(v)
	if err != nil {
		return 0
	}
	if d := t.Sub(now); d > 0 {
		return d
	}
	return 0
}
