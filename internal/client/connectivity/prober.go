package connectivity

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iudanet/paysync/internal/client/api"
	"github.com/iudanet/paysync/internal/clock"
	pkgapi "github.com/iudanet/paysync/pkg/api"
)

// Prober derives connectivity from periodic GET /health requests: the
// service is online while the health check answers 2xx and does not report
// a status other than "ok".
type Prober struct {
	hub
	transport api.Transport
	clock     clock.Clock
	logger    *slog.Logger
	interval  time.Duration
	online    atomic.Bool

	// transition упорядочивает смену состояния и публикацию события
	transition sync.Mutex
}

var _ Signals = (*Prober)(nil)

// NewProber creates a prober. It reports offline until the first check.
func NewProber(transport api.Transport, interval time.Duration, clk clock.Clock, logger *slog.Logger) *Prober {
	return &Prober{
		transport: transport,
		interval:  interval,
		clock:     clk,
		logger:    logger,
	}
}

// Online implements Signals.
func (p *Prober) Online() bool {
	return p.online.Load()
}

// Run checks the service immediately and then every interval until ctx is done.
func (p *Prober) Run(ctx context.Context) error {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	p.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Check(ctx)
		}
	}
}

// Check performs one health check, updates the state and publishes an
// event if the state changed. Returns the new state.
func (p *Prober) Check(ctx context.Context) bool {
	online := p.probe(ctx)
	if ctx.Err() != nil {
		// отмена не означает потерю связи
		return p.online.Load()
	}

	p.transition.Lock()
	defer p.transition.Unlock()
	if p.online.Swap(online) != online {
		if online {
			p.logger.Info("Server is reachable")
			p.publish(WentOnline)
		} else {
			p.logger.Warn("Server is unreachable")
			p.publish(WentOffline)
		}
	}
	return online
}

func (p *Prober) probe(ctx context.Context) bool {
	resp, err := p.transport.Do(ctx, &api.Request{
		Method:   http.MethodGet,
		Endpoint: pkgapi.HealthPath,
	})
	if err != nil {
		p.logger.Debug("Health check failed", "error", err)
		return false
	}
	if !resp.OK() {
		p.logger.Debug("Health check failed", "status", resp.StatusCode)
		return false
	}

	// тело необязательно; явный статус, отличный от "ok", означает недоступность
	var health pkgapi.HealthResponse
	if len(resp.Body) > 0 && json.Unmarshal(resp.Body, &health) == nil &&
		health.Status != "" && health.Status != pkgapi.HealthStatusOK {
		p.logger.Debug("Health check failed", "health", health.Status)
		return false
	}
	return true
}
