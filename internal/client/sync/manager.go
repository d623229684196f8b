// Package sync drains the outbox of the local store against the remote
// service. The Manager runs one pass at a time, triggered by a timer,
// connectivity events and enqueue calls, and settles every due entry as
// synced, rescheduled with backoff, or dead-lettered.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	gosync "sync"
	"sync/atomic"
	"time"

	"github.com/iudanet/paysync/internal/client/api"
	"github.com/iudanet/paysync/internal/client/connectivity"
	"github.com/iudanet/paysync/internal/client/storage"
	"github.com/iudanet/paysync/internal/clock"
	"github.com/iudanet/paysync/internal/retry"
)

var (
	// ErrSyncInProgress is returned when a pass is requested while another one runs.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrOffline is returned by a non-forced TriggerSync while offline.
	ErrOffline = errors.New("sync skipped: offline")

	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("sync manager already started")
)

// Config параметры фоновой синхронизации
type Config struct {
	// Backoff задает задержку перед повторной отправкой записи outbox
	// (используются BaseDelay, MaxDelay, Multiplier и Jitter)
	Backoff retry.Policy

	// SyncInterval период таймера фоновой синхронизации
	SyncInterval time.Duration

	// MaxRetries после стольких неудачных попыток запись считается
	// окончательно неотправленной
	MaxRetries int
}

// DefaultConfig returns the default sync settings: a pass every 30s, five
// attempts per entry, backoff 1s * 2^(n-1) capped at 30s with jitter.
func DefaultConfig() Config {
	return Config{
		SyncInterval: 30 * time.Second,
		MaxRetries:   5,
		Backoff: retry.Policy{
			Name:       "outbox",
			BaseDelay:  time.Second,
			MaxDelay:   30 * time.Second,
			Multiplier: 2,
			Jitter:     true,
		},
	}
}

// Manager is the background sync manager. Construct it with NewManager and
// run it with Start; the query and enqueue methods work without Start.
type Manager struct {
	store     storage.Store
	transport api.Transport
	signals   connectivity.Signals
	clock     clock.Clock
	breakers  *retry.Breakers
	logger    *slog.Logger

	kick chan struct{}

	// жизненный цикл
	lifeMu gosync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	observers observers
	cfg       Config
	syncing   atomic.Bool
	online    atomic.Bool
}

// NewManager creates a sync manager. Zero fields of cfg take their defaults.
func NewManager(
	store storage.Store,
	transport api.Transport,
	signals connectivity.Signals,
	clk clock.Clock,
	cfg Config,
	logger *slog.Logger,
) *Manager {
	def := DefaultConfig()
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = def.SyncInterval
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.Backoff.BaseDelay <= 0 {
		cfg.Backoff = def.Backoff
	}

	m := &Manager{
		store:     store,
		transport: transport,
		signals:   signals,
		clock:     clk,
		breakers:  retry.NewBreakers(clk),
		logger:    logger,
		cfg:       cfg,
		kick:      make(chan struct{}, 1),
	}
	m.online.Store(signals.Online())
	return m
}

// Breakers returns the circuit breakers used by the manager.
func (m *Manager) Breakers() *retry.Breakers {
	return m.breakers
}

// Online returns the last connectivity state the manager has seen.
func (m *Manager) Online() bool {
	return m.online.Load()
}

// Syncing reports whether a pass is running.
func (m *Manager) Syncing() bool {
	return m.syncing.Load()
}

// Start subscribes to connectivity events and starts the periodic timer.
// If the service is reachable, a first pass is scheduled right away.
// The loop runs until Stop is called or ctx is done.
func (m *Manager) Start(ctx context.Context) error {
	m.lifeMu.Lock()
	defer m.lifeMu.Unlock()

	if m.cancel != nil {
		return ErrAlreadyStarted
	}

	loopCtx, cancel := context.WithCancel(ctx)
	events, unsubscribe := m.signals.Subscribe()
	ticker := m.clock.NewTicker(m.cfg.SyncInterval)
	m.online.Store(m.signals.Online())

	done := make(chan struct{})
	m.cancel = cancel
	m.done = done

	go func() {
		defer close(done)
		defer unsubscribe()
		defer ticker.Stop()
		m.loop(loopCtx, ticker.C, events)
	}()

	m.logger.Info("Sync manager started",
		"interval", m.cfg.SyncInterval,
		"max_retries", m.cfg.MaxRetries,
		"online", m.online.Load())

	if m.online.Load() {
		m.schedule()
	}
	return nil
}

// Stop cancels a running pass and waits for the loop to exit. Safe to call
// more than once and without Start.
func (m *Manager) Stop() {
	m.lifeMu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.lifeMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	m.logger.Info("Sync manager stopped")
}

func (m *Manager) loop(ctx context.Context, ticks <-chan time.Time, events <-chan connectivity.Event) {
	for {
		select {
		case <-ctx.Done():
			return

		case <-ticks:
			if !m.online.Load() {
				// синхронизация невозможна, но просроченный кеш чистим
				m.purgeCache(ctx)
				continue
			}
			m.run(ctx, "timer")

		case e := <-events:
			m.logger.Debug("Connectivity event", "event", e.String())
			switch e {
			case connectivity.WentOnline:
				m.online.Store(true)
				m.run(ctx, "online")
			case connectivity.WentOffline:
				m.online.Store(false)
			case connectivity.Foregrounded:
				if m.online.Load() {
					m.run(ctx, "foreground")
				}
			}

		case <-m.kick:
			if m.online.Load() {
				m.run(ctx, "enqueue")
			}
		}
	}
}

// run выполняет проход из цикла, ошибки только логируются
func (m *Manager) run(ctx context.Context, trigger string) {
	ok, err := m.TriggerSync(ctx, false)
	switch {
	case errors.Is(err, ErrSyncInProgress), errors.Is(err, ErrOffline):
		m.logger.Debug("Sync pass skipped", "trigger", trigger, "reason", err)
	case err != nil:
		m.logger.Warn("Sync pass failed", "trigger", trigger, "error", err)
	default:
		m.logger.Debug("Sync pass finished", "trigger", trigger, "ok", ok)
	}
}

// schedule requests a best-effort pass from the loop without blocking.
func (m *Manager) schedule() {
	if !m.online.Load() {
		return
	}
	select {
	case m.kick <- struct{}{}:
	default:
		// проход уже запрошен
	}
}

// purgeCache удаляет просроченные записи кеша
func (m *Manager) purgeCache(ctx context.Context) {
	var purged int
	err := m.store.Update(ctx, func(tx storage.Tx) error {
		var err error
		purged, err = tx.Cache().PurgeExpired(m.clock.Now())
		return err
	})
	if err != nil {
		m.logger.Warn("Failed to purge expired cache", "error", err)
		return
	}
	if purged > 0 {
		m.logger.Debug("Expired cache purged", "count", purged)
	}
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
