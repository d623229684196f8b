package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/iudanet/paysync/internal/client/api"
	"github.com/iudanet/paysync/internal/client/auth"
	"github.com/iudanet/paysync/internal/client/connectivity"
	"github.com/iudanet/paysync/internal/client/iocli"
	"github.com/iudanet/paysync/internal/client/storage"
	"github.com/iudanet/paysync/internal/client/storage/boltdb"
	"github.com/iudanet/paysync/internal/client/storage/sqlite"
	"github.com/iudanet/paysync/internal/client/sync"
	"github.com/iudanet/paysync/internal/clock"
	"github.com/iudanet/paysync/internal/config"
	"github.com/iudanet/paysync/internal/retry"
)

// App is a Cli together with the resources it owns.
type App struct {
	*Cli
	store storage.Store
}

// Open wires the client from cfg: local store, token store, HTTP transport,
// connectivity prober and sync manager. The caller must Close the App.
func Open(ctx context.Context, cfg *config.Config, io iocli.IO, logger *slog.Logger) (*App, error) {
	store, err := OpenStore(ctx, cfg.Backend, cfg.DBPath)
	if err != nil {
		return nil, err
	}

	app, err := open(ctx, store, cfg, io, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return app, nil
}

func open(ctx context.Context, store storage.Store, cfg *config.Config, io iocli.IO, logger *slog.Logger) (*App, error) {
	clk := clock.Real()

	passphrase, err := readPassphrase(cfg, io)
	if err != nil {
		return nil, err
	}
	tokens, err := auth.NewStore(ctx, store, passphrase, clk, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open token store: %w", err)
	}

	client := api.NewClient(cfg.ServerURL,
		api.WithTokenProvider(tokens),
		api.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
		api.WithTimeout(cfg.RequestTimeout),
		api.WithLogger(logger),
		api.WithClock(clk),
	)
	prober := connectivity.NewProber(client, cfg.OnlineCheckInterval, clk, logger)
	manager := sync.NewManager(store, client, prober, clk, SyncConfig(cfg), logger)

	return &App{
		Cli:   New(io, store, manager, tokens, prober, clk, logger),
		store: store,
	}, nil
}

// Close releases the local store.
func (a *App) Close() error {
	return a.store.Close()
}

// OpenStore opens the local store with the given backend.
func OpenStore(ctx context.Context, backend, path string) (storage.Store, error) {
	switch backend {
	case config.BackendBolt:
		return boltdb.New(ctx, path)
	case config.BackendSQLite:
		return sqlite.New(ctx, path)
	}
	return nil, fmt.Errorf("unknown backend %q", backend)
}

// SyncConfig converts client settings to sync manager settings.
func SyncConfig(cfg *config.Config) sync.Config {
	return sync.Config{
		SyncInterval: cfg.SyncInterval,
		MaxRetries:   cfg.MaxRetries,
		Backoff: retry.Policy{
			Name:       "outbox",
			BaseDelay:  cfg.BaseDelay,
			MaxDelay:   cfg.MaxDelay,
			Multiplier: cfg.Multiplier,
			Jitter:     cfg.Jitter,
		},
	}
}

// readPassphrase берет фразу из настроек, иначе спрашивает у пользователя
func readPassphrase(cfg *config.Config, io iocli.IO) (string, error) {
	if cfg.Passphrase != "" {
		return cfg.Passphrase, nil
	}

	passphrase, err := io.ReadPassword("Device passphrase: ")
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	if passphrase == "" {
		return "", errors.New("passphrase cannot be empty")
	}
	return passphrase, nil
}
