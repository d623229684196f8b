// Package cli implements the paysync command-line client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/iudanet/paysync/internal/client/auth"
	"github.com/iudanet/paysync/internal/client/iocli"
	"github.com/iudanet/paysync/internal/client/storage"
	"github.com/iudanet/paysync/internal/client/sync"
	"github.com/iudanet/paysync/internal/clock"
)

// ErrUnknownCommand is returned by Run for a command it does not know.
var ErrUnknownCommand = errors.New("unknown command")

// Prober checks that the server is reachable.
//
//go:generate moq -out prober_mock.go . Prober
type Prober interface {
	// Check probes the server once and returns the new state.
	Check(ctx context.Context) bool
	// Run probes periodically until ctx is done.
	Run(ctx context.Context) error
}

type Cli struct {
	io      iocli.IO
	store   storage.Store
	manager *sync.Manager
	tokens  *auth.Store
	prober  Prober
	clock   clock.Clock
	logger  *slog.Logger
}

func New(
	io iocli.IO,
	store storage.Store,
	manager *sync.Manager,
	tokens *auth.Store,
	prober Prober,
	clk clock.Clock,
	logger *slog.Logger,
) *Cli {
	return &Cli{
		io:      io,
		store:   store,
		manager: manager,
		tokens:  tokens,
		prober:  prober,
		clock:   clk,
		logger:  logger,
	}
}

// Run executes the command args[0] with the rest of args as its arguments.
func (c *Cli) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		PrintUsage(c.io)
		return fmt.Errorf("%w: none given", ErrUnknownCommand)
	}

	command, rest := args[0], args[1:]
	switch command {
	case "run":
		return c.runDaemon(ctx)
	case "status":
		return c.runStatus(ctx)
	case "sync":
		return c.runSync(ctx, rest)
	case "retry-failed":
		return c.runRetryFailed(ctx)
	case "pending":
		return c.runPending(ctx)
	case "failed":
		return c.runFailed(ctx)
	case "send":
		return c.runSend(ctx, rest)
	case "profile":
		return c.runProfile(ctx, rest)
	case "custom":
		return c.runCustom(ctx, rest)
	case "notifications":
		return c.runNotifications(ctx, rest)
	case "token":
		return c.runToken(ctx, rest)
	case "logout":
		return c.runLogout(ctx)
	case "help":
		PrintUsage(c.io)
		return nil
	}

	PrintUsage(c.io)
	return fmt.Errorf("%w: %s", ErrUnknownCommand, command)
}

func PrintUsage(io iocli.IO) {
	io.Println("PaySync Client")
	io.Println()
	io.Println("Usage:")
	io.Println("  paysync [OPTIONS] COMMAND [ARGS]")
	io.Println()
	io.Println("Options:")
	io.Println("  --version                    Show version information")
	io.Println("  --config PATH                YAML config file (env PAYSYNC_CONFIG)")
	io.Println("  --env-file PATH              .env file (default .env if present)")
	io.Println("  --server URL                 Server URL (default: http://localhost:8080)")
	io.Println("  --db PATH                    Path to local database (default: paysync.db)")
	io.Println("  --backend bolt|sqlite        Storage backend (default: bolt)")
	io.Println("  --passphrase-file PATH       File with the device passphrase")
	io.Println("  --log-level LEVEL            debug, info, warn or error")
	io.Println("  --sync-interval DURATION     Background sync period (default: 30s)")
	io.Println("  --max-retries N              Attempts before an entry fails (default: 5)")
	io.Println()
	io.Println("Device Passphrase Priority (highest to lowest):")
	io.Println("  1. PAYSYNC_PASSPHRASE environment variable")
	io.Println("  2. --passphrase-file (file path)")
	io.Println("  3. Interactive prompt (fallback)")
	io.Println()
	io.Println("Commands:")
	io.Println("  run                          Sync in the background until interrupted")
	io.Println("  status                       Show queue, connectivity and auth status")
	io.Println("  sync [--force]               Run one sync pass now")
	io.Println("  retry-failed                 Requeue failed transactions and sync")
	io.Println("  pending                      List transactions waiting for sync")
	io.Println("  failed                       List failed transactions and profile updates")
	io.Println("  send [OPTIONS]               Create a transaction (see send --help)")
	io.Println("  profile FIELD VALUE          Queue a profile field change")
	io.Println("  custom [OPTIONS]             Queue an arbitrary API request")
	io.Println("  notifications [--all]        Show notifications and mark them read")
	io.Println("  token [--refresh T] [TOKEN]  Save the access token issued by the server")
	io.Println("  logout                       Remove stored tokens")
	io.Println()
	io.Println("Examples:")
	io.Println("  export PAYSYNC_PASSPHRASE='device passphrase'")
	io.Println("  paysync token eyJhbGciOiJIUzI1NiJ9...")
	io.Println("  paysync send --kind send --amount 100 --currency HTG --to +50937000000")
	io.Println("  paysync send --now --kind payment --amount 250.50 --currency HTG")
	io.Println("  paysync profile phone +50937000001")
	io.Println("  paysync custom --endpoint /api/v1/devices --method POST --data '{\"push\":\"abc\"}'")
	io.Println("  paysync --server https://pay.example.com run")
}
