package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/iudanet/paysync/internal/client/cli"
	"github.com/iudanet/paysync/internal/client/iocli"
	"github.com/iudanet/paysync/internal/config"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	stdio := iocli.NewStdio()

	if len(args) > 0 && (args[0] == "--version" || args[0] == "version") {
		printVersion(stdio)
		return 0
	}

	cfg, rest, err := config.Load(args)
	if errors.Is(err, pflag.ErrHelp) {
		cli.PrintUsage(stdio)
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	if len(rest) == 0 || rest[0] == "help" {
		cli.PrintUsage(stdio)
		if len(rest) == 0 {
			return 1
		}
		return 0
	}

	// Validate уже проверил уровень
	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := cli.Open(ctx, cfg, stdio, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	if err := app.Run(ctx, rest); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printVersion(io iocli.IO) {
	io.Printf("PaySync Client\n")
	io.Printf("Version:    %s\n", Version)
	io.Printf("Build Date: %s\n", BuildDate)
	io.Printf("Git Commit: %s\n", GitCommit)
}
