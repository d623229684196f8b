package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/paysync/internal/client/auth"
)

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== PaySync Status ===")
	c.io.Println()

	if c.prober.Check(ctx) {
		c.io.Println("Server: online")
	} else {
		c.io.Println("Server: offline")
	}

	token, err := c.tokens.CurrentToken(ctx)
	switch {
	case errors.Is(err, auth.ErrNoToken):
		c.io.Println("Auth: no valid token (run 'paysync token')")
	case err != nil:
		return fmt.Errorf("failed to check authentication: %w", err)
	default:
		remaining := token.ExpiresAt.Sub(c.clock.Now())
		c.io.Printf("Auth: token expires %s (in %s)\n", token.ExpiresAt.UTC().Format(time.RFC3339), remaining.Round(time.Second))
	}

	last, err := c.manager.LastSyncTime(ctx)
	if err != nil {
		return err
	}
	if last.IsZero() {
		c.io.Println("Last sync: never")
	} else {
		c.io.Printf("Last sync: %s\n", last.UTC().Format(time.RFC3339))
	}

	pending, err := c.manager.PendingCount(ctx)
	if err != nil {
		return err
	}
	failedTx, err := c.manager.FailedTransactions(ctx)
	if err != nil {
		return err
	}
	failedProfile, err := c.manager.FailedProfileUpdates(ctx)
	if err != nil {
		return err
	}

	c.io.Println()
	if pending > 0 {
		c.io.Printf("⚠️  Pending sync: %d record(s) waiting to be sent\n", pending)
	} else {
		c.io.Println("✓ Outbox is empty")
	}
	if len(failedTx)+len(failedProfile) > 0 {
		c.io.Printf("✗ Failed: %d transaction(s), %d profile update(s)\n", len(failedTx), len(failedProfile))
		c.io.Println("Run 'paysync retry-failed' to send the failed transactions again.")
	}

	return nil
}
