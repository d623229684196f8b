package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/iudanet/paysync/internal/client/sync"
	"github.com/iudanet/paysync/internal/models"
)

func (c *Cli) runSync(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("sync", pflag.ContinueOnError)
	force := fs.Bool("force", false, "Sync even if the server health check fails")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c.io.Println("=== Synchronization ===")
	c.io.Println()

	if !c.prober.Check(ctx) && !*force {
		pending, err := c.manager.PendingCount(ctx)
		if err != nil {
			return err
		}
		c.io.Printf("Server is unreachable, %d record(s) stay queued.\n", pending)
		return sync.ErrOffline
	}

	var last sync.Progress
	unsubscribe := c.manager.SubscribeToProgress(func(p sync.Progress) {
		last = p
	})
	defer unsubscribe()

	ok, err := c.manager.TriggerSync(ctx, true)
	if err != nil {
		return fmt.Errorf("synchronization failed: %w", err)
	}

	c.printProgress(last)
	if !ok {
		c.io.Println("Some records were not sent. See 'paysync failed' and 'paysync status'.")
		return nil
	}
	c.io.Println("✓ Synchronization completed successfully!")
	return nil
}

func (c *Cli) printProgress(p sync.Progress) {
	c.io.Printf("Sent:     %d\n", p.Completed)
	if p.Deferred > 0 {
		c.io.Printf("Deferred: %d\n", p.Deferred)
	}
	if p.Failed > 0 {
		c.io.Printf("Failed:   %d\n", p.Failed)
	}
	c.io.Println()
}

func (c *Cli) runRetryFailed(ctx context.Context) error {
	failed, err := c.manager.FailedTransactions(ctx)
	if err != nil {
		return err
	}
	if len(failed) == 0 {
		c.io.Println("No failed transactions.")
		return nil
	}

	c.io.Printf("Retrying %d failed transaction(s)...\n", len(failed))
	ok, err := c.manager.RetryFailedSync(ctx)
	if err != nil {
		if errors.Is(err, sync.ErrSyncInProgress) {
			c.io.Println("Transactions requeued; another sync is running and will send them.")
			return nil
		}
		return fmt.Errorf("retry failed: %w", err)
	}

	if ok {
		c.io.Println("✓ All requeued transactions sent.")
	} else {
		c.io.Println("Some transactions were not sent. See 'paysync status'.")
	}
	return nil
}

func (c *Cli) runPending(ctx context.Context) error {
	txs, err := c.manager.PendingTransactions(ctx)
	if err != nil {
		return err
	}
	updates, err := c.manager.PendingProfileUpdates(ctx)
	if err != nil {
		return err
	}

	if len(txs) == 0 && len(updates) == 0 {
		c.io.Println("Nothing is waiting for sync.")
		return nil
	}
	if len(txs) > 0 {
		c.io.Printf("Pending transactions (%d):\n", len(txs))
		for _, t := range txs {
			c.printTransaction(t)
		}
	}
	if len(updates) > 0 {
		c.io.Printf("Pending profile updates (%d):\n", len(updates))
		for _, u := range updates {
			c.printProfileUpdate(u)
		}
	}
	return nil
}

func (c *Cli) runFailed(ctx context.Context) error {
	txs, err := c.manager.FailedTransactions(ctx)
	if err != nil {
		return err
	}
	updates, err := c.manager.FailedProfileUpdates(ctx)
	if err != nil {
		return err
	}

	if len(txs) == 0 && len(updates) == 0 {
		c.io.Println("No failed records.")
		return nil
	}
	if len(txs) > 0 {
		c.io.Printf("Failed transactions (%d):\n", len(txs))
		for _, t := range txs {
			c.printTransaction(t)
		}
	}
	if len(updates) > 0 {
		c.io.Printf("Failed profile updates (%d):\n", len(updates))
		for _, u := range updates {
			c.printProfileUpdate(u)
		}
	}
	return nil
}

func (c *Cli) printTransaction(t *models.Transaction) {
	c.io.Printf("  %s  %s  %-8s %s %s", t.ID, t.Timestamp.UTC().Format(time.RFC3339), t.Kind, t.Amount.String(), t.Currency)
	if t.Counterpart != "" {
		c.io.Printf("  -> %s", t.Counterpart)
	}
	c.io.Printf("  attempts: %d\n", t.SyncAttempts)
	if t.LastError != "" {
		c.io.Printf("      last error: %s\n", t.LastError)
	}
}

func (c *Cli) printProfileUpdate(u *models.ProfileUpdate) {
	c.io.Printf("  %s  %s  %s = %q  attempts: %d\n", u.ID, u.Timestamp.UTC().Format(time.RFC3339), u.Field, u.Value, u.SyncAttempts)
	if u.LastError != "" {
		c.io.Printf("      last error: %s\n", u.LastError)
	}
}
