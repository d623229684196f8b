package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/paysync/internal/client/sync"
)

// runDaemon синхронизирует в фоне до отмены ctx (Ctrl+C)
func (c *Cli) runDaemon(ctx context.Context) error {
	unsubscribe := c.manager.SubscribeToProgress(func(p sync.Progress) {
		if p.Total > 0 && p.Processed() == p.Total {
			c.io.Printf("Sync pass: %d sent, %d deferred, %d failed\n", p.Completed, p.Deferred, p.Failed)
		}
	})
	defer unsubscribe()

	if err := c.manager.Start(ctx); err != nil {
		return fmt.Errorf("failed to start sync: %w", err)
	}
	defer c.manager.Stop()

	c.io.Println("Background sync started. Press Ctrl+C to stop.")

	proberErr := make(chan error, 1)
	go func() {
		proberErr <- c.prober.Run(ctx)
	}()

	<-ctx.Done()
	if err := <-proberErr; err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Error("Connectivity prober stopped", "error", err)
	}

	c.io.Println("Background sync stopped.")
	return nil
}
