package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/iudanet/paysync/internal/client/storage"
	"github.com/iudanet/paysync/internal/models"
)

// runNotifications показывает уведомления и помечает показанные прочитанными
func (c *Cli) runNotifications(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("notifications", pflag.ContinueOnError)
	all := fs.Bool("all", false, "Show read notifications too")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var list []*models.Notification
	err := c.store.Update(ctx, func(tx storage.Tx) error {
		var err error
		if *all {
			list, err = tx.Notifications().List()
		} else {
			list, err = tx.Notifications().Unread()
		}
		if err != nil {
			return err
		}

		for _, n := range list {
			if n.Read {
				continue
			}
			if err := tx.Notifications().MarkRead(n.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to load notifications: %w", err)
	}

	if len(list) == 0 {
		c.io.Println("No new notifications.")
		return nil
	}
	for _, n := range list {
		c.io.Printf("[%s] %s  %s\n", n.Severity, n.Timestamp.UTC().Format(time.RFC3339), n.Title)
		if n.Message != "" {
			c.io.Printf("    %s\n", n.Message)
		}
	}
	return nil
}
