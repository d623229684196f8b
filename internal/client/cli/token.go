package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// runToken сохраняет токен, выданный сервером; срок действия берется из claim exp
func (c *Cli) runToken(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("token", pflag.ContinueOnError)
	refresh := fs.String("refresh", "", "Refresh token")
	expiresIn := fs.Duration("expires-in", 0, "Token lifetime, for tokens without an exp claim")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var access string
	switch fs.NArg() {
	case 0:
		input, err := c.io.ReadPassword("Access token: ")
		if err != nil {
			return fmt.Errorf("failed to read token: %w", err)
		}
		access = input
	case 1:
		access = fs.Arg(0)
	default:
		return errors.New("usage: paysync token [--refresh TOKEN] [--expires-in DURATION] [ACCESS_TOKEN]")
	}

	var expiresAt time.Time
	if *expiresIn > 0 {
		expiresAt = c.clock.Now().Add(*expiresIn)
	}
	if err := c.tokens.SaveToken(ctx, access, *refresh, expiresAt); err != nil {
		return err
	}

	token, err := c.tokens.CurrentToken(ctx)
	if err != nil {
		return fmt.Errorf("token saved but is not usable: %w", err)
	}
	c.io.Printf("✓ Token saved, expires %s\n", token.ExpiresAt.UTC().Format(time.RFC3339))
	return nil
}

func (c *Cli) runLogout(ctx context.Context) error {
	if err := c.tokens.Clear(ctx); err != nil {
		return err
	}
	c.io.Println("✓ Logged out. Queued records stay on the device.")
	return nil
}
