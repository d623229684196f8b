package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"

	"github.com/iudanet/paysync/internal/client/sync"
	"github.com/iudanet/paysync/internal/models"
	"github.com/iudanet/paysync/internal/retry"
)

// runSend создает транзакцию: ставит в очередь или, с --now, сразу отправляет
func (c *Cli) runSend(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("send", pflag.ContinueOnError)
	kind := fs.String("kind", string(models.KindSend), "Transaction kind: send, receive, topup or payment")
	amount := fs.String("amount", "", "Amount in currency units, e.g. 100.50")
	currency := fs.String("currency", "HTG", "ISO-4217 currency code")
	to := fs.String("to", "", "Counterpart (phone number or account)")
	desc := fs.String("desc", "", "Description")
	id := fs.String("id", "", "Transaction ID (generated if empty)")
	now := fs.Bool("now", false, "Send immediately and fall back to the queue on failure")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *amount == "" {
		input, err := c.io.ReadInput("Amount: ")
		if err != nil {
			return fmt.Errorf("failed to read amount: %w", err)
		}
		*amount = input
	}
	value, err := decimal.NewFromString(*amount)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", *amount, err)
	}

	k := models.TransactionKind(*kind)
	if *to == "" && (k == models.KindSend || k == models.KindPayment) {
		input, err := c.io.ReadInput("To: ")
		if err != nil {
			return fmt.Errorf("failed to read counterpart: %w", err)
		}
		*to = input
	}

	t := &models.Transaction{
		ID:          *id,
		Kind:        k,
		Amount:      value,
		Currency:    *currency,
		Counterpart: *to,
		Description: *desc,
	}

	if !*now {
		err := c.manager.QueueTransaction(ctx, t)
		if sync.IsDuplicate(err) {
			return fmt.Errorf("transaction %s already exists: %w", t.ID, err)
		}
		if err != nil {
			return fmt.Errorf("failed to queue transaction: %w", err)
		}
		c.io.Printf("✓ Transaction %s queued for sync\n", t.ID)
		return nil
	}

	sent, err := c.manager.SubmitTransaction(ctx, t)
	var rejected *retry.Error
	switch {
	case errors.As(err, &rejected) && rejected.Category != retry.CategoryAborted:
		c.io.Printf("✗ Transaction %s rejected (%s)\n", t.ID, rejected.Category)
		return err
	case err != nil:
		return fmt.Errorf("failed to submit transaction: %w", err)
	case sent:
		c.io.Printf("✓ Transaction %s sent\n", t.ID)
	default:
		c.io.Printf("Transaction %s saved; it will be sent when the server is reachable\n", t.ID)
	}
	return nil
}

func (c *Cli) runProfile(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: paysync profile FIELD VALUE")
	}

	u := &models.ProfileUpdate{Field: args[0], Value: args[1]}
	if err := c.manager.QueueProfileUpdate(ctx, u); err != nil {
		return fmt.Errorf("failed to queue profile update: %w", err)
	}
	c.io.Printf("✓ Profile update %s queued for sync\n", u.ID)
	return nil
}

func (c *Cli) runCustom(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("custom", pflag.ContinueOnError)
	endpoint := fs.String("endpoint", "", "API path, e.g. /api/v1/devices")
	method := fs.String("method", http.MethodPost, "HTTP method")
	data := fs.String("data", "", "JSON request body")
	priority := fs.String("priority", string(models.PriorityLow), "Priority: high, medium or low")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var body []byte
	if *data != "" {
		body = []byte(*data)
	}
	id, err := c.manager.QueueCustomSync(ctx, *endpoint, *method, body, models.Priority(*priority))
	if err != nil {
		return fmt.Errorf("failed to queue request: %w", err)
	}
	c.io.Printf("✓ Request %s queued for sync\n", id)
	return nil
}
