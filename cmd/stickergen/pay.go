package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/vitalvas/stickergen/payment"
)

// PayCommand opens an order on a running server and waits until it settles.
type PayCommand struct {
	*Meta
}

func (c *PayCommand) Run(args []string) int {
	fs := c.flagSet("pay", c.Help())
	serverURL := fs.String("server", "http://localhost:8080", "")
	title := fs.String("title", "", "")
	orderID := fs.String("order", "", "")
	confirm := fs.Bool("confirm", false, "")
	interval := fs.Duration("interval", payment.DefaultPollInterval, "")
	timeout := fs.Duration("timeout", 5*time.Minute, "")

	if !c.parse(fs, args) {
		return 1
	}

	ctx, stop := signalContext()
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	client := payment.NewClient(*serverURL, &http.Client{Timeout: 10 * time.Second})

	id := *orderID
	if id == "" {
		order, err := client.Create(ctx, *title)
		if err != nil {
			return c.fail(err)
		}

		id = order.ID
		c.UI.Output(fmt.Sprintf("order %s: %d.%02d %s", order.ID, order.Amount/100, order.Amount%100, order.Currency))
	}

	if *confirm {
		if _, err := client.Confirm(ctx, id); err != nil {
			return c.fail(err)
		}
	}

	poller := payment.NewPoller(client.Status(), *interval)
	poller.OnError(func(err error) { c.UI.Warn("status check: " + err.Error()) })

	settled := make(chan payment.Status, 1)
	poller.Start(ctx, id, func(_ string, status payment.Status) { settled <- status })
	defer poller.Stop()

	c.UI.Info("waiting for payment of " + id)

	select {
	case status := <-settled:
		c.UI.Output(fmt.Sprintf("order %s: %s", id, status))

		if status != payment.StatusSuccess {
			return 1
		}

		return 0
	case <-ctx.Done():
		return c.fail(ctx.Err())
	}
}

func (c *PayCommand) Help() string {
	return `
Usage: stickergen pay [options]

  Opens a payment order on a running server, or follows an existing one,
  and waits until it is paid or failed.

Options:

  -server=URL       Server base URL (default http://localhost:8080).
  -title=TEXT       Package title recorded on a new order.
  -order=ID         Follows an existing order instead of opening one.
  -confirm          Simulates the payment right away.
  -interval=3s      Status poll interval.
  -timeout=5m       Gives up after this long.
`
}

func (c *PayCommand) Synopsis() string {
	return "Pays for a premium package."
}
