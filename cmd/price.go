package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/etnz/dca"
	"github.com/etnz/dca/market"
	"github.com/etnz/dca/renderer"
	"github.com/google/subcommands"
)

// displayCurrency returns c if set, or the preferred currency.
func (a *app) displayCurrency(ctx context.Context, c string) (string, error) {
	if c != "" {
		if !dca.IsCurrency(c) {
			return "", fmt.Errorf("unknown currency %q: %w", c, dca.ErrInvalidInput)
		}
		return c, nil
	}
	return a.prefs.Currency(ctx)
}

// priceCmd shows the bitcoin price.
type priceCmd struct {
	force    bool
	currency string
}

func (*priceCmd) Name() string     { return "price" }
func (*priceCmd) Synopsis() string { return "display the bitcoin market price" }
func (*priceCmd) Usage() string {
	return `stacker price [-force] [-currency <code>]

  Displays the bitcoin spot price. A price fetched less than a minute ago is reused
  unless -force is set.
`
}

func (c *priceCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.force, "force", false, "Fetch the price even if it is recent")
	f.StringVar(&c.currency, "currency", "", "Currency code. Defaults to the preferred currency.")
}

func (c *priceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, ok := open(ctx)
	if !ok {
		return subcommands.ExitFailure
	}
	currency, err := a.displayCurrency(ctx, c.currency)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	tracker := a.tracker(ctx, currency, nil)
	_, err = tracker.Refresh(ctx, c.force)
	q := tracker.Quote()
	saveQuote(ctx, a.store, q)
	printMarkdown(renderer.RenderPrice(&renderer.Price{Quote: q}))
	if err != nil && !q.Price.Valid {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// historyCmd shows the last 24 hours of prices.
type historyCmd struct {
	currency string
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "display the bitcoin prices of the last 24 hours" }
func (*historyCmd) Usage() string {
	return `stacker history [-currency <code>]

  Displays the low, high and change of the bitcoin price over the last 24 hours,
  and its hourly values.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.currency, "currency", "", "Currency code. Defaults to the preferred currency.")
}

func (c *historyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, ok := open(ctx)
	if !ok {
		return subcommands.ExitFailure
	}
	currency, err := a.displayCurrency(ctx, c.currency)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	points, err := a.tracker(ctx, currency, nil).History(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching the price history: %v\n", err)
		return subcommands.ExitFailure
	}
	h := renderer.NewHistory(points, currency)
	if h == nil {
		fmt.Fprintln(os.Stderr, "Error: the price history is empty")
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.RenderHistory(h))
	return subcommands.ExitSuccess
}

// watchCmd prints the price periodically.
type watchCmd struct {
	currency string
	interval time.Duration
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "print the bitcoin price periodically" }
func (*watchCmd) Usage() string {
	return `stacker watch [-currency <code>] [-interval <duration>]

  Prints the bitcoin price now and after every refresh, until interrupted.
`
}

func (c *watchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.currency, "currency", "", "Currency code. Defaults to the preferred currency.")
	f.DurationVar(&c.interval, "interval", 0, "Refresh interval. Defaults to the configured one.")
}

func (c *watchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, ok := open(ctx)
	if !ok {
		return subcommands.ExitFailure
	}
	currency, err := a.displayCurrency(ctx, c.currency)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	if c.interval > 0 {
		a.cfg.RefreshInterval = c.interval
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	watch(ctx, a, a.tracker(ctx, currency, nil))
	return subcommands.ExitSuccess
}

// watch prints a line per quote of tracker until ctx is done.
func watch(ctx context.Context, a *app, tracker *market.Tracker) {
	quotes, unsubscribe := tracker.Subscribe()
	defer unsubscribe()
	// a restored recent price is not fetched again right away.
	if q := tracker.Quote(); q.Price.Valid {
		fmt.Fprintln(stdout, quoteLine(q))
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		tracker.Run(ctx)
	}()
	defer func() { <-done }()

	for {
		select {
		case <-ctx.Done():
			return
		case q := <-quotes:
			saveQuote(ctx, a.store, q)
			fmt.Fprintln(stdout, quoteLine(q))
		}
	}
}

// quoteLine formats a quote on a single line.
func quoteLine(q market.Quote) string {
	if !q.Price.Valid {
		return fmt.Sprintf("price unavailable: %v", q.Err)
	}
	line := fmt.Sprintf("%s  %s", q.At.Local().Format(time.DateTime), dca.FormatMoney(q.Price.Decimal, q.Currency))
	if q.Err != nil {
		line += fmt.Sprintf("  (refresh failed: %v)", q.Err)
	}
	return line
}
