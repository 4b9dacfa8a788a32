package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/dca"
	"github.com/etnz/dca/renderer"
	"github.com/google/subcommands"
)

// addCmd records a purchase.
type addCmd struct {
	amount string
	price  string
	at     string
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "record a bitcoin purchase" }
func (*addCmd) Usage() string {
	return `stacker add -amount <btc> -price <usd> [-at <time>]

  Records a purchase of <btc> bitcoins at <usd> per bitcoin.
  Both must be positive. The purchase time defaults to now.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.amount, "amount", "", "Amount of bitcoin bought, e.g. 0.0125")
	f.StringVar(&c.price, "price", "", "Price paid per bitcoin in USD, e.g. 64000")
	f.StringVar(&c.at, "at", "", "Purchase time: YYYY-MM-DD, YYYY-MM-DD HH:MM, RFC 3339 or Unix seconds. Defaults to now.")
}

func (c *addCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	amount, _, err := parseAmount("amount", c.amount)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	price, _, err := parseAmount("price", c.price)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	at, err := parseTime(c.at)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	a, ok := open(ctx)
	if !ok {
		return subcommands.ExitFailure
	}
	e, err := a.ledger.Add(ctx, amount, price, at)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error adding purchase: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(stdout, "Added %s: %s at %s\n", e.ID, dca.FormatBTC(e.Amount), dca.FormatMoney(e.Price, "usd"))
	return subcommands.ExitSuccess
}

// editCmd changes a purchase.
type editCmd struct {
	amount string
	price  string
	at     string
}

func (*editCmd) Name() string     { return "edit" }
func (*editCmd) Synopsis() string { return "change a recorded purchase" }
func (*editCmd) Usage() string {
	return `stacker edit [-amount <btc>] [-price <usd>] [-at <time>] <id>

  Changes the purchase <id>. Fields that are not given are kept.
`
}

func (c *editCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.amount, "amount", "", "New amount of bitcoin")
	f.StringVar(&c.price, "price", "", "New price per bitcoin in USD")
	f.StringVar(&c.at, "at", "", "New purchase time")
}

func (c *editCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: edit expects exactly one purchase id")
		return subcommands.ExitUsageError
	}
	id := f.Arg(0)
	amount, hasAmount, err := parseAmount("amount", c.amount)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	price, hasPrice, err := parseAmount("price", c.price)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	at, err := parseTime(c.at)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	a, ok := open(ctx)
	if !ok {
		return subcommands.ExitFailure
	}
	if old, found := a.ledger.Entry(id); found {
		if !hasAmount {
			amount = old.Amount
		}
		if !hasPrice {
			price = old.Price
		}
	}
	e, err := a.ledger.Edit(ctx, id, amount, price, at)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error editing purchase: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(stdout, "Edited %s: %s at %s\n", e.ID, dca.FormatBTC(e.Amount), dca.FormatMoney(e.Price, "usd"))
	return subcommands.ExitSuccess
}

// rmCmd deletes purchases.
type rmCmd struct{}

func (*rmCmd) Name() string     { return "rm" }
func (*rmCmd) Synopsis() string { return "delete recorded purchases" }
func (*rmCmd) Usage() string {
	return `stacker rm <id>...

  Deletes the purchases with the given ids, all at once.
`
}

func (c *rmCmd) SetFlags(f *flag.FlagSet) {}

func (c *rmCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: rm expects at least one purchase id")
		return subcommands.ExitUsageError
	}
	a, ok := open(ctx)
	if !ok {
		return subcommands.ExitFailure
	}
	n, err := a.ledger.DeleteMany(ctx, f.Args()...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error deleting purchases: %v\n", err)
		return subcommands.ExitFailure
	}
	if n == 0 {
		fmt.Fprintf(os.Stderr, "Error: no purchase matches %q\n", f.Args())
		return subcommands.ExitFailure
	}
	fmt.Fprintf(stdout, "Removed %d purchase(s)\n", n)
	return subcommands.ExitSuccess
}

// lsCmd lists purchases.
type lsCmd struct {
	json bool
}

func (*lsCmd) Name() string     { return "ls" }
func (*lsCmd) Synopsis() string { return "list recorded purchases" }
func (*lsCmd) Usage() string {
	return `stacker ls [-json]

  Lists the purchases in the order they were recorded.
`
}

func (c *lsCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.json, "json", false, "Print the purchases as JSON")
}

func (c *lsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, ok := open(ctx)
	if !ok {
		return subcommands.ExitFailure
	}
	entries := a.ledger.Snapshot()
	if c.json {
		if err := dca.EncodeJSON(stdout, entries); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding purchases: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}
	privacy, err := a.prefs.Privacy(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading preferences: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.RenderEntries(&renderer.Entries{Currency: dca.DefaultCurrency, Privacy: privacy, Purchases: entries}))
	return subcommands.ExitSuccess
}
