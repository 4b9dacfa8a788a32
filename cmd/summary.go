package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/dca"
	"github.com/etnz/dca/renderer"
	"github.com/google/subcommands"
	"github.com/rs/zerolog/log"
)

// summaryCmd holds the flags for the 'summary' subcommand.
type summaryCmd struct {
	offline bool
	history bool
	entries bool
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "display the stack value, profit and progress" }
func (*summaryCmd) Usage() string {
	return `stacker summary [-offline] [-history] [-entries]

  Displays the total stacked, its cost and, when a market price is available, its
  current value and profit or loss. Values are in USD.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.offline, "offline", false, "Do not fetch the market price, use the last known one")
	f.BoolVar(&c.history, "history", false, "Include the last 24 hours of market prices")
	f.BoolVar(&c.entries, "entries", false, "Include the list of purchases")
}

func (c *summaryCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, ok := open(ctx)
	if !ok {
		return subcommands.ExitFailure
	}
	goal, err := a.prefs.Goal(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading the goal: %v\n", err)
		return subcommands.ExitFailure
	}
	privacy, err := a.prefs.Privacy(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading preferences: %v\n", err)
		return subcommands.ExitFailure
	}

	// valuations are in USD, whatever the display currency.
	tracker := a.tracker(ctx, dca.DefaultCurrency, nil)
	if !c.offline {
		if _, err := tracker.Refresh(ctx, false); err != nil {
			log.Warn().Err(err).Msg("using the last known price")
		}
		saveQuote(ctx, a.store, tracker.Quote())
	}

	report := renderer.NewSummary(a.ledger.Snapshot(), tracker.Quote(), goal, privacy)
	if c.history && !c.offline {
		points, err := tracker.History(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("price history unavailable")
		}
		report.History = renderer.NewHistory(points, tracker.Currency())
	}
	printMarkdown(renderer.RenderSummary(report, renderer.SummaryRenderOptions{
		SkipEntries: !c.entries,
		SkipHistory: !c.history,
	}))
	return subcommands.ExitSuccess
}
