package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/etnz/dca"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// goalCmd shows or changes the stacking goal.
type goalCmd struct {
	inc, dec string
}

func (*goalCmd) Name() string     { return "goal" }
func (*goalCmd) Synopsis() string { return "display or change the stacking goal" }
func (*goalCmd) Usage() string {
	return `stacker goal [-inc <sats>] [-dec <sats>] [<sats>]

  Displays the stacking goal and the progress toward it.
  With <sats> the goal is set, with -inc or -dec it is adjusted. The goal is kept
  between 100,000 sats and 21 million bitcoins.
`
}

func (c *goalCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inc, "inc", "", "Increase the goal by this many sats")
	f.StringVar(&c.dec, "dec", "", "Decrease the goal by this many sats")
}

// parseSats parses a positive number of sats, allowing "_" and "," separators.
func parseSats(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.NewReplacer("_", "", ",", "").Replace(s), 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid number of sats %q", s)
	}
	return n, nil
}

func (c *goalCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var set, delta int64
	var err error
	switch {
	case f.NArg() > 1 || (f.NArg() == 1 && (c.inc != "" || c.dec != "")):
		fmt.Fprintln(os.Stderr, "Error: either set the goal or adjust it")
		return subcommands.ExitUsageError
	case f.NArg() == 1:
		set, err = parseSats(f.Arg(0))
	case c.inc != "":
		delta, err = parseSats(c.inc)
	case c.dec != "":
		delta, err = parseSats(c.dec)
		delta = -delta
	}
	if err == nil && c.inc != "" && c.dec != "" {
		err = fmt.Errorf("-inc and -dec are exclusive")
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	a, ok := open(ctx)
	if !ok {
		return subcommands.ExitFailure
	}
	var goal int64
	switch {
	case f.NArg() == 1:
		goal, err = a.prefs.SetGoal(ctx, set)
	case delta != 0:
		goal, err = a.prefs.AdjustGoal(ctx, delta)
	default:
		goal, err = a.prefs.Goal(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	progress := dca.StackingProgress(a.ledger.Snapshot(), goal)
	fmt.Fprintf(stdout, "Goal: %s (%.1f%% stacked)\n", dca.FormatSats(goal), progress*100)
	return subcommands.ExitSuccess
}

// privacyCmd shows or toggles the privacy mode.
type privacyCmd struct{}

func (*privacyCmd) Name() string     { return "privacy" }
func (*privacyCmd) Synopsis() string { return "display or change the privacy mode" }
func (*privacyCmd) Usage() string {
	return `stacker privacy [on|off]

  In privacy mode, reports hide the amounts held and their value. Prices and
  percentages are still displayed.
`
}

func (c *privacyCmd) SetFlags(f *flag.FlagSet) {}

// Predict completes the mode argument.
func (c *privacyCmd) Predict() complete.Predictor { return predict.Set{"on", "off"} }

func (c *privacyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "Error: privacy expects on or off")
		return subcommands.ExitUsageError
	}
	a, ok := open(ctx)
	if !ok {
		return subcommands.ExitFailure
	}
	if f.NArg() == 1 {
		var on bool
		switch strings.ToLower(f.Arg(0)) {
		case "on", "true":
			on = true
		case "off", "false":
		default:
			fmt.Fprintf(os.Stderr, "Error: invalid privacy mode %q, expecting on or off\n", f.Arg(0))
			return subcommands.ExitUsageError
		}
		if err := a.prefs.SetPrivacy(ctx, on); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
	}
	on, err := a.prefs.Privacy(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	state := "off"
	if on {
		state = "on"
	}
	fmt.Fprintf(stdout, "Privacy mode: %s\n", state)
	return subcommands.ExitSuccess
}

// currencyCmd shows or changes the display currency.
type currencyCmd struct{}

func (*currencyCmd) Name() string     { return "currency" }
func (*currencyCmd) Synopsis() string { return "display or change the preferred currency" }
func (*currencyCmd) Usage() string {
	return `stacker currency [<code>]

  The preferred currency is used to display market prices. Purchases and
  valuations are always in USD.
`
}

func (c *currencyCmd) SetFlags(f *flag.FlagSet) {}

func (c *currencyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "Error: currency expects a single code")
		return subcommands.ExitUsageError
	}
	a, ok := open(ctx)
	if !ok {
		return subcommands.ExitFailure
	}
	if f.NArg() == 1 {
		if err := a.prefs.SetCurrency(ctx, f.Arg(0)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
	}
	code, err := a.prefs.Currency(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(stdout, "Currency: %s\n", strings.ToUpper(code))
	return subcommands.ExitSuccess
}
