// Package cmd implements the stacker CLI application to manage a bitcoin DCA ledger.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/dca"
	"github.com/etnz/dca/coingecko"
	"github.com/etnz/dca/market"
	"github.com/etnz/dca/store"
	"github.com/google/subcommands"
	"github.com/prometheus/client_golang/prometheus"
)

// Commands are the subcommands of the application.
var Commands = []subcommands.Command{
	&addCmd{},
	&editCmd{},
	&rmCmd{},
	&lsCmd{},
	&importCmd{},
	&exportCmd{},
	&summaryCmd{},
	&priceCmd{},
	&historyCmd{},
	&watchCmd{},
	&goalCmd{},
	&privacyCmd{},
	&currencyCmd{},
	&serveCmd{},
	&topicCmd{},
}

// groups of Commands, by name.
var groups = map[string]string{
	"add": "ledger", "edit": "ledger", "rm": "ledger", "ls": "ledger",
	"import": "ledger", "export": "ledger",
	"summary": "reports", "price": "reports", "history": "reports", "watch": "reports",
	"goal": "settings", "privacy": "settings", "currency": "settings",
	"serve": "server", "topic": "help",
}

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	for _, cmd := range Commands {
		c.Register(cmd, groups[cmd.Name()])
	}
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	configFile  = flag.String("config", "", "Path to the YAML configuration file. Defaults to $STACKER_CONFIG, then <user config dir>/stacker/config.yaml")
	storeDriver = flag.String("store", "", "Storage driver: file, redis or memory. Overrides the configuration file.")
	dataDir     = flag.String("data", "", "Directory of the file store. Overrides the configuration file.")
	redisAddr   = flag.String("redis", "", "Address of the redis store. Overrides the configuration file.")
	apiKey      = flag.String("coingecko-key", "", "CoinGecko API key. Defaults to $COINGECKO_API_KEY.")
	logLevel    = flag.String("log-level", "", "Log level: debug, info, warn or error.")
	plain       = flag.Bool("plain", false, "Print raw markdown instead of rendering it for the terminal.")
)

// stdout receives command outputs.
var stdout io.Writer = os.Stdout

// app gathers what commands work with.
type app struct {
	cfg    Config
	store  store.Store
	ledger *dca.Ledger
	prefs  *dca.Preferences
	source market.Source
}

// openApp opens the application according to the configuration, flags and environment.
var openApp = func(ctx context.Context) (*app, error) {
	cfg, err := resolveConfig(*configFile, os.Getenv, currentOverrides())
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.LogLevel)
	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg, st, newPriceSource(cfg.CoinGecko))
}

// newApp opens the ledger and preferences in st.
func newApp(ctx context.Context, cfg Config, st store.Store, src market.Source) (*app, error) {
	ledger, err := dca.OpenLedger(ctx, st)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:    cfg,
		store:  st,
		ledger: ledger,
		prefs:  dca.NewPreferences(st),
		source: src,
	}, nil
}

// newPriceSource returns a CoinGecko client.
func newPriceSource(cfg CoinGeckoConfig) *coingecko.Client {
	opts := []coingecko.Option{coingecko.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, coingecko.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, coingecko.WithTimeout(cfg.Timeout))
	}
	return coingecko.New(opts...)
}

// tracker returns a price tracker in currency, seeded with the last saved quote.
// Metrics are registered on reg, unless nil.
func (a *app) tracker(ctx context.Context, currency string, reg prometheus.Registerer) *market.Tracker {
	t := market.NewTracker(a.source, currency,
		market.WithInterval(a.cfg.RefreshInterval),
		market.WithMetrics(market.NewMetrics(reg)),
	)
	if q, ok := loadQuote(ctx, a.store, t.Currency()); ok {
		t.Restore(q)
	}
	return t
}

// open opens the application or prints the error. It is used by Execute methods.
func open(ctx context.Context) (*app, bool) {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening the ledger: %v\n", err)
		return nil, false
	}
	return a, true
}

// printMarkdown prints md to stdout, rendered for the terminal unless -plain is set.
func printMarkdown(md string) {
	if *plain {
		fmt.Fprint(stdout, md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Fprint(stdout, out)
			return
		}
	}
	fmt.Fprint(stdout, md)
}
