package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/etnz/dca"
	"github.com/etnz/dca/server"
	"github.com/google/subcommands"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// serveCmd serves the ledger over HTTP.
type serveCmd struct {
	addr string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the ledger over HTTP" }
func (*serveCmd) Usage() string {
	return `stacker serve [-addr <host:port>]

  Serves a summary page on /, a JSON API on /api, metrics on /metrics and a
  websocket price stream on /ws/price, until interrupted.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "", "Listen address. Defaults to the configured one.")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, ok := open(ctx)
	if !ok {
		return subcommands.ExitFailure
	}
	addr := a.cfg.Listen
	if c.addr != "" {
		addr = c.addr
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	tracker := a.tracker(ctx, dca.DefaultCurrency, reg)
	srv := server.New(a.ledger, a.prefs, tracker, reg)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	fmt.Fprintf(stdout, "Serving on http://%s\n", addr)
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		fmt.Fprintf(os.Stderr, "Error serving: %v\n", err)
		return subcommands.ExitFailure
	}
	saveQuote(context.Background(), a.store, tracker.Quote())
	return subcommands.ExitSuccess
}
