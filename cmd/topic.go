package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/etnz/dca/docs"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
	"github.com/rs/zerolog/log"
)

type topicCmd struct {
	list bool
}

func (*topicCmd) Name() string     { return "topic" }
func (*topicCmd) Synopsis() string { return "show documentation" }
func (*topicCmd) Usage() string {
	return `stacker topic [-list] [<topic>...]

  Shows documentation for the given topics, "*" for all of them.
  Without topic it shows the introduction, -list lists the topics.
`
}

func (c *topicCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.list, "list", false, "List the topics with their title")
}

// Predict completes topic names.
func (c *topicCmd) Predict() complete.Predictor {
	topics, err := docs.Topics()
	if err != nil {
		log.Debug().Err(err).Msg("cannot list topics for completion")
		return predict.Nothing
	}
	names := make(predict.Set, 0, len(topics)+1)
	for _, t := range topics {
		names = append(names, t.Name)
	}
	return append(names, docs.All)
}

func (c *topicCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.list {
		if err := listTopics(stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error listing topics: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	names := f.Args()
	if len(names) == 0 {
		names = []string{docs.Index}
	}
	doc, err := docs.Read(names...)
	if errors.Is(err, docs.ErrUnknownTopic) {
		fmt.Fprintf(os.Stderr, "Error: %v, use 'stacker topic -list'\n", err)
		return subcommands.ExitUsageError
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading doc: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(doc)
	return subcommands.ExitSuccess
}

// listTopics writes one line per topic: its name and its title.
func listTopics(w io.Writer) error {
	topics, err := docs.Topics()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	for _, t := range topics {
		fmt.Fprintf(tw, "%s\t%s\n", t.Name, t.Title)
	}
	return tw.Flush()
}
