package cmd

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/etnz/dca"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// importCmd imports a JSON or CSV file.
type importCmd struct {
	merge bool
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import purchases from a JSON or CSV file" }
func (*importCmd) Usage() string {
	return `stacker import [-merge] <file>

  Imports purchases from <file>, or from the standard input if <file> is "-".
  The format, JSON or CSV, is detected from the content.

  WARNING: by default the import REPLACES every recorded purchase. Use -merge to
  only add the purchases that are not recorded yet.

  See "stacker topic formats" for the file formats.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.merge, "merge", false, "Add new purchases instead of replacing the ledger")
}

// Predict completes the file argument.
func (c *importCmd) Predict() complete.Predictor { return predict.Files("*") }

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: import expects exactly one file")
		return subcommands.ExitUsageError
	}
	name := f.Arg(0)
	var data []byte
	var err error
	if name == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %q: %v\n", name, err)
		return subcommands.ExitFailure
	}

	a, ok := open(ctx)
	if !ok {
		return subcommands.ExitFailure
	}
	mode := dca.ImportReplace
	if c.merge {
		mode = dca.ImportMerge
	}
	res, err := a.ledger.Import(ctx, data, mode)
	if errors.Is(err, dca.ErrUnrecognizedFormat) {
		fmt.Fprintf(os.Stderr, "Error importing %q: %v\nSee \"stacker topic formats\" for the supported formats.\n", name, err)
		return subcommands.ExitFailure
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error importing %q: %v\n", name, err)
		return subcommands.ExitFailure
	}
	if c.merge {
		fmt.Fprintf(stdout, "Merged %d new purchase(s) out of %d from %s\n", res.Adopted, res.Decoded, res.Format)
	} else {
		fmt.Fprintf(stdout, "Imported %d purchase(s) from %s, replacing the ledger\n", res.Adopted, res.Format)
	}
	return subcommands.ExitSuccess
}

// exportCmd exports the ledger.
type exportCmd struct {
	format string
	output string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "export purchases to JSON or CSV" }
func (*exportCmd) Usage() string {
	return `stacker export [-f json|csv] [-o <file>]

  Exports every purchase to <file>, or to the standard output.
  The format defaults to the file extension, then to JSON.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.format, "f", "", "Export format: json or csv")
	f.StringVar(&c.output, "o", "", "Output file. Defaults to the standard output.")
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	format := dca.FormatJSON
	switch {
	case c.format != "":
		var err error
		if format, err = dca.ParseFormat(c.format); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
	case c.output != "":
		if ext, err := dca.ParseFormat(filepath.Ext(c.output)); err == nil {
			format = ext
		}
	}

	a, ok := open(ctx)
	if !ok {
		return subcommands.ExitFailure
	}
	entries := a.ledger.Snapshot()
	var b bytes.Buffer
	if err := dca.Export(&b, entries, format); err != nil {
		fmt.Fprintf(os.Stderr, "Error exporting: %v\n", err)
		return subcommands.ExitFailure
	}

	if c.output == "" {
		stdout.Write(b.Bytes())
		return subcommands.ExitSuccess
	}
	// exports hold the whole ledger, keep them private.
	if err := os.WriteFile(c.output, b.Bytes(), 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %q: %v\n", c.output, err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(stdout, "Exported %d purchase(s) to %s\n", len(entries), c.output)
	return subcommands.ExitSuccess
}
