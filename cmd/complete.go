package cmd

import (
	"flag"

	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// flagPredictors completes flag values by flag name. Other flags accept anything.
var flagPredictors = map[string]complete.Predictor{
	"f":         predict.Set{"json", "csv"},
	"o":         predict.Files("*"),
	"config":    predict.Files("*.yaml"),
	"data":      predict.Dirs("*"),
	"store":     predict.Set{"file", "redis", "memory"},
	"log-level": predict.Set{"debug", "info", "warn", "error"},
}

// argPredictor is implemented by commands completing their arguments.
type argPredictor interface {
	Predict() complete.Predictor
}

// Completion returns the shell completion of the application, whose global flags
// are defined in global.
//
// Run it with Complete(name) before parsing flags, see
// https://github.com/posener/complete for installing it in the shell.
func Completion(global *flag.FlagSet) *complete.Command {
	root := &complete.Command{
		Sub:   make(map[string]*complete.Command),
		Flags: predictFlags(global),
	}
	for _, c := range Commands {
		f := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
		c.SetFlags(f)
		sub := &complete.Command{Flags: predictFlags(f)}
		if p, ok := c.(argPredictor); ok {
			sub.Args = p.Predict()
		}
		root.Sub[c.Name()] = sub
	}
	names := make(predict.Set, 0, len(Commands))
	for _, c := range Commands {
		names = append(names, c.Name())
	}
	root.Sub["help"] = &complete.Command{Args: names}
	return root
}

func predictFlags(f *flag.FlagSet) map[string]complete.Predictor {
	flags := make(map[string]complete.Predictor)
	f.VisitAll(func(fl *flag.Flag) {
		if b, ok := fl.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
			flags[fl.Name] = predict.Nothing
			return
		}
		if p, ok := flagPredictors[fl.Name]; ok {
			flags[fl.Name] = p
			return
		}
		flags[fl.Name] = predict.Something
	})
	return flags
}
