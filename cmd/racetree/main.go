// Command racetree simulates a flat or reverse race tree and prints its
// outputs cycle by cycle.
//
//	racetree flat                      # reference flat tree
//	racetree reverse -c reverse.yaml   # reverse tree from a simulation file
//
package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/db47h/racesim"
	"github.com/db47h/racesim/internal/config"
	"github.com/db47h/racesim/racetree"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	cfgPath string
	verbose bool
	workers int
	cycles  int

	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "racetree",
	Short: "Race logic tree simulator",
	Long: `racetree simulates race logic decision trees, where values are encoded
as the arrival cycle of a rising edge.

Without --config, the reference example of each tree type is simulated.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zc := zap.NewProductionConfig()
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		l, err := zc.Build()
		if err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

var flatCmd = &cobra.Command{
	Use:   "flat",
	Short: "Simulate a flat race tree",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := loadFile(config.FlatExample)
		if err != nil {
			return err
		}
		if f.Flat == nil {
			return errors.New(cfgPath + ": not a flat tree")
		}
		return runFlat(cmd.OutOrStdout(), f)
	},
}

var reverseCmd = &cobra.Command{
	Use:   "reverse",
	Short: "Simulate a reverse race tree",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := loadFile(config.ReverseExample)
		if err != nil {
			return err
		}
		if f.Reverse == nil {
			return errors.New(cfgPath + ": not a reverse tree")
		}
		return runReverse(cmd.OutOrStdout(), f)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "simulation file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "w", 0, "goroutines used for register updates")
	rootCmd.PersistentFlags().IntVar(&cycles, "cycles", 0, "cycles to simulate (default: until the output is final)")
	rootCmd.AddCommand(flatCmd, reverseCmd)
}

func loadFile(example func() *config.File) (*config.File, error) {
	if cfgPath == "" {
		logger.Debug("no simulation file, using reference example")
		return example(), nil
	}
	logger.Debug("loading simulation file", zap.String("path", cfgPath))
	return config.Load(cfgPath)
}

func runFlat(w io.Writer, f *config.File) error {
	t, err := racetree.NewFlat(f.Flat.FlatConfig(), racetree.Workers(workers))
	if err != nil {
		return err
	}
	defer t.Dispose()
	vs, err := f.Values()
	if err != nil {
		return err
	}
	cfg := t.Config()
	logger.Info("flat tree",
		zap.Int("depth", cfg.Depth),
		zap.Int("resolution", cfg.Resolution),
		zap.Strings("attributes", cfg.Attributes),
		zap.Int("components", t.Circuit().Size()),
		zap.Int("registers", t.Circuit().Registers()))

	n := cycles
	if n <= 0 {
		n = int(t.Horizon()) + 1
	}
	tr := racesim.Run(t.Circuit(), t.Stimuli(vs), n)
	printTrace(w, tr)

	d, err := t.Classify(vs)
	if err != nil {
		return err
	}
	ref := racetree.Eval(cfg.Nodes, cfg.Depth, vs)
	logger.Info("decision", zap.Int("leaf", d.Index), zap.Bool("valid", d.Valid), zap.Int("reference", ref))
	fmt.Fprintf(w, "leaf: %d (valid at cycle %v)\n", d.Index, t.Horizon())
	if d.Index != ref {
		return errors.Errorf("decision %d does not match threshold evaluation %d", d.Index, ref)
	}
	return nil
}

func runReverse(w io.Writer, f *config.File) error {
	t, err := racetree.NewReverse(f.Reverse.ReverseConfig(), racetree.Workers(workers))
	if err != nil {
		return err
	}
	defer t.Dispose()
	vs, err := f.Values()
	if err != nil {
		return err
	}
	cfg := t.Config()
	logger.Info("reverse tree",
		zap.Int("depth", cfg.Depth),
		zap.Strings("attributes", cfg.Attributes),
		zap.Ints("constants", t.Constants()),
		zap.Int("components", t.Circuit().Size()),
		zap.Int("registers", t.Circuit().Registers()))

	n := cycles
	if n <= 0 {
		n = t.Horizon()
	}
	printTrace(w, racesim.Run(t.Circuit(), t.Stimuli(vs), n))

	leaf, at, err := t.Classify(vs)
	if err != nil {
		return err
	}
	ref := racetree.Eval(cfg.Nodes, cfg.Depth, vs)
	logger.Info("decision", zap.Int("leaf", leaf), zap.Stringer("label", at), zap.Int("reference", ref))
	fmt.Fprintf(w, "leaf: %d (label %v)\n", leaf, at)
	if leaf != ref {
		return errors.Errorf("decision %d does not match threshold evaluation %d", leaf, ref)
	}
	return nil
}

// printTrace prints one line per cycle and one column per output.
//
func printTrace(w io.Writer, tr *racesim.Trace) {
	tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', 0)
	fmt.Fprintf(tw, "cycle\t%s\n", strings.Join(tr.Outputs, "\t"))
	for c := 0; c < tr.Len(); c++ {
		fmt.Fprint(tw, c)
		for _, o := range tr.Outputs {
			if tr.At(o, racesim.Time(c)) {
				fmt.Fprint(tw, "\t1")
			} else {
				fmt.Fprint(tw, "\t0")
			}
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
