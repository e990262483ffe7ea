package main

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/utkarsh5026/nbench/internal/config"
	"github.com/utkarsh5026/nbench/internal/cpu"
	"github.com/utkarsh5026/nbench/internal/kernels"
	"github.com/utkarsh5026/nbench/internal/report"
	"github.com/utkarsh5026/nbench/internal/suite"
)

// options holds the command-line flags. Flags that were set override the
// configuration file.
type options struct {
	configPath  string
	minSeconds  float64
	minIterSecs float64
	concurrency int
	pin         bool
	align       int
	repeat      int
	output      string
	logLevel    string
	watchdog    time.Duration
	tests       []string
	allStats    bool
	nnetData    string
	cpuProfile  string
	memProfile  string
}

func (o *options) register(flags *pflag.FlagSet) {
	flags.StringVarP(&o.configPath, "config", "c", "", "YAML configuration file")
	flags.Float64Var(&o.minSeconds, "min-seconds", 0, "seconds each worker measures a test")
	flags.Float64Var(&o.minIterSecs, "min-iteration-seconds", 0, "calibration threshold (0 derives it from the clock resolution)")
	flags.IntVarP(&o.concurrency, "concurrency", "j", 0, "workers running each test at once")
	flags.BoolVar(&o.pin, "pin", false, "pin each worker to its own core")
	flags.IntVar(&o.align, "align", 0, "array alignment in bytes (0 = natural)")
	flags.IntVarP(&o.repeat, "repeat", "r", 0, "measure every test this many times")
	flags.StringVarP(&o.output, "output", "o", "", "report format: text or json")
	flags.StringVar(&o.logLevel, "log-level", "", "debug, info, warn or error")
	flags.DurationVar(&o.watchdog, "watchdog", 0, "abort a test phase running longer than this")
	flags.StringSliceVarP(&o.tests, "tests", "t", nil, "run only these tests (see 'nbench list')")
	flags.BoolVar(&o.allStats, "all-stats", false, "report iteration counts, sizes and run statistics")
	flags.StringVar(&o.nnetData, "nnet-data", "", "neural net pattern file replacing the built-in letters")
	flags.StringVar(&o.cpuProfile, "cpuprofile", "", "write a CPU profile to this file")
	flags.StringVar(&o.memProfile, "memprofile", "", "write a heap profile to this file")
}

func newRootCmd(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:   "nbench",
		Short: "BYTEmark native mode CPU and FPU benchmark",
		Long: `nbench runs the ten BYTEmark tests, each calibrated until one iteration
takes measurable time, and scores them against a Pentium 90 and an AMD K6/233.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmark(cmd, opts)
		},
	}
	opts.register(root.PersistentFlags())

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run the benchmark suite (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runBenchmark(cmd, opts)
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List the tests and whether the configuration enables them",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig(cmd, opts)
				if err != nil {
					return err
				}
				return report.NewRenderer(cmd.OutOrStdout(), false).TestList(suite.Tests(), cfg)
			},
		},
		&cobra.Command{
			Use:   "sysinfo",
			Short: "Describe the processor",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadConfig(cmd, opts)
				if err != nil {
					return err
				}
				d := cpu.Info()
				if cfg.Output == config.OutputJSON {
					return report.WriteJSON(cmd.OutOrStdout(), d)
				}
				return report.NewRenderer(cmd.OutOrStdout(), false).SystemInfo(d)
			},
		},
	)
	return root
}

// loadConfig reads the configuration file and applies the flags that were
// set on the command line.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("min-seconds") {
		cfg.MinSeconds = opts.minSeconds
	}
	if flags.Changed("min-iteration-seconds") {
		cfg.MinIterationSeconds = opts.minIterSecs
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = opts.concurrency
	}
	if flags.Changed("pin") {
		cfg.PinWorkers = opts.pin
	}
	if flags.Changed("align") {
		cfg.Align = opts.align
	}
	if flags.Changed("repeat") {
		cfg.Repeat = opts.repeat
	}
	if flags.Changed("output") {
		cfg.Output = opts.output
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if flags.Changed("watchdog") {
		cfg.Watchdog = opts.watchdog
	}
	if flags.Changed("tests") {
		cfg.Tests = selectTests(opts.tests)
	}
	if flags.Changed("all-stats") {
		cfg.AllStats = opts.allStats
	}
	if flags.Changed("nnet-data") {
		cfg.NNetData = opts.nnetData
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// selectTests enables exactly the named tests. Unknown names are kept so
// that validation reports them.
func selectTests(names []string) map[string]bool {
	tests := make(map[string]bool, len(kernels.Names()))
	for _, name := range kernels.Names() {
		tests[name] = false
	}
	for _, name := range names {
		tests[name] = true
	}
	return tests
}
