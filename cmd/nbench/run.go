package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/utkarsh5026/nbench/internal/config"
	"github.com/utkarsh5026/nbench/internal/cpu"
	"github.com/utkarsh5026/nbench/internal/harness"
	"github.com/utkarsh5026/nbench/internal/report"
	"github.com/utkarsh5026/nbench/internal/suite"
)

func runBenchmark(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	logger := newLogger(level)

	cleanup, err := report.SetupProfiling(cmd.ErrOrStderr(), opts.cpuProfile, opts.memProfile)
	if err != nil {
		return err
	}
	defer cleanup()

	var harnessOpts []harness.Option
	text := cfg.Output == config.OutputText
	if text && report.IsTerminal(os.Stderr) {
		progress := report.NewProgress(os.Stderr, cfg.Concurrency, 15)
		defer progress.Close()
		harnessOpts = append(harnessOpts, harness.WithProgress(progress.Handle))
	}

	s, err := suite.New(cfg,
		suite.WithLogger(logger),
		suite.WithHarnessOptions(harnessOpts...),
		suite.WithWatchdogHandler(func(err error) {
			report.Failure(os.Stderr, err)
			os.Exit(1)
		}),
	)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	info := cpu.Info()
	r := report.NewRenderer(out, cfg.AllStats)
	if text {
		r.Banner()
		if err := r.SystemInfo(info); err != nil {
			return err
		}
		if err := r.Settings(cfg, s.MinIterationSeconds()); err != nil {
			return err
		}
	}

	outcomes, err := s.Run(cmd.Context())
	if err != nil {
		return err
	}
	indexes := suite.Indexes(outcomes)

	if !text {
		return report.WriteJSON(out, report.NewDocument(info, cfg, s.MinIterationSeconds(), outcomes, indexes))
	}
	if err := r.Results(outcomes); err != nil {
		return err
	}
	if err := r.Stats(outcomes); err != nil {
		return err
	}
	r.Indexes(indexes)
	return nil
}
