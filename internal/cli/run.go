// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cli

import (
	"errors"

	"code.hybscloud.com/disruptor/internal/bench"
	"code.hybscloud.com/disruptor/internal/logging"
	"github.com/spf13/cobra"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	ConfigPath string
	Config     bench.Config
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	cmd, _ := newRunCommand(rootOpts)
	return cmd
}

func newRunCommand(rootOpts *RootOptions) (*cobra.Command, *RunOptions) {
	opts := &RunOptions{RootOptions: rootOpts, Config: bench.DefaultConfig()}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a throughput benchmark",
		Long: `Run publishes events through a ring buffer and reports throughput.

Settings come from defaults, then the --config YAML file, then flags
given on the command line.

Example:
  ringbench run --producers 4 --claim multi --mode workers --consumers 4
  ringbench run --config bench.yaml --wait busyspin`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.ConfigPath, "config", "c", "", "YAML config file")
	f.IntVar(&opts.Config.Size, "size", opts.Config.Size, "ring size (rounded up to a power of 2)")
	f.IntVar(&opts.Config.Producers, "producers", opts.Config.Producers, "number of producer goroutines")
	f.IntVar(&opts.Config.Consumers, "consumers", opts.Config.Consumers, "number of consumers")
	f.StringVar(&opts.Config.Mode, "mode", opts.Config.Mode, "consumer topology (pipeline|fanout|workers)")
	f.StringVar(&opts.Config.Claim, "claim", opts.Config.Claim, "claim strategy (single|multi|pending|lowcontention)")
	f.StringVar(&opts.Config.Wait, "wait", opts.Config.Wait, "wait strategy (blocking|sleeping|yielding|busyspin)")
	f.Int64Var(&opts.Config.Events, "events", opts.Config.Events, "total events to publish")
	f.IntVar(&opts.Config.Batch, "batch", opts.Config.Batch, "sequences claimed per publish")
	f.IntVar(&opts.Config.Pending, "pending", opts.Config.Pending, "pending-publication ring size for --claim pending (0 = ring size)")

	return cmd, opts
}

// resolveConfig layers explicitly set flags over the config file.
func resolveConfig(cmd *cobra.Command, opts *RunOptions) (bench.Config, error) {
	if opts.ConfigPath == "" {
		cfg := opts.Config
		return cfg, cfg.Validate()
	}

	cfg, err := bench.LoadConfig(opts.ConfigPath)
	if err != nil {
		return cfg, err
	}

	f := cmd.Flags()
	if f.Changed("size") {
		cfg.Size = opts.Config.Size
	}
	if f.Changed("producers") {
		cfg.Producers = opts.Config.Producers
	}
	if f.Changed("consumers") {
		cfg.Consumers = opts.Config.Consumers
	}
	if f.Changed("mode") {
		cfg.Mode = opts.Config.Mode
	}
	if f.Changed("claim") {
		cfg.Claim = opts.Config.Claim
	}
	if f.Changed("wait") {
		cfg.Wait = opts.Config.Wait
	}
	if f.Changed("events") {
		cfg.Events = opts.Config.Events
	}
	if f.Changed("batch") {
		cfg.Batch = opts.Config.Batch
	}
	if f.Changed("pending") {
		cfg.Pending = opts.Config.Pending
	}
	return cfg, cfg.Validate()
}

// installLogger makes the logger requested by the flags the default for
// the rest of the command: a rotating file, or the console when verbose.
// Without either flag the package default stays, configured by
// DISRUPTOR_LOGGING_LEVEL and DISRUPTOR_LOGGING_FILE. The returned restore
// flushes the installed logger and reinstates the previous one.
func installLogger(opts *RootOptions) (restore func(), err error) {
	var (
		logger logging.Logger
		flush  logging.Flusher
	)
	switch {
	case opts.LogFile != "":
		level := logging.InfoLevel
		if opts.Verbose {
			level = logging.DebugLevel
		}
		logger, flush, err = logging.CreateLoggerAsLocalFile(opts.LogFile, level)
		if err != nil {
			return nil, err
		}
	case opts.Verbose:
		logger, flush = logging.NewConsoleLogger(logging.DebugLevel)
	default:
		return func() {}, nil
	}

	prev, prevFlush := logging.GetDefaultLogger(), logging.GetDefaultFlusher()
	logging.SetDefaultLoggerAndFlusher(logger, flush)
	return func() {
		logging.Cleanup()
		logging.SetDefaultLoggerAndFlusher(prev, prevFlush)
	}, nil
}

func runBench(cmd *cobra.Command, opts *RunOptions) error {
	out := &OutputFormatter{Writer: cmd.OutOrStdout(), Format: opts.Format}

	cfg, err := resolveConfig(cmd, opts)
	if err != nil {
		_ = out.Error(err)
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	restore, err := installLogger(opts.RootOptions)
	if err != nil {
		_ = out.Error(err)
		return WrapExitError(ExitCommandError, "failed to create logger", err)
	}
	defer restore()

	res, err := bench.Run(cfg, logging.GetDefaultLogger())
	if err != nil {
		logging.Error(err)
		_ = out.Error(err)
		if errors.Is(err, bench.ErrChecksum) {
			return WrapExitError(ExitFailure, "benchmark failed", err)
		}
		return WrapExitError(ExitCommandError, "benchmark could not start", err)
	}

	return out.Success(res)
}
