// Package main provides the CLI entry point for redsweep, a throughput
// sweep harness for Redis-compatible servers running in docker.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/weiihann/redsweep/config"
	"github.com/weiihann/redsweep/container"
	"github.com/weiihann/redsweep/harness"
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(logger, level)
	if err := root.ExecuteContext(ctx); err != nil {
		logger.Error("redsweep failed", slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
	verbose    bool
}

func newRootCmd(logger *slog.Logger, level *slog.LevelVar) *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:   "redsweep",
		Short: "Throughput sweeps for Redis-compatible servers",
		Long: `Redsweep starts reference Redis builds and a Redis-compatible
reimplementation in docker, drives them with redis-benchmark across shard
counts, pipeline depths and commands, and writes markdown reports.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if flags.verbose {
				level.Set(slog.LevelDebug)
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "",
		"YAML config file (defaults are built in)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false,
		"Enable debug logging")

	root.AddCommand(
		newScaleCmd(logger, &flags),
		newCompareCmd(logger, &flags),
		newPlanCmd(&flags),
		newConfigCmd(&flags),
	)

	return root
}

func loadConfig(flags *globalFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return config.Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func newManager(cfg config.Config, logger *slog.Logger) *container.Manager {
	return container.NewManager(
		cfg.Docker.Binary,
		cfg.Docker.Host,
		&container.RedisProber{Timeout: cfg.Probe.Timeout},
		cfg.Probe.Attempts,
		cfg.Probe.Interval,
		logger,
	)
}

func newRunner(cfg config.Config, mode string, logger *slog.Logger) (*harness.Runner, error) {
	return harness.NewRunner(
		harness.WrapCommand(cfg.Docker.Binary, cfg.Benchmark.Image, cfg.Benchmark.Binary),
		cfg.Docker.Host,
		harness.BenchParams{
			Requests: cfg.Benchmark.Requests,
			Clients:  cfg.Benchmark.Clients,
			DataSize: cfg.Benchmark.DataSize,
			KeySpace: cfg.Benchmark.KeySpace,
		},
		harness.OutputMode(mode),
		logger,
	)
}

// configDir returns a scratch directory for generated server configs and
// a function that removes it.
func configDir() (string, func(), error) {
	dir, err := os.MkdirTemp("", "redsweep-*")
	if err != nil {
		return "", nil, fmt.Errorf("create config dir: %w", err)
	}

	return dir, func() { os.RemoveAll(dir) }, nil
}

type generator interface {
	Generate(w io.Writer) error
	GenerateJSON(w io.Writer) error
}

// writeReport renders g to path, or to stdout when path is empty or "-".
func writeReport(g generator, path string, asJSON bool) error {
	render := g.Generate
	if asJSON {
		render = g.GenerateJSON
	}

	if path == "" || path == "-" {
		return render(os.Stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report %s: %w", path, err)
	}

	if err := render(f); err != nil {
		f.Close()

		return fmt.Errorf("write report %s: %w", path, err)
	}

	return f.Close()
}
