package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/weiihann/redsweep/report"
	"github.com/weiihann/redsweep/sweep"
)

func newScaleCmd(logger *slog.Logger, flags *globalFlags) *cobra.Command {
	var (
		output string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "scale",
		Short: "Sweep the reimplementation across shard counts",
		Long: `Run a reference benchmark against the baseline Redis build, then
restart the reimplementation once per configured shard count and benchmark
each command at each pipeline depth. A shard count whose server never
answers PING is reported as a blank row.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			runner, err := newRunner(cfg, cfg.Scaling.Output, logger)
			if err != nil {
				return err
			}

			dir, cleanup, err := configDir()
			if err != nil {
				return err
			}
			defer cleanup()

			driver := &sweep.Scaling{
				Config:    cfg,
				Servers:   newManager(cfg, logger),
				Bench:     runner,
				ConfigDir: dir,
				Out:       os.Stdout,
				Logger:    logger,
			}

			table, err := driver.Run(ctx)
			if err != nil {
				return fmt.Errorf("scaling sweep: %w", err)
			}

			if output == "" && !asJSON {
				return nil
			}

			if err := writeReport(table, output, asJSON); err != nil {
				return err
			}

			logger.InfoContext(ctx, "scaling sweep complete",
				slog.String("report", output),
			)

			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "",
		"Also write a markdown report to this file (- for stdout)")
	cmd.Flags().BoolVar(&asJSON, "json", false,
		"Write the report as JSON instead of markdown")

	return cmd
}

func newCompareCmd(logger *slog.Logger, flags *globalFlags) *cobra.Command {
	var (
		output string
		asJSON bool
		keep   bool
	)

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare reference Redis builds with the reimplementation",
		Long: `Start every reference server and the reimplementation, then run
redis-benchmark for each command at each pipeline depth against all of them.
The run aborts if any server fails its startup liveness check.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("keep") {
				cfg.Compare.KeepContainers = keep
			}

			runner, err := newRunner(cfg, cfg.Compare.Output, logger)
			if err != nil {
				return err
			}

			dir, cleanup, err := configDir()
			if err != nil {
				return err
			}

			driver := &sweep.Comparison{
				Config:    cfg,
				Servers:   newManager(cfg, logger),
				Bench:     runner,
				ConfigDir: dir,
				Out:       os.Stdout,
				Logger:    logger,
			}

			comp, err := driver.Run(ctx)
			if err != nil {
				cleanup()

				return fmt.Errorf("comparison sweep: %w", err)
			}

			// A kept implementation container still mounts its config.
			if !cfg.Compare.KeepContainers {
				cleanup()
			}

			if err := writeReport(comp, output, asJSON); err != nil {
				return err
			}

			logger.InfoContext(ctx, "comparison complete",
				slog.String("report", output),
				slog.Int("rows", len(comp.Commands)*len(comp.Pipelines)),
			)

			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "BENCHMARK_RESULTS.md",
		"Report file (- for stdout)")
	cmd.Flags().BoolVar(&asJSON, "json", false,
		"Write the report as JSON instead of markdown")
	cmd.Flags().BoolVar(&keep, "keep", false,
		"Leave the server containers running after a successful run")

	return cmd
}

var _ generator = (*report.Comparison)(nil)
var _ generator = (*report.ScalingTable)(nil)
