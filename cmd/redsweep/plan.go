package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/weiihann/redsweep/config"
	"github.com/weiihann/redsweep/workload"
)

func newPlanCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:       "plan (scale|compare)",
		Short:     "Print the sweep plan as JSONL without running anything",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"scale", "compare"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			steps, err := planFor(cfg, args[0])
			if err != nil {
				return err
			}

			summary, err := workload.WritePlan(os.Stdout, steps)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "%d rows, %d benchmark invocations\n",
				summary.Steps, summary.Invocations)

			return nil
		},
	}
}

func planFor(cfg config.Config, driver string) ([]workload.Step, error) {
	switch driver {
	case "scale":
		baseline := cfg.Servers.References[0].Name
		steps := []workload.Step{
			workload.BaselineStep(baseline, cfg.Scaling.Commands, cfg.Scaling.Pipelines),
		}

		return append(steps, workload.ScalingPlan(
			cfg.Servers.Implementation.Name,
			cfg.Scaling.Shards, cfg.Scaling.Commands, cfg.Scaling.Pipelines,
		)...), nil

	case "compare":
		names := make([]string, 0, len(cfg.Servers.References)+1)
		for _, s := range cfg.Servers.All() {
			names = append(names, s.Name)
		}

		return workload.ComparisonPlan(cfg.Compare.Pipelines, cfg.Compare.Commands, names), nil

	default:
		return nil, fmt.Errorf("unknown driver %q, want scale or compare", driver)
	}
}

func newConfigCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := config.NewLoader()
			if err != nil {
				return err
			}

			if err := l.LoadFile(flags.configPath); err != nil {
				return err
			}

			if err := l.LoadEnv(); err != nil {
				return err
			}

			out, err := l.YAML()
			if err != nil {
				return fmt.Errorf("render config: %w", err)
			}

			_, err = cmd.OutOrStdout().Write(out)

			return err
		},
	}
}
