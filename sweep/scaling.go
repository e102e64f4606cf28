package sweep

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/weiihann/redsweep/config"
	"github.com/weiihann/redsweep/harness"
	"github.com/weiihann/redsweep/report"
	"github.com/weiihann/redsweep/serverconf"
	"github.com/weiihann/redsweep/workload"
)

// Scaling benchmarks the reimplementation at each configured shard count,
// after one reference run against the baseline server.
type Scaling struct {
	Config    config.Config
	Servers   Lifecycle
	Bench     Benchmarker
	ConfigDir string
	Out       io.Writer
	Logger    *slog.Logger
	Now       func() time.Time
}

// Run executes the sweep. A sweep point whose server fails to start or
// become ready yields a blank row; only cancellation aborts the run.
func (s *Scaling) Run(ctx context.Context) (*report.ScalingTable, error) {
	cfg := s.Config
	baseline := cfg.Servers.References[0]
	impl := cfg.Servers.Implementation

	table := report.NewScalingTable(
		Meta(cfg, "Shard scaling sweep, redis-benchmark "+cfg.Scaling.Output+" output"),
		impl.Name, cfg.Scaling.Commands, cfg.Scaling.Pipelines,
	)

	s.Logger.InfoContext(ctx, "starting shard scaling sweep",
		slog.String("baseline", baseline.Name),
		slog.String("implementation", impl.Name),
		slog.Any("shards", cfg.Scaling.Shards),
	)

	baseStep := workload.BaselineStep(baseline.Name, cfg.Scaling.Commands, cfg.Scaling.Pipelines)
	table.Baseline = s.runBaseline(ctx, table, baseline, baseStep)

	fmt.Fprintln(s.Out, table.Header())
	fmt.Fprintln(s.Out, table.FormatRow(table.Baseline))
	fmt.Fprintln(s.Out, strings.Repeat("-", len(table.Header())))

	plan := workload.ScalingPlan(impl.Name, cfg.Scaling.Shards, cfg.Scaling.Commands, cfg.Scaling.Pipelines)

	for _, step := range plan {
		if err := ctx.Err(); err != nil {
			return table, err
		}

		row := s.runPoint(ctx, table, step)
		table.Add(row)

		fmt.Fprintln(s.Out, table.FormatRow(row))
	}

	// Repeat the baseline under the sweep for side-by-side reading.
	fmt.Fprintln(s.Out, strings.Repeat("-", len(table.Header())))
	fmt.Fprintln(s.Out, table.FormatRow(table.Baseline))

	table.Generated = s.now()

	return table, ctx.Err()
}

func (s *Scaling) runBaseline(
	ctx context.Context,
	table *report.ScalingTable,
	def config.ServerDef,
	step workload.Step,
) report.ScalingRow {
	row := table.BlankRow(def.Name, 0)

	inst, err := s.Servers.Start(ctx, specFor(s.Config, def))
	if err != nil {
		s.Logger.WarnContext(ctx, "baseline failed to start",
			slog.String("error", err.Error()),
		)

		return row
	}
	defer s.Servers.Stop(context.WithoutCancel(ctx), inst)

	if !s.Servers.WaitUntilReady(ctx, inst) {
		return row
	}

	s.measure(ctx, def.Port, step, row.Cells)

	return row
}

func (s *Scaling) runPoint(
	ctx context.Context,
	table *report.ScalingTable,
	step workload.Step,
) report.ScalingRow {
	row := table.BlankRow(report.ShardLabel(step.Shards), step.Shards)
	logger := s.Logger.With(slog.Int("shards", step.Shards))

	path, err := serverconf.Write(s.ConfigDir, s.Config.ServerConfig.WithShards(step.Shards))
	if err != nil {
		logger.WarnContext(ctx, "failed to write server config",
			slog.String("error", err.Error()),
		)

		return row
	}
	defer os.Remove(path)

	inst, err := s.Servers.Start(ctx, implementationSpec(s.Config, path))
	if err != nil {
		logger.WarnContext(ctx, "server failed to start",
			slog.String("error", err.Error()),
		)

		return row
	}
	defer s.Servers.Stop(context.WithoutCancel(ctx), inst)

	if !s.Servers.WaitUntilReady(ctx, inst) {
		logger.WarnContext(ctx, "skipping sweep point", slog.String("reason", ErrNotReady.Error()))

		return row
	}

	s.measure(ctx, s.Config.Servers.Implementation.Port, step, row.Cells)

	return row
}

// measure fills cells in step order.
func (s *Scaling) measure(ctx context.Context, port int, step workload.Step, cells []harness.Throughput) {
	for i, inv := range step.Invocations {
		if ctx.Err() != nil {
			return
		}

		cells[i] = s.Bench.Measure(ctx, port, inv.Command, inv.Pipeline)
	}
}

func (s *Scaling) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}

	return time.Now()
}
