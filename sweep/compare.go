package sweep

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/weiihann/redsweep/config"
	"github.com/weiihann/redsweep/container"
	"github.com/weiihann/redsweep/report"
	"github.com/weiihann/redsweep/serverconf"
	"github.com/weiihann/redsweep/workload"
)

// Comparison benchmarks every reference server and the reimplementation
// over the same commands and pipeline depths.
type Comparison struct {
	Config    config.Config
	Servers   Lifecycle
	Bench     Benchmarker
	ConfigDir string
	Out       io.Writer
	Logger    *slog.Logger
	Now       func() time.Time
}

// Run starts all servers once, fails if any of them is not ready, then
// measures each (pipeline, command, server) triple in plan order. Servers
// are removed afterwards unless the run succeeded with keep_containers set.
func (c *Comparison) Run(ctx context.Context) (comp *report.Comparison, err error) {
	cfg := c.Config

	path, err := serverconf.Write(c.ConfigDir, cfg.ServerConfig)
	if err != nil {
		return nil, fmt.Errorf("write server config: %w", err)
	}

	defs := cfg.Servers.All()
	ports := make(map[string]int, len(defs))
	instances := make([]*container.Instance, 0, len(defs))

	defer func() {
		if err == nil && cfg.Compare.KeepContainers {
			c.Logger.InfoContext(ctx, "leaving containers running",
				slog.String("server_config", path),
			)

			return
		}

		for _, inst := range instances {
			c.Servers.Stop(context.WithoutCancel(ctx), inst)
		}

		os.Remove(path)
	}()

	for _, def := range defs {
		spec := specFor(cfg, def)
		if def.Name == cfg.Servers.Implementation.Name {
			spec = implementationSpec(cfg, path)
		}

		inst, err := c.Servers.Start(ctx, spec)
		if err != nil {
			return nil, fmt.Errorf("start %s: %w", def.Name, err)
		}

		instances = append(instances, inst)
		ports[def.Name] = def.Port
	}

	for i, inst := range instances {
		if !c.Servers.WaitUntilReady(ctx, inst) {
			return nil, fmt.Errorf("%s: %w", defs[i].Name, ErrNotReady)
		}
	}

	references := make([]string, len(cfg.Servers.References))
	for i, r := range cfg.Servers.References {
		references[i] = r.Name
	}

	comp = report.NewComparison(
		cfg.Compare.Title,
		Meta(cfg, "redis-benchmark "+cfg.Compare.Output+" output, servers in docker"),
		cfg.Compare.Pipelines,
		cfg.Compare.Commands,
		references,
		cfg.Servers.Implementation.Name,
		cfg.Compare.Baseline,
	)

	plan := workload.ComparisonPlan(cfg.Compare.Pipelines, cfg.Compare.Commands, comp.Servers())

	c.Logger.InfoContext(ctx, "starting comparison sweep",
		slog.Int("rows", len(plan)),
		slog.Any("servers", comp.Servers()),
	)

	fmt.Fprintln(c.Out, comp.ConsoleHeader())

	for _, step := range plan {
		if err := ctx.Err(); err != nil {
			return comp, err
		}

		for _, inv := range step.Invocations {
			rps := c.Bench.Measure(ctx, ports[inv.Server], inv.Command, inv.Pipeline)
			comp.Record(inv.Pipeline, inv.Command, inv.Server, rps)
		}

		fmt.Fprintln(c.Out, comp.ConsoleRow(step.Pipeline, step.Command))
	}

	for _, p := range cfg.Compare.Pipelines {
		fmt.Fprintf(c.Out, "\n%s relative to %s at P=%d:\n",
			comp.Implementation, comp.Baseline, p)

		for _, line := range comp.SummaryLines(p) {
			fmt.Fprintf(c.Out, "  %s\n", line)
		}
	}

	comp.Generated = c.now()

	return comp, nil
}

func (c *Comparison) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}

	return time.Now()
}
