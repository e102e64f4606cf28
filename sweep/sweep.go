// Package sweep drives the shard-scaling and version-comparison benchmark
// runs. Both run strictly sequentially: one container start or benchmark
// invocation at a time.
package sweep

import (
	"context"
	"errors"

	"github.com/weiihann/redsweep/config"
	"github.com/weiihann/redsweep/container"
	"github.com/weiihann/redsweep/harness"
	"github.com/weiihann/redsweep/report"
)

// ErrNotReady is returned when a server never answers its liveness probe.
var ErrNotReady = errors.New("server did not become ready")

// Lifecycle starts, probes and removes server containers.
type Lifecycle interface {
	Start(ctx context.Context, spec container.Spec) (*container.Instance, error)
	WaitUntilReady(ctx context.Context, inst *container.Instance) bool
	Stop(ctx context.Context, inst *container.Instance)
}

// Benchmarker measures one command at one pipeline depth against the
// server on port. An absent Throughput means the run produced nothing.
type Benchmarker interface {
	Measure(ctx context.Context, port int, command string, pipeline int) harness.Throughput
}

// ContainerName is the docker name used for a server.
func ContainerName(server string) string {
	return "redsweep-" + server
}

// specFor builds the container spec for def under the shared docker limits.
func specFor(cfg config.Config, def config.ServerDef) container.Spec {
	return container.Spec{
		Name:          ContainerName(def.Name),
		Image:         def.Image,
		HostPort:      def.Port,
		ContainerPort: def.ContainerPort,
		CPUs:          cfg.Docker.CPUs,
		Memory:        cfg.Docker.Memory,
		Args:          def.Args,
	}
}

// implementationSpec mounts the generated server config read-only into the
// reimplementation's container.
func implementationSpec(cfg config.Config, configFile string) container.Spec {
	spec := specFor(cfg, cfg.Servers.Implementation)

	if configFile == "" || cfg.Servers.ConfigPath == "" {
		return spec
	}

	spec.Mounts = []container.Mount{{
		HostPath:      configFile,
		ContainerPath: cfg.Servers.ConfigPath,
		ReadOnly:      true,
	}}

	if cfg.Servers.ConfigEnv != "" {
		spec.Env = []string{cfg.Servers.ConfigEnv + "=" + cfg.Servers.ConfigPath}
	}

	return spec
}

// Meta describes the run for report headers.
func Meta(cfg config.Config, method string) report.Meta {
	return report.Meta{
		Method:   method,
		CPUs:     cfg.Docker.CPUs,
		Memory:   cfg.Docker.Memory,
		Requests: cfg.Benchmark.Requests,
		Clients:  cfg.Benchmark.Clients,
		DataSize: cfg.Benchmark.DataSize,
		KeySpace: cfg.Benchmark.KeySpace,
	}
}
