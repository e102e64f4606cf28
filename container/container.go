// Package container starts, probes and removes server containers through the
// docker CLI.
package container

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// State is the lifecycle position of an Instance.
type State int

const (
	Absent State = iota
	Starting
	Ready
	Stopped
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Starting:
		return "starting"
	case Ready:
		return "ready"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Mount is a bind mount from the host into the container.
type Mount struct {
	HostPath      string
	ContainerPath string
	ReadOnly      bool
}

// Spec describes a server container.
type Spec struct {
	Name          string
	Image         string
	HostPort      int
	ContainerPort int
	CPUs          string
	Memory        string
	Mounts        []Mount
	Env           []string
	Args          []string
}

// Instance is a container started by a Manager.
type Instance struct {
	Spec  Spec
	ID    string
	Addr  string
	State State
}

// Manager runs docker commands for server instances.
type Manager struct {
	Docker   string
	Host     string
	Prober   Prober
	Attempts int
	Interval time.Duration
	Logger   *slog.Logger
}

// NewManager creates a Manager. Instances are reached on host at their
// mapped port; readiness is polled up to attempts times, interval apart.
func NewManager(
	docker, host string,
	prober Prober,
	attempts int,
	interval time.Duration,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		Docker:   docker,
		Host:     host,
		Prober:   prober,
		Attempts: attempts,
		Interval: interval,
		Logger:   logger,
	}
}

// Start removes any container left over under spec.Name and launches a new
// one in the background.
func (m *Manager) Start(ctx context.Context, spec Spec) (*Instance, error) {
	logger := m.Logger.With(slog.String("server", spec.Name))

	// A missing container makes rm fail; that is the expected case.
	if _, err := m.docker(ctx, "rm", "-f", spec.Name); err != nil {
		logger.DebugContext(ctx, "no previous container removed",
			slog.String("error", err.Error()),
		)
	}

	logger.InfoContext(ctx, "starting container",
		slog.String("image", spec.Image),
		slog.Int("port", spec.HostPort),
	)

	out, err := m.docker(ctx, RunArgs(spec)...)
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", spec.Name, err)
	}

	return &Instance{
		Spec:  spec,
		ID:    strings.TrimSpace(out),
		Addr:  net.JoinHostPort(m.Host, strconv.Itoa(spec.HostPort)),
		State: Starting,
	}, nil
}

// WaitUntilReady polls the instance until it answers PONG or the configured
// attempts are used up.
func (m *Manager) WaitUntilReady(ctx context.Context, inst *Instance) bool {
	start := time.Now()
	ready := WaitUntilReady(ctx, m.Prober, inst.Addr, m.Attempts, m.Interval)

	logger := m.Logger.With(slog.String("server", inst.Spec.Name))

	if !ready {
		logger.WarnContext(ctx, "server did not become ready",
			slog.String("addr", inst.Addr),
			slog.Int("attempts", m.Attempts),
		)

		return false
	}

	inst.State = Ready
	logger.InfoContext(ctx, "server ready",
		slog.Duration("waited", time.Since(start)),
	)

	return true
}

// Stop force-removes the instance. Failures are logged and otherwise ignored.
func (m *Manager) Stop(ctx context.Context, inst *Instance) {
	if inst == nil || inst.State == Stopped {
		return
	}

	if _, err := m.docker(ctx, "rm", "-f", inst.Spec.Name); err != nil {
		m.Logger.WarnContext(ctx, "failed to remove container",
			slog.String("server", inst.Spec.Name),
			slog.String("error", err.Error()),
		)
	}

	inst.State = Stopped
}

// RunArgs builds the docker arguments that start spec detached.
func RunArgs(spec Spec) []string {
	args := []string{
		"run", "-d",
		"--name", spec.Name,
		"-p", fmt.Sprintf("%d:%d", spec.HostPort, spec.ContainerPort),
	}

	if spec.CPUs != "" {
		args = append(args, "--cpus", spec.CPUs)
	}

	if spec.Memory != "" {
		args = append(args, "--memory", spec.Memory)
	}

	for _, mnt := range spec.Mounts {
		v := mnt.HostPath + ":" + mnt.ContainerPath
		if mnt.ReadOnly {
			v += ":ro"
		}

		args = append(args, "-v", v)
	}

	for _, e := range spec.Env {
		args = append(args, "-e", e)
	}

	args = append(args, spec.Image)

	return append(args, spec.Args...)
}

func (m *Manager) docker(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, m.Docker, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf(
			"docker %s: %w\nstderr: %s",
			args[0], err, strings.TrimSpace(stderr.String()),
		)
	}

	return stdout.String(), nil
}
