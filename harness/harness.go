package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"time"
)

// ErrEmptyOutput is returned when redis-benchmark exits cleanly but prints
// nothing.
var ErrEmptyOutput = errors.New("benchmark produced no output")

// BenchParams are the redis-benchmark settings held fixed across a sweep.
type BenchParams struct {
	Requests int
	Clients  int
	DataSize int
	KeySpace int
}

// Runner invokes redis-benchmark and extracts throughput from its output.
type Runner struct {
	Command   CommandConfig
	Host      string
	Params    BenchParams
	Mode      OutputMode
	Extractor Extractor
	Logger    *slog.Logger
}

// NewRunner creates a Runner whose output format and parser follow mode.
func NewRunner(
	command CommandConfig,
	host string,
	params BenchParams,
	mode OutputMode,
	logger *slog.Logger,
) (*Runner, error) {
	extractor, err := NewExtractor(mode)
	if err != nil {
		return nil, err
	}

	return &Runner{
		Command:   command,
		Host:      host,
		Params:    params,
		Mode:      mode,
		Extractor: extractor,
		Logger:    logger,
	}, nil
}

// Args returns the redis-benchmark arguments for one invocation.
func (r *Runner) Args(port int, command string, pipeline int) []string {
	args := []string{
		"-h", r.Host,
		"-p", strconv.Itoa(port),
		"-n", strconv.Itoa(r.Params.Requests),
		"-c", strconv.Itoa(r.Params.Clients),
		"-P", strconv.Itoa(pipeline),
	}

	if r.Params.DataSize > 0 {
		args = append(args, "-d", strconv.Itoa(r.Params.DataSize))
	}

	if r.Params.KeySpace > 0 {
		args = append(args, "-r", strconv.Itoa(r.Params.KeySpace))
	}

	args = append(args, "-t", command)

	return append(args, r.Mode.Flag())
}

// Invoke runs redis-benchmark once and returns its stdout. There are no
// retries: a nonzero exit or empty output is returned as an error.
func (r *Runner) Invoke(
	ctx context.Context,
	port int,
	command string,
	pipeline int,
) (string, error) {
	args := make([]string, 0, len(r.Command.ExtraArgs)+20)
	args = append(args, r.Command.ExtraArgs...)
	args = append(args, r.Args(port, command, pipeline)...)

	cmd := exec.CommandContext(ctx, r.Command.Binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf(
			"benchmark %s -P %d on port %d failed: %w\nstderr: %s",
			command, pipeline, port, err, stderr.String(),
		)
	}

	if len(bytes.TrimSpace(stdout.Bytes())) == 0 {
		return "", fmt.Errorf("benchmark %s -P %d on port %d: %w",
			command, pipeline, port, ErrEmptyOutput)
	}

	return stdout.String(), nil
}

// Measure invokes the benchmark and extracts the throughput for command.
// Failures are logged and yield an absent Throughput.
func (r *Runner) Measure(
	ctx context.Context,
	port int,
	command string,
	pipeline int,
) Throughput {
	logger := r.Logger.With(
		slog.String("command", command),
		slog.Int("pipeline", pipeline),
		slog.Int("port", port),
	)

	start := time.Now()

	out, err := r.Invoke(ctx, port, command, pipeline)
	if err != nil {
		logger.WarnContext(ctx, "benchmark failed",
			slog.String("error", err.Error()),
		)

		return Throughput{}
	}

	rps, ok := r.Extractor.Extract(out, command)
	if !ok {
		logger.WarnContext(ctx, "no throughput in benchmark output",
			slog.String("mode", string(r.Mode)),
		)

		return Throughput{}
	}

	logger.InfoContext(ctx, "benchmark finished",
		slog.Float64("rps", rps),
		slog.Duration("wall_time", time.Since(start)),
	)

	return Measured(rps)
}
