// Package workload enumerates the sweep points of a benchmark run. A plan is
// fixed before the first container starts, so every result row is bound to
// its shard count, command, pipeline depth and server up front.
package workload

import (
	"encoding/json"
	"fmt"
	"io"
)

// Invocation is a single redis-benchmark run.
type Invocation struct {
	Server   string `json:"server"`
	Command  string `json:"command"`
	Pipeline int    `json:"pipeline"`
}

// Step is one report row and the invocations that fill it.
type Step struct {
	Driver      string       `json:"driver"`
	Shards      int          `json:"shards,omitempty"`
	Command     string       `json:"command,omitempty"`
	Pipeline    int          `json:"pipeline,omitempty"`
	Invocations []Invocation `json:"invocations"`
}

// Summary contains statistics about a plan.
type Summary struct {
	Steps       int
	Invocations int
}

// Columns lists the invocations of a scaling row against server, pipeline
// depth major: every command at the first depth, then the next depth.
func Columns(server string, commands []string, pipelines []int) []Invocation {
	cols := make([]Invocation, 0, len(commands)*len(pipelines))

	for _, p := range pipelines {
		for _, c := range commands {
			cols = append(cols, Invocation{Server: server, Command: c, Pipeline: p})
		}
	}

	return cols
}

// BaselineStep is the single reference row measured before a scaling sweep.
func BaselineStep(server string, commands []string, pipelines []int) Step {
	return Step{
		Driver:      "scale",
		Invocations: Columns(server, commands, pipelines),
	}
}

// ScalingPlan returns one step per shard count, in the given order.
func ScalingPlan(
	server string,
	shards []int,
	commands []string,
	pipelines []int,
) []Step {
	steps := make([]Step, 0, len(shards))

	for _, n := range shards {
		steps = append(steps, Step{
			Driver:      "scale",
			Shards:      n,
			Invocations: Columns(server, commands, pipelines),
		})
	}

	return steps
}

// ComparisonPlan returns one step per (pipeline, command) pair, each
// benchmarking every server in order.
func ComparisonPlan(pipelines []int, commands []string, servers []string) []Step {
	steps := make([]Step, 0, len(pipelines)*len(commands))

	for _, p := range pipelines {
		for _, c := range commands {
			invs := make([]Invocation, 0, len(servers))
			for _, s := range servers {
				invs = append(invs, Invocation{Server: s, Command: c, Pipeline: p})
			}

			steps = append(steps, Step{
				Driver:      "compare",
				Command:     c,
				Pipeline:    p,
				Invocations: invs,
			})
		}
	}

	return steps
}

// WritePlan writes steps as JSONL to w and returns a Summary.
func WritePlan(w io.Writer, steps []Step) (Summary, error) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	var summary Summary

	for _, s := range steps {
		if err := enc.Encode(s); err != nil {
			return summary, fmt.Errorf("encode step: %w", err)
		}

		summary.Steps++
		summary.Invocations += len(s.Invocations)
	}

	return summary, nil
}
