package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"code.cloudfoundry.org/bytefmt"

	"github.com/weiihann/redsweep/harness"
)

// Meta describes how the figures in a report were produced.
type Meta struct {
	Method   string
	CPUs     string
	Memory   string
	Requests int
	Clients  int
	DataSize int
	KeySpace int
}

type key struct {
	pipeline int
	command  string
	server   string
}

// Comparison collects throughput per (pipeline, command, server) while a
// sweep runs and renders it once at the end.
type Comparison struct {
	Title          string
	Meta           Meta
	Pipelines      []int
	Commands       []string
	References     []string
	Implementation string
	Baseline       string
	Generated      time.Time

	results map[key]harness.Throughput
}

// Row is one rendered line of a comparison table.
type Row struct {
	Command string
	Cells   []harness.Throughput
	Percent string
}

// NewComparison creates an empty Comparison. Columns are the references in
// order followed by the implementation; the percentage column is the
// implementation relative to baseline.
func NewComparison(
	title string,
	meta Meta,
	pipelines []int,
	commands []string,
	references []string,
	implementation string,
	baseline string,
) *Comparison {
	return &Comparison{
		Title:          title,
		Meta:           meta,
		Pipelines:      pipelines,
		Commands:       commands,
		References:     references,
		Implementation: implementation,
		Baseline:       baseline,
		results:        make(map[key]harness.Throughput),
	}
}

// Servers returns the column order.
func (c *Comparison) Servers() []string {
	servers := make([]string, 0, len(c.References)+1)
	servers = append(servers, c.References...)

	return append(servers, c.Implementation)
}

// Record stores a figure for one invocation.
func (c *Comparison) Record(pipeline int, command, server string, t harness.Throughput) {
	c.results[key{pipeline, command, server}] = t
}

// Lookup returns the recorded figure, absent if none was recorded.
func (c *Comparison) Lookup(pipeline int, command, server string) harness.Throughput {
	return c.results[key{pipeline, command, server}]
}

// Percentage is the implementation's throughput as a share of baseline's.
func (c *Comparison) Percentage(pipeline int, command string) string {
	return Percentage(
		c.Lookup(pipeline, command, c.Implementation).String(),
		c.Lookup(pipeline, command, c.Baseline).String(),
	)
}

// Row assembles the table row for one command at one depth.
func (c *Comparison) Row(pipeline int, command string) Row {
	servers := c.Servers()
	cells := make([]harness.Throughput, len(servers))

	for i, s := range servers {
		cells[i] = c.Lookup(pipeline, command, s)
	}

	return Row{
		Command: command,
		Cells:   cells,
		Percent: c.Percentage(pipeline, command),
	}
}

// Rows returns one row per command at pipeline, whether or not anything
// was recorded for it.
func (c *Comparison) Rows(pipeline int) []Row {
	rows := make([]Row, 0, len(c.Commands))
	for _, cmd := range c.Commands {
		rows = append(rows, c.Row(pipeline, cmd))
	}

	return rows
}

// ConsoleHeader is the column header printed before live rows.
func (c *Comparison) ConsoleHeader() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%-5s %-14s", "P", "Command")
	for _, s := range c.Servers() {
		fmt.Fprintf(&b, " %14s", s)
	}
	fmt.Fprintf(&b, " %8s", "%")

	return b.String()
}

// ConsoleRow formats a row for the live log.
func (c *Comparison) ConsoleRow(pipeline int, command string) string {
	row := c.Row(pipeline, command)

	var b strings.Builder

	fmt.Fprintf(&b, "%-5s %-14s", fmt.Sprintf("P=%d", pipeline), strings.ToUpper(row.Command))
	for _, cell := range row.Cells {
		fmt.Fprintf(&b, " %14s", cell.String())
	}
	fmt.Fprintf(&b, " %8s", row.Percent)

	return b.String()
}

// SummaryLines restates every percentage at pipeline.
func (c *Comparison) SummaryLines(pipeline int) []string {
	lines := make([]string, 0, len(c.Commands))

	for _, cmd := range c.Commands {
		pct := c.Percentage(pipeline, cmd)
		if pct != NotApplicable {
			pct += "%"
		}

		lines = append(lines, fmt.Sprintf("%s: %s", strings.ToUpper(cmd), pct))
	}

	return lines
}

// Generate writes the markdown report.
func (c *Comparison) Generate(w io.Writer) error {
	if len(c.Commands) == 0 || len(c.Pipelines) == 0 {
		return fmt.Errorf("no results to report")
	}

	fmt.Fprintf(w, "# %s\n\n", c.Title)
	writeMeta(w, c.Meta)

	servers := c.Servers()

	for _, p := range c.Pipelines {
		fmt.Fprintf(w, "## %s\n\n", pipelineHeading(p))

		fmt.Fprint(w, "| Command |")
		for _, s := range servers {
			fmt.Fprintf(w, " %s |", s)
		}
		fmt.Fprintf(w, " %s vs %s |\n", c.Implementation, c.Baseline)

		fmt.Fprint(w, "|---------|")
		for range servers {
			fmt.Fprint(w, "------|")
		}
		fmt.Fprintln(w, "------|")

		for _, row := range c.Rows(p) {
			fmt.Fprintf(w, "| %s |", strings.ToUpper(row.Command))
			for _, cell := range row.Cells {
				fmt.Fprintf(w, " %s |", cell.String())
			}

			pct := row.Percent
			if pct != NotApplicable {
				pct += "%"
			}
			fmt.Fprintf(w, " %s |\n", pct)
		}

		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "## Summary")
	fmt.Fprintln(w)

	for _, p := range c.Pipelines {
		fmt.Fprintf(w, "### %s\n\n", pipelineHeading(p))

		for _, line := range c.SummaryLines(p) {
			fmt.Fprintf(w, "- %s\n", line)
		}

		fmt.Fprintln(w)
	}

	generated := c.Generated
	if generated.IsZero() {
		generated = time.Now()
	}

	fmt.Fprintf(w, "_Generated: %s_\n", generated.Format(time.RFC3339))

	return nil
}

// Results flattens the recorded figures in plan order.
func (c *Comparison) Results() []harness.Result {
	servers := c.Servers()
	results := make([]harness.Result, 0, len(c.Pipelines)*len(c.Commands)*len(servers))

	for _, p := range c.Pipelines {
		for _, cmd := range c.Commands {
			for _, s := range servers {
				results = append(results, harness.Result{
					Server:   s,
					Command:  cmd,
					Pipeline: p,
					RPS:      c.Lookup(p, cmd, s),
				})
			}
		}
	}

	return results
}

// GenerateJSON writes the flattened results as JSON to w.
func (c *Comparison) GenerateJSON(w io.Writer) error {
	return GenerateJSON(w, c.Results())
}

// GenerateJSON writes results as JSON to w.
func GenerateJSON(w io.Writer, results []harness.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(results)
}

func writeMeta(w io.Writer, m Meta) {
	if m.Method != "" {
		fmt.Fprintf(w, "**Method:** %s\n\n", m.Method)
	}

	fmt.Fprintf(w, "**Resource limits:** %s CPUs, %s memory per container\n\n",
		orDash(m.CPUs), orDash(m.Memory))
	fmt.Fprintf(w, "**Requests:** %d per test, **Clients:** %d, **Data size:** %s",
		m.Requests, m.Clients, bytefmt.ByteSize(uint64(max(m.DataSize, 0))))

	if m.KeySpace > 0 {
		fmt.Fprintf(w, ", **Key space:** %d", m.KeySpace)
	}

	fmt.Fprint(w, "\n\n")
}

func pipelineHeading(p int) string {
	if p <= 1 {
		return "Non-pipelined (P=1)"
	}

	return fmt.Sprintf("Pipelined (P=%d)", p)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}
