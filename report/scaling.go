package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/weiihann/redsweep/harness"
	"github.com/weiihann/redsweep/workload"
)

// ScalingRow holds the cells measured for one shard count, or for the
// baseline server when Shards is zero.
type ScalingRow struct {
	Label  string
	Shards int
	Cells  []harness.Throughput
}

// ScalingTable is the shard-scaling result: a baseline row plus one row per
// shard count, cells ordered as workload.Columns.
type ScalingTable struct {
	Meta      Meta
	Server    string
	Commands  []string
	Pipelines []int
	Baseline  ScalingRow
	Rows      []ScalingRow
	Generated time.Time
}

// NewScalingTable creates a table for server's sweep over commands and
// pipeline depths.
func NewScalingTable(meta Meta, server string, commands []string, pipelines []int) *ScalingTable {
	return &ScalingTable{
		Meta:      meta,
		Server:    server,
		Commands:  commands,
		Pipelines: pipelines,
	}
}

// Columns returns the cell headings.
func (t *ScalingTable) Columns() []string {
	cols := workload.Columns("", t.Commands, t.Pipelines)
	names := make([]string, len(cols))

	for i, c := range cols {
		names[i] = fmt.Sprintf("%s P=%d", strings.ToUpper(c.Command), c.Pipeline)
	}

	return names
}

// BlankRow returns a row whose cells are all absent.
func (t *ScalingTable) BlankRow(label string, shards int) ScalingRow {
	return ScalingRow{
		Label:  label,
		Shards: shards,
		Cells:  make([]harness.Throughput, len(t.Commands)*len(t.Pipelines)),
	}
}

// Add appends a shard-count row.
func (t *ScalingTable) Add(row ScalingRow) {
	t.Rows = append(t.Rows, row)
}

// Header is the aligned column header for console output.
func (t *ScalingTable) Header() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%-12s", "Shards")
	for _, c := range t.Columns() {
		fmt.Fprintf(&b, " %14s", c)
	}

	return b.String()
}

// FormatRow aligns row under Header.
func (t *ScalingTable) FormatRow(row ScalingRow) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%-12s", row.Label)
	for _, cell := range row.Cells {
		fmt.Fprintf(&b, " %14s", cell.String())
	}

	return b.String()
}

// Generate writes the markdown report: raw throughput, then each shard
// count relative to the baseline row.
func (t *ScalingTable) Generate(w io.Writer) error {
	if len(t.Rows) == 0 {
		return fmt.Errorf("no results to report")
	}

	cols := t.Columns()

	fmt.Fprintf(w, "# Shard Scaling: %s\n\n", t.Server)
	writeMeta(w, t.Meta)

	fmt.Fprintln(w, "## Throughput (requests/sec)")
	fmt.Fprintln(w)
	writeScalingHeader(w, cols)

	for _, row := range append([]ScalingRow{t.Baseline}, t.Rows...) {
		fmt.Fprintf(w, "| %s |", row.Label)
		for _, cell := range row.Cells {
			fmt.Fprintf(w, " %s |", cell.String())
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "## Relative to %s (%%)\n\n", t.Baseline.Label)
	writeScalingHeader(w, cols)

	for _, row := range t.Rows {
		fmt.Fprintf(w, "| %s |", row.Label)
		for i, cell := range row.Cells {
			base := ""
			if i < len(t.Baseline.Cells) {
				base = t.Baseline.Cells[i].String()
			}
			fmt.Fprintf(w, " %s |", Percentage(cell.String(), base))
		}
		fmt.Fprintln(w)
	}

	generated := t.Generated
	if generated.IsZero() {
		generated = time.Now()
	}

	fmt.Fprintf(w, "\n_Generated: %s_\n", generated.Format(time.RFC3339))

	return nil
}

// Results flattens the table, baseline first. The baseline row's label is
// its server name.
func (t *ScalingTable) Results() []harness.Result {
	cols := workload.Columns("", t.Commands, t.Pipelines)
	results := make([]harness.Result, 0, (len(t.Rows)+1)*len(cols))

	add := func(server string, row ScalingRow) {
		for i, c := range cols {
			var rps harness.Throughput
			if i < len(row.Cells) {
				rps = row.Cells[i]
			}

			results = append(results, harness.Result{
				Server:   server,
				Shards:   row.Shards,
				Command:  c.Command,
				Pipeline: c.Pipeline,
				RPS:      rps,
			})
		}
	}

	add(t.Baseline.Label, t.Baseline)
	for _, row := range t.Rows {
		add(t.Server, row)
	}

	return results
}

// ShardLabel is the row label for a shard count.
func ShardLabel(n int) string {
	return strconv.Itoa(n)
}

func writeScalingHeader(w io.Writer, cols []string) {
	fmt.Fprint(w, "| Shards |")
	for _, c := range cols {
		fmt.Fprintf(w, " %s |", c)
	}
	fmt.Fprintln(w)

	fmt.Fprint(w, "|--------|")
	for range cols {
		fmt.Fprint(w, "------|")
	}
	fmt.Fprintln(w)
}
