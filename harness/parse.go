package harness

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// OutputMode selects the redis-benchmark output format and its parser.
type OutputMode string

const (
	// OutputCSV is redis-benchmark --csv: one quoted row per test.
	OutputCSV OutputMode = "csv"
	// OutputSummary is the human-readable "<TEST>: <n> requests per second"
	// form printed with -q, or the per-test "throughput summary" lines of the
	// full report.
	OutputSummary OutputMode = "summary"
)

// Flag returns the redis-benchmark flag that produces this format.
func (m OutputMode) Flag() string {
	if m == OutputCSV {
		return "--csv"
	}

	return "-q"
}

// Extractor pulls the requests-per-second figure for one command out of
// redis-benchmark output. Only the first matching line counts.
type Extractor interface {
	Extract(output, command string) (float64, bool)
}

// NewExtractor returns the parsing strategy for mode.
func NewExtractor(mode OutputMode) (Extractor, error) {
	switch mode {
	case OutputCSV:
		return CSVExtractor{}, nil
	case OutputSummary:
		return SummaryExtractor{}, nil
	default:
		return nil, fmt.Errorf("unknown output mode %q", mode)
	}
}

// CSVExtractor reads --csv output. Rows are keyed by the test name in the
// first column; the rps column is located from the header row when present
// and defaults to the second column.
type CSVExtractor struct{}

func (CSVExtractor) Extract(output, command string) (float64, bool) {
	r := csv.NewReader(strings.NewReader(normalizeLines(output)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	rpsCol := 1

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return 0, false
		}
		if err != nil {
			continue
		}
		if len(rec) == 0 {
			continue
		}

		label := strings.TrimSpace(rec[0])

		if strings.EqualFold(label, "test") {
			for i, h := range rec {
				if strings.EqualFold(strings.TrimSpace(h), "rps") {
					rpsCol = i
				}
			}

			continue
		}

		if !matchesCommand(label, command) {
			continue
		}

		if rpsCol >= len(rec) {
			return 0, false
		}

		return parseRPS(rec[rpsCol])
	}
}

var (
	summaryLine   = regexp.MustCompile(`^\s*([^:]+):\s+([0-9]+(?:\.[0-9]+)?)\s+requests per second`)
	sectionHeader = regexp.MustCompile(`^=+\s+(.+?)\s+=+\s*$`)
)

// SummaryExtractor reads human-readable output. A line labelled with the
// command wins; a "throughput summary" line counts only inside the
// command's own ====== section, or when the output has no sections.
type SummaryExtractor struct{}

func (SummaryExtractor) Extract(output, command string) (float64, bool) {
	section := ""

	for _, line := range strings.Split(normalizeLines(output), "\n") {
		if m := sectionHeader.FindStringSubmatch(line); m != nil {
			section = m[1]

			continue
		}

		m := summaryLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		label := strings.TrimSpace(m[1])

		if matchesCommand(label, command) {
			return parseRPS(m[2])
		}

		if strings.EqualFold(label, "throughput summary") &&
			(section == "" || matchesCommand(section, command)) {
			return parseRPS(m[2])
		}
	}

	return 0, false
}

// matchesCommand reports whether a redis-benchmark test label names
// command, e.g. "SET" or "MSET (10 keys)" for mset.
func matchesCommand(label, command string) bool {
	if strings.EqualFold(label, command) {
		return true
	}

	prefix := command + " "

	return len(label) > len(prefix) && strings.EqualFold(label[:len(prefix)], prefix)
}

func parseRPS(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}

	return v, true
}

// normalizeLines turns progress carriage returns into line breaks so the
// final figure lands on its own line.
func normalizeLines(s string) string {
	return strings.ReplaceAll(s, "\r", "\n")
}
