package harness

import (
	"testing"
)

const csvOutput = `"test","rps","avg_latency_ms","min_latency_ms","p50_latency_ms","p95_latency_ms","p99_latency_ms","max_latency_ms"
"PING_INLINE","98039.22","0.287","0.080","0.279","0.407","0.535","1.239"
"SET","12345.67","0.301","0.088","0.295","0.415","0.551","1.903"
"GET","11111.11","0.290","0.080","0.279","0.407","0.535","1.239"
"SET","99999.99","0.301","0.088","0.295","0.415","0.551","1.903"
"MSET (10 keys)","45045.05","1.010","0.200","0.975","1.407","1.887","3.111"
`

func TestCSVExtractor(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		command string
		want    float64
		wantOK  bool
	}{
		{"lowercase command", csvOutput, "set", 12345.67, true},
		{"first match wins", csvOutput, "SET", 12345.67, true},
		{"get", csvOutput, "get", 11111.11, true},
		{"labelled test", csvOutput, "mset", 45045.05, true},
		{"underscore name", csvOutput, "ping_inline", 98039.22, true},
		{"missing command", csvOutput, "incr", 0, false},
		{"no header", `"SET",12345.67,0.3` + "\n", "set", 12345.67, true},
		{"empty output", "", "set", 0, false},
		{"non numeric", `"SET","n/a"` + "\n", "set", 0, false},
		{"short row", "\"test\",\"x\",\"rps\"\n\"SET\",\"1\"\n", "set", 0, false},
		{"prefix is not a match", `"SETRANGE",5.0` + "\n", "set", 0, false},
	}

	for _, tt := range tests {
		got, ok := CSVExtractor{}.Extract(tt.output, tt.command)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("%s: Extract = (%v, %v), want (%v, %v)",
				tt.name, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestCSVExtractorHeaderOrder(t *testing.T) {
	output := "\"test\",\"avg_latency_ms\",\"rps\"\n\"GET\",\"0.2\",\"777.5\"\n"

	got, ok := CSVExtractor{}.Extract(output, "get")
	if !ok || got != 777.5 {
		t.Errorf("Extract = (%v, %v), want (777.5, true)", got, ok)
	}
}

const quietOutput = "SET: rps=40123.1 (overall: 39811.2) avg_msec=0.611 (overall: 0.624)\r" +
	"SET: 54321.09 requests per second, p50=0.607 msec\n" +
	"GET: rps=50000.0 (overall: 49000.1) avg_msec=0.5 (overall: 0.5)\r" +
	"GET: 61234.50 requests per second, p50=0.511 msec\n"

const fullOutput = `====== SET ======
  100000 requests completed in 1.84 seconds
  50 parallel clients
  64 bytes payload

Summary:
  throughput summary: 54321.09 requests per second
  latency summary (msec):
          avg       min       p50       p95       p99       max
        0.611     0.160     0.607     0.807     1.007     2.111
====== GET ======
  100000 requests completed in 1.63 seconds

Summary:
  throughput summary: 61234.50 requests per second
`

func TestSummaryExtractor(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		command string
		want    float64
		wantOK  bool
	}{
		{"quiet set", quietOutput, "set", 54321.09, true},
		{"quiet get", quietOutput, "GET", 61234.50, true},
		{"full set section", fullOutput, "set", 54321.09, true},
		{"full get section", fullOutput, "get", 61234.50, true},
		{"full other section", fullOutput, "incr", 0, false},
		{"unsectioned summary", "  throughput summary: 1000.5 requests per second\n", "set", 1000.5, true},
		{"progress only", "SET: rps=40123.1 (overall: 39811.2)\r", "set", 0, false},
		{"labelled line", "MSET (10 keys): 45045.05 requests per second\n", "mset", 45045.05, true},
		{"integer figure", "INCR: 90000 requests per second\n", "incr", 90000, true},
		{"empty", "", "set", 0, false},
	}

	for _, tt := range tests {
		got, ok := SummaryExtractor{}.Extract(tt.output, tt.command)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("%s: Extract = (%v, %v), want (%v, %v)",
				tt.name, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestNewExtractor(t *testing.T) {
	if _, err := NewExtractor(OutputCSV); err != nil {
		t.Errorf("csv: %v", err)
	}
	if _, err := NewExtractor(OutputSummary); err != nil {
		t.Errorf("summary: %v", err)
	}
	if _, err := NewExtractor("json"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestOutputModeFlag(t *testing.T) {
	if OutputCSV.Flag() != "--csv" {
		t.Errorf("csv flag = %q", OutputCSV.Flag())
	}
	if OutputSummary.Flag() != "-q" {
		t.Errorf("summary flag = %q", OutputSummary.Flag())
	}
}
