// Package harness runs redis-benchmark against a server and extracts the
// measured throughput from its output.
package harness

import (
	"strconv"
)

// Throughput is a requests-per-second figure that may be absent when the
// benchmark failed or its output had no matching line.
type Throughput struct {
	Value float64
	Valid bool
}

// Measured returns a present Throughput.
func Measured(rps float64) Throughput {
	return Throughput{Value: rps, Valid: true}
}

// String renders the figure with two decimals, or "" when absent.
func (t Throughput) String() string {
	if !t.Valid {
		return ""
	}

	return strconv.FormatFloat(t.Value, 'f', 2, 64)
}

// MarshalJSON encodes an absent figure as null.
func (t Throughput) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}

	return strconv.AppendFloat(nil, t.Value, 'f', 2, 64), nil
}

// Result is one benchmark invocation with the sweep point it belongs to.
type Result struct {
	Server   string     `json:"server"`
	Shards   int        `json:"shards,omitempty"`
	Command  string     `json:"command"`
	Pipeline int        `json:"pipeline"`
	RPS      Throughput `json:"rps"`
}
