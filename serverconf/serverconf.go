// Package serverconf writes the performance configuration file read by the
// sharded server under test.
package serverconf

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
)

// PerfConfig mirrors the server's performance settings. Only NumShards
// changes between sweep points; the remaining groups are fixed per run.
type PerfConfig struct {
	NumShards    int                `toml:"num_shards" koanf:"num_shards"`
	ResponsePool ResponsePoolConfig `toml:"response_pool" koanf:"response_pool"`
	Buffers      BufferConfig       `toml:"buffers" koanf:"buffers"`
	Batching     BatchingConfig     `toml:"batching" koanf:"batching"`
}

// ResponsePoolConfig sizes the server's pooled response buffers.
type ResponsePoolConfig struct {
	Capacity int `toml:"capacity" koanf:"capacity"`
	Prewarm  int `toml:"prewarm" koanf:"prewarm"`
}

// BufferConfig sizes per-connection read buffers.
type BufferConfig struct {
	ReadSize int `toml:"read_size" koanf:"read_size"`
	MaxSize  int `toml:"max_size" koanf:"max_size"`
}

// BatchingConfig controls when pipelined commands are batched per shard.
type BatchingConfig struct {
	MinPipelineBuffer int `toml:"min_pipeline_buffer" koanf:"min_pipeline_buffer"`
	BatchThreshold    int `toml:"batch_threshold" koanf:"batch_threshold"`
}

// WithShards returns a copy of c with NumShards set to n.
func (c PerfConfig) WithShards(n int) PerfConfig {
	c.NumShards = n
	return c
}

// Validate rejects settings the server refuses to start with.
func (c PerfConfig) Validate() error {
	if c.NumShards < 1 {
		return fmt.Errorf("num_shards must be at least 1, got %d", c.NumShards)
	}

	if c.ResponsePool.Prewarm > c.ResponsePool.Capacity {
		return fmt.Errorf(
			"response_pool.prewarm (%d) exceeds capacity (%d)",
			c.ResponsePool.Prewarm, c.ResponsePool.Capacity,
		)
	}

	if c.Buffers.ReadSize <= 0 || c.Buffers.MaxSize < c.Buffers.ReadSize {
		return fmt.Errorf(
			"buffers: read_size %d must be positive and not above max_size %d",
			c.Buffers.ReadSize, c.Buffers.MaxSize,
		)
	}

	return nil
}

// Encode writes c as TOML.
func Encode(w io.Writer, c PerfConfig) error {
	return toml.NewEncoder(w).Encode(c)
}

// Write stores c in a new file under dir and returns its path. The file is
// world-readable so the container user can open it through a bind mount.
func Write(dir string, c PerfConfig) (string, error) {
	if err := c.Validate(); err != nil {
		return "", fmt.Errorf("invalid server config: %w", err)
	}

	f, err := os.CreateTemp(dir, fmt.Sprintf("perf-%dshards-*.toml", c.NumShards))
	if err != nil {
		return "", fmt.Errorf("create server config: %w", err)
	}

	if err := Encode(f, c); err != nil {
		f.Close()
		os.Remove(f.Name())

		return "", fmt.Errorf("encode server config: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(f.Name())

		return "", fmt.Errorf("close server config: %w", err)
	}

	if err := os.Chmod(f.Name(), 0o644); err != nil {
		os.Remove(f.Name())

		return "", fmt.Errorf("chmod server config: %w", err)
	}

	return f.Name(), nil
}
