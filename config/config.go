// Package config loads redsweep settings from built-in defaults, an optional
// YAML file and REDSWEEP_ environment variables, in that order.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/weiihann/redsweep/serverconf"
)

// EnvPrefix marks environment variables read by Load. Nested keys are
// separated by a double underscore, e.g. REDSWEEP_BENCHMARK__REQUESTS.
const EnvPrefix = "REDSWEEP_"

//go:embed default.yaml
var defaultYAML []byte

// Config is the complete harness configuration.
type Config struct {
	Docker       DockerConfig          `koanf:"docker"`
	Benchmark    BenchmarkConfig       `koanf:"benchmark"`
	Probe        ProbeConfig           `koanf:"probe"`
	Servers      ServersConfig         `koanf:"servers"`
	ServerConfig serverconf.PerfConfig `koanf:"server_config"`
	Scaling      ScalingConfig         `koanf:"scaling"`
	Compare      CompareConfig         `koanf:"compare"`
}

// DockerConfig holds the container runtime settings shared by all servers.
type DockerConfig struct {
	Binary string `koanf:"binary"`
	Host   string `koanf:"host"`
	CPUs   string `koanf:"cpus"`
	Memory string `koanf:"memory"`
}

// BenchmarkConfig holds the redis-benchmark parameters fixed for a run.
type BenchmarkConfig struct {
	Binary   string `koanf:"binary"`
	Image    string `koanf:"image"`
	Requests int    `koanf:"requests"`
	Clients  int    `koanf:"clients"`
	DataSize int    `koanf:"data_size"`
	KeySpace int    `koanf:"key_space"`
}

// ProbeConfig bounds the liveness polling after a container starts.
type ProbeConfig struct {
	Attempts int           `koanf:"attempts"`
	Interval time.Duration `koanf:"interval"`
	Timeout  time.Duration `koanf:"timeout"`
}

// ServerDef describes one server image and the host port it is bound to.
type ServerDef struct {
	Name          string   `koanf:"name"`
	Image         string   `koanf:"image"`
	Port          int      `koanf:"port"`
	ContainerPort int      `koanf:"container_port"`
	Args          []string `koanf:"args"`
}

// ServersConfig lists the reference builds and the reimplementation.
// The first reference doubles as the scaling sweep's baseline.
type ServersConfig struct {
	References     []ServerDef `koanf:"references"`
	Implementation ServerDef   `koanf:"implementation"`
	ConfigPath     string      `koanf:"config_path"`
	ConfigEnv      string      `koanf:"config_env"`
}

// ScalingConfig drives the shard-scaling sweep.
type ScalingConfig struct {
	Shards    []int    `koanf:"shards"`
	Commands  []string `koanf:"commands"`
	Pipelines []int    `koanf:"pipelines"`
	Output    string   `koanf:"output"`
}

// CompareConfig drives the version-comparison sweep.
type CompareConfig struct {
	Title          string   `koanf:"title"`
	Commands       []string `koanf:"commands"`
	Pipelines      []int    `koanf:"pipelines"`
	Baseline       string   `koanf:"baseline"`
	Output         string   `koanf:"output"`
	KeepContainers bool     `koanf:"keep_containers"`
}

// Loader layers configuration sources into a single koanf instance.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
}

// NewLoader returns a Loader seeded with the built-in defaults.
func NewLoader() (*Loader, error) {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: EnvPrefix,
	}

	if err := l.k.Load(bytesProvider(defaultYAML), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	return l, nil
}

// LoadFile merges a YAML file over the current values.
func (l *Loader) LoadFile(path string) error {
	if path == "" {
		return nil
	}

	if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("load file %s: %w", path, err)
	}

	return nil
}

// LoadEnv merges prefixed environment variables over the current values.
func (l *Loader) LoadEnv() error {
	transform := func(s string) string {
		s = strings.TrimPrefix(s, l.envPrefix)
		s = strings.ToLower(s)

		return strings.ReplaceAll(s, "__", ".")
	}

	if err := l.k.Load(env.Provider(l.envPrefix, ".", transform), nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}

	return nil
}

// Config decodes the merged values.
func (l *Loader) Config() (Config, error) {
	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyPortDefaults()

	return cfg, nil
}

// YAML renders the merged values, suitable as a starting config file.
func (l *Loader) YAML() ([]byte, error) {
	return l.k.Marshal(yaml.Parser())
}

// Load reads defaults, then path (if non-empty), then the environment.
func Load(path string) (Config, error) {
	l, err := NewLoader()
	if err != nil {
		return Config{}, err
	}

	if err := l.LoadFile(path); err != nil {
		return Config{}, err
	}

	if err := l.LoadEnv(); err != nil {
		return Config{}, err
	}

	return l.Config()
}

// Default returns the built-in configuration.
func Default() Config {
	l, err := NewLoader()
	if err != nil {
		panic(err)
	}

	cfg, err := l.Config()
	if err != nil {
		panic(err)
	}

	return cfg
}

func (c *Config) applyPortDefaults() {
	for i := range c.Servers.References {
		if c.Servers.References[i].ContainerPort == 0 {
			c.Servers.References[i].ContainerPort = 6379
		}
	}

	if c.Servers.Implementation.ContainerPort == 0 {
		c.Servers.Implementation.ContainerPort = 6379
	}
}

// All returns the references followed by the implementation.
func (s ServersConfig) All() []ServerDef {
	all := make([]ServerDef, 0, len(s.References)+1)
	all = append(all, s.References...)

	return append(all, s.Implementation)
}

// Validate reports every problem found, joined.
func (c Config) Validate() error {
	var errs []error

	if c.Benchmark.Requests <= 0 {
		errs = append(errs, errors.New("benchmark.requests must be positive"))
	}
	if c.Benchmark.Clients <= 0 {
		errs = append(errs, errors.New("benchmark.clients must be positive"))
	}
	if c.Probe.Attempts <= 0 {
		errs = append(errs, errors.New("probe.attempts must be positive"))
	}

	errs = append(errs, checkOutput("compare.output", c.Compare.Output))
	errs = append(errs, checkOutput("scaling.output", c.Scaling.Output))

	if len(c.Servers.References) == 0 {
		errs = append(errs, errors.New("servers.references must not be empty"))
	}

	ports := make(map[int]string)
	names := make(map[string]bool)

	for _, s := range c.Servers.All() {
		if s.Name == "" || s.Image == "" {
			errs = append(errs, fmt.Errorf("server %q needs a name and an image", s.Name))
		}
		if names[s.Name] {
			errs = append(errs, fmt.Errorf("duplicate server name %q", s.Name))
		}
		names[s.Name] = true

		if other, ok := ports[s.Port]; ok {
			errs = append(errs, fmt.Errorf(
				"servers %s and %s share host port %d", other, s.Name, s.Port,
			))
		}
		ports[s.Port] = s.Name
	}

	if len(c.Scaling.Shards) == 0 {
		errs = append(errs, errors.New("scaling.shards must not be empty"))
	}
	for _, n := range c.Scaling.Shards {
		if n < 1 {
			errs = append(errs, fmt.Errorf("scaling.shards: invalid shard count %d", n))
		}
	}

	errs = append(errs, checkSweep("scaling", c.Scaling.Commands, c.Scaling.Pipelines))
	errs = append(errs, checkSweep("compare", c.Compare.Commands, c.Compare.Pipelines))

	baselineFound := false
	for _, s := range c.Servers.References {
		if s.Name == c.Compare.Baseline {
			baselineFound = true
		}
	}
	if !baselineFound {
		errs = append(errs, fmt.Errorf(
			"compare.baseline %q is not a reference server", c.Compare.Baseline,
		))
	}

	if err := c.ServerConfig.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("server_config: %w", err))
	}

	return errors.Join(errs...)
}

func checkOutput(key, mode string) error {
	switch mode {
	case "csv", "summary":
		return nil
	default:
		return fmt.Errorf("%s must be csv or summary, got %q", key, mode)
	}
}

func checkSweep(key string, commands []string, pipelines []int) error {
	if len(commands) == 0 {
		return fmt.Errorf("%s.commands must not be empty", key)
	}
	if len(pipelines) == 0 {
		return fmt.Errorf("%s.pipelines must not be empty", key)
	}
	for _, p := range pipelines {
		if p < 1 {
			return fmt.Errorf("%s.pipelines: invalid depth %d", key, p)
		}
	}

	return nil
}
