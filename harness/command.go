package harness

// CommandConfig holds the resolved binary and leading arguments needed to
// run redis-benchmark.
type CommandConfig struct {
	Binary    string
	ExtraArgs []string
}

// WrapCommand returns the exec configuration for redis-benchmark. With an
// empty image the tool is run from PATH; otherwise it runs inside a
// throwaway container on the host network so it can reach mapped ports.
func WrapCommand(docker, image, binary string) CommandConfig {
	if image == "" {
		return CommandConfig{Binary: binary}
	}

	return CommandConfig{
		Binary: docker,
		ExtraArgs: []string{
			"run", "--rm", "--network", "host", image, binary,
		},
	}
}
