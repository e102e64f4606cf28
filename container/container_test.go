package container

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeDocker writes a docker stand-in that logs its arguments, prints a
// container id for run and fails every rm.
func fakeDocker(t *testing.T) (binary, logPath string) {
	t.Helper()

	dir := t.TempDir()
	logPath = filepath.Join(dir, "calls.log")
	binary = filepath.Join(dir, "docker")

	script := "#!/bin/sh\n" +
		"echo \"$@\" >> " + logPath + "\n" +
		"case \"$1\" in\n" +
		"  rm) echo 'No such container' >&2; exit 1 ;;\n" +
		"  run) echo abc123 ;;\n" +
		"esac\n"

	if err := os.WriteFile(binary, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake docker: %v", err)
	}

	return binary, logPath
}

func readCalls(t *testing.T, path string) []string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read calls: %v", err)
	}

	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestRunArgs(t *testing.T) {
	spec := Spec{
		Name:          "redsweep-impl",
		Image:         "impl:latest",
		HostPort:      6381,
		ContainerPort: 6379,
		CPUs:          "2",
		Memory:        "2g",
		Mounts: []Mount{{
			HostPath:      "/tmp/perf.toml",
			ContainerPath: "/etc/perf.toml",
			ReadOnly:      true,
		}},
		Env:  []string{"PERF_CONFIG_PATH=/etc/perf.toml"},
		Args: []string{"--port", "6379"},
	}

	got := strings.Join(RunArgs(spec), " ")
	want := "run -d --name redsweep-impl -p 6381:6379 --cpus 2 --memory 2g " +
		"-v /tmp/perf.toml:/etc/perf.toml:ro -e PERF_CONFIG_PATH=/etc/perf.toml " +
		"impl:latest --port 6379"

	if got != want {
		t.Errorf("RunArgs =\n  %s\nwant\n  %s", got, want)
	}
}

func TestRunArgsMinimal(t *testing.T) {
	got := strings.Join(RunArgs(Spec{
		Name: "r", Image: "redis:7", HostPort: 6379, ContainerPort: 6379,
	}), " ")

	if got != "run -d --name r -p 6379:6379 redis:7" {
		t.Errorf("RunArgs = %q", got)
	}
}

func TestManagerStartIgnoresMissingContainer(t *testing.T) {
	docker, logPath := fakeDocker(t)
	m := NewManager(docker, "127.0.0.1", nil, 1, 0, discardLogger())

	inst, err := m.Start(context.Background(), Spec{
		Name: "redsweep-redis", Image: "redis:7", HostPort: 6390, ContainerPort: 6379,
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if inst.ID != "abc123" {
		t.Errorf("ID = %q, want abc123", inst.ID)
	}
	if inst.Addr != "127.0.0.1:6390" {
		t.Errorf("Addr = %q, want 127.0.0.1:6390", inst.Addr)
	}
	if inst.State != Starting {
		t.Errorf("State = %v, want starting", inst.State)
	}

	calls := readCalls(t, logPath)
	if len(calls) != 2 {
		t.Fatalf("docker calls = %v, want rm then run", calls)
	}
	if calls[0] != "rm -f redsweep-redis" {
		t.Errorf("first call = %q", calls[0])
	}
	if !strings.HasPrefix(calls[1], "run -d --name redsweep-redis") {
		t.Errorf("second call = %q", calls[1])
	}
}

func TestManagerStartFailure(t *testing.T) {
	m := NewManager(
		filepath.Join(t.TempDir(), "missing-docker"),
		"127.0.0.1", nil, 1, 0, discardLogger(),
	)

	if _, err := m.Start(context.Background(), Spec{Name: "x", Image: "y"}); err == nil {
		t.Error("expected error when docker cannot run")
	}
}

func TestManagerStopIsBestEffort(t *testing.T) {
	docker, logPath := fakeDocker(t)
	m := NewManager(docker, "127.0.0.1", nil, 1, 0, discardLogger())

	inst := &Instance{Spec: Spec{Name: "gone"}, State: Ready}
	m.Stop(context.Background(), inst)

	if inst.State != Stopped {
		t.Errorf("State = %v, want stopped", inst.State)
	}

	// A second Stop is a no-op.
	m.Stop(context.Background(), inst)
	m.Stop(context.Background(), nil)

	if calls := readCalls(t, logPath); len(calls) != 1 {
		t.Errorf("docker calls = %v, want a single rm", calls)
	}
}

func TestManagerWaitUntilReadyMarksState(t *testing.T) {
	p := &scriptedProber{replies: []string{"", "PONG"}}
	m := NewManager("docker", "127.0.0.1", p, 5, 0, discardLogger())

	inst := &Instance{Spec: Spec{Name: "r"}, Addr: "127.0.0.1:1", State: Starting}
	if !m.WaitUntilReady(context.Background(), inst) {
		t.Fatal("expected ready")
	}
	if inst.State != Ready {
		t.Errorf("State = %v, want ready", inst.State)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{Absent, "absent"},
		{Starting, "starting"},
		{Ready, "ready"},
		{Stopped, "stopped"},
		{State(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}
