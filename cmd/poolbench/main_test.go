package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/lendpool/internal/stress"
	"github.com/ajitpratap0/lendpool/pkg/errors"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func decodeReport(t *testing.T, out string) stress.Report {
	t.Helper()
	var report stress.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report), out)
	return report
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "poolbench v"+version)
	assert.Contains(t, out, "OS/Arch:")
}

func TestRunCommand(t *testing.T) {
	out, _, err := execute(t, "run",
		"--workers", "2",
		"--iterations", "50",
		"--payload-size", "32",
		"--handoff",
		"--queue-size", "4",
		"--codec", "snappy",
		"--pool-name", "cli",
		"--log-level", "error",
	)
	require.NoError(t, err)

	report := decodeReport(t, out)
	assert.Equal(t, "cli", report.Pool)
	assert.Equal(t, uint64(100), report.Lends)
	assert.Equal(t, uint64(100), report.HandedOff)
	assert.Equal(t, "snappy", report.Codec)
	assert.Zero(t, report.Mismatches)
	assert.Equal(t, int64(0), report.Stats.InUse)
}

func TestRunCommand_Metrics(t *testing.T) {
	out, diag, err := execute(t, "run", "-w", "1", "-n", "20", "--metrics", "--namespace", "bench", "--log-level", "error")
	require.NoError(t, err)

	assert.Equal(t, uint64(20), decodeReport(t, out).Lends)
	assert.Contains(t, diag, "bench_pool_hits_total")
	assert.Contains(t, diag, `pool="bench"`)
}

func TestRunCommand_EnvOverride(t *testing.T) {
	t.Setenv("POOLBENCH_STRESS_ITERATIONS", "7")
	t.Setenv("POOLBENCH_POOL_NAME", "from-env")

	out, _, err := execute(t, "run", "-w", "1", "--log-level", "error")
	require.NoError(t, err)

	report := decodeReport(t, out)
	assert.Equal(t, uint64(7), report.Lends)
	assert.Equal(t, "from-env", report.Pool)
}

func TestRunCommand_FlagBeatsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
pool:
  name: from-file
stress:
  workers: 1
  iterations: 3
`), 0o600))

	out, _, err := execute(t, "run", "-c", path, "-n", "5", "--log-level", "error")
	require.NoError(t, err)

	report := decodeReport(t, out)
	assert.Equal(t, "from-file", report.Pool)
	assert.Equal(t, 1, report.Workers)
	assert.Equal(t, uint64(5), report.Lends)
}

func TestRunCommand_InvalidConfig(t *testing.T) {
	out, _, err := execute(t, "run", "--iterations", "0", "--log-level", "error")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig), "got %v", err)
	assert.Empty(t, out)

	_, _, err = execute(t, "run", "-c", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig), "got %v", err)
}

func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "poolbench.yaml")

	out, _, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.FileExists(t, path)

	out, _, err = execute(t, "config", "show", "-c", path)
	require.NoError(t, err)
	assert.Contains(t, out, "buffer_capacity: 4096")
	assert.Contains(t, out, "name: bench")
	assert.Contains(t, out, "codec: none")
}

func TestRunCommand_Profiles(t *testing.T) {
	dir := t.TempDir()
	_, _, err := execute(t, "run", "-w", "1", "-n", "10", "--log-level", "error",
		"--profile-dir", dir, "--profile", "heap,goroutine")
	require.NoError(t, err)

	heap, err := filepath.Glob(filepath.Join(dir, "heap_*.prof"))
	require.NoError(t, err)
	assert.Len(t, heap, 1)
	goroutine, err := filepath.Glob(filepath.Join(dir, "goroutine_*.prof"))
	require.NoError(t, err)
	assert.Len(t, goroutine, 1)

	_, _, err = execute(t, "run", "-w", "1", "-n", "1", "--profile-dir", dir, "--profile", "flame")
	require.Error(t, err)
}
