package stress_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/lendpool/internal/stress"
	"github.com/ajitpratap0/lendpool/pkg/bytespool"
	"github.com/ajitpratap0/lendpool/pkg/config"
	"github.com/ajitpratap0/lendpool/pkg/errors"
	"github.com/ajitpratap0/lendpool/pkg/pool"
	"github.com/ajitpratap0/lendpool/pkg/testutil"
)

func newBytesPool(t *testing.T) *bytespool.BytesPool {
	t.Helper()
	bp := bytespool.New(
		bytespool.WithName("stress"),
		bytespool.WithCapacity(128),
		bytespool.WithPoolOptions(pool.WithLogger[[]byte](testutil.TestLogger(t))),
	)
	t.Cleanup(bp.Close)
	return bp
}

func TestRun(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.StressConfig
	}{
		{name: "local release", cfg: config.StressConfig{Workers: 4, Iterations: 500, PayloadSize: 100}},
		{name: "handoff", cfg: config.StressConfig{Workers: 4, Iterations: 500, PayloadSize: 100, Handoff: true, QueueSize: 8}},
		{name: "handoff with zstd", cfg: config.StressConfig{Workers: 3, Iterations: 200, PayloadSize: 300, Handoff: true, QueueSize: 16, Codec: "zstd"}},
		{name: "lz4", cfg: config.StressConfig{Workers: 2, Iterations: 200, PayloadSize: 300, Codec: "lz4"}},
		{name: "empty payload", cfg: config.StressConfig{Workers: 2, Iterations: 100, PayloadSize: 0, Handoff: true, QueueSize: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bp := newBytesPool(t)
			ctx, cancel := testutil.TestContext(t)
			defer cancel()

			report, err := stress.Run(ctx, bp, tt.cfg, testutil.TestLogger(t))
			require.NoError(t, err)

			total := uint64(tt.cfg.Workers * tt.cfg.Iterations)
			assert.Equal(t, total, report.Lends)
			assert.Zero(t, report.Mismatches)
			assert.False(t, report.Canceled)
			assert.Equal(t, "stress", report.Pool)
			if tt.cfg.Handoff {
				assert.Equal(t, total, report.HandedOff)
			}

			assert.Equal(t, int64(0), report.Stats.InUse, "every buffer came back")
			assert.Equal(t, report.Stats.Allocated, uint64(report.Stats.Idle))
			assert.Positive(t, report.Stats.Hits)
			assert.GreaterOrEqual(t, report.LatencyP99, report.LatencyP50)
		})
	}
}

func TestRun_Canceled(t *testing.T) {
	bp := newBytesPool(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := stress.Run(ctx, bp, config.StressConfig{
		Workers: 2, Iterations: 1000, PayloadSize: 16, Handoff: true, QueueSize: 4,
	}, nil)
	require.Error(t, err)
	assert.True(t, report.Canceled)
	assert.Zero(t, report.Lends)
	assert.Equal(t, int64(0), bp.Stats().InUse)
}

func TestRun_InvalidConfig(t *testing.T) {
	bp := newBytesPool(t)

	_, err := stress.Run(context.Background(), bp, config.StressConfig{Workers: 0, Iterations: 1}, nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = stress.Run(context.Background(), bp, config.StressConfig{Workers: 1, Iterations: 1, Codec: "brotli"}, nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestReport_JSON(t *testing.T) {
	bp := newBytesPool(t)
	report, err := stress.Run(context.Background(), bp, config.StressConfig{
		Workers: 1, Iterations: 10, PayloadSize: 8,
	}, nil)
	require.NoError(t, err)

	data, err := report.JSON()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "stress", decoded["pool"])
	assert.EqualValues(t, 10, decoded["lends"])
	assert.Contains(t, decoded, "resources_after")

	stats, ok := decoded["stats"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 1, stats["allocated"])
}

func TestResourceMonitor_Sample(t *testing.T) {
	usage := stress.NewResourceMonitor().Sample()
	assert.Positive(t, usage.HeapAlloc)
	assert.Positive(t, usage.GoroutineCount)
}

func TestProfiler(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "profiles")
	prof, err := stress.NewProfiler(dir,
		[]stress.ProfileType{stress.CPUProfile, stress.HeapProfile, stress.MutexProfile, stress.GoroutineProfile},
		testutil.TestLogger(t))
	require.NoError(t, err)
	require.NoError(t, prof.Start())

	bp := bytespool.New(bytespool.WithName("profiled"))
	defer bp.Close()
	_, err = stress.Run(context.Background(), bp, config.StressConfig{Workers: 2, Iterations: 100, PayloadSize: 64}, nil)
	require.NoError(t, err)

	files, err := prof.Stop()
	require.NoError(t, err)
	require.Len(t, files, 4)
	for _, f := range files {
		assert.FileExists(t, f)
		assert.Equal(t, dir, filepath.Dir(f))
	}

	_, err = stress.NewProfiler(dir, []stress.ProfileType{"flame"}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}
