package metrics_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"

	"github.com/ajitpratap0/lendpool/pkg/bytespool"
	"github.com/ajitpratap0/lendpool/pkg/metrics"
	"github.com/ajitpratap0/lendpool/pkg/pool"
)

// exercise leaves the pool with allocated=2 hits=1 misses=2 returned=2
// in_use=1 idle=1.
func exercise(bp *bytespool.BytesPool) *bytespool.BytesMut {
	a := bp.Lend()
	b := bp.Lend()
	a.Release()
	b.Release()
	return bp.Lend()
}

func newBytesPool(name string) *bytespool.BytesPool {
	return bytespool.New(
		bytespool.WithName(name),
		bytespool.WithPoolOptions(pool.WithLogger[[]byte](zap.NewNop())),
	)
}

func TestPoolCollector(t *testing.T) {
	bp := newBytesPool("frames")
	defer bp.Close()
	held := exercise(bp)
	defer held.Release()

	collector := metrics.NewPoolCollector("test")
	collector.Add(bp)

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(collector))

	expected := `
# HELP test_pool_allocated_total Values built by the pool factory
# TYPE test_pool_allocated_total counter
test_pool_allocated_total{pool="frames"} 2
# HELP test_pool_hits_total Lends served from the free list
# TYPE test_pool_hits_total counter
test_pool_hits_total{pool="frames"} 1
# HELP test_pool_idle Values waiting on the free list
# TYPE test_pool_idle gauge
test_pool_idle{pool="frames"} 1
# HELP test_pool_in_use Values currently lent out
# TYPE test_pool_in_use gauge
test_pool_in_use{pool="frames"} 1
# HELP test_pool_misses_total Lends that found the free list empty
# TYPE test_pool_misses_total counter
test_pool_misses_total{pool="frames"} 2
# HELP test_pool_returned_total Values pushed back onto the free list
# TYPE test_pool_returned_total counter
test_pool_returned_total{pool="frames"} 2
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"test_pool_allocated_total", "test_pool_hits_total", "test_pool_misses_total",
		"test_pool_returned_total", "test_pool_in_use", "test_pool_idle")
	assert.NoError(t, err)

	other := newBytesPool("other")
	defer other.Close()
	collector.Add(other)
	assert.Equal(t, 14, testutil.CollectAndCount(collector))

	collector.Remove("other")
	assert.Equal(t, 7, testutil.CollectAndCount(collector))
}

func TestRegisterObservable(t *testing.T) {
	bp := newBytesPool("frames")
	defer bp.Close()
	held := exercise(bp)
	defer held.Release()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	reg, err := metrics.RegisterObservable(provider.Meter("test"), bp)
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	got := collectInt64(t, rm)
	assert.Equal(t, map[string]int64{
		"lendpool.pool.allocated": 2,
		"lendpool.pool.hits":      1,
		"lendpool.pool.misses":    2,
		"lendpool.pool.returned":  2,
		"lendpool.pool.discarded": 0,
		"lendpool.pool.in_use":    1,
		"lendpool.pool.idle":      1,
	}, got)

	require.NoError(t, reg.Unregister())
	rm = metricdata.ResourceMetrics{}
	require.NoError(t, reader.Collect(context.Background(), &rm))
	assert.Empty(t, collectInt64(t, rm))
}

func collectInt64(t *testing.T, rm metricdata.ResourceMetrics) map[string]int64 {
	t.Helper()
	out := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			var points []metricdata.DataPoint[int64]
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				points = data.DataPoints
			case metricdata.Gauge[int64]:
				points = data.DataPoints
			}
			for _, dp := range points {
				v, ok := dp.Attributes.Value(attribute.Key("pool"))
				require.True(t, ok)
				assert.Equal(t, "frames", v.AsString())
				out[m.Name] = dp.Value
			}
		}
	}
	return out
}

func TestThroughputTracker(t *testing.T) {
	tracker := metrics.NewThroughputTracker("lends")
	tracker.Increment(100)
	tracker.Increment(50)
	time.Sleep(5 * time.Millisecond)

	rate := tracker.GetAndReset()
	assert.Positive(t, rate)
	assert.Equal(t, uint64(150), tracker.Total())

	time.Sleep(time.Millisecond)
	assert.Zero(t, tracker.GetAndReset(), "window restarts empty")
}

func TestLatencyTracker(t *testing.T) {
	l := metrics.NewLatencyTracker(4)
	assert.Zero(t, l.GetPercentile(50))

	for _, ms := range []int{9, 1, 5, 3, 7} {
		l.Record(time.Duration(ms) * time.Millisecond)
	}

	// 9ms was evicted; samples are 1, 5, 3, 7.
	assert.Equal(t, time.Millisecond, l.GetPercentile(0))
	assert.Equal(t, 5*time.Millisecond, l.GetPercentile(50))
	assert.Equal(t, 7*time.Millisecond, l.GetPercentile(100))
}

func TestTimer(t *testing.T) {
	timer := metrics.NewTimer("op")
	time.Sleep(2 * time.Millisecond)
	assert.GreaterOrEqual(t, timer.Stop(), 2*time.Millisecond)
	assert.Equal(t, "op", timer.Name())
}
