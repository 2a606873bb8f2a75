// Package metrics exports pool statistics to Prometheus and OpenTelemetry,
// and provides the timing helpers used by the stress runner.
//
// # Overview
//
// The metrics package provides:
//   - PoolCollector, a prometheus.Collector that reads pool stats on scrape
//   - RegisterObservable, which reports the same stats as OTel instruments
//   - Throughput and latency tracking utilities
//
// # Basic Usage
//
//	bp := bytespool.New(bytespool.WithName("frames"))
//
//	collector := metrics.NewPoolCollector("lendpool")
//	collector.Add(bp)
//	prometheus.MustRegister(collector)
//
//	// Or with OpenTelemetry
//	reg, err := metrics.RegisterObservable(otel.Meter("lendpool"), bp)
//	if err != nil {
//	    return err
//	}
//	defer reg.Unregister()
//
// # Performance Considerations
//
// Nothing is recorded on the lend or release path. Pool counters are plain
// atomics and are only read when a scrape or a collection cycle asks for them.
package metrics
