package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/ajitpratap0/lendpool/internal/stress"
	"github.com/ajitpratap0/lendpool/pkg/bytespool"
	"github.com/ajitpratap0/lendpool/pkg/config"
	"github.com/ajitpratap0/lendpool/pkg/errors"
	"github.com/ajitpratap0/lendpool/pkg/logger"
	"github.com/ajitpratap0/lendpool/pkg/metrics"
	"github.com/ajitpratap0/lendpool/pkg/observability"
	"github.com/ajitpratap0/lendpool/pkg/pool"
)

func newRunCommand() *cobra.Command {
	var (
		configFile string
		timeout    time.Duration
		profile    profileOptions
	)
	defaults := config.DefaultBenchConfig()

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a stress test against a fresh buffer pool",
		Long: `Run lends, fills, freezes and releases pooled buffers from many goroutines
and prints a JSON report to stdout. Logs, traces and metrics go to stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile, cmd.Flags())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			return runBench(ctx, cfg, profile, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configFile, "config", "c", "", "Path to a YAML configuration file")
	flags.DurationVar(&timeout, "timeout", 0, "Stop the run after this long (0 = no limit)")
	flags.StringVar(&profile.dir, "profile-dir", "", "Write pprof profiles of the run into this directory")
	flags.StringSliceVar(&profile.types, "profile", []string{"cpu", "heap"}, "Profiles to capture (cpu, heap, block, mutex, goroutine, trace)")
	flags.String("pool-name", defaults.Pool.Name, "Pool name used in logs and metrics")
	flags.Int("capacity", defaults.Pool.BufferCapacity, "Initial capacity of new buffers")
	flags.String("log-level", defaults.Logging.Level, "Log level (debug, info, warn, error)")
	flags.Bool("metrics", defaults.Metrics.Enabled, "Print Prometheus pool metrics to stderr after the run")
	flags.String("namespace", defaults.Metrics.Namespace, "Prometheus metric namespace")
	flags.Bool("trace", defaults.Tracing.Enabled, "Export the run span to stderr")
	flags.IntP("workers", "w", defaults.Stress.Workers, "Number of producer goroutines")
	flags.IntP("iterations", "n", defaults.Stress.Iterations, "Lend cycles per producer")
	flags.Int("payload-size", defaults.Stress.PayloadSize, "Bytes written per cycle")
	flags.Bool("handoff", defaults.Stress.Handoff, "Release buffers on consumer goroutines")
	flags.Int("queue-size", defaults.Stress.QueueSize, "Handoff queue capacity")
	flags.String("codec", defaults.Stress.Codec, "Compress payloads with this codec (none, gzip, snappy, lz4, zstd, s2, deflate)")

	return cmd
}

type profileOptions struct {
	dir   string
	types []string
}

// runBench wires logging, tracing, metrics and profiling around a single
// stress run and writes its JSON report to out.
func runBench(ctx context.Context, cfg *config.BenchConfig, profile profileOptions, out, diag io.Writer) error {
	if err := logger.Init(cfg.Logging); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	shutdown, err := observability.Init(cfg.Tracing, diag)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	ctx = context.WithValue(ctx, logger.RunIDKey, uuid.NewString())
	log := logger.WithContext(ctx).Named("poolbench")

	bp := bytespool.New(
		bytespool.WithName(cfg.Pool.Name),
		bytespool.WithCapacity(cfg.Pool.BufferCapacity),
		bytespool.WithPoolOptions(pool.WithLogger[[]byte](log)),
	)
	defer bp.Close()

	reg, err := metrics.RegisterObservable(otel.Meter(observability.InstrumentationName), bp)
	if err != nil {
		return err
	}
	defer func() { _ = reg.Unregister() }()

	var registry *prometheus.Registry
	if cfg.Metrics.Enabled {
		collector := metrics.NewPoolCollector(cfg.Metrics.Namespace)
		collector.Add(bp)
		registry = prometheus.NewRegistry()
		if err := registry.Register(collector); err != nil {
			return errors.Wrap(err, errors.ErrorTypeInternal, "failed to register pool collector")
		}
	}

	var profiler *stress.Profiler
	if profile.dir != "" {
		types := make([]stress.ProfileType, len(profile.types))
		for i, t := range profile.types {
			types[i] = stress.ProfileType(t)
		}
		if profiler, err = stress.NewProfiler(profile.dir, types, log); err != nil {
			return err
		}
		if err := profiler.Start(); err != nil {
			return err
		}
	}

	report, runErr := stress.Run(ctx, bp, cfg.Stress, log)

	if profiler != nil {
		if _, err := profiler.Stop(); err != nil {
			return err
		}
	}
	if report.Pool == "" {
		// The run never started.
		return runErr
	}

	data, err := report.JSON()
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(out, "%s\n", data); err != nil {
		return err
	}

	if registry != nil {
		if err := writeMetrics(diag, registry); err != nil {
			return err
		}
	}

	return runErr
}

// writeMetrics dumps registry in the Prometheus text exposition format.
func writeMetrics(w io.Writer, registry *prometheus.Registry) error {
	families, err := registry.Gather()
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to gather metrics")
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return errors.Wrap(err, errors.ErrorTypeInternal, "failed to write metrics")
		}
	}
	return nil
}
