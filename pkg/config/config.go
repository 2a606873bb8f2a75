package config

import (
	"runtime"

	"github.com/ajitpratap0/lendpool/pkg/errors"
	"github.com/ajitpratap0/lendpool/pkg/logger"
)

// BenchConfig is the full configuration of a poolbench run. Every section
// carries yaml tags for Load/Save and mapstructure tags for viper.
type BenchConfig struct {
	// Pool configures the byte-buffer pool under test
	Pool PoolConfig `yaml:"pool" json:"pool" mapstructure:"pool"`

	// Logging configures the global zap logger
	Logging LoggingConfig `yaml:"logging" json:"logging" mapstructure:"logging"`

	// Metrics controls the Prometheus collector
	Metrics MetricsConfig `yaml:"metrics" json:"metrics" mapstructure:"metrics"`

	// Tracing controls the OpenTelemetry tracer provider
	Tracing TracingConfig `yaml:"tracing" json:"tracing" mapstructure:"tracing"`

	// Stress shapes the workload
	Stress StressConfig `yaml:"stress" json:"stress" mapstructure:"stress"`
}

// PoolConfig configures a BytesPool.
type PoolConfig struct {
	// Name labels the pool in logs and metrics
	Name string `yaml:"name" json:"name" mapstructure:"name"`
	// BufferCapacity is the initial capacity of newly built buffers
	BufferCapacity int `yaml:"buffer_capacity" json:"buffer_capacity" mapstructure:"buffer_capacity"`
}

// LoggingConfig is the logger configuration.
type LoggingConfig = logger.Config

// MetricsConfig controls metrics export.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	Namespace string `yaml:"namespace" json:"namespace" mapstructure:"namespace"`
}

// TracingConfig controls tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	ServiceName  string  `yaml:"service_name" json:"service_name" mapstructure:"service_name"`
	SamplingRate float64 `yaml:"sampling_rate" json:"sampling_rate" mapstructure:"sampling_rate"` // 0.0-1.0
}

// StressConfig shapes a stress run.
type StressConfig struct {
	// Workers is the number of producing goroutines
	Workers int `yaml:"workers" json:"workers" mapstructure:"workers"`
	// Iterations is the number of lend cycles per worker
	Iterations int `yaml:"iterations" json:"iterations" mapstructure:"iterations"`
	// PayloadSize is the number of bytes written per cycle
	PayloadSize int `yaml:"payload_size" json:"payload_size" mapstructure:"payload_size"`
	// Handoff sends frozen buffers to consumer goroutines for release
	Handoff bool `yaml:"handoff" json:"handoff" mapstructure:"handoff"`
	// QueueSize is the capacity of the handoff queue
	QueueSize int `yaml:"queue_size" json:"queue_size" mapstructure:"queue_size"`
	// Codec compresses each payload before freezing ("none" to skip)
	Codec string `yaml:"codec" json:"codec" mapstructure:"codec"`
}

// DefaultBenchConfig returns a configuration with sensible defaults.
//
// Example:
//
//	cfg := config.DefaultBenchConfig()
//	cfg.Stress.Handoff = true
func DefaultBenchConfig() *BenchConfig {
	return &BenchConfig{
		Pool: PoolConfig{
			Name:           "bench",
			BufferCapacity: 4096,
		},
		Logging: logger.DefaultConfig(),
		Metrics: MetricsConfig{
			Enabled:   false,
			Namespace: "lendpool",
		},
		Tracing: TracingConfig{
			Enabled:      false,
			ServiceName:  "poolbench",
			SamplingRate: 1.0,
		},
		Stress: StressConfig{
			Workers:     runtime.NumCPU(),
			Iterations:  10000,
			PayloadSize: 512,
			Handoff:     false,
			QueueSize:   1024,
			Codec:       "none",
		},
	}
}

// Validate checks required fields and value ranges. It returns an
// *errors.Error of type config naming the offending field.
func (c *BenchConfig) Validate() error {
	if c.Pool.Name == "" {
		return invalid("pool.name", "is required")
	}
	if c.Pool.BufferCapacity < 0 {
		return invalid("pool.buffer_capacity", "cannot be negative")
	}
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return invalid("metrics.namespace", "is required when metrics are enabled")
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return invalid("tracing.sampling_rate", "must be between 0 and 1")
	}
	return c.Stress.Validate()
}

// Validate checks the stress section on its own.
func (s *StressConfig) Validate() error {
	if s.Workers <= 0 {
		return invalid("stress.workers", "must be positive")
	}
	if s.Iterations <= 0 {
		return invalid("stress.iterations", "must be positive")
	}
	if s.PayloadSize < 0 {
		return invalid("stress.payload_size", "cannot be negative")
	}
	if s.Handoff && s.QueueSize <= 0 {
		return invalid("stress.queue_size", "must be positive when handoff is enabled")
	}
	return nil
}

// IsCompressionEnabled reports whether payloads pass through a codec.
func (s *StressConfig) IsCompressionEnabled() bool {
	return s.Codec != "" && s.Codec != "none"
}

func invalid(field, msg string) error {
	return errors.New(errors.ErrorTypeConfig, field+" "+msg).WithDetail("field", field)
}
