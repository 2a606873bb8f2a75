package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/lendpool/pkg/config"
	"github.com/ajitpratap0/lendpool/pkg/errors"
)

// envPrefix prefixes environment overrides, e.g. POOLBENCH_STRESS_WORKERS.
const envPrefix = "POOLBENCH"

// flagKeys maps run flags to their configuration keys.
var flagKeys = map[string]string{
	"pool-name":    "pool.name",
	"capacity":     "pool.buffer_capacity",
	"log-level":    "logging.level",
	"metrics":      "metrics.enabled",
	"namespace":    "metrics.namespace",
	"trace":        "tracing.enabled",
	"workers":      "stress.workers",
	"iterations":   "stress.iterations",
	"payload-size": "stress.payload_size",
	"handoff":      "stress.handoff",
	"queue-size":   "stress.queue_size",
	"codec":        "stress.codec",
}

// loadConfig layers defaults, an optional YAML file, POOLBENCH_* environment
// variables and explicitly set flags, in increasing precedence.
func loadConfig(configFile string, flags *pflag.FlagSet) (*config.BenchConfig, error) {
	v := viper.New()
	setDefaults(v, config.DefaultBenchConfig())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to read config file").
				WithDetail("path", configFile)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to bind flag").
						WithDetail("flag", name)
				}
			}
		}
	}

	cfg := &config.BenchConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to decode configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, cfg *config.BenchConfig) {
	v.SetDefault("pool.name", cfg.Pool.Name)
	v.SetDefault("pool.buffer_capacity", cfg.Pool.BufferCapacity)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.development", cfg.Logging.Development)
	v.SetDefault("logging.encoding", cfg.Logging.Encoding)
	v.SetDefault("logging.output_paths", []string{"stderr"})
	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.namespace", cfg.Metrics.Namespace)
	v.SetDefault("tracing.enabled", cfg.Tracing.Enabled)
	v.SetDefault("tracing.service_name", cfg.Tracing.ServiceName)
	v.SetDefault("tracing.sampling_rate", cfg.Tracing.SamplingRate)
	v.SetDefault("stress.workers", cfg.Stress.Workers)
	v.SetDefault("stress.iterations", cfg.Stress.Iterations)
	v.SetDefault("stress.payload_size", cfg.Stress.PayloadSize)
	v.SetDefault("stress.handoff", cfg.Stress.Handoff)
	v.SetDefault("stress.queue_size", cfg.Stress.QueueSize)
	v.SetDefault("stress.codec", cfg.Stress.Codec)
}

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or write the benchmark configuration",
	}

	var configFile string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile, nil)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return errors.Wrap(err, errors.ErrorTypeConfig, "failed to marshal YAML")
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	showCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to a YAML configuration file")

	initCmd := &cobra.Command{
		Use:   "init <path>",
		Short: "Write the default configuration to a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Save(args[0], config.DefaultBenchConfig()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return nil
		},
	}

	configCmd.AddCommand(showCmd, initCmd)
	return configCmd
}
