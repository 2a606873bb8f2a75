// Package config provides configuration management for lendpool tools.
//
// # Key Features
//
// - BenchConfig: one structure holding the pool, logging, metrics, tracing and
// stress sections
// - Environment variable substitution with ${VAR_NAME} syntax
// - Defaults from DefaultBenchConfig, checked by Validate
// - yaml tags for files and mapstructure tags for viper
//
// # Usage
//
//	cfg, err := config.LoadBenchConfig("bench.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Environment Variable Substitution
//
//	pool:
//	  name: ${POOL_NAME}
//	stress:
//	  workers: 8
//
// Unset variables are replaced with the empty string. Fields left out of the
// file keep their defaults.
package config
