// Package config provides centralized configuration management for the
// swapsum service. It handles loading configuration from multiple sources,
// validation, and provides a type-safe API for accessing configuration
// values throughout the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern SWAPSUM_* for namespacing:
//
//	SWAPSUM_SERVER_PORT=8080
//	SWAPSUM_PIPELINE_DEDUP_WINDOW=1h
//	SWAPSUM_AUTH_ENABLED=true
//	SWAPSUM_LOGGING_LEVEL=info
//
// The SWAPSUM_CONFIG variable points at an explicit config file; otherwise
// config.yaml is looked up in the usual locations.
//
// # Validation
//
// All configuration is validated at load time to ensure required fields are
// present, values are within acceptable ranges, and configured directories
// exist or can be created.
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
