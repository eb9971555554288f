// Package config handles configuration loading, parsing, and validation
// from various sources (.env file, config file, environment variables). It
// provides type-safe access to application settings needed by different
// components while keeping configuration details separate from business logic.
//
// Every key can be overridden by an environment variable with the REVERIE_
// prefix, where dots become underscores (pipeline.retry_delay becomes
// REVERIE_PIPELINE_RETRY_DELAY).
package config
