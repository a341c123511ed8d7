// Package config loads and validates the tracker backend configuration.
//
// Configuration is layered: hardcoded defaults, then an optional YAML file,
// then TRACKER_* environment variable overrides. Secrets (the token signing
// key, broker credentials) are expected from the environment.
package config
