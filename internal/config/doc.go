// Package config loads, normalizes, and validates garland's TOML
// configuration.
package config
