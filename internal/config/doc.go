// Package config loads, validates, and normalizes facegate's TOML
// configuration.
//
// Load resolves the config path (explicit flag, then
// ~/.config/facegate/config.toml, then ./facegate.toml), applies defaults for
// absent keys, expands ~ in path fields, folds in environment overrides for
// secrets, and validates every section before returning. Components receive
// the resulting *Config and read durations through its accessor methods.
package config
