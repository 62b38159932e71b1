// Package config loads, normalizes, and validates the TOML configuration for
// the continuity engine. Load resolves the file (explicit flag, then
// ~/.config/tsumugi/config.toml, then ./tsumugi.toml), merges it over
// Default(), expands ~ paths, and validates the result. The consolidation
// common-word filter lives here so it is injected configuration, not a
// module-level registry.
package config
