// Package logging wires slog output for the continuity engine.
//
// Two handler formats are supported: a pretty console handler for interactive
// use and a JSON handler for machine-readable logs. Helper constructors keep
// attribute keys consistent across components; ContextFields extracts the
// document/chapter/stage annotations placed on a context by the services
// package so per-unit log lines stay correlated without manual plumbing.
package logging
