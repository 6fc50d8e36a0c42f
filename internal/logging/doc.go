// Package logging builds the slog loggers used across the agent.
//
// Two output formats are supported: a compact console format for interactive
// use and JSON for machine consumption. Attribute helpers and standardized
// field keys keep log lines queryable; component loggers tag every record
// with the subsystem that emitted it.
package logging
