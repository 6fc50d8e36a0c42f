// Package config loads, normalizes, and validates corral configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CORRAL_API_KEY. The Config type centralizes every knob the daemon and CLI
// need: queue bounds, sync timing, remote API credentials, and notification
// settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
