// Package notifications delivers sync events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. The Service interface covers the sync milestones the daemon
// reports so callers can emit consistent messages without duplicating HTTP
// glue.
//
// Extend this package if you need alternative transports; daemon code
// depends only on the Service interface.
package notifications
