// Package daemon hosts the long-running sync service: the queue drain loop
// with wake-on-enqueue, the stuck-item monitor cadence, and the local HTTP
// API the CLI talks to. A file lock keeps it to one instance per data
// directory.
package daemon
