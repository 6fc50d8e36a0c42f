// Command corral is the operator CLI for the offline sync queue. It reads
// the queue database directly for inspection and management, and hands sync
// triggers to a running corrald over its local HTTP API.
package main
