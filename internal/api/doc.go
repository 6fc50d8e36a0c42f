// Package api defines the wire types shared by the daemon's HTTP server and
// the CLI, plus thin services that adapt store operations into them.
package api
