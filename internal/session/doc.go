// Package session ties a pty connection, the terminal parser and the
// child's lifecycle together.
//
// Resilient wraps a Conn and hides transient failures behind retries,
// reconnecting when the connection is presumed dead. Session builds a
// Resilient from configuration and runs the reader loop that feeds the
// parser, reporting output and the shell's exit to the caller.
package session
