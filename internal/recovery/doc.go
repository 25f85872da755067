// Package recovery decides how a failed pty operation should be handled.
//
// Classify maps an error to one of three actions: retry the operation on
// the same connection, recreate the connection, or fail. Policy tracks
// the connected/disconnected state and consecutive failures a classifier
// needs, and Config computes the bounded exponential backoff between
// attempts.
package recovery
