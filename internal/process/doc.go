// Package process tracks the shell child started by a pty host.
//
// Manager reaps the child without blocking and reports a typed
// ExitStatus. Relay forwards interrupt and terminate signals received by
// this process to the child and surfaces window-size changes to the
// caller.
//
// Both work from a bare pid so they compose with any spawner that hands
// out the child's process id.
package process
