// Package render draws a terminal grid onto a tcell screen and turns
// tcell key events into the bytes a shell expects on its pty.
package render
