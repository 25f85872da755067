// Package terminal implements the screen model of the emulator and the
// protocol interpreter that drives it.
//
// The package is organized around three types:
//
//   - Color: a protocol color (default, 256-color palette entry or true
//     color) and its render value
//   - Grid: the cell matrix with cursor, scroll region, pen, scrollback
//     and dirty tracking
//   - Parser: a byte-at-a-time VT100/ANSI state machine that applies the
//     decoded actions to a Grid
//
// # Usage
//
//	p := terminal.NewParser(24, 80)
//	p.Parse([]byte("\x1b[31mRED\x1b[0m"))
//
//	g := p.Grid()
//	for _, r := range g.TakeDirty() {
//	    for row := r.Row; row < r.Bottom(); row++ {
//	        cells := g.Row(row)
//	        // Draw cells[r.Col:r.Right()]...
//	    }
//	}
//
// # Wrapping
//
// The grid never wraps on its own. Characters written past the last
// column overwrite the last column until a newline or cursor movement.
//
// # Thread Safety
//
// Grid and Parser are safe for concurrent use. Parse holds the parser
// lock for the whole call, so bytes are applied in arrival order.
package terminal
