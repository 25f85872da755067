package terminal

// DefaultScrollback is the number of rows kept in scrollback.
const DefaultScrollback = 10000

// History is a bounded FIFO of rows that scrolled off the grid.
// The oldest row is evicted first once the cap is reached.
// It is not safe for concurrent use; Grid guards it with its own lock.
type History struct {
	rows    [][]Cell
	start   int
	maxRows int
}

// NewHistory creates a history holding at most maxRows rows.
// A non-positive maxRows selects DefaultScrollback.
func NewHistory(maxRows int) *History {
	if maxRows <= 0 {
		maxRows = DefaultScrollback
	}
	return &History{
		rows:    make([][]Cell, 0, min(maxRows, 256)),
		maxRows: maxRows,
	}
}

// Push appends row, taking ownership of the slice.
func (h *History) Push(row []Cell) {
	if len(h.rows) < h.maxRows {
		h.rows = append(h.rows, row)
		return
	}
	h.rows[h.start] = row
	h.start = (h.start + 1) % h.maxRows
}

// Row returns the row at index, 0 being the oldest. The returned slice
// must not be modified.
func (h *History) Row(index int) []Cell {
	if index < 0 || index >= len(h.rows) {
		return nil
	}
	return h.rows[(h.start+index)%len(h.rows)]
}

// Len returns the number of rows held.
func (h *History) Len() int {
	return len(h.rows)
}

// Cap returns the maximum number of rows held.
func (h *History) Cap() int {
	return h.maxRows
}

// Clear drops every row.
func (h *History) Clear() {
	clear(h.rows)
	h.rows = h.rows[:0]
	h.start = 0
}
