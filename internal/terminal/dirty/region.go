// Package dirty tracks rectangular areas of a cell grid that changed
// since the last redraw.
package dirty

// Region is a rectangle of cells. Row and Col are 0-based; Width and
// Height are counts, so a single cell has Width 1 and Height 1.
type Region struct {
	Row    int
	Col    int
	Width  int
	Height int
}

// Cell returns the region covering one cell.
func Cell(row, col int) Region {
	return Region{Row: row, Col: col, Width: 1, Height: 1}
}

// Rows returns a full-width region covering rows [top, bottom].
func Rows(top, bottom, cols int) Region {
	if bottom < top {
		top, bottom = bottom, top
	}
	return Region{Row: top, Col: 0, Width: cols, Height: bottom - top + 1}
}

// Span returns a region covering columns [start, end) of one row.
func Span(row, start, end int) Region {
	if end < start {
		start, end = end, start
	}
	return Region{Row: row, Col: start, Width: end - start, Height: 1}
}

// Full returns the region covering a whole rows x cols screen.
func Full(rows, cols int) Region {
	return Region{Width: cols, Height: rows}
}

// IsEmpty reports whether the region covers no cells.
func (r Region) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Bottom returns the row just below the region.
func (r Region) Bottom() int {
	return r.Row + r.Height
}

// Right returns the column just right of the region.
func (r Region) Right() int {
	return r.Col + r.Width
}

// Area returns the number of cells in the region.
func (r Region) Area() int {
	if r.IsEmpty() {
		return 0
	}
	return r.Width * r.Height
}

// Contains reports whether the cell at (row, col) lies inside the region.
func (r Region) Contains(row, col int) bool {
	return row >= r.Row && row < r.Bottom() && col >= r.Col && col < r.Right()
}

// Covers reports whether other lies entirely inside r.
func (r Region) Covers(other Region) bool {
	if other.IsEmpty() {
		return true
	}
	return other.Row >= r.Row && other.Bottom() <= r.Bottom() &&
		other.Col >= r.Col && other.Right() <= r.Right()
}

// Overlaps reports whether the regions share at least one cell.
func (r Region) Overlaps(other Region) bool {
	if r.IsEmpty() || other.IsEmpty() {
		return false
	}
	return r.Row < other.Bottom() && other.Row < r.Bottom() &&
		r.Col < other.Right() && other.Col < r.Right()
}

// Adjacent reports whether the regions touch along a full shared edge,
// so that their union is itself a rectangle.
func (r Region) Adjacent(other Region) bool {
	if r.IsEmpty() || other.IsEmpty() {
		return false
	}

	// Stacked vertically with the same column span.
	if r.Col == other.Col && r.Width == other.Width {
		if r.Bottom() == other.Row || other.Bottom() == r.Row {
			return true
		}
	}

	// Side by side with the same row span.
	if r.Row == other.Row && r.Height == other.Height {
		if r.Right() == other.Col || other.Right() == r.Col {
			return true
		}
	}

	return false
}

// Merge returns the bounding box of both regions if they overlap or are
// adjacent. The second result is false when the regions are disjoint.
func (r Region) Merge(other Region) (Region, bool) {
	if !r.Overlaps(other) && !r.Adjacent(other) {
		return Region{}, false
	}
	return r.Union(other), true
}

// Union returns the bounding box of both regions.
func (r Region) Union(other Region) Region {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}
	row := min(r.Row, other.Row)
	col := min(r.Col, other.Col)
	return Region{
		Row:    row,
		Col:    col,
		Width:  max(r.Right(), other.Right()) - col,
		Height: max(r.Bottom(), other.Bottom()) - row,
	}
}

// Clip returns the part of r that lies inside a rows x cols screen.
func (r Region) Clip(rows, cols int) Region {
	top := max(r.Row, 0)
	left := max(r.Col, 0)
	bottom := min(r.Bottom(), rows)
	right := min(r.Right(), cols)
	if bottom <= top || right <= left {
		return Region{}
	}
	return Region{Row: top, Col: left, Width: right - left, Height: bottom - top}
}
