package terminal

import (
	"strings"
	"sync"

	"github.com/mattn/go-runewidth"

	"github.com/dshills/termcore/internal/terminal/dirty"
)

const tabWidth = 8

// widths ignores the locale so cell widths do not depend on the
// environment the emulator runs in.
var widths = &runewidth.Condition{EastAsianWidth: false, StrictEmojiNeutral: true}

// Grid is the screen model: a rows x cols matrix of cells with a cursor,
// a scroll region, the pen for the next written character, scrollback and
// dirty tracking.
//
// Writing past the last column clamps to the last column; the grid never
// wraps on its own.
type Grid struct {
	mu sync.RWMutex

	rows  int
	cols  int
	cells [][]Cell

	cursorRow     int
	cursorCol     int
	cursorVisible bool

	// Inclusive bounds of the scroll region.
	scrollTop    int
	scrollBottom int

	pen Pen

	savedRow int
	savedCol int
	savedPen Pen

	history *History
	dirty   *dirty.Tracker
}

// NewGrid creates a grid. Dimensions below 1 are raised to 1.
func NewGrid(rows, cols int) *Grid {
	rows = max(rows, 1)
	cols = max(cols, 1)

	g := &Grid{
		rows:          rows,
		cols:          cols,
		cells:         make([][]Cell, rows),
		cursorVisible: true,
		scrollBottom:  rows - 1,
		pen:           DefaultPen(),
		savedPen:      DefaultPen(),
		history:       NewHistory(DefaultScrollback),
		dirty:         dirty.NewTracker(rows, cols),
	}
	for i := range g.cells {
		g.cells[i] = newRow(cols)
	}
	return g
}

// Size returns the grid dimensions.
func (g *Grid) Size() (rows, cols int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.rows, g.cols
}

// Rows returns the number of rows.
func (g *Grid) Rows() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.rows
}

// Cols returns the number of columns.
func (g *Grid) Cols() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cols
}

// Resize changes the grid dimensions in place. Columns are padded or
// truncated on the right. When shrinking height the bottom rows are
// moved into scrollback, top to bottom. The scroll region is reset to
// the full screen and the cursor is clamped.
func (g *Grid) Resize(rows, cols int) {
	rows = max(rows, 1)
	cols = max(cols, 1)

	g.mu.Lock()
	defer g.mu.Unlock()

	if rows == g.rows && cols == g.cols {
		return
	}

	if cols != g.cols {
		for i, row := range g.cells {
			g.cells[i] = resizeRow(row, cols)
		}
	}

	switch {
	case rows > g.rows:
		for i := g.rows; i < rows; i++ {
			g.cells = append(g.cells, newRow(cols))
		}
	case rows < g.rows:
		for _, row := range g.cells[rows:] {
			g.history.Push(row)
		}
		clear(g.cells[rows:])
		g.cells = g.cells[:rows]
	}

	g.rows = rows
	g.cols = cols
	g.scrollTop = 0
	g.scrollBottom = rows - 1
	g.cursorRow = min(g.cursorRow, rows-1)
	g.cursorCol = min(g.cursorCol, cols-1)
	g.savedRow = min(g.savedRow, rows-1)
	g.savedCol = min(g.savedCol, cols-1)
	g.dirty.SetSize(rows, cols)
}

func resizeRow(row []Cell, cols int) []Cell {
	if cols <= len(row) {
		return row[:cols:cols]
	}
	out := make([]Cell, cols)
	copy(out, row)
	for i := len(row); i < cols; i++ {
		out[i] = EmptyCell()
	}
	return out
}

// WriteRune writes r at the cursor with the current pen and advances the
// cursor by the rune's display width, clamping at the last column.
// Zero-width runes are dropped. A wide rune is followed by a spacer cell
// when there is room for it.
func (g *Grid) WriteRune(r rune) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.writeRuneLocked(r)
}

func (g *Grid) writeRuneLocked(r rune) {
	width := widths.RuneWidth(r)
	if width == 0 {
		return
	}

	row, col := g.cursorRow, g.cursorCol
	g.cells[row][col] = Cell{
		Rune:  r,
		Width: width,
		Fg:    g.pen.Fg,
		Bg:    g.pen.Bg,
		Attrs: g.pen.Attrs,
	}
	marked := 1
	if width == 2 && col+1 < g.cols {
		g.cells[row][col+1] = Cell{Fg: g.pen.Fg, Bg: g.pen.Bg, Attrs: g.pen.Attrs}
		marked = 2
	}
	g.dirty.Mark(dirty.Region{Row: row, Col: col, Width: marked, Height: 1})

	g.cursorCol = min(col+width, g.cols-1)
}

// Newline returns the cursor to column 0 and advances one row, scrolling
// the region up when the cursor is on its bottom row.
func (g *Grid) Newline() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cursorCol = 0
	g.lineFeedLocked()
}

// LineFeed advances one row without changing the column, scrolling the
// region up when the cursor is on its bottom row.
func (g *Grid) LineFeed() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lineFeedLocked()
}

func (g *Grid) lineFeedLocked() {
	if g.cursorRow == g.scrollBottom {
		g.scrollUpLocked(1)
		return
	}
	if g.cursorRow < g.rows-1 {
		g.cursorRow++
	}
}

// ReverseIndex moves up one row, scrolling the region down when the
// cursor is on its top row.
func (g *Grid) ReverseIndex() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cursorRow == g.scrollTop {
		g.scrollDownLocked(1)
		return
	}
	if g.cursorRow > 0 {
		g.cursorRow--
	}
}

// CarriageReturn moves the cursor to column 0.
func (g *Grid) CarriageReturn() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cursorCol = 0
}

// Tab advances to the next multiple-of-8 column, clamped to the last
// column.
func (g *Grid) Tab() {
	g.mu.Lock()
	defer g.mu.Unlock()
	next := (g.cursorCol/tabWidth + 1) * tabWidth
	g.cursorCol = min(next, g.cols-1)
}

// Backspace moves the cursor left one column without erasing.
func (g *Grid) Backspace() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cursorCol > 0 {
		g.cursorCol--
	}
}

// ScrollUp scrolls the scroll region up by n rows. Rows leaving the top
// of the screen are kept in scrollback.
func (g *Grid) ScrollUp(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scrollUpLocked(n)
}

func (g *Grid) scrollUpLocked(n int) {
	g.shiftUp(g.scrollTop, g.scrollBottom, n, g.scrollTop == 0)
}

// shiftUp moves rows [top, bottom] up by n, filling the bottom with blank
// rows. Rows leaving the top are pushed to scrollback when keep is set.
func (g *Grid) shiftUp(top, bottom, n int, keep bool) {
	n = min(n, bottom-top+1)
	if n <= 0 {
		return
	}

	for i := 0; i < n; i++ {
		evicted := g.cells[top]
		copy(g.cells[top:bottom], g.cells[top+1:bottom+1])
		g.cells[bottom] = newRow(g.cols)
		if keep {
			g.history.Push(evicted)
		}
	}
	g.dirty.Mark(dirty.Rows(top, bottom, g.cols))
}

// ScrollDown scrolls the scroll region down by n rows. Rows pushed off
// the bottom of the region are discarded.
func (g *Grid) ScrollDown(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scrollDownLocked(n)
}

func (g *Grid) scrollDownLocked(n int) {
	g.shiftDown(g.scrollTop, g.scrollBottom, n)
}

// shiftDown moves rows [top, bottom] down by n, filling the top with
// blank rows.
func (g *Grid) shiftDown(top, bottom, n int) {
	n = min(n, bottom-top+1)
	if n <= 0 {
		return
	}

	for i := 0; i < n; i++ {
		copy(g.cells[top+1:bottom+1], g.cells[top:bottom])
		g.cells[top] = newRow(g.cols)
	}
	g.dirty.Mark(dirty.Rows(top, bottom, g.cols))
}

// InsertLines inserts n blank rows at the cursor row, pushing the rows
// below it down inside the scroll region. It does nothing when the
// cursor is outside the region.
func (g *Grid) InsertLines(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cursorRow < g.scrollTop || g.cursorRow > g.scrollBottom {
		return
	}
	g.shiftDown(g.cursorRow, g.scrollBottom, n)
	g.cursorCol = 0
}

// DeleteLines removes n rows at the cursor row, pulling the rows below it
// up inside the scroll region. It does nothing when the cursor is
// outside the region.
func (g *Grid) DeleteLines(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cursorRow < g.scrollTop || g.cursorRow > g.scrollBottom {
		return
	}
	g.shiftUp(g.cursorRow, g.scrollBottom, n, false)
	g.cursorCol = 0
}

// InsertChars inserts n blank cells at the cursor, shifting the rest of
// the row right. Cells pushed past the last column are lost.
func (g *Grid) InsertChars(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	row, col := g.cursorRow, g.cursorCol
	n = min(n, g.cols-col)
	if n <= 0 {
		return
	}
	cells := g.cells[row]
	copy(cells[col+n:], cells[col:g.cols-n])
	g.clearRange(row, col, col+n)
	g.dirty.Mark(dirty.Span(row, col, g.cols))
}

// DeleteChars removes n cells at the cursor, shifting the rest of the row
// left and blanking the vacated cells at the end.
func (g *Grid) DeleteChars(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	row, col := g.cursorRow, g.cursorCol
	n = min(n, g.cols-col)
	if n <= 0 {
		return
	}
	cells := g.cells[row]
	copy(cells[col:], cells[col+n:])
	g.clearRange(row, g.cols-n, g.cols)
	g.dirty.Mark(dirty.Span(row, col, g.cols))
}

// EraseChars blanks n cells starting at the cursor without moving it.
func (g *Grid) EraseChars(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	row, col := g.cursorRow, g.cursorCol
	end := min(col+max(n, 0), g.cols)
	if end <= col {
		return
	}
	g.clearRange(row, col, end)
	g.dirty.Mark(dirty.Span(row, col, end))
}

// CursorUp moves the cursor up n rows. The result is clamped to the
// scroll region, so a cursor outside it lands on the region's edge.
func (g *Grid) CursorUp(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cursorRow = g.clampToRegion(g.cursorRow - max(n, 0))
}

// CursorDown moves the cursor down n rows, clamped to the scroll region.
func (g *Grid) CursorDown(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cursorRow = g.clampToRegion(g.cursorRow + max(n, 0))
}

func (g *Grid) clampToRegion(row int) int {
	return min(max(row, g.scrollTop), g.scrollBottom)
}

// CursorLeft moves the cursor left n columns, stopping at column 0.
func (g *Grid) CursorLeft(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cursorCol = max(g.cursorCol-max(n, 0), 0)
}

// CursorRight moves the cursor right n columns, stopping at the last
// column.
func (g *Grid) CursorRight(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cursorCol = min(g.cursorCol+max(n, 0), g.cols-1)
}

// SetCursor moves the cursor to the 0-based position, clamped to the grid.
func (g *Grid) SetCursor(row, col int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.setCursorLocked(row, col)
}

func (g *Grid) setCursorLocked(row, col int) {
	g.cursorRow = clamp(row, 0, g.rows-1)
	g.cursorCol = clamp(col, 0, g.cols-1)
}

// SetCursorRow moves the cursor to row, keeping the column.
func (g *Grid) SetCursorRow(row int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cursorRow = clamp(row, 0, g.rows-1)
}

// SetCursorCol moves the cursor to col, keeping the row.
func (g *Grid) SetCursorCol(col int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cursorCol = clamp(col, 0, g.cols-1)
}

// CursorPos returns the 0-based cursor position.
func (g *Grid) CursorPos() (row, col int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cursorRow, g.cursorCol
}

// SetCursorVisible shows or hides the cursor.
func (g *Grid) SetCursorVisible(visible bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cursorVisible != visible {
		g.cursorVisible = visible
		g.dirty.Mark(dirty.Cell(g.cursorRow, g.cursorCol))
	}
}

// CursorVisible reports whether the cursor is shown.
func (g *Grid) CursorVisible() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cursorVisible
}

// SaveCursor remembers the cursor position and pen.
func (g *Grid) SaveCursor() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.savedRow, g.savedCol = g.cursorRow, g.cursorCol
	g.savedPen = g.pen
}

// RestoreCursor returns to the position and pen saved by SaveCursor.
func (g *Grid) RestoreCursor() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.setCursorLocked(g.savedRow, g.savedCol)
	g.pen = g.savedPen
}

// ClearScreen blanks every cell.
func (g *Grid) ClearScreen() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.cells {
		g.clearRange(i, 0, g.cols)
	}
	g.dirty.MarkAll()
}

// ClearBelow blanks from the cursor to the end of the screen.
func (g *Grid) ClearBelow() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.clearRange(g.cursorRow, g.cursorCol, g.cols)
	g.dirty.Mark(dirty.Span(g.cursorRow, g.cursorCol, g.cols))
	if g.cursorRow+1 < g.rows {
		for i := g.cursorRow + 1; i < g.rows; i++ {
			g.clearRange(i, 0, g.cols)
		}
		g.dirty.Mark(dirty.Rows(g.cursorRow+1, g.rows-1, g.cols))
	}
}

// ClearAbove blanks from the start of the screen through the cursor.
func (g *Grid) ClearAbove() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cursorRow > 0 {
		for i := 0; i < g.cursorRow; i++ {
			g.clearRange(i, 0, g.cols)
		}
		g.dirty.Mark(dirty.Rows(0, g.cursorRow-1, g.cols))
	}
	g.clearRange(g.cursorRow, 0, g.cursorCol+1)
	g.dirty.Mark(dirty.Span(g.cursorRow, 0, g.cursorCol+1))
}

// ClearLine blanks the cursor row.
func (g *Grid) ClearLine() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clearRange(g.cursorRow, 0, g.cols)
	g.dirty.Mark(dirty.Span(g.cursorRow, 0, g.cols))
}

// ClearLineRight blanks from the cursor to the end of the row.
func (g *Grid) ClearLineRight() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clearRange(g.cursorRow, g.cursorCol, g.cols)
	g.dirty.Mark(dirty.Span(g.cursorRow, g.cursorCol, g.cols))
}

// ClearLineLeft blanks from the start of the row through the cursor.
func (g *Grid) ClearLineLeft() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clearRange(g.cursorRow, 0, g.cursorCol+1)
	g.dirty.Mark(dirty.Span(g.cursorRow, 0, g.cursorCol+1))
}

// ClearScrollback drops every scrollback row.
func (g *Grid) ClearScrollback() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.history.Clear()
}

func (g *Grid) clearRange(row, start, end int) {
	cells := g.cells[row]
	end = min(end, len(cells))
	for i := max(start, 0); i < end; i++ {
		cells[i] = EmptyCell()
	}
}

// Pen returns the pen applied to the next written character.
func (g *Grid) Pen() Pen {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.pen
}

// SetPen replaces the pen.
func (g *Grid) SetPen(p Pen) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pen = p
}

// SetForeground sets the pen foreground.
func (g *Grid) SetForeground(c Color) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pen.Fg = c
}

// SetBackground sets the pen background.
func (g *Grid) SetBackground(c Color) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pen.Bg = c
}

// SetAttrs replaces the pen attributes.
func (g *Grid) SetAttrs(a Attrs) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pen.Attrs = a
}

// AddAttrs sets attributes on the pen.
func (g *Grid) AddAttrs(a Attrs) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pen.Attrs |= a
}

// RemoveAttrs clears attributes on the pen.
func (g *Grid) RemoveAttrs(a Attrs) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pen.Attrs &^= a
}

// ResetPen restores default colors and clears every attribute.
func (g *Grid) ResetPen() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pen = DefaultPen()
}

// SetScrollRegion sets the inclusive scroll region. Bounds are clamped to
// the grid and swapped if reversed.
func (g *Grid) SetScrollRegion(top, bottom int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	top = clamp(top, 0, g.rows-1)
	bottom = clamp(bottom, 0, g.rows-1)
	if top > bottom {
		top, bottom = bottom, top
	}
	g.scrollTop = top
	g.scrollBottom = bottom
}

// ScrollRegion returns the inclusive scroll region.
func (g *Grid) ScrollRegion() (top, bottom int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.scrollTop, g.scrollBottom
}

// Cell returns the cell at (row, col), or an empty cell when out of
// bounds.
func (g *Grid) Cell(row, col int) Cell {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if row < 0 || row >= g.rows || col < 0 || col >= g.cols {
		return EmptyCell()
	}
	return g.cells[row][col]
}

// SetCell replaces the cell at (row, col). Out-of-bounds writes are
// ignored.
func (g *Grid) SetCell(row, col int, c Cell) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if row < 0 || row >= g.rows || col < 0 || col >= g.cols {
		return
	}
	g.cells[row][col] = c
	g.dirty.Mark(dirty.Cell(row, col))
}

// Row returns a copy of the row at index, or nil when out of bounds.
func (g *Grid) Row(index int) []Cell {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if index < 0 || index >= g.rows {
		return nil
	}
	out := make([]Cell, g.cols)
	copy(out, g.cells[index])
	return out
}

// RowText returns the text of a row with trailing blanks trimmed.
func (g *Grid) RowText(index int) string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if index < 0 || index >= g.rows {
		return ""
	}
	return rowText(g.cells[index])
}

// Text returns the visible screen as lines joined by '\n', with trailing
// blanks trimmed from every line.
func (g *Grid) Text() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	lines := make([]string, g.rows)
	for i, row := range g.cells {
		lines[i] = rowText(row)
	}
	return strings.Join(lines, "\n")
}

// ScrollbackLen returns the number of rows in scrollback.
func (g *Grid) ScrollbackLen() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.history.Len()
}

// ScrollbackLine returns a copy of a scrollback row, 0 being the oldest.
func (g *Grid) ScrollbackLine(index int) []Cell {
	g.mu.RLock()
	defer g.mu.RUnlock()
	row := g.history.Row(index)
	if row == nil {
		return nil
	}
	out := make([]Cell, len(row))
	copy(out, row)
	return out
}

// ScrollbackText returns the text of a scrollback row.
func (g *Grid) ScrollbackText(index int) string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return rowText(g.history.Row(index))
}

// TakeDirty returns the regions changed since the last call and clears
// them.
func (g *Grid) TakeDirty() []dirty.Region {
	return g.dirty.Take()
}

// IsDirty reports whether anything changed since the last TakeDirty.
func (g *Grid) IsDirty() bool {
	return g.dirty.IsDirty()
}

// Reset blanks the screen, homes and shows the cursor, restores the
// default pen and the full scroll region. Scrollback is kept.
func (g *Grid) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for i := range g.cells {
		g.clearRange(i, 0, g.cols)
	}
	g.cursorRow, g.cursorCol = 0, 0
	g.cursorVisible = true
	g.scrollTop, g.scrollBottom = 0, g.rows-1
	g.pen = DefaultPen()
	g.savedRow, g.savedCol = 0, 0
	g.savedPen = DefaultPen()
	g.dirty.MarkAll()
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
