package render

import (
	"github.com/gdamore/tcell/v2"

	"github.com/dshills/termcore/internal/terminal"
	"github.com/dshills/termcore/internal/terminal/dirty"
)

// View draws a Grid onto a tcell.Screen, redrawing only what changed.
type View struct {
	screen tcell.Screen
	grid   *terminal.Grid
}

// NewView creates a view of grid on screen.
func NewView(screen tcell.Screen, grid *terminal.Grid) *View {
	return &View{screen: screen, grid: grid}
}

// Draw paints the grid's dirty regions and the cursor, then shows the
// screen. It reports whether anything was painted.
func (v *View) Draw() bool {
	regions := v.grid.TakeDirty()
	if len(regions) == 0 {
		return false
	}
	for _, r := range regions {
		v.drawRegion(r)
	}
	v.drawCursor()
	v.screen.Show()
	return true
}

// Redraw paints the whole grid regardless of dirty state.
func (v *View) Redraw() {
	v.grid.TakeDirty()
	v.screen.Clear()
	rows, cols := v.grid.Size()
	v.drawRegion(dirty.Full(rows, cols))
	v.drawCursor()
	v.screen.Show()
}

func (v *View) drawRegion(r dirty.Region) {
	width, height := v.screen.Size()
	r = r.Clip(height, width)
	if r.IsEmpty() {
		return
	}

	for row := r.Row; row < r.Bottom(); row++ {
		cells := v.grid.Row(row)
		for col := r.Col; col < r.Right() && col < len(cells); col++ {
			cell := cells[col]
			if cell.Width == 0 && cell.Rune == 0 {
				// Spacer behind a wide rune; the rune covers it.
				continue
			}
			ch := cell.Rune
			if ch == 0 {
				ch = ' '
			}
			v.screen.SetContent(col, row, ch, nil, Style(cell))
		}
	}
}

func (v *View) drawCursor() {
	if !v.grid.CursorVisible() {
		v.screen.HideCursor()
		return
	}
	row, col := v.grid.CursorPos()
	v.screen.ShowCursor(col, row)
}

// Style converts a cell's colors and attributes to a tcell.Style.
func Style(cell terminal.Cell) tcell.Style {
	style := tcell.StyleDefault.
		Foreground(cell.Fg.TCell()).
		Background(cell.Bg.TCell())

	attrs := cell.Attrs
	if attrs.Has(terminal.AttrBold) {
		style = style.Bold(true)
	}
	if attrs.Has(terminal.AttrItalic) {
		style = style.Italic(true)
	}
	if attrs.Has(terminal.AttrUnderline) {
		style = style.Underline(true)
	}
	if attrs.Has(terminal.AttrBlink) {
		style = style.Blink(true)
	}
	if attrs.Has(terminal.AttrReverse) {
		style = style.Reverse(true)
	}
	if attrs.Has(terminal.AttrStrikethrough) {
		style = style.StrikeThrough(true)
	}
	return style
}
