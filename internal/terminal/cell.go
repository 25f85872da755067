package terminal

import "strings"

// Attrs is a set of text attributes for a cell.
type Attrs uint8

const (
	AttrBold Attrs = 1 << iota
	AttrItalic
	AttrUnderline
	AttrStrikethrough
	AttrBlink
	AttrReverse

	AttrNone Attrs = 0
)

var attrNames = []struct {
	attr Attrs
	name string
}{
	{AttrBold, "bold"},
	{AttrItalic, "italic"},
	{AttrUnderline, "underline"},
	{AttrStrikethrough, "strikethrough"},
	{AttrBlink, "blink"},
	{AttrReverse, "reverse"},
}

// Has reports whether every bit of attr is set.
func (a Attrs) Has(attr Attrs) bool {
	return a&attr == attr
}

// String lists the set attributes joined by '|', or "none".
func (a Attrs) String() string {
	if a == AttrNone {
		return "none"
	}
	var parts []string
	for _, n := range attrNames {
		if a&n.attr != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// Cell is one character slot of the grid.
//
// Rune 0 with Width 0 marks the trailing half of a wide character.
type Cell struct {
	Rune  rune
	Width int
	Fg    Color
	Bg    Color
	Attrs Attrs
}

// EmptyCell returns a blank cell with default colors.
func EmptyCell() Cell {
	return Cell{
		Rune:  ' ',
		Width: 1,
		Fg:    DefaultForeground,
		Bg:    DefaultBackground,
	}
}

// IsEmpty reports whether the cell shows no glyph.
func (c Cell) IsEmpty() bool {
	return c.Rune == 0 || c.Rune == ' '
}

// Pen holds the colors and attributes applied to the next written
// character.
type Pen struct {
	Fg    Color
	Bg    Color
	Attrs Attrs
}

// DefaultPen returns a pen with default colors and no attributes.
func DefaultPen() Pen {
	return Pen{Fg: DefaultForeground, Bg: DefaultBackground}
}

func newRow(cols int) []Cell {
	row := make([]Cell, cols)
	for i := range row {
		row[i] = EmptyCell()
	}
	return row
}

func rowText(row []Cell) string {
	var sb strings.Builder
	for _, c := range row {
		if c.Width == 0 && c.Rune == 0 {
			continue
		}
		if c.Rune == 0 {
			sb.WriteRune(' ')
			continue
		}
		sb.WriteRune(c.Rune)
	}
	return strings.TrimRight(sb.String(), " ")
}
